package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lightbox/internal/archive"
	"lightbox/internal/study"
)

// FakeSource is an in-memory archive.Source whose fetches tests can fail,
// gate, and count. Payloads default to the SOP instance UID bytes so a
// paired FakeEngine can decode them without real DICOM data.
type FakeSource struct {
	mu        sync.Mutex
	studies   []study.StudyRef
	series    map[string][]study.SeriesRef
	instances map[string][]study.InstanceRef
	payloads  map[string][]byte
	failures  map[string]error
	gates     map[string]chan struct{}
	fetched   []string
}

var _ archive.Source = (*FakeSource)(nil)

// NewFakeSource returns an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		series:    make(map[string][]study.SeriesRef),
		instances: make(map[string][]study.InstanceRef),
		payloads:  make(map[string][]byte),
		failures:  make(map[string]error),
		gates:     make(map[string]chan struct{}),
	}
}

// AddSeries registers a series holding the given instances, creating the
// parent study on first use.
func (f *FakeSource) AddSeries(studyUID, seriesUID string, refs ...study.InstanceRef) {
	f.mu.Lock()
	defer f.mu.Unlock()

	known := false
	for _, st := range f.studies {
		if st.StudyUID == studyUID {
			known = true
			break
		}
	}
	if !known {
		f.studies = append(f.studies, study.StudyRef{StudyUID: studyUID, PatientName: "DOE^JANE"})
	}

	f.series[studyUID] = append(f.series[studyUID], study.SeriesRef{
		SeriesUID:     seriesUID,
		StudyUID:      studyUID,
		Modality:      "CT",
		Number:        len(f.series[studyUID]) + 1,
		InstanceCount: len(refs),
	})

	sorted := append([]study.InstanceRef(nil), refs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].InstanceNumber != sorted[j].InstanceNumber {
			return sorted[i].InstanceNumber < sorted[j].InstanceNumber
		}
		return sorted[i].SOPUID < sorted[j].SOPUID
	})
	f.instances[seriesUID] = sorted
}

// SetPayload overrides the bytes returned for one SOP instance UID.
func (f *FakeSource) SetPayload(sopUID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[sopUID] = data
}

// FailFetch makes every fetch of sopUID return err.
func (f *FakeSource) FailFetch(sopUID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[sopUID] = err
}

// GateFetch blocks fetches of sopUID until the returned release function
// runs. Release is safe to call more than once.
func (f *FakeSource) GateFetch(sopUID string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	gate := make(chan struct{})
	f.gates[sopUID] = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// FetchCount reports how many times sopUID has been fetched.
func (f *FakeSource) FetchCount(sopUID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, id := range f.fetched {
		if id == sopUID {
			count++
		}
	}
	return count
}

// Fetches returns every fetched SOP instance UID in call order.
func (f *FakeSource) Fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// ListStudies implements archive.Source.
func (f *FakeSource) ListStudies(ctx context.Context) ([]study.StudyRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]study.StudyRef(nil), f.studies...), nil
}

// ListSeries implements archive.Source.
func (f *FakeSource) ListSeries(ctx context.Context, studyUID string) ([]study.SeriesRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	refs, ok := f.series[studyUID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", studyUID, archive.ErrStudyNotFound)
	}
	return append([]study.SeriesRef(nil), refs...), nil
}

// ListInstances implements archive.Source.
func (f *FakeSource) ListInstances(ctx context.Context, seriesUID string) ([]study.InstanceRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	refs, ok := f.instances[seriesUID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", seriesUID, archive.ErrSeriesNotFound)
	}
	return append([]study.InstanceRef(nil), refs...), nil
}

// FetchInstanceBytes implements archive.Source. The fetch is recorded
// before any gate wait so tests can observe in-flight loads.
func (f *FakeSource) FetchInstanceBytes(ctx context.Context, sopUID string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, sopUID)
	gate := f.gates[sopUID]
	failure := f.failures[sopUID]
	payload, hasPayload := f.payloads[sopUID]
	known := hasPayload || f.knownLocked(sopUID)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !known {
		return nil, fmt.Errorf("%s: %w", sopUID, archive.ErrInstanceNotFound)
	}
	if payload == nil {
		payload = []byte(sopUID)
	}
	return payload, nil
}

func (f *FakeSource) knownLocked(sopUID string) bool {
	for _, refs := range f.instances {
		for _, ref := range refs {
			if ref.SOPUID == sopUID {
				return true
			}
		}
	}
	return false
}
