// Package dicomweb implements archive.Source against a remote DICOMweb
// origin: QIDO-RS for study, series, and instance queries and WADO-RS for
// instance retrieval.
//
// WADO-RS addresses instances by study/series/instance path, so the client
// remembers the parent UIDs seen in instance listings and falls back to a
// QIDO lookup when asked for an instance it has not listed. Servers that
// report unknown parents as empty result sets rather than 404 yield empty
// listings instead of the not-found sentinels.
package dicomweb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"lightbox/internal/archive"
	"lightbox/internal/config"
	"lightbox/internal/study"
)

// errNotFound marks a 404 from the origin before it is translated into the
// archive sentinel matching the query.
var errNotFound = errors.New("not found")

// Client talks QIDO-RS and WADO-RS to one DICOMweb origin.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client

	mu    sync.RWMutex
	paths map[string]instancePath
}

type instancePath struct {
	studyUID  string
	seriesUID string
}

var _ archive.Source = (*Client)(nil)

// Option customizes a Client at construction.
type Option func(*Client)

// WithHTTPClient swaps in a caller-owned HTTP client, keeping its transport
// and timeout settings.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuthToken sets a bearer token sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a DICOMweb client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("dicomweb base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		paths:      make(map[string]instancePath),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig creates a client from the dicomweb config section.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	opts := []Option{WithAuthToken(cfg.DICOMWeb.AuthToken)}
	if cfg.DICOMWeb.RequestTimeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.DICOMWeb.RequestTimeout)*time.Second))
	}
	return New(cfg.DICOMWeb.BaseURL, opts...)
}

// ListStudies implements archive.Source.
func (c *Client) ListStudies(ctx context.Context) ([]study.StudyRef, error) {
	datasets, err := c.queryDatasets(ctx, "/studies", nil)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("dicomweb studies endpoint missing at %s", c.baseURL)
	}
	if err != nil {
		return nil, err
	}

	refs := make([]study.StudyRef, 0, len(datasets))
	for _, ds := range datasets {
		uid := ds.firstString(tagStudyInstanceUID)
		if uid == "" {
			continue
		}
		ref := study.StudyRef{
			StudyUID:    uid,
			PatientName: ds.firstString(tagPatientName),
			Description: ds.firstString(tagStudyDescription),
		}
		if raw := ds.firstString(tagStudyDate); raw != "" {
			if parsed, err := time.Parse("20060102", raw); err == nil {
				ref.StudyDate = parsed
			}
		}
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].StudyDate.Equal(refs[j].StudyDate) {
			return refs[i].StudyDate.After(refs[j].StudyDate)
		}
		return refs[i].StudyUID < refs[j].StudyUID
	})
	return refs, nil
}

// ListSeries implements archive.Source.
func (c *Client) ListSeries(ctx context.Context, studyUID string) ([]study.SeriesRef, error) {
	resource := fmt.Sprintf("/studies/%s/series", url.PathEscape(studyUID))
	datasets, err := c.queryDatasets(ctx, resource, nil)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%s: %w", studyUID, archive.ErrStudyNotFound)
	}
	if err != nil {
		return nil, err
	}

	refs := make([]study.SeriesRef, 0, len(datasets))
	for _, ds := range datasets {
		uid := ds.firstString(tagSeriesInstanceUID)
		if uid == "" {
			continue
		}
		refs = append(refs, study.SeriesRef{
			SeriesUID:     uid,
			StudyUID:      studyUID,
			Modality:      ds.firstString(tagModality),
			Number:        ds.firstInt(tagSeriesNumber),
			Description:   ds.firstString(tagSeriesDescription),
			InstanceCount: ds.firstInt(tagRelatedInstances),
		})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Number != refs[j].Number {
			return refs[i].Number < refs[j].Number
		}
		return refs[i].SeriesUID < refs[j].SeriesUID
	})
	return refs, nil
}

// ListInstances implements archive.Source.
func (c *Client) ListInstances(ctx context.Context, seriesUID string) ([]study.InstanceRef, error) {
	params := url.Values{}
	params.Set("SeriesInstanceUID", seriesUID)
	datasets, err := c.queryDatasets(ctx, "/instances", params)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%s: %w", seriesUID, archive.ErrSeriesNotFound)
	}
	if err != nil {
		return nil, err
	}

	refs := make([]study.InstanceRef, 0, len(datasets))
	for _, ds := range datasets {
		sop := ds.firstString(tagSOPInstanceUID)
		if sop == "" {
			continue
		}
		refs = append(refs, study.InstanceRef{
			SOPUID:         sop,
			InstanceNumber: ds.firstInt(tagInstanceNumber),
		})
		studyUID := ds.firstString(tagStudyInstanceUID)
		if studyUID != "" {
			c.storePath(sop, instancePath{studyUID: studyUID, seriesUID: seriesUID})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].InstanceNumber != refs[j].InstanceNumber {
			return refs[i].InstanceNumber < refs[j].InstanceNumber
		}
		return refs[i].SOPUID < refs[j].SOPUID
	})
	return refs, nil
}

// FetchInstanceBytes implements archive.Source.
func (c *Client) FetchInstanceBytes(ctx context.Context, sopUID string) ([]byte, error) {
	path, ok := c.cachedPath(sopUID)
	if !ok {
		resolved, err := c.resolvePath(ctx, sopUID)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	resource := fmt.Sprintf("/studies/%s/series/%s/instances/%s",
		url.PathEscape(path.studyUID), url.PathEscape(path.seriesUID), url.PathEscape(sopUID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resource, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", `multipart/related; type="application/dicom"`)
	c.authorize(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("%s: %w", sopUID, archive.ErrInstanceNotFound)
	default:
		return nil, fmt.Errorf("dicomweb retrieve returned %d (latency=%v)", resp.StatusCode, latency)
	}

	data, err := readInstanceBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read instance %s: %w", sopUID, err)
	}
	return data, nil
}

// resolvePath locates the study and series UIDs of an instance via QIDO so
// the WADO retrieve path can be built.
func (c *Client) resolvePath(ctx context.Context, sopUID string) (instancePath, error) {
	params := url.Values{}
	params.Set("SOPInstanceUID", sopUID)
	datasets, err := c.queryDatasets(ctx, "/instances", params)
	if err != nil && !errors.Is(err, errNotFound) {
		return instancePath{}, err
	}
	for _, ds := range datasets {
		if ds.firstString(tagSOPInstanceUID) != sopUID {
			continue
		}
		path := instancePath{
			studyUID:  ds.firstString(tagStudyInstanceUID),
			seriesUID: ds.firstString(tagSeriesInstanceUID),
		}
		if path.studyUID != "" && path.seriesUID != "" {
			c.storePath(sopUID, path)
			return path, nil
		}
	}
	return instancePath{}, fmt.Errorf("%s: %w", sopUID, archive.ErrInstanceNotFound)
}

func (c *Client) queryDatasets(ctx context.Context, resource string, params url.Values) ([]dataset, error) {
	endpoint, err := url.Parse(c.baseURL + resource)
	if err != nil {
		return nil, fmt.Errorf("parse dicomweb url: %w", err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/dicom+json")
	c.authorize(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	case http.StatusNotFound:
		return nil, errNotFound
	default:
		return nil, fmt.Errorf("dicomweb query %s returned %d (latency=%v)", resource, resp.StatusCode, latency)
	}

	datasets, err := decodeDatasets(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode dicomweb response: %w", err)
	}
	return datasets, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

func (c *Client) cachedPath(sopUID string) (instancePath, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.paths[sopUID]
	return path, ok
}

func (c *Client) storePath(sopUID string, path instancePath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[sopUID] = path
}

// readInstanceBody unwraps a WADO-RS response. Retrieval responses are
// multipart/related with one application/dicom part per instance; a bare
// body is accepted for servers that skip the wrapping for single instances.
func readInstanceBody(resp *http.Response) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(resp.Body)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errors.New("multipart response without boundary")
	}
	reader := multipart.NewReader(resp.Body, boundary)
	part, err := reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("read multipart body: %w", err)
	}
	defer part.Close()
	return io.ReadAll(part)
}
