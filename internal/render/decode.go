package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// InstanceMeta is the identifying metadata the archive index stores for one
// instance. Pixel data is not retained here.
type InstanceMeta struct {
	StudyUID          string
	SeriesUID         string
	SOPUID            string
	Modality          string
	SeriesNumber      int
	SeriesDescription string
	StudyDescription  string
	PatientName       string
	StudyDate         time.Time
	InstanceNumber    int
	Rows              int
	Columns           int
}

// ExtractMeta parses identifying attributes from a DICOM instance without
// touching pixel data.
func ExtractMeta(data []byte) (*InstanceMeta, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("parse instance: %w", err)
	}

	meta := &InstanceMeta{
		StudyUID:          firstString(&ds, tag.StudyInstanceUID),
		SeriesUID:         firstString(&ds, tag.SeriesInstanceUID),
		SOPUID:            firstString(&ds, tag.SOPInstanceUID),
		Modality:          firstString(&ds, tag.Modality),
		SeriesDescription: firstString(&ds, tag.SeriesDescription),
		StudyDescription:  firstString(&ds, tag.StudyDescription),
		PatientName:       firstString(&ds, tag.PatientName),
	}
	if meta.SOPUID == "" {
		return nil, fmt.Errorf("parse instance: missing SOPInstanceUID")
	}
	if meta.SeriesUID == "" {
		return nil, fmt.Errorf("parse instance %s: missing SeriesInstanceUID", meta.SOPUID)
	}
	meta.SeriesNumber, _ = firstIntString(&ds, tag.SeriesNumber)
	meta.InstanceNumber, _ = firstIntString(&ds, tag.InstanceNumber)
	meta.Rows, _ = firstUint(&ds, tag.Rows)
	meta.Columns, _ = firstUint(&ds, tag.Columns)
	if raw := firstString(&ds, tag.StudyDate); raw != "" {
		if parsed, err := time.Parse("20060102", raw); err == nil {
			meta.StudyDate = parsed
		}
	}
	return meta, nil
}

// decodeInstance parses one instance and converts its first frame into an
// Image. Multi-frame instances contribute only their first frame; the viewer
// navigates per instance, not per frame.
func decodeInstance(data []byte) (*Image, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("parse instance: %w", err)
	}

	pixelEl, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, ErrNoPixelData
	}
	info := dicom.MustGetPixelDataInfo(pixelEl.Value)
	if info.IsEncapsulated {
		return nil, ErrEncapsulated
	}
	if len(info.Frames) == 0 {
		return nil, ErrNoPixelData
	}
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("native frame: %w", err)
	}

	img := &Image{
		SOPUID:       firstString(&ds, tag.SOPInstanceUID),
		Width:        native.Cols,
		Height:       native.Rows,
		BitsStored:   native.BitsPerSample,
		Photometric:  normalizePhotometric(firstString(&ds, tag.PhotometricInterpretation)),
		RescaleSlope: 1,
	}
	if bits, ok := firstUint(&ds, tag.BitsStored); ok && bits > 0 {
		img.BitsStored = bits
	}
	if rep, ok := firstUint(&ds, tag.PixelRepresentation); ok && rep == 1 {
		img.SignedSamples = true
	}
	if slope, ok := firstFloat(&ds, tag.RescaleSlope); ok && slope != 0 {
		img.RescaleSlope = slope
	}
	if intercept, ok := firstFloat(&ds, tag.RescaleIntercept); ok {
		img.RescaleIntercept = intercept
	}
	if center, ok := firstFloat(&ds, tag.WindowCenter); ok {
		img.WindowCenter = center
	}
	if width, ok := firstFloat(&ds, tag.WindowWidth); ok {
		img.WindowWidth = width
	}

	img.Samples = make([]uint16, len(native.Data))
	for i, px := range native.Data {
		if len(px) == 0 {
			continue
		}
		img.Samples[i] = uint16(px[0])
	}

	if img.WindowWidth <= 0 {
		img.WindowCenter, img.WindowWidth = autoWindow(img)
	}
	return img, nil
}

func normalizePhotometric(value string) string {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == Monochrome1 {
		return Monochrome1
	}
	return Monochrome2
}

func firstString(ds *dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return ""
	}
	if values, ok := el.Value.GetValue().([]string); ok && len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// firstUint reads US-valued elements such as Rows and Columns.
func firstUint(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return 0, false
	}
	if values, ok := el.Value.GetValue().([]int); ok && len(values) > 0 {
		return values[0], true
	}
	return 0, false
}

// firstIntString reads IS-valued elements such as InstanceNumber.
func firstIntString(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	raw := firstString(ds, t)
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// firstFloat reads DS-valued elements such as WindowCenter. Multi-valued
// elements contribute their first value.
func firstFloat(ds *dicom.Dataset, t tag.Tag) (float64, bool) {
	raw := firstString(ds, t)
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
