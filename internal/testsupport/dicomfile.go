package testsupport

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// explicitVRLittleEndian is the transfer syntax every synthetic file uses.
const explicitVRLittleEndian = "1.2.840.10008.1.2.1"

// DICOMFile describes one synthetic instance. Zero fields take defaults:
// 4x4 pixels, CT modality, a fixed patient, and a gradient pixel pattern.
type DICOMFile struct {
	StudyUID          string
	SeriesUID         string
	SOPUID            string
	PatientName       string
	Modality          string
	StudyDate         string
	StudyDescription  string
	SeriesDescription string
	SeriesNumber      int
	InstanceNumber    int
	Rows              int
	Cols              int
	WindowCenter      float64
	WindowWidth       float64
	// Pixels holds one sample per pixel in row-major order. Length must be
	// Rows*Cols when set.
	Pixels []uint16
}

// EncodeDICOM renders the description into a complete DICOM file encoded
// with explicit VR little endian.
func EncodeDICOM(t testing.TB, f DICOMFile) []byte {
	t.Helper()

	if f.StudyUID == "" {
		f.StudyUID = "1.2.840.99999.1"
	}
	if f.SeriesUID == "" {
		f.SeriesUID = f.StudyUID + ".1"
	}
	if f.SOPUID == "" {
		f.SOPUID = f.SeriesUID + "." + strconv.Itoa(f.InstanceNumber)
	}
	if f.PatientName == "" {
		f.PatientName = "DOE^JANE"
	}
	if f.Modality == "" {
		f.Modality = "CT"
	}
	if f.StudyDate == "" {
		f.StudyDate = "20240102"
	}
	if f.SeriesNumber == 0 {
		f.SeriesNumber = 1
	}
	if f.Rows == 0 {
		f.Rows = 4
	}
	if f.Cols == 0 {
		f.Cols = 4
	}
	if f.Pixels == nil {
		f.Pixels = make([]uint16, f.Rows*f.Cols)
		for i := range f.Pixels {
			f.Pixels[i] = uint16((i * 17) % 4096)
		}
	}
	if len(f.Pixels) != f.Rows*f.Cols {
		t.Fatalf("pixel count %d does not match %dx%d", len(f.Pixels), f.Rows, f.Cols)
	}

	pixels := make([][]int, len(f.Pixels))
	for i, v := range f.Pixels {
		pixels[i] = []int{int(v)}
	}
	pixelData := dicom.PixelDataInfo{
		IsEncapsulated: false,
		Frames: []*frame.Frame{{
			NativeData: frame.NativeFrame{
				BitsPerSample: 16,
				Rows:          f.Rows,
				Cols:          f.Cols,
				Data:          pixels,
			},
		}},
	}

	elements := []*dicom.Element{
		mustElement(t, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.7"}),
		mustElement(t, tag.MediaStorageSOPInstanceUID, []string{f.SOPUID}),
		mustElement(t, tag.TransferSyntaxUID, []string{explicitVRLittleEndian}),
		mustElement(t, tag.SOPInstanceUID, []string{f.SOPUID}),
		mustElement(t, tag.StudyInstanceUID, []string{f.StudyUID}),
		mustElement(t, tag.SeriesInstanceUID, []string{f.SeriesUID}),
		mustElement(t, tag.Modality, []string{f.Modality}),
		mustElement(t, tag.PatientName, []string{f.PatientName}),
		mustElement(t, tag.StudyDate, []string{f.StudyDate}),
		mustElement(t, tag.SeriesNumber, []string{strconv.Itoa(f.SeriesNumber)}),
		mustElement(t, tag.InstanceNumber, []string{strconv.Itoa(f.InstanceNumber)}),
		mustElement(t, tag.Rows, []int{f.Rows}),
		mustElement(t, tag.Columns, []int{f.Cols}),
		mustElement(t, tag.SamplesPerPixel, []int{1}),
		mustElement(t, tag.BitsAllocated, []int{16}),
		mustElement(t, tag.BitsStored, []int{16}),
		mustElement(t, tag.HighBit, []int{15}),
		mustElement(t, tag.PixelRepresentation, []int{0}),
		mustElement(t, tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
	}
	if f.StudyDescription != "" {
		elements = append(elements, mustElement(t, tag.StudyDescription, []string{f.StudyDescription}))
	}
	if f.SeriesDescription != "" {
		elements = append(elements, mustElement(t, tag.SeriesDescription, []string{f.SeriesDescription}))
	}
	if f.WindowWidth > 0 {
		elements = append(elements,
			mustElement(t, tag.WindowCenter, []string{strconv.FormatFloat(f.WindowCenter, 'f', -1, 64)}),
			mustElement(t, tag.WindowWidth, []string{strconv.FormatFloat(f.WindowWidth, 'f', -1, 64)}),
		)
	}
	elements = append(elements, mustElement(t, tag.PixelData, pixelData))

	var buf bytes.Buffer
	if err := dicom.Write(&buf, dicom.Dataset{Elements: elements}); err != nil {
		t.Fatalf("write dicom file: %v", err)
	}
	return buf.Bytes()
}

func mustElement(t testing.TB, tg tag.Tag, value any) *dicom.Element {
	t.Helper()

	el, err := dicom.NewElement(tg, value)
	if err != nil {
		t.Fatalf("new element %v: %v", tg, err)
	}
	return el
}
