package dicomweb

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// DICOM JSON attribute tags used by the QIDO queries.
const (
	tagSOPInstanceUID    = "00080018"
	tagStudyDate         = "00080020"
	tagModality          = "00080060"
	tagStudyDescription  = "00081030"
	tagSeriesDescription = "0008103E"
	tagPatientName       = "00100010"
	tagStudyInstanceUID  = "0020000D"
	tagSeriesInstanceUID = "0020000E"
	tagSeriesNumber      = "00200011"
	tagInstanceNumber    = "00200013"
	tagRelatedInstances  = "00201209"
)

// dataset is one DICOM JSON object: attributes keyed by 8-digit hex tag.
type dataset map[string]attribute

type attribute struct {
	VR    string            `json:"vr"`
	Value []json.RawMessage `json:"Value"`
}

func decodeDatasets(r io.Reader) ([]dataset, error) {
	var datasets []dataset
	if err := json.NewDecoder(r).Decode(&datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// firstString returns the first value of an attribute as a string. Person
// names arrive as objects with an Alphabetic field, numbers may arrive
// unquoted; both coerce to their string form.
func (d dataset) firstString(tag string) string {
	raw, ok := d.firstValue(tag)
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var pn struct {
		Alphabetic string `json:"Alphabetic"`
	}
	if err := json.Unmarshal(raw, &pn); err == nil && pn.Alphabetic != "" {
		return strings.TrimSpace(pn.Alphabetic)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// firstInt returns the first value of an attribute as an int. IS attributes
// are numbers in DICOM JSON but some origins quote them.
func (d dataset) firstInt(tag string) int {
	raw, ok := d.firstValue(tag)
	if !ok {
		return 0
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return int(v)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

func (d dataset) firstValue(tag string) (json.RawMessage, bool) {
	attr, ok := d[tag]
	if !ok || len(attr.Value) == 0 {
		return nil, false
	}
	return attr.Value[0], true
}
