package dicomweb_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"lightbox/internal/archive"
	"lightbox/internal/archive/dicomweb"
)

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := dicomweb.New(""); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestListStudiesParsesDICOMJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/studies" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/dicom+json" {
			t.Fatalf("unexpected accept header %q", got)
		}
		w.Header().Set("Content-Type", "application/dicom+json")
		_, _ = w.Write([]byte(`[
            {"0020000D":{"vr":"UI","Value":["1.2.1"]},
             "00100010":{"vr":"PN","Value":[{"Alphabetic":"DOE^JOHN"}]},
             "00080020":{"vr":"DA","Value":["20230105"]},
             "00081030":{"vr":"LO","Value":["Chest CT"]}},
            {"0020000D":{"vr":"UI","Value":["1.2.2"]},
             "00080020":{"vr":"DA","Value":["20240301"]}}
        ]`))
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL, dicomweb.WithAuthToken("sekrit"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	studies, err := client.ListStudies(context.Background())
	if err != nil {
		t.Fatalf("ListStudies returned error: %v", err)
	}
	if len(studies) != 2 {
		t.Fatalf("expected 2 studies, got %d", len(studies))
	}
	// Most recent study date sorts first.
	if studies[0].StudyUID != "1.2.2" || studies[1].StudyUID != "1.2.1" {
		t.Fatalf("unexpected order: %#v", studies)
	}
	if studies[1].PatientName != "DOE^JOHN" {
		t.Fatalf("expected alphabetic person name, got %q", studies[1].PatientName)
	}
	if studies[1].Description != "Chest CT" {
		t.Fatalf("unexpected description %q", studies[1].Description)
	}
	if studies[1].StudyDate.Year() != 2023 {
		t.Fatalf("unexpected study date %v", studies[1].StudyDate)
	}
}

func TestListSeriesMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.ListSeries(context.Background(), "1.2.9"); !errors.Is(err, archive.ErrStudyNotFound) {
		t.Fatalf("expected ErrStudyNotFound, got %v", err)
	}
}

func TestListInstancesSortsAndHandlesQuotedNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("SeriesInstanceUID"); got != "1.2.1.1" {
			t.Fatalf("unexpected series filter %q", got)
		}
		w.Header().Set("Content-Type", "application/dicom+json")
		_, _ = w.Write([]byte(`[
            {"00080018":{"vr":"UI","Value":["1.2.1.1.3"]},
             "0020000D":{"vr":"UI","Value":["1.2.1"]},
             "0020000E":{"vr":"UI","Value":["1.2.1.1"]},
             "00200013":{"vr":"IS","Value":[3]}},
            {"00080018":{"vr":"UI","Value":["1.2.1.1.1"]},
             "0020000D":{"vr":"UI","Value":["1.2.1"]},
             "0020000E":{"vr":"UI","Value":["1.2.1.1"]},
             "00200013":{"vr":"IS","Value":["1"]}}
        ]`))
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	instances, err := client.ListInstances(context.Background(), "1.2.1.1")
	if err != nil {
		t.Fatalf("ListInstances returned error: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}
	if instances[0].SOPUID != "1.2.1.1.1" || instances[0].InstanceNumber != 1 {
		t.Fatalf("unexpected first instance: %+v", instances[0])
	}
	if instances[1].SOPUID != "1.2.1.1.3" || instances[1].InstanceNumber != 3 {
		t.Fatalf("unexpected second instance: %+v", instances[1])
	}
}

func TestListInstancesEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	instances, err := client.ListInstances(context.Background(), "1.2.1.1")
	if err != nil {
		t.Fatalf("ListInstances returned error: %v", err)
	}
	if len(instances) != 0 {
		t.Fatalf("expected no instances, got %d", len(instances))
	}
}

func TestFetchInstanceBytesUsesListedPath(t *testing.T) {
	payload := []byte("raw dicom bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instances":
			w.Header().Set("Content-Type", "application/dicom+json")
			_, _ = w.Write([]byte(`[
                {"00080018":{"vr":"UI","Value":["1.2.1.1.1"]},
                 "0020000D":{"vr":"UI","Value":["1.2.1"]},
                 "0020000E":{"vr":"UI","Value":["1.2.1.1"]},
                 "00200013":{"vr":"IS","Value":[1]}}
            ]`))
		case "/studies/1.2.1/series/1.2.1.1/instances/1.2.1.1.1":
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			part, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": []string{"application/dicom"}})
			if err != nil {
				t.Fatalf("create part: %v", err)
			}
			if _, err := part.Write(payload); err != nil {
				t.Fatalf("write part: %v", err)
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("close writer: %v", err)
			}
			w.Header().Set("Content-Type",
				fmt.Sprintf(`multipart/related; type="application/dicom"; boundary=%s`, writer.Boundary()))
			_, _ = w.Write(body.Bytes())
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListInstances(ctx, "1.2.1.1"); err != nil {
		t.Fatalf("ListInstances returned error: %v", err)
	}
	data, err := client.FetchInstanceBytes(ctx, "1.2.1.1.1")
	if err != nil {
		t.Fatalf("FetchInstanceBytes returned error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: got %q want %q", data, payload)
	}
}

func TestFetchInstanceBytesResolvesUnlistedInstance(t *testing.T) {
	payload := []byte("bare dicom body")
	var sawQIDO bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instances":
			sawQIDO = true
			if got := r.URL.Query().Get("SOPInstanceUID"); got != "1.2.1.1.7" {
				t.Fatalf("unexpected SOP filter %q", got)
			}
			w.Header().Set("Content-Type", "application/dicom+json")
			_, _ = w.Write([]byte(`[
                {"00080018":{"vr":"UI","Value":["1.2.1.1.7"]},
                 "0020000D":{"vr":"UI","Value":["1.2.1"]},
                 "0020000E":{"vr":"UI","Value":["1.2.1.1"]}}
            ]`))
		case "/studies/1.2.1/series/1.2.1.1/instances/1.2.1.1.7":
			// Single-part response without the multipart wrapping.
			w.Header().Set("Content-Type", "application/dicom")
			_, _ = w.Write(payload)
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	data, err := client.FetchInstanceBytes(context.Background(), "1.2.1.1.7")
	if err != nil {
		t.Fatalf("FetchInstanceBytes returned error: %v", err)
	}
	if !sawQIDO {
		t.Fatal("expected a QIDO lookup for the unlisted instance")
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch: got %q want %q", data, payload)
	}
}

func TestFetchInstanceBytesUnknownInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client, err := dicomweb.New(server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchInstanceBytes(context.Background(), "9.9.9"); !errors.Is(err, archive.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}
