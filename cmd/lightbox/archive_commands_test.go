package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lightbox/internal/testsupport"
)

func TestStudiesSeriesInstances(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"studies"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("studies: %v", err)
	}
	requireContains(t, out, "Archive is empty")

	testsupport.SeedSeries(t, env.store, "1.2.840.10", "1.2.840.10.1", 3)

	out, _, err = runCLI(t, []string{"studies"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("studies: %v", err)
	}
	requireContains(t, out, "1.2.840.10")
	requireContains(t, out, "Doe, Jane")

	out, _, err = runCLI(t, []string{"series", "1.2.840.10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	requireContains(t, out, "1.2.840.10.1")
	requireContains(t, out, "CT")
	requireContains(t, out, "3")

	out, _, err = runCLI(t, []string{"instances", "1.2.840.10.1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("instances: %v", err)
	}
	requireContains(t, out, "1.2.840.10.1.1")
	requireContains(t, out, "1.2.840.10.1.3")

	_, _, err = runCLI(t, []string{"series", "absent"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "study not found") {
		t.Fatalf("expected study not found, got %v", err)
	}

	_, _, err = runCLI(t, []string{"instances", "absent"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "series not found") {
		t.Fatalf("expected series not found, got %v", err)
	}
}

func TestStudiesJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.SeedSeries(t, env.store, "1.2.840.11", "1.2.840.11.1", 1)

	out, _, err := runCLI(t, []string{"studies", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("studies --json: %v", err)
	}

	var resp struct {
		Studies []map[string]any `json:"studies"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(resp.Studies) != 1 {
		t.Fatalf("expected 1 study, got %d", len(resp.Studies))
	}
	if resp.Studies[0]["studyUid"] != "1.2.840.11" {
		t.Fatalf("expected studyUid 1.2.840.11, got %v", resp.Studies[0]["studyUid"])
	}
	if resp.Studies[0]["patientName"] != "Doe, Jane" {
		t.Fatalf("expected patient Doe, Jane, got %v", resp.Studies[0]["patientName"])
	}
}

func TestImportDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	dir := t.TempDir()
	for i := 1; i <= 2; i++ {
		data := testsupport.EncodeDICOM(t, testsupport.DICOMFile{
			StudyUID:       "1.2.840.20",
			SeriesUID:      "1.2.840.20.1",
			SOPUID:         fmt.Sprintf("1.2.840.20.1.%d", i),
			InstanceNumber: i,
		})
		path := filepath.Join(dir, fmt.Sprintf("img%d.dcm", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write dicom file: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"import", dir}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Scanned 2 files: 2 imported, 0 skipped, 0 failed")

	// Re-importing the same directory skips the archived instances.
	out, _, err = runCLI(t, []string{"import", dir}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	requireContains(t, out, "Scanned 2 files: 0 imported, 2 skipped, 0 failed")

	out, _, err = runCLI(t, []string{"import", t.TempDir()}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("empty import: %v", err)
	}
	requireContains(t, out, "Scanned 0 files: 0 imported, 0 skipped, 0 failed")
}
