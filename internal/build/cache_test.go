package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadRecord(t *testing.T) {
	buildDir := filepath.Join(t.TempDir(), "pyflagser")

	now := time.Now().Truncate(time.Second)
	rec := &Record{
		Target:    "pyflagser",
		Mode:      "Release",
		OutputDir: "/tmp/output",
		Artifacts: []string{"/tmp/output/pyflagser.so"},
		BuildTime: now,
	}
	if err := SaveRecord(buildDir, rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	loaded, err := LoadRecord(buildDir)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.OutputDir != rec.OutputDir {
		t.Errorf("OutputDir mismatch: got %q, want %q", loaded.OutputDir, rec.OutputDir)
	}
	if !loaded.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", loaded.BuildTime, now)
	}
}

func TestLoadRecord_NotExist(t *testing.T) {
	if _, err := LoadRecord(t.TempDir()); err == nil {
		t.Fatal("expected error for missing record, got nil")
	}
}

func TestLoadRecord_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, recordFile), []byte("invalid json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := LoadRecord(dir); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestRecords_SkipsUnbuiltDirs(t *testing.T) {
	temp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(temp, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := SaveRecord(filepath.Join(temp, "built"), &Record{Target: "built"}); err != nil {
		t.Fatal(err)
	}

	recs, err := Records(temp)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Target != "built" {
		t.Errorf("got %+v, want only the built target", recs)
	}

	recs, err = Records(filepath.Join(temp, "missing"))
	if err != nil || recs != nil {
		t.Errorf("Records(missing) = %v, %v; want nil, nil", recs, err)
	}
}
