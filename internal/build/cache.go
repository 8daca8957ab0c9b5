package build

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Build temp layout:
//
//	buildTemp/
//	  <target>/            # cmake build tree (buildDir)
//	    .extbuild.json     # record of the last successful build
//	    CMakeCache.txt
//	    ...
const recordFile = ".extbuild.json"

// Record describes the last successful build of a target.
type Record struct {
	Target        string    `json:"target"`
	Kind          string    `json:"kind"`
	Mode          string    `json:"mode"`
	SourceDir     string    `json:"source_dir"`
	OutputDir     string    `json:"output_dir"`
	ConfigureArgs []string  `json:"configure_args"`
	Artifacts     []string  `json:"artifacts"`
	ToolVersion   string    `json:"tool_version"`
	BuildTime     time.Time `json:"build_time"`
}

// LoadRecord reads the record kept in buildDir.
func LoadRecord(buildDir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, recordFile))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveRecord writes rec into buildDir.
func SaveRecord(buildDir string, rec *Record) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(buildDir, recordFile), data, 0o644)
}

// Records returns the records of every target built under buildTemp,
// sorted by target name. A missing buildTemp yields no records.
func Records(buildTemp string) ([]*Record, error) {
	entries, err := os.ReadDir(buildTemp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var recs []*Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := LoadRecord(filepath.Join(buildTemp, e.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Target < recs[j].Target })
	return recs, nil
}
