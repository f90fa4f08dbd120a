package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// atomicWriteJSON writes v to path through a temp file and rename, so
// pollers never observe a half-written file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path) //#nosec G304 -- path is inside the report directory
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ReadIndex reads report.json from the report directory.
func ReadIndex(reportDir string) (*Index, error) {
	var index Index
	if err := readJSON(filepath.Join(reportDir, "report.json"), &index); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return &index, nil
}

// ReadTest reads one test detail file referenced by an index entry.
func ReadTest(reportDir string, entry TestEntry) (*TestDetail, error) {
	var detail TestDetail
	if err := readJSON(filepath.Join(reportDir, entry.DataFile), &detail); err != nil {
		return nil, fmt.Errorf("read test %s: %w", entry.ID, err)
	}
	return &detail, nil
}

// ReadReport reads the index and every test detail, in index order.
func ReadReport(reportDir string) (*Index, []TestDetail, error) {
	index, err := ReadIndex(reportDir)
	if err != nil {
		return nil, nil, err
	}
	details := make([]TestDetail, 0, len(index.Tests))
	for _, entry := range index.Tests {
		d, err := ReadTest(reportDir, entry)
		if err != nil {
			return nil, nil, err
		}
		details = append(details, *d)
	}
	return index, details, nil
}
