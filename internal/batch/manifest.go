package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report is the JSON summary of a batch run.
type Report struct {
	Started  time.Time `json:"started"`
	Elapsed  float64   `json:"elapsed_seconds"`
	Success  int       `json:"success"`
	Failed   int       `json:"failed"`
	Projects []Result  `json:"projects"`
}

// NewReport summarizes results of a run that began at started.
func NewReport(started time.Time, results []Result) Report {
	success, failed := Summary(results)
	return Report{
		Started:  started,
		Elapsed:  time.Since(started).Seconds(),
		Success:  success,
		Failed:   failed,
		Projects: results,
	}
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write report: %w", err)
	}
	return nil
}
