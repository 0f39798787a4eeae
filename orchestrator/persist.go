package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maastricht-university/datecoach-analytics/report"
)

type reportFile struct {
	SessionID string                   `json:"session_id"`
	StartedAt time.Time                `json:"started_at"`
	EndedAt   time.Time                `json:"ended_at"`
	Report    report.PerformanceReport `json:"report"`
}

func mkSessionDir(outputsRoot, id string) (string, string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	sid := "session_" + id
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes the bundle as history.json, segments.json, chemistry.json and
// report.json under <outputsRoot>/session_<id>/ and returns that directory.
func Persist(outputsRoot string, b Bundle) (string, error) {
	_, dir, err := mkSessionDir(outputsRoot, b.SessionID)
	if err != nil {
		return "", fmt.Errorf("persist: %w", err)
	}
	files := []struct {
		name string
		v    any
	}{
		{"history.json", b.History},
		{"segments.json", b.Segments},
		{"chemistry.json", b.Series},
		{"report.json", reportFile{SessionID: b.SessionID, StartedAt: b.StartedAt, EndedAt: b.EndedAt, Report: b.Report}},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return "", fmt.Errorf("persist %s: %w", f.name, err)
		}
	}
	return dir, nil
}
