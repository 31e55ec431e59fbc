// Package report renders run artifacts: CSV tables, JSON summaries, and JSONL trade logs.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunWriter drops artifacts into one run directory.
type RunWriter struct {
	dir string
}

// NewRunWriter creates the run directory if needed.
func NewRunWriter(dir string) (*RunWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &RunWriter{dir: dir}, nil
}

// Dir returns the run directory path.
func (w *RunWriter) Dir() string { return w.dir }

// WriteCSV writes a header plus rows to name inside the run directory.
func (w *RunWriter) WriteCSV(name string, header []string, rows [][]string) error {
	file, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s rows: %w", name, err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON to name inside the run directory.
func (w *RunWriter) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// RedactConfig masks values whose keys look secret before a config dump.
func RedactConfig(cfg map[string]string) map[string]string {
	out := make(map[string]string, len(cfg))
	for k, v := range cfg {
		upper := strings.ToUpper(k)
		if v != "" && (strings.Contains(upper, "KEY") || strings.Contains(upper, "PRIVATE") || strings.Contains(upper, "TOKEN")) {
			out[k] = "***REDACTED***"
			continue
		}
		out[k] = v
	}
	return out
}
