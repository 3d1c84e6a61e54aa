package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// jsonDocument is the on-disk shape of a full report export.
type jsonDocument struct {
	RunID      string                      `json:"run_id"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Records    map[string][]map[string]any `json:"records"`
	APIStatus  []jsonAPIStatus             `json:"api_status"`
	Errors     []jsonError                 `json:"errors"`
}

type jsonAPIStatus struct {
	ProjectID string `json:"project_id"`
	APIID     string `json:"api_id"`
	APIName   string `json:"api_name"`
	Status    string `json:"status"`
}

type jsonError struct {
	ProjectID string `json:"project_id"`
	Family    string `json:"family"`
	Message   string `json:"message"`
	Terminal  bool   `json:"terminal"`
}

// JSONWriter writes a whole report, including the permission mapping and the
// error list, to a single timestamped JSON file.
type JSONWriter struct {
	Dir string

	now func() time.Time
}

// NewJSONWriter returns a writer targeting dir.
func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{Dir: dir, now: time.Now}
}

// WriteReport serializes the report and returns the path it wrote.
func (w *JSONWriter) WriteReport(report *inventory.Report) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("export: creating output dir: %w", err)
	}

	doc := jsonDocument{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Records:    make(map[string][]map[string]any),
		APIStatus:  permissionRows(report),
		Errors:     errorRows(report),
	}
	for _, family := range inventory.AllFamilies {
		records := report.FamilyRecords(family)
		if len(records) == 0 {
			continue
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			cols, vals := Columns(family), Values(rec)
			row := make(map[string]any, len(cols))
			for i, col := range cols {
				row[col] = vals[i]
			}
			rows = append(rows, row)
		}
		doc.Records[string(family)] = rows
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("inventory_%s.json", w.now().Format("20060102_150405")))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: writing %s: %w", path, err)
	}
	return path, nil
}

// permissionRows flattens the permission mapping into a stable row order.
func permissionRows(report *inventory.Report) []jsonAPIStatus {
	rows := make([]jsonAPIStatus, 0, len(report.Permissions))
	for key, status := range report.Permissions {
		rows = append(rows, jsonAPIStatus{
			ProjectID: key.Project,
			APIID:     string(key.Capability),
			APIName:   key.Capability.DisplayName(),
			Status:    string(status),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProjectID != rows[j].ProjectID {
			return rows[i].ProjectID < rows[j].ProjectID
		}
		return rows[i].APIID < rows[j].APIID
	})
	return rows
}

func errorRows(report *inventory.Report) []jsonError {
	rows := make([]jsonError, 0, len(report.Errors))
	for _, e := range report.Errors {
		rows = append(rows, jsonError{
			ProjectID: e.Project,
			Family:    string(e.Family),
			Message:   e.Message,
			Terminal:  e.Terminal,
		})
	}
	return rows
}
