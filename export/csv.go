package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// filePrefixes names the per-family output files.
var filePrefixes = map[inventory.ResourceFamily]string{
	inventory.FamilyComputeInstances:   "vm_inventory",
	inventory.FamilyManagedDatabases:   "sql_inventory",
	inventory.FamilyAnalyticalDatasets: "bigquery_inventory",
	inventory.FamilyContainerClusters:  "gke_inventory",
}

// CSVWriter writes one timestamped CSV file per family that produced records.
type CSVWriter struct {
	// Dir is created if it does not exist.
	Dir string

	// now is overridable in tests to pin filenames.
	now func() time.Time
}

// NewCSVWriter returns a writer targeting dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir, now: time.Now}
}

// WriteReport writes the report's records family by family and returns the
// paths of the files it created. Families without records produce no file.
func (w *CSVWriter) WriteReport(report *inventory.Report) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: creating output dir: %w", err)
	}
	stamp := w.now().Format("20060102_150405")

	var paths []string
	for _, family := range inventory.AllFamilies {
		records := report.FamilyRecords(family)
		if len(records) == 0 {
			continue
		}
		path := filepath.Join(w.Dir, fmt.Sprintf("%s_%s.csv", filePrefixes[family], stamp))
		if err := writeFamilyCSV(path, family, records); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFamilyCSV(path string, family inventory.ResourceFamily, records []inventory.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(Columns(family)); err != nil {
		return fmt.Errorf("export: writing header of %s: %w", path, err)
	}
	for _, rec := range records {
		row := make([]string, 0, len(Columns(family)))
		for _, v := range Values(rec) {
			row = append(row, cell(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: writing row of %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flushing %s: %w", path, err)
	}
	return nil
}

// cell renders one value; nil becomes the empty cell.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	default:
		return fmt.Sprint(t)
	}
}
