package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// DatasetCollector inventories BigQuery datasets. Table count and total
// storage size come from per-table metadata lookups; when any of those fail
// the dataset record is still emitted with the dependent fields nil.
type DatasetCollector struct {
	session *Session
	logger  *slog.Logger
}

// NewDatasetCollector returns the analytical-datasets collector for the
// session.
func NewDatasetCollector(session *Session) *DatasetCollector {
	return &DatasetCollector{session: session, logger: session.logger}
}

func (c *DatasetCollector) Family() inventory.ResourceFamily {
	return inventory.FamilyAnalyticalDatasets
}

// Collect lists every dataset in the project, then enriches each with its
// metadata and the aggregate size of its tables.
func (c *DatasetCollector) Collect(ctx context.Context, project string) ([]inventory.Record, []inventory.CollectionError) {
	client := c.session.Client(project)
	datasets, err := client.Datasets(ctx)
	if err != nil {
		return nil, []inventory.CollectionError{{
			Project:  project,
			Family:   c.Family(),
			Message:  fmt.Sprintf("listing datasets: %v", err),
			Terminal: true,
		}}
	}

	var records []inventory.Record
	var errs []inventory.CollectionError
	for _, id := range datasets {
		rec := inventory.DatasetRecord{
			ProjectID: project,
			DatasetID: inventory.StringPtr(id),
		}

		md, err := client.DatasetMetadata(ctx, id)
		if err != nil {
			errs = append(errs, inventory.CollectionError{
				Project: project,
				Family:  c.Family(),
				Message: fmt.Sprintf("describing dataset %s: %v", id, err),
			})
		} else {
			rec.Location = inventory.StringPtr(md.Location)
			rec.CreationTime = inventory.TimePtr(md.CreationTime)
			rec.LastModifiedTime = inventory.TimePtr(md.LastModifiedTime)
		}

		tables, err := client.Tables(ctx, id)
		if err != nil {
			errs = append(errs, inventory.CollectionError{
				Project: project,
				Family:  c.Family(),
				Message: fmt.Sprintf("listing tables of dataset %s: %v", id, err),
			})
			records = append(records, rec)
			continue
		}
		rec.TableCount = inventory.Int64Ptr(int64(len(tables)))

		var totalBytes int64
		sizeKnown := true
		for _, table := range tables {
			tmd, err := client.TableMetadata(ctx, id, table)
			if err != nil {
				errs = append(errs, inventory.CollectionError{
					Project: project,
					Family:  c.Family(),
					Message: fmt.Sprintf("describing table %s.%s: %v", id, table, err),
				})
				sizeKnown = false
				continue
			}
			totalBytes += tmd.NumBytes
		}
		if sizeKnown {
			rec.TotalSizeGB = inventory.Float64Ptr(roundGiB(totalBytes))
		}

		records = append(records, rec)
	}
	return records, errs
}

// roundGiB converts bytes to GiB rounded to two decimal places.
func roundGiB(bytes int64) float64 {
	gib := float64(bytes) / float64(1<<30)
	return math.Round(gib*100) / 100
}
