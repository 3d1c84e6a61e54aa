package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/sqladmin/v1beta4"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// SQLCollector inventories Cloud SQL instances.
type SQLCollector struct {
	session *Session
	logger  *slog.Logger
}

// NewSQLCollector returns the managed-databases collector for the session.
func NewSQLCollector(session *Session) *SQLCollector {
	return &SQLCollector{session: session, logger: session.logger}
}

func (c *SQLCollector) Family() inventory.ResourceFamily {
	return inventory.FamilyManagedDatabases
}

// Collect lists every Cloud SQL instance in the project and maps it to a
// DatabaseRecord. The list response already carries everything the record
// needs, so there is no secondary enrichment step.
func (c *SQLCollector) Collect(ctx context.Context, project string) ([]inventory.Record, []inventory.CollectionError) {
	client := c.session.Client(project)
	instances, err := client.SQLInstances(ctx)
	if err != nil {
		return nil, []inventory.CollectionError{{
			Project:  project,
			Family:   c.Family(),
			Message:  fmt.Sprintf("listing SQL instances: %v", err),
			Terminal: true,
		}}
	}

	var records []inventory.Record
	for _, inst := range instances {
		records = append(records, mapSQLInstance(project, inst))
	}
	return records, nil
}

func mapSQLInstance(project string, inst *sqladmin.DatabaseInstance) inventory.DatabaseRecord {
	rec := inventory.DatabaseRecord{
		ProjectID:       project,
		InstanceName:    inventory.StringPtr(inst.Name),
		DatabaseVersion: inventory.StringPtr(inst.DatabaseVersion),
		Region:          inventory.StringPtr(inst.Region),
		State:           inventory.StringPtr(inst.State),
		CreationTime:    inventory.StringPtr(inst.CreateTime),
	}
	if inst.Settings != nil {
		rec.Tier = inventory.StringPtr(inst.Settings.Tier)
		if inst.Settings.DataDiskSizeGb != 0 {
			rec.StorageSizeGB = inventory.Int64Ptr(inst.Settings.DataDiskSizeGb)
		}
		rec.StorageType = inventory.StringPtr(inst.Settings.DataDiskType)
		rec.AvailabilityType = inventory.StringPtr(inst.Settings.AvailabilityType)
	}
	if len(inst.IpAddresses) > 0 {
		rec.PublicIP = inventory.StringPtr(inst.IpAddresses[0].IpAddress)
	}
	for _, ip := range inst.IpAddresses {
		if ip.Type == "PRIVATE" {
			rec.PrivateIP = inventory.StringPtr(ip.IpAddress)
			break
		}
	}
	return rec
}
