// Package export writes inventory reports to CSV and JSON files, one output
// unit per resource family. Column names, order, and presence are a
// compatibility contract; nil fields become empty cells, never placeholder
// values.
package export

import (
	"time"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

var vmColumns = []string{
	"project_id", "vm_id", "name", "zone", "status", "machine_type",
	"cpu_count", "memory_mb", "os", "creation_timestamp", "network",
	"internal_ip", "external_ip",
}

var databaseColumns = []string{
	"project_id", "instance_name", "database_version", "region", "tier",
	"storage_size_gb", "storage_type", "availability_type", "state",
	"creation_time", "public_ip", "private_ip",
}

var datasetColumns = []string{
	"project_id", "dataset_id", "location", "creation_time",
	"last_modified_time", "table_count", "total_size_gb",
}

var clusterColumns = []string{
	"project_id", "cluster_name", "location", "status", "kubernetes_version",
	"node_count", "node_pools", "network", "subnetwork", "creation_time",
}

// Columns returns the fixed column set for a family.
func Columns(f inventory.ResourceFamily) []string {
	switch f {
	case inventory.FamilyComputeInstances:
		return vmColumns
	case inventory.FamilyManagedDatabases:
		return databaseColumns
	case inventory.FamilyAnalyticalDatasets:
		return datasetColumns
	case inventory.FamilyContainerClusters:
		return clusterColumns
	default:
		return nil
	}
}

// Values returns a record's cell values aligned with Columns. Nullable fields
// surface as nil entries.
func Values(rec inventory.Record) []any {
	switch r := rec.(type) {
	case inventory.VMRecord:
		return []any{
			r.ProjectID, strOrNil(r.VMID), strOrNil(r.Name), strOrNil(r.Zone),
			strOrNil(r.Status), strOrNil(r.MachineType), intOrNil(r.CPUCount),
			intOrNil(r.MemoryMB), strOrNil(r.OS), strOrNil(r.CreationTimestamp),
			strOrNil(r.Network), strOrNil(r.InternalIP), strOrNil(r.ExternalIP),
		}
	case inventory.DatabaseRecord:
		return []any{
			r.ProjectID, strOrNil(r.InstanceName), strOrNil(r.DatabaseVersion),
			strOrNil(r.Region), strOrNil(r.Tier), intOrNil(r.StorageSizeGB),
			strOrNil(r.StorageType), strOrNil(r.AvailabilityType),
			strOrNil(r.State), strOrNil(r.CreationTime), strOrNil(r.PublicIP),
			strOrNil(r.PrivateIP),
		}
	case inventory.DatasetRecord:
		return []any{
			r.ProjectID, strOrNil(r.DatasetID), strOrNil(r.Location),
			timeOrNil(r.CreationTime), timeOrNil(r.LastModifiedTime),
			intOrNil(r.TableCount), floatOrNil(r.TotalSizeGB),
		}
	case inventory.ClusterRecord:
		return []any{
			r.ProjectID, strOrNil(r.ClusterName), strOrNil(r.Location),
			strOrNil(r.Status), strOrNil(r.KubernetesVersion),
			intOrNil(r.NodeCount), intOrNil(r.NodePools), strOrNil(r.Network),
			strOrNil(r.Subnetwork), strOrNil(r.CreationTime),
		}
	default:
		return nil
	}
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func timeOrNil(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC().Format(time.RFC3339)
}
