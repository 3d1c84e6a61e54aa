package inventory

import "time"

// Record is one normalized inventory row. The variant set is sealed: exactly
// VMRecord, DatabaseRecord, DatasetRecord, and ClusterRecord implement it.
// Fields that the provider did not report are nil pointers, never zero values.
// Records are immutable once a collector has emitted them.
type Record interface {
	// Family returns the resource family the record belongs to.
	Family() ResourceFamily
	// Project returns the project id the record was collected from.
	Project() string

	sealedRecord()
}

// VMRecord describes one Compute Engine instance.
type VMRecord struct {
	ProjectID         string
	VMID              *string
	Name              *string
	Zone              *string
	Status            *string
	MachineType       *string
	CPUCount          *int64
	MemoryMB          *int64
	OS                *string
	CreationTimestamp *string
	Network           *string
	InternalIP        *string
	ExternalIP        *string
}

func (r VMRecord) Family() ResourceFamily { return FamilyComputeInstances }
func (r VMRecord) Project() string        { return r.ProjectID }
func (VMRecord) sealedRecord()            {}

// DatabaseRecord describes one Cloud SQL instance.
type DatabaseRecord struct {
	ProjectID        string
	InstanceName     *string
	DatabaseVersion  *string
	Region           *string
	Tier             *string
	StorageSizeGB    *int64
	StorageType      *string
	AvailabilityType *string
	State            *string
	CreationTime     *string
	PublicIP         *string
	PrivateIP        *string
}

func (r DatabaseRecord) Family() ResourceFamily { return FamilyManagedDatabases }
func (r DatabaseRecord) Project() string        { return r.ProjectID }
func (DatabaseRecord) sealedRecord()            {}

// DatasetRecord describes one BigQuery dataset, including the aggregate table
// count and storage size derived from per-table metadata.
type DatasetRecord struct {
	ProjectID        string
	DatasetID        *string
	Location         *string
	CreationTime     *time.Time
	LastModifiedTime *time.Time
	TableCount       *int64
	TotalSizeGB      *float64
}

func (r DatasetRecord) Family() ResourceFamily { return FamilyAnalyticalDatasets }
func (r DatasetRecord) Project() string        { return r.ProjectID }
func (DatasetRecord) sealedRecord()            {}

// ClusterRecord describes one GKE cluster.
type ClusterRecord struct {
	ProjectID         string
	ClusterName       *string
	Location          *string
	Status            *string
	KubernetesVersion *string
	NodeCount         *int64
	NodePools         *int64
	Network           *string
	Subnetwork        *string
	CreationTime      *string
}

func (r ClusterRecord) Family() ResourceFamily { return FamilyContainerClusters }
func (r ClusterRecord) Project() string        { return r.ProjectID }
func (ClusterRecord) sealedRecord()            {}

// Report is the aggregate result of one inventory run. It is built once by
// the orchestrator and never mutated afterwards; the caller owns it.
type Report struct {
	// RunID uniquely identifies this run in logs and exports.
	RunID string
	// StartedAt and FinishedAt bracket the whole run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Records holds the collected rows grouped by family. Within a family the
	// order is project enumeration order, then provider-returned order.
	Records map[ResourceFamily][]Record

	// Errors lists every collection failure in deterministic unit order.
	Errors []CollectionError

	// Permissions maps each probed (project, capability) pair to its
	// pre-flight classification. Only requested capabilities appear.
	Permissions map[PermissionKey]PermissionStatus
}

// FamilyRecords returns the rows collected for one family.
func (r *Report) FamilyRecords(f ResourceFamily) []Record {
	return r.Records[f]
}

// TerminalErrors returns only the terminal entries of the error list.
func (r *Report) TerminalErrors() []CollectionError {
	var out []CollectionError
	for _, e := range r.Errors {
		if e.Terminal {
			out = append(out, e)
		}
	}
	return out
}

// Helpers for building nullable record fields.

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// TimePtr returns a pointer to t, or nil when t is the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
