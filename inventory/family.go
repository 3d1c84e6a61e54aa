package inventory

// ResourceFamily identifies one category of inventoried resource. The set is
// closed: adding a family means adding a record variant, a collector, and a
// fixed column schema.
type ResourceFamily string

const (
	FamilyComputeInstances   ResourceFamily = "compute-instances"
	FamilyManagedDatabases   ResourceFamily = "managed-databases"
	FamilyAnalyticalDatasets ResourceFamily = "analytical-datasets"
	FamilyContainerClusters  ResourceFamily = "container-clusters"
)

// AllFamilies lists every family in declaration order. This order is part of
// the output contract: records are merged family by family in this sequence.
var AllFamilies = []ResourceFamily{
	FamilyComputeInstances,
	FamilyManagedDatabases,
	FamilyAnalyticalDatasets,
	FamilyContainerClusters,
}

// ParseFamily resolves a family name to its typed value.
func ParseFamily(name string) (ResourceFamily, bool) {
	for _, f := range AllFamilies {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Capability names a GCP API surface that must be reachable before a family
// can be collected. Values are GCP service identifiers.
type Capability string

const (
	CapabilityCompute   Capability = "compute.googleapis.com"
	CapabilitySQLAdmin  Capability = "sqladmin.googleapis.com"
	CapabilityBigQuery  Capability = "bigquery.googleapis.com"
	CapabilityContainer Capability = "container.googleapis.com"
)

// familyCapabilities maps each family to the capability it requires.
var familyCapabilities = map[ResourceFamily]Capability{
	FamilyComputeInstances:   CapabilityCompute,
	FamilyManagedDatabases:   CapabilitySQLAdmin,
	FamilyAnalyticalDatasets: CapabilityBigQuery,
	FamilyContainerClusters:  CapabilityContainer,
}

// RequiredCapability returns the capability a family's collector depends on.
func (f ResourceFamily) RequiredCapability() Capability {
	return familyCapabilities[f]
}

// DisplayName returns the human-readable API name for a capability.
func (c Capability) DisplayName() string {
	switch c {
	case CapabilityCompute:
		return "Compute Engine API"
	case CapabilitySQLAdmin:
		return "Cloud SQL Admin API"
	case CapabilityBigQuery:
		return "BigQuery API"
	case CapabilityContainer:
		return "Kubernetes Engine API"
	default:
		return string(c)
	}
}

// PermissionStatus classifies the pre-flight result for one
// (project, capability) pair.
type PermissionStatus string

const (
	PermissionOK              PermissionStatus = "OK"
	PermissionDisabled        PermissionStatus = "DISABLED"
	PermissionCredentialIssue PermissionStatus = "CREDENTIAL_ISSUE"
)

// PermissionKey identifies one entry in a report's permission mapping.
type PermissionKey struct {
	Project    string
	Capability Capability
}
