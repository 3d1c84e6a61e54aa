// Package gcp implements the provider side of the inventory: an
// authenticated session over the Google Cloud APIs, one collector per
// resource family, the capability pre-flight checker, and the project
// enumerator. All calls are read-only and single-attempt; retry policy, if
// any, belongs to the caller.
package gcp

import "github.com/GoCodeAlone/gcpinv/inventory"

// AllCollectors returns one collector per supported resource family, in
// family declaration order.
func AllCollectors(session *Session) []inventory.Collector {
	return []inventory.Collector{
		NewVMCollector(session),
		NewSQLCollector(session),
		NewDatasetCollector(session),
		NewClusterCollector(session),
	}
}
