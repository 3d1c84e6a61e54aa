package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/container/v1"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// ClusterCollector inventories GKE clusters. Only control-plane metadata is
// read; the inventory never connects to the clusters themselves.
type ClusterCollector struct {
	session *Session
	logger  *slog.Logger
}

// NewClusterCollector returns the container-clusters collector for the
// session.
func NewClusterCollector(session *Session) *ClusterCollector {
	return &ClusterCollector{session: session, logger: session.logger}
}

func (c *ClusterCollector) Family() inventory.ResourceFamily {
	return inventory.FamilyContainerClusters
}

// Collect lists every cluster across all locations of the project and maps
// it to a ClusterRecord.
func (c *ClusterCollector) Collect(ctx context.Context, project string) ([]inventory.Record, []inventory.CollectionError) {
	client := c.session.Client(project)
	clusters, err := client.Clusters(ctx)
	if err != nil {
		return nil, []inventory.CollectionError{{
			Project:  project,
			Family:   c.Family(),
			Message:  fmt.Sprintf("listing clusters: %v", err),
			Terminal: true,
		}}
	}

	var records []inventory.Record
	for _, cluster := range clusters {
		records = append(records, mapCluster(project, cluster))
	}
	return records, nil
}

func mapCluster(project string, cluster *container.Cluster) inventory.ClusterRecord {
	var nodeCount int64
	for _, pool := range cluster.NodePools {
		nodeCount += pool.InitialNodeCount
	}
	return inventory.ClusterRecord{
		ProjectID:         project,
		ClusterName:       inventory.StringPtr(cluster.Name),
		Location:          inventory.StringPtr(cluster.Location),
		Status:            inventory.StringPtr(cluster.Status),
		KubernetesVersion: inventory.StringPtr(cluster.CurrentMasterVersion),
		NodeCount:         inventory.Int64Ptr(nodeCount),
		NodePools:         inventory.Int64Ptr(int64(len(cluster.NodePools))),
		Network:           inventory.StringPtr(cluster.Network),
		Subnetwork:        inventory.StringPtr(cluster.Subnetwork),
		CreationTime:      inventory.StringPtr(cluster.CreateTime),
	}
}
