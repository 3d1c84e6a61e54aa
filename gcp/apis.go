package gcp

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/bigquery"
	"golang.org/x/time/rate"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/api/sqladmin/v1beta4"
)

// The interfaces below cover exactly the provider operations the collectors
// and the permission checker use, so tests can substitute fakes without any
// real GCP calls. Probe issues the cheapest bounded call the service offers.

// ComputeAPI defines the Compute Engine operations used by the inventory.
type ComputeAPI interface {
	ListInstances(ctx context.Context, project string) ([]*compute.Instance, error)
	GetMachineType(ctx context.Context, project, zone, name string) (*compute.MachineType, error)
	Probe(ctx context.Context, project string) error
}

// SQLAdminAPI defines the Cloud SQL Admin operations used by the inventory.
type SQLAdminAPI interface {
	ListInstances(ctx context.Context, project string) ([]*sqladmin.DatabaseInstance, error)
	Probe(ctx context.Context, project string) error
}

// ContainerAPI defines the GKE operations used by the inventory.
type ContainerAPI interface {
	ListClusters(ctx context.Context, project string) ([]*container.Cluster, error)
	Probe(ctx context.Context, project string) error
}

// DatasetAPI defines the BigQuery metadata operations used by the inventory.
type DatasetAPI interface {
	ListDatasets(ctx context.Context, project string) ([]string, error)
	DatasetMetadata(ctx context.Context, project, dataset string) (*bigquery.DatasetMetadata, error)
	ListTables(ctx context.Context, project, dataset string) ([]string, error)
	TableMetadata(ctx context.Context, project, dataset, table string) (*bigquery.TableMetadata, error)
	Probe(ctx context.Context, project string) error
}

// ProjectsAPI defines the Cloud Resource Manager operations used by the
// inventory.
type ProjectsAPI interface {
	ListProjects(ctx context.Context) ([]string, error)
}

// computeService implements ComputeAPI over the generated Compute client.
type computeService struct {
	svc     *compute.Service
	limiter *rate.Limiter
}

func (c *computeService) ListInstances(ctx context.Context, project string) ([]*compute.Instance, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var instances []*compute.Instance
	call := c.svc.Instances.AggregatedList(project)
	err := call.Pages(ctx, func(page *compute.InstanceAggregatedList) error {
		// The aggregated list is keyed by zone; sort the keys so the output
		// order is stable across runs.
		zones := make([]string, 0, len(page.Items))
		for zone := range page.Items {
			zones = append(zones, zone)
		}
		sort.Strings(zones)
		for _, zone := range zones {
			instances = append(instances, page.Items[zone].Instances...)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTransport("compute.instances.list", err)
	}
	return instances, nil
}

func (c *computeService) GetMachineType(ctx context.Context, project, zone, name string) (*compute.MachineType, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	mt, err := c.svc.MachineTypes.Get(project, zone, name).Context(ctx).Do()
	if err != nil {
		return nil, wrapTransport("compute.machineTypes.get", err)
	}
	return mt, nil
}

func (c *computeService) Probe(ctx context.Context, project string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.svc.Instances.AggregatedList(project).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return wrapTransport("compute.instances.list", err)
	}
	return nil
}

// sqlAdminService implements SQLAdminAPI over the generated SQL Admin client.
type sqlAdminService struct {
	svc     *sqladmin.Service
	limiter *rate.Limiter
}

func (s *sqlAdminService) ListInstances(ctx context.Context, project string) ([]*sqladmin.DatabaseInstance, error) {
	var out []*sqladmin.DatabaseInstance
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := s.svc.Instances.List(project).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapTransport("sqladmin.instances.list", err)
		}
		out = append(out, resp.Items...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (s *sqlAdminService) Probe(ctx context.Context, project string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.svc.Instances.List(project).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return wrapTransport("sqladmin.instances.list", err)
	}
	return nil
}

// containerService implements ContainerAPI over the generated GKE client.
type containerService struct {
	svc     *container.Service
	limiter *rate.Limiter
}

func (c *containerService) ListClusters(ctx context.Context, project string) ([]*container.Cluster, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	parent := "projects/" + project + "/locations/-"
	resp, err := c.svc.Projects.Locations.Clusters.List(parent).Context(ctx).Do()
	if err != nil {
		return nil, wrapTransport("container.clusters.list", err)
	}
	return resp.Clusters, nil
}

func (c *containerService) Probe(ctx context.Context, project string) error {
	_, err := c.ListClusters(ctx, project)
	return err
}

// bigqueryService implements DatasetAPI over the BigQuery client library.
// BigQuery clients are project-scoped, so one is created lazily per project
// and reused for the life of the session.
type bigqueryService struct {
	opts    []option.ClientOption
	limiter *rate.Limiter

	mu      sync.Mutex
	clients map[string]*bigquery.Client
}

func (b *bigqueryService) client(ctx context.Context, project string) (*bigquery.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.clients[project]; ok {
		return c, nil
	}
	c, err := bigquery.NewClient(ctx, project, b.opts...)
	if err != nil {
		return nil, wrapTransport("bigquery.client", err)
	}
	if b.clients == nil {
		b.clients = make(map[string]*bigquery.Client)
	}
	b.clients[project] = c
	return c, nil
}

func (b *bigqueryService) ListDatasets(ctx context.Context, project string) ([]string, error) {
	c, err := b.client(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var ids []string
	it := c.Datasets(ctx)
	for {
		ds, err := it.Next()
		if err == iterator.Done {
			return ids, nil
		}
		if err != nil {
			return nil, wrapTransport("bigquery.datasets.list", err)
		}
		ids = append(ids, ds.DatasetID)
	}
}

func (b *bigqueryService) DatasetMetadata(ctx context.Context, project, dataset string) (*bigquery.DatasetMetadata, error) {
	c, err := b.client(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	md, err := c.Dataset(dataset).Metadata(ctx)
	if err != nil {
		return nil, wrapTransport("bigquery.datasets.get", err)
	}
	return md, nil
}

func (b *bigqueryService) ListTables(ctx context.Context, project, dataset string) ([]string, error) {
	c, err := b.client(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var ids []string
	it := c.Dataset(dataset).Tables(ctx)
	for {
		t, err := it.Next()
		if err == iterator.Done {
			return ids, nil
		}
		if err != nil {
			return nil, wrapTransport("bigquery.tables.list", err)
		}
		ids = append(ids, t.TableID)
	}
}

func (b *bigqueryService) TableMetadata(ctx context.Context, project, dataset, table string) (*bigquery.TableMetadata, error) {
	c, err := b.client(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	md, err := c.Dataset(dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, wrapTransport("bigquery.tables.get", err)
	}
	return md, nil
}

func (b *bigqueryService) Probe(ctx context.Context, project string) error {
	c, err := b.client(ctx, project)
	if err != nil {
		return err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	it := c.Datasets(ctx)
	it.PageInfo().MaxSize = 1
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return wrapTransport("bigquery.datasets.list", err)
	}
	return nil
}

// resourceManagerService implements ProjectsAPI over the generated Cloud
// Resource Manager client.
type resourceManagerService struct {
	svc     *cloudresourcemanager.Service
	limiter *rate.Limiter
}

func (r *resourceManagerService) ListProjects(ctx context.Context) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var ids []string
	err := r.svc.Projects.List().Pages(ctx, func(page *cloudresourcemanager.ListProjectsResponse) error {
		for _, p := range page.Projects {
			if p.LifecycleState != "" && p.LifecycleState != "ACTIVE" {
				continue
			}
			ids = append(ids, p.ProjectId)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTransport("cloudresourcemanager.projects.list", err)
	}
	return ids, nil
}
