package gcp

import (
	"context"
	"io"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/sqladmin/v1beta4"
)

// The fakes below implement the provider API interfaces without network
// calls. Each returns canned data per project and records probe traffic.

type fakeCompute struct {
	instances map[string][]*compute.Instance
	shapes    map[string]*compute.MachineType // keyed zone/name
	listErr   error
	shapeErr  map[string]error
	probeErr  error

	shapeCalls int
}

func (f *fakeCompute) ListInstances(_ context.Context, project string) ([]*compute.Instance, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instances[project], nil
}

func (f *fakeCompute) GetMachineType(_ context.Context, _, zone, name string) (*compute.MachineType, error) {
	f.shapeCalls++
	key := zone + "/" + name
	if err := f.shapeErr[key]; err != nil {
		return nil, err
	}
	if mt, ok := f.shapes[key]; ok {
		return mt, nil
	}
	return nil, errNotFound
}

func (f *fakeCompute) Probe(context.Context, string) error { return f.probeErr }

type fakeSQL struct {
	instances map[string][]*sqladmin.DatabaseInstance
	listErr   error
	probeErr  error
}

func (f *fakeSQL) ListInstances(_ context.Context, project string) ([]*sqladmin.DatabaseInstance, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.instances[project], nil
}

func (f *fakeSQL) Probe(context.Context, string) error { return f.probeErr }

type fakeContainer struct {
	clusters map[string][]*container.Cluster
	listErr  error
	probeErr error
}

func (f *fakeContainer) ListClusters(_ context.Context, project string) ([]*container.Cluster, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.clusters[project], nil
}

func (f *fakeContainer) Probe(context.Context, string) error { return f.probeErr }

type fakeDatasets struct {
	datasets  map[string][]string                   // project -> dataset ids
	metadata  map[string]*bigquery.DatasetMetadata  // dataset id -> metadata
	tables    map[string][]string                   // dataset id -> table ids
	tableMeta map[string]*bigquery.TableMetadata    // dataset/table -> metadata
	listErr   error
	metaErr   map[string]error // dataset id -> error
	tablesErr map[string]error // dataset id -> error
	tmetaErr  map[string]error // dataset/table -> error
	probeErr  error
}

func (f *fakeDatasets) ListDatasets(_ context.Context, project string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.datasets[project], nil
}

func (f *fakeDatasets) DatasetMetadata(_ context.Context, _, dataset string) (*bigquery.DatasetMetadata, error) {
	if err := f.metaErr[dataset]; err != nil {
		return nil, err
	}
	return f.metadata[dataset], nil
}

func (f *fakeDatasets) ListTables(_ context.Context, _, dataset string) ([]string, error) {
	if err := f.tablesErr[dataset]; err != nil {
		return nil, err
	}
	return f.tables[dataset], nil
}

func (f *fakeDatasets) TableMetadata(_ context.Context, _, dataset, table string) (*bigquery.TableMetadata, error) {
	key := dataset + "/" + table
	if err := f.tmetaErr[key]; err != nil {
		return nil, err
	}
	return f.tableMeta[key], nil
}

func (f *fakeDatasets) Probe(context.Context, string) error { return f.probeErr }

type fakeProjects struct {
	ids     []string
	listErr error
}

func (f *fakeProjects) ListProjects(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "not found" }

// newTestSession wires a session from fakes, substituting empty fakes for
// nil arguments.
func newTestSession(c *fakeCompute, s *fakeSQL, k *fakeContainer, d *fakeDatasets, p *fakeProjects) *Session {
	if c == nil {
		c = &fakeCompute{}
	}
	if s == nil {
		s = &fakeSQL{}
	}
	if k == nil {
		k = &fakeContainer{}
	}
	if d == nil {
		d = &fakeDatasets{}
	}
	if p == nil {
		p = &fakeProjects{}
	}
	return NewSessionWithAPIs(c, s, k, d, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
