package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sqladmin/v1beta4"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// cloudPlatformScope is the OAuth scope every inventory call runs under.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// SessionConfig configures an authenticated provider session.
type SessionConfig struct {
	// CredentialsFile is a service account key file. Empty means Application
	// Default Credentials.
	CredentialsFile string
	// RatePerSecond caps outbound provider calls across the whole session.
	// Zero means DefaultRatePerSecond.
	RatePerSecond float64
	// Burst is the limiter burst size. Zero means DefaultBurst.
	Burst  int
	Logger *slog.Logger
}

// Session rate defaults. Provider quotas make unbounded call rates unsafe.
const (
	DefaultRatePerSecond = 20.0
	DefaultBurst         = 10
)

// Session is the authenticated handle to the provider. It owns one client
// per GCP service and a shared rate limiter; all inventory traffic is
// read-only and single-attempt.
type Session struct {
	compute    ComputeAPI
	sql        SQLAdminAPI
	containers ContainerAPI
	datasets   DatasetAPI
	projects   ProjectsAPI
	logger     *slog.Logger
}

// NewSession authenticates against GCP and builds the per-service clients.
// With no credentials file it uses Application Default Credentials.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(cloudPlatformScope))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("gcp: failed to load credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)

	computeSvc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: creating compute client: %w", err)
	}
	sqlSvc, err := sqladmin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: creating sqladmin client: %w", err)
	}
	containerSvc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: creating container client: %w", err)
	}
	crmSvc, err := cloudresourcemanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp: creating resource manager client: %w", err)
	}

	return &Session{
		compute:    &computeService{svc: computeSvc, limiter: limiter},
		sql:        &sqlAdminService{svc: sqlSvc, limiter: limiter},
		containers: &containerService{svc: containerSvc, limiter: limiter},
		datasets:   &bigqueryService{opts: opts, limiter: limiter},
		projects:   &resourceManagerService{svc: crmSvc, limiter: limiter},
		logger:     cfg.Logger,
	}, nil
}

// NewSessionWithAPIs builds a session from explicit API implementations.
// This constructor is intended for testing.
func NewSessionWithAPIs(computeAPI ComputeAPI, sqlAPI SQLAdminAPI, containerAPI ContainerAPI, datasetAPI DatasetAPI, projectsAPI ProjectsAPI, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		compute:    computeAPI,
		sql:        sqlAPI,
		containers: containerAPI,
		datasets:   datasetAPI,
		projects:   projectsAPI,
		logger:     logger,
	}
}

// Client returns a handle scoped to one project. Clients are cheap; each
// collection worker takes its own.
func (s *Session) Client(project string) *Client {
	return &Client{project: project, s: s}
}

// Client issues list and describe calls for a single project.
type Client struct {
	project string
	s       *Session
}

// Project returns the project id the client is scoped to.
func (c *Client) Project() string { return c.project }

// Instances lists every Compute Engine instance across all zones.
func (c *Client) Instances(ctx context.Context) ([]*compute.Instance, error) {
	return c.s.compute.ListInstances(ctx, c.project)
}

// MachineType describes one machine type in one zone.
func (c *Client) MachineType(ctx context.Context, zone, name string) (*compute.MachineType, error) {
	return c.s.compute.GetMachineType(ctx, c.project, zone, name)
}

// SQLInstances lists every Cloud SQL instance.
func (c *Client) SQLInstances(ctx context.Context) ([]*sqladmin.DatabaseInstance, error) {
	return c.s.sql.ListInstances(ctx, c.project)
}

// Clusters lists every GKE cluster across all locations.
func (c *Client) Clusters(ctx context.Context) ([]*container.Cluster, error) {
	return c.s.containers.ListClusters(ctx, c.project)
}

// Datasets lists the ids of every BigQuery dataset.
func (c *Client) Datasets(ctx context.Context) ([]string, error) {
	return c.s.datasets.ListDatasets(ctx, c.project)
}

// DatasetMetadata describes one BigQuery dataset.
func (c *Client) DatasetMetadata(ctx context.Context, dataset string) (*bigquery.DatasetMetadata, error) {
	return c.s.datasets.DatasetMetadata(ctx, c.project, dataset)
}

// Tables lists the table ids of one BigQuery dataset.
func (c *Client) Tables(ctx context.Context, dataset string) ([]string, error) {
	return c.s.datasets.ListTables(ctx, c.project, dataset)
}

// TableMetadata describes one BigQuery table.
func (c *Client) TableMetadata(ctx context.Context, dataset, table string) (*bigquery.TableMetadata, error) {
	return c.s.datasets.TableMetadata(ctx, c.project, dataset, table)
}

// ProbeCapability issues the cheapest bounded call for the capability's API
// surface. A nil return means the capability is usable.
func (c *Client) ProbeCapability(ctx context.Context, capability inventory.Capability) error {
	switch capability {
	case inventory.CapabilityCompute:
		return c.s.compute.Probe(ctx, c.project)
	case inventory.CapabilitySQLAdmin:
		return c.s.sql.Probe(ctx, c.project)
	case inventory.CapabilityBigQuery:
		return c.s.datasets.Probe(ctx, c.project)
	case inventory.CapabilityContainer:
		return c.s.containers.Probe(ctx, c.project)
	default:
		return fmt.Errorf("gcp: unknown capability %q", capability)
	}
}

// wrapTransport converts transport-level failures into a typed
// ProviderUnavailable error. API-level failures (googleapi errors) and
// context cancellation pass through untouched so callers can classify them.
func wrapTransport(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &inventory.ProviderUnavailableError{Op: op, Err: err}
}
