package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Collector gathers every resource of one family in one project. Enumeration
// failure yields a single terminal CollectionError and no records; per-item
// enrichment failure yields a non-terminal error while the record is still
// emitted with the unresolved fields nil.
type Collector interface {
	Family() ResourceFamily
	Collect(ctx context.Context, project string) ([]Record, []CollectionError)
}

// PermissionChecker probes each requested capability for a project and
// classifies it. The returned mapping covers every requested capability
// exactly once; when the provider transport cannot be reached at all the
// checker returns a ProviderUnavailableError and no mapping.
type PermissionChecker interface {
	Check(ctx context.Context, project string, caps []Capability) (map[Capability]PermissionStatus, error)
}

// ProjectEnumerator resolves the set of projects to scan. An explicit project
// id is returned as-is without validation; otherwise all projects visible to
// the active credentials are listed.
type ProjectEnumerator interface {
	Enumerate(ctx context.Context, explicit string) ([]string, error)
}

// RunOptions selects what one inventory run covers.
type RunOptions struct {
	// Project restricts the run to a single explicit project id. Empty means
	// every project visible to the credentials.
	Project string
	// Families are the resource families to collect. Empty means every family
	// the orchestrator has a collector for.
	Families []ResourceFamily
	// SkipDisabledAPIs suppresses the per-pair error entry when a required
	// capability is DISABLED or CREDENTIAL_ISSUE; the permission mapping
	// still records the classification either way.
	SkipDisabledAPIs bool
}

// OrchestratorConfig carries the orchestrator's tunables.
type OrchestratorConfig struct {
	// Concurrency bounds the number of in-flight provider scans. Provider
	// rate limits make unbounded fan-out unsafe.
	Concurrency int
	Logger      *slog.Logger
}

// DefaultConcurrency is the worker limit used when none is configured.
const DefaultConcurrency = 4

// Orchestrator coordinates one inventory run: enumerate projects, pre-flight
// each project's capabilities, fan collection out over bounded workers, and
// merge the isolated partial results in a fixed order.
type Orchestrator struct {
	enumerator  ProjectEnumerator
	checker     PermissionChecker
	collectors  map[ResourceFamily]Collector
	concurrency int
	logger      *slog.Logger
}

// NewOrchestrator builds an orchestrator over the given collectors.
func NewOrchestrator(enum ProjectEnumerator, checker PermissionChecker, collectors []Collector, cfg OrchestratorConfig) *Orchestrator {
	byFamily := make(map[ResourceFamily]Collector, len(collectors))
	for _, c := range collectors {
		byFamily[c.Family()] = c
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		enumerator:  enum,
		checker:     checker,
		collectors:  byFamily,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// checkResult holds the pre-flight outcome for one project.
type checkResult struct {
	statuses map[Capability]PermissionStatus
	err      error
	skipped  bool // cancelled before the check ran
}

// unitResult is the isolated partial result of one (project, family) scan.
// Workers write only their own slot; the merge step reads them all.
type unitResult struct {
	records   []Record
	errs      []CollectionError
	ran       bool
	cancelled bool
}

// Run executes one inventory collection and returns the aggregated report.
// Every failure except project-list enumeration is captured inside the report
// rather than returned. Cancelling ctx stops the run between scan units; the
// report accumulated so far is returned with a terminal error entry marking
// it incomplete.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	families := o.resolveFamilies(opts.Families)
	if len(families) == 0 {
		return nil, fmt.Errorf("inventory: no collectable families requested")
	}

	projects, err := o.enumerator.Enumerate(ctx, opts.Project)
	if err != nil {
		return nil, fmt.Errorf("inventory: resolving project set: %w", err)
	}

	report := &Report{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Records:     make(map[ResourceFamily][]Record, len(families)),
		Permissions: make(map[PermissionKey]PermissionStatus),
	}
	o.logger.Info("inventory run started",
		"run_id", report.RunID, "projects", len(projects), "families", len(families))

	caps := requiredCapabilities(families)
	checks := o.preflight(ctx, projects, caps)
	units := o.collectUnits(ctx, projects, families, checks)

	// Single-owner merge. Iteration order here, not worker completion order,
	// fixes the output order: project enumeration order, then family
	// declaration order, then provider-returned order.
	for pi, project := range projects {
		check := checks[pi]
		if check.skipped {
			continue
		}
		if check.err != nil {
			report.Errors = append(report.Errors, CollectionError{
				Project:  project,
				Message:  fmt.Sprintf("capability pre-flight failed: %v", check.err),
				Terminal: true,
			})
			continue
		}
		for capability, status := range check.statuses {
			report.Permissions[PermissionKey{Project: project, Capability: capability}] = status
		}
		for fi, family := range families {
			unit := units[pi*len(families)+fi]
			status := check.statuses[family.RequiredCapability()]
			if status != PermissionOK {
				if !opts.SkipDisabledAPIs {
					report.Errors = append(report.Errors, CollectionError{
						Project: project,
						Family:  family,
						Message: fmt.Sprintf("capability %s %s", family.RequiredCapability(), status),
					})
				}
				continue
			}
			if !unit.ran {
				continue
			}
			report.Records[family] = append(report.Records[family], unit.records...)
			report.Errors = append(report.Errors, unit.errs...)
		}
	}

	if runCancelled(ctx, checks, units) {
		report.Errors = append(report.Errors, CollectionError{
			Message:  "run cancelled before completion; report is incomplete",
			Terminal: true,
		})
	}

	report.FinishedAt = time.Now().UTC()
	o.logger.Info("inventory run finished",
		"run_id", report.RunID,
		"records", recordCount(report),
		"errors", len(report.Errors))
	return report, nil
}

// preflight classifies every requested capability for every project. Checks
// for independent projects run concurrently under the worker limit.
func (o *Orchestrator) preflight(ctx context.Context, projects []string, caps []Capability) []checkResult {
	results := make([]checkResult, len(projects))
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, project := range projects {
		i, project := i, project
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = checkResult{skipped: true}
				return nil
			}
			statuses, err := o.checker.Check(ctx, project, caps)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				results[i] = checkResult{skipped: true}
				return nil
			}
			if err != nil {
				o.logger.Warn("capability pre-flight failed", "project", project, "error", err)
			}
			results[i] = checkResult{statuses: statuses, err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // worker funcs never return errors
	return results
}

// collectUnits runs one scan unit per (project, family) pair whose capability
// resolved OK. Each unit writes an isolated slot; nothing is shared between
// workers.
func (o *Orchestrator) collectUnits(ctx context.Context, projects []string, families []ResourceFamily, checks []checkResult) []unitResult {
	units := make([]unitResult, len(projects)*len(families))
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for pi, project := range projects {
		check := checks[pi]
		if check.skipped || check.err != nil {
			continue
		}
		for fi, family := range families {
			if check.statuses[family.RequiredCapability()] != PermissionOK {
				continue
			}
			idx := pi*len(families) + fi
			collector := o.collectors[family]
			project, family := project, family
			g.Go(func() error {
				if ctx.Err() != nil {
					units[idx] = unitResult{cancelled: true}
					return nil
				}
				o.logger.Debug("collecting", "project", project, "family", family)
				records, errs := collector.Collect(ctx, project)
				units[idx] = unitResult{records: records, errs: errs, ran: true}
				return nil
			})
		}
	}
	g.Wait() //nolint:errcheck // worker funcs never return errors
	return units
}

// resolveFamilies normalizes the requested set to declaration order, keeping
// only families a collector is registered for.
func (o *Orchestrator) resolveFamilies(requested []ResourceFamily) []ResourceFamily {
	want := make(map[ResourceFamily]bool, len(requested))
	for _, f := range requested {
		want[f] = true
	}
	var out []ResourceFamily
	for _, f := range AllFamilies {
		if _, ok := o.collectors[f]; !ok {
			continue
		}
		if len(requested) == 0 || want[f] {
			out = append(out, f)
		}
	}
	return out
}

// requiredCapabilities returns the deduplicated capability union of the given
// families, in family declaration order.
func requiredCapabilities(families []ResourceFamily) []Capability {
	seen := make(map[Capability]bool, len(families))
	var caps []Capability
	for _, f := range families {
		c := f.RequiredCapability()
		if !seen[c] {
			seen[c] = true
			caps = append(caps, c)
		}
	}
	return caps
}

func runCancelled(ctx context.Context, checks []checkResult, units []unitResult) bool {
	if ctx.Err() != nil {
		return true
	}
	for _, c := range checks {
		if c.skipped {
			return true
		}
	}
	for _, u := range units {
		if u.cancelled {
			return true
		}
	}
	return false
}

func recordCount(r *Report) int {
	n := 0
	for _, recs := range r.Records {
		n += len(recs)
	}
	return n
}
