package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeEnumerator struct {
	projects []string
	err      error
}

func (f *fakeEnumerator) Enumerate(_ context.Context, explicit string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if explicit != "" {
		return []string{explicit}, nil
	}
	return f.projects, nil
}

type fakeChecker struct {
	// statuses overrides the classification per (project, capability); pairs
	// not present resolve to OK.
	statuses map[PermissionKey]PermissionStatus
	// errs makes Check fail wholesale for a project.
	errs map[string]error
}

func (f *fakeChecker) Check(_ context.Context, project string, caps []Capability) (map[Capability]PermissionStatus, error) {
	if err := f.errs[project]; err != nil {
		return nil, err
	}
	out := make(map[Capability]PermissionStatus, len(caps))
	for _, c := range caps {
		status, ok := f.statuses[PermissionKey{Project: project, Capability: c}]
		if !ok {
			status = PermissionOK
		}
		out[c] = status
	}
	return out, nil
}

// fakeCollector emits one synthetic record per project. An optional delay
// function lets tests randomize completion order.
type fakeCollector struct {
	family  ResourceFamily
	errs    map[string][]CollectionError
	delay   func()
	cancels context.CancelFunc // cancel the run after the first Collect call

	mu     sync.Mutex
	calls  []string
	cancel sync.Once
}

func (f *fakeCollector) Family() ResourceFamily { return f.family }

func (f *fakeCollector) Collect(_ context.Context, project string) ([]Record, []CollectionError) {
	if f.delay != nil {
		f.delay()
	}
	f.mu.Lock()
	f.calls = append(f.calls, project)
	f.mu.Unlock()
	if f.cancels != nil {
		f.cancel.Do(f.cancels)
	}
	name := fmt.Sprintf("%s-%s", f.family, project)
	return []Record{VMRecord{ProjectID: project, Name: &name}}, f.errs[project]
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestOrchestrator(enum *fakeEnumerator, checker *fakeChecker, collectors ...Collector) *Orchestrator {
	return NewOrchestrator(enum, checker, collectors, OrchestratorConfig{Concurrency: 3, Logger: discardLogger()})
}

func recordNames(records []Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, *r.(VMRecord).Name)
	}
	return out
}

func TestRunOrderIsDeterministic(t *testing.T) {
	projects := []string{"p1", "p2", "p3"}
	jitter := func() { time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond) }
	vm := &fakeCollector{family: FamilyComputeInstances, delay: jitter}
	db := &fakeCollector{family: FamilyManagedDatabases, delay: jitter}
	orch := newTestOrchestrator(&fakeEnumerator{projects: projects}, &fakeChecker{}, vm, db)

	report, err := orch.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Regardless of which worker finished first, records within a family
	// appear in project enumeration order.
	for _, family := range []ResourceFamily{FamilyComputeInstances, FamilyManagedDatabases} {
		want := []string{
			fmt.Sprintf("%s-p1", family),
			fmt.Sprintf("%s-p2", family),
			fmt.Sprintf("%s-p3", family),
		}
		got := recordNames(report.FamilyRecords(family))
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s order = %v, want %v", family, got, want)
		}
	}
}

func TestRunDisabledCapability(t *testing.T) {
	blocked := PermissionKey{Project: "p2", Capability: CapabilityCompute}
	checker := &fakeChecker{statuses: map[PermissionKey]PermissionStatus{blocked: PermissionDisabled}}
	vm := &fakeCollector{family: FamilyComputeInstances}

	t.Run("reported by default", func(t *testing.T) {
		orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1", "p2"}}, checker, vm)
		report, err := orch.Run(context.Background(), RunOptions{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := recordNames(report.FamilyRecords(FamilyComputeInstances)); len(got) != 1 || got[0] != "compute-instances-p1" {
			t.Errorf("records = %v", got)
		}
		if len(report.Errors) != 1 {
			t.Fatalf("expected exactly 1 error, got %v", report.Errors)
		}
		e := report.Errors[0]
		if e.Terminal || e.Project != "p2" || e.Family != FamilyComputeInstances {
			t.Errorf("error = %+v", e)
		}
		if report.Permissions[blocked] != PermissionDisabled {
			t.Errorf("permission mapping = %v", report.Permissions)
		}
	})

	t.Run("silent with skip-disabled-apis", func(t *testing.T) {
		orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1", "p2"}}, checker, vm)
		report, err := orch.Run(context.Background(), RunOptions{SkipDisabledAPIs: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(report.Errors) != 0 {
			t.Errorf("expected no errors, got %v", report.Errors)
		}
		// The classification is still recorded for the report consumer.
		if report.Permissions[blocked] != PermissionDisabled {
			t.Errorf("permission mapping = %v", report.Permissions)
		}
	})
}

func TestRunPreflightFailureIsolatesProject(t *testing.T) {
	checker := &fakeChecker{errs: map[string]error{
		"p2": &ProviderUnavailableError{Op: "capability probe", Err: errors.New("project not found")},
	}}
	vm := &fakeCollector{family: FamilyComputeInstances}
	orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1", "p2", "p3"}}, checker, vm)

	report, err := orch.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("a broken project must not fail the run: %v", err)
	}

	got := recordNames(report.FamilyRecords(FamilyComputeInstances))
	want := "compute-instances-p1,compute-instances-p3"
	if strings.Join(got, ",") != want {
		t.Errorf("records = %v, want %s", got, want)
	}
	terminal := report.TerminalErrors()
	if len(terminal) != 1 {
		t.Fatalf("expected 1 terminal error, got %v", report.Errors)
	}
	if terminal[0].Project != "p2" || terminal[0].Family != "" {
		t.Errorf("terminal error must be project-wide for p2: %+v", terminal[0])
	}
	// No permission entries for the unreachable project.
	for key := range report.Permissions {
		if key.Project == "p2" {
			t.Errorf("unexpected permission entry %v", key)
		}
	}
}

func TestRunEnumerationFailure(t *testing.T) {
	orch := newTestOrchestrator(
		&fakeEnumerator{err: errors.New("credentials expired")},
		&fakeChecker{},
		&fakeCollector{family: FamilyComputeInstances},
	)
	if _, err := orch.Run(context.Background(), RunOptions{}); err == nil {
		t.Fatal("enumeration failure must abort the run")
	}
}

func TestRunMergesCollectorErrors(t *testing.T) {
	vm := &fakeCollector{
		family: FamilyComputeInstances,
		errs: map[string][]CollectionError{
			"p1": {{Project: "p1", Family: FamilyComputeInstances, Message: "resolving machine type n2-standard-4 for instance web-1: backend error"}},
		},
	}
	orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1"}}, &fakeChecker{}, vm)

	report, err := orch.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.FamilyRecords(FamilyComputeInstances)) != 1 {
		t.Error("records must merge alongside non-terminal errors")
	}
	if len(report.Errors) != 1 || report.Errors[0].Terminal {
		t.Errorf("errors = %v", report.Errors)
	}
}

func TestRunFamilySubset(t *testing.T) {
	vm := &fakeCollector{family: FamilyComputeInstances}
	db := &fakeCollector{family: FamilyManagedDatabases}
	orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1"}}, &fakeChecker{}, vm, db)

	report, err := orch.Run(context.Background(), RunOptions{Families: []ResourceFamily{FamilyManagedDatabases}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.FamilyRecords(FamilyComputeInstances)) != 0 {
		t.Error("unrequested family must not be collected")
	}
	if len(report.FamilyRecords(FamilyManagedDatabases)) != 1 {
		t.Error("requested family missing from report")
	}
	// Only the requested family's capability is probed and mapped.
	for key := range report.Permissions {
		if key.Capability != CapabilitySQLAdmin {
			t.Errorf("unexpected permission entry %v", key)
		}
	}
	if len(vm.calls) != 0 {
		t.Errorf("compute collector was invoked: %v", vm.calls)
	}
}

func TestRunCancellationYieldsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// Concurrency 1 forces sequential units; cancelling inside the first
	// Collect leaves the remaining units unstarted.
	vm := &fakeCollector{family: FamilyComputeInstances, cancels: cancel}
	orch := NewOrchestrator(
		&fakeEnumerator{projects: []string{"p1", "p2", "p3"}},
		&fakeChecker{},
		[]Collector{vm},
		OrchestratorConfig{Concurrency: 1, Logger: discardLogger()},
	)

	report, err := orch.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("cancellation must not fail the run: %v", err)
	}
	if got := len(report.FamilyRecords(FamilyComputeInstances)); got != 1 {
		t.Errorf("expected the 1 completed unit's records, got %d", got)
	}
	terminal := report.TerminalErrors()
	if len(terminal) != 1 || !strings.Contains(terminal[0].Message, "incomplete") {
		t.Errorf("expected one incompleteness marker, got %v", report.Errors)
	}
}

func TestRunReportMetadata(t *testing.T) {
	orch := newTestOrchestrator(&fakeEnumerator{projects: []string{"p1"}}, &fakeChecker{}, &fakeCollector{family: FamilyComputeInstances})

	report, err := orch.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "" {
		t.Error("run id must be set")
	}
	if report.StartedAt.IsZero() || report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("timestamps out of order: %v / %v", report.StartedAt, report.FinishedAt)
	}
	second, err := orch.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.RunID == report.RunID {
		t.Error("each run must get a fresh run id")
	}
}
