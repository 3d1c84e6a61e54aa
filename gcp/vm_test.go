package gcp

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/api/compute/v1"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

func testInstances() []*compute.Instance {
	return []*compute.Instance{
		{
			Id:                12345,
			Name:              "web-1",
			Zone:              "https://www.googleapis.com/compute/v1/projects/proj-a/zones/us-central1-a",
			Status:            "RUNNING",
			MachineType:       "https://www.googleapis.com/compute/v1/projects/proj-a/zones/us-central1-a/machineTypes/e2-medium",
			CreationTimestamp: "2024-03-01T10:00:00.000-07:00",
			NetworkInterfaces: []*compute.NetworkInterface{
				{
					Network:   "https://www.googleapis.com/compute/v1/projects/proj-a/global/networks/default",
					NetworkIP: "10.0.0.2",
					AccessConfigs: []*compute.AccessConfig{
						{NatIP: "34.1.2.3"},
					},
				},
			},
			Disks: []*compute.AttachedDisk{
				{Boot: true, Licenses: []string{"https://www.googleapis.com/compute/v1/projects/debian-cloud/global/licenses/debian-12"}},
			},
		},
		// A bare instance: the provider omitted nearly everything.
		{Name: "mystery"},
	}
}

func TestVMCollectorMapsInstances(t *testing.T) {
	fake := &fakeCompute{
		instances: map[string][]*compute.Instance{"proj-a": testInstances()},
		shapes: map[string]*compute.MachineType{
			"us-central1-a/e2-medium": {GuestCpus: 2, MemoryMb: 4096},
		},
	}
	collector := NewVMCollector(newTestSession(fake, nil, nil, nil, nil))

	records, errs := collector.Collect(context.Background(), "proj-a")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	vm := records[0].(inventory.VMRecord)
	if vm.ProjectID != "proj-a" {
		t.Errorf("project_id = %q", vm.ProjectID)
	}
	if vm.VMID == nil || *vm.VMID != "12345" {
		t.Errorf("vm_id = %v", vm.VMID)
	}
	if vm.Zone == nil || *vm.Zone != "us-central1-a" {
		t.Errorf("zone = %v", vm.Zone)
	}
	if vm.MachineType == nil || *vm.MachineType != "e2-medium" {
		t.Errorf("machine_type = %v", vm.MachineType)
	}
	if vm.CPUCount == nil || *vm.CPUCount != 2 {
		t.Errorf("cpu_count = %v", vm.CPUCount)
	}
	if vm.MemoryMB == nil || *vm.MemoryMB != 4096 {
		t.Errorf("memory_mb = %v", vm.MemoryMB)
	}
	if vm.OS == nil || *vm.OS != "debian-12" {
		t.Errorf("os = %v", vm.OS)
	}
	if vm.Network == nil || *vm.Network != "default" {
		t.Errorf("network = %v", vm.Network)
	}
	if vm.InternalIP == nil || *vm.InternalIP != "10.0.0.2" {
		t.Errorf("internal_ip = %v", vm.InternalIP)
	}
	if vm.ExternalIP == nil || *vm.ExternalIP != "34.1.2.3" {
		t.Errorf("external_ip = %v", vm.ExternalIP)
	}

	// Omitted provider fields map to nil, not to zero values.
	bare := records[1].(inventory.VMRecord)
	if bare.VMID != nil || bare.Zone != nil || bare.MachineType != nil {
		t.Errorf("bare instance should have nil identifiers: %+v", bare)
	}
	if bare.CPUCount != nil || bare.MemoryMB != nil {
		t.Errorf("bare instance should have nil shape fields: %+v", bare)
	}
	if bare.ExternalIP != nil || bare.InternalIP != nil || bare.OS != nil {
		t.Errorf("bare instance should have nil network/os fields: %+v", bare)
	}
}

func TestVMCollectorEnrichmentFailure(t *testing.T) {
	fake := &fakeCompute{
		instances: map[string][]*compute.Instance{"proj-a": testInstances()},
		shapeErr:  map[string]error{"us-central1-a/e2-medium": errors.New("backend unavailable")},
	}
	collector := NewVMCollector(newTestSession(fake, nil, nil, nil, nil))

	records, errs := collector.Collect(context.Background(), "proj-a")
	if len(records) != 2 {
		t.Fatalf("record must not be dropped on enrichment failure, got %d", len(records))
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 non-terminal error, got %d: %v", len(errs), errs)
	}
	if errs[0].Terminal {
		t.Error("enrichment failure must be non-terminal")
	}
	if !strings.Contains(errs[0].Message, "web-1") {
		t.Errorf("error should name the failing instance: %q", errs[0].Message)
	}

	vm := records[0].(inventory.VMRecord)
	if vm.CPUCount != nil || vm.MemoryMB != nil {
		t.Errorf("unresolved shape fields must be nil, got cpu=%v mem=%v", vm.CPUCount, vm.MemoryMB)
	}
	// Independently resolved fields stay populated.
	if vm.Name == nil || *vm.Name != "web-1" || vm.Zone == nil {
		t.Errorf("independent fields must survive enrichment failure: %+v", vm)
	}
}

func TestVMCollectorListFailureIsTerminal(t *testing.T) {
	fake := &fakeCompute{listErr: &inventory.ProviderUnavailableError{Op: "compute.instances.list", Err: errors.New("dial tcp: timeout")}}
	collector := NewVMCollector(newTestSession(fake, nil, nil, nil, nil))

	records, errs := collector.Collect(context.Background(), "proj-a")
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if len(errs) != 1 || !errs[0].Terminal {
		t.Fatalf("expected exactly 1 terminal error, got %v", errs)
	}
	if errs[0].Family != inventory.FamilyComputeInstances || errs[0].Project != "proj-a" {
		t.Errorf("error misattributed: %+v", errs[0])
	}
}

func TestVMCollectorSharesShapeLookups(t *testing.T) {
	fake := &fakeCompute{
		instances: map[string][]*compute.Instance{"proj-a": {
			{Name: "a", Zone: "zones/z1", MachineType: "machineTypes/e2-small"},
			{Name: "b", Zone: "zones/z1", MachineType: "machineTypes/e2-small"},
		}},
		shapes: map[string]*compute.MachineType{"z1/e2-small": {GuestCpus: 1, MemoryMb: 2048}},
	}
	collector := NewVMCollector(newTestSession(fake, nil, nil, nil, nil))

	if _, errs := collector.Collect(context.Background(), "proj-a"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if fake.shapeCalls != 1 {
		t.Errorf("expected 1 machine-type lookup for identical shapes, got %d", fake.shapeCalls)
	}
}

func TestVMCollectorIdempotent(t *testing.T) {
	fake := &fakeCompute{
		instances: map[string][]*compute.Instance{"proj-a": testInstances()},
		shapes: map[string]*compute.MachineType{
			"us-central1-a/e2-medium": {GuestCpus: 2, MemoryMb: 4096},
		},
	}
	collector := NewVMCollector(newTestSession(fake, nil, nil, nil, nil))

	first, _ := collector.Collect(context.Background(), "proj-a")
	second, _ := collector.Collect(context.Background(), "proj-a")
	if !reflect.DeepEqual(first, second) {
		t.Error("collecting twice against unchanged provider state must yield identical records")
	}
}
