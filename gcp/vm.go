package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/api/compute/v1"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// VMCollector inventories Compute Engine instances. CPU and memory figures
// are resolved through a secondary machine-type describe; when that lookup
// fails the record is still emitted with those fields nil.
type VMCollector struct {
	session *Session
	logger  *slog.Logger
}

// NewVMCollector returns the compute-instances collector for the session.
func NewVMCollector(session *Session) *VMCollector {
	return &VMCollector{session: session, logger: session.logger}
}

func (c *VMCollector) Family() inventory.ResourceFamily {
	return inventory.FamilyComputeInstances
}

// Collect lists every instance in the project and maps it to a VMRecord.
func (c *VMCollector) Collect(ctx context.Context, project string) ([]inventory.Record, []inventory.CollectionError) {
	client := c.session.Client(project)
	instances, err := client.Instances(ctx)
	if err != nil {
		return nil, []inventory.CollectionError{{
			Project:  project,
			Family:   c.Family(),
			Message:  fmt.Sprintf("listing instances: %v", err),
			Terminal: true,
		}}
	}

	// Identical machine types repeat across a project; resolve each shape
	// once per collection pass.
	shapes := make(map[string]*compute.MachineType)

	var records []inventory.Record
	var errs []inventory.CollectionError
	for _, inst := range instances {
		rec := inventory.VMRecord{
			ProjectID:         project,
			Name:              inventory.StringPtr(inst.Name),
			Zone:              inventory.StringPtr(lastSegment(inst.Zone)),
			Status:            inventory.StringPtr(inst.Status),
			MachineType:       inventory.StringPtr(lastSegment(inst.MachineType)),
			OS:                bootDiskOS(inst.Disks),
			CreationTimestamp: inventory.StringPtr(inst.CreationTimestamp),
		}
		if inst.Id != 0 {
			rec.VMID = inventory.StringPtr(strconv.FormatUint(inst.Id, 10))
		}
		if len(inst.NetworkInterfaces) > 0 {
			ni := inst.NetworkInterfaces[0]
			rec.Network = inventory.StringPtr(lastSegment(ni.Network))
			rec.InternalIP = inventory.StringPtr(ni.NetworkIP)
			if len(ni.AccessConfigs) > 0 {
				rec.ExternalIP = inventory.StringPtr(ni.AccessConfigs[0].NatIP)
			}
		}

		if rec.Zone != nil && rec.MachineType != nil {
			key := *rec.Zone + "/" + *rec.MachineType
			shape, ok := shapes[key]
			if !ok {
				shape, err = client.MachineType(ctx, *rec.Zone, *rec.MachineType)
				if err != nil {
					errs = append(errs, inventory.CollectionError{
						Project: project,
						Family:  c.Family(),
						Message: fmt.Sprintf("resolving machine type %s for instance %s: %v", key, inst.Name, err),
					})
				} else {
					shapes[key] = shape
				}
			}
			if shape != nil {
				rec.CPUCount = inventory.Int64Ptr(shape.GuestCpus)
				rec.MemoryMB = inventory.Int64Ptr(shape.MemoryMb)
			}
		}

		records = append(records, rec)
	}
	return records, errs
}

// lastSegment returns the final path segment of a GCP resource URL, or the
// empty string when there is nothing to split.
func lastSegment(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

// bootDiskOS derives the OS name from the boot disk's first license URL.
func bootDiskOS(disks []*compute.AttachedDisk) *string {
	for _, disk := range disks {
		if !disk.Boot {
			continue
		}
		if len(disk.Licenses) == 0 {
			return nil
		}
		return inventory.StringPtr(lastSegment(disk.Licenses[0]))
	}
	return nil
}
