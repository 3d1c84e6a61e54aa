package gcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"

	"github.com/GoCodeAlone/gcpinv/inventory"
)

// ErrorPattern maps a provider error signature to a permission status.
// Provider error text is not a stable contract, so the table is data: the
// defaults cover current GCP signatures and deployments can override them
// through configuration.
type ErrorPattern struct {
	// Match is compared case-sensitively against the error reason codes and
	// the error message.
	Match  string
	Status inventory.PermissionStatus
}

// DefaultErrorPatterns returns the known GCP signatures for disabled services
// and credential problems.
func DefaultErrorPatterns() []ErrorPattern {
	return []ErrorPattern{
		{Match: "accessNotConfigured", Status: inventory.PermissionDisabled},
		{Match: "SERVICE_DISABLED", Status: inventory.PermissionDisabled},
		{Match: "has not been used", Status: inventory.PermissionDisabled},
		{Match: "API not enabled", Status: inventory.PermissionDisabled},
		{Match: "PERMISSION_DENIED", Status: inventory.PermissionCredentialIssue},
		{Match: "forbidden", Status: inventory.PermissionCredentialIssue},
		{Match: "Permission denied", Status: inventory.PermissionCredentialIssue},
	}
}

// PermissionChecker probes API capabilities per project and classifies the
// outcome. It is a pure pre-flight step: collectors never re-check
// permissions themselves, which lets check-only mode reuse the classifier.
type PermissionChecker struct {
	session  *Session
	patterns []ErrorPattern
	logger   *slog.Logger
}

// NewPermissionChecker builds a checker. A nil patterns slice selects the
// defaults.
func NewPermissionChecker(session *Session, patterns []ErrorPattern) *PermissionChecker {
	if patterns == nil {
		patterns = DefaultErrorPatterns()
	}
	return &PermissionChecker{session: session, patterns: patterns, logger: session.logger}
}

// Check probes every requested capability for the project. Probes are
// independent and run concurrently. The result covers each requested
// capability exactly once; if any probe fails with something that is neither
// a disabled-service nor a permission signature, Check returns that error and
// no mapping.
func (p *PermissionChecker) Check(ctx context.Context, project string, caps []inventory.Capability) (map[inventory.Capability]inventory.PermissionStatus, error) {
	client := p.session.Client(project)
	statuses := make([]inventory.PermissionStatus, len(caps))
	probeErrs := make([]error, len(caps))

	g := new(errgroup.Group)
	for i, capability := range caps {
		i, capability := i, capability
		g.Go(func() error {
			err := client.ProbeCapability(ctx, capability)
			if err == nil {
				statuses[i] = inventory.PermissionOK
				return nil
			}
			if status, ok := p.classify(err); ok {
				statuses[i] = status
				return nil
			}
			probeErrs[i] = err
			return nil
		})
	}
	g.Wait() //nolint:errcheck // probe funcs never return errors

	for i, err := range probeErrs {
		if err == nil {
			continue
		}
		if inventory.IsProviderUnavailable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Unclassifiable API error, e.g. project not found. The transport is
		// effectively unusable for this project.
		return nil, &inventory.ProviderUnavailableError{Op: "capability probe " + string(caps[i]), Err: err}
	}

	result := make(map[inventory.Capability]inventory.PermissionStatus, len(caps))
	for i, capability := range caps {
		result[capability] = statuses[i]
		if statuses[i] != inventory.PermissionOK {
			p.logger.Debug("capability unavailable",
				"project", project, "capability", capability, "status", statuses[i])
		}
	}
	return result, nil
}

// classify matches a googleapi error against the pattern table. Reason codes
// are checked before the free-form message.
func (p *PermissionChecker) classify(err error) (inventory.PermissionStatus, bool) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return "", false
	}
	for _, pat := range p.patterns {
		for _, item := range gerr.Errors {
			if strings.Contains(item.Reason, pat.Match) {
				return pat.Status, true
			}
		}
		if strings.Contains(gerr.Message, pat.Match) || strings.Contains(gerr.Body, pat.Match) {
			return pat.Status, true
		}
	}
	return "", false
}
