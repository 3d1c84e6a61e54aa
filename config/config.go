// Package config loads the run configuration for the inventory tool. The
// provider error signatures used by the permission classifier live here as
// data: GCP error text is not a stable contract, so deployments can override
// the defaults without a rebuild.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/gcpinv/gcp"
	"github.com/GoCodeAlone/gcpinv/inventory"
)

// Config is the YAML-backed run configuration.
type Config struct {
	// Concurrency bounds parallel provider scans.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	// OutputDir receives the exported CSV/JSON files.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// Families restricts the run to the named resource families. Empty means
	// all of them.
	Families []string `json:"families,omitempty" yaml:"families,omitempty"`
	// SkipDisabledAPIs suppresses per-pair errors for blocked capabilities.
	SkipDisabledAPIs bool `json:"skip_disabled_apis" yaml:"skip_disabled_apis"`
	// CredentialsFile is a service account key; empty means ADC.
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
	// RatePerSecond and Burst tune the provider call limiter.
	RatePerSecond float64 `json:"rate_per_second,omitempty" yaml:"rate_per_second,omitempty"`
	Burst         int     `json:"burst,omitempty" yaml:"burst,omitempty"`
	// ErrorPatterns overrides the built-in permission classification table.
	ErrorPatterns []ErrorPatternConfig `json:"error_patterns,omitempty" yaml:"error_patterns,omitempty"`
}

// ErrorPatternConfig is one classifier entry: an error substring or reason
// code mapped to a permission status.
type ErrorPatternConfig struct {
	Match  string `json:"match" yaml:"match"`
	Status string `json:"status" yaml:"status"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Concurrency: inventory.DefaultConcurrency,
		OutputDir:   "output",
	}
}

// LoadFile reads a YAML config file over the defaults. A missing path (empty
// string) yields the defaults unchanged.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = inventory.DefaultConcurrency
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return cfg, nil
}

// ResolveFamilies maps the configured family names to their typed values.
func (c Config) ResolveFamilies() ([]inventory.ResourceFamily, error) {
	var out []inventory.ResourceFamily
	for _, name := range c.Families {
		f, ok := inventory.ParseFamily(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown resource family %q", name)
		}
		out = append(out, f)
	}
	return out, nil
}

// ResolvePatterns builds the classifier table: configured overrides when
// present, the defaults otherwise.
func (c Config) ResolvePatterns() ([]gcp.ErrorPattern, error) {
	if len(c.ErrorPatterns) == 0 {
		return gcp.DefaultErrorPatterns(), nil
	}
	out := make([]gcp.ErrorPattern, 0, len(c.ErrorPatterns))
	for _, p := range c.ErrorPatterns {
		switch inventory.PermissionStatus(p.Status) {
		case inventory.PermissionDisabled, inventory.PermissionCredentialIssue:
			out = append(out, gcp.ErrorPattern{Match: p.Match, Status: inventory.PermissionStatus(p.Status)})
		default:
			return nil, fmt.Errorf("config: error pattern %q has invalid status %q", p.Match, p.Status)
		}
	}
	return out, nil
}
