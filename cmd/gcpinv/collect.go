package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/GoCodeAlone/gcpinv/config"
	"github.com/GoCodeAlone/gcpinv/export"
	"github.com/GoCodeAlone/gcpinv/gcp"
	"github.com/GoCodeAlone/gcpinv/inventory"
)

func runCollect(args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	project := fs.String("project", "", "specific GCP project id to inventory (default: all visible projects)")
	outputDir := fs.String("output-dir", "", "directory for exported files (overrides config)")
	familiesFlag := fs.String("families", "", "comma-separated resource families: compute-instances, managed-databases, analytical-datasets, container-clusters")
	skipDisabled := fs.Bool("skip-disabled-apis", false, "skip projects with disabled APIs silently instead of recording errors")
	format := fs.String("format", "csv", "output format: csv or json")
	credentialsFile := fs.String("credentials-file", "", "service account key file (default: application default credentials)")
	concurrency := fs.Int("concurrency", 0, "parallel scan limit (overrides config)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *credentialsFile != "" {
		cfg.CredentialsFile = *credentialsFile
	}
	if *skipDisabled {
		cfg.SkipDisabledAPIs = true
	}
	if *familiesFlag != "" {
		cfg.Families = strings.Split(*familiesFlag, ",")
	}
	families, err := cfg.ResolveFamilies()
	if err != nil {
		return err
	}
	patterns, err := cfg.ResolvePatterns()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := gcp.NewSession(ctx, gcp.SessionConfig{
		CredentialsFile: cfg.CredentialsFile,
		RatePerSecond:   cfg.RatePerSecond,
		Burst:           cfg.Burst,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	orch := inventory.NewOrchestrator(
		gcp.NewProjectLister(session),
		gcp.NewPermissionChecker(session, patterns),
		gcp.AllCollectors(session),
		inventory.OrchestratorConfig{Concurrency: cfg.Concurrency, Logger: logger},
	)
	report, err := orch.Run(ctx, inventory.RunOptions{
		Project:          *project,
		Families:         families,
		SkipDisabledAPIs: cfg.SkipDisabledAPIs,
	})
	if err != nil {
		return err
	}

	printPermissions(report)
	printErrors(report)

	switch *format {
	case "csv":
		writer := export.NewCSVWriter(cfg.OutputDir)
		paths, err := writer.WriteReport(report)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No records collected; nothing exported.")
			return nil
		}
		for _, p := range paths {
			fmt.Printf("Exported %s\n", p)
		}
	case "json":
		writer := export.NewJSONWriter(cfg.OutputDir)
		path, err := writer.WriteReport(report)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %s\n", path)
	default:
		return fmt.Errorf("unknown format %q (expected csv or json)", *format)
	}
	return nil
}

// printPermissions renders the pre-flight classification per project so
// partial results are always inspectable.
func printPermissions(report *inventory.Report) {
	if len(report.Permissions) == 0 {
		return
	}
	keys := make([]inventory.PermissionKey, 0, len(report.Permissions))
	for key := range report.Permissions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Project != keys[j].Project {
			return keys[i].Project < keys[j].Project
		}
		return keys[i].Capability < keys[j].Capability
	})

	fmt.Println("\n=== API status ===")
	current := ""
	for _, key := range keys {
		if key.Project != current {
			current = key.Project
			fmt.Printf("\nProject: %s\n", current)
		}
		fmt.Printf("  %s (%s): [%s]\n",
			key.Capability.DisplayName(), key.Capability, report.Permissions[key])
	}
}

func printErrors(report *inventory.Report) {
	if len(report.Errors) == 0 {
		return
	}
	fmt.Println("\n=== Collection errors ===")
	for _, e := range report.Errors {
		fmt.Printf("  %s\n", e.Error())
	}
}
