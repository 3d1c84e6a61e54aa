package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoCodeAlone/gcpinv/config"
	"github.com/GoCodeAlone/gcpinv/gcp"
	"github.com/GoCodeAlone/gcpinv/inventory"
)

// runCheckAPIs probes capability availability without collecting anything.
// It reuses the same classifier the collect pipeline gates on.
func runCheckAPIs(args []string) error {
	fs := flag.NewFlagSet("check-apis", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	project := fs.String("project", "", "specific GCP project id to check (default: all visible projects)")
	credentialsFile := fs.String("credentials-file", "", "service account key file (default: application default credentials)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger := newLogger(*verbose)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if *credentialsFile != "" {
		cfg.CredentialsFile = *credentialsFile
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

	projects, err := gcp.NewProjectLister(session).Enumerate(ctx, *project)
	if err != nil {
		return err
	}
	checker := gcp.NewPermissionChecker(session, patterns)
	caps := make([]inventory.Capability, 0, len(inventory.AllFamilies))
	for _, f := range inventory.AllFamilies {
		caps = append(caps, f.RequiredCapability())
	}

	allOK := true
	fmt.Println("=== API status check ===")
	for _, proj := range projects {
		fmt.Printf("\nProject: %s\n", proj)
		statuses, err := checker.Check(ctx, proj, caps)
		if err != nil {
			fmt.Printf("  unreachable: %v\n", err)
			allOK = false
			continue
		}
		for _, capability := range caps {
			status := statuses[capability]
			fmt.Printf("  %s (%s): [%s]\n", capability.DisplayName(), capability, status)
			if status != inventory.PermissionOK {
				allOK = false
			}
		}
	}
	if !allOK {
		fmt.Println("\nSome APIs are disabled, unreachable, or lack permissions; collection for those pairs will be skipped or reported as errors.")
	}
	return nil
}
