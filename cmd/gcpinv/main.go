package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"collect":    runCollect,
	"check-apis": runCheckAPIs,
}

func usage() {
	fmt.Fprintf(os.Stderr, `gcpinv - GCP resource inventory (version %s)

Usage:
  gcpinv <command> [options]

Commands:
  collect     Collect resource inventory across projects and export it
  check-apis  Check API/permission availability without collecting

Run 'gcpinv <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	switch cmd {
	case "help", "-h", "--help":
		usage()
		return
	case "version", "--version":
		fmt.Println(version)
		return
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "gcpinv: unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}
	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "gcpinv: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the CLI logger; verbose enables debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
