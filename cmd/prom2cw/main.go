package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prom2cw/internal/app"
)

const (
	exitCodeFailure = 1
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// run executes one federate-to-CloudWatch pass.
// Params: none.
// Returns: process exit code.
func run() int {
	var (
		configPath string
		envFile    string
		dryRun     bool
		showInfo   bool
	)

	flag.StringVar(&configPath, "config", "", "path to TOML config file or directory (default: environment only)")
	flag.StringVar(&envFile, "env-file", "", "optional dotenv file loaded before reading configuration")
	flag.BoolVar(&dryRun, "dry-run", false, "log batches instead of submitting them to CloudWatch")
	flag.BoolVar(&showInfo, "v", false, "show build information")
	flag.BoolVar(&showInfo, "version", false, "show build information")
	flag.Parse()

	if showInfo {
		fmt.Printf("prom2cw version=%s commit=%s date=%s\n", version, commit, date)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := app.Runtime{
		ConfigPath: configPath,
		EnvFile:    envFile,
		DryRun:     dryRun,
	}
	if err := app.Run(ctx, rt); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFailure
	}

	return 0
}

func main() {
	os.Exit(run())
}
