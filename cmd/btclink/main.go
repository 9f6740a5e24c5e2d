// Package main is the entry point for the btclink CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrz1836/btclink/internal/cli"
)

// Set at link time with -ldflags "-X main.version=...".
//
//nolint:gochecknoglobals // build metadata injected by the linker
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
