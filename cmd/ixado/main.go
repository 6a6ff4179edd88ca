// Package main provides the entry point for the ixado CLI.
package main

import (
	"context"
	"os"

	"github.com/ixado/ixado/internal/cli"
)

// Build information, injected via ldflags.
var (
	version = "" //nolint:gochecknoglobals // set at build time
	commit  = "" //nolint:gochecknoglobals // set at build time
	date    = "" //nolint:gochecknoglobals // set at build time
)

func main() {
	ctx := context.Background()
	info := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := cli.Execute(ctx, info); err != nil {
		os.Exit(1)
	}
}
