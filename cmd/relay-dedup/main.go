// Package main is the entry point for the relay-dedup CLI tool.
package main

import (
	"os"

	"github.com/fellowapp/relay-dedup/internal/buildinfo"
	"github.com/fellowapp/relay-dedup/internal/cli"
)

// Build-time metadata injected via ldflags, mirrored into internal/buildinfo
// before the command tree runs so `relay-dedup version` reports it.
var (
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
	goVersion = "unknown"
)

func main() {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date
	buildinfo.GoVersion = goVersion

	os.Exit(cli.Execute())
}
