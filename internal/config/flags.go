package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Defaults for flags not otherwise overridden.
const (
	DefaultOutput           = "__shared.ts"
	DefaultMinOccurrences   = 2
	DefaultMaxPasses        = 50
	DefaultArtifactSuffix   = ".graphql.ts"
	DefaultOrderInsensitive = "selections,args,argumentDefinitions"
)

// FlagValues collects all parsed CLI flag values. It is
// populated by BindFlags and validated by ValidateFlags.
type FlagValues struct {
	Dir              string
	Output           string
	DryRun           bool
	Verbose          bool
	MinOccurrences   int
	OrderInsensitive []string
	MaxPasses        int
	ShowGzip         bool
	ShowTiming       bool
	SkipConfigCheck  bool
	StatsJSON        bool
}

// BindFlags registers every CLI flag on cmd and returns the struct that
// will hold their parsed values.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.Flags()
	pf.StringVarP(&fv.Output, "output", "o", DefaultOutput, "shared module filename")
	pf.BoolVarP(&fv.DryRun, "dry-run", "n", false, "no writes; print summary")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "verbose diagnostics")
	pf.IntVar(&fv.MinOccurrences, "min-occurrences", DefaultMinOccurrences, "promotion threshold (minimum 2)")
	pf.StringSliceVar(&fv.OrderInsensitive, "order-insensitive", strings.Split(DefaultOrderInsensitive, ","),
		"object keys whose Array values are order-insensitive")
	pf.IntVar(&fv.MaxPasses, "max-passes", DefaultMaxPasses, "maximum number of extraction passes")
	pf.BoolVar(&fv.ShowGzip, "show-gzip", false, "report gzipped size deltas")
	pf.BoolVar(&fv.ShowTiming, "show-timing", false, "report per-phase timings")
	pf.BoolVar(&fv.SkipConfigCheck, "skip-config-check", false, "bypass host-configuration validation")
	pf.BoolVar(&fv.StatsJSON, "stats-json", false, "emit the run summary as JSON to stdout instead of the human-readable report")

	return fv
}

// ValidateFlags applies environment overrides, clamps --min-occurrences to
// its minimum of 2, rejects a --max-passes below 1, and resolves the
// positional scan-root argument.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command, args []string) error {
	applyEnvOverrides(fv, func(name string) bool { return cmd.Flags().Changed(name) })

	if fv.MinOccurrences < 2 {
		fv.MinOccurrences = 2
	}
	if fv.MaxPasses < 1 {
		return ValidationError{Field: "--max-passes", Message: "must be at least 1"}
	}

	switch len(args) {
	case 0:
		// Dir left empty; the caller falls back to host-config artifactDirectory.
	case 1:
		fv.Dir = args[0]
	default:
		return fmt.Errorf("usage: at most one positional directory argument, got %d", len(args))
	}

	return nil
}
