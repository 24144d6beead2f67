package config

import (
	"os"
	"strconv"
)

// Environment variable names for RELAY_DEDUP_ prefixed overrides. Only --output, --min-occurrences, and --max-passes have
// env fallbacks; the remaining flags are CLI-only.
const (
	EnvOutput         = "RELAY_DEDUP_OUTPUT"
	EnvMinOccurrences = "RELAY_DEDUP_MIN_OCCURRENCES"
	EnvMaxPasses      = "RELAY_DEDUP_MAX_PASSES"
)

// applyEnvOverrides fills in fv fields from RELAY_DEDUP_* environment
// variables, but only for flags the user did not explicitly pass on the
// command line (cmd.Flags().Changed reports that).
func applyEnvOverrides(fv *FlagValues, changed func(name string) bool) {
	if v := os.Getenv(EnvOutput); v != "" && !changed("output") {
		fv.Output = v
	}
	if v := os.Getenv(EnvMinOccurrences); v != "" && !changed("min-occurrences") {
		if n, err := strconv.Atoi(v); err == nil {
			fv.MinOccurrences = n
		}
	}
	if v := os.Getenv(EnvMaxPasses); v != "" && !changed("max-passes") {
		if n, err := strconv.Atoi(v); err == nil {
			fv.MaxPasses = n
		}
	}
}
