// Package cli implements the Cobra command hierarchy for the relay-dedup
// CLI tool. The root command defined here is the entry point: there is no
// subcommand hierarchy beyond it, version, and shell completion.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fellowapp/relay-dedup/internal/config"
	"github.com/fellowapp/relay-dedup/internal/pipeline"
)

// flagValues holds the parsed global flag values, populated by config.BindFlags
// during command initialization and validated in PersistentPreRunE.
var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "relay-dedup [directory]",
	Short: "Deduplicate structurally identical literals in generated Relay artifacts.",
	Long: `relay-dedup walks a directory of generated Relay artifact files, finds
sub-structures that are byte-for-byte duplicated (order-insensitively for
selections, args, and argumentDefinitions) two or more times across the
corpus, and rewrites each occurrence to reference a single shared module
entry instead.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFlags(flagValues, cmd, args); err != nil {
			return err
		}

		level := config.ResolveLogLevel(flagValues.Verbose, false)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDedup(cmd, flagValues)
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)
}

// Execute runs the root command and returns an appropriate exit code. If
// the error is a *pipeline.DedupError, its Code is used. Generic errors
// return ExitFailure. Nil returns ExitSuccess.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(pipeline.ExitSuccess)
}

// extractExitCode determines the process exit code from an error. If the
// error is a *pipeline.DedupError, its Code field is used. Otherwise,
// ExitFailure is returned for any non-nil error.
func extractExitCode(err error) int {
	if err == nil {
		return int(pipeline.ExitSuccess)
	}
	var dedupErr *pipeline.DedupError
	if errors.As(err, &dedupErr) {
		return int(dedupErr.Code)
	}
	return int(pipeline.ExitFailure)
}

// RootCmd returns the root cobra.Command for use in testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. This is available
// after PersistentPreRunE has run.
func GlobalFlags() *config.FlagValues {
	return flagValues
}
