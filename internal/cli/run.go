package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/fellowapp/relay-dedup/internal/canon"
	"github.com/fellowapp/relay-dedup/internal/config"
	"github.com/fellowapp/relay-dedup/internal/dedup"
	"github.com/fellowapp/relay-dedup/internal/discovery"
	"github.com/fellowapp/relay-dedup/internal/emitter"
	"github.com/fellowapp/relay-dedup/internal/extractor"
	"github.com/fellowapp/relay-dedup/internal/hostconfig"
	"github.com/fellowapp/relay-dedup/internal/parser"
	"github.com/fellowapp/relay-dedup/internal/pipeline"
	"github.com/fellowapp/relay-dedup/internal/report"
	"github.com/fellowapp/relay-dedup/internal/value"
)

// literalRegion is the verbatim bytes surrounding one file's parsed literal,
// kept aside so RenderFile can reassemble the file byte-exact outside the
// rewritten region.
type literalRegion struct {
	prelude  []byte
	postlude []byte
}

// runDedup wires the whole pipeline together: host-configuration validation,
// directory discovery, literal extraction and parsing, the pass engine, and
// emission of the rewritten files plus the shared module. It is the sole
// entry point the root command delegates to -- there is no subcommand
// hierarchy beyond this single operation.
func runDedup(cmd *cobra.Command, fv *config.FlagValues) error {
	ctx := cmd.Context()
	timer := report.NewTimer()
	logger := config.NewLogger("run")

	scanRoot := fv.Dir
	if scanRoot == "" {
		scanRoot = "."
	}

	if !fv.SkipConfigCheck {
		hostCfg, path, err := hostconfig.Discover(scanRoot)
		if err != nil {
			return pipeline.NewConfigError(path, "parse host configuration", err)
		}
		if hostCfg != nil {
			if err := hostCfg.Validate(); err != nil {
				return pipeline.NewConfigError(path, err.Error(), nil)
			}
			if fv.Dir == "" && hostCfg.ArtifactDirectory != "" {
				scanRoot = hostCfg.ArtifactDirectory
				logger.Debug("using artifactDirectory from host configuration", "dir", scanRoot)
			}
		}
	}

	overrides, err := config.LoadOverrides(scanRoot)
	if err != nil {
		return pipeline.NewConfigError(scanRoot, "load override file", err)
	}
	config.ApplyOverrides(fv, overrides, func(name string) bool { return cmd.Flags().Changed(name) })

	gitignoreMatcher, err := discovery.NewGitignoreMatcher(scanRoot)
	if err != nil {
		return pipeline.NewIOError(scanRoot, "load .gitignore patterns", err)
	}

	discoveryResult, err := discovery.NewWalker().Walk(ctx, discovery.WalkerConfig{
		Root:             scanRoot,
		GitignoreMatcher: gitignoreMatcher,
		DefaultIgnorer:   discovery.NewDefaultIgnoreMatcher(),
		ArtifactFilter:   discovery.NewArtifactFilter(config.DefaultArtifactSuffix, fv.Output),
	})
	if err != nil {
		return pipeline.NewIOError(scanRoot, "discover artifact files", err)
	}

	orderInsensitive := canon.KeySet{}
	for _, k := range fv.OrderInsensitive {
		orderInsensitive[k] = true
	}

	var records []*dedup.FileRecord
	regions := make(map[string]literalRegion, len(discoveryResult.Files))
	var originalBytes int64
	skipped := 0

	for _, fd := range discoveryResult.Files {
		if fd.Error != nil {
			return pipeline.NewIOError(fd.Path, "read artifact file", fd.Error)
		}
		originalBytes += fd.Size

		region, ok, err := extractor.Extract([]byte(fd.Content), extractor.DefaultAnchor)
		if err != nil {
			return pipeline.NewParseError(fd.Path, "locate literal region", err)
		}
		if !ok {
			logger.Debug("no literal anchor found, skipping", "path", fd.Path)
			skipped++
			continue
		}

		root, err := parser.Parse(region.Literal, fd.Path)
		if err != nil {
			return pipeline.NewParseError(fd.Path, "parse literal", err)
		}
		if fv.Verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:\n%# v\n", fd.Path, pretty.Formatter(root))
		}

		records = append(records, &dedup.FileRecord{Path: fd.Path, Root: root})
		regions[fd.Path] = literalRegion{prelude: region.Prelude, postlude: region.Postlude}
	}

	engine := dedup.NewEngine(dedup.Config{
		MinOccurrences:       fv.MinOccurrences,
		MaxPasses:            fv.MaxPasses,
		OrderInsensitiveKeys: orderInsensitive,
	})
	stats, err := engine.Run(ctx, records)
	if err != nil {
		return err
	}
	stats.FilesScanned = len(discoveryResult.Files)
	stats.FilesSkipped = skipped
	stats.OriginalBytes = originalBytes

	sharedBasename := strings.TrimSuffix(filepath.Base(fv.Output), filepath.Ext(fv.Output))
	writes := make(map[string][]byte, len(records)+1)

	for _, rec := range records {
		region := regions[rec.Path]
		refNames := value.CollectReferenceNames(rec.Root, nil, nil)
		rendered := emitter.RenderFile(region.prelude, rec.Root, region.postlude, refNames, sharedBasename)
		if rec.Rewritten {
			stats.FilesRewritten++
		}
		writes[filepath.Join(scanRoot, rec.Path)] = rendered
	}

	sharedModule := emitter.RenderSharedModule(engine.Table().Extractions())
	writes[filepath.Join(scanRoot, fv.Output)] = sharedModule

	var rewrittenBytes int64
	for _, content := range writes {
		rewrittenBytes += int64(len(content))
	}
	stats.RewrittenBytes = rewrittenBytes

	if fv.ShowGzip {
		var origBuf, rewrittenBuf bytes.Buffer
		for _, fd := range discoveryResult.Files {
			origBuf.WriteString(fd.Content)
		}
		for _, content := range writes {
			rewrittenBuf.Write(content)
		}
		origGzip, err := report.GzipSize(origBuf.Bytes())
		if err != nil {
			return pipeline.NewIOError("", "compute gzip size of original content", err)
		}
		rewrittenGzip, err := report.GzipSize(rewrittenBuf.Bytes())
		if err != nil {
			return pipeline.NewIOError("", "compute gzip size of rewritten content", err)
		}
		stats.GzipOriginalBytes = origGzip
		stats.GzipRewrittenBytes = rewrittenGzip
	}

	if !fv.DryRun {
		for path, content := range writes {
			if err := emitter.WriteAtomic(path, content); err != nil {
				return err
			}
		}
	} else {
		logger.Info("dry run: no files written", "would_write", len(writes))
	}

	if fv.ShowTiming {
		stats.ElapsedMillis = timer.ElapsedMillis()
	}

	if fv.StatsJSON {
		out, err := report.FormatJSON(stats)
		if err != nil {
			return pipeline.NewIOError("", "marshal stats as JSON", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), report.Format(stats, fv.ShowGzip, fv.ShowTiming))
	}

	if stats.ExhaustedPasses {
		slog.Warn(pipeline.NewExhaustedPassesWarning(fv.MaxPasses).Error())
	}

	return nil
}
