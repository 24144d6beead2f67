// Package discovery implements the recursive scan that finds generated
// artifact files under a scan root, applying the ignore chain and the
// artifact-suffix filter.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fellowapp/relay-dedup/internal/pipeline"
)

// WalkerConfig holds configuration for one scan.
type WalkerConfig struct {
	// Root is the directory to walk recursively.
	Root string

	// GitignoreMatcher handles .gitignore pattern matching.
	GitignoreMatcher Ignorer

	// DefaultIgnorer handles the built-in ignore patterns.
	DefaultIgnorer Ignorer

	// ArtifactFilter recognises eligible artifact files by suffix and
	// excludes the configured shared-module output path.
	ArtifactFilter *ArtifactFilter

	// Concurrency is the maximum number of parallel file-reading workers.
	// Defaults to runtime.NumCPU() if <= 0.
	Concurrency int
}

// Walker traverses a directory tree, applies all filtering criteria, and
// reads matching file contents in parallel using bounded concurrency.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{logger: slog.Default().With("component", "walker")}
}

// Walk discovers artifact files in the tree rooted at cfg.Root and reads
// their contents in parallel. Returns results sorted alphabetically by path
//.
//
// The walk proceeds in two phases:
//  1. Walking: filepath.WalkDir traverses the tree, applying the ignore
//     chain and the artifact filter. Matching files become FileDescriptors.
//  2. Content loading: errgroup workers read file contents in parallel.
//     Per-file read errors are captured in FileDescriptor.Error rather than
//     aborting the walk; the caller decides whether that is fatal.
func (w *Walker) Walk(ctx context.Context, cfg WalkerConfig) (*pipeline.DiscoveryResult, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", cfg.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	composite := NewCompositeIgnorer(cfg.DefaultIgnorer, cfg.GitignoreMatcher)

	var files []*pipeline.FileDescriptor
	skipReasons := make(map[string]int)
	var mu sync.Mutex
	totalFound := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			w.logger.Debug("walk error", "path", path, "error", walkErr)
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == "." {
			return nil
		}

		isDir := d.IsDir()

		if isDir && d.Name() == ".git" {
			return fs.SkipDir
		}

		if composite.IsIgnored(relPath, isDir) {
			if isDir {
				mu.Lock()
				skipReasons["ignored_dir"]++
				mu.Unlock()
				return fs.SkipDir
			}
			mu.Lock()
			totalFound++
			skipReasons["ignored"]++
			mu.Unlock()
			return nil
		}

		if isDir {
			return nil
		}

		mu.Lock()
		totalFound++
		mu.Unlock()

		if cfg.ArtifactFilter != nil && !cfg.ArtifactFilter.Matches(relPath) {
			mu.Lock()
			skipReasons["not_artifact"]++
			mu.Unlock()
			return nil
		}

		fileInfo, err := os.Stat(path)
		if err != nil {
			w.logger.Debug("stat error", "path", relPath, "error", err)
			mu.Lock()
			skipReasons["stat_error"]++
			mu.Unlock()
			return nil
		}

		fd := &pipeline.FileDescriptor{
			Path:    relPath,
			AbsPath: path,
			Size:    fileInfo.Size(),
		}
		mu.Lock()
		files = append(files, fd)
		mu.Unlock()

		return nil
	})

	if walkErr != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, walkErr)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for _, fd := range files {
		fd := fd
		g.Go(func() error {
			content, err := readFile(gctx, fd.AbsPath)
			if err != nil {
				fd.Error = fmt.Errorf("reading %s: %w", fd.Path, err)
				w.logger.Debug("file read error", "path", fd.Path, "error", err)
				return nil
			}
			fd.Content = content
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading file contents: %w", err)
	}

	resultFiles := make([]pipeline.FileDescriptor, len(files))
	for i, fd := range files {
		resultFiles[i] = *fd
	}

	totalSkipped := 0
	for _, count := range skipReasons {
		totalSkipped += count
	}

	result := &pipeline.DiscoveryResult{
		Files:        resultFiles,
		TotalFound:   totalFound,
		TotalSkipped: totalSkipped,
		SkipReasons:  skipReasons,
	}

	w.logger.Info("discovery complete",
		"files", len(resultFiles),
		"total_found", totalFound,
		"total_skipped", totalSkipped,
	)

	return result, nil
}

// readFile reads the entire content of a file, honoring context
// cancellation before starting the read.
func readFile(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
