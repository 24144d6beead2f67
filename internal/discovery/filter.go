package discovery

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ArtifactFilter recognises generated-artifact files by suffix and excludes the configured shared-module output file,
// wherever it lives in the scan tree, via doublestar glob matching.
type ArtifactFilter struct {
	suffix     string
	outputPath string // scan-root-relative path to exclude
	outputGlob string
}

// NewArtifactFilter builds a filter matching paths ending in suffix,
// excluding outputPath (the configured shared-module filename, relative to
// the scan root).
func NewArtifactFilter(suffix, outputPath string) *ArtifactFilter {
	return &ArtifactFilter{
		suffix:     suffix,
		outputPath: filepath.ToSlash(outputPath),
		outputGlob: "**/" + filepath.ToSlash(outputPath),
	}
}

// Matches reports whether path (relative to the scan root, forward-slash
// separated) is an eligible artifact file.
func (f *ArtifactFilter) Matches(path string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "./")

	if normalized == f.outputPath {
		return false
	}
	if matched, _ := doublestar.Match(f.outputGlob, normalized); matched {
		return false
	}

	return strings.HasSuffix(normalized, f.suffix)
}
