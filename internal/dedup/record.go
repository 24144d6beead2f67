// Package dedup implements the Pass Engine, the component
// that iteratively finds leaf-candidate sub-trees duplicated across a
// corpus of parsed artifact files, promotes them into a shared table under
// allocated short names, and rewrites every occurrence site to a Reference.
package dedup

import "github.com/fellowapp/relay-dedup/internal/value"

// FileRecord is one parsed artifact file tracked across passes. Root is
// replaced, not mutated in place, each time a pass rewrites one of its
// sub-trees (internal/value.ReplaceAt never mutates shared structure).
type FileRecord struct {
	// Path is the file's path relative to the scan root, used for sorted
	// processing order and diagnostics.
	Path string

	// Root is the parsed literal tree for this file.
	Root value.Value

	// Rewritten is set once at least one Reference has been spliced into
	// this file's tree by any pass.
	Rewritten bool
}

// Extraction is one entry promoted into the shared table: an allocated
// name, the digest that earned it promotion, and the representative content
// chosen for it.
type Extraction struct {
	Name    string
	Digest  string
	Content value.Value
}
