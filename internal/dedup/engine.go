package dedup

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fellowapp/relay-dedup/internal/canon"
	"github.com/fellowapp/relay-dedup/internal/names"
	"github.com/fellowapp/relay-dedup/internal/pipeline"
	"github.com/fellowapp/relay-dedup/internal/value"
)

// minCanonicalLen is the boundary-case threshold of a candidate
// whose canonical form is shorter than this is never promoted, even if it
// crosses min_occurrences, because an empty `{}`/`[]` (and near-empty
// leaves) cost more to extract than they save.
const minCanonicalLen = 8

// Config configures one Engine run. Defaults mirror the CLI flag defaults.
type Config struct {
	// MinOccurrences is the promotion threshold; a digest with fewer total
	// occurrence sites across the corpus is never promoted. Minimum 2.
	MinOccurrences int

	// MaxPasses bounds the fixed-point loop.
	MaxPasses int

	// OrderInsensitiveKeys is the set of Object keys whose direct Array
	// value is compared (and canonicalised) as a multiset.
	OrderInsensitiveKeys canon.KeySet
}

// DefaultConfig returns the CLI's documented defaults.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:       2,
		MaxPasses:            50,
		OrderInsensitiveKeys: canon.DefaultOrderInsensitiveKeys(),
	}
}

// Engine drives the Pass Engine loop over a fixed in-memory set of
// FileRecords. It owns the shared table and the name allocator; both are
// passed in explicitly at construction rather than held as package-level
// state.
type Engine struct {
	cfg       Config
	allocator *names.Allocator
	table     *SharedTable
}

// NewEngine constructs an Engine with a fresh allocator and shared table.
func NewEngine(cfg Config) *Engine {
	if cfg.MinOccurrences < 2 {
		cfg.MinOccurrences = 2
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = 50
	}
	if cfg.OrderInsensitiveKeys == nil {
		cfg.OrderInsensitiveKeys = canon.DefaultOrderInsensitiveKeys()
	}
	return &Engine{cfg: cfg, allocator: names.New(), table: NewSharedTable()}
}

// Table returns the engine's shared table, populated after Run.
func (e *Engine) Table() *SharedTable { return e.table }

// Run repeatedly passes over files until no digest qualifies for promotion
// or cfg.MaxPasses is reached, mutating each FileRecord's Root in place as
// sub-trees are promoted and rewritten. Files must already be sorted by
// Path; the engine relies on that order for determinism and does not re-sort defensively.
func (e *Engine) Run(ctx context.Context, files []*FileRecord) (pipeline.RunStats, error) {
	var stats pipeline.RunStats

	for pass := 1; pass <= e.cfg.MaxPasses; pass++ {
		promoted, err := e.runPass(ctx, files)
		if err != nil {
			return stats, err
		}
		stats.PassesRun = pass
		stats.Extractions = e.table.Len()
		if promoted == 0 {
			return stats, nil
		}
	}

	stats.ExhaustedPasses = true
	return stats, nil
}

// runPass performs one enumerate/tally/promote/rewrite cycle and returns
// the number of digests promoted during it.
func (e *Engine) runPass(ctx context.Context, files []*FileRecord) (int, error) {
	perFile, err := e.enumerateAll(ctx, files)
	if err != nil {
		return 0, err
	}

	order, entries := e.tally(perFile)

	type pending struct {
		path []value.PathStep
		name string
	}
	rewrites := make(map[int][]pending)
	promotedCount := 0

	for _, key := range order {
		entry := entries[key]
		if len(entry.digest.Canonical) < minCanonicalLen {
			continue
		}
		if len(entry.occurrences) < e.cfg.MinOccurrences {
			continue
		}

		name, err := e.allocator.Allocate(entry.digest.Hex)
		if err != nil {
			return promotedCount, pipeline.NewOverflowError(entry.digest.Hex, err)
		}
		if !e.table.Has(name) {
			// The representative content is the first-encountered occurrence
			// in sorted-path, pre-order traversal order.
			e.table.Add(Extraction{
				Name:    name,
				Digest:  entry.digest.Hex,
				Content: entry.occurrences[0].node,
			})
			promotedCount++
		}

		for _, occ := range entry.occurrences {
			rewrites[occ.fileIndex] = append(rewrites[occ.fileIndex], pending{path: occ.path, name: name})
		}
	}

	if promotedCount == 0 {
		return 0, nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for fileIndex, reps := range rewrites {
		fileIndex, reps := fileIndex, reps
		g.Go(func() error {
			root := files[fileIndex].Root
			for _, r := range reps {
				root = value.ReplaceAt(root, r.path, value.Reference(r.name))
			}
			files[fileIndex].Root = root
			files[fileIndex].Rewritten = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return promotedCount, err
	}

	return promotedCount, nil
}

// occurrence is one candidate match site, tagged with the file it was
// found in for the rewrite step.
type occurrence struct {
	fileIndex int
	path      []value.PathStep
	node      value.Value
}

// digestEntry groups every occurrence sharing one digest+canonical key.
type digestEntry struct {
	digest      canon.Digest
	occurrences []occurrence
}

// enumerateAll runs candidate enumeration across every file in parallel,
// bounded by runtime.NumCPU() concurrent workers.
func (e *Engine) enumerateAll(ctx context.Context, files []*FileRecord) ([][]candidate, error) {
	perFile := make([][]candidate, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range files {
		i := i
		g.Go(func() error {
			perFile[i] = enumerateCandidates(files[i].Root, e.cfg.OrderInsensitiveKeys)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perFile, nil
}

// entryKey distinguishes groups by both digest hex and canonical string, so
// that a forced hash collision (two different canonical forms sharing a
// hex digest) never merges unrelated content — the fallback described in
// "Canonical form vs digest as dedup key".
type entryKey string

func keyFor(d canon.Digest) entryKey {
	return entryKey(d.Hex + "\x00" + d.Canonical)
}

// bucketed is one candidate after the cheap xxh3 pre-filter hash has been
// computed, still tagged with its scan sequence so the final entry order
// can be restored once digests are computed out of scan order.
type bucketed struct {
	fi  int
	c   candidate
	seq int
}

// tally computes per-digest occurrence groups across all files, honouring
// file processing order (files must already be Path-sorted) and pre-order
// traversal within each file, so that "order" reflects first-seen sequence
// deterministically. perFile[i] must be in the same pre-order
// enumerateCandidates produced for files[i].
//
// Candidates are first grouped by the cheap xxh3 structural bucket hash
// (internal/canon.BucketInContext); a candidate alone in its bucket cannot
// canonicalise to the same string as any other candidate, so it can never
// cross min_occurrences and the comparatively expensive canonicalisation +
// MD5 digest pass is skipped for it entirely.
func (e *Engine) tally(perFile [][]candidate) ([]entryKey, map[entryKey]*digestEntry) {
	buckets := make(map[uint64][]bucketed)
	seq := 0
	for fi, cands := range perFile {
		for _, c := range cands {
			b := canon.BucketInContext(c.node, e.cfg.OrderInsensitiveKeys, c.insensitive)
			buckets[b] = append(buckets[b], bucketed{fi: fi, c: c, seq: seq})
			seq++
		}
	}

	entries := make(map[entryKey]*digestEntry)
	firstSeq := make(map[entryKey]int)

	for _, group := range buckets {
		if len(group) < 2 {
			continue
		}
		for _, item := range group {
			canonical := canon.CanonicalizeInContext(item.c.node, e.cfg.OrderInsensitiveKeys, item.c.insensitive)
			digest := canon.HashCanonical(canonical)
			key := keyFor(digest)
			entry, ok := entries[key]
			if !ok {
				entry = &digestEntry{digest: digest}
				entries[key] = entry
				firstSeq[key] = item.seq
			}
			entry.occurrences = append(entry.occurrences, occurrence{fileIndex: item.fi, path: item.c.path, node: item.c.node})
		}
	}

	order := make([]entryKey, 0, len(entries))
	for key := range entries {
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool { return firstSeq[order[i]] < firstSeq[order[j]] })

	return order, entries
}
