package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fellowapp/relay-dedup/internal/canon"
	"github.com/fellowapp/relay-dedup/internal/value"
)

// identityTriple builds the recurring ScalarField identity leaf used by
// Scenario A: {alias:null,args:null,kind:"ScalarField",name:<name>,storageKey:null}.
func identityTriple(name string) value.Value {
	return value.Object(
		value.Member{Key: "alias", Value: value.Null()},
		value.Member{Key: "args", Value: value.Null()},
		value.Member{Key: "kind", Value: value.String("ScalarField")},
		value.Member{Key: "name", Value: value.String(name)},
		value.Member{Key: "storageKey", Value: value.Null()},
	)
}

func argObject(name string) value.Value {
	return value.Object(value.Member{Key: "kind", Value: value.String("Literal")}, value.Member{Key: "name", Value: value.String(name)})
}

func newEngine(minOcc int) *Engine {
	cfg := DefaultConfig()
	cfg.MinOccurrences = minOcc
	return NewEngine(cfg)
}

// TestScenarioA_IdentityLeafTriples: the same identity leaf in three files
// is promoted to a single Extraction, and every site is replaced.
func TestScenarioA_IdentityLeafTriples(t *testing.T) {
	triple := identityTriple("id_field_in_all_3_files")
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "a", Value: triple})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "b", Value: triple})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "c", Value: triple})},
	}

	e := newEngine(2)
	stats, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	assert.False(t, stats.ExhaustedPasses)
	require.Equal(t, 1, e.Table().Len())

	for _, f := range files {
		assert.True(t, f.Rewritten)
		require.Len(t, f.Root.Members, 1)
		assert.Equal(t, value.KindReference, f.Root.Members[0].Value.Kind)
	}

	name := e.Table().Extractions()[0].Name
	for _, f := range files {
		assert.Equal(t, name, f.Root.Members[0].Value.RefName)
	}
}

// TestScenarioB_MultiArgArrayOrderInsensitive: an args Array appears in all
// three files with its two elements possibly permuted; all three still
// collapse to one Extraction.
func TestScenarioB_MultiArgArrayOrderInsensitive(t *testing.T) {
	a := argObject("multi_arg_A_appears_3x")
	b := argObject("multi_arg_B_appears_3x")

	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(a, b)})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(b, a)})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(a, b)})},
	}

	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)

	// These three fixtures are otherwise identical, so convergence cascades
	// all the way to the file root (a correct, stronger instance of the
	// same behaviour); assert on the shape of the args Array's own
	// Extraction rather than assume a fixed final nesting depth.
	foundArgsArrayExtraction := false
	for _, ext := range e.Table().Extractions() {
		if ext.Content.Kind == value.KindArray && len(ext.Content.Elements) == 2 &&
			ext.Content.Elements[0].Kind == value.KindReference && ext.Content.Elements[1].Kind == value.KindReference {
			foundArgsArrayExtraction = true
		}
	}
	assert.True(t, foundArgsArrayExtraction, "expected the permuted args array to collapse to a single Extraction regardless of element order")

	// Every file must converge to the same final shape.
	assert.Equal(t, files[0].Root.Kind, files[1].Root.Kind)
	assert.Equal(t, files[0].Root.Kind, files[2].Root.Kind)
	if files[0].Root.Kind == value.KindReference {
		assert.Equal(t, files[0].Root.RefName, files[1].Root.RefName)
		assert.Equal(t, files[0].Root.RefName, files[2].Root.RefName)
	}
}

// TestScenarioC_SingleArgArrayCascades validates multi-pass cascading: a
// one-element Array is not itself a duplicate of anything until its sole
// child has been extracted in an earlier pass, at which point the
// now-leaf Array is promoted too.
func TestScenarioC_SingleArgArrayCascades(t *testing.T) {
	inner := func() value.Value { return argObject("single_arg_appears_3x_NOT_array_extracted") }

	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(inner())})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(inner())})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "args", Value: value.Array(inner())})},
	}

	e := newEngine(2)
	stats, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.PassesRun, 2, "the wrapping array cannot be a candidate until the inner object is extracted in an earlier pass")

	// The one-element wrapping Array must itself eventually be promoted
	// (not merely its sole child): look for an Extraction whose content is
	// a single-element Array wrapping a Reference. These fixtures are
	// otherwise identical across all three files, so cascading continues
	// past the array all the way to the shared file root, which is a
	// correct, stronger instance of the same cascading behaviour.
	foundWrappingArray := false
	for _, ext := range e.Table().Extractions() {
		if ext.Content.Kind == value.KindArray && len(ext.Content.Elements) == 1 && ext.Content.Elements[0].Kind == value.KindReference {
			foundWrappingArray = true
		}
	}
	assert.True(t, foundWrappingArray, "expected the one-element array to cascade into its own Extraction")
}

// TestScenarioD_CascadingSelectionsArray: once identical inner ScalarField
// leaves are extracted in pass 1, their common parent selections Array
// becomes a leaf and is extracted in pass 2.
func TestScenarioD_CascadingSelectionsArray(t *testing.T) {
	selections := func() value.Value {
		return value.Array(identityTriple("id"), identityTriple("name"))
	}
	pageInfo := func() value.Value {
		return value.Object(
			value.Member{Key: "kind", Value: value.String("LinkedField")},
			value.Member{Key: "name", Value: value.String("pageInfo")},
			value.Member{Key: "selections", Value: selections()},
		)
	}

	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "pageInfo", Value: pageInfo()})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "pageInfo", Value: pageInfo()})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "pageInfo", Value: pageInfo()})},
	}

	e := newEngine(2)
	stats, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.PassesRun, 2)

	// The selections Array must itself have been promoted once its two
	// ScalarField children became References (cascading): look for an
	// Extraction whose content is exactly that shape. pageInfo itself may
	// cascade further (it too becomes identical-everywhere once selections
	// is a Reference), which is a correct, stronger form of the same
	// invariant, so the root position is not asserted directly.
	foundSelectionsExtraction := false
	for _, ext := range e.Table().Extractions() {
		if ext.Content.Kind == value.KindArray && len(ext.Content.Elements) == 2 {
			allRefs := true
			for _, el := range ext.Content.Elements {
				if el.Kind != value.KindReference {
					allRefs = false
				}
			}
			if allRefs {
				foundSelectionsExtraction = true
			}
		}
	}
	assert.True(t, foundSelectionsExtraction, "expected the selections array to cascade into its own Extraction once its children were References")
}

// TestScenarioE_OrderSensitiveVsInsensitive: the same two elements permuted
// match under the order-insensitive "selections" key but not under the
// order-sensitive "children" key.
func TestScenarioE_OrderSensitiveVsInsensitive(t *testing.T) {
	a := value.String("A")
	b := value.String("B")

	insensitiveFiles := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "selections", Value: value.Array(a, b)})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "selections", Value: value.Array(b, a)})},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), insensitiveFiles)
	require.NoError(t, err)

	// The two files are otherwise identical, so convergence may cascade all
	// the way to the root (a correct, stronger instance of the same
	// behaviour) rather than stopping at the selections member; either way
	// the two files must converge to the same final shape.
	refNameAt := func(f *FileRecord) string {
		if f.Root.Kind == value.KindReference {
			return f.Root.RefName
		}
		require.Equal(t, value.KindReference, f.Root.Members[0].Value.Kind)
		return f.Root.Members[0].Value.RefName
	}
	assert.Equal(t, refNameAt(insensitiveFiles[0]), refNameAt(insensitiveFiles[1]))

	sensitiveFiles := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "children", Value: value.Array(a, b)})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "children", Value: value.Array(b, a)})},
	}
	e2 := newEngine(2)
	_, err = e2.Run(context.Background(), sensitiveFiles)
	require.NoError(t, err)
	// Scalars are never leaf candidates and the two Arrays canonicalise
	// differently under a sensitive key, so neither is ever promoted.
	assert.Equal(t, 0, e2.Table().Len())
	assert.Equal(t, value.KindArray, sensitiveFiles[0].Root.Members[0].Value.Kind)
}

// TestScenarioF_Idempotence: running the engine again over its own output
// (plain FileRecords carrying the already-rewritten trees, with no new
// duplication introduced) produces no further extractions.
func TestScenarioF_Idempotence(t *testing.T) {
	triple := identityTriple("id_field_in_all_3_files")
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "a", Value: triple})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "b", Value: triple})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "c", Value: triple})},
	}

	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	firstNames := map[string]bool{}
	for _, ext := range e.Table().Extractions() {
		firstNames[ext.Name] = true
	}

	// A second run re-uses a fresh engine (as a second process invocation
	// would), over files already containing References: no candidate can
	// duplicate a Reference-only leaf any further.
	second := make([]*FileRecord, len(files))
	for i, f := range files {
		second[i] = &FileRecord{Path: f.Path, Root: f.Root}
	}
	e2 := newEngine(2)
	stats2, err := e2.Run(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.Extractions)
	for _, f := range second {
		assert.False(t, f.Rewritten)
	}
}

// TestMinOccurrences_ThresholdNotCrossed verifies invariant 4: no Extraction
// exists whose reference count is below min_occurrences.
func TestMinOccurrences_ThresholdNotCrossed(t *testing.T) {
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: identityTriple("only_once")},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Table().Len())
	assert.Equal(t, value.KindObject, files[0].Root.Kind)
}

// TestEmptyContainer_BelowLengthThresholdNeverExtracted covers the
// boundary case: an empty Array, despite appearing many times, is never
// promoted because its canonical form is shorter than minCanonicalLen.
func TestEmptyContainer_BelowLengthThresholdNeverExtracted(t *testing.T) {
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "x", Value: value.Array()})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "x", Value: value.Array()})},
		{Path: "f3.graphql.ts", Root: value.Object(value.Member{Key: "x", Value: value.Array()})},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Table().Len())
}

// TestRootAsCandidate: a file whose entire tree is itself a leaf candidate
// can be extracted, collapsing the root to a bare Reference.
func TestRootAsCandidate(t *testing.T) {
	triple := identityTriple("root_level")
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: triple},
		{Path: "f2.graphql.ts", Root: triple},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	require.Equal(t, 1, e.Table().Len())
	for _, f := range files {
		assert.Equal(t, value.KindReference, f.Root.Kind)
	}
}

// TestSharedModuleWellFormedness covers invariant 5: every Extraction's
// content may only reference names promoted strictly before it in the
// table's insertion order.
func TestSharedModuleWellFormedness(t *testing.T) {
	selections := func() value.Value {
		return value.Array(identityTriple("id"), identityTriple("name"))
	}
	pageInfo := func() value.Value {
		return value.Object(
			value.Member{Key: "kind", Value: value.String("LinkedField")},
			value.Member{Key: "selections", Value: selections()},
		)
	}
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "pageInfo", Value: pageInfo()})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "pageInfo", Value: pageInfo()})},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)

	defined := map[string]bool{}
	for _, ext := range e.Table().Extractions() {
		refs := value.CollectReferenceNames(ext.Content, nil, nil)
		for _, r := range refs {
			assert.True(t, defined[r], "extraction %s references %s before it is defined", ext.Name, r)
		}
		defined[ext.Name] = true
	}
	assert.GreaterOrEqual(t, len(defined), 2)
}

// TestLeafOnlyExtractions covers invariant 7: every Extraction's content is
// a leaf candidate (no Object/Array descendants other than References).
func TestLeafOnlyExtractions(t *testing.T) {
	triple := identityTriple("x")
	files := []*FileRecord{
		{Path: "f1.graphql.ts", Root: value.Object(value.Member{Key: "a", Value: triple})},
		{Path: "f2.graphql.ts", Root: value.Object(value.Member{Key: "b", Value: triple})},
	}
	e := newEngine(2)
	_, err := e.Run(context.Background(), files)
	require.NoError(t, err)
	for _, ext := range e.Table().Extractions() {
		assert.True(t, isLeafCandidate(ext.Content), "extraction %s is not a leaf candidate", ext.Name)
	}
}

func TestEnumerateCandidates_RootIncluded(t *testing.T) {
	root := identityTriple("leaf")
	cands := enumerateCandidates(root, canon.DefaultOrderInsensitiveKeys())
	require.Len(t, cands, 1)
	assert.Empty(t, cands[0].path)
}
