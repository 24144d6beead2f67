package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalker_Walk_FindsArtifactFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "queries/UserQuery.graphql.ts", "const node = {};\nexport default node;\n")
	writeFile(t, root, "queries/UserQuery.ts", "not an artifact")
	writeFile(t, root, "__shared.ts", "export const x_abc = {};\n")

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:           root,
		DefaultIgnorer: NewDefaultIgnoreMatcher(),
		ArtifactFilter: NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "queries/UserQuery.graphql.ts", result.Files[0].Path)
}

func TestWalker_Walk_SortedOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "c.graphql.ts", "")
	writeFile(t, root, "a.graphql.ts", "")
	writeFile(t, root, "b.graphql.ts", "")

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:           root,
		DefaultIgnorer: NewDefaultIgnoreMatcher(),
		ArtifactFilter: NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}
	require.True(t, sort.StringsAreSorted(paths))
}

func TestWalker_Walk_RespectsDefaultIgnores(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/gen.graphql.ts", "")
	writeFile(t, root, "src/real.graphql.ts", "")

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:           root,
		DefaultIgnorer: NewDefaultIgnoreMatcher(),
		ArtifactFilter: NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "src/real.graphql.ts", result.Files[0].Path)
}

func TestWalker_Walk_RespectsGitignore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "generated/gen.graphql.ts", "")
	writeFile(t, root, "src/real.graphql.ts", "")

	gitMatcher, err := NewGitignoreMatcher(root)
	require.NoError(t, err)

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:             root,
		DefaultIgnorer:   NewDefaultIgnoreMatcher(),
		GitignoreMatcher: gitMatcher,
		ArtifactFilter:   NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "src/real.graphql.ts", result.Files[0].Path)
}

func TestWalker_Walk_ReadsContent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "a.graphql.ts", "const node = { x: 1 };\nexport default node;\n")

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:           root,
		DefaultIgnorer: NewDefaultIgnoreMatcher(),
		ArtifactFilter: NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Contains(t, result.Files[0].Content, "const node")
	require.NoError(t, result.Files[0].Error)
}

func TestWalker_Walk_ExcludesOutputFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "__shared.ts", "export const x_abc = {};\n")
	writeFile(t, root, "a.graphql.ts", "")

	w := NewWalker()
	result, err := w.Walk(context.Background(), WalkerConfig{
		Root:           root,
		DefaultIgnorer: NewDefaultIgnoreMatcher(),
		ArtifactFilter: NewArtifactFilter(".graphql.ts", "__shared.ts"),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "a.graphql.ts", result.Files[0].Path)
}

func TestWalker_Walk_NonexistentRoot(t *testing.T) {
	t.Parallel()

	w := NewWalker()
	_, err := w.Walk(context.Background(), WalkerConfig{Root: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
