package emitter

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fellowapp/relay-dedup/internal/pipeline"
)

// WriteAtomic writes content to path by first writing to a temporary
// sibling file and then renaming it into place: if any file fails partway
// through a run, already-renamed files are left in place and the error is
// reported, and any subsequent run is idempotent. The temp filename's
// uniqueness suffix is a fresh UUID, so concurrent writers (or a crashed
// prior run) never collide on it.
func WriteAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return pipeline.NewIOError(path, "write temporary file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return pipeline.NewIOError(path, "rename temporary file into place", err)
	}
	return nil
}
