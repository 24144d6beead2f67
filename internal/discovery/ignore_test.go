package discovery

import "testing"

type fakeIgnorer struct {
	ignored map[string]bool
}

func (f fakeIgnorer) IsIgnored(path string, isDir bool) bool {
	return f.ignored[path]
}

func TestCompositeIgnorer_AnyMatchIgnores(t *testing.T) {
	t.Parallel()

	a := fakeIgnorer{ignored: map[string]bool{"a": true}}
	b := fakeIgnorer{ignored: map[string]bool{"b": true}}
	c := NewCompositeIgnorer(a, b)

	if !c.IsIgnored("a", false) {
		t.Error("path matched by first ignorer should be ignored")
	}
	if !c.IsIgnored("b", false) {
		t.Error("path matched by second ignorer should be ignored")
	}
	if c.IsIgnored("z", false) {
		t.Error("path matched by neither ignorer should not be ignored")
	}
}

func TestCompositeIgnorer_NilIgnorersSkipped(t *testing.T) {
	t.Parallel()

	c := NewCompositeIgnorer(nil, fakeIgnorer{ignored: map[string]bool{"a": true}}, nil)

	if c.IgnorerCount() != 1 {
		t.Errorf("IgnorerCount() = %d, want 1", c.IgnorerCount())
	}
	if !c.IsIgnored("a", false) {
		t.Error("non-nil ignorer should still be consulted")
	}
}
