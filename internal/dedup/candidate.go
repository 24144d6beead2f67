package dedup

import (
	"github.com/fellowapp/relay-dedup/internal/canon"
	"github.com/fellowapp/relay-dedup/internal/value"
)

// candidate is one leaf-candidate sub-tree found during enumeration,
// together with the path from its file's root and the order-insensitive
// context it was found in.
type candidate struct {
	path        []value.PathStep
	node        value.Value
	insensitive bool
}

// isLeafCandidate reports whether a sub-tree qualifies as a leaf candidate:
// it must itself be an Object or Array and contain no Object or Array
// descendant other than via a Reference (Reference descendants do not
// disqualify it, since a Reference has no children of its own).
func isLeafCandidate(v value.Value) bool {
	if !v.IsContainer() {
		return false
	}
	return !hasContainerDescendant(v)
}

func hasContainerDescendant(v value.Value) bool {
	switch v.Kind {
	case value.KindArray:
		for _, e := range v.Elements {
			if e.IsContainer() || hasContainerDescendant(e) {
				return true
			}
		}
	case value.KindObject:
		for _, m := range v.Members {
			if m.Value.IsContainer() || hasContainerDescendant(m.Value) {
				return true
			}
		}
	}
	return false
}

// enumerateCandidates walks root in depth-first pre-order, testing the leaf predicate at every node,
// including the root itself.
func enumerateCandidates(root value.Value, insensitiveKeys canon.KeySet) []candidate {
	var out []candidate
	var walk func(v value.Value, path []value.PathStep, arrayInsensitive bool)
	walk = func(v value.Value, path []value.PathStep, arrayInsensitive bool) {
		if isLeafCandidate(v) {
			frozen := make([]value.PathStep, len(path))
			copy(frozen, path)
			out = append(out, candidate{path: frozen, node: v, insensitive: arrayInsensitive})
		}
		switch v.Kind {
		case value.KindArray:
			for i, e := range v.Elements {
				walk(e, append(path, value.Index(i)), false)
			}
		case value.KindObject:
			for _, m := range v.Members {
				walk(m.Value, append(path, value.Key(m.Key)), insensitiveKeys[m.Key])
			}
		}
	}
	walk(root, nil, false)
	return out
}
