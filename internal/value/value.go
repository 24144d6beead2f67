// Package value defines the typed literal tree that the extractor, parser,
// canonicaliser, pass engine, and emitter all operate on. A Value is a
// tagged union over Null, Bool, Number, String, Array, Object, and
// Reference, modeled as a struct with a Kind discriminator rather than an
// interface, so that the pass engine's traversals switch on Kind instead of
// type-switching over interface{}.
package value

// Kind discriminates the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of an Object. Objects preserve
// insertion order for output; order is irrelevant to equivalence, which
// always compares by key regardless of Members slice order.
type Member struct {
	Key   string
	Value Value
}

// Value is a node in a literal tree. Exactly one of the fields below is
// meaningful, selected by Kind:
//
//	KindBool      -> Bool
//	KindNumber    -> Lexical (the original source text, e.g. "1.50e3",
//	                 preserved verbatim to avoid float round-trips)
//	KindString    -> Str
//	KindArray     -> Elements
//	KindObject    -> Members
//	KindReference -> RefName
//
// KindNull carries no payload.
type Value struct {
	Kind     Kind
	Bool     bool
	Lexical  string
	Str      string
	Elements []Value
	Members  []Member
	RefName  string
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric Value preserving its lexical source form.
func Number(lexical string) Value { return Value{Kind: KindNumber, Lexical: lexical} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array returns an Array Value wrapping the given elements in declared order.
func Array(elems ...Value) Value { return Value{Kind: KindArray, Elements: elems} }

// Object returns an Object Value wrapping the given members in insertion order.
func Object(members ...Member) Value { return Value{Kind: KindObject, Members: members} }

// Reference returns a Reference Value standing in for an extraction name.
func Reference(name string) Value { return Value{Kind: KindReference, RefName: name} }

// IsContainer reports whether v is an Array or Object, i.e. capable of
// having Object/Array descendants.
func (v Value) IsContainer() bool {
	return v.Kind == KindArray || v.Kind == KindObject
}

// Depth returns the maximum nesting depth of v. A scalar or Reference has
// depth 1; a container's depth is 1 + the maximum depth of its children (0
// if it has none).
func (v Value) Depth() int {
	switch v.Kind {
	case KindArray:
		max := 0
		for _, e := range v.Elements {
			if d := e.Depth(); d > max {
				max = d
			}
		}
		return 1 + max
	case KindObject:
		max := 0
		for _, m := range v.Members {
			if d := m.Value.Depth(); d > max {
				max = d
			}
		}
		return 1 + max
	default:
		return 1
	}
}

// Equal reports whether v and other are structurally equal. Object member
// order never matters. Array element order matters unless orderInsensitive
// reports true for the key under which the array is nested; the top-level
// call itself is never order-insensitive, so two top-level Arrays are always
// compared element by element.
//
// This is a test-harness-only operation: production code
// compares canonical forms/digests instead, via the canon package.
func Equal(a, b Value, orderInsensitiveKeys map[string]bool) bool {
	return equal(a, b, orderInsensitiveKeys, false)
}

func equal(a, b Value, insensitive map[string]bool, asMultiset bool) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Lexical == b.Lexical
	case KindString:
		return a.Str == b.Str
	case KindReference:
		return a.RefName == b.RefName
	case KindArray:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		if !asMultiset {
			for i := range a.Elements {
				if !equal(a.Elements[i], b.Elements[i], insensitive, false) {
					return false
				}
			}
			return true
		}
		return equalAsMultiset(a.Elements, b.Elements, insensitive)
	case KindObject:
		if len(a.Members) != len(b.Members) {
			return false
		}
		am := membersByKey(a.Members)
		bm := membersByKey(b.Members)
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok {
				return false
			}
			childInsensitive := insensitive[k]
			if !equal(av, bv, insensitive, childInsensitive) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func membersByKey(members []Member) map[string]Value {
	m := make(map[string]Value, len(members))
	for _, mem := range members {
		m[mem.Key] = mem.Value
	}
	return m
}

// equalAsMultiset reports whether a and b contain the same elements up to
// permutation, by greedily matching each element of a to an unused element
// of b. This is adequate for test-harness use (small fixture trees); the
// production path never compares multisets this way, it compares canonical
// strings (see internal/canon).
func equalAsMultiset(a, b []Value, insensitive map[string]bool) bool {
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if used[j] {
				continue
			}
			if equal(av, bv, insensitive, false) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// PathStep is one step of a path from a tree's root to a descendant: either
// an Object key or an Array index. Exactly one of Key/IsIndex+Index is
// meaningful.
type PathStep struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key builds a PathStep selecting an Object member.
func Key(k string) PathStep { return PathStep{Key: k} }

// Index builds a PathStep selecting an Array element.
func Index(i int) PathStep { return PathStep{Index: i, IsIndex: true} }

// ReplaceAt swaps the sub-tree reachable from root by following path with
// replacement, returning the new root. At each level of the path the
// Elements or Members slice is copied (a shallow copy of the sibling
// entries), so the cost grows with the width of each container on the path;
// the siblings' own sub-trees are shared with the original tree, which is
// left unmodified. path must resolve to an existing Object member or
// Array element; ReplaceAt panics on an out-of-range index or missing key,
// since the pass engine only ever calls it with paths it has just walked.
func ReplaceAt(root Value, path []PathStep, replacement Value) Value {
	if len(path) == 0 {
		return replacement
	}
	step := path[0]
	rest := path[1:]
	switch root.Kind {
	case KindArray:
		if !step.IsIndex || step.Index < 0 || step.Index >= len(root.Elements) {
			panic("value: ReplaceAt: index step out of range")
		}
		elems := make([]Value, len(root.Elements))
		copy(elems, root.Elements)
		elems[step.Index] = ReplaceAt(elems[step.Index], rest, replacement)
		root.Elements = elems
		return root
	case KindObject:
		if step.IsIndex {
			panic("value: ReplaceAt: index step on object")
		}
		members := make([]Member, len(root.Members))
		copy(members, root.Members)
		found := false
		for i, m := range members {
			if m.Key == step.Key {
				members[i].Value = ReplaceAt(m.Value, rest, replacement)
				found = true
				break
			}
		}
		if !found {
			panic("value: ReplaceAt: key step not found: " + step.Key)
		}
		root.Members = members
		return root
	default:
		panic("value: ReplaceAt: path descends into a non-container")
	}
}

// At returns the sub-tree reachable from root by following path.
func At(root Value, path []PathStep) (Value, bool) {
	cur := root
	for _, step := range path {
		switch cur.Kind {
		case KindArray:
			if !step.IsIndex || step.Index < 0 || step.Index >= len(cur.Elements) {
				return Value{}, false
			}
			cur = cur.Elements[step.Index]
		case KindObject:
			if step.IsIndex {
				return Value{}, false
			}
			found := false
			for _, m := range cur.Members {
				if m.Key == step.Key {
					cur = m.Value
					found = true
					break
				}
			}
			if !found {
				return Value{}, false
			}
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// CollectReferenceNames appends every distinct Reference name found anywhere
// in v to out, in first-encountered pre-order.
func CollectReferenceNames(v Value, out []string, seen map[string]bool) []string {
	if seen == nil {
		seen = make(map[string]bool)
	}
	switch v.Kind {
	case KindReference:
		if !seen[v.RefName] {
			seen[v.RefName] = true
			out = append(out, v.RefName)
		}
	case KindArray:
		for _, e := range v.Elements {
			out = CollectReferenceNames(e, out, seen)
		}
	case KindObject:
		for _, m := range v.Members {
			out = CollectReferenceNames(m.Value, out, seen)
		}
	}
	return out
}
