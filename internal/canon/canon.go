// Package canon canonicalises internal/value trees into a deterministic
// UTF-8 string and a content digest, honouring a configured set of
// order-insensitive object keys. The canonical-string algorithm is adapted
// from a deterministic-JSON-for-hashing routine (sorted object keys,
// type-switch-driven recursive encoding into a buffer) generalized here to
// also sort the elements of order-insensitive arrays and to render
// References as a distinguished `R:<name>` token so a Reference can never
// collide with an equal-looking string.
package canon

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/fellowapp/relay-dedup/internal/value"
)

// Digest is a 128-bit content digest rendered as lowercase hex, with the
// canonical string it was computed from retained alongside it so that a
// hash collision can be detected by falling back to string equality.
type Digest struct {
	Hex       string
	Canonical string
}

// KeySet is the set of object keys whose direct Array values are compared
// (and serialised) as multisets rather than in declared order.
type KeySet map[string]bool

// DefaultOrderInsensitiveKeys is the default order-insensitive key set:
// selections, args, and argumentDefinitions commute because GraphQL
// document order carries no semantic meaning for these lists.
func DefaultOrderInsensitiveKeys() KeySet {
	return KeySet{"selections": true, "args": true, "argumentDefinitions": true}
}

// Canonicalize produces the canonical string for v as a fresh top-level
// value: any Array at the top of v is treated as order-sensitive, since v
// has no containing Object key of its own here. Use CanonicalizeInContext
// when v is a candidate sub-tree being re-canonicalised at the Object key
// it was originally nested under (internal/dedup).
func Canonicalize(v value.Value, insensitive KeySet) string {
	return CanonicalizeInContext(v, insensitive, false)
}

// CanonicalizeInContext produces the canonical string for v, treating v
// itself as order-insensitive (were it an Array) iff arrayInsensitive is
// true. The Pass Engine uses this to canonicalise a candidate sub-tree
// exactly as it would have been canonicalised in place, honouring the key
// of the Object member it was found under.
func CanonicalizeInContext(v value.Value, insensitive KeySet, arrayInsensitive bool) string {
	var buf bytes.Buffer
	writeCanonical(&buf, v, insensitive, arrayInsensitive)
	return buf.String()
}

// Hash computes the Digest of v under the given order-insensitive key set,
// as a fresh top-level value (see Canonicalize).
func Hash(v value.Value, insensitive KeySet) Digest {
	return HashCanonical(Canonicalize(v, insensitive))
}

// HashInContext computes the Digest of v exactly as CanonicalizeInContext
// would render it.
func HashInContext(v value.Value, insensitive KeySet, arrayInsensitive bool) Digest {
	return HashCanonical(CanonicalizeInContext(v, insensitive, arrayInsensitive))
}

// HashCanonical computes the Digest of an already-canonicalised string,
// using the 128-bit MD5 sum: any cryptographic hash would suffice here
// since collision resistance, not secrecy, is what matters.
func HashCanonical(canonical string) Digest {
	sum := md5.Sum([]byte(canonical))
	return Digest{Hex: hex.EncodeToString(sum[:]), Canonical: canonical}
}

// Bucket computes a cheap, non-cryptographic structural hash of v directly
// from the Value tree, as a fresh top-level value (see Canonicalize). It
// honours the same key-sort and order-insensitivity rules as the canonical
// string but never allocates one: two values with different Bucket results
// can never canonicalise to the same string, so the Pass Engine groups
// candidates by Bucket first and skips canonicalisation and the MD5 digest
// entirely for any candidate whose bucket has no other member. Equal Bucket
// results do not imply equal canonical form — collisions are expected and
// tolerated — so Bucket is never used as the authoritative dedup key; see
// DESIGN.md.
func Bucket(v value.Value, insensitive KeySet) uint64 {
	return BucketInContext(v, insensitive, false)
}

// BucketInContext is to Bucket as CanonicalizeInContext is to Canonicalize:
// it honours arrayInsensitive for v itself the way the Pass Engine's
// candidate context requires.
func BucketInContext(v value.Value, insensitive KeySet, arrayInsensitive bool) uint64 {
	h := xxh3.New()
	writeBucket(h, v, insensitive, arrayInsensitive)
	return h.Sum64()
}

func valueBucket(v value.Value, insensitive KeySet, arrayInsensitive bool) uint64 {
	h := xxh3.New()
	writeBucket(h, v, insensitive, arrayInsensitive)
	return h.Sum64()
}

func writeBucket(h *xxh3.Hasher, v value.Value, insensitive KeySet, arrayInsensitive bool) {
	switch v.Kind {
	case value.KindNull:
		h.Write([]byte{'n'})
	case value.KindBool:
		if v.Bool {
			h.Write([]byte{'t'})
		} else {
			h.Write([]byte{'f'})
		}
	case value.KindNumber:
		h.Write([]byte{'#'})
		h.Write([]byte(v.Lexical))
	case value.KindString:
		h.Write([]byte{'"'})
		h.Write([]byte(v.Str))
	case value.KindReference:
		h.Write([]byte{'R'})
		h.Write([]byte(v.RefName))
	case value.KindObject:
		writeBucketObject(h, v, insensitive)
	case value.KindArray:
		writeBucketArray(h, v, insensitive, arrayInsensitive)
	}
}

func writeBucketObject(h *xxh3.Hasher, v value.Value, insensitive KeySet) {
	keys := make([]string, len(v.Members))
	byKey := make(map[string]value.Value, len(v.Members))
	for i, m := range v.Members {
		keys[i] = m.Key
		byKey[m.Key] = m.Value
	}
	sort.Strings(keys)

	h.Write([]byte{'{'})
	for _, k := range keys {
		h.Write([]byte{'k'})
		h.Write([]byte(k))
		writeBucket(h, byKey[k], insensitive, insensitive[k])
	}
	h.Write([]byte{'}'})
}

func writeBucketArray(h *xxh3.Hasher, v value.Value, insensitive KeySet, arrayInsensitive bool) {
	h.Write([]byte{'['})
	if !arrayInsensitive {
		for _, e := range v.Elements {
			writeBucket(h, e, insensitive, false)
		}
		h.Write([]byte{']'})
		return
	}

	sums := make([]uint64, len(v.Elements))
	for i, e := range v.Elements {
		sums[i] = valueBucket(e, insensitive, false)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i] < sums[j] })

	var buf [8]byte
	for _, s := range sums {
		binary.LittleEndian.PutUint64(buf[:], s)
		h.Write(buf[:])
	}
	h.Write([]byte{']'})
}

func writeCanonical(buf *bytes.Buffer, v value.Value, insensitive KeySet, arrayInsensitive bool) {
	switch v.Kind {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.KindNumber:
		buf.WriteString(v.Lexical)
	case value.KindString:
		writeJSONString(buf, v.Str)
	case value.KindReference:
		buf.WriteString("R:")
		buf.WriteString(v.RefName)
	case value.KindObject:
		writeCanonicalObject(buf, v, insensitive)
	case value.KindArray:
		writeCanonicalArray(buf, v, insensitive, arrayInsensitive)
	}
}

func writeCanonicalObject(buf *bytes.Buffer, v value.Value, insensitive KeySet) {
	keys := make([]string, len(v.Members))
	byKey := make(map[string]value.Value, len(v.Members))
	for i, m := range v.Members {
		keys[i] = m.Key
		byKey[m.Key] = m.Value
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, k)
		buf.WriteByte(':')
		writeCanonical(buf, byKey[k], insensitive, insensitive[k])
	}
	buf.WriteByte('}')
}

func writeCanonicalArray(buf *bytes.Buffer, v value.Value, insensitive KeySet, arrayInsensitive bool) {
	if !arrayInsensitive {
		buf.WriteByte('[')
		for i, e := range v.Elements {
			if i > 0 {
				buf.WriteByte(',')
			}
			// Nested arrays inside an order-sensitive array context remain
			// order-sensitive unless their own containing key says otherwise;
			// there is no containing key here, so false.
			writeCanonical(buf, e, insensitive, false)
		}
		buf.WriteByte(']')
		return
	}

	rendered := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		var eb bytes.Buffer
		// An order-insensitive Array is commutative at the depth of its
		// own direct elements only; a nested Array's order is preserved
		// unless ITS containing key is itself order-insensitive, so
		// children are canonicalised with arrayInsensitive reset to false.
		writeCanonical(&eb, e, insensitive, false)
		rendered[i] = eb.String()
	}
	sort.Strings(rendered)

	buf.WriteByte('[')
	for i, s := range rendered {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s)
	}
	buf.WriteByte(']')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// encoding/json already produces the canonical double-quoted, escaped
	// form this requires for strings and quoted keys.
	b, _ := json.Marshal(s)
	buf.Write(b)
}
