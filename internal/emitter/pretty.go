// Package emitter serialises rewritten Value trees back into source text,
// assembles the per-file import declaration and the shared module, and
// performs the atomic write that puts rewritten files in place.
package emitter

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/fellowapp/relay-dedup/internal/value"
)

// indentUnit is the per-level indentation used by the pretty-printer.
// Double-quoted keys are used throughout for portability.
const indentUnit = "  "

// PrettyPrint renders v as an indented object/array literal. References
// render as the bare RefName identifier.
func PrettyPrint(v value.Value) string {
	var b strings.Builder
	writeValue(&b, v, 0)
	return b.String()
}

func writeValue(b *strings.Builder, v value.Value, depth int) {
	switch v.Kind {
	case value.KindNull:
		b.WriteString("null")
	case value.KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case value.KindNumber:
		b.WriteString(v.Lexical)
	case value.KindString:
		writeJSONString(b, v.Str)
	case value.KindReference:
		b.WriteString(v.RefName)
	case value.KindObject:
		writeObject(b, v, depth)
	case value.KindArray:
		writeArray(b, v, depth)
	}
}

func writeObject(b *strings.Builder, v value.Value, depth int) {
	if len(v.Members) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for i, m := range v.Members {
		b.WriteString(inner)
		writeJSONString(b, m.Key)
		b.WriteString(": ")
		writeValue(b, m.Value, depth+1)
		if i < len(v.Members)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteByte('}')
}

func writeArray(b *strings.Builder, v value.Value, depth int) {
	if len(v.Elements) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteString("[\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for i, e := range v.Elements {
		b.WriteString(inner)
		writeValue(b, e, depth+1)
		if i < len(v.Elements)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat(indentUnit, depth))
	b.WriteByte(']')
}

func writeJSONString(b *strings.Builder, s string) {
	encoded, _ := json.Marshal(s)
	b.Write(encoded)
}

// SortedNames returns names sorted lexicographically, matching the order
// import declarations list them in (a fresh slice; the input is never
// mutated).
func SortedNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
