package emitter

import (
	"strings"

	"github.com/fellowapp/relay-dedup/internal/dedup"
)

// RenderSharedModule emits the shared module: one
// `export const <name> = <literal>;` declaration per Extraction, in the
// table's insertion (promotion) order, terminated by a trailing newline.
// Insertion order guarantees every name is defined before any later
// declaration that references it.
func RenderSharedModule(extractions []dedup.Extraction) []byte {
	var b strings.Builder
	for _, ext := range extractions {
		b.WriteString("export const ")
		b.WriteString(ext.Name)
		b.WriteString(" = ")
		b.WriteString(PrettyPrint(ext.Content))
		b.WriteString(";\n")
	}
	return []byte(b.String())
}
