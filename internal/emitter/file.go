package emitter

import (
	"strings"

	"github.com/fellowapp/relay-dedup/internal/value"
)

// BuildImportDecl renders the single import declaration a rewritten file
// gets: "import { a, b, c } from \"./<basename>\";", names sorted lexicographically.
// sharedBasename excludes the extension (e.g. "__shared" for "__shared.ts").
func BuildImportDecl(names []string, sharedBasename string) string {
	sorted := SortedNames(names)
	return "import { " + strings.Join(sorted, ", ") + " } from \"./" + sharedBasename + "\";\n"
}

// splitLeadingComments finds the boundary between a file's leading banner
// comment(s) — // line comments, /* block comments */, and the blank lines
// between them — and the first non-comment statement, so the import
// declaration can be inserted between them.
func splitLeadingComments(prelude []byte) (banner, rest []byte) {
	i := 0
	for i < len(prelude) {
		j := i
		for j < len(prelude) && isSpaceByte(prelude[j]) {
			j++
		}
		if j+1 < len(prelude) && prelude[j] == '/' && prelude[j+1] == '/' {
			k := j
			for k < len(prelude) && prelude[k] != '\n' {
				k++
			}
			if k < len(prelude) {
				k++
			}
			i = k
			continue
		}
		if j+1 < len(prelude) && prelude[j] == '/' && prelude[j+1] == '*' {
			k := j + 2
			for k+1 < len(prelude) && !(prelude[k] == '*' && prelude[k+1] == '/') {
				k++
			}
			k += 2
			if k > len(prelude) {
				k = len(prelude)
			}
			if k < len(prelude) && prelude[k] == '\n' {
				k++
			}
			i = k
			continue
		}
		break
	}
	return prelude[:i], prelude[i:]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// RenderFile reassembles prelude + rewritten literal + postlude, injecting
// the import declaration (if any names are referenced) after any leading
// file banner comment and before the first non-comment statement. Files that end up with zero references receive
// no import, and the prelude passes through unchanged.
func RenderFile(prelude []byte, root value.Value, postlude []byte, referencedNames []string, sharedBasename string) []byte {
	var b strings.Builder
	if len(referencedNames) == 0 {
		b.Write(prelude)
	} else {
		banner, rest := splitLeadingComments(prelude)
		b.Write(banner)
		if len(banner) > 0 && banner[len(banner)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteString(BuildImportDecl(referencedNames, sharedBasename))
		b.WriteByte('\n')
		b.Write(rest)
	}
	b.WriteString(PrettyPrint(root))
	b.Write(postlude)
	return []byte(b.String())
}
