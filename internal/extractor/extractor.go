// Package extractor locates the default-exported literal region inside an
// artifact file, byte-exact preserving everything before and after it. It
// never parses the literal itself; that is the parser package's job.
package extractor

import (
	"bytes"
	"fmt"
)

// DefaultAnchor is the constant name the extractor looks for when scanning
// for the start of a file's literal: a declaration shaped like
// "const node = {" (or "[" for files whose default export is an array).
const DefaultAnchor = "node"

// Region is the result of a successful extraction: the literal's source
// bytes plus the verbatim bytes that must be reproduced, unmodified, on
// either side of it at emit time.
type Region struct {
	Prelude  []byte
	Literal  []byte
	Postlude []byte
}

// Extract scans src for the anchor declaration and returns the Region
// bounding its literal value. ok is false (with a nil error) when no anchor
// is found; this is not an error, the file is simply
// skipped by the caller.
func Extract(src []byte, anchor string) (region Region, ok bool, err error) {
	start, err := findAnchorOpenBrace(src, anchor)
	if err != nil {
		return Region{}, false, err
	}
	if start < 0 {
		return Region{}, false, nil
	}

	end, err := matchingCloseIndex(src, start)
	if err != nil {
		return Region{}, false, err
	}

	return Region{
		Prelude:  src[:start],
		Literal:  src[start : end+1],
		Postlude: src[end+1:],
	}, true, nil
}

// findAnchorOpenBrace returns the byte offset of the '{' or '[' that opens
// the literal assigned to "const <anchor> =", or -1 if no such declaration
// exists. A match requires the identifier to be a whole word (not a prefix
// of a longer identifier like "nodeList").
func findAnchorOpenBrace(src []byte, anchor string) (int, error) {
	needle := []byte("const " + anchor)
	i := 0
	for {
		idx := indexFrom(src, needle, i)
		if idx < 0 {
			return -1, nil
		}
		// Ensure the match isn't a prefix of a longer identifier, e.g.
		// "const nodeExtra" when anchor is "node".
		after := idx + len(needle)
		if after < len(src) && isIdentByte(src[after]) {
			i = idx + 1
			continue
		}

		j := after
		for j < len(src) && isSpace(src[j]) {
			j++
		}
		if j >= len(src) || src[j] != '=' {
			i = idx + 1
			continue
		}
		j++
		for j < len(src) && isSpace(src[j]) {
			j++
		}
		if j >= len(src) || (src[j] != '{' && src[j] != '[') {
			i = idx + 1
			continue
		}
		return j, nil
	}
}

func indexFrom(src, needle []byte, from int) int {
	if from >= len(src) {
		return -1
	}
	rel := bytes.Index(src[from:], needle)
	if rel < 0 {
		return -1
	}
	return from + rel
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		return false
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// matchingCloseIndex returns the index of the brace/bracket that closes the
// opening brace/bracket at openIdx, tracking nested {}/[] and double-quoted
// strings (with backslash escaping) so that braces inside string literals
// are ignored.
func matchingCloseIndex(src []byte, openIdx int) (int, error) {
	open := src[openIdx]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1, fmt.Errorf("extractor: unexpected anchor byte %q", open)
	}

	depth := 0
	inString := false
	escaped := false

	for i := openIdx; i < len(src); i++ {
		b := src[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				if b != close && (open == '{' || open == '[') {
					// Mismatched bracket type at the point the depth returns
					// to zero: the literal region is malformed.
					return -1, fmt.Errorf("extractor: mismatched closing delimiter %q at offset %d, expected %q", b, i, close)
				}
				return i, nil
			}
		}
	}

	return -1, fmt.Errorf("extractor: unterminated literal starting at offset %d", openIdx)
}
