package buffer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// utf16Encoder is reused for every width computation; encoding/unicode's
// encoders are safe for concurrent read-only use once constructed, and the
// buffer manager's event loop is single-threaded regardless (spec.md §5).
var utf16Encoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()

// utf16Width returns the number of UTF-16 code units r encodes to: 1 for
// code points in the Basic Multilingual Plane, 2 for supplementary-plane
// code points that require a surrogate pair. LSP positions count UTF-16
// code units (spec.md §3), not runes or bytes.
func utf16Width(r rune) int {
	b, err := utf16Encoder.Bytes([]byte(string(r)))
	if err != nil || len(b) == 0 {
		return 1
	}
	return len(b) / 2
}

// offsetForPosition converts a (line, character) LSP position into a byte
// offset into contents. character counts UTF-16 code units from the start
// of the line; line counts '\n'-delimited lines from the start of the
// buffer. Returns len(contents) if line/character run past the end, so
// callers computing insertion points at EOF behave sensibly.
func offsetForPosition(contents string, line, character int) int {
	offset := 0
	curLine := 0
	for curLine < line {
		idx := strings.IndexByte(contents[offset:], '\n')
		if idx < 0 {
			return len(contents)
		}
		offset += idx + 1
		curLine++
	}
	units := 0
	for offset < len(contents) {
		if contents[offset] == '\n' {
			break
		}
		if units >= character {
			break
		}
		r, size := utf8.DecodeRuneInString(contents[offset:])
		units += utf16Width(r)
		offset += size
	}
	return offset
}

// advance computes the (line, character) position reached after walking
// text starting from (line, character), the way Buffer Manager's insert
// operation computes its returned cursor position (spec.md §4.4).
func advance(line, character int, text string) (int, int) {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '\n' {
			line++
			character = 0
		} else {
			character += utf16Width(r)
		}
		i += size
	}
	return line, character
}
