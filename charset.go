package stackimport

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// commandGlyph is U+2318 PLACE OF INTEREST SIGN, the legacy command-key
// glyph that byte 0x11 maps to in the source encoding.
const commandGlyph = '⌘'

// highByteTable[i] holds the UTF-8 encoding of legacy byte 0x80+i, built
// once from charmap.Macintosh — the legacy Macintosh Western encoding the
// source stacks were authored in (ligatures fi/fl, ellipsis, curly quotes,
// em/en dashes, math symbols, accented letters, and the Apple logo all
// live in this table).
var highByteTable = buildHighByteTable()

func buildHighByteTable() [128]string {
	var tbl [128]string
	dec := charmap.Macintosh.NewDecoder()
	for i := 0; i < 128; i++ {
		out, err := dec.Bytes([]byte{byte(0x80 + i)})
		if err != nil || len(out) == 0 {
			out = []byte{0xEF, 0xBF, 0xBD} // U+FFFD replacement, should not occur
		}
		tbl[i] = string(out)
	}
	return tbl
}

// ToUTF8 maps a single legacy-encoded byte to its UTF-8 sequence. The
// mapping is total: every byte 0x00-0xFF produces a valid, non-empty
// UTF-8 string, so KindEncoding can never actually be raised.
func ToUTF8(b byte) string {
	switch {
	case b == 0x11:
		return string(commandGlyph)
	case b < 0x80:
		return string(rune(b))
	default:
		return highByteTable[b-0x80]
	}
}

// TranscodeText converts a legacy-encoded byte run to a UTF-8 string,
// byte by byte, with no escaping applied.
func TranscodeText(legacy []byte) string {
	var sb strings.Builder
	sb.Grow(len(legacy))
	for _, b := range legacy {
		sb.WriteString(ToUTF8(b))
	}
	return sb.String()
}

// XMLEscapeText escapes the three XML-reserved characters in element
// body text. Callers must have already transcoded the source bytes to
// UTF-8 (via ToUTF8/TranscodeText) before calling this — re-escaping an
// already-escaped string is never performed.
func XMLEscapeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			sb.WriteString("&amp;")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// XMLEscapeAttr escapes a string for use inside a double-quoted XML
// attribute value: the three XML-reserved characters plus '"' and the
// two line-ending characters, which are percent-escaped per spec.
func XMLEscapeAttr(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			sb.WriteString("&amp;")
		case '"':
			sb.WriteString("%22")
		case '\n':
			sb.WriteString("%0A;")
		case '\r':
			sb.WriteString("%0D")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TranscodeAndEscapeText is the sole entry point content rendering should
// use: it transcodes legacy bytes to UTF-8 and then escapes, in that
// order, as spec §4.2 requires.
func TranscodeAndEscapeText(legacy []byte) string {
	return XMLEscapeText(TranscodeText(legacy))
}

// TranscodeAndEscapeAttr is the attribute-context counterpart of
// TranscodeAndEscapeText.
func TranscodeAndEscapeAttr(legacy []byte) string {
	return XMLEscapeAttr(TranscodeText(legacy))
}
