package stackimport

import (
	"fmt"
	"log/slog"
	"strings"
)

// Style table offsets, per spec §4.6.
const (
	offStblCount       = 4
	stblFirstRecordOff = 8 // first record begins after the i32 count

	stblRecordSize   = 2 + 8 + 2 + 2 + 2 + 8 // id, skip, fontID, flags, size, skip
	stblSkipBefore   = 8
	stblSkipAfter    = 8
	styleInherit     = -1
	styleFlagsPlain  = 0
	styleFlagsInherit = -1
)

// text style flag bits, high byte of the 16-bit word (bits 15..8).
const (
	styleBitGroup uint16 = 1 << 15
	styleBitExtend       = 1 << 14
	styleBitCondense     = 1 << 13
	styleBitShadow       = 1 << 12
	styleBitOutline      = 1 << 11
	styleBitUnderline    = 1 << 10
	styleBitItalic       = 1 << 9
	styleBitBold         = 1 << 8
)

// StyleEntry is a decoded STBL record.
type StyleEntry struct {
	ID        int16
	FontID    int16 // -1 means inherit
	Plain     bool
	Inherit   bool // text style flags == -1: inherit from field
	Group     bool
	Extend    bool
	Condense  bool
	Shadow    bool
	Outline   bool
	Underline bool
	Italic    bool
	Bold      bool
	Size      *int16 // nil means inherit
}

// StyleTable maps style ids to their decoded entries.
type StyleTable map[int16]*StyleEntry

// DecodeStyleTable decodes an STBL block into a StyleTable.
func DecodeStyleTable(payload ByteBuffer, blockID int32, log *slog.Logger) (StyleTable, error) {
	count, err := payload.BEInt32(offStblCount)
	if err != nil {
		return nil, blockError(KindTruncated, "STBL", blockID, offStblCount, "style count")
	}
	st := make(StyleTable, count)
	cursor := stblFirstRecordOff
	for i := int32(0); i < count; i++ {
		if !payload.HasData(cursor, stblRecordSize) {
			logwarn(log, "STBL: truncated before expected record count", slog.Int("record", int(i)))
			break
		}
		e := &StyleEntry{}
		e.ID, _ = payload.BEInt16(cursor)
		cursor += 2 + stblSkipBefore
		e.FontID, _ = payload.BEInt16(cursor)
		cursor += 2
		flags, _ := payload.BEInt16(cursor)
		cursor += 2
		size, _ := payload.BEInt16(cursor)
		cursor += 2 + stblSkipAfter

		switch int16(flags) {
		case styleFlagsPlain:
			e.Plain = true
		case styleFlagsInherit:
			e.Inherit = true
		default:
			u := uint16(flags)
			e.Group = u&styleBitGroup != 0
			e.Extend = u&styleBitExtend != 0
			e.Condense = u&styleBitCondense != 0
			e.Shadow = u&styleBitShadow != 0
			e.Outline = u&styleBitOutline != 0
			e.Underline = u&styleBitUnderline != 0
			e.Italic = u&styleBitItalic != 0
			e.Bold = u&styleBitBold != 0
		}
		if size != styleInherit {
			sz := size
			e.Size = &sz
		}
		st[e.ID] = e
	}
	loginfo(log, "decoded STBL", slog.Int("count", len(st)), slog.Int64("block", int64(blockID)))
	return st, nil
}

// CSSRule renders the CSS rule body for a style entry, resolving its font
// name through ft. Property ordering (font-family, font-style,
// font-weight, font-size) is pinned by spec §8 scenario 3.
func (e *StyleEntry) CSSRule(ft FontTable) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".style%d {\n", e.ID)
	if e.FontID != styleInherit {
		if name := ft.Name(e.FontID); name != "" {
			fmt.Fprintf(&sb, "\tfont-family: %q;\n", name)
		}
	}
	if e.Italic {
		sb.WriteString("\tfont-style: italic;\n")
	}
	if e.Bold {
		sb.WriteString("\tfont-weight: bold;\n")
	}
	if e.Underline {
		sb.WriteString("\ttext-decoration: underline;\n")
	}
	if e.Outline {
		sb.WriteString("\t-webkit-text-stroke: 1px;\n")
	}
	if e.Condense {
		sb.WriteString("\tletter-spacing: -0.5px;\n")
	}
	if e.Extend {
		sb.WriteString("\tletter-spacing: 0.5px;\n")
	}
	if e.Size != nil {
		fmt.Fprintf(&sb, "\tfont-size: %dpt;\n", *e.Size)
	}
	sb.WriteString("}\n")
	return sb.String()
}
