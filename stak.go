package stackimport

import (
	"fmt"
	"log/slog"
)

// Stack offsets, per spec §4.4.
const (
	offStakCardCount    = 32
	offStakFirstCardID  = 36
	offStakListBlockID  = 40
	offStakUserLevel    = 60
	offStakFlags        = 64
	offStakVersion0     = 84
	offStakVersion1     = 88
	offStakVersion2     = 92
	offStakVersion3     = 96
	offStakFontTableID  = 420
	offStakStyleTableID = 424
	offStakHeight       = 428
	offStakWidth        = 430
	offStakPatterns     = 692
	offStakScript       = 1524

	patternCount     = 40
	patternByteSize  = 8
	defaultCardWidth  = 512
	defaultCardHeight = 342
)

// Stack flag bits, offset 64.
const (
	stakFlagCantModify    = 1 << 15
	stakFlagCantDelete    = 1 << 14
	stakFlagPrivateAccess = 1 << 13
	stakFlagCantAbort     = 1 << 11
	stakFlagCantPeek      = 1 << 10
)

// Stack is the decoded STAK block: stack-wide metadata, version history,
// the card canvas size, the 40 pattern bitmaps, and the stack script.
type Stack struct {
	ID            int32
	CardCount     int32
	FirstCardID   int32
	ListBlockID   int32
	UserLevel     int16
	CantModify    bool
	CantDelete    bool
	PrivateAccess bool
	CantAbort     bool
	CantPeek      bool
	Versions      [4]string
	FontTableID   int32
	StyleTableID  int32
	CardWidth     int16
	CardHeight    int16
	Patterns      [patternCount][patternByteSize]byte
	Script        string
}

// DecodeStack decodes the singleton STAK block (id -1).
func DecodeStack(payload ByteBuffer, log *slog.Logger) (*Stack, error) {
	s := &Stack{ID: -1}

	var err error
	if s.CardCount, err = payload.BEInt32(offStakCardCount); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakCardCount, "card count")
	}
	if s.FirstCardID, err = payload.BEInt32(offStakFirstCardID); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakFirstCardID, "first card id")
	}
	if s.ListBlockID, err = payload.BEInt32(offStakListBlockID); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakListBlockID, "list block id")
	}
	if s.UserLevel, err = payload.BEInt16(offStakUserLevel); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakUserLevel, "user level")
	}
	flags, err := payload.BEUint16(offStakFlags)
	if err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakFlags, "flags")
	}
	s.CantModify = flags&stakFlagCantModify != 0
	s.CantDelete = flags&stakFlagCantDelete != 0
	s.PrivateAccess = flags&stakFlagPrivateAccess != 0
	s.CantAbort = flags&stakFlagCantAbort != 0
	s.CantPeek = flags&stakFlagCantPeek != 0

	for i, off := range []int{offStakVersion0, offStakVersion1, offStakVersion2, offStakVersion3} {
		raw, err := payload.BEUint32(off)
		if err != nil {
			logtrace(log, "STAK: version record unreadable", slog.Int("index", i), slog.Int("offset", off))
			continue
		}
		var rec [4]byte
		rec[0] = byte(raw >> 24)
		rec[1] = byte(raw >> 16)
		rec[2] = byte(raw >> 8)
		rec[3] = byte(raw)
		s.Versions[i] = formatNumVersion(rec)
	}

	if s.FontTableID, err = payload.BEInt32(offStakFontTableID); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakFontTableID, "font table id")
	}
	if s.StyleTableID, err = payload.BEInt32(offStakStyleTableID); err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakStyleTableID, "style table id")
	}

	height, err := payload.BEInt16(offStakHeight)
	if err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakHeight, "card height")
	}
	width, err := payload.BEInt16(offStakWidth)
	if err != nil {
		return nil, blockError(KindTruncated, "STAK", -1, offStakWidth, "card width")
	}
	s.CardHeight = height
	if height == 0 {
		s.CardHeight = defaultCardHeight
	}
	s.CardWidth = width
	if width == 0 {
		s.CardWidth = defaultCardWidth
	}

	if payload.HasData(offStakPatterns, patternCount*patternByteSize) {
		for i := 0; i < patternCount; i++ {
			off := offStakPatterns + i*patternByteSize
			slice, err := payload.Slice(off, patternByteSize)
			if err != nil {
				break
			}
			copy(s.Patterns[i][:], slice.Bytes())
		}
	} else {
		logwarn(log, "STAK: pattern table truncated", slog.Int("offset", offStakPatterns))
	}

	if payload.HasData(offStakScript, 0) {
		s.Script = readCString(payload, offStakScript)
	}

	loginfo(log, "decoded STAK", slog.Int("cards", int(s.CardCount)), slog.Int("width", int(s.CardWidth)), slog.Int("height", int(s.CardHeight)))
	return s, nil
}

// readCString reads a NUL-terminated run of legacy-encoded bytes starting
// at off and returns it transcoded to UTF-8 (unescaped — callers escape
// at emission time, per the component boundary in charset.go).
func readCString(b ByteBuffer, off int) string {
	data := b.Bytes()
	if off < 0 || off >= len(data) {
		return ""
	}
	end := off
	for end < len(data) && data[end] != 0 {
		end++
	}
	return TranscodeText(data[off:end])
}

// readCStringLen is like readCString but also returns the number of bytes
// consumed including the terminating NUL, for callers that must advance a
// cursor past a variable-length field.
func readCStringLen(b ByteBuffer, off int) (s string, consumed int) {
	data := b.Bytes()
	if off >= len(data) {
		return "", 0
	}
	end := off
	for end < len(data) && data[end] != 0 {
		end++
	}
	consumed = end - off + 1 // include the NUL
	if end >= len(data) {
		consumed = end - off // no NUL found; ran off the end
	}
	return TranscodeText(data[off:end]), consumed
}

// readCStringRaw is like readCStringLen but returns the raw legacy-encoded
// bytes instead of a transcoded string, for callers that must transcode
// the same field differently depending on where it is rendered (an XML
// element body vs. an attribute value use different escape rules, per
// charset.go).
func readCStringRaw(b ByteBuffer, off int) (raw []byte, consumed int) {
	data := b.Bytes()
	if off < 0 || off >= len(data) {
		return nil, 0
	}
	end := off
	for end < len(data) && data[end] != 0 {
		end++
	}
	consumed = end - off + 1
	if end >= len(data) {
		consumed = end - off
	}
	return append([]byte(nil), data[off:end]...), consumed
}

// numVersionStage maps the NumVersion stage byte to its display letter.
// Values outside the known set default to 'v', per spec §4.4/§8.
func numVersionStage(b byte) byte {
	switch b {
	case 0x20:
		return 'd'
	case 0x40:
		return 'a'
	case 0x60:
		return 'b'
	case 0x80:
		return 'v'
	default:
		return 'v'
	}
}

// formatNumVersion renders a 4-byte BCD NumVersion record per spec §4.4:
// byte[0] and the two nibbles of byte[1] are BCD-displayed as hex digits;
// byte[2] selects the stage letter; byte[3] is the non-release counter.
func formatNumVersion(rec [4]byte) string {
	major := rec[0]
	minorHi := rec[1] >> 4
	minorLo := rec[1] & 0x0F
	stage := numVersionStage(rec[2])
	counter := rec[3]

	switch {
	case counter == 0 && minorLo == 0:
		return fmt.Sprintf("%x.%x", major, minorHi)
	case minorLo == 0:
		return fmt.Sprintf("%x.%x%c%d", major, minorHi, stage, counter)
	case counter == 0:
		return fmt.Sprintf("%x.%x.%x", major, minorHi, minorLo)
	default:
		return fmt.Sprintf("%x.%x.%x%c%d", major, minorHi, minorLo, stage, counter)
	}
}
