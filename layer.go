package stackimport

import (
	"log/slog"
)

// PartKind distinguishes a button from a field.
type PartKind uint8

const (
	PartField PartKind = iota
	PartButton
)

// LayerKind distinguishes a card from a background, used to tag Content's
// target layer (the sign of the in-file part id encodes this).
type LayerKind uint8

const (
	LayerBackground LayerKind = iota
	LayerCard
)

// Button and field style enumerations, keyed by the low nibble of
// more_flags, per spec §3/§4.7.
const (
	styleTransparent = 0
	styleOpaque      = 1
	styleRectangle   = 2
	styleRoundrect   = 3
	styleShadowBtn   = 4
	styleCheckbox    = 5
	styleRadiobutton = 6
	styleStandard    = 8
	styleDefault     = 9
	styleOval        = 10
	stylePopup       = 11

	styleFieldShadow    = 4
	styleFieldScrolling = 7
)

var buttonStyleNames = map[int]string{
	styleTransparent: "transparent",
	styleOpaque:      "opaque",
	styleRectangle:   "rectangle",
	styleRoundrect:   "roundrect",
	styleShadowBtn:   "shadow",
	styleCheckbox:    "checkbox",
	styleRadiobutton: "radiobutton",
	styleStandard:    "standard",
	styleDefault:     "default",
	styleOval:        "oval",
	stylePopup:       "popup",
}

var fieldStyleNames = map[int]string{
	styleTransparent:    "transparent",
	styleOpaque:         "opaque",
	styleRectangle:      "rectangle",
	styleFieldShadow:    "shadow",
	styleFieldScrolling: "scrolling",
}

// StyleName returns the style enumeration name for this part's kind and
// style code, or "unknown" if the code is not in the kind's enumeration.
func (p *Part) StyleName() string {
	var tbl map[int]string
	if p.Kind == PartButton {
		tbl = buttonStyleNames
	} else {
		tbl = fieldStyleNames
	}
	if name, ok := tbl[int(p.StyleEnum)]; ok {
		return name
	}
	return "unknown"
}

// Rect is a part's bounding rectangle, in the stack's card coordinate space.
type Rect struct {
	Left, Top, Right, Bottom int16
}

// Part is a single field or button on a layer.
type Part struct {
	ID             int16
	Kind           PartKind
	Visible        bool
	Rect           Rect
	StyleEnum      int16
	Family         int16 // buttons only
	AutoHighlight  bool  // buttons only
	TitleWidth     int16
	IconID         int16
	SelectedLines  []int // derived from TitleWidth/IconID per spec §4.7
	TextAlign      string
	FontID         int16
	TextSize       int16
	TextStyleFlags uint16
	TextHeight     int16
	Name           string
	Script         string
}

// Content is the styled or unstyled text a card/background attaches to
// one of its own parts, or that a card attaches to a background part.
type Content struct {
	Layer  LayerKind
	PartID int16
	Styles []StyleRun // empty means unstyled
	Text   []byte     // legacy-encoded; no NUL terminator is appended
}

// StyleRun begins a styled region of a Content's text at a 1-based byte
// offset into Text.
type StyleRun struct {
	Start   int16
	StyleID int16
}

// Layer is a decoded BKGD or CARD block.
type Layer struct {
	ID           int32
	IsCard       bool
	BitmapID     int32
	CantDelete   bool
	ShowPicture  bool
	DontSearch   bool
	Marked       bool // cards only, from externally supplied card flags byte
	Owner        int32 // cards only: owning background id
	Parts        []Part
	Contents     []Content
	Name         []byte // raw legacy-encoded bytes: transcoded per render context in emit.go
	Script       string
	ButtonIDs    []int16 // backgrounds only: ids of every button part
}

// Layer header offsets, relative to the start of the BKGD/CARD payload.
const (
	offLayerFiller   = 0
	offLayerBitmapID = 4
	offLayerFlags    = 8
	layerHeaderSkip  = 14 // undocumented fill between flags and (card-only) owner, spec §9
	// offset of owner, CARD only, is offLayerFlags+2+layerHeaderSkip
)

const (
	layerFlagCantDelete  uint16 = 1 << 14
	layerFlagHidePicture        = 1 << 13 // set bit means show=false (inverted)
	layerFlagDontSearch         = 1 << 11
)

const cardFlagMarked uint8 = 1 << 4

// part flag word (flags_and_type), low byte bit positions.
const partFlagHidden uint16 = 1 << 7

// more_flags high-byte bit positions (after >>8).
const (
	moreFlagAutoHighlightBit uint16 = 1 << 5 // button: bit5 of high byte
)

// DecodeLayer decodes a BKGD or CARD block. cardFlags is the externally
// supplied per-card flags byte (ignored for backgrounds); pass 0 when
// decoding a background.
func DecodeLayer(payload ByteBuffer, blockID int32, isCard bool, cardFlags uint8, log *slog.Logger) (*Layer, error) {
	tag := "BKGD"
	if isCard {
		tag = "CARD"
	}
	l := &Layer{ID: blockID, IsCard: isCard}

	bitmapID, err := payload.BEInt32(offLayerBitmapID)
	if err != nil {
		return nil, blockError(KindTruncated, tag, blockID, offLayerBitmapID, "bitmap id")
	}
	l.BitmapID = bitmapID

	flags, err := payload.BEUint16(offLayerFlags)
	if err != nil {
		return nil, blockError(KindTruncated, tag, blockID, offLayerFlags, "flags")
	}
	l.CantDelete = flags&layerFlagCantDelete != 0
	l.ShowPicture = flags&layerFlagHidePicture == 0
	l.DontSearch = flags&layerFlagDontSearch != 0

	cursor := offLayerFlags + 2 + layerHeaderSkip
	if isCard {
		owner, err := payload.BEInt32(cursor)
		if err != nil {
			return nil, blockError(KindTruncated, tag, blockID, cursor, "owner")
		}
		l.Owner = owner
		cursor += 4
		l.Marked = cardFlags&cardFlagMarked != 0
	}

	numParts, err := payload.BEInt16(cursor)
	if err != nil {
		return nil, blockError(KindTruncated, tag, blockID, cursor, "num parts")
	}
	cursor += 2 + 6 // 6 bytes unknown filler, per original source
	numContents, err := payload.BEInt16(cursor)
	if err != nil {
		return nil, blockError(KindTruncated, tag, blockID, cursor, "num contents")
	}
	cursor += 2 + 4 // 4 bytes unknown filler

	for i := int16(0); i < numParts; i++ {
		partLen, err := payload.BEInt16(cursor)
		if err != nil {
			logwarn(log, "layer: truncated before expected part count", slog.String("type", tag), slog.Int("part", int(i)))
			break
		}
		partEnd := cursor + int(partLen)
		part, err := decodePart(payload, cursor, log)
		if err != nil {
			return nil, err
		}
		l.Parts = append(l.Parts, *part)
		if !isCard && part.Kind == PartButton {
			l.ButtonIDs = append(l.ButtonIDs, part.ID)
		}
		cursor = partEnd
		if cursor%2 != 0 {
			cursor++
		}
	}

	for i := int16(0); i < numContents; i++ {
		if !payload.HasData(cursor, 4) {
			logwarn(log, "layer: truncated before expected content count", slog.String("type", tag), slog.Int("content", int(i)))
			break
		}
		signedPartID, _ := payload.BEInt16(cursor)
		partLen, _ := payload.BEInt16(cursor + 2)
		bodyOff := cursor + 4
		content, err := decodeContent(payload, bodyOff, signedPartID, int(partLen), log)
		if err != nil {
			return nil, err
		}
		l.Contents = append(l.Contents, *content)
		cursor = bodyOff + int(partLen)
		if cursor%2 != 0 {
			cursor++
		}
	}

	nameRaw, consumed := readCStringRaw(payload, cursor)
	l.Name = nameRaw
	cursor += consumed
	l.Script = readCString(payload, cursor)

	loginfo(log, "decoded layer", slog.String("type", tag), slog.Int64("id", int64(blockID)), slog.Int("parts", len(l.Parts)), slog.Int("contents", len(l.Contents)))
	return l, nil
}

// decodePart decodes a single part record starting at off (the offset of
// its i16 part_length field), per spec §4.7.
func decodePart(payload ByteBuffer, off int, log *slog.Logger) (*Part, error) {
	p := &Part{}
	id, err := payload.BEInt16(off + 2)
	if err != nil {
		return nil, blockError(KindTruncated, "PART", 0, off, "part id")
	}
	p.ID = id

	flagsAndType, _ := payload.BEUint16(off + 4)
	if flagsAndType>>8 == 1 {
		p.Kind = PartButton
	} else {
		p.Kind = PartField
	}
	p.Visible = flagsAndType&partFlagHidden == 0

	top, _ := payload.BEInt16(off + 6)
	left, _ := payload.BEInt16(off + 8)
	bottom, _ := payload.BEInt16(off + 10)
	right, _ := payload.BEInt16(off + 12)
	p.Rect = Rect{Left: left, Top: top, Right: right, Bottom: bottom}

	moreFlags, _ := payload.BEUint16(off + 14)
	p.StyleEnum = int16(moreFlags & 0x0F)
	hi := moreFlags >> 8
	p.Family = int16(hi & 0x0F)
	if p.Kind == PartButton {
		p.AutoHighlight = hi&moreFlagAutoHighlightBit != 0 || p.Family != 0
	}

	p.TitleWidth, _ = payload.BEInt16(off + 16)
	p.IconID, _ = payload.BEInt16(off + 18)
	p.SelectedLines = derivePartSelectedLines(p)

	textAlign, _ := payload.BEInt16(off + 20)
	switch textAlign {
	case 0:
		p.TextAlign = "left"
	case 1:
		p.TextAlign = "center"
	case -1:
		p.TextAlign = "right"
	case -2:
		p.TextAlign = "forceLeft"
	default:
		p.TextAlign = "unknown"
	}

	p.FontID, _ = payload.BEInt16(off + 22)
	p.TextSize, _ = payload.BEInt16(off + 24)
	flags16, _ := payload.BEUint16(off + 26)
	p.TextStyleFlags = flags16
	p.TextHeight, _ = payload.BEInt16(off + 28)

	nameOff := off + 30
	p.Name, _ = readCStringLenText(payload, nameOff)
	_, consumed := readCStringLen(payload, nameOff)
	scriptOff := nameOff + consumed
	p.Script, _ = readCStringLenText(payload, scriptOff)

	logtrace(log, "decoded part", slog.Int("id", int(p.ID)), slog.String("style", p.StyleName()))
	return p, nil
}

func readCStringLenText(b ByteBuffer, off int) (string, int) {
	return readCStringLen(b, off)
}

// derivePartSelectedLines implements the icon_id/title_width selected-line
// derivation of spec §4.7: field parts with icon_id > 0 use the
// [icon_id, title_width] inclusive range; popup buttons use icon_id as a
// single selected line.
func derivePartSelectedLines(p *Part) []int {
	if p.Kind == PartField && p.IconID > 0 {
		last := p.TitleWidth
		if last < p.IconID {
			last = p.IconID
		}
		lines := make([]int, 0, int(last-p.IconID)+1)
		for d := int(p.IconID); d <= int(last); d++ {
			lines = append(lines, d)
		}
		return lines
	}
	if p.Kind == PartButton && p.StyleEnum == stylePopup && p.IconID != 0 {
		return []int{int(p.IconID)}
	}
	return nil
}

// highlightOverrideText is the exact three-byte payload {0x00, '1', 0x00}
// that marks a per-card override of a background button's sharedHighlight.
var highlightOverrideText = []byte{0x00, '1', 0x00}

// decodeContent decodes one content record body (after the signed part id
// and part length have been read by the caller).
func decodeContent(payload ByteBuffer, off, signedPartID, partLen int, log *slog.Logger) (*Content, error) {
	c := &Content{}
	if signedPartID < 0 {
		c.Layer = LayerCard
		c.PartID = int16(-signedPartID)
	} else {
		c.Layer = LayerBackground
		c.PartID = int16(signedPartID)
	}
	if partLen == 0 {
		return c, nil
	}
	if !payload.HasData(off, 2) {
		return nil, blockError(KindTruncated, "CNTN", 0, off, "content first word")
	}
	firstWord, _ := payload.BEUint16(off)
	if firstWord > 32767 {
		stylesLen := int(firstWord & 0x7FFF)
		runCount := (stylesLen - 2) / 4
		styles := make([]StyleRun, 0, runCount)
		for i := 0; i < runCount; i++ {
			runOff := off + 2 + i*4
			start, _ := payload.BEInt16(runOff)
			styleID, _ := payload.BEInt16(runOff + 2)
			styles = append(styles, StyleRun{Start: start, StyleID: styleID})
		}
		c.Styles = styles
		textOff := off + stylesLen
		textLen := partLen - stylesLen
		if textLen < 0 {
			textLen = 0
		}
		if slice, err := payload.Slice(textOff, textLen); err == nil {
			c.Text = append([]byte(nil), slice.Bytes()...)
		}
	} else {
		textOff := off + 2
		textLen := partLen - 2
		if textLen < 0 {
			textLen = 0
		}
		if slice, err := payload.Slice(textOff, textLen); err == nil {
			c.Text = append([]byte(nil), slice.Bytes()...)
		}
	}
	logtrace(log, "decoded content", slog.Int("part", int(c.PartID)), slog.Int("styleRuns", len(c.Styles)))
	return c, nil
}

// IsHighlightOverride reports whether this content is the three-byte
// sentinel that marks a per-card override of a background button's
// shared highlight, per spec §4.7.
func (c *Content) IsHighlightOverride() bool {
	return len(c.Text) == len(highlightOverrideText) &&
		c.Text[0] == highlightOverrideText[0] &&
		c.Text[1] == highlightOverrideText[1] &&
		c.Text[2] == highlightOverrideText[2]
}
