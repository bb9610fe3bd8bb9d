package stackimport

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/soypat/stackimport/internal/pbm"
	"github.com/soypat/stackimport/internal/woba"
)

// Emitter writes the decoded Project to disk as the XML + CSS + bitmap
// tree of spec §4.9/§6. Tags are built by hand rather than through
// encoding/xml's struct marshaling, since content bodies interleave
// plain text with styled <span> runs in a shape a fixed struct can't
// express, and because output is buffered per entity before a single
// write, matching the "buffer in memory, the original streams directly
// and cannot rewind" note in spec §9.
type Emitter struct {
	Dir      string
	Log      *slog.Logger
	Reporter *progressReporter
	Cfg      Config
}

// EmitAll writes every artifact for proj into e.Dir, creating it if
// absent, in this order: stack document, stylesheet (font names are
// resolved into it), patterns, backgrounds (index order), cards
// (page-table order), then the project index.
func (e *Emitter) EmitAll(proj *Project) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return &DecodeError{Kind: KindIoError, Context: "creating output directory", Err: err}
	}

	if e.Cfg.DumpRawBlocks {
		if err := e.dumpRawBlocks(proj); err != nil {
			return err
		}
	}

	e.Reporter.Status("writing stack metadata")
	if err := e.writeStack(proj); err != nil {
		return err
	}
	e.Reporter.Advance()

	e.Reporter.Status("writing stylesheet")
	if err := e.writeStylesheet(proj); err != nil {
		return err
	}
	e.Reporter.Advance()

	for i := 1; i <= patternCount; i++ {
		if err := e.writePattern(proj, i); err != nil {
			return err
		}
		e.Reporter.Advance()
	}

	for _, id := range proj.BgOrder {
		bg := proj.Backgrounds[id]
		e.Reporter.Status(fmt.Sprintf("writing background %d", id))
		if err := e.writeLayer(proj, bg, fmt.Sprintf("background_%d.xml", id)); err != nil {
			return err
		}
		e.writeBitmap(proj, bg.BitmapID)
		e.Reporter.Advance()
	}

	for _, card := range proj.Cards {
		e.Reporter.Status(fmt.Sprintf("writing card %d", card.ID))
		if err := e.writeLayer(proj, card, fmt.Sprintf("card_%d.xml", card.ID)); err != nil {
			return err
		}
		e.writeBitmap(proj, card.BitmapID)
		e.Reporter.Advance()
	}

	e.Reporter.Status("writing project index")
	return e.writeProjectIndex(proj)
}

// dumpRawBlocks writes <TYPE>_<id>.data for every indexed block, the
// dump-raw-blocks debugging option of spec §6.
func (e *Emitter) dumpRawBlocks(proj *Project) error {
	for _, key := range proj.Blocks.Keys() {
		payload, ok := proj.Blocks.Lookup(key)
		if !ok {
			continue
		}
		name := fmt.Sprintf("%s_%d.data", key.String(), key.ID)
		if err := e.writeFile(name, payload.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) writeFile(name string, body []byte) error {
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return &DecodeError{Kind: KindIoError, Context: "writing " + name, Err: err}
	}
	return nil
}

func (e *Emitter) writeStack(proj *Project) error {
	var b bytes.Buffer
	s := proj.Stack
	b.WriteString("<stack>\n")
	fmt.Fprintf(&b, "\t<cardCount>%d</cardCount>\n", s.CardCount)
	fmt.Fprintf(&b, "\t<firstCardID>%d</firstCardID>\n", s.FirstCardID)
	fmt.Fprintf(&b, "\t<userLevel>%d</userLevel>\n", s.UserLevel)
	fmt.Fprintf(&b, "\t<cardSize><width>%d</width><height>%d</height></cardSize>\n", s.CardWidth, s.CardHeight)
	b.WriteString("\t<flags>\n")
	writeFlagTag(&b, "cantModify", s.CantModify)
	writeFlagTag(&b, "cantDelete", s.CantDelete)
	writeFlagTag(&b, "privateAccess", s.PrivateAccess)
	writeFlagTag(&b, "cantAbort", s.CantAbort)
	writeFlagTag(&b, "cantPeek", s.CantPeek)
	b.WriteString("\t</flags>\n")
	b.WriteString("\t<versions>\n")
	for _, v := range s.Versions {
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "\t\t<version>%s</version>\n", XMLEscapeText(v))
	}
	b.WriteString("\t</versions>\n")
	if s.Script != "" {
		fmt.Fprintf(&b, "\t<script>%s</script>\n", XMLEscapeText(s.Script))
	}
	b.WriteString("\t<backgrounds>\n")
	for _, id := range proj.BgOrder {
		bg := proj.Backgrounds[id]
		fmt.Fprintf(&b, "\t\t<background id=\"%d\" file=\"%s\" name=\"%s\"/>\n",
			id, fmt.Sprintf("background_%d.xml", id), TranscodeAndEscapeAttr(bg.Name))
	}
	b.WriteString("\t</backgrounds>\n")
	b.WriteString("\t<cards>\n")
	for _, c := range proj.Cards {
		fmt.Fprintf(&b, "\t\t<card id=\"%d\" file=\"%s\" marked=\"%t\" name=\"%s\" owner=\"%d\"/>\n",
			c.ID, fmt.Sprintf("card_%d.xml", c.ID), c.Marked, TranscodeAndEscapeAttr(c.Name), c.Owner)
	}
	b.WriteString("\t</cards>\n")
	b.WriteString("</stack>\n")
	return e.writeFile("stack_-1.xml", b.Bytes())
}

func writeFlagTag(b *bytes.Buffer, name string, v bool) {
	fmt.Fprintf(b, "\t\t<%s>%t</%s>\n", name, v, name)
}

func (e *Emitter) writeStylesheet(proj *Project) error {
	var b bytes.Buffer
	ids := make([]int16, 0, len(proj.Styles))
	for id := range proj.Styles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		b.WriteString(proj.Styles[id].CSSRule(proj.Fonts))
	}
	return e.writeFile(fmt.Sprintf("stylesheet_%d.css", proj.Stack.StyleTableID), b.Bytes())
}

func (e *Emitter) writePattern(proj *Project, n int) error {
	rows := proj.Stack.Patterns[n-1]
	return e.writeFile(fmt.Sprintf("PAT_%d.pbm", n), pbm.WritePattern(rows))
}

func (e *Emitter) writeBitmap(proj *Project, bitmapID int32) {
	if bitmapID == 0 {
		return
	}
	raw, ok := proj.Blocks.LookupType(tagBMAP, bitmapID)
	if !ok {
		return
	}
	name := fmt.Sprintf("BMAP_%d", bitmapID)
	data := raw.Bytes()
	if !e.Cfg.DecodeGraphics {
		e.writeFile(name+".raw", data)
		return
	}
	if len(data) < 6 {
		logwarn(e.Log, "BMAP payload too short to carry a header, writing raw", slog.Int64("id", int64(bitmapID)))
		e.writeFile(name+".raw", data)
		return
	}
	width := int(proj.Stack.CardWidth)
	height := int(proj.Stack.CardHeight)
	bits, err := woba.Decompress(data, width, height)
	if err != nil {
		logwarn(e.Log, "WOBA decode failed, writing raw bitmap", slog.Int64("id", int64(bitmapID)), slog.String("err", err.Error()))
		e.writeFile(name+".raw", data)
		return
	}
	rowBytes := (width + 7) / 8
	img, err := pbm.WriteP4(width, height, rowBytes, bits)
	if err != nil {
		logwarn(e.Log, "PBM encode failed, writing raw bitmap", slog.Int64("id", int64(bitmapID)), slog.String("err", err.Error()))
		e.writeFile(name+".raw", data)
		return
	}
	e.writeFile(name+".pbm", img)
}

func (e *Emitter) writeLayer(proj *Project, l *Layer, filename string) error {
	var b bytes.Buffer
	tag := "background"
	if l.IsCard {
		tag = "card"
	}
	fmt.Fprintf(&b, "<%s id=%q>\n", tag, fmt.Sprint(l.ID))
	fmt.Fprintf(&b, "\t<bitmapID>%d</bitmapID>\n", l.BitmapID)
	if l.IsCard {
		fmt.Fprintf(&b, "\t<owner>%d</owner>\n", l.Owner)
		fmt.Fprintf(&b, "\t<marked>%t</marked>\n", l.Marked)
	}
	fmt.Fprintf(&b, "\t<cantDelete>%t</cantDelete>\n", l.CantDelete)
	fmt.Fprintf(&b, "\t<showPicture>%t</showPicture>\n", l.ShowPicture)
	fmt.Fprintf(&b, "\t<dontSearch>%t</dontSearch>\n", l.DontSearch)

	b.WriteString("\t<parts>\n")
	for _, p := range l.Parts {
		writePart(&b, &p)
	}
	b.WriteString("\t</parts>\n")

	b.WriteString("\t<contents>\n")
	for _, c := range l.Contents {
		e.writeContent(&b, proj, l, &c)
	}
	b.WriteString("\t</contents>\n")

	if len(l.Name) != 0 {
		fmt.Fprintf(&b, "\t<name>%s</name>\n", TranscodeAndEscapeText(l.Name))
	}
	if l.Script != "" {
		fmt.Fprintf(&b, "\t<script>%s</script>\n", XMLEscapeText(l.Script))
	}
	fmt.Fprintf(&b, "</%s>\n", tag)
	return e.writeFile(filename, b.Bytes())
}

func writePart(b *bytes.Buffer, p *Part) {
	kind := "field"
	if p.Kind == PartButton {
		kind = "button"
	}
	fmt.Fprintf(b, "\t\t<part id=%q kind=%q style=%q>\n", fmt.Sprint(p.ID), kind, p.StyleName())
	fmt.Fprintf(b, "\t\t\t<visible>%t</visible>\n", p.Visible)
	fmt.Fprintf(b, "\t\t\t<rect><left>%d</left><top>%d</top><right>%d</right><bottom>%d</bottom></rect>\n",
		p.Rect.Left, p.Rect.Top, p.Rect.Right, p.Rect.Bottom)
	if p.Kind == PartButton {
		fmt.Fprintf(b, "\t\t\t<family>%d</family>\n", p.Family)
		fmt.Fprintf(b, "\t\t\t<autoHighlight>%t</autoHighlight>\n", p.AutoHighlight)
	}
	if len(p.SelectedLines) > 0 {
		b.WriteString("\t\t\t<selectedLines>\n")
		for _, line := range p.SelectedLines {
			fmt.Fprintf(b, "\t\t\t\t<line>%d</line>\n", line)
		}
		b.WriteString("\t\t\t</selectedLines>\n")
	}
	fmt.Fprintf(b, "\t\t\t<textAlign>%s</textAlign>\n", p.TextAlign)
	fmt.Fprintf(b, "\t\t\t<fontID>%d</fontID>\n", p.FontID)
	fmt.Fprintf(b, "\t\t\t<textSize>%d</textSize>\n", p.TextSize)
	if p.Name != "" {
		fmt.Fprintf(b, "\t\t\t<name>%s</name>\n", XMLEscapeText(p.Name))
	}
	b.WriteString("\t\t</part>\n")
}

// writeContent renders one content record, applying the highlight-
// override special case and the style-span/anchor interleaving rule of
// spec §4.7.
func (e *Emitter) writeContent(b *bytes.Buffer, proj *Project, l *Layer, c *Content) {
	fmt.Fprintf(b, "\t\t<content partID=%q layer=%q>\n", fmt.Sprint(c.PartID), layerKindName(c.Layer))

	if l.IsCard && c.Layer == LayerBackground && c.IsHighlightOverride() {
		if bg, ok := proj.Backgrounds[l.Owner]; ok && isButtonID(bg.ButtonIDs, c.PartID) {
			b.WriteString("\t\t\t<highlight><true/></highlight>\n")
			b.WriteString("\t\t</content>\n")
			return
		}
	}

	b.WriteString("\t\t\t<text>")
	writeStyledText(b, proj.Styles, c)
	b.WriteString("</text>\n")
	b.WriteString("\t\t</content>\n")
}

func layerKindName(k LayerKind) string {
	if k == LayerCard {
		return "card"
	}
	return "background"
}

func isButtonID(ids []int16, id int16) bool {
	for _, b := range ids {
		if b == id {
			return true
		}
	}
	return false
}

// writeStyledText walks c.Text from offset 1 (spec §4.7's 1-based style
// run offsets), opening and closing <span class="styleN"> at each run
// boundary, wrapping group-flagged styles in an additional anchor tag.
func writeStyledText(b *bytes.Buffer, styles StyleTable, c *Content) {
	text := c.Text
	if len(c.Styles) == 0 {
		b.WriteString(TranscodeAndEscapeText(text))
		return
	}
	type boundary struct {
		offset int
		style  *StyleEntry
	}
	var bounds []boundary
	for _, run := range c.Styles {
		bounds = append(bounds, boundary{offset: int(run.Start) - 1, style: styles[run.StyleID]})
	}
	if prefixEnd := bounds[0].offset; prefixEnd > 0 {
		if prefixEnd > len(text) {
			prefixEnd = len(text)
		}
		b.WriteString(TranscodeAndEscapeText(text[:prefixEnd]))
	}
	openGroup := false
	for i, bd := range bounds {
		if i > 0 {
			closeSpan(b, bounds[i-1].style, openGroup)
		}
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1].offset
		}
		start := bd.offset
		if start < 0 {
			start = 0
		}
		if start > len(text) {
			start = len(text)
		}
		if end > len(text) {
			end = len(text)
		}
		if end < start {
			end = start
		}
		openGroup = bd.style != nil && bd.style.Group
		if bd.style != nil {
			fmt.Fprintf(b, "<span class=\"style%d\">", bd.style.ID)
		} else {
			b.WriteString("<span>")
		}
		if openGroup {
			b.WriteString("<a>")
		}
		b.WriteString(TranscodeAndEscapeText(text[start:end]))
	}
	if len(bounds) > 0 {
		closeSpan(b, bounds[len(bounds)-1].style, openGroup)
	}
}

func closeSpan(b *bytes.Buffer, style *StyleEntry, group bool) {
	if group {
		b.WriteString("</a>")
	}
	b.WriteString("</span>")
}

func (e *Emitter) writeProjectIndex(proj *Project) error {
	var b bytes.Buffer
	b.WriteString("<project>\n")
	b.WriteString("\t<stack href=\"stack_-1.xml\"/>\n")
	fmt.Fprintf(&b, "\t<stylesheet href=%q/>\n", fmt.Sprintf("stylesheet_%d.css", proj.Stack.StyleTableID))
	b.WriteString("\t<patterns>\n")
	for i := 1; i <= patternCount; i++ {
		fmt.Fprintf(&b, "\t\t<media type=\"pattern\" id=\"%d\" href=%q/>\n", i, fmt.Sprintf("PAT_%d.pbm", i))
	}
	b.WriteString("\t</patterns>\n")
	b.WriteString("\t<backgrounds>\n")
	for _, id := range proj.BgOrder {
		fmt.Fprintf(&b, "\t\t<background id=\"%d\" href=%q/>\n", id, fmt.Sprintf("background_%d.xml", id))
	}
	b.WriteString("\t</backgrounds>\n")
	b.WriteString("\t<cards>\n")
	for _, c := range proj.Cards {
		fmt.Fprintf(&b, "\t\t<card id=\"%d\" href=%q/>\n", c.ID, fmt.Sprintf("card_%d.xml", c.ID))
	}
	b.WriteString("\t</cards>\n")
	b.WriteString("</project>\n")
	return e.writeFile("project.xml", b.Bytes())
}
