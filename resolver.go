package stackimport

import (
	"fmt"
	"io"
	"log/slog"
)

// Config controls optional behavior of Import, mirroring the CLI flags of
// spec §6.
type Config struct {
	DumpRawBlocks  bool // also write <TYPE>_<id>.data for every block
	QuietStatus    bool // suppress the Status: progress stream
	QuietProgress  bool // suppress the Progress: M of N stream
	DecodeGraphics bool // run the WOBA collaborator on BMAP blocks
}

// DefaultConfig matches spec §6's stated default (decode-graphics: true,
// everything else off).
func DefaultConfig() Config {
	return Config{DecodeGraphics: true}
}

// Project is the fully resolved import: every decoded entity, indexed the
// way the emitter needs to walk them.
type Project struct {
	Stack       *Stack
	Fonts       FontTable
	Styles      StyleTable
	Backgrounds map[int32]*Layer // keyed by block id, iteration order below
	BgOrder     []int32          // block-index insertion order, per spec §5
	Cards       []*Layer         // in page-table order, per spec §5
	List        *List
	Blocks      *BlockIndex // retained for BMAP lookups by the emitter
}

// Resolve builds a Project from a scanned BlockIndex, enforcing the load
// order and MissingBlock fatality policy of spec §3/§7: STAK, FTBL, STBL,
// and LIST must resolve or the import fails; a missing PAGE or CARD block
// is warned and skipped, matching the graceful-degradation handling
// already given to truncated PAGE records.
func Resolve(bi *BlockIndex, log *slog.Logger) (*Project, error) {
	if log == nil {
		log = discardLogger()
	}
	p := &Project{Backgrounds: make(map[int32]*Layer), Blocks: bi}

	stakPayload, ok := bi.LookupType(tagSTAK, -1)
	if !ok {
		return nil, &DecodeError{Kind: KindMissingBlock, BlockType: "STAK", Context: "no STAK/-1 block in index"}
	}
	stack, err := DecodeStack(stakPayload, log)
	if err != nil {
		return nil, err
	}
	p.Stack = stack

	ftblPayload, ok := bi.LookupType(tagFTBL, stack.FontTableID)
	if !ok {
		return nil, &DecodeError{Kind: KindMissingBlock, BlockType: "FTBL", BlockID: stack.FontTableID, HasBlockID: true}
	}
	fonts, err := DecodeFontTable(ftblPayload, stack.FontTableID, log)
	if err != nil {
		return nil, err
	}
	p.Fonts = fonts

	stblPayload, ok := bi.LookupType(tagSTBL, stack.StyleTableID)
	if !ok {
		return nil, &DecodeError{Kind: KindMissingBlock, BlockType: "STBL", BlockID: stack.StyleTableID, HasBlockID: true}
	}
	styles, err := DecodeStyleTable(stblPayload, stack.StyleTableID, log)
	if err != nil {
		return nil, err
	}
	p.Styles = styles

	for _, key := range bi.All(tagBKGD) {
		payload, _ := bi.Lookup(key)
		bg, err := DecodeLayer(payload, key.ID, false, 0, log)
		if err != nil {
			return nil, err
		}
		p.Backgrounds[key.ID] = bg
		p.BgOrder = append(p.BgOrder, key.ID)
	}

	listPayload, ok := bi.LookupType(tagLIST, stack.ListBlockID)
	if !ok {
		return nil, &DecodeError{Kind: KindMissingBlock, BlockType: "LIST", BlockID: stack.ListBlockID, HasBlockID: true}
	}
	list, err := DecodeList(listPayload, stack.ListBlockID, log)
	if err != nil {
		return nil, err
	}
	p.List = list

	for _, pageTableID := range list.PageTableIDs {
		pagePayload, ok := bi.LookupType(tagPAGE, pageTableID)
		if !ok {
			logwarn(log, "PAGE block missing, skipping page table", slog.Int64("pageTableID", int64(pageTableID)))
			continue
		}
		for _, entry := range WalkPage(pagePayload, pageTableID, list.CardBlockStride, log) {
			cardPayload, ok := bi.LookupType(tagCARD, entry.CardID)
			if !ok {
				logwarn(log, "CARD block missing, skipping", slog.Int64("cardID", int64(entry.CardID)))
				continue
			}
			card, err := DecodeLayer(cardPayload, entry.CardID, true, entry.Flags, log)
			if err != nil {
				return nil, err
			}
			p.Cards = append(p.Cards, card)
		}
	}

	loginfo(log, "resolved project", slog.Int("backgrounds", len(p.Backgrounds)), slog.Int("cards", len(p.Cards)))
	return p, nil
}

// Import reads the block stream from r, decodes every block, resolves the
// cross-block dependency graph, and emits the project directory into
// outDir. Deriving outDir from the input path (extension replaced by
// .xstk) is left to the caller, as cmd/stackimport does.
func Import(r io.Reader, outDir string, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = discardLogger()
	}
	reporter := newProgressReporter(cfg, log)

	reporter.Status("scanning blocks")
	bi, err := ScanBlocks(r, log)
	if err != nil {
		return fmt.Errorf("scanning blocks: %w", err)
	}

	reporter.Status("resolving project")
	proj, err := Resolve(bi, log)
	if err != nil {
		return fmt.Errorf("resolving project: %w", err)
	}

	total := 1 + 1 + len(proj.Backgrounds) + len(proj.Cards) + patternCount
	reporter.SetTotal(total)

	em := &Emitter{Dir: outDir, Log: log, Reporter: reporter, Cfg: cfg}
	if err := em.EmitAll(proj); err != nil {
		return fmt.Errorf("emitting project: %w", err)
	}
	return nil
}
