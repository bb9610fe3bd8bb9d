package stackimport

import "log/slog"

// LIST header offsets, per spec §4.8.
const (
	offListNumPageTables = 4
	listSkip1            = 8
	// card_block_stride follows at offListNumPageTables+4+listSkip1
	listSkip2 = 18
	// first page-table directory entry follows listSkip2

	pageTableEntrySkipBefore = 2
	pageTableEntrySkipAfter  = 4
	pageTableEntrySize       = pageTableEntrySkipBefore + 4 + pageTableEntrySkipAfter
)

// PAGE record layout, per spec §4.8.
const (
	pageHeaderSkip    = 12
	pageCardFlagsByte = 4 // offset of the card flags byte within a record
)

// PageEntry is one (card_id, card_flags) record read from a PAGE block.
type PageEntry struct {
	CardID int32
	Flags  uint8
}

// List is a decoded LIST block: the card-record stride used to walk every
// PAGE block it names, and the ids of those PAGE blocks.
type List struct {
	CardBlockStride int16
	PageTableIDs    []int32
}

// DecodeList decodes the singleton LIST block named by the stack's
// list_block_id.
func DecodeList(payload ByteBuffer, blockID int32, log *slog.Logger) (*List, error) {
	numPageTables, err := payload.BEInt32(offListNumPageTables)
	if err != nil {
		return nil, blockError(KindTruncated, "LIST", blockID, offListNumPageTables, "num page tables")
	}
	strideOff := offListNumPageTables + 4 + listSkip1
	stride, err := payload.BEInt16(strideOff)
	if err != nil {
		return nil, blockError(KindTruncated, "LIST", blockID, strideOff, "card block stride")
	}
	l := &List{CardBlockStride: stride}

	cursor := strideOff + 2 + listSkip2
	for i := int32(0); i < numPageTables; i++ {
		if !payload.HasData(cursor, pageTableEntrySize) {
			logwarn(log, "LIST: truncated before expected page table count", slog.Int("entry", int(i)))
			break
		}
		idOff := cursor + pageTableEntrySkipBefore
		id, _ := payload.BEInt32(idOff)
		l.PageTableIDs = append(l.PageTableIDs, id)
		cursor += pageTableEntrySize
	}

	loginfo(log, "decoded LIST", slog.Int("pageTables", len(l.PageTableIDs)), slog.Int("stride", int(l.CardBlockStride)))
	return l, nil
}

// WalkPage reads every (card_id, card_flags) record from a PAGE block's
// payload, using stride as the per-record byte width. Walking terminates
// at the card_id==0 sentinel, or is warned-and-stopped on a short buffer,
// per spec §4.8 and the fatality table in spec §7 (Truncated on PAGE is a
// warning, not an error).
func WalkPage(payload ByteBuffer, blockID int32, stride int16, log *slog.Logger) []PageEntry {
	if stride < 5 {
		logwarn(log, "PAGE: card block stride too small to hold id+flags", slog.Int("stride", int(stride)), slog.Int64("block", int64(blockID)))
		return nil
	}
	var entries []PageEntry
	cursor := pageHeaderSkip
	for {
		if !payload.HasData(cursor, int(stride)) {
			if payload.HasData(cursor, 1) {
				logwarn(log, "PAGE: truncated mid-record", slog.Int64("block", int64(blockID)), slog.Int("offset", cursor))
			}
			break
		}
		cardID, _ := payload.BEInt32(cursor)
		if cardID == 0 {
			break
		}
		flags, _ := payload.At(cursor + pageCardFlagsByte)
		entries = append(entries, PageEntry{CardID: cardID, Flags: flags})
		cursor += int(stride)
	}
	logtrace(log, "walked PAGE", slog.Int64("block", int64(blockID)), slog.Int("entries", len(entries)))
	return entries
}
