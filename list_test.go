package stackimport

import "testing"

func buildListPayload(pageTableIDs []int32, stride int16) ByteBuffer {
	strideOff := offListNumPageTables + 4 + listSkip1
	firstEntryOff := strideOff + 2 + listSkip2
	size := firstEntryOff + len(pageTableIDs)*pageTableEntrySize
	b := NewByteBuffer(size)
	putBEInt32(&b, offListNumPageTables, int32(len(pageTableIDs)))
	putBEInt16(&b, strideOff, stride)
	for i, id := range pageTableIDs {
		off := firstEntryOff + i*pageTableEntrySize + pageTableEntrySkipBefore
		putBEInt32(&b, off, id)
	}
	return b
}

func putBEInt32(b *ByteBuffer, off int, v int32) {
	u := uint32(v)
	b.SetAt(off, byte(u>>24))
	b.SetAt(off+1, byte(u>>16))
	b.SetAt(off+2, byte(u>>8))
	b.SetAt(off+3, byte(u))
}

func TestDecodeList(t *testing.T) {
	payload := buildListPayload([]int32{10, 20, 30}, 12)
	l, err := DecodeList(payload, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.CardBlockStride != 12 {
		t.Fatalf("stride = %d, want 12", l.CardBlockStride)
	}
	if len(l.PageTableIDs) != 3 || l.PageTableIDs[0] != 10 || l.PageTableIDs[2] != 30 {
		t.Fatalf("page table ids = %v", l.PageTableIDs)
	}
}

func buildPagePayload(stride int16, entries []PageEntry) ByteBuffer {
	b := NewByteBuffer(pageHeaderSkip + len(entries)*int(stride) + int(stride))
	cursor := pageHeaderSkip
	for _, e := range entries {
		putBEInt32(&b, cursor, e.CardID)
		b.SetAt(cursor+pageCardFlagsByte, e.Flags)
		cursor += int(stride)
	}
	// sentinel card_id == 0 record already present from zero-init
	return b
}

func TestWalkPageStopsAtSentinel(t *testing.T) {
	want := []PageEntry{{CardID: 100, Flags: 0x10}, {CardID: 200, Flags: 0}}
	payload := buildPagePayload(8, want)
	got := WalkPage(payload, 1, 8, nil)
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWalkPageShortBufferWarnsAndStops(t *testing.T) {
	b := NewByteBuffer(pageHeaderSkip + 3) // not enough for one full stride-8 record
	putBEInt32(&b, pageHeaderSkip, 77)
	got := WalkPage(b, 1, 8, nil)
	if len(got) != 0 {
		t.Fatalf("entries = %v, want none (truncated mid-record)", got)
	}
}
