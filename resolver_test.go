package stackimport

import (
	"bytes"
	"testing"
)

func buildMinimalLayerPayload(isCard bool, owner, bitmapID int32) []byte {
	cursor := offLayerFlags + 2 + layerHeaderSkip
	if isCard {
		cursor += 4
	}
	cursor += 2 + 6 // num_parts + filler
	cursor += 2 + 4 // num_contents + filler
	total := cursor + 2 // name NUL + script NUL, no parts/contents
	buf := make([]byte, total)
	b := NewByteBufferFrom(buf)
	putBEInt32(&b, offLayerBitmapID, bitmapID)
	if isCard {
		ownerOff := offLayerFlags + 2 + layerHeaderSkip
		putBEInt32(&b, ownerOff, owner)
	}
	return b.Bytes()
}

// buildMinimalStack builds a STAK payload large enough for every fixed
// field DecodeStack reads, pointing at fontTableID/styleTableID/listBlockID.
func buildMinimalStack(fontTableID, styleTableID, listBlockID int32) []byte {
	b := NewByteBuffer(1600)
	putBEInt32(&b, offStakFirstCardID, 7)
	putBEInt32(&b, offStakListBlockID, listBlockID)
	putBEInt32(&b, offStakFontTableID, fontTableID)
	putBEInt32(&b, offStakStyleTableID, styleTableID)
	return b.Bytes()
}

func TestResolveMinimalStackOneBackgroundOneCard(t *testing.T) {
	var buf bytes.Buffer
	appendBlock(&buf, "STAK", -1, buildMinimalStack(1, 1, 1))
	appendBlock(&buf, "FTBL", 1, make([]byte, offFtblCount+2+ftblReserved)) // 0 fonts
	appendBlock(&buf, "STBL", 1, make([]byte, stblFirstRecordOff))         // 0 styles
	appendBlock(&buf, "BKGD", 5, buildMinimalLayerPayload(false, 0, 0))
	appendBlock(&buf, "LIST", 1, buildListPayload([]int32{1}, 8).Bytes())
	appendBlock(&buf, "PAGE", 1, buildPagePayload(8, []PageEntry{{CardID: 7, Flags: 0}}).Bytes())
	appendBlock(&buf, "CARD", 7, buildMinimalLayerPayload(true, 5, 0))
	appendTail(&buf)

	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	proj, err := Resolve(bi, nil)
	if err != nil {
		t.Fatal(err)
	}
	if proj.Stack.CardWidth != defaultCardWidth || proj.Stack.CardHeight != defaultCardHeight {
		t.Fatalf("card size = %dx%d, want defaults %dx%d", proj.Stack.CardWidth, proj.Stack.CardHeight, defaultCardWidth, defaultCardHeight)
	}
	if len(proj.Backgrounds) != 1 {
		t.Fatalf("backgrounds = %d, want 1", len(proj.Backgrounds))
	}
	if len(proj.Cards) != 1 || proj.Cards[0].ID != 7 {
		t.Fatalf("cards = %v, want one card with id 7", proj.Cards)
	}
	if proj.Cards[0].Owner != 5 {
		t.Fatalf("card owner = %d, want 5", proj.Cards[0].Owner)
	}
}

func TestBlockIndexKeysPreservesInsertionOrder(t *testing.T) {
	var buf bytes.Buffer
	appendBlock(&buf, "STAK", -1, make([]byte, 4))
	appendBlock(&buf, "FTBL", 1, make([]byte, 4))
	appendTail(&buf)
	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	keys := bi.Keys()
	if len(keys) != 2 || keys[0].Type != tagSTAK || keys[1].Type != tagFTBL {
		t.Fatalf("Keys() = %v, want STAK then FTBL in insertion order", keys)
	}
}

func TestResolveMissingSTAKIsFatal(t *testing.T) {
	var buf bytes.Buffer
	appendTail(&buf)
	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(bi, nil); err == nil {
		t.Fatal("expected a fatal MissingBlock error when STAK is absent")
	}
}

func TestResolveMissingCardIsSkippedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	appendBlock(&buf, "STAK", -1, buildMinimalStack(1, 1, 1))
	appendBlock(&buf, "FTBL", 1, make([]byte, offFtblCount+2+ftblReserved))
	appendBlock(&buf, "STBL", 1, make([]byte, stblFirstRecordOff))
	appendBlock(&buf, "LIST", 1, buildListPayload([]int32{1}, 8).Bytes())
	appendBlock(&buf, "PAGE", 1, buildPagePayload(8, []PageEntry{{CardID: 7, Flags: 0}}).Bytes())
	// CARD/7 deliberately absent
	appendTail(&buf)

	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	proj, err := Resolve(bi, nil)
	if err != nil {
		t.Fatalf("a missing CARD block should be skipped with a warning, not fatal: %v", err)
	}
	if len(proj.Cards) != 0 {
		t.Fatalf("cards = %v, want none (the only referenced card was missing)", proj.Cards)
	}
}
