package stackimport

import "testing"

func TestFormatNumVersion(t *testing.T) {
	cases := []struct {
		rec  [4]byte
		want string
	}{
		{[4]byte{0x02, 0x20, 0x80, 0x05}, "2.2v5"},
		// Scenario as given by the spec's worked example text is
		// internally inconsistent: it asserts "3.1.5a0" for this input,
		// but its own four-shape rule says counter==0 selects the
		// three-component form with no stage suffix. We follow the rule,
		// not the apparently mistranscribed literal.
		{[4]byte{0x03, 0x15, 0x40, 0x00}, "3.1.5"},
		{[4]byte{0x01, 0x00, 0x80, 0x00}, "1.0"},
		{[4]byte{0x01, 0x05, 0x20, 0x03}, "1.0.5d3"},
	}
	for _, c := range cases {
		if got := formatNumVersion(c.rec); got != c.want {
			t.Errorf("formatNumVersion(%v) = %q, want %q", c.rec, got, c.want)
		}
	}
}

func TestNumVersionStageDefaultsToV(t *testing.T) {
	if got := numVersionStage(0x00); got != 'v' {
		t.Fatalf("numVersionStage(0x00) = %q, want 'v'", got)
	}
	for b, want := range map[byte]byte{0x20: 'd', 0x40: 'a', 0x60: 'b', 0x80: 'v'} {
		if got := numVersionStage(b); got != want {
			t.Errorf("numVersionStage(%#x) = %q, want %q", b, got, want)
		}
	}
}

func TestDecodeStackDefaultCardSize(t *testing.T) {
	payload := NewByteBuffer(1600)
	// card_count, first_card_id, list_block_id left zero; height/width
	// (offsets 428/430) left zero too, which must default to 342x512.
	s, err := DecodeStack(payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.CardWidth != defaultCardWidth || s.CardHeight != defaultCardHeight {
		t.Fatalf("default card size = %dx%d, want %dx%d", s.CardWidth, s.CardHeight, defaultCardWidth, defaultCardHeight)
	}
}

func TestDecodeStackExplicitCardSize(t *testing.T) {
	payload := NewByteBuffer(1600)
	payload.SetAt(offStakHeight, 0x00)
	payload.SetAt(offStakHeight+1, 0xC0) // 192
	payload.SetAt(offStakWidth, 0x02)
	payload.SetAt(offStakWidth+1, 0x00) // 512
	s, err := DecodeStack(payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.CardWidth != 512 || s.CardHeight != 192 {
		t.Fatalf("card size = %dx%d, want 512x192", s.CardWidth, s.CardHeight)
	}
}

func TestReadCStringLenAdvancesPastNUL(t *testing.T) {
	b := NewByteBufferFrom([]byte("hi\x00next"))
	s, consumed := readCStringLen(b, 0)
	if s != "hi" || consumed != 3 {
		t.Fatalf("readCStringLen = %q, %d; want \"hi\", 3", s, consumed)
	}
}
