package stackimport

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// appendBlock writes one length-prefixed block to b: length, type, id,
// payload, matching the §4.3 framing.
func appendBlock(buf *bytes.Buffer, typ string, id int32, payload []byte) {
	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(12+len(payload)))
	copy(hdr[4:8], typ)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(id))
	buf.Write(hdr[:])
	buf.Write(payload)
}

func appendTail(buf *bytes.Buffer) {
	appendBlock(buf, "TAIL", -1, nil)
}

func TestScanBlocksIndexesAndStopsAtTail(t *testing.T) {
	var buf bytes.Buffer
	appendBlock(&buf, "STAK", -1, make([]byte, 16))
	appendBlock(&buf, "FREE", 0, []byte{1, 2, 3})
	appendBlock(&buf, "FTBL", 1, []byte{0, 1})
	appendTail(&buf)
	appendBlock(&buf, "CARD", 99, []byte{0xDE, 0xAD}) // must not be indexed: after TAIL

	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bi.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (FREE discarded, TAIL not indexed, post-TAIL not read)", bi.Len())
	}
	if _, ok := bi.LookupType(tagSTAK, -1); !ok {
		t.Fatal("STAK/-1 not indexed")
	}
	if _, ok := bi.LookupType([4]byte{'F', 'R', 'E', 'E'}, 0); ok {
		t.Fatal("FREE block should not be indexed")
	}
	if _, ok := bi.LookupType(tagCARD, 99); ok {
		t.Fatal("block after TAIL should not be indexed")
	}
}

func TestScanBlocksDuplicateKeyOverwrites(t *testing.T) {
	var buf bytes.Buffer
	appendBlock(&buf, "FTBL", 1, []byte{0xAA})
	appendBlock(&buf, "FTBL", 1, []byte{0xBB})
	appendTail(&buf)

	bi, err := ScanBlocks(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bi.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (duplicate key collapses to one entry)", bi.Len())
	}
	payload, _ := bi.LookupType(tagFTBL, 1)
	if payload.Bytes()[0] != 0xBB {
		t.Fatal("duplicate key should overwrite with the later block's payload")
	}
}

func TestScanBlocksTruncatedPayloadErrors(t *testing.T) {
	var buf bytes.Buffer
	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], 20) // claims 8 payload bytes
	copy(hdr[4:8], "STAK")
	buf.Write(hdr[:])
	buf.Write([]byte{1, 2, 3}) // only 3 actually present

	_, err := ScanBlocks(&buf, nil)
	if err == nil {
		t.Fatal("expected a truncation error")
	}
}

// FuzzScanBlocks exercises the one component that consumes fully
// attacker-controlled input end to end: arbitrary bytes must never panic
// or hang the scanner, only return a well-formed error.
func FuzzScanBlocks(f *testing.F) {
	var seed1 bytes.Buffer
	appendBlock(&seed1, "STAK", -1, make([]byte, 16))
	appendBlock(&seed1, "FTBL", 1, []byte{0, 1})
	appendTail(&seed1)
	f.Add(seed1.Bytes())

	var seed2 bytes.Buffer
	appendBlock(&seed2, "FREE", 0, []byte{1, 2, 3})
	f.Add(seed2.Bytes())

	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = ScanBlocks(bytes.NewReader(data), nil)
	})
}
