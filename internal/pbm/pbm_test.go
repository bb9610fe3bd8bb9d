package pbm

import (
	"bytes"
	"testing"
)

func TestWriteP4Header(t *testing.T) {
	bits := []byte{0xFF, 0x00}
	got, err := WriteP4(8, 2, 1, bits)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("P4\n8 2\n")) {
		t.Fatalf("missing expected PBM header: %q", got)
	}
	if !bytes.HasSuffix(got, bits) {
		t.Fatalf("pixel data not appended verbatim: %x", got)
	}
}

func TestWriteP4ShortBufferErrors(t *testing.T) {
	if _, err := WriteP4(8, 2, 1, []byte{0xFF}); err == nil {
		t.Fatal("expected an error when fewer bytes are supplied than rowBytes*height")
	}
}

func TestWritePattern(t *testing.T) {
	rows := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	got := WritePattern(rows)
	want, _ := WriteP4(8, 8, 1, rows[:])
	if !bytes.Equal(got, want) {
		t.Fatal("WritePattern should match WriteP4(8, 8, 1, rows[:])")
	}
}
