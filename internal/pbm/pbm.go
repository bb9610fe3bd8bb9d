// Package pbm writes the portable bitmap (PBM) format used for every
// BMAP and pattern bitmap this importer emits, per spec §6.
package pbm

import (
	"bytes"
	"fmt"
)

// WriteP4 renders bits (MSB-first, rowBytes = ceil(width/8) per row, 1 =
// black) as a binary (P4) PBM image.
func WriteP4(width, height int, rowBytes int, bits []byte) ([]byte, error) {
	if len(bits) < rowBytes*height {
		return nil, fmt.Errorf("pbm: need %d bytes for %dx%d, got %d", rowBytes*height, width, height, len(bits))
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P4\n%d %d\n", width, height)
	for row := 0; row < height; row++ {
		buf.Write(bits[row*rowBytes : (row+1)*rowBytes])
	}
	return buf.Bytes(), nil
}

// WritePattern renders one of the stack's 40 8x8 pattern bitmaps (each
// stored as 8 bytes, one per row) as a binary PBM image.
func WritePattern(rows [8]byte) []byte {
	out, _ := WriteP4(8, 8, 1, rows[:])
	return out
}
