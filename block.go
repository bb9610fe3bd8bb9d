package stackimport

import (
	"encoding/binary"
	"io"
	"log/slog"
)

// blockHeaderSize is the fixed 12-byte framing prefix: a big-endian u32
// length (including this header), a 4-byte type tag, and a big-endian i32 id.
const blockHeaderSize = 12

// tailID is the sentinel id of the TAIL block marking end-of-stream.
const tailID int32 = -1 // 0xFFFFFFFF as a signed 32-bit value

var (
	tagTAIL = [4]byte{'T', 'A', 'I', 'L'}
	tagFREE = [4]byte{'F', 'R', 'E', 'E'}
	tagSTAK = [4]byte{'S', 'T', 'A', 'K'}
	tagFTBL = [4]byte{'F', 'T', 'B', 'L'}
	tagSTBL = [4]byte{'S', 'T', 'B', 'L'}
	tagBKGD = [4]byte{'B', 'K', 'G', 'D'}
	tagCARD = [4]byte{'C', 'A', 'R', 'D'}
	tagLIST = [4]byte{'L', 'I', 'S', 'T'}
	tagPAGE = [4]byte{'P', 'A', 'G', 'E'}
	tagBMAP = [4]byte{'B', 'M', 'A', 'P'}
)

// BlockKey identifies a block by its type tag and id, the composite key
// the index is built on.
type BlockKey struct {
	Type [4]byte
	ID   int32
}

func (k BlockKey) String() string { return string(k.Type[:]) }

// BlockIndex is an ordered mapping from BlockKey to the block's payload,
// built by one linear scan of the input file. Iteration order is
// insertion order, preserved for deterministic emission (spec §5).
type BlockIndex struct {
	order []BlockKey
	data  map[BlockKey]ByteBuffer
}

// Lookup returns the payload for key, or ok=false if absent.
func (bi *BlockIndex) Lookup(key BlockKey) (ByteBuffer, bool) {
	b, ok := bi.data[key]
	return b, ok
}

// LookupType returns the payload for (typeTag, id).
func (bi *BlockIndex) LookupType(typeTag [4]byte, id int32) (ByteBuffer, bool) {
	return bi.Lookup(BlockKey{Type: typeTag, ID: id})
}

// All iterates blocks of the given type in insertion order.
func (bi *BlockIndex) All(typeTag [4]byte) []BlockKey {
	var out []BlockKey
	for _, k := range bi.order {
		if k.Type == typeTag {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of indexed blocks (TAIL and FREE excluded).
func (bi *BlockIndex) Len() int { return len(bi.order) }

// Keys returns every indexed block's key, in insertion order.
func (bi *BlockIndex) Keys() []BlockKey {
	out := make([]BlockKey, len(bi.order))
	copy(out, bi.order)
	return out
}

// ScanBlocks reads a flat sequence of typed, length-prefixed blocks from r
// and builds a BlockIndex. Scanning stops at TAIL/-1; FREE blocks are
// discarded. A duplicate (type, id) key overwrites the earlier entry with
// a warning, never an error.
func ScanBlocks(r io.Reader, log *slog.Logger) (*BlockIndex, error) {
	bi := &BlockIndex{data: make(map[BlockKey]ByteBuffer)}
	var hdr [blockHeaderSize]byte
	for {
		_, err := io.ReadFull(r, hdr[:])
		if err == io.EOF {
			logwarn(log, "block stream ended without TAIL marker")
			return bi, nil
		}
		if err != nil {
			return bi, &DecodeError{Kind: KindIoError, Context: "reading block header", Err: err}
		}
		length := binary.BigEndian.Uint32(hdr[0:4])
		var typ [4]byte
		copy(typ[:], hdr[4:8])
		id := int32(binary.BigEndian.Uint32(hdr[8:12]))

		if typ == tagTAIL && id == tailID {
			return bi, nil
		}
		if length < blockHeaderSize {
			return bi, blockError(KindTruncated, string(typ[:]), id, 0,
				"declared length shorter than block header")
		}
		payloadLen := int(length) - blockHeaderSize
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return bi, blockError(KindTruncated, string(typ[:]), id, blockHeaderSize,
				"payload shorter than declared length")
		}

		if typ == tagFREE {
			logtrace(log, "discarding FREE block", slog.Int("len", payloadLen))
			continue
		}

		key := BlockKey{Type: typ, ID: id}
		if _, exists := bi.data[key]; exists {
			logwarn(log, "duplicate block key, overwriting", slog.String("type", string(typ[:])), slog.Int64("id", int64(id)))
		} else {
			bi.order = append(bi.order, key)
		}
		bi.data[key] = NewByteBufferFrom(payload)
		logtrace(log, "indexed block", slog.String("type", string(typ[:])), slog.Int64("id", int64(id)), slog.Int("payloadLen", payloadLen))
	}
}
