package stackimport

import (
	"os"
)

// bufCore is the shared backing store for a ByteBuffer. Any number of
// ByteBuffer handles may reference the same core; a structural mutation
// (Resize, SetAt, CopyFrom, XorSpan, ShiftSpan) detaches to a private
// copy first, so no handle ever observes another handle's mutation.
type bufCore struct {
	data []byte
}

// ByteBuffer is a reference-counted, copy-on-write-on-mutation byte region.
// The zero value has no backing store: Size, HasData, At and the BE*
// readers treat it as empty, but Bytes, Resize, and any mutating method
// that gets past its bounds check dereference the missing store and
// panic. Use NewByteBuffer or NewByteBufferFrom to get a buffer those
// methods accept.
type ByteBuffer struct {
	core *bufCore
	off  int
	size int
}

// NewByteBuffer allocates a zero-initialized buffer of n bytes.
func NewByteBuffer(n int) ByteBuffer {
	return ByteBuffer{core: &bufCore{data: make([]byte, n)}, size: n}
}

// NewByteBufferFrom copies src into a freshly owned buffer.
func NewByteBufferFrom(src []byte) ByteBuffer {
	data := make([]byte, len(src))
	copy(data, src)
	return ByteBuffer{core: &bufCore{data: data}, size: len(src)}
}

// Size returns the number of bytes visible through this handle.
func (b ByteBuffer) Size() int { return b.size }

// HasData reports whether [offs, offs+amount) lies within the buffer.
func (b ByteBuffer) HasData(offs, amount int) bool {
	if offs < 0 || amount < 0 {
		return false
	}
	return offs+amount <= b.size
}

// detach ensures this handle's core is not shared with any other handle
// that might still observe the unmutated bytes, by cloning its visible
// window into a new core. Call before any in-place mutation.
func (b *ByteBuffer) detach() {
	clone := make([]byte, b.size)
	copy(clone, b.core.data[b.off:b.off+b.size])
	b.core = &bufCore{data: clone}
	b.off = 0
}

// Resize changes the visible size, preserving the min(old,new) prefix.
// Always detaches first: a resized buffer never shares storage.
func (b *ByteBuffer) Resize(n int) {
	if n < 0 {
		n = 0
	}
	old := b.core.data[b.off : b.off+b.size]
	prefix := n
	if prefix > len(old) {
		prefix = len(old)
	}
	data := make([]byte, n)
	copy(data, old[:prefix])
	b.core = &bufCore{data: data}
	b.off = 0
	b.size = n
}

// Slice returns a view onto [offs, offs+amount) sharing storage with b.
// amount < 0 means "to end". Fails with ErrOutOfBounds if the range
// exceeds the buffer.
func (b ByteBuffer) Slice(offs, amount int) (ByteBuffer, error) {
	if amount < 0 {
		amount = b.size - offs
	}
	if !b.HasData(offs, amount) {
		return ByteBuffer{}, errOutOfBounds("Slice", offs, amount, b.size)
	}
	return ByteBuffer{core: b.core, off: b.off + offs, size: amount}, nil
}

// Bytes exposes the visible window directly. Callers must not retain or
// mutate the slice across a later Resize/SetAt/CopyFrom/XorSpan/ShiftSpan
// call on this or any aliasing handle.
func (b ByteBuffer) Bytes() []byte {
	return b.core.data[b.off : b.off+b.size]
}

// At reads a single byte.
func (b ByteBuffer) At(i int) (byte, error) {
	if !b.HasData(i, 1) {
		return 0, errOutOfBounds("At", i, 1, b.size)
	}
	return b.core.data[b.off+i], nil
}

// SetAt writes a single byte, detaching from any shared core first.
func (b *ByteBuffer) SetAt(i int, v byte) error {
	if !b.HasData(i, 1) {
		return errOutOfBounds("SetAt", i, 1, b.size)
	}
	b.detach()
	b.core.data[b.off+i] = v
	return nil
}

// BEUint16 reads a big-endian uint16 at offs.
func (b ByteBuffer) BEUint16(offs int) (uint16, error) {
	if !b.HasData(offs, 2) {
		return 0, errOutOfBounds("BEUint16", offs, 2, b.size)
	}
	d := b.core.data[b.off+offs:]
	return uint16(d[0])<<8 | uint16(d[1]), nil
}

// BEInt16 reads a big-endian int16 at offs.
func (b ByteBuffer) BEInt16(offs int) (int16, error) {
	u, err := b.BEUint16(offs)
	return int16(u), err
}

// BEUint32 reads a big-endian uint32 at offs.
func (b ByteBuffer) BEUint32(offs int) (uint32, error) {
	if !b.HasData(offs, 4) {
		return 0, errOutOfBounds("BEUint32", offs, 4, b.size)
	}
	d := b.core.data[b.off+offs:]
	return uint32(d[0])<<24 | uint32(d[1])<<16 | uint32(d[2])<<8 | uint32(d[3]), nil
}

// BEInt32 reads a big-endian int32 at offs.
func (b ByteBuffer) BEInt32(offs int) (int32, error) {
	u, err := b.BEUint32(offs)
	return int32(u), err
}

// CopyBytes copies amount bytes from src[fromOffs:] into b[toOffs:],
// detaching b first.
func (b *ByteBuffer) CopyBytes(toOffs int, src []byte, fromOffs, amount int) error {
	if !b.HasData(toOffs, amount) {
		return errOutOfBounds("CopyBytes", toOffs, amount, b.size)
	}
	if fromOffs < 0 || fromOffs+amount > len(src) {
		return errOutOfBounds("CopyBytes(src)", fromOffs, amount, len(src))
	}
	b.detach()
	copy(b.core.data[b.off+toOffs:b.off+toOffs+amount], src[fromOffs:fromOffs+amount])
	return nil
}

// CopyFrom copies amount bytes from src[fromOffs:] into b[toOffs:].
func (b *ByteBuffer) CopyFrom(toOffs int, src ByteBuffer, fromOffs, amount int) error {
	if !src.HasData(fromOffs, amount) {
		return errOutOfBounds("CopyFrom(src)", fromOffs, amount, src.size)
	}
	return b.CopyBytes(toOffs, src.Bytes(), fromOffs, amount)
}

// XorSpan pairwise-XORs amount bytes of src[srcOffs:] into b[dstOffs:].
func (b *ByteBuffer) XorSpan(dstOffs int, src ByteBuffer, srcOffs, amount int) error {
	if !b.HasData(dstOffs, amount) {
		return errOutOfBounds("XorSpan", dstOffs, amount, b.size)
	}
	if !src.HasData(srcOffs, amount) {
		return errOutOfBounds("XorSpan(src)", srcOffs, amount, src.size)
	}
	b.detach()
	dst := b.core.data[b.off+dstOffs:]
	s := src.Bytes()[srcOffs:]
	for i := 0; i < amount; i++ {
		dst[i] ^= s[i]
	}
	return nil
}

// ShiftSpan treats amount bytes at dstOffs as a big-endian bitstring and
// shifts it left by shiftBits bits in place, zero-filling on the right.
// Used by the WOBA bitmap decompressor to align delta runs.
func (b *ByteBuffer) ShiftSpan(dstOffs, amount, shiftBits int) error {
	if !b.HasData(dstOffs, amount) {
		return errOutOfBounds("ShiftSpan", dstOffs, amount, b.size)
	}
	if shiftBits == 0 || amount == 0 {
		return nil
	}
	b.detach()
	span := b.core.data[b.off+dstOffs : b.off+dstOffs+amount]
	byteShift := shiftBits / 8
	bitShift := uint(shiftBits % 8)
	out := make([]byte, amount)
	for i := 0; i < amount; i++ {
		srcIdx := i + byteShift
		var cur, next byte
		if srcIdx < amount {
			cur = span[srcIdx]
		}
		if srcIdx+1 < amount {
			next = span[srcIdx+1]
		}
		if bitShift == 0 {
			out[i] = cur
		} else {
			out[i] = cur<<bitShift | next>>(8-bitShift)
		}
	}
	copy(span, out)
	return nil
}

// WriteFile writes the visible window to path, truncating any existing file.
func (b ByteBuffer) WriteFile(path string) error {
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return &DecodeError{Kind: KindIoError, Context: path, Err: err}
	}
	return nil
}
