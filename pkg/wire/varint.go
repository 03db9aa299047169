package wire

import "encoding/binary"

// MaxVarintBytes is the longest an LEB128 varint may be before it is
// considered malformed: 10 bytes covers the full 64-bit range with 7 data
// bits per byte plus slop for non-canonical (overlong) encodings.
const MaxVarintBytes = 10

// PutUvarint appends the unsigned LEB128 encoding of v to buf and returns
// the result. encoding/binary's Uvarint/PutUvarint already implement
// unsigned LEB128 bit-for-bit, so this is a thin wrapper kept here for
// symmetry with PutSleb64 and to keep call sites free of raw
// encoding/binary imports.
func PutUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Uvarint decodes an unsigned LEB128 varint from the front of buf,
// returning the value and the number of bytes consumed. It returns n <= 0
// on truncated or overlong (> MaxVarintBytes) input, mirroring
// encoding/binary.Uvarint's convention.
func Uvarint(buf []byte) (uint64, int) {
	if len(buf) > MaxVarintBytes {
		buf = buf[:MaxVarintBytes]
	}
	v, n := binary.Uvarint(buf)
	return v, n
}

// PutSleb64 appends the sign-extended signed LEB128 encoding of v to buf.
//
// This is NOT the same encoding as encoding/binary's Varint/PutVarint,
// which zig-zag-encodes signed values. RWTF's delta coding requires the
// classic DWARF-style sign-extended scheme, which has no
// standard-library equivalent, so it is hand-rolled here.
func PutSleb64(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// Sleb64 decodes a sign-extended signed LEB128 varint from the front of
// buf, returning the value and the number of bytes consumed. It returns
// n <= 0 on truncated or overlong input.
func Sleb64(buf []byte) (int64, int) {
	var result int64
	var shift uint
	var n int
	for {
		if n >= len(buf) || n >= MaxVarintBytes {
			return 0, 0
		}
		b := buf[n]
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, n
		}
	}
}

// PutUint16, PutUint32, PutUint64 append a fixed-width little-endian
// integer to buf, written as plain byte appends, so wire-layer callers
// never import encoding/binary directly.
func PutUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func PutUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func PutUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func PutInt64(buf []byte, v int64) []byte {
	return PutUint64(buf, uint64(v))
}

// Uint16, Uint32, Uint64, Int64 read a fixed-width little-endian integer
// from the front of buf. Callers must ensure buf is long enough.
func Uint16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

func Uint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

func Uint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

func Int64(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}
