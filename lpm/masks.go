// Package lpm implements longest-prefix matching over byte strings for the
// onpair dictionary compressor: a dynamic index used during training, and
// (for the 16-byte-constrained variant) a perfect-hash-indexed static index
// built once training finishes.
package lpm

import (
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// masks clears all but the low n bytes of a little-endian uint64, for
// n in [0, 8].
var masks = [9]uint64{
	0x0000000000000000,
	0x00000000000000FF,
	0x000000000000FFFF,
	0x0000000000FFFFFF,
	0x00000000FFFFFFFF,
	0x000000FFFFFFFFFF,
	0x0000FFFFFFFFFFFF,
	0x00FFFFFFFFFFFFFF,
	0xFFFFFFFFFFFFFFFF,
}

// minMatch is the boundary between the short-key (direct hash) and
// long-key (bucketed) storage strategies.
const minMatch = 8

// loadU64LEMasked reads up to 8 bytes of buf as a little-endian word and
// masks off everything past length. Slices of at least 8 bytes are read
// with one unaligned load; shorter slices (such as the tail of a row)
// fall back to a bounds-safe copy, so no tail padding is required.
func loadU64LEMasked(buf []byte, length int) uint64 {
	if length > 8 {
		length = 8
	}
	if length < 0 {
		length = 0
	}

	if len(buf) < 8 {
		var tmp [8]byte
		copy(tmp[:], buf)
		return binary.LittleEndian.Uint64(tmp[:]) & masks[length]
	}

	// Safe: len(buf) >= 8 was just checked.
	word := *(*uint64)(unsafe.Pointer(&buf[0]))
	return word & masks[length]
}

// sharedPrefixBytes returns the number of leading bytes in which a and b
// agree, via trailing-zero-count on the XOR.
func sharedPrefixBytes(a, b uint64) int {
	return bits.TrailingZeros64(a^b) >> 3
}

// isPrefix reports whether cand (of length candLen) is a byte-prefix of
// text (of length textLen), comparing through the masked words.
func isPrefix(text, cand uint64, textLen, candLen int) bool {
	return candLen <= textLen && sharedPrefixBytes(text, cand) >= candLen
}

func u64ToBytesLE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
