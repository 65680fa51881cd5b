// Package hamming implements the Hamming(15,11) base code for the
// mceliece-cascade cryptosystem.
//
// Codeword positions are numbered 1..15; positions 1, 2, 4, 8 carry
// parity and the remaining eleven carry the message. The syndrome of a
// single-bit error is the 1-indexed position of that bit, so the
// syndrome table is total over the 4-bit syndrome space and block
// decoding never misses.
package hamming

import (
	"math/bits"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
)

const (
	blockLen   = 15
	messageLen = 11
	correctLen = 1
)

// New builds the immutable Hamming(15,11) base code: generator rows as
// encodings of the unit messages, the four index-bit parity checks, and
// the complete single-error syndrome table.
func New() *mcecascade.BaseCode {
	msgPos := dataPositions()

	code := &mcecascade.BaseCode{
		Variant: mcecascade.Hamming,
		N:       blockLen,
		K:       messageLen,
		T:       correctLen,
		G:       make([]uint16, messageLen),
		H:       make([]uint16, 4),
		MsgPos:  msgPos,
		Table:   make(map[uint16]uint16, blockLen+1),
	}

	// Parity check a covers every position whose 1-indexed value has
	// bit a set, the parity position 2^a included.
	for a := 0; a < 4; a++ {
		var row uint16
		for j := 0; j < blockLen; j++ {
			if (j+1)>>uint(a)&1 == 1 {
				row |= 1 << uint(j)
			}
		}
		code.H[a] = row
	}

	for i := 0; i < messageLen; i++ {
		code.G[i] = encodeUnit(msgPos, i)
	}

	// Zero syndrome means no error; syndrome s corrects position s-1.
	code.Table[0] = 0
	for j := 0; j < blockLen; j++ {
		code.Table[uint16(j+1)] = 1 << uint(j)
	}

	return code
}

// dataPositions returns the 0-indexed codeword positions that are not
// powers of two (1-indexed), in increasing order.
func dataPositions() []int {
	pos := make([]int, 0, messageLen)
	for j := 1; j <= blockLen; j++ {
		if bits.OnesCount16(uint16(j)) != 1 {
			pos = append(pos, j-1)
		}
	}
	return pos
}

// encodeUnit returns the codeword of the i-th unit message: the message
// bit at its data position plus the parity bits covering it.
func encodeUnit(msgPos []int, i int) uint16 {
	word := uint16(1) << uint(msgPos[i])
	for a := 0; a < 4; a++ {
		parityPos := 1<<uint(a) - 1 // 0-indexed position of parity bit a
		var parity uint16
		for j := 0; j < blockLen; j++ {
			if j != parityPos && (j+1)>>uint(a)&1 == 1 {
				parity ^= word >> uint(j) & 1
			}
		}
		word |= parity << uint(parityPos)
	}
	return word
}
