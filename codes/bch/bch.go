// Package bch implements the BCH(15,7) base code for the
// mceliece-cascade cryptosystem.
//
// The code is the ideal generated by g(x) = x⁸+x⁷+x⁶+x⁴+1 in
// GF(2)[x]/(x¹⁵+1); g has designed distance 5, so every pattern of up
// to two errors per block is correctable. Encoding is systematic: the
// seven message bits sit at positions 8..14 and the eight parity bits
// at 0..7, with Syndrome(word) = word(x) mod g(x).
package bch

import (
	"math/bits"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
)

const (
	blockLen   = 15
	messageLen = 7
	correctLen = 2

	// generatorPoly is g(x) = x⁸+x⁷+x⁶+x⁴+1, the product of the minimal
	// polynomials of α and α³ over GF(16); it divides x¹⁵+1.
	generatorPoly = 0x1D1
	parityLen     = 8 // deg g
)

// New builds the immutable BCH(15,7) base code: systematic generator
// rows, the eight remainder-bit parity checks, and the syndrome table
// over every error pattern of weight at most two.
func New() *mcecascade.BaseCode {
	code := &mcecascade.BaseCode{
		Variant: mcecascade.BCH,
		N:       blockLen,
		K:       messageLen,
		T:       correctLen,
		G:       make([]uint16, messageLen),
		H:       make([]uint16, parityLen),
		MsgPos:  make([]int, messageLen),
		Table:   make(map[uint16]uint16, 128),
	}

	for i := 0; i < messageLen; i++ {
		code.G[i] = encodeUnit(i)
		code.MsgPos[i] = parityLen + i
	}

	// Syndrome bit i of a word is bit i of word(x) mod g(x), so parity
	// row i collects the positions j whose x^j remainder has bit i set.
	for j := 0; j < blockLen; j++ {
		rem := polyMod(1 << uint(j))
		for i := 0; i < parityLen; i++ {
			if rem>>uint(i)&1 == 1 {
				code.H[i] |= 1 << uint(j)
			}
		}
	}

	buildTable(code.Table)
	return code
}

// polyMod reduces a polynomial (bit i = coefficient of x^i) modulo g.
func polyMod(word uint32) uint16 {
	for deg := bits.Len32(word) - 1; deg >= parityLen; deg = bits.Len32(word) - 1 {
		word ^= generatorPoly << uint(deg-parityLen)
	}
	return uint16(word)
}

// encodeUnit returns the systematic codeword of the i-th unit message:
// x^(8+i) plus its remainder mod g.
func encodeUnit(i int) uint16 {
	shifted := uint32(1) << uint(parityLen+i)
	return uint16(shifted) | polyMod(shifted)
}

// buildTable fills the syndrome table in ascending weight order with
// the first pattern reaching each syndrome. Distance 5 keeps all
// 1 + 15 + 105 = 121 weight-≤2 syndromes distinct; the remaining 135
// syndrome values stay absent and decode reports them as failures.
func buildTable(table map[uint16]uint16) {
	table[0] = 0
	for j := 0; j < blockLen; j++ {
		pattern := uint16(1) << uint(j)
		syn := polyMod(uint32(pattern))
		if _, ok := table[syn]; !ok {
			table[syn] = pattern
		}
	}
	for j := 0; j < blockLen; j++ {
		for k := j + 1; k < blockLen; k++ {
			pattern := uint16(1)<<uint(j) | uint16(1)<<uint(k)
			syn := polyMod(uint32(pattern))
			if _, ok := table[syn]; !ok {
				table[syn] = pattern
			}
		}
	}
}
