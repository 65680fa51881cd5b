// Package mcecascade implements a McEliece-style public-key cryptosystem
// built on block-cascaded binary codes, together with the
// information-set-decoding attacker used to measure its practical
// security.
//
// The construction expands a small base code — Hamming(15,11) correcting
// one error per block, or BCH(15,7) correcting two — into a
// block-diagonal cascade of L copies, then hides the cascade structure
// behind a random invertible scramble S and a random column permutation
// P. Decryption undoes the permutation, decodes the L blocks
// independently, and unscrambles with S⁻¹.
//
// WARNING: This is a research testbed for studying code-based
// cryptography and decoding attacks. The supported parameter sizes are
// deliberately small and breakable by the bundled attacker. DO NOT use
// it to protect real data.
package mcecascade

import (
	"errors"
	"math/bits"

	"github.com/BackendStack21/mceliece-cascade-go/gf2"
)

// Variant selects the base code of a cascade.
type Variant string

const (
	// Hamming is the Hamming(15,11) code, correcting 1 error per block.
	Hamming Variant = "hamming-15-11"
	// BCH is the BCH(15,7) code, correcting 2 errors per block.
	BCH Variant = "bch-15-7"
)

var (
	// ErrInvalidParameter reports a rejected construction parameter
	// (L < 1, unknown variant, bad worker or budget counts).
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrLengthMismatch reports an input whose length does not match the
	// key's dimensions.
	ErrLengthMismatch = errors.New("length mismatch")
)

// =============================================================================
// Parameter Types
// =============================================================================

// CodeParams is the parameter triple of a base code.
type CodeParams struct {
	Variant Variant `json:"variant"`
	NBlock  int     `json:"n_block"` // Codeword bits per block
	KBlock  int     `json:"k_block"` // Message bits per block
	TBlock  int     `json:"t_block"` // Correctable errors per block
}

// CascadeParams describes a cascade of L base-code blocks.
type CascadeParams struct {
	CodeParams
	L int `json:"l"` // Number of block copies
	N int `json:"n"` // Codeword length, L·NBlock
	K int `json:"k"` // Message length, L·KBlock
	T int `json:"t"` // Total injected error weight, L·TBlock
}

// =============================================================================
// Base Code
// =============================================================================

// BaseCode is an immutable small binary code with a precomputed
// syndrome-decoding table. It is built once per variant (codes/hamming,
// codes/bch) and shared read-only by every derived cascade and every
// decode call. Blocks are at most 16 bits, so codeword words are uint16
// with bit i holding codeword position i.
type BaseCode struct {
	Variant Variant
	N       int // codeword bits per block
	K       int // message bits per block
	T       int // correctable errors per block

	G      []uint16          // generator rows: row i is the encoding of unit message i
	H      []uint16          // parity-check rows: syndrome bit i = parity(word & H[i])
	MsgPos []int             // codeword position of message bit i
	Table  map[uint16]uint16 // syndrome → minimal-weight error pattern, weight ≤ T
}

// EncodeBlock encodes a K-bit message word into an N-bit codeword by
// XOR-combining the generator rows selected by the message bits.
func (c *BaseCode) EncodeBlock(msg uint16) uint16 {
	var word uint16
	for i, row := range c.G {
		if msg>>uint(i)&1 == 1 {
			word ^= row
		}
	}
	return word
}

// Syndrome returns the parity-check syndrome of an N-bit word.
func (c *BaseCode) Syndrome(word uint16) uint16 {
	var syn uint16
	for i, row := range c.H {
		syn |= uint16(bits.OnesCount16(word&row)&1) << uint(i)
	}
	return syn
}

// DecodeBlock corrects up to T errors in an N-bit word and extracts the
// K message bits from the MsgPos positions. ok is false when the
// syndrome has no table entry (more than T errors, always a table hit
// for Hamming); the best-effort extraction is still returned and callers
// must check the flag.
func (c *BaseCode) DecodeBlock(word uint16) (msg uint16, ok bool) {
	pattern, hit := c.Table[c.Syndrome(word)]
	if hit {
		word ^= pattern
	}
	for i, pos := range c.MsgPos {
		msg |= (word >> uint(pos) & 1) << uint(i)
	}
	return msg, hit
}

// =============================================================================
// Key Types
// =============================================================================

// PublicKey is the public half of a cascade keypair.
//
// G is the k×n scrambled generator: column j of G is column P[j] of
// S·G_cascade, so rank(G) = K. P is part of the public key because the
// encryptor permutes its freshly sampled error vector with it; the
// attacker model (package isd) uses only G, N, K, and T.
type PublicKey struct {
	G gf2.Matrix
	N int // ciphertext length
	K int // message length
	L int // block copies
	T int // injected error weight
	P gf2.Permutation
}

// PrivateKey is the private half: the inverses undoing the scramble,
// applied in reverse order of key generation (P first, S second).
type PrivateKey struct {
	SInv gf2.Matrix      // k×k, S·SInv = I
	PInv gf2.Permutation // inverse of the public P
	Code *BaseCode       // shared immutable base code
	L    int
}

// KeyPair bundles the halves produced together by key generation.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}
