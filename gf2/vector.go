// Package gf2 implements dense bit-packed linear algebra over GF(2) for
// the mceliece-cascade codes and attacker: vectors and matrices backed by
// 64-bit words, Gauss-Jordan inversion, rank, column selection, and
// seeded random sampling of vectors, matrices, and permutations.
package gf2

import (
	"math/bits"
	"strings"

	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

const wordBits = 64

// wordsFor returns the number of 64-bit words needed to hold n bits.
func wordsFor(n int) int {
	return (n + wordBits - 1) / wordBits
}

// Vector is a fixed-length bit vector over GF(2), packed LSB-first into
// 64-bit words. Bits past the logical length are kept zero so word-level
// operations (XOR, popcount, equality) need no masking.
type Vector struct {
	n int
	w []uint64
}

// NewVector returns the all-zero vector of length n.
func NewVector(n int) Vector {
	if n < 0 {
		panic("gf2: negative vector length")
	}
	return Vector{n: n, w: make([]uint64, wordsFor(n))}
}

// VectorFromBits builds a vector with bit i taken from bits[i] & 1.
func VectorFromBits(bits []uint8) Vector {
	v := NewVector(len(bits))
	for i, b := range bits {
		if b&1 == 1 {
			v.w[i/wordBits] |= 1 << (uint(i) % wordBits)
		}
	}
	return v
}

// RandomVector returns a uniform random vector of length n drawn from rng.
func RandomVector(n int, rng *utils.Rand) Vector {
	v := NewVector(n)
	for i := range v.w {
		v.w[i] = rng.Uint64()
	}
	v.maskTail()
	return v
}

// maskTail clears the unused bits in the last word.
func (v Vector) maskTail() {
	if len(v.w) > 0 && v.n%wordBits != 0 {
		v.w[len(v.w)-1] &= 1<<uint(v.n%wordBits) - 1
	}
}

// Len returns the number of bits.
func (v Vector) Len() int {
	return v.n
}

// Bit returns bit i.
func (v Vector) Bit(i int) uint8 {
	if i < 0 || i >= v.n {
		panic("gf2: bit index out of range")
	}
	return uint8(v.w[i/wordBits] >> (uint(i) % wordBits) & 1)
}

// SetBit sets bit i to b & 1.
func (v Vector) SetBit(i int, b uint8) {
	if i < 0 || i >= v.n {
		panic("gf2: bit index out of range")
	}
	mask := uint64(1) << (uint(i) % wordBits)
	if b&1 == 1 {
		v.w[i/wordBits] |= mask
	} else {
		v.w[i/wordBits] &^= mask
	}
}

// FlipBit toggles bit i.
func (v Vector) FlipBit(i int) {
	if i < 0 || i >= v.n {
		panic("gf2: bit index out of range")
	}
	v.w[i/wordBits] ^= 1 << (uint(i) % wordBits)
}

// Window returns width bits starting at position lo, packed LSB-first
// into a uint64. width must be in [0, 64] and [lo, lo+width) must lie
// inside the vector.
func (v Vector) Window(lo, width int) uint64 {
	if width < 0 || width > wordBits || lo < 0 || lo+width > v.n {
		panic("gf2: window out of range")
	}
	if width == 0 {
		return 0
	}
	word, off := lo/wordBits, uint(lo%wordBits)
	out := v.w[word] >> off
	// A shift count of 64 would be undefined behaviour in C and yields 0
	// in Go, so the straddling word is only folded in when off > 0.
	if off != 0 && word+1 < len(v.w) {
		out |= v.w[word+1] << (wordBits - off)
	}
	if width == wordBits {
		return out
	}
	return out & (1<<uint(width) - 1)
}

// SetWindow writes the low width bits of val at position lo.
func (v Vector) SetWindow(lo, width int, val uint64) {
	if width < 0 || width > wordBits || lo < 0 || lo+width > v.n {
		panic("gf2: window out of range")
	}
	if width == 0 {
		return
	}
	mask := ^uint64(0)
	if width < wordBits {
		mask = 1<<uint(width) - 1
		val &= mask
	}
	word, off := lo/wordBits, uint(lo%wordBits)
	v.w[word] = v.w[word]&^(mask<<off) | val<<off
	if spill := int(off) + width - wordBits; spill > 0 {
		hiMask := uint64(1)<<uint(spill) - 1
		v.w[word+1] = v.w[word+1]&^hiMask | val>>(wordBits-off)
	}
}

// Xor returns v ⊕ u as a new vector.
func (v Vector) Xor(u Vector) Vector {
	if v.n != u.n {
		panic("gf2: vector length mismatch")
	}
	out := Vector{n: v.n, w: make([]uint64, len(v.w))}
	for i := range v.w {
		out.w[i] = v.w[i] ^ u.w[i]
	}
	return out
}

// XorInPlace folds u into v.
func (v Vector) XorInPlace(u Vector) {
	if v.n != u.n {
		panic("gf2: vector length mismatch")
	}
	for i := range v.w {
		v.w[i] ^= u.w[i]
	}
}

// Weight returns the Hamming weight.
func (v Vector) Weight() int {
	total := 0
	for _, w := range v.w {
		total += bits.OnesCount64(w)
	}
	return total
}

// IsZero reports whether every bit is zero.
func (v Vector) IsZero() bool {
	for _, w := range v.w {
		if w != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether u has the same length and the same bits.
func (v Vector) Equal(u Vector) bool {
	if v.n != u.n {
		return false
	}
	for i := range v.w {
		if v.w[i] != u.w[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := Vector{n: v.n, w: make([]uint64, len(v.w))}
	copy(out.w, v.w)
	return out
}

// Select returns the length-len(idx) vector whose bit j is v[idx[j]].
func (v Vector) Select(idx []int) Vector {
	out := NewVector(len(idx))
	for j, i := range idx {
		if v.Bit(i) == 1 {
			out.w[j/wordBits] |= 1 << (uint(j) % wordBits)
		}
	}
	return out
}

// Slice returns a copy of the bits in [lo, hi).
func (v Vector) Slice(lo, hi int) Vector {
	if lo < 0 || hi < lo || hi > v.n {
		panic("gf2: slice bounds out of range")
	}
	out := NewVector(hi - lo)
	for off := 0; off < out.n; off += wordBits {
		width := out.n - off
		if width > wordBits {
			width = wordBits
		}
		out.SetWindow(off, width, v.Window(lo+off, width))
	}
	return out
}

// Bytes returns the bits packed LSB-first into ⌈n/8⌉ bytes.
func (v Vector) Bytes() []byte {
	out := make([]byte, (v.n+7)/8)
	for i, w := range v.w {
		for b := 0; b < 8; b++ {
			pos := i*8 + b
			if pos >= len(out) {
				break
			}
			out[pos] = byte(w >> (8 * uint(b)))
		}
	}
	return out
}

// VectorFromBytes rebuilds a length-n vector from Bytes output.
func VectorFromBytes(data []byte, n int) (Vector, error) {
	if n < 0 || len(data) != (n+7)/8 {
		return Vector{}, utils.ErrInvalidLength
	}
	v := NewVector(n)
	for i, b := range data {
		v.w[i/8] |= uint64(b) << (8 * uint(i%8))
	}
	v.maskTail()
	return v, nil
}

// Bits returns the bits as a 0/1 slice.
func (v Vector) Bits() []uint8 {
	out := make([]uint8, v.n)
	for i := range out {
		out[i] = v.Bit(i)
	}
	return out
}

// String renders the bits in position order, e.g. "10110".
func (v Vector) String() string {
	var sb strings.Builder
	sb.Grow(v.n)
	for i := 0; i < v.n; i++ {
		if v.Bit(i) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
