package gf2

import "github.com/BackendStack21/mceliece-cascade-go/utils"

// Permutation maps positions of a length-len(p) vector: applying p
// yields out[i] = v[p[i]].
type Permutation []int

// IdentityPermutation returns the identity on n positions.
func IdentityPermutation(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// RandomPermutation returns a uniform random permutation of n positions
// together with its inverse, satisfying p[inv[i]] == i for every i.
func RandomPermutation(n int, rng *utils.Rand) (Permutation, Permutation) {
	p := Permutation(rng.Perm(n))
	return p, p.Inverse()
}

// Inverse returns q with p[q[i]] == i and q[p[i]] == i.
func (p Permutation) Inverse() Permutation {
	q := make(Permutation, len(p))
	for i, v := range p {
		q[v] = i
	}
	return q
}

// Valid reports whether p is a permutation of 0..len(p)-1.
func (p Permutation) Valid() bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Apply returns the vector with out[i] = v[p[i]].
func (p Permutation) Apply(v Vector) Vector {
	if len(p) != v.n {
		panic("gf2: permutation length mismatch")
	}
	out := NewVector(v.n)
	for i, src := range p {
		if v.Bit(src) == 1 {
			out.w[i/wordBits] |= 1 << (uint(i) % wordBits)
		}
	}
	return out
}
