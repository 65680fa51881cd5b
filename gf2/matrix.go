package gf2

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

var (
	// ErrSingular is returned when a matrix has no inverse.
	ErrSingular = errors.New("matrix is singular")
	// ErrDimension is returned when operand shapes do not agree.
	ErrDimension = errors.New("dimension mismatch")
)

// maxInvertibleTries bounds the rejection loop in RandomInvertible. A
// uniform random GF(2) matrix is invertible with probability ~0.289
// independent of its size, so the cap is never reached in practice.
const maxInvertibleTries = 100

// Matrix is a dense bit matrix over GF(2) with rows packed LSB-first
// into 64-bit words. All rows share one backing allocation; row swaps
// during elimination exchange the row headers only.
type Matrix struct {
	rows, cols int
	stride     int // words per row
	row        [][]uint64
}

// NewMatrix returns the rows×cols all-zero matrix.
func NewMatrix(rows, cols int) Matrix {
	if rows < 0 || cols < 0 {
		panic("gf2: negative matrix dimension")
	}
	stride := wordsFor(cols)
	backing := make([]uint64, rows*stride)
	m := Matrix{rows: rows, cols: cols, stride: stride, row: make([][]uint64, rows)}
	for i := range m.row {
		m.row[i] = backing[i*stride : (i+1)*stride : (i+1)*stride]
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.row[i][i/wordBits] |= 1 << (uint(i) % wordBits)
	}
	return m
}

// MatrixFromRows builds a matrix whose i-th row is a copy of rows[i].
func MatrixFromRows(rows []Vector) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, fmt.Errorf("%w: no rows", ErrDimension)
	}
	cols := rows[0].n
	m := NewMatrix(len(rows), cols)
	for i, r := range rows {
		if r.n != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimension, i, r.n, cols)
		}
		copy(m.row[i], r.w)
	}
	return m, nil
}

// RandomMatrix returns a uniform random rows×cols matrix drawn from rng.
func RandomMatrix(rows, cols int, rng *utils.Rand) Matrix {
	m := NewMatrix(rows, cols)
	tail := uint(cols % wordBits)
	for i := range m.row {
		for k := range m.row[i] {
			m.row[i][k] = rng.Uint64()
		}
		if m.stride > 0 && tail != 0 {
			m.row[i][m.stride-1] &= 1<<tail - 1
		}
	}
	return m
}

// RandomInvertible samples uniform n×n matrices until one inverts,
// returning the matrix and its inverse. A uniform GF(2) matrix is
// invertible with probability ~0.289, so the retry cap only trips on a
// broken randomness source; cap exhaustion is reported as an error
// wrapping ErrSingular.
func RandomInvertible(n int, rng *utils.Rand) (Matrix, Matrix, error) {
	if n < 1 {
		return Matrix{}, Matrix{}, fmt.Errorf("%w: size %d", ErrDimension, n)
	}
	for try := 0; try < maxInvertibleTries; try++ {
		m := RandomMatrix(n, n, rng)
		inv, err := m.Invert()
		if err == nil {
			return m, inv, nil
		}
	}
	return Matrix{}, Matrix{}, fmt.Errorf("%w: no invertible %dx%d matrix in %d draws", ErrSingular, n, n, maxInvertibleTries)
}

// Rows returns the number of rows.
func (m Matrix) Rows() int {
	return m.rows
}

// Cols returns the number of columns.
func (m Matrix) Cols() int {
	return m.cols
}

// Bit returns the bit at row i, column j.
func (m Matrix) Bit(i, j int) uint8 {
	if j < 0 || j >= m.cols {
		panic("gf2: column index out of range")
	}
	return uint8(m.row[i][j/wordBits] >> (uint(j) % wordBits) & 1)
}

// SetBit sets the bit at row i, column j to b & 1.
func (m Matrix) SetBit(i, j int, b uint8) {
	if j < 0 || j >= m.cols {
		panic("gf2: column index out of range")
	}
	mask := uint64(1) << (uint(j) % wordBits)
	if b&1 == 1 {
		m.row[i][j/wordBits] |= mask
	} else {
		m.row[i][j/wordBits] &^= mask
	}
}

// Row returns row i as a vector sharing the matrix's storage. Callers
// must Clone before mutating.
func (m Matrix) Row(i int) Vector {
	return Vector{n: m.cols, w: m.row[i]}
}

// SetRow copies v into row i.
func (m Matrix) SetRow(i int, v Vector) {
	if v.n != m.cols {
		panic("gf2: row length mismatch")
	}
	copy(m.row[i], v.w)
}

// Clone returns an independent copy.
func (m Matrix) Clone() Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i := range m.row {
		copy(out.row[i], m.row[i])
	}
	return out
}

// Equal reports whether b has the same shape and entries.
func (m Matrix) Equal(b Matrix) bool {
	if m.rows != b.rows || m.cols != b.cols {
		return false
	}
	for i := range m.row {
		for k := range m.row[i] {
			if m.row[i][k] != b.row[i][k] {
				return false
			}
		}
	}
	return true
}

// SelectColumns returns the rows×len(idx) matrix whose column j is
// column idx[j] of m. Indices may repeat and appear in any order.
func (m Matrix) SelectColumns(idx []int) Matrix {
	out := NewMatrix(m.rows, len(idx))
	for j, c := range idx {
		if c < 0 || c >= m.cols {
			panic("gf2: column index out of range")
		}
		word, off := c/wordBits, uint(c%wordBits)
		outWord, outBit := j/wordBits, uint64(1)<<(uint(j)%wordBits)
		for i := 0; i < m.rows; i++ {
			if m.row[i][word]>>off&1 == 1 {
				out.row[i][outWord] |= outBit
			}
		}
	}
	return out
}

// Mul computes the row-vector product v·m over GF(2) by XOR-accumulating
// the matrix rows selected by v's set bits.
func Mul(v Vector, m Matrix) (Vector, error) {
	if v.n != m.rows {
		return Vector{}, fmt.Errorf("%w: vector length %d vs %d matrix rows", ErrDimension, v.n, m.rows)
	}
	out := NewVector(m.cols)
	for wi, w := range v.w {
		for w != 0 {
			i := wi*wordBits + bits.TrailingZeros64(w)
			xorRow(out.w, m.row[i])
			w &= w - 1
		}
	}
	return out, nil
}

// MatMul computes the matrix product a·b over GF(2).
func MatMul(a, b Matrix) (Matrix, error) {
	if a.cols != b.rows {
		return Matrix{}, fmt.Errorf("%w: %dx%d times %dx%d", ErrDimension, a.rows, a.cols, b.rows, b.cols)
	}
	out := NewMatrix(a.rows, b.cols)
	for i := 0; i < a.rows; i++ {
		for wi, w := range a.row[i] {
			for w != 0 {
				j := wi*wordBits + bits.TrailingZeros64(w)
				xorRow(out.row[i], b.row[j])
				w &= w - 1
			}
		}
	}
	return out, nil
}

// Invert returns the inverse of a square matrix via Gauss-Jordan
// elimination on [m | I]: for each column, find a pivot at or below the
// diagonal, swap it up, and clear the column from every other row.
// Returns ErrSingular when some column has no pivot.
func (m Matrix) Invert() (Matrix, error) {
	if m.rows != m.cols {
		return Matrix{}, fmt.Errorf("%w: %dx%d matrix is not square", ErrDimension, m.rows, m.cols)
	}
	n := m.rows
	a := m.Clone()
	inv := Identity(n)
	for col := 0; col < n; col++ {
		word, off := col/wordBits, uint(col%wordBits)
		pivot := -1
		for r := col; r < n; r++ {
			if a.row[r][word]>>off&1 == 1 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return Matrix{}, fmt.Errorf("%w: no pivot for column %d", ErrSingular, col)
		}
		if pivot != col {
			a.row[col], a.row[pivot] = a.row[pivot], a.row[col]
			inv.row[col], inv.row[pivot] = inv.row[pivot], inv.row[col]
		}
		for r := 0; r < n; r++ {
			if r != col && a.row[r][word]>>off&1 == 1 {
				xorRow(a.row[r], a.row[col])
				xorRow(inv.row[r], inv.row[col])
			}
		}
	}
	return inv, nil
}

// Rank returns the rank of m via forward elimination on a working copy.
func (m Matrix) Rank() int {
	a := m.Clone()
	rank := 0
	for col := 0; col < a.cols && rank < a.rows; col++ {
		word, off := col/wordBits, uint(col%wordBits)
		pivot := -1
		for r := rank; r < a.rows; r++ {
			if a.row[r][word]>>off&1 == 1 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			continue
		}
		a.row[rank], a.row[pivot] = a.row[pivot], a.row[rank]
		for r := rank + 1; r < a.rows; r++ {
			if a.row[r][word]>>off&1 == 1 {
				xorRow(a.row[r], a.row[rank])
			}
		}
		rank++
	}
	return rank
}

// xorRow folds src into dst word-wise. Both slices must have equal length.
func xorRow(dst, src []uint64) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
