// Package mceliece composes the cascade cryptosystem: block-diagonal
// generator construction, keypair generation, encryption with per-block
// bounded-weight error injection, parallel block decryption, and key
// transport encoding.
package mceliece

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
	"github.com/BackendStack21/mceliece-cascade-go/codes/bch"
	"github.com/BackendStack21/mceliece-cascade-go/codes/hamming"
	"github.com/BackendStack21/mceliece-cascade-go/core"
	"github.com/BackendStack21/mceliece-cascade-go/gf2"
	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

const (
	DomainScramble = "mcecascade-keygen-scramble-v1"
	DomainPermute  = "mcecascade-keygen-permute-v1"
)

// parallelThreshold is the block count above which decryption fans out
// to GOMAXPROCS workers.
const parallelThreshold = 64

// Shared immutable base codes, built once per variant.
var (
	codeCacheMu sync.RWMutex
	codeCache   = make(map[mcecascade.Variant]*mcecascade.BaseCode)
)

// baseCodeFor returns the shared BaseCode instance for a variant.
func baseCodeFor(variant mcecascade.Variant) (*mcecascade.BaseCode, error) {
	codeCacheMu.RLock()
	code, ok := codeCache[variant]
	codeCacheMu.RUnlock()
	if ok {
		return code, nil
	}

	switch variant {
	case mcecascade.Hamming:
		code = hamming.New()
	case mcecascade.BCH:
		code = bch.New()
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", mcecascade.ErrInvalidParameter, variant)
	}

	codeCacheMu.Lock()
	codeCache[variant] = code
	codeCacheMu.Unlock()
	return code, nil
}

// CascadeGenerator builds the block-diagonal k×n generator of L copies
// of the base code: copy b contributes rows [b·K, (b+1)·K) over columns
// [b·N, (b+1)·N), zero elsewhere.
func CascadeGenerator(code *mcecascade.BaseCode, L int) (gf2.Matrix, error) {
	if L < 1 || L > utils.MaxBlocks {
		return gf2.Matrix{}, fmt.Errorf("%w: L must be in [1, %d], got %d", mcecascade.ErrInvalidParameter, utils.MaxBlocks, L)
	}
	G := gf2.NewMatrix(L*code.K, L*code.N)
	for b := 0; b < L; b++ {
		for i := 0; i < code.K; i++ {
			G.Row(b*code.K + i).SetWindow(b*code.N, code.N, uint64(code.G[i]))
		}
	}
	return G, nil
}

// GenerateKeyPair generates a cascade keypair for the variant with L
// block copies, seeded from the system CSPRNG.
func GenerateKeyPair(variant mcecascade.Variant, L int) (*mcecascade.KeyPair, error) {
	seed, err := utils.SecureRandomBytes(32)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPairFromSeed(variant, L, seed)
}

// GenerateKeyPairFromSeed deterministically generates a keypair. The
// scramble matrix S and the column permutation P are drawn from
// domain-separated streams of the seed, which may be of any length.
//
// The public generator is the column selection of S·G by P: column j of
// the public matrix is column P[j] of the scrambled cascade. Decryption
// undoes the two transforms in reverse order, P first and S second.
func GenerateKeyPairFromSeed(variant mcecascade.Variant, L int, seed []byte) (*mcecascade.KeyPair, error) {
	base, err := core.GetParams(variant)
	if err != nil {
		return nil, err
	}
	params, err := core.Expand(base, L)
	if err != nil {
		return nil, err
	}
	code, err := baseCodeFor(variant)
	if err != nil {
		return nil, err
	}

	G, err := CascadeGenerator(code, L)
	if err != nil {
		return nil, err
	}

	scrambleRng := utils.NewRand(utils.HashWithDomain(DomainScramble, seed))
	permuteRng := utils.NewRand(utils.HashWithDomain(DomainPermute, seed))

	S, SInv, err := gf2.RandomInvertible(params.K, scrambleRng)
	if err != nil {
		return nil, err
	}
	P, PInv := gf2.RandomPermutation(params.N, permuteRng)

	SG, err := gf2.MatMul(S, G)
	if err != nil {
		return nil, err
	}

	return &mcecascade.KeyPair{
		Public: mcecascade.PublicKey{
			G: SG.SelectColumns(P),
			N: params.N,
			K: params.K,
			L: L,
			T: params.T,
			P: P,
		},
		Private: mcecascade.PrivateKey{
			SInv: SInv,
			PInv: PInv,
			Code: code,
			L:    L,
		},
	}, nil
}

// Encrypt encrypts a K-bit message under the public key, drawing error
// randomness from the system CSPRNG.
func Encrypt(pub *mcecascade.PublicKey, msg gf2.Vector) (gf2.Vector, error) {
	rng, err := utils.NewSystemRand()
	if err != nil {
		return gf2.Vector{}, err
	}
	return EncryptWithRand(pub, msg, rng)
}

// EncryptWithRand encrypts with a caller-supplied random stream:
// u = msg·G, XORed with an error vector of exactly T/L bits per block,
// permuted by P into the public coordinate system. The error weight is
// exactly T, never less.
func EncryptWithRand(pub *mcecascade.PublicKey, msg gf2.Vector, rng *utils.Rand) (gf2.Vector, error) {
	if msg.Len() != pub.K {
		return gf2.Vector{}, fmt.Errorf("%w: message length %d, key expects %d", mcecascade.ErrLengthMismatch, msg.Len(), pub.K)
	}
	u, err := gf2.Mul(msg, pub.G)
	if err != nil {
		return gf2.Vector{}, err
	}
	u.XorInPlace(pub.P.Apply(sampleError(pub.N, pub.L, pub.T/pub.L, rng)))
	return u, nil
}

// sampleError draws an error vector over n positions with exactly tb
// set bits in each of the L contiguous blocks, in the un-permuted block
// coordinate system.
func sampleError(n, L, tb int, rng *utils.Rand) gf2.Vector {
	e := gf2.NewVector(n)
	nb := n / L
	positions := make([]int, nb)
	for b := 0; b < L; b++ {
		for i := range positions {
			positions[i] = i
		}
		// Partial Fisher-Yates: after tb swaps the prefix holds a
		// uniform tb-subset of the block's positions.
		for i := 0; i < tb; i++ {
			j := i + rng.Intn(nb-i)
			positions[i], positions[j] = positions[j], positions[i]
		}
		for i := 0; i < tb; i++ {
			e.SetBit(b*nb+positions[i], 1)
		}
	}
	return e
}

// Decrypt recovers a message from a ciphertext: un-permute with PInv,
// decode the L blocks independently, AND the per-block flags, and
// unscramble the concatenated segments with SInv. ok reports whether
// every block decoded inside the correction radius; on false the
// returned message is the best effort and not guaranteed correct.
// Blocks decode on GOMAXPROCS workers when L is large enough to pay for
// the fan-out.
func Decrypt(priv *mcecascade.PrivateKey, pub *mcecascade.PublicKey, ct gf2.Vector) (gf2.Vector, bool, error) {
	if ct.Len() != pub.N {
		return gf2.Vector{}, false, fmt.Errorf("%w: ciphertext length %d, key expects %d", mcecascade.ErrLengthMismatch, ct.Len(), pub.N)
	}
	code := priv.Code
	cPerm := priv.PInv.Apply(ct)

	segments := make([]uint16, priv.L)
	flags := make([]bool, priv.L)
	decodeRange := func(start, end int) {
		for b := start; b < end; b++ {
			word := uint16(cPerm.Window(b*code.N, code.N))
			segments[b], flags[b] = code.DecodeBlock(word)
		}
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if priv.L < parallelThreshold || numWorkers <= 1 {
		decodeRange(0, priv.L)
	} else {
		var wg sync.WaitGroup
		blocksPerWorker := (priv.L + numWorkers - 1) / numWorkers
		for w := 0; w < numWorkers; w++ {
			start := w * blocksPerWorker
			end := start + blocksPerWorker
			if end > priv.L {
				end = priv.L
			}
			if start >= priv.L {
				break
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				decodeRange(start, end)
			}(start, end)
		}
		wg.Wait()
	}

	ok := true
	scrambled := gf2.NewVector(pub.K)
	for b := 0; b < priv.L; b++ {
		ok = ok && flags[b]
		scrambled.SetWindow(b*code.K, code.K, uint64(segments[b]))
	}

	msg, err := gf2.Mul(scrambled, priv.SInv)
	if err != nil {
		return gf2.Vector{}, false, err
	}
	return msg, ok, nil
}

// =============================================================================
// Serialization
// =============================================================================

// SerializePublicKey encodes a public key with little-endian
// length-prefixed fields: the four dimensions, the permutation entries,
// and the packed generator rows.
func SerializePublicKey(pub *mcecascade.PublicKey) []byte {
	rowBytes := (pub.N + 7) / 8
	result := make([]byte, 0, 24+4*pub.N+pub.K*rowBytes)

	lenBuf := make([]byte, 4)
	for _, dim := range []int{pub.N, pub.K, pub.L, pub.T} {
		binary.LittleEndian.PutUint32(lenBuf, uint32(dim))
		result = append(result, lenBuf...)
	}

	binary.LittleEndian.PutUint32(lenBuf, uint32(4*len(pub.P)))
	result = append(result, lenBuf...)
	for _, v := range pub.P {
		binary.LittleEndian.PutUint32(lenBuf, uint32(v))
		result = append(result, lenBuf...)
	}

	binary.LittleEndian.PutUint32(lenBuf, uint32(pub.K*rowBytes))
	result = append(result, lenBuf...)
	for i := 0; i < pub.K; i++ {
		result = append(result, pub.G.Row(i).Bytes()...)
	}

	return result
}

// DeserializePublicKey decodes and validates a public key: dimensions
// must describe a known variant cascade and the permutation must be
// valid. The generator's rank is not re-checked here.
func DeserializePublicKey(data []byte) (*mcecascade.PublicKey, error) {
	if len(data) < 24 {
		return nil, errors.New("invalid public key: too short")
	}

	pub := &mcecascade.PublicKey{}
	offset := 0
	for _, dst := range []*int{&pub.N, &pub.K, &pub.L, &pub.T} {
		*dst = int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}
	if err := validateDimensions(pub.N, pub.K, pub.L, pub.T); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}

	permBytes, offset, err := utils.SafeReadLength(data, offset, 4*pub.N)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: permutation length: %w", err)
	}
	if permBytes != 4*pub.N {
		return nil, errors.New("invalid public key: permutation length does not match n")
	}
	if err := utils.ValidateSliceAccess(data, offset, permBytes); err != nil {
		return nil, errors.New("invalid public key: permutation truncated")
	}
	pub.P = make(gf2.Permutation, pub.N)
	for i := range pub.P {
		pub.P[i] = int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}
	if !pub.P.Valid() {
		return nil, errors.New("invalid public key: not a permutation")
	}

	rowBytes := (pub.N + 7) / 8
	gBytes, offset, err := utils.SafeReadLength(data, offset, utils.MaxSerializedBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: generator length: %w", err)
	}
	if gBytes != pub.K*rowBytes {
		return nil, errors.New("invalid public key: generator length does not match k rows")
	}
	if err := utils.ValidateSliceAccess(data, offset, gBytes); err != nil {
		return nil, errors.New("invalid public key: generator truncated")
	}
	pub.G = gf2.NewMatrix(pub.K, pub.N)
	for i := 0; i < pub.K; i++ {
		row, err := gf2.VectorFromBytes(data[offset:offset+rowBytes], pub.N)
		if err != nil {
			return nil, fmt.Errorf("invalid public key: row %d: %w", i, err)
		}
		pub.G.SetRow(i, row)
		offset += rowBytes
	}

	return pub, nil
}

// SerializePrivateKey encodes a private key: the variant name, L, the
// inverse permutation entries, and the packed rows of SInv. The base
// code itself is rebuilt from the variant on load.
func SerializePrivateKey(priv *mcecascade.PrivateKey) []byte {
	variant := []byte(priv.Code.Variant)
	n := len(priv.PInv)
	k := priv.SInv.Rows()
	rowBytes := (k + 7) / 8
	result := make([]byte, 0, 16+len(variant)+4*n+k*rowBytes)

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(variant)))
	result = append(result, lenBuf...)
	result = append(result, variant...)

	binary.LittleEndian.PutUint32(lenBuf, uint32(priv.L))
	result = append(result, lenBuf...)

	binary.LittleEndian.PutUint32(lenBuf, uint32(4*n))
	result = append(result, lenBuf...)
	for _, v := range priv.PInv {
		binary.LittleEndian.PutUint32(lenBuf, uint32(v))
		result = append(result, lenBuf...)
	}

	binary.LittleEndian.PutUint32(lenBuf, uint32(k*rowBytes))
	result = append(result, lenBuf...)
	for i := 0; i < k; i++ {
		result = append(result, priv.SInv.Row(i).Bytes()...)
	}

	return result
}

// DeserializePrivateKey decodes and validates a private key, rebuilding
// the shared base code from the embedded variant name.
func DeserializePrivateKey(data []byte) (*mcecascade.PrivateKey, error) {
	variantLen, offset, err := utils.SafeReadLength(data, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: variant length: %w", err)
	}
	if err := utils.ValidateSliceAccess(data, offset, variantLen); err != nil {
		return nil, errors.New("invalid private key: variant truncated")
	}
	code, err := baseCodeFor(mcecascade.Variant(data[offset : offset+variantLen]))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	offset += variantLen

	priv := &mcecascade.PrivateKey{Code: code}

	l, offset, err := utils.SafeReadLength(data, offset, utils.MaxBlocks)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: block count: %w", err)
	}
	if l < 1 {
		return nil, errors.New("invalid private key: block count must be positive")
	}
	priv.L = l

	n := l * code.N
	k := l * code.K
	permBytes, offset, err := utils.SafeReadLength(data, offset, 4*n)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: permutation length: %w", err)
	}
	if permBytes != 4*n {
		return nil, errors.New("invalid private key: permutation length does not match n")
	}
	if err := utils.ValidateSliceAccess(data, offset, permBytes); err != nil {
		return nil, errors.New("invalid private key: permutation truncated")
	}
	priv.PInv = make(gf2.Permutation, n)
	for i := range priv.PInv {
		priv.PInv[i] = int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
	}
	if !priv.PInv.Valid() {
		return nil, errors.New("invalid private key: not a permutation")
	}

	rowBytes := (k + 7) / 8
	sBytes, offset, err := utils.SafeReadLength(data, offset, utils.MaxSerializedBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: scramble length: %w", err)
	}
	if sBytes != k*rowBytes {
		return nil, errors.New("invalid private key: scramble length does not match k rows")
	}
	if err := utils.ValidateSliceAccess(data, offset, sBytes); err != nil {
		return nil, errors.New("invalid private key: scramble truncated")
	}
	priv.SInv = gf2.NewMatrix(k, k)
	for i := 0; i < k; i++ {
		row, err := gf2.VectorFromBytes(data[offset:offset+rowBytes], k)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: row %d: %w", i, err)
		}
		priv.SInv.SetRow(i, row)
		offset += rowBytes
	}

	return priv, nil
}

// SerializeCiphertext encodes a ciphertext as a bit length followed by
// the packed bits.
func SerializeCiphertext(ct gf2.Vector) []byte {
	result := make([]byte, 4+(ct.Len()+7)/8)
	binary.LittleEndian.PutUint32(result, uint32(ct.Len()))
	copy(result[4:], ct.Bytes())
	return result
}

// DeserializeCiphertext decodes a ciphertext produced by
// SerializeCiphertext.
func DeserializeCiphertext(data []byte) (gf2.Vector, error) {
	n, offset, err := utils.SafeReadLength(data, 0, utils.MaxVectorBits)
	if err != nil {
		return gf2.Vector{}, fmt.Errorf("invalid ciphertext: %w", err)
	}
	if len(data) != offset+(n+7)/8 {
		return gf2.Vector{}, errors.New("invalid ciphertext: payload length mismatch")
	}
	return gf2.VectorFromBytes(data[offset:], n)
}

// validateDimensions checks that (n, k, l, t) describe an L-fold
// cascade of a known base triple.
func validateDimensions(n, k, l, t int) error {
	if l < 1 || l > utils.MaxBlocks {
		return fmt.Errorf("block count %d out of range", l)
	}
	if n != 15*l {
		return fmt.Errorf("length %d is not 15 blocks of %d", n, l)
	}
	switch {
	case k == 11*l && t == 1*l:
	case k == 7*l && t == 2*l:
	default:
		return fmt.Errorf("dimensions (k=%d, t=%d) match no known variant at L=%d", k, t, l)
	}
	return nil
}
