// Package isd implements information-set decoding attacks against
// cascade public keys, in the meet-in-the-middle style of May, Meurer
// and Thomae: every attempt re-randomizes an information set, splits it
// into halves, and joins half-error candidates through a hashed
// projection onto a fixed parity window. The attacker sees only the
// public generator, the ciphertext and the error weight.
package isd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dchest/siphash"
	"golang.org/x/sync/errgroup"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
	"github.com/BackendStack21/mceliece-cascade-go/gf2"
	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

// DefaultMaxIterations bounds an attack invocation that does not pick
// its own budget.
const DefaultMaxIterations = 100000

// Fixed SipHash key for the join-table projection. The hash only
// buckets candidates; every bucket hit is re-verified by weight, so the
// key needs no secrecy.
const (
	sipKey0 = 0x6d63656c69656365 // "mceliece"
	sipKey1 = 0x636173636164652d // "cascade-"
)

// errFound stops the worker group once a worker has a verified message.
var errFound = errors.New("isd: solution found")

// Result reports an attack outcome. Attempts counts every information
// set tried, including singular selections; when Found is false the
// budget was exhausted and Message is the zero vector.
type Result struct {
	Message  gf2.Vector
	Found    bool
	Attempts int
}

// Attack runs sequential information-set decoding: recover the message
// encrypted in ct under pub, assuming an error of weight exactly t, in
// at most maxIter randomized attempts drawn from rng.
func Attack(pub *mcecascade.PublicKey, ct gf2.Vector, t, maxIter int, rng *utils.Rand) (Result, error) {
	if err := checkArgs(pub, ct, t, maxIter); err != nil {
		return Result{}, err
	}
	for attempt := 1; attempt <= maxIter; attempt++ {
		msg, found, err := tryOnce(pub, ct, t, rng)
		if err != nil {
			return Result{Attempts: attempt}, err
		}
		if found {
			return Result{Message: msg, Found: true, Attempts: attempt}, nil
		}
	}
	return Result{Attempts: maxIter}, nil
}

// AttackParallel fans the attempt budget out over workers goroutines.
// Worker streams are forked from seed by worker index, so the set of
// attempts is reproducible even though the winning worker may vary with
// scheduling. Attempts aggregates the attempts started by all workers
// before the group drained. Cancelling ctx stops the search at the next
// attempt boundary.
func AttackParallel(ctx context.Context, pub *mcecascade.PublicKey, ct gf2.Vector, t, maxIter, workers int, seed []byte) (Result, error) {
	if err := checkArgs(pub, ct, t, maxIter); err != nil {
		return Result{}, err
	}
	if workers < 1 {
		return Result{}, fmt.Errorf("%w: workers must be positive, got %d", mcecascade.ErrInvalidParameter, workers)
	}

	base := utils.NewRand(seed)
	var (
		attempts atomic.Int64
		mu       sync.Mutex
		winner   gf2.Vector
		hasWin   bool
	)

	g, ctx := errgroup.WithContext(ctx)
	share, extra := maxIter/workers, maxIter%workers
	for w := 0; w < workers; w++ {
		budget := share
		if w < extra {
			budget++
		}
		if budget == 0 {
			continue
		}
		rng := base.Fork(fmt.Sprintf("isd-worker-%d", w))
		g.Go(func() error {
			for i := 0; i < budget; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				attempts.Add(1)
				msg, found, err := tryOnce(pub, ct, t, rng)
				if err != nil {
					return err
				}
				if found {
					mu.Lock()
					if !hasWin {
						winner, hasWin = msg, true
					}
					mu.Unlock()
					return errFound
				}
			}
			return nil
		})
	}

	err := g.Wait()
	res := Result{Attempts: int(attempts.Load())}
	mu.Lock()
	if hasWin {
		res.Message, res.Found = winner, true
	}
	mu.Unlock()
	if err != nil && !errors.Is(err, errFound) {
		return res, err
	}
	return res, nil
}

func checkArgs(pub *mcecascade.PublicKey, ct gf2.Vector, t, maxIter int) error {
	if pub.K < 1 || pub.K >= pub.N {
		return fmt.Errorf("%w: public key dimensions (n=%d, k=%d)", mcecascade.ErrInvalidParameter, pub.N, pub.K)
	}
	if t < 0 || t > pub.N-pub.K {
		return fmt.Errorf("%w: error weight %d outside [0, %d]", mcecascade.ErrInvalidParameter, t, pub.N-pub.K)
	}
	if maxIter < 1 {
		return fmt.Errorf("%w: iteration budget must be positive, got %d", mcecascade.ErrInvalidParameter, maxIter)
	}
	if ct.Len() != pub.N {
		return fmt.Errorf("%w: ciphertext length %d, key expects %d", mcecascade.ErrLengthMismatch, ct.Len(), pub.N)
	}
	return nil
}

// attempt holds the linear system of one randomized information set I
// with complement J: gp = inverse(G_I)*G_J, and s = c_J + c_I*gp. For
// an error split with e_I on I, the J-part is forced to s + e_I*gp, so
// any e_I guess extends to a parity-consistent candidate and only the
// total weight needs checking.
type attempt struct {
	gp    gf2.Matrix
	s     gf2.Vector
	cI    gf2.Vector
	gIInv gf2.Matrix
	t     int

	// Split sizes: A is the first half of I's index space, B the rest;
	// C is the first half of J's, D the rest. The join matches
	// candidates on their C-window.
	aSize, bSize, cSize int
}

// joinEntry is one left-half candidate: the gp rows forming e_A and the
// resulting forced J-part s + e_A*gp.
type joinEntry struct {
	rows []int
	v    gf2.Vector
}

// tryOnce runs a single information-set attempt. A singular column
// selection is a miss, not an error.
func tryOnce(pub *mcecascade.PublicKey, ct gf2.Vector, t int, rng *utils.Rand) (gf2.Vector, bool, error) {
	info, rest := sampleInfoSet(pub.N, pub.K, rng)

	gI := pub.G.SelectColumns(info)
	gIInv, err := gI.Invert()
	if err != nil {
		return gf2.Vector{}, false, nil
	}
	gp, err := gf2.MatMul(gIInv, pub.G.SelectColumns(rest))
	if err != nil {
		return gf2.Vector{}, false, err
	}

	cI := ct.Select(info)
	s, err := gf2.Mul(cI, gp)
	if err != nil {
		return gf2.Vector{}, false, err
	}
	s.XorInPlace(ct.Select(rest))

	r := pub.N - pub.K
	a := &attempt{
		gp:    gp,
		s:     s,
		cI:    cI,
		gIInv: gIInv,
		t:     t,
		aSize: (pub.K + 1) / 2,
		cSize: (r + 1) / 2,
	}
	a.bSize = pub.K - a.aSize

	for tA := 0; tA <= t && tA <= a.aSize; tA++ {
		for tB := 0; tA+tB <= t && tB <= a.bSize; tB++ {
			if tD := t - tA - tB; tD > r-a.cSize {
				continue
			}
			msg, found, err := a.join(tA, tB)
			if found || err != nil {
				return msg, found, err
			}
		}
	}
	return gf2.Vector{}, false, nil
}

// join meets tA-weight left candidates with tB-weight right candidates
// over the C-window hash. A bucket hit is accepted only when the total
// candidate weight is exactly t, which also screens out hash collisions
// and candidates whose forced part leaks outside D.
func (a *attempt) join(tA, tB int) (gf2.Vector, bool, error) {
	table := make(map[uint64][]joinEntry)
	left := newCombIter(a.aSize, tA)
	for left.next() {
		v := a.s.Clone()
		for _, row := range left.idx {
			v.XorInPlace(a.gp.Row(row))
		}
		key := a.windowKey(v)
		table[key] = append(table[key], joinEntry{
			rows: append([]int(nil), left.idx...),
			v:    v,
		})
	}

	right := newCombIter(a.bSize, tB)
	for right.next() {
		v := gf2.NewVector(a.s.Len())
		for _, rel := range right.idx {
			v.XorInPlace(a.gp.Row(a.aSize + rel))
		}
		for _, entry := range table[a.windowKey(v)] {
			if tA+tB+entry.v.Xor(v).Weight() != a.t {
				continue
			}
			eI := gf2.NewVector(a.cI.Len())
			for _, row := range entry.rows {
				eI.FlipBit(row)
			}
			for _, rel := range right.idx {
				eI.FlipBit(a.aSize + rel)
			}
			msg, err := gf2.Mul(a.cI.Xor(eI), a.gIInv)
			if err != nil {
				return gf2.Vector{}, false, err
			}
			return msg, true, nil
		}
	}
	return gf2.Vector{}, false, nil
}

func (a *attempt) windowKey(v gf2.Vector) uint64 {
	return siphash.Hash(sipKey0, sipKey1, v.Slice(0, a.cSize).Bytes())
}

// sampleInfoSet draws a uniform k-subset of {0..n-1} and returns it
// sorted alongside its sorted complement.
func sampleInfoSet(n, k int, rng *utils.Rand) (info, rest []int) {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	info, rest = pool[:k:k], pool[k:]
	sort.Ints(info)
	sort.Ints(rest)
	return info, rest
}
