package isd

// combIter enumerates the k-subsets of {0, ..., n-1} in lexicographic
// order without recursion or allocation per step.
type combIter struct {
	n, k    int
	idx     []int
	started bool
}

func newCombIter(n, k int) *combIter {
	return &combIter{n: n, k: k, idx: make([]int, k)}
}

// next advances to the next combination, leaving it in c.idx, and
// reports whether one exists. The first call yields {0, ..., k-1}. The
// slice is reused across calls; callers copy what they keep.
func (c *combIter) next() bool {
	if c.k > c.n {
		return false
	}
	if !c.started {
		c.started = true
		for i := range c.idx {
			c.idx[i] = i
		}
		return true
	}
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		return false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return true
}
