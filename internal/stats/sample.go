package stats

import (
	"math/rand/v2"
	"sort"
)

// Stream identifiers separating the independent random sequences of a run.
const (
	// StreamEscalation orders unknown pairs for oracle escalation.
	StreamEscalation uint64 = 0x6573636c
	// StreamRecallBase is offset by the stratum to seed recall sampling.
	StreamRecallBase uint64 = 0x72636c00
)

// NewRand returns a PCG generator for a (seed, stream) pair. The same pair
// always produces the same sequence.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// SampleIndices draws k distinct indices from [0, n) without replacement
// using a partial Fisher-Yates shuffle. The result is sorted. k >= n returns
// every index.
func SampleIndices(r *rand.Rand, n, k int) []int {
	if n <= 0 || k <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k >= n {
		return idx
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := idx[:k]
	sort.Ints(out)
	return out
}

// Shuffle permutes n elements in place through swap.
func Shuffle(r *rand.Rand, n int, swap func(i, j int)) {
	if n < 2 {
		return
	}
	r.Shuffle(n, swap)
}
