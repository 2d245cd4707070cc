// Package selection picks the next photo to post, favouring photos that have
// been posted least often.
package selection

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrNoCandidates is returned when there is nothing to choose from
var ErrNoCandidates = errors.New("no candidate photos")

// Source is the randomness Choose draws from. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a PCG generator seeded from the clock
func NewSource() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>32|now<<32))
}

// Weights returns the selection weight of each candidate, index aligned.
//
// With no history every candidate weighs 1. Otherwise the weight is
// max(counts)+1 minus the candidate's own count, so the weight is at least 1
// and strictly larger for photos posted fewer times.
func Weights(candidates []string, counts map[string]int) []int {
	weights := make([]int, len(candidates))
	if len(counts) == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}

	top := 0
	for _, c := range counts {
		if c > top {
			top = c
		}
	}
	ceiling := top + 1

	for i, candidate := range candidates {
		w := ceiling - counts[candidate]
		if w < 1 {
			w = 1
		}
		weights[i] = w
	}
	return weights
}

// Choose returns one of candidates, drawn with probability proportional to
// its weight.
func Choose(candidates []string, counts map[string]int, rng Source) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	if len(counts) == 0 {
		return candidates[rng.IntN(len(candidates))], nil
	}

	weights := Weights(candidates, counts)
	total := 0
	for _, w := range weights {
		total += w
	}

	r := rng.IntN(total)
	for i, w := range weights {
		if r < w {
			return candidates[i], nil
		}
		r -= w
	}
	return candidates[len(candidates)-1], nil
}
