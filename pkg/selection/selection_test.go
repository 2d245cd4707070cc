package selection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource replays a script of draws
type fixedSource struct {
	draws []int
	asked []int
}

func (f *fixedSource) IntN(n int) int {
	f.asked = append(f.asked, n)
	v := f.draws[0]
	f.draws = f.draws[1:]
	return v
}

func TestChooseEmpty(t *testing.T) {
	_, err := Choose(nil, map[string]int{"a": 1}, rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestChooseUniformWithoutHistory(t *testing.T) {
	src := &fixedSource{draws: []int{2}}
	got, err := Choose([]string{"a", "b", "c"}, map[string]int{}, src)
	require.NoError(t, err)
	assert.Equal(t, "c", got)
	assert.Equal(t, []int{3}, src.asked)
}

func TestWeights(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		counts     map[string]int
		want       []int
	}{
		{
			name:       "no history",
			candidates: []string{"a", "b"},
			counts:     nil,
			want:       []int{1, 1},
		},
		{
			name:       "never posted outweighs posted",
			candidates: []string{"a", "b", "c"},
			counts:     map[string]int{"a": 2, "b": 1},
			want:       []int{1, 2, 3},
		},
		{
			name:       "ledger entries for vanished photos still set the ceiling",
			candidates: []string{"x"},
			counts:     map[string]int{"gone": 5, "x": 1},
			want:       []int{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Weights(tt.candidates, tt.counts))
		})
	}
}

func TestChooseWalksCumulativeWeights(t *testing.T) {
	candidates := []string{"a", "b", "c"}
	counts := map[string]int{"a": 2, "b": 1}

	// weights 1, 2, 3 -> total 6; 0 -> a, 1..2 -> b, 3..5 -> c
	cases := map[int]string{0: "a", 1: "b", 2: "b", 3: "c", 5: "c"}
	for draw, want := range cases {
		src := &fixedSource{draws: []int{draw}}
		got, err := Choose(candidates, counts, src)
		require.NoError(t, err)
		assert.Equal(t, want, got, "draw %d", draw)
		assert.Equal(t, []int{6}, src.asked)
	}
}

func TestChooseAlwaysReturnsACandidate(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	candidates := []string{"a", "b", "c", "d"}
	counts := map[string]int{"a": 3, "c": 1, "elsewhere": 9}

	for i := 0; i < 500; i++ {
		got, err := Choose(candidates, counts, rng)
		require.NoError(t, err)
		assert.Contains(t, candidates, got)
	}
}

func TestChooseFavoursLeastPosted(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 1))
	candidates := []string{"fresh", "posted"}
	counts := map[string]int{"posted": 3}

	hits := map[string]int{}
	for i := 0; i < 10000; i++ {
		got, err := Choose(candidates, counts, rng)
		require.NoError(t, err)
		hits[got]++
	}

	// weights 4:1, expected ~8000 vs ~2000
	assert.Greater(t, hits["fresh"], hits["posted"]*2)
}

func TestNewSource(t *testing.T) {
	src := NewSource()
	v := src.IntN(10)
	assert.True(t, v >= 0 && v < 10)
}
