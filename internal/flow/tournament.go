package flow

import (
	"math/rand"
	"slices"
	"sort"
)

// Tournament tracks a bounded pairwise ranking over a working value set.
// The zero value is not usable; construct with NewTournament. Tournaments
// are JSON-encoded into flow state data between events.
type Tournament struct {
	// Values is the working set in shuffled order. Pair indices refer to
	// this slice, and ranking ties break on this order.
	Values []string       `json:"values"`
	Pairs  [][2]int       `json:"pairs"`
	Scores map[string]int `json:"scores"`
	Index  int            `json:"index"`
}

// NewTournament builds a tournament over values: the value order is
// shuffled, all unordered index pairs (i<j) are enumerated, the pair order
// is shuffled, and the first min(maxPairs, total) pairs are kept. Every
// value starts with score zero.
func NewTournament(values []string, maxPairs int) *Tournament {
	vals := slices.Clone(values)
	rand.Shuffle(len(vals), func(i, j int) {
		vals[i], vals[j] = vals[j], vals[i]
	})

	var pairs [][2]int
	for i := 0; i < len(vals); i++ {
		for j := i + 1; j < len(vals); j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	rand.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	if len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}

	scores := make(map[string]int, len(vals))
	for _, v := range vals {
		scores[v] = 0
	}

	return &Tournament{Values: vals, Pairs: pairs, Scores: scores}
}

// Current returns the value labels of the pair awaiting a choice.
func (t *Tournament) Current() (a, b string, ok bool) {
	if t.Index >= len(t.Pairs) {
		return "", "", false
	}
	p := t.Pairs[t.Index]
	return t.Values[p[0]], t.Values[p[1]], true
}

// Choose records a vote for value and advances to the next pair. Votes for
// values outside the working set advance the cursor without scoring.
func (t *Tournament) Choose(value string) {
	if _, ok := t.Scores[value]; ok {
		t.Scores[value]++
	}
	t.Index++
}

// Done reports whether every pair has been shown.
func (t *Tournament) Done() bool {
	return t.Index >= len(t.Pairs)
}

// TopCandidates returns up to n values ranked by descending score, stable
// on the shuffled working-set order.
func (t *Tournament) TopCandidates(n int) []string {
	ranked := slices.Clone(t.Values)
	sort.SliceStable(ranked, func(i, j int) bool {
		return t.Scores[ranked[i]] > t.Scores[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
