package match

import (
	"sort"

	"github.com/crm-sirene/internal/debug"
	"github.com/crm-sirene/internal/normalize"
)

// DefaultThreshold is the minimum score for accepting a candidate. Word
// overlap alone (ratio 100, city mismatch) cannot reach it without a
// substring, acronym or city signal.
const DefaultThreshold = 100.0

// Matcher selects the best registry candidate for a query within a bucket
type Matcher struct {
	scorer    *Scorer
	threshold float64
}

// NewMatcher creates a matcher. A nil scorer uses default weights.
func NewMatcher(scorer *Scorer, threshold float64) *Matcher {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Matcher{scorer: scorer, threshold: threshold}
}

// Threshold returns the acceptance threshold
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scans the whole bucket and returns the best candidate. The first
// candidate reaching the maximum score wins; later ties never replace it.
// The boolean reports whether the best score reaches the threshold. With
// an empty bucket the result is zero and false.
func (m *Matcher) Match(localDebug bool, q Query, bucket Bucket) (Result, bool) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	name := normalize.Text(q.Name)
	city := normalize.Text(q.City)
	debug.DebugOutput(localDebug, "Query %q / %q against %d candidates", name, city, len(bucket))

	var (
		best  Result
		found bool
	)
	for _, cand := range bucket {
		b := m.scorer.ExplainDebug(localDebug, name, cand.NameNorm, city, normalize.Text(cand.City))
		score := b.Total()
		if !found || score > best.Score {
			best = Result{Record: cand, Score: score, Breakdown: b}
			found = true
		}
	}

	if !found {
		debug.DebugOutput(localDebug, "Empty bucket - no match")
		return Result{}, false
	}

	accepted := best.Score >= m.threshold
	debug.DebugOutput(localDebug, "Best %s (%q) score=%.1f threshold=%.1f accepted=%v",
		best.Record.ID, best.Record.NameNorm, best.Score, m.threshold, accepted)
	return best, accepted
}

// Rank scores every candidate and returns the n best, highest first.
// Equal scores keep bucket order. n <= 0 returns all candidates.
func (m *Matcher) Rank(q Query, bucket Bucket, n int) []Result {
	name := normalize.Text(q.Name)
	city := normalize.Text(q.City)

	results := make([]Result, 0, len(bucket))
	for _, cand := range bucket {
		b := m.scorer.Explain(name, cand.NameNorm, city, normalize.Text(cand.City))
		results = append(results, Result{Record: cand, Score: b.Total(), Breakdown: b})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results
}
