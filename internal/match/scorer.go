package match

import (
	"strings"

	"github.com/crm-sirene/internal/debug"
	"github.com/crm-sirene/internal/normalize"
)

// Weights holds the hand-tuned additive bonuses of the name/city score.
// The name ratio itself contributes 0-100 unweighted.
type Weights struct {
	Substring        float64 // one name contains the other
	AcronymEqual     float64 // identical acronyms
	AcronymContained float64 // query acronym inside the candidate name
	CityMatch        float64 // same non-empty city
	CityMismatch     float64 // different or missing city
}

// DefaultWeights returns the calibrated weights the default threshold of
// 100 was tuned against.
func DefaultWeights() *Weights {
	return &Weights{
		Substring:        20,
		AcronymEqual:     20,
		AcronymContained: 15,
		CityMatch:        10,
		CityMismatch:     -10,
	}
}

// Scorer computes the additive similarity of two normalized names and
// cities
type Scorer struct {
	weights *Weights
}

// NewScorer creates a scorer with default weights
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// NewScorerWithWeights creates a scorer with custom weights
func NewScorerWithWeights(weights *Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score returns the unclamped score of a candidate. All arguments are
// expected to be normalized already.
func (s *Scorer) Score(queryName, candName, queryCity, candCity string) float64 {
	return s.Explain(queryName, candName, queryCity, candCity).Total()
}

// Explain returns the score split into its components
func (s *Scorer) Explain(queryName, candName, queryCity, candCity string) Breakdown {
	var b Breakdown

	b.Ratio = float64(TokenSortRatio(queryName, candName))

	if strings.Contains(candName, queryName) || strings.Contains(queryName, candName) {
		b.Substring = s.weights.Substring
	}

	queryAcro := normalize.Acronym(queryName)
	candAcro := normalize.Acronym(candName)
	if queryAcro != "" && candAcro != "" {
		if queryAcro == candAcro {
			b.Acronym = s.weights.AcronymEqual
		} else if strings.Contains(strings.ReplaceAll(candName, " ", ""), queryAcro) {
			b.Acronym = s.weights.AcronymContained
		}
	}

	qc := strings.ToLower(strings.TrimSpace(queryCity))
	cc := strings.ToLower(strings.TrimSpace(candCity))
	if qc != "" && cc != "" && qc == cc {
		b.City = s.weights.CityMatch
	} else {
		b.City = s.weights.CityMismatch
	}

	return b
}

// ExplainDebug is Explain with per-component trace output
func (s *Scorer) ExplainDebug(localDebug bool, queryName, candName, queryCity, candCity string) Breakdown {
	b := s.Explain(queryName, candName, queryCity, candCity)
	debug.DebugOutput(localDebug, "score %q vs %q: ratio=%.0f substring=%.0f acronym=%.0f city=%.0f total=%.0f",
		queryName, candName, b.Ratio, b.Substring, b.Acronym, b.City, b.Total())
	return b
}
