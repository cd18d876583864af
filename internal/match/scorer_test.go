package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreExactDuplicate(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 150.0, s.Score("acme informatique", "acme informatique", "lyon", "lyon"))
}

func TestScoreComponents(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name                                     string
		queryName, candName, queryCity, candCity string
		want                                     Breakdown
	}{
		{
			name:      "substring and equal acronym",
			queryName: "acme informatique", candName: "acme info",
			queryCity: "lyon", candCity: "lyon",
			want: Breakdown{Ratio: 69, Substring: 20, Acronym: 20, City: 10},
		},
		{
			name:      "acronym contained in candidate",
			queryName: "ibm", candName: "international business machines",
			queryCity: "paris", candCity: "paris",
			want: Breakdown{Ratio: 12, Substring: 0, Acronym: 15, City: 10},
		},
		{
			name:      "missing city penalised",
			queryName: "garage du centre", candName: "centre garage",
			queryCity: "", candCity: "",
			want: Breakdown{Ratio: 90, City: -10},
		},
		{
			name:      "different city penalised",
			queryName: "garage du centre", candName: "centre garage",
			queryCity: "lyon", candCity: "villeurbanne",
			want: Breakdown{Ratio: 90, City: -10},
		},
		{
			name:      "city compared case-insensitively",
			queryName: "garage du centre", candName: "centre garage",
			queryCity: " Lyon", candCity: "LYON ",
			want: Breakdown{Ratio: 90, City: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Explain(tt.queryName, tt.candName, tt.queryCity, tt.candCity)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Total(), s.Score(tt.queryName, tt.candName, tt.queryCity, tt.candCity))
		})
	}
}

func TestScoreIsSymmetricForSymmetricSignals(t *testing.T) {
	s := NewScorer()
	pairs := [][4]string{
		{"acme informatique", "acme info", "lyon", "lyon"},
		{"boulangerie martin", "transports dupont", "paris", "lyon"},
		{"garage du centre", "centre garage", "", "lyon"},
	}

	for _, p := range pairs {
		assert.Equal(t, s.Score(p[0], p[1], p[2], p[3]), s.Score(p[1], p[0], p[2], p[3]), "pair %v", p)
	}
}

func TestScoreIsNotClamped(t *testing.T) {
	s := NewScorer()
	// an empty name is a substring of any name
	assert.Equal(t, 10.0, s.Score("", "", "", ""))
	assert.Equal(t, -10.0, s.Score("abc", "xyz", "", ""))
	assert.Greater(t, s.Score("acme", "acme", "lyon", "lyon"), 100.0)
}

func TestCustomWeights(t *testing.T) {
	s := NewScorerWithWeights(&Weights{CityMatch: 1, CityMismatch: 0})
	assert.Equal(t, 101.0, s.Score("acme", "acme", "lyon", "lyon"))
}
