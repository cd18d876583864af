package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExactDuplicate(t *testing.T) {
	dup := &RegistryRecord{ID: "12345678900011", NameNorm: "acme informatique", City: "LYON", Status: StatusActive}
	other := &RegistryRecord{ID: "2", NameNorm: "boulangerie martin", City: "LYON", Status: StatusActive}

	m := NewMatcher(nil, DefaultThreshold)
	res, ok := m.Match(false, Query{Name: "ACME Informatique SARL", City: "Lyon"}, Bucket{other, dup})

	require.True(t, ok)
	assert.Same(t, dup, res.Record)
	assert.Equal(t, 150.0, res.Score)
	assert.Equal(t, Breakdown{Ratio: 100, Substring: 20, Acronym: 20, City: 10}, res.Breakdown)
}

func TestMatchRejectsUnrelated(t *testing.T) {
	bucket := Bucket{
		{ID: "1", NameNorm: "transports dupont", City: "Lyon", Status: StatusActive},
		{ID: "2", NameNorm: "pharmacie centrale", City: "Villeurbanne", Status: StatusActive},
	}

	m := NewMatcher(nil, DefaultThreshold)
	res, ok := m.Match(false, Query{Name: "Boulangerie Martin", City: "Paris"}, bucket)

	assert.False(t, ok)
	assert.Less(t, res.Score, DefaultThreshold)
	assert.NotNil(t, res.Record, "best candidate is still reported")
}

func TestMatchTieKeepsFirst(t *testing.T) {
	first := &RegistryRecord{ID: "first", NameNorm: "acme", City: "lyon"}
	second := &RegistryRecord{ID: "second", NameNorm: "acme", City: "lyon"}

	m := NewMatcher(nil, DefaultThreshold)
	res, ok := m.Match(false, Query{Name: "Acme", City: "Lyon"}, Bucket{first, second})

	require.True(t, ok)
	assert.Equal(t, "first", res.Record.ID)
}

func TestMatchThresholdIsInclusive(t *testing.T) {
	cand := &RegistryRecord{ID: "1", NameNorm: "centre garage", City: "Lyon"}

	res, ok := NewMatcher(nil, 100).Match(false, Query{Name: "Garage du Centre", City: "LYON"}, Bucket{cand})
	require.True(t, ok)
	assert.Equal(t, 100.0, res.Score)

	_, ok = NewMatcher(nil, 100.5).Match(false, Query{Name: "Garage du Centre", City: "LYON"}, Bucket{cand})
	assert.False(t, ok)
}

func TestMatchNormalizesCandidateCity(t *testing.T) {
	cand := &RegistryRecord{ID: "1", NameNorm: "acme informatique", City: "LYON CEDEX 03"}

	res, ok := NewMatcher(nil, DefaultThreshold).Match(false, Query{Name: "Acme Informatique", City: "Lyon 03"}, Bucket{cand})
	require.True(t, ok)
	assert.Equal(t, 10.0, res.Breakdown.City)
}

func TestMatchEmptyBucket(t *testing.T) {
	res, ok := NewMatcher(nil, DefaultThreshold).Match(false, Query{Name: "Acme"}, Bucket{})
	assert.False(t, ok)
	assert.Nil(t, res.Record)
}

func TestRank(t *testing.T) {
	a := &RegistryRecord{ID: "a", NameNorm: "transports dupont", City: "lyon"}
	b := &RegistryRecord{ID: "b", NameNorm: "acme informatique", City: "lyon"}
	c := &RegistryRecord{ID: "c", NameNorm: "acme informatique", City: "lyon"}
	d := &RegistryRecord{ID: "d", NameNorm: "acme info", City: "lyon"}

	m := NewMatcher(nil, DefaultThreshold)
	ranked := m.Rank(Query{Name: "Acme Informatique", City: "Lyon"}, Bucket{a, b, c, d}, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].Record.ID)
	assert.Equal(t, "c", ranked[1].Record.ID)
	assert.Equal(t, "d", ranked[2].Record.ID)

	assert.Len(t, m.Rank(Query{Name: "x"}, Bucket{a, b, c, d}, 0), 4)
}
