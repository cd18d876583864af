package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/postal"
)

func TestEngineEvaluate(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRegistry(), nil, postal.RegexParser{})

	out := e.Evaluate(dataset.Row{"Société": "ACME", "Ville": "Lyon", "CP": "69001", "Pays": "France"})
	assert.True(t, out.Accepted())
	assert.Equal(t, metrics.OutcomeMatched, out.Kind)
	assert.Equal(t, "69", out.Bucket)
	assert.Equal(t, 2, out.BucketSize)
	assert.Equal(t, "11", out.Workforce)

	out = e.Evaluate(dataset.Row{"Société": "ACME", "CP": "69001", "Pays": "Suisse"})
	assert.Equal(t, metrics.OutcomeJurisdiction, out.Kind)
	assert.False(t, out.Accepted())
}

func TestEngineRank(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRegistry(), nil, nil)

	ranked := e.Rank(dataset.Row{"Société": "Transports Roux", "Ville": "Villeurbanne", "CP": "69100"}, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "98765432100019", ranked[0].Record.ID)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	assert.Len(t, e.Rank(dataset.Row{"Société": "ACME", "CP": "69001"}, 1), 1)
	assert.Nil(t, e.Rank(dataset.Row{"Société": "ACME"}, 5))
}

func TestEngineIndices(t *testing.T) {
	e := NewEngine(DefaultConfig(), testRegistry(), nil, nil)

	// closed establishments stay out of the blocking index
	assert.Equal(t, 3, e.Blocking().Size())
	assert.Equal(t, 3, e.Headquarters().Len())
	assert.Equal(t, 100.0, e.Threshold())
	assert.True(t, e.InJurisdiction(" FRANCE"))
}
