package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/reconcile"
)

func TestBreakdownJSON(t *testing.T) {
	fuzzy := reconcile.Decision{
		Method:    reconcile.MethodFuzzy,
		Breakdown: match.Breakdown{Ratio: 100, Substring: 20, Acronym: 20, City: 10},
	}
	got, err := breakdownJSON(fuzzy)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ratio":100,"substring":20,"acronym":20,"city":10}`, got.(string))

	direct := reconcile.Decision{Method: reconcile.MethodDirect, Score: reconcile.DirectScore}
	got, err = breakdownJSON(direct)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewTrackerRequiresDB(t *testing.T) {
	_, err := NewTracker(context.Background(), nil, false)
	assert.Error(t, err)
}

func TestTrackerIntegration(t *testing.T) {
	dsn := os.Getenv("RECON_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("RECON_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	tracker, err := NewTracker(ctx, db, false)
	require.NoError(t, err)

	runID := uuid.NewString()
	legalID := "9" + runID[:13]
	t.Cleanup(func() { db.Exec("DELETE FROM match_decision WHERE run_id = $1", runID) })

	require.NoError(t, tracker.RecordDecision(ctx, reconcile.Decision{
		RunID: runID, Index: 0, LegalID: legalID, ParentID: "999999999",
		Score: 130, Workforce: "11", Method: reconcile.MethodFuzzy,
		Breakdown: match.Breakdown{Ratio: 100, Substring: 20, City: 10},
	}))
	require.NoError(t, tracker.RecordDecision(ctx, reconcile.Decision{
		RunID: runID, Index: 1, LegalID: legalID, ParentID: "999999999",
		Score: reconcile.DirectScore, Workforce: match.ToDetermine, Method: reconcile.MethodDirect,
	}))

	history, err := tracker.GetDecisionHistory(ctx, legalID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stats, err := tracker.GetRunStatistics(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDecisions)
	assert.Equal(t, int64(1), stats.MethodBreakdown[reconcile.MethodDirect].ToDetermine)
}
