package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crm-sirene/internal/debug"
	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/reconcile"
)

// Tracker logs accepted reconciliation decisions in match_decision
type Tracker struct {
	db         *sql.DB
	localDebug bool
}

// NewTracker creates the tracker and its table when missing
func NewTracker(ctx context.Context, db *sql.DB, localDebug bool) (*Tracker, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS match_decision (
			decision_id  bigserial PRIMARY KEY,
			run_id       uuid NOT NULL,
			row_index    integer NOT NULL,
			legal_id     text NOT NULL,
			parent_id    text NOT NULL,
			score        double precision NOT NULL,
			workforce    text NOT NULL,
			method       text NOT NULL,
			breakdown    jsonb,
			decided_at   timestamptz NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create match_decision table: %w", err)
	}

	return &Tracker{db: db, localDebug: localDebug}, nil
}

// RecordDecision saves one accepted decision
func (t *Tracker) RecordDecision(ctx context.Context, d reconcile.Decision) error {
	debug.DebugOutput(t.localDebug, "Recording decision for row %d: %s -> %s (%.1f)",
		d.Index, d.Method, d.LegalID, d.Score)

	breakdown, err := breakdownJSON(d)
	if err != nil {
		return err
	}

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO match_decision (
			run_id, row_index, legal_id, parent_id, score, workforce, method, breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.RunID, d.Index, d.LegalID, d.ParentID, d.Score, d.Workforce, d.Method, breakdown)
	if err != nil {
		return fmt.Errorf("failed to insert decision for row %d: %w", d.Index, err)
	}
	return nil
}

// breakdownJSON encodes the score components; direct decisions have none
func breakdownJSON(d reconcile.Decision) (interface{}, error) {
	if d.Method == reconcile.MethodDirect || d.Breakdown == (match.Breakdown{}) {
		return nil, nil
	}
	data, err := json.Marshal(d.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return string(data), nil
}

// GetDecisionHistory returns every decision that picked legalID, newest first
func (t *Tracker) GetDecisionHistory(ctx context.Context, legalID string) ([]DecisionHistoryEntry, error) {
	debug.DebugHeader(t.localDebug)
	defer debug.DebugFooter(t.localDebug)

	rows, err := t.db.QueryContext(ctx, `
		SELECT run_id, row_index, legal_id, parent_id, score, workforce, method,
		       COALESCE(breakdown::text, ''), decided_at
		FROM match_decision
		WHERE legal_id = $1
		ORDER BY decided_at DESC, decision_id DESC
	`, legalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decision history: %w", err)
	}
	defer rows.Close()

	var history []DecisionHistoryEntry
	for rows.Next() {
		var (
			entry     DecisionHistoryEntry
			breakdown string
		)
		err := rows.Scan(&entry.RunID, &entry.RowIndex, &entry.LegalID, &entry.ParentID,
			&entry.Score, &entry.Workforce, &entry.Method, &breakdown, &entry.DecidedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if breakdown != "" {
			if err := json.Unmarshal([]byte(breakdown), &entry.Breakdown); err != nil {
				return nil, fmt.Errorf("failed to decode breakdown: %w", err)
			}
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decision history: %w", err)
	}

	debug.DebugOutput(t.localDebug, "Retrieved %d decisions for %s", len(history), legalID)
	return history, nil
}

// GetRunStatistics aggregates the decisions of a run per method
func (t *Tracker) GetRunStatistics(ctx context.Context, runID string) (*RunStats, error) {
	debug.DebugHeader(t.localDebug)
	defer debug.DebugFooter(t.localDebug)

	rows, err := t.db.QueryContext(ctx, `
		SELECT
			method,
			COUNT(*) as count,
			AVG(score) as avg_score,
			MIN(score) as min_score,
			MAX(score) as max_score,
			COUNT(*) FILTER (WHERE workforce = $2) as to_determine
		FROM match_decision
		WHERE run_id = $1
		GROUP BY method
		ORDER BY method
	`, runID, match.ToDetermine)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	stats := &RunStats{RunID: runID, MethodBreakdown: make(map[string]MethodStats)}
	for rows.Next() {
		var ms MethodStats
		if err := rows.Scan(&ms.Method, &ms.Count, &ms.AvgScore, &ms.MinScore, &ms.MaxScore, &ms.ToDetermine); err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}
		stats.MethodBreakdown[ms.Method] = ms
		stats.TotalDecisions += ms.Count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run stats: %w", err)
	}

	debug.DebugOutput(t.localDebug, "Retrieved statistics for run %s: %d decisions", runID, stats.TotalDecisions)
	return stats, nil
}

type DecisionHistoryEntry struct {
	RunID     string             `json:"run_id"`
	RowIndex  int                `json:"row_index"`
	LegalID   string             `json:"legal_id"`
	ParentID  string             `json:"parent_id"`
	Score     float64            `json:"score"`
	Workforce string             `json:"workforce"`
	Method    string             `json:"method"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	DecidedAt time.Time          `json:"decided_at"`
}

type RunStats struct {
	RunID           string                 `json:"run_id"`
	TotalDecisions  int64                  `json:"total_decisions"`
	MethodBreakdown map[string]MethodStats `json:"method_breakdown"`
}

type MethodStats struct {
	Method      string  `json:"method"`
	Count       int64   `json:"count"`
	AvgScore    float64 `json:"avg_score"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`
	ToDetermine int64   `json:"to_determine"`
}
