package reconcile

import (
	"context"
	"strconv"
	"time"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/match"
)

// Match methods recorded on enriched records
const (
	MethodFuzzy  = "fuzzy"
	MethodDirect = "direct"
)

// Record is one CRM row with its enrichment. Records are addressed by
// their Index into the run's record slice.
type Record struct {
	Index       int
	Fields      dataset.Row
	LegalID     string
	ParentID    string
	MatchedName string
	Score       float64
	Workforce   string
	Method      string
}

// Matched reports whether the record received an enrichment
func (r *Record) Matched() bool {
	return r.Method != ""
}

// Snapshot is the full state handed to a sink at a checkpoint
type Snapshot struct {
	RunID     string
	Columns   []string
	Output    OutputColumns
	Records   []*Record
	Processed int
	Final     bool
	TakenAt   time.Time
}

// Table materializes the snapshot as rows: the CRM columns followed by
// the enrichment columns.
func (s *Snapshot) Table() *dataset.Table {
	t := dataset.New(s.Columns...)
	for _, col := range s.Output.Names() {
		t.AddColumn(col)
	}

	t.Rows = make([]dataset.Row, len(s.Records))
	for i, rec := range s.Records {
		row := make(dataset.Row, len(t.Columns))
		for _, col := range s.Columns {
			row[col] = rec.Fields[col]
		}
		row[s.Output.LegalID] = rec.LegalID
		row[s.Output.ParentID] = rec.ParentID
		row[s.Output.MatchedName] = rec.MatchedName
		row[s.Output.Score] = FormatScore(rec.Score)
		row[s.Output.Workforce] = rec.Workforce
		t.Rows[i] = row
	}
	return t
}

// FormatScore renders a score the way the output files carry it
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// Sink receives full snapshots; every call replaces the previous one
type Sink interface {
	Write(ctx context.Context, snap *Snapshot) error
}

// Decision is one accepted enrichment, as reported to an Auditor
type Decision struct {
	RunID     string
	Index     int
	LegalID   string
	ParentID  string
	Score     float64
	Workforce string
	Method    string
	Breakdown match.Breakdown
}

// Auditor records accepted decisions
type Auditor interface {
	RecordDecision(ctx context.Context, d Decision) error
}

// Stats counts record outcomes of a run
type Stats struct {
	Total               int `json:"total"`
	SkippedJurisdiction int `json:"skipped_jurisdiction"`
	NoBucket            int `json:"no_bucket"`
	Matched             int `json:"matched"`
	Direct              int `json:"direct"`
	Unmatched           int `json:"unmatched"`
	AddressFallbacks    int `json:"address_fallbacks"`
	Checkpoints         int `json:"checkpoints"`
	CheckpointFailures  int `json:"checkpoint_failures"`
	AuditFailures       int `json:"audit_failures"`
}

// Run is the outcome of a reconciliation
type Run struct {
	ID       string
	Records  []*Record
	Stats    Stats
	Started  time.Time
	Finished time.Time
}

// Duration returns the wall time of the run
func (r *Run) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
