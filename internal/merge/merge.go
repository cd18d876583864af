// Package merge applies reviewed reconciliation results back onto the
// CRM export through its internal unique identifier.
package merge

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/normalize"
	"github.com/crm-sirene/internal/reconcile"
)

// Options names the columns involved in a merge
type Options struct {
	UIDColumn          string  `mapstructure:"uid_column"`
	ScoreColumn        string  `mapstructure:"score_column"`
	LegalIDColumn      string  `mapstructure:"legal_id_column"`
	WorkforceColumn    string  `mapstructure:"workforce_column"`
	OutWorkforceColumn string  `mapstructure:"out_workforce_column"`
	MinScore           float64 `mapstructure:"min_score"`
}

// DefaultOptions returns the Orion export column names and the score
// below which updates are ignored.
func DefaultOptions() Options {
	return Options{
		UIDColumn:          "Identifiant interne (UID)",
		ScoreColumn:        "score_match",
		LegalIDColumn:      "SIRET",
		WorkforceColumn:    "effectif",
		OutWorkforceColumn: "effectif_auto",
		MinScore:           130,
	}
}

// Report counts what a merge did
type Report struct {
	UpdateRows int // rows in the update table
	Valid      int // distinct identifiers with a score >= MinScore
	Applied    int // output rows that received an update
	OutputRows int
}

type update struct {
	legalID   string
	workforce string
	score     float64
}

// parseScore accepts "130", "130.0" and "130,0"; anything else is NaN
func parseScore(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Merge copies orion and sets the legal id, workforce and score columns
// of every row whose identifier has a qualifying update. For each
// identifier the highest-scoring update row wins; equal scores keep
// update order. Rows without an update get empty values and a zero score.
func Merge(orion, updates *dataset.Table, opts Options) (*dataset.Table, Report, error) {
	report := Report{UpdateRows: updates.Len()}

	for _, col := range []string{opts.UIDColumn, opts.ScoreColumn, opts.LegalIDColumn, opts.WorkforceColumn} {
		if !updates.HasColumn(col) {
			return nil, report, fmt.Errorf("update table: column %q missing", col)
		}
	}
	if !orion.HasColumn(opts.UIDColumn) {
		return nil, report, fmt.Errorf("orion table: column %q missing", opts.UIDColumn)
	}

	type scored struct {
		row   dataset.Row
		score float64
	}
	ranked := make([]scored, 0, updates.Len())
	for _, row := range updates.Rows {
		score := parseScore(row[opts.ScoreColumn])
		if math.IsNaN(score) {
			continue
		}
		ranked = append(ranked, scored{row: row, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	valid := make(map[string]update)
	for _, r := range ranked {
		uid := normalize.UID(r.row[opts.UIDColumn])
		if uid == "" || r.score < opts.MinScore {
			continue
		}
		if _, seen := valid[uid]; seen {
			continue
		}
		valid[uid] = update{
			legalID:   r.row[opts.LegalIDColumn],
			workforce: r.row[opts.WorkforceColumn],
			score:     r.score,
		}
	}
	report.Valid = len(valid)

	out := orion.Clone()
	for _, col := range []string{opts.LegalIDColumn, opts.OutWorkforceColumn, opts.ScoreColumn} {
		out.AddColumn(col)
	}
	for _, row := range out.Rows {
		u, ok := valid[normalize.UID(row[opts.UIDColumn])]
		if !ok {
			row[opts.LegalIDColumn] = ""
			row[opts.OutWorkforceColumn] = ""
			row[opts.ScoreColumn] = reconcile.FormatScore(0)
			continue
		}
		row[opts.LegalIDColumn] = u.legalID
		row[opts.OutWorkforceColumn] = u.workforce
		row[opts.ScoreColumn] = reconcile.FormatScore(u.score)
		report.Applied++
	}
	report.OutputRows = out.Len()

	return out, report, nil
}
