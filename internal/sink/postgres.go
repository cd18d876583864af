package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/crm-sirene/internal/reconcile"
)

var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// snapshotColumns are loaded with COPY, in this order
var snapshotColumns = []string{
	"run_id", "row_index", "fields", "legal_id", "parent_id",
	"matched_name", "score", "workforce", "method",
}

// Postgres stores snapshots in a table keyed by run and row index. Each
// Write deletes the run's rows and copies the full snapshot in one
// transaction.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres creates the sink and its table when missing
func NewPostgres(ctx context.Context, db *sql.DB, table string) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if !reIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	p := &Postgres{db: db, table: table}
	if err := p.ensureTable(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  run_id       uuid NOT NULL,
  row_index    integer NOT NULL,
  fields       jsonb NOT NULL,
  legal_id     text NOT NULL DEFAULT '',
  parent_id    text NOT NULL DEFAULT '',
  matched_name text NOT NULL DEFAULT '',
  score        double precision NOT NULL DEFAULT 0,
  workforce    text NOT NULL DEFAULT '',
  method       text NOT NULL DEFAULT '',
  saved_at     timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (run_id, row_index)
)`, pq.QuoteIdentifier(p.table))

	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", p.table, err)
	}
	return nil
}

// Write replaces the run's rows with the snapshot
func (p *Postgres) Write(ctx context.Context, snap *reconcile.Snapshot) error {
	rows, err := copyRows(snap)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", pq.QuoteIdentifier(p.table))
	if _, err := tx.ExecContext(ctx, del, snap.RunID); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, snapshotColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy row %v: %w", row[1], err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// copyRows renders the snapshot as COPY values in snapshotColumns order.
// The CRM fields are kept as a JSON object restricted to the snapshot
// columns.
func copyRows(snap *reconcile.Snapshot) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(snap.Records))
	for _, rec := range snap.Records {
		fields := make(map[string]string, len(snap.Columns))
		for _, col := range snap.Columns {
			fields[col] = rec.Fields[col]
		}
		fieldsJSON, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode fields of row %d: %w", rec.Index, err)
		}
		rows = append(rows, []interface{}{
			snap.RunID, rec.Index, string(fieldsJSON), rec.LegalID, rec.ParentID,
			rec.MatchedName, rec.Score, rec.Workforce, rec.Method,
		})
	}
	return rows, nil
}
