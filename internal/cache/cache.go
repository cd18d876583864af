// Package cache keeps the siren -> company name map of the legal-unit
// stock file in a local SQLite database, rebuilt only when the source
// file changes.
package cache

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crm-sirene/internal/logging"
)

// Legal-unit stock columns
const (
	ColumnSiren        = "siren"
	ColumnDenomination = "denominationUniteLegale"
	ColumnLastName     = "nomUniteLegale"
)

const insertBatch = 10000

// Cache is a caller-owned legal-unit name cache
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cache_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS legal_unit (
			siren TEXT PRIMARY KEY,
			name  TEXT NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// sourceStamp identifies one version of the source file
type sourceStamp struct {
	path  string
	size  string
	mtime string
}

func stampOf(src string) (sourceStamp, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return sourceStamp{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return sourceStamp{}, err
	}
	return sourceStamp{
		path:  abs,
		size:  strconv.FormatInt(info.Size(), 10),
		mtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
	}, nil
}

func (c *Cache) storedStamp(ctx context.Context) (sourceStamp, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT key, value FROM cache_meta`)
	if err != nil {
		return sourceStamp{}, err
	}
	defer rows.Close()

	var s sourceStamp
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return sourceStamp{}, err
		}
		switch key {
		case "source_path":
			s.path = value
		case "source_size":
			s.size = value
		case "source_mtime":
			s.mtime = value
		}
	}
	return s, rows.Err()
}

// Sync rebuilds the cache from src unless it was built from the same path,
// size and modification time. It reports whether a rebuild happened.
func (c *Cache) Sync(ctx context.Context, src string) (bool, error) {
	current, err := stampOf(src)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	stored, err := c.storedStamp(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read cache metadata: %w", err)
	}
	if stored == current {
		logging.Default().Debug().Str("source", src).Msg("Legal unit cache up to date")
		return false, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	n, err := c.rebuild(ctx, f, current)
	if err != nil {
		return false, err
	}
	logging.Default().Info().Str("source", src).Int("legal_units", n).Msg("Legal unit cache rebuilt")
	return true, nil
}

// rebuild replaces the cache content in one transaction
func (c *Cache) rebuild(ctx context.Context, r io.Reader, stamp sourceStamp) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read legal unit header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[col] = i
	}
	sirenCol, ok := idx[ColumnSiren]
	if !ok {
		return 0, fmt.Errorf("legal unit file has no %q column", ColumnSiren)
	}
	denomCol, hasDenom := idx[ColumnDenomination]
	lastCol, hasLast := idx[ColumnLastName]

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM legal_unit; DELETE FROM cache_meta;`); err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO legal_unit (siren, name) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	field := func(rec []string, col int, ok bool) string {
		if !ok || col >= len(rec) {
			return ""
		}
		return rec[col]
	}

	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read legal unit line %d: %w", n+2, err)
		}

		siren := field(rec, sirenCol, true)
		if siren == "" {
			continue
		}
		name := field(rec, denomCol, hasDenom)
		if name == "" {
			name = field(rec, lastCol, hasLast)
		}
		if _, err := stmt.ExecContext(ctx, siren, name); err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", siren, err)
		}
		n++

		if n%insertBatch == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}

	for key, value := range map[string]string{
		"source_path":  stamp.path,
		"source_size":  stamp.size,
		"source_mtime": stamp.mtime,
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cache_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return 0, fmt.Errorf("failed to store cache metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cache: %w", err)
	}
	return n, nil
}

// Lookup returns the company name of a siren
func (c *Cache) Lookup(ctx context.Context, siren string) (string, bool, error) {
	var name string
	err := c.db.QueryRowContext(ctx, `SELECT name FROM legal_unit WHERE siren = ?`, siren).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", siren, err)
	}
	return name, true, nil
}

// Len returns the number of cached legal units
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM legal_unit`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count legal units: %w", err)
	}
	return n, nil
}
