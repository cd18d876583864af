// Package sink persists reconciliation snapshots. Every Write replaces
// the previous snapshot at the destination.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/reconcile"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV writes snapshots to a delimited file
type CSV struct {
	Path      string
	Separator rune
	BOM       bool
}

// NewCSV creates a CSV sink. A zero separator means ','.
func NewCSV(path string, separator rune, bom bool) *CSV {
	if separator == 0 {
		separator = ','
	}
	return &CSV{Path: path, Separator: separator, BOM: bom}
}

// Write replaces the file with the snapshot
func (s *CSV) Write(_ context.Context, snap *reconcile.Snapshot) error {
	return WriteTable(s.Path, snap.Table(), s.Separator, s.BOM)
}

// WriteTable writes t to path through a temporary file in the same
// directory, renamed over the destination once complete. Readers never
// see a partial file.
func WriteTable(path string, t *dataset.Table, separator rune, bom bool) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encodeTable(tmp, t, separator, bom); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func encodeTable(f *os.File, t *dataset.Table, separator rune, bom bool) error {
	if bom {
		if _, err := f.Write(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	w.Comma = separator
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(t.Values(row)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
