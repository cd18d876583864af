package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/crm-sirene/internal/debug"
	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/normalize"
)

// Prepared registry columns
const (
	ColumnCompanyName = "nom_entreprise"
	ColumnNameNorm    = "nom_normalise"
	ColumnSiren       = "siren"

	// NotDiffusible is the name published for non-diffusible legal units
	NotDiffusible = "[ND]"

	progressEvery = 100000
)

// Stats counts the rows of one transform
type Stats struct {
	Read    int
	Written int
	Dropped int
}

// FilterRules selects the establishments worth matching against
type FilterRules struct {
	Columns         []string
	EmployerColumn  string
	EmployerValue   string
	WorkforceColumn string
	StatusColumn    string
	ValidWorkforce  map[string]bool
}

// DefaultFilterRules keeps employer establishments with three or more
// employees, or an unknown bracket when closed.
func DefaultFilterRules() FilterRules {
	valid := make(map[string]bool)
	for _, code := range []string{"02", "03", "11", "12", "21", "22", "31", "32", "41", "42", "51", "52", "53"} {
		valid[code] = true
	}
	return FilterRules{
		Columns: []string{
			"siret",
			"siren",
			"denominationUsuelleEtablissement",
			"codePostalEtablissement",
			"libelleCommuneEtablissement",
			"trancheEffectifsEtablissement",
			"etatAdministratifEtablissement",
			"caractereEmployeurEtablissement",
			"etablissementSiege",
		},
		EmployerColumn:  "caractereEmployeurEtablissement",
		EmployerValue:   "O",
		WorkforceColumn: "trancheEffectifsEtablissement",
		StatusColumn:    "etatAdministratifEtablissement",
		ValidWorkforce:  valid,
	}
}

// Keep reports whether an establishment passes the rules
func (r FilterRules) Keep(employer, workforce, status string) bool {
	if employer != r.EmployerValue {
		return false
	}
	unknown := workforce == "" || workforce == "NN"
	if !unknown && !r.ValidWorkforce[workforce] {
		return false
	}
	// active establishments must have a known bracket
	return !(status == "A" && unknown)
}

// columnIndex maps header names to positions
func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		if _, ok := m[col]; !ok {
			m[col] = i
		}
	}
	return m
}

func getColumnValue(record []string, columnMap map[string]int, columnName string) string {
	if idx, ok := columnMap[columnName]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return cr
}

func readHeader(cr *csv.Reader, required ...string) ([]string, map[string]int, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	columnMap := columnIndex(header)
	for _, col := range required {
		if _, ok := columnMap[col]; !ok {
			return nil, nil, fmt.Errorf("column %q missing", col)
		}
	}
	return header, columnMap, nil
}

func trimBOM(s string) string {
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF {
		return s[3:]
	}
	return s
}

func progress(operation string, stats Stats) {
	if stats.Read%progressEvery == 0 {
		logging.Default().Info().
			Str("operation", operation).
			Int("read", stats.Read).
			Int("written", stats.Written).
			Msg("Progress")
	}
}

// FilterEstablishments streams the establishment stock from r to w,
// keeping rules.Columns of the rows that pass the rules.
func FilterEstablishments(localDebug bool, r io.Reader, w io.Writer, rules FilterRules) (Stats, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	var stats Stats
	cr := newReader(r)
	required := append([]string{rules.EmployerColumn, rules.WorkforceColumn, rules.StatusColumn}, rules.Columns...)
	_, columnMap, err := readHeader(cr, required...)
	if err != nil {
		return stats, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(rules.Columns); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	out := make([]string, len(rules.Columns))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read line %d: %w", stats.Read+2, err)
		}
		stats.Read++
		progress("filter", stats)

		keep := rules.Keep(
			getColumnValue(record, columnMap, rules.EmployerColumn),
			getColumnValue(record, columnMap, rules.WorkforceColumn),
			getColumnValue(record, columnMap, rules.StatusColumn),
		)
		if !keep {
			stats.Dropped++
			continue
		}

		for i, col := range rules.Columns {
			out[i] = getColumnValue(record, columnMap, col)
		}
		if err := cw.Write(out); err != nil {
			return stats, fmt.Errorf("failed to write row: %w", err)
		}
		stats.Written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}

	debug.DebugOutput(localDebug, "Filtered %d rows, kept %d", stats.Read, stats.Written)
	return stats, nil
}

// NameLookup resolves a siren to its company name
type NameLookup interface {
	Lookup(ctx context.Context, siren string) (string, bool, error)
}

// JoinNames prepends the company name column to every establishment.
// Unknown sirens get an empty name.
func JoinNames(ctx context.Context, localDebug bool, r io.Reader, w io.Writer, names NameLookup) (Stats, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	var stats Stats
	cr := newReader(r)
	header, columnMap, err := readHeader(cr, ColumnSiren)
	if err != nil {
		return stats, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{ColumnCompanyName}, header...)); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	out := make([]string, len(header)+1)
	missing := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read line %d: %w", stats.Read+2, err)
		}
		stats.Read++
		progress("join names", stats)

		name, found, err := names.Lookup(ctx, getColumnValue(record, columnMap, ColumnSiren))
		if err != nil {
			return stats, err
		}
		if !found {
			missing++
		}

		out[0] = name
		for i := range header {
			if i < len(record) {
				out[i+1] = record[i]
			} else {
				out[i+1] = ""
			}
		}
		if err := cw.Write(out); err != nil {
			return stats, fmt.Errorf("failed to write row: %w", err)
		}
		stats.Written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}

	debug.DebugOutput(localDebug, "Joined %d rows, %d without legal unit", stats.Written, missing)
	return stats, nil
}

// NormalizeNames drops non-diffusible rows and inserts the normalized
// company name right after the company name column.
func NormalizeNames(localDebug bool, r io.Reader, w io.Writer) (Stats, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	var stats Stats
	cr := newReader(r)
	header, columnMap, err := readHeader(cr, ColumnCompanyName)
	if err != nil {
		return stats, err
	}

	nameIdx := columnMap[ColumnCompanyName]
	// an existing normalized column is recomputed in place
	existing, hasNorm := columnMap[ColumnNameNorm]

	outHeader := header
	if !hasNorm {
		outHeader = make([]string, 0, len(header)+1)
		outHeader = append(outHeader, header[:nameIdx+1]...)
		outHeader = append(outHeader, ColumnNameNorm)
		outHeader = append(outHeader, header[nameIdx+1:]...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(outHeader); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	out := make([]string, len(outHeader))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read line %d: %w", stats.Read+2, err)
		}
		stats.Read++
		progress("normalize", stats)

		name := getColumnValue(record, columnMap, ColumnCompanyName)
		if name == NotDiffusible {
			stats.Dropped++
			continue
		}
		norm := normalize.CompanyName(name)

		j := 0
		for i := range header {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			if hasNorm && i == existing {
				v = norm
			}
			out[j] = v
			j++
			if !hasNorm && i == nameIdx {
				out[j] = norm
				j++
			}
		}
		if err := cw.Write(out); err != nil {
			return stats, fmt.Errorf("failed to write row: %w", err)
		}
		stats.Written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}

	debug.DebugOutput(localDebug, "Normalized %d rows, dropped %d", stats.Written, stats.Dropped)
	return stats, nil
}
