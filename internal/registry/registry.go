// Package registry maps SIRENE establishment tables onto the matching
// core's RegistryRecord.
package registry

import (
	"fmt"
	"strings"

	"github.com/crm-sirene/internal/dataset"
	import_pkg "github.com/crm-sirene/internal/import"
	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/normalize"
)

// Columns names the registry columns read by FromTable
type Columns struct {
	ID           string `mapstructure:"id"`
	ParentID     string `mapstructure:"parent_id"`
	Name         string `mapstructure:"name"`
	NameNorm     string `mapstructure:"name_norm"`
	City         string `mapstructure:"city"`
	PostalCode   string `mapstructure:"postal_code"`
	Status       string `mapstructure:"status"`
	Workforce    string `mapstructure:"workforce"`
	Headquarters string `mapstructure:"headquarters"`
}

// DefaultColumns returns the column names of the prepared SIRENE stock
// file (see the prepare commands).
func DefaultColumns() Columns {
	return Columns{
		ID:           "siret",
		ParentID:     "siren",
		Name:         "nom_entreprise",
		NameNorm:     "nom_normalise",
		City:         "libelleCommuneEtablissement",
		PostalCode:   "codePostalEtablissement",
		Status:       "etatAdministratifEtablissement",
		Workforce:    "trancheEffectifsEtablissement",
		Headquarters: "etablissementSiege",
	}
}

// Summary counts what FromTable produced
type Summary struct {
	Total        int
	Active       int
	Closed       int
	UnknownState int
	NoPostalCode int
	Headquarters int
}

// FromTable converts rows into registry records in table order. When the
// table has no normalized-name column the name is normalized here.
func FromTable(t *dataset.Table, cols Columns) ([]*match.RegistryRecord, Summary, error) {
	for _, required := range []string{cols.ID, cols.PostalCode, cols.Status} {
		if !t.HasColumn(required) {
			return nil, Summary{}, fmt.Errorf("registry column %q missing", required)
		}
	}
	precomputed := t.HasColumn(cols.NameNorm)

	var sum Summary
	records := make([]*match.RegistryRecord, 0, t.Len())
	for i, row := range t.Rows {
		rec := &match.RegistryRecord{
			ID:           strings.TrimSpace(row[cols.ID]),
			ParentID:     strings.TrimSpace(row[cols.ParentID]),
			Name:         row[cols.Name],
			City:         row[cols.City],
			PostalCode:   strings.TrimSpace(row[cols.PostalCode]),
			Status:       match.ParseStatus(row[cols.Status]),
			Workforce:    cleanWorkforce(row[cols.Workforce]),
			Headquarters: ParseBool(row[cols.Headquarters]),
			Seq:          i,
		}
		if precomputed {
			rec.NameNorm = row[cols.NameNorm]
		} else {
			rec.NameNorm = normalize.CompanyName(rec.Name)
		}

		sum.Total++
		switch rec.Status {
		case match.StatusActive:
			sum.Active++
		case match.StatusClosed:
			sum.Closed++
		default:
			sum.UnknownState++
		}
		if _, ok := match.BucketKey(rec.PostalCode); !ok {
			sum.NoPostalCode++
		}
		if rec.Headquarters {
			sum.Headquarters++
		}

		records = append(records, rec)
	}
	return records, sum, nil
}

// Load reads and maps a registry file
func Load(path string, cols Columns) ([]*match.RegistryRecord, Summary, error) {
	table, err := import_pkg.Load(path)
	if err != nil {
		return nil, Summary{}, err
	}

	records, sum, err := FromTable(table, cols)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to map registry %s: %w", path, err)
	}

	logging.Default().Info().
		Str("path", path).
		Int("records", sum.Total).
		Int("active", sum.Active).
		Int("closed", sum.Closed).
		Int("unknown_state", sum.UnknownState).
		Int("no_postal_code", sum.NoPostalCode).
		Int("headquarters", sum.Headquarters).
		Msg("Registry loaded")
	return records, sum, nil
}

// ParseBool reads the registry's boolean flags ("true", "True", "1", ...)
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "o", "oui", "t":
		return true
	}
	return false
}

// cleanWorkforce maps the registry's "not filled" codes to empty
func cleanWorkforce(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "NN", "nan", "<NA>":
		return ""
	}
	return s
}
