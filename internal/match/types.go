package match

import "strings"

// Status is the administrative status of a registry establishment
type Status string

const (
	StatusActive  Status = "A"
	StatusClosed  Status = "F"
	StatusUnknown Status = ""
)

// ParseStatus maps the registry's status code; anything unrecognised is
// StatusUnknown and keeps the record out of the blocking index.
func ParseStatus(code string) Status {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "A", "ACTIVE":
		return StatusActive
	case "F", "C", "CLOSED":
		return StatusClosed
	}
	return StatusUnknown
}

// Workforce sentinels written when no bracket can be derived
const (
	ToDetermine = "TO_DETERMINE"
	Closed      = "CLOSED"
)

// RegistryRecord is one establishment of the reference registry.
// Records are immutable once loaded.
type RegistryRecord struct {
	ID           string // establishment identifier (SIRET)
	ParentID     string // legal unit identifier (SIREN)
	Name         string
	NameNorm     string
	City         string
	PostalCode   string
	Status       Status
	Workforce    string // bracket code, empty when unknown
	Headquarters bool
	Seq          int // load order, used for deterministic iteration
}

// Active reports whether the establishment is open
func (r *RegistryRecord) Active() bool {
	return r.Status == StatusActive
}

// Query is the normalized-or-raw input the matcher compares to a bucket
type Query struct {
	Name string
	City string
}

// Breakdown lists the four additive score components
type Breakdown struct {
	Ratio     float64 `json:"ratio"`
	Substring float64 `json:"substring"`
	Acronym   float64 `json:"acronym"`
	City      float64 `json:"city"`
}

// Total sums the components
func (b Breakdown) Total() float64 {
	return b.Ratio + b.Substring + b.Acronym + b.City
}

// Result is an accepted (or ranked) candidate with its score
type Result struct {
	Record    *RegistryRecord
	Score     float64
	Breakdown Breakdown
}
