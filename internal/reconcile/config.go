package reconcile

import (
	"errors"
	"fmt"

	"github.com/crm-sirene/internal/match"
)

// ErrInvalidConfig is wrapped by Config.Validate failures
var ErrInvalidConfig = errors.New("invalid reconciliation config")

// DirectScore is the score written for records enriched through their
// own establishment identifier rather than a fuzzy match.
const DirectScore = 150.0

// Fields names the CRM columns read by the orchestrator
type Fields struct {
	Name       string `mapstructure:"name"`
	City       string `mapstructure:"city"`
	PostalCode string `mapstructure:"postal_code"`
	Country    string `mapstructure:"country"`
	Address    string `mapstructure:"address"`   // optional, parsed when PostalCode is empty
	DirectID   string `mapstructure:"direct_id"` // optional, establishment id already known
}

// DefaultFields returns the column names of the Orion CRM export
func DefaultFields() Fields {
	return Fields{
		Name:       "Société",
		City:       "Ville",
		PostalCode: "CP",
		Country:    "Pays",
	}
}

// OutputColumns names the enrichment columns written by the sinks
type OutputColumns struct {
	LegalID     string `mapstructure:"legal_id"`
	ParentID    string `mapstructure:"parent_id"`
	MatchedName string `mapstructure:"matched_name"`
	Score       string `mapstructure:"score"`
	Workforce   string `mapstructure:"workforce"`
}

// DefaultOutputColumns returns the historical enrichment column names
func DefaultOutputColumns() OutputColumns {
	return OutputColumns{
		LegalID:     "SIRET",
		ParentID:    "SIREN",
		MatchedName: "nom_match_sirene",
		Score:       "score_match",
		Workforce:   "effectif",
	}
}

// Names returns the enrichment columns in output order
func (c OutputColumns) Names() []string {
	return []string{c.LegalID, c.ParentID, c.Workforce, c.MatchedName, c.Score}
}

// Config holds the run parameters of a reconciliation
type Config struct {
	Threshold          float64       `mapstructure:"threshold"`
	CheckpointInterval int           `mapstructure:"checkpoint_interval"`
	Jurisdiction       string        `mapstructure:"jurisdiction"` // empty disables the country filter
	Workers            int           `mapstructure:"workers"`
	MaxDepth           int           `mapstructure:"max_depth"`
	Fields             Fields        `mapstructure:"fields"`
	Output             OutputColumns `mapstructure:"output"`
	Debug              bool          `mapstructure:"debug"`
}

// DefaultConfig returns the defaults of a reconciliation run
func DefaultConfig() Config {
	return Config{
		Threshold:          match.DefaultThreshold,
		CheckpointInterval: 100,
		Jurisdiction:       "FRANCE",
		Workers:            1,
		MaxDepth:           match.DefaultMaxDepth,
		Fields:             DefaultFields(),
		Output:             DefaultOutputColumns(),
	}
}

// Validate checks the parameters the orchestrator cannot default
func (c Config) Validate() error {
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("%w: checkpoint interval must be positive, got %d", ErrInvalidConfig, c.CheckpointInterval)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.Fields.Name == "" || c.Fields.PostalCode == "" {
		return fmt.Errorf("%w: name and postal code columns are required", ErrInvalidConfig)
	}
	for _, col := range c.Output.Names() {
		if col == "" {
			return fmt.Errorf("%w: every output column needs a name", ErrInvalidConfig)
		}
	}
	return nil
}
