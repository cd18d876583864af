package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/crm-sirene/internal/reconcile"
	"github.com/crm-sirene/internal/registry"
)

// EnvPrefix prefixes every environment override (RECON_THRESHOLD, ...)
const EnvPrefix = "RECON"

// Server holds the HTTP API settings
type Server struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"`
}

// Settings is the resolved configuration of the reconciler binary
type Settings struct {
	reconcile.Config `mapstructure:",squash"`

	Registry     registry.Columns `mapstructure:"registry"`
	Server       Server           `mapstructure:"server"`
	CSVSeparator string           `mapstructure:"csv_separator"`
	CSVBOM       bool             `mapstructure:"csv_bom"`
	PGTable      string           `mapstructure:"pg_table"`
	MergeMin     float64          `mapstructure:"merge_min_score"`
	LogLevel     string           `mapstructure:"log_level"`
	LogFormat    string           `mapstructure:"log_format"`
}

// NewViper returns a viper instance with defaults and RECON_ environment
// binding. Nested keys map to RECON_FIELDS_NAME style variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers every known key so environment overrides and
// Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	rc := reconcile.DefaultConfig()
	v.SetDefault("threshold", rc.Threshold)
	v.SetDefault("checkpoint_interval", rc.CheckpointInterval)
	v.SetDefault("jurisdiction", rc.Jurisdiction)
	v.SetDefault("workers", rc.Workers)
	v.SetDefault("max_depth", rc.MaxDepth)
	v.SetDefault("debug", false)

	v.SetDefault("fields.name", rc.Fields.Name)
	v.SetDefault("fields.city", rc.Fields.City)
	v.SetDefault("fields.postal_code", rc.Fields.PostalCode)
	v.SetDefault("fields.country", rc.Fields.Country)
	v.SetDefault("fields.address", rc.Fields.Address)
	v.SetDefault("fields.direct_id", rc.Fields.DirectID)

	v.SetDefault("output.legal_id", rc.Output.LegalID)
	v.SetDefault("output.parent_id", rc.Output.ParentID)
	v.SetDefault("output.matched_name", rc.Output.MatchedName)
	v.SetDefault("output.score", rc.Output.Score)
	v.SetDefault("output.workforce", rc.Output.Workforce)

	cols := registry.DefaultColumns()
	v.SetDefault("registry.id", cols.ID)
	v.SetDefault("registry.parent_id", cols.ParentID)
	v.SetDefault("registry.name", cols.Name)
	v.SetDefault("registry.name_norm", cols.NameNorm)
	v.SetDefault("registry.city", cols.City)
	v.SetDefault("registry.postal_code", cols.PostalCode)
	v.SetDefault("registry.status", cols.Status)
	v.SetDefault("registry.workforce", cols.Workforce)
	v.SetDefault("registry.headquarters", cols.Headquarters)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("csv_separator", ",")
	v.SetDefault("csv_bom", false)
	v.SetDefault("pg_table", "")
	v.SetDefault("merge_min_score", 130.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")
}

// Load reads configFile (YAML) when given, otherwise an optional
// reconciler.yaml in the working directory, then unmarshals and
// validates the result.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("reconciler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the reconciliation parameters and the CSV separator
func (s *Settings) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if len([]rune(s.CSVSeparator)) != 1 {
		return fmt.Errorf("%w: csv separator must be a single character, got %q", reconcile.ErrInvalidConfig, s.CSVSeparator)
	}
	return nil
}

// Separator returns the CSV separator as a rune
func (s *Settings) Separator() rune {
	return []rune(s.CSVSeparator)[0]
}
