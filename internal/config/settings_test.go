package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-sirene/internal/reconcile"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 100.0, s.Threshold)
	assert.Equal(t, 100, s.CheckpointInterval)
	assert.Equal(t, "FRANCE", s.Jurisdiction)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, "Société", s.Fields.Name)
	assert.Equal(t, "SIRET", s.Output.LegalID)
	assert.Equal(t, "siret", s.Registry.ID)
	assert.Equal(t, ',', s.Separator())
	assert.Equal(t, 130.0, s.MergeMin)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECON_THRESHOLD", "120")
	t.Setenv("RECON_WORKERS", "4")
	t.Setenv("RECON_FIELDS_NAME", "Raison sociale")

	s, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 120.0, s.Threshold)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, "Raison sociale", s.Fields.Name)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
checkpoint_interval: 25
jurisdiction: ""
csv_separator: ";"
fields:
  address: Adresse
registry:
  status: etat
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	s, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 25, s.CheckpointInterval)
	assert.Equal(t, "", s.Jurisdiction)
	assert.Equal(t, ';', s.Separator())
	assert.Equal(t, "Adresse", s.Fields.Address)
	assert.Equal(t, "Ville", s.Fields.City)
	assert.Equal(t, "etat", s.Registry.Status)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("checkpoint interval", func(t *testing.T) {
		t.Setenv("RECON_CHECKPOINT_INTERVAL", "0")
		_, err := Load(NewViper(), "")
		assert.ErrorIs(t, err, reconcile.ErrInvalidConfig)
	})

	t.Run("separator", func(t *testing.T) {
		t.Setenv("RECON_CSV_SEPARATOR", ";;")
		_, err := Load(NewViper(), "")
		assert.ErrorIs(t, err, reconcile.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadEnvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	env := "RECON_TEST_DOTENV_HOST=db.internal\nRECON_TEST_DOTENV_PORT=6543\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))
	t.Setenv("RECON_TEST_DOTENV_PORT", "5433")
	t.Cleanup(func() { os.Unsetenv("RECON_TEST_DOTENV_HOST") })

	require.NoError(t, LoadEnv())

	assert.Equal(t, "db.internal", GetEnv("RECON_TEST_DOTENV_HOST", "localhost"))
	assert.Equal(t, 5433, GetEnvInt("RECON_TEST_DOTENV_PORT", 5432))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("RECON_TEST_INT", "25")
	t.Setenv("RECON_TEST_BAD", "abc")

	assert.Equal(t, 25, GetEnvInt("RECON_TEST_INT", 10))
	assert.Equal(t, 7, GetEnvInt("RECON_TEST_BAD", 7))
	assert.Equal(t, "fallback", GetEnv("RECON_TEST_UNSET", "fallback"))
}
