package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/match"
)

func TestFromTable(t *testing.T) {
	cols := DefaultColumns()
	tbl := dataset.New(cols.ID, cols.ParentID, cols.Name, cols.NameNorm, cols.City,
		cols.PostalCode, cols.Status, cols.Workforce, cols.Headquarters)
	tbl.Append([]string{"12345678900011", "123456789", "ACME INFORMATIQUE", "acme informatique", "LYON", "69002", "A", "11", "True"})
	tbl.Append([]string{"98765432100022", "987654321", "MARTIN", "martin", "PARIS", "", "F", "NN", "false"})
	tbl.Append([]string{"11111111100033", "111111111", "X", "x", "NICE", "06000", "?", "", ""})

	records, sum, err := FromTable(tbl, cols)
	require.NoError(t, err)
	require.Len(t, records, 3)

	acme := records[0]
	assert.Equal(t, "12345678900011", acme.ID)
	assert.Equal(t, "123456789", acme.ParentID)
	assert.Equal(t, "acme informatique", acme.NameNorm)
	assert.Equal(t, match.StatusActive, acme.Status)
	assert.Equal(t, "11", acme.Workforce)
	assert.True(t, acme.Headquarters)
	assert.Equal(t, 0, acme.Seq)

	assert.Equal(t, match.StatusClosed, records[1].Status)
	assert.Equal(t, "", records[1].Workforce)
	assert.False(t, records[1].Headquarters)
	assert.Equal(t, 1, records[1].Seq)

	assert.Equal(t, Summary{Total: 3, Active: 1, Closed: 1, UnknownState: 1, NoPostalCode: 1, Headquarters: 1}, sum)
}

func TestFromTableNormalizesWhenNoPrecomputedName(t *testing.T) {
	cols := DefaultColumns()
	tbl := dataset.New(cols.ID, cols.Name, cols.PostalCode, cols.Status)
	tbl.Append([]string{"1", "Société Générale S.A.", "75009", "A"})

	records, _, err := FromTable(tbl, cols)
	require.NoError(t, err)
	assert.Equal(t, "societe generale", records[0].NameNorm)
}

func TestFromTableRequiresKeyColumns(t *testing.T) {
	_, _, err := FromTable(dataset.New("siret"), DefaultColumns())
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "True", " TRUE ", "1", "oui"} {
		assert.True(t, ParseBool(s), s)
	}
	for _, s := range []string{"", "false", "False", "0", "non"} {
		assert.False(t, ParseBool(s), s)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sirene.csv")
	content := "nom_entreprise,nom_normalise,siret,siren,codePostalEtablissement,libelleCommuneEtablissement," +
		"trancheEffectifsEtablissement,etatAdministratifEtablissement,etablissementSiege\n" +
		"ACME SARL,acme,12345678900011,123456789,69003,LYON,11,A,true\n" +
		"ACME SARL,acme,12345678900029,123456789,69007,LYON,NN,F,false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, sum, err := Load(path, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Closed)
	assert.Equal(t, "", records[1].Workforce)
	assert.True(t, records[0].Headquarters)

	_, _, err = Load(filepath.Join(t.TempDir(), "absent.csv"), DefaultColumns())
	assert.Error(t, err)
}
