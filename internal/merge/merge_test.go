package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-sirene/internal/dataset"
)

const uid = "Identifiant interne (UID)"

func orionTable() *dataset.Table {
	t := dataset.New(uid, "Société", "SIRET")
	t.Append([]string{"1001", "ACME", "old"})
	t.Append([]string{"1002", "Garage Dupont", ""})
	t.Append([]string{"1001.0", "ACME (doublon)", ""})
	t.Append([]string{"", "Sans identifiant", ""})
	return t
}

func updateTable() *dataset.Table {
	t := dataset.New(uid, "score_match", "SIRET", "effectif")
	t.Append([]string{"1001.0", "135.0", "12345678900029", "12"})
	t.Append([]string{"1001", "150.0", "12345678900011", "11"})
	t.Append([]string{"1002", "120.0", "22222222200014", "21"})
	t.Append([]string{"1003", "150", "33333333300011", "03"})
	t.Append([]string{"1004", "n/a", "44444444400011", "03"})
	return t
}

func TestMerge(t *testing.T) {
	out, report, err := Merge(orionTable(), updateTable(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{uid, "Société", "SIRET", "effectif_auto", "score_match"}, out.Columns)
	require.Equal(t, 4, out.Len())

	// best score wins for uid 1001, applied to both spellings
	for _, i := range []int{0, 2} {
		assert.Equal(t, "12345678900011", out.Rows[i]["SIRET"])
		assert.Equal(t, "11", out.Rows[i]["effectif_auto"])
		assert.Equal(t, "150.0", out.Rows[i]["score_match"])
	}

	// below the minimum score
	assert.Equal(t, "", out.Rows[1]["SIRET"])
	assert.Equal(t, "0.0", out.Rows[1]["score_match"])
	assert.Equal(t, "", out.Rows[3]["SIRET"])

	assert.Equal(t, Report{UpdateRows: 5, Valid: 2, Applied: 2, OutputRows: 4}, report)
}

func TestMergeLeavesInputUntouched(t *testing.T) {
	orion := orionTable()
	_, _, err := Merge(orion, updateTable(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "old", orion.Rows[0]["SIRET"])
	assert.Len(t, orion.Columns, 3)
}

func TestMergeTiesKeepUpdateOrder(t *testing.T) {
	updates := dataset.New(uid, "score_match", "SIRET", "effectif")
	updates.Append([]string{"1002", "140", "first", "11"})
	updates.Append([]string{"1002", "140,0", "second", "12"})

	out, _, err := Merge(orionTable(), updates, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "first", out.Rows[1]["SIRET"])
}

func TestMergeCustomMinScore(t *testing.T) {
	opts := DefaultOptions()
	opts.MinScore = 100

	out, report, err := Merge(orionTable(), updateTable(), opts)
	require.NoError(t, err)
	assert.Equal(t, "22222222200014", out.Rows[1]["SIRET"])
	assert.Equal(t, 3, report.Applied)
}

func TestMergeRequiredColumns(t *testing.T) {
	missing := dataset.New(uid, "score_match", "SIRET")
	_, _, err := Merge(orionTable(), missing, DefaultOptions())
	assert.ErrorContains(t, err, "effectif")

	noUID := dataset.New("Société")
	_, _, err = Merge(noUID, updateTable(), DefaultOptions())
	assert.ErrorContains(t, err, uid)
}

func TestParseScore(t *testing.T) {
	assert.Equal(t, 130.0, parseScore(" 130 "))
	assert.Equal(t, 130.5, parseScore("130,5"))
	assert.True(t, math.IsNaN(parseScore("n/a")))
}
