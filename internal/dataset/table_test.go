package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableAppendAndValues(t *testing.T) {
	tbl := New("Société", "Ville", "CP")
	tbl.Append([]string{"ACME", "Lyon", "69001", "extra"})
	tbl.Append([]string{"Martin"})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"ACME", "Lyon", "69001"}, tbl.Values(tbl.Rows[0]))
	assert.Equal(t, []string{"Martin", "", ""}, tbl.Values(tbl.Rows[1]))
}

func TestTableAddColumn(t *testing.T) {
	tbl := New("a")
	tbl.AddColumn("b")
	tbl.AddColumn("a")

	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.True(t, tbl.HasColumn("b"))
	assert.False(t, tbl.HasColumn("c"))
}

func TestTableClone(t *testing.T) {
	tbl := New("a")
	tbl.Append([]string{"1"})

	c := tbl.Clone()
	c.Rows[0]["a"] = "2"
	c.AddColumn("b")

	assert.Equal(t, "1", tbl.Rows[0]["a"])
	assert.Equal(t, []string{"a"}, tbl.Columns)
}
