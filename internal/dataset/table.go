// Package dataset holds the in-memory tabular record sets exchanged
// between loaders, the reconciliation core and the sinks.
package dataset

// Row maps a column name to its text value. Missing cells are "".
type Row map[string]string

// Table is an ordered set of rows sharing a column list
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table declares col
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends col unless it already exists. Existing rows keep ""
// for it.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// Append adds a row built from positional values matching Columns.
// Extra values are ignored and missing ones are left empty.
func (t *Table) Append(values []string) {
	row := make(Row, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = ""
		}
	}
	t.Rows = append(t.Rows, row)
}

// Values returns the row values in column order
func (t *Table) Values(row Row) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = row[col]
	}
	return out
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	c := New(t.Columns...)
	c.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		r := make(Row, len(row))
		for k, v := range row {
			r[k] = v
		}
		c.Rows[i] = r
	}
	return c
}
