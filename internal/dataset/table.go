package dataset

import (
	"math"
	"strings"
)

// Table is an encounter dataset where any column may be absent. Columns
// lists the present columns in source order; values of absent columns on
// Rows carry no meaning.
type Table struct {
	Columns []Column
	Rows    []Encounter
	Source  string
}

// NewTable builds a table over the given columns. Unknown and duplicate
// columns are dropped.
func NewTable(columns []Column, rows []Encounter) *Table {
	known := make(map[Column]bool, len(AllColumns))
	for _, c := range AllColumns {
		known[c] = true
	}

	seen := make(map[Column]bool)
	cols := make([]Column, 0, len(columns))
	for _, c := range columns {
		if !known[c] || seen[c] {
			continue
		}
		seen[c] = true
		cols = append(cols, c)
	}
	if rows == nil {
		rows = []Encounter{}
	}
	return &Table{Columns: cols, Rows: rows}
}

// Len returns the number of rows. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether col is present.
func (t *Table) Has(col Column) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Values returns the non-missing values of a present numeric column.
func (t *Table) Values(col Column) []float64 {
	if !t.Has(col) || !IsNumeric(col) {
		return nil
	}
	vals := make([]float64, 0, len(t.Rows))
	for i := range t.Rows {
		v := t.Rows[i].Number(col)
		if math.IsNaN(v) {
			continue
		}
		vals = append(vals, v)
	}
	return vals
}

// Mean returns the average of the non-missing values in col. ok is false when
// the column is absent or has no values.
func (t *Table) Mean(col Column) (mean float64, ok bool) {
	vals := t.Values(col)
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// Sum returns the total of the non-missing values in col.
func (t *Table) Sum(col Column) (sum float64, ok bool) {
	vals := t.Values(col)
	if len(vals) == 0 {
		return 0, false
	}
	for _, v := range vals {
		sum += v
	}
	return sum, true
}

// Share returns the percentage of rows whose text value in col equals value.
// The comparison ignores case and surrounding space.
func (t *Table) Share(col Column, value string) (pct float64, ok bool) {
	if !t.Has(col) || IsNumeric(col) || t.Len() == 0 {
		return 0, false
	}
	hits := 0
	for i := range t.Rows {
		if strings.EqualFold(strings.TrimSpace(t.Rows[i].Text(col)), value) {
			hits++
		}
	}
	return float64(hits) / float64(len(t.Rows)) * 100, true
}

// Distinct counts distinct non-empty values of a present column.
func (t *Table) Distinct(col Column) int {
	if !t.Has(col) {
		return 0
	}
	seen := make(map[string]bool)
	for i := range t.Rows {
		key := cellString(&t.Rows[i], col)
		if key == "" {
			continue
		}
		seen[key] = true
	}
	return len(seen)
}

// Texts returns the values of a present text column, one per row.
func (t *Table) Texts(col Column) []string {
	if !t.Has(col) || IsNumeric(col) {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Rows[i].Text(col)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	return &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    append([]Encounter(nil), t.Rows...),
		Source:  t.Source,
	}
}

// WithColumn returns a copy of the table that also lists col.
func (t *Table) WithColumn(col Column) *Table {
	c := t.Clone()
	if !c.Has(col) {
		c.Columns = append(c.Columns, col)
	}
	return c
}

// Records renders up to limit rows (all when limit <= 0) as JSON-friendly
// maps keyed by column name. Missing numbers become nil.
func (t *Table) Records(limit int) []map[string]any {
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		row := &t.Rows[i]
		rec := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			if IsNumeric(col) {
				v := row.Number(col)
				if math.IsNaN(v) {
					rec[string(col)] = nil
				} else {
					rec[string(col)] = v
				}
				continue
			}
			rec[string(col)] = row.Text(col)
		}
		out = append(out, rec)
	}
	return out
}

// ColumnNames returns the present columns as strings.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return []string{}
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = string(c)
	}
	return names
}
