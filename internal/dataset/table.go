// Package dataset provides the in-memory tabular structure passed between
// pipeline stages. A Table is an ordered set of column labels plus rows of
// loosely typed cells; a nil cell represents a null. Cells hold either a
// string or a float64 — relational integer columns are widened to float64
// on ingest so numeric operations never branch on integer width.
package dataset

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Table holds rows of loosely typed cells under ordered column labels.
type Table struct {
	cols []string
	rows [][]any
}

// New creates an empty Table with the given column labels.
func New(cols ...string) *Table {
	return &Table{cols: append([]string(nil), cols...)}
}

// Columns returns a copy of the column labels in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// HasColumn reports whether a column with the given label exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columnIndex(name)
	return ok
}

func (t *Table) columnIndex(name string) (int, bool) {
	for i, c := range t.cols {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// AppendRow adds a row. The row length must match the column count.
func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.cols))
	}
	t.rows = append(t.rows, append([]any(nil), row...))
	return nil
}

// Row returns the cells of row i. The returned slice is owned by the table.
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Cell returns the value at row i under the given column label.
func (t *Table) Cell(i int, col string) (any, error) {
	idx, ok := t.columnIndex(col)
	if !ok {
		return nil, fmt.Errorf("no column %q", col)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	return t.rows[i][idx], nil
}

// SetCell replaces the value at row i under the given column label.
func (t *Table) SetCell(i int, col string, v any) error {
	idx, ok := t.columnIndex(col)
	if !ok {
		return fmt.Errorf("no column %q", col)
	}
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d out of range", i)
	}
	t.rows[i][idx] = v
	return nil
}

// AddColumn appends a new column filled with nulls.
func (t *Table) AddColumn(name string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.cols = append(t.cols, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
	return nil
}

// RenameColumn changes a column label in place. Data is untouched.
func (t *Table) RenameColumn(old, new string) error {
	idx, ok := t.columnIndex(old)
	if !ok {
		return fmt.Errorf("no column %q", old)
	}
	if old != new && t.HasColumn(new) {
		return fmt.Errorf("column %q already exists", new)
	}
	t.cols[idx] = new
	return nil
}

// SwapColumnLabels exchanges the labels of columns a and b without moving any
// data: values previously reachable under a become reachable under b and vice
// versa. The exchange goes through a temporary label built by appending a
// sentinel suffix until it collides with no existing column, so the swap is
// safe whatever other labels the table carries.
func (t *Table) SwapColumnLabels(a, b string) error {
	if !t.HasColumn(a) {
		return fmt.Errorf("no column %q", a)
	}
	if !t.HasColumn(b) {
		return fmt.Errorf("no column %q", b)
	}
	if a == b {
		return nil
	}
	tmp := a + "__swap"
	for t.HasColumn(tmp) {
		tmp += "_"
	}
	if err := t.RenameColumn(a, tmp); err != nil {
		return err
	}
	if err := t.RenameColumn(b, a); err != nil {
		return err
	}
	return t.RenameColumn(tmp, b)
}

// ApplyValueMapping replaces each value in the given column found in the
// mapping with its canonical form. Values absent from the mapping and null
// cells pass through unchanged.
func (t *Table) ApplyValueMapping(col string, mapping map[string]string) error {
	idx, ok := t.columnIndex(col)
	if !ok {
		return fmt.Errorf("no column %q", col)
	}
	for _, row := range t.rows {
		s, ok := row[idx].(string)
		if !ok {
			continue
		}
		if canonical, found := mapping[s]; found {
			row[idx] = canonical
		}
	}
	return nil
}

// AbsColumn replaces each numeric value in the given column with its absolute
// value. Null and non-numeric cells pass through unchanged.
func (t *Table) AbsColumn(col string) error {
	idx, ok := t.columnIndex(col)
	if !ok {
		return fmt.Errorf("no column %q", col)
	}
	for _, row := range t.rows {
		if f, ok := Float(row[idx]); ok && f < 0 {
			row[idx] = -f
		}
	}
	return nil
}

// OuterJoin joins t with other on the given key column, keeping unmatched rows
// from both sides with nulls filling the missing side. Result columns are t's
// columns followed by other's columns minus the duplicated key. Matching rows
// on the right pair with every matching row on the left.
func (t *Table) OuterJoin(other *Table, key string) (*Table, error) {
	leftKey, ok := t.columnIndex(key)
	if !ok {
		return nil, fmt.Errorf("left table has no column %q", key)
	}
	rightKey, ok := other.columnIndex(key)
	if !ok {
		return nil, fmt.Errorf("right table has no column %q", key)
	}

	cols := append([]string(nil), t.cols...)
	var rightCols []int // indexes of non-key columns on the right
	for i, c := range other.cols {
		if i == rightKey {
			continue
		}
		cols = append(cols, c)
		rightCols = append(rightCols, i)
	}

	joined := New(cols...)
	matched := make([]bool, len(other.rows))
	for _, lrow := range t.rows {
		found := false
		for j, rrow := range other.rows {
			if !cellsEqual(lrow[leftKey], rrow[rightKey]) {
				continue
			}
			found = true
			matched[j] = true
			row := append(append([]any(nil), lrow...), pick(rrow, rightCols)...)
			joined.rows = append(joined.rows, row)
		}
		if !found {
			row := append([]any(nil), lrow...)
			for range rightCols {
				row = append(row, nil)
			}
			joined.rows = append(joined.rows, row)
		}
	}
	for j, rrow := range other.rows {
		if matched[j] {
			continue
		}
		row := make([]any, len(t.cols))
		row[leftKey] = rrow[rightKey]
		row = append(row, pick(rrow, rightCols)...)
		joined.rows = append(joined.rows, row)
	}
	return joined, nil
}

func pick(row []any, idx []int) []any {
	out := make([]any, 0, len(idx))
	for _, i := range idx {
		out = append(out, row[i])
	}
	return out
}

// GroupMean groups rows by (keyCol, kindCol), computes the arithmetic mean of
// valCol per group, and pivots the kinds into columns. Rows whose kind or
// value is null contribute to no group. Groups with no contributing rows do
// not appear: their pivoted cell stays null. Key rows and kind columns are
// sorted for deterministic output.
func (t *Table) GroupMean(keyCol, kindCol, valCol string) (*Table, error) {
	keyIdx, ok := t.columnIndex(keyCol)
	if !ok {
		return nil, fmt.Errorf("no column %q", keyCol)
	}
	kindIdx, ok := t.columnIndex(kindCol)
	if !ok {
		return nil, fmt.Errorf("no column %q", kindCol)
	}
	valIdx, ok := t.columnIndex(valCol)
	if !ok {
		return nil, fmt.Errorf("no column %q", valCol)
	}

	type group struct{ key, kind string }
	samples := make(map[group][]float64)
	keyVals := make(map[string]any)
	kinds := make(map[string]bool)
	for _, row := range t.rows {
		kind, ok := row[kindIdx].(string)
		if !ok {
			continue
		}
		v, ok := Float(row[valIdx])
		if !ok {
			continue
		}
		k := keyOf(row[keyIdx])
		samples[group{k, kind}] = append(samples[group{k, kind}], v)
		keyVals[k] = row[keyIdx]
		kinds[kind] = true
	}

	kindCols := make([]string, 0, len(kinds))
	for k := range kinds {
		kindCols = append(kindCols, k)
	}
	sort.Strings(kindCols)
	keys := make([]string, 0, len(keyVals))
	for k := range keyVals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := New(append([]string{keyCol}, kindCols...)...)
	for _, k := range keys {
		row := make([]any, 0, len(kindCols)+1)
		row = append(row, keyVals[k])
		for _, kind := range kindCols {
			if vals, ok := samples[group{k, kind}]; ok {
				row = append(row, stat.Mean(vals, nil))
			} else {
				row = append(row, nil)
			}
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Float coerces a cell to float64. Strings are parsed; nulls and
// unparseable values report false.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// cellsEqual compares two cells for join purposes. Numeric cells compare by
// value so an int64 key from SQL matches a float64 key parsed from CSV.
func cellsEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	fa, aok := Float(a)
	fb, bok := Float(b)
	if aok && bok {
		return fa == fb
	}
	return keyOf(a) == keyOf(b)
}

func keyOf(v any) string {
	if f, ok := Float(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
