// Package table holds the canonical in-memory representation every loader
// produces and every view consumes.
//
// A Table handed out by a loader may be shared between concurrent renders
// through the cache. Nothing in this module mutates such a table; every
// transformation returns a new one.
package table

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNotNumeric     = errors.New("column is not numeric")
)

// Row maps column names to cells.
type Row map[string]Value

func (r Row) Get(col string) Value {
	return r[col]
}

// Table is an ordered list of rows over a fixed, ordered column set.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: make([]Row, 0)}
}

// Append adds a row. Cells for columns outside the table are dropped; missing
// cells read as Null. Only builders that own the table call this.
func (t *Table) Append(r Row) {
	row := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		if v, ok := r[c]; ok {
			row[c] = v
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Require reports the first of names that is not a column of t.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
	}
	return nil
}

// Numbers returns a column as floats. Null cells are an error as well as
// strings; callers that tolerate gaps filter first.
func (t *Table) Numbers(col string) ([]float64, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		f, ok := r[col].Float()
		if !ok {
			return nil, fmt.Errorf("%w: %q row %d holds %s", ErrNotNumeric, col, i, r[col].Kind())
		}
		out[i] = f
	}
	return out, nil
}

// Observed returns a column as floats with a mask of which rows hold a
// number. Null cells are gaps (value 0, mask false); strings and dates are
// still an error.
func (t *Table) Observed(col string) ([]float64, []bool, error) {
	if err := t.Require(col); err != nil {
		return nil, nil, err
	}
	values := make([]float64, len(t.Rows))
	ok := make([]bool, len(t.Rows))
	for i, r := range t.Rows {
		v := r[col]
		if v.IsNull() {
			continue
		}
		f, isNum := v.Float()
		if !isNum {
			return nil, nil, fmt.Errorf("%w: %q row %d holds %s", ErrNotNumeric, col, i, v.Kind())
		}
		values[i], ok[i] = f, true
	}
	return values, ok, nil
}

// Strings returns a column rendered as text.
func (t *Table) Strings(col string) ([]string, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col].String()
	}
	return out, nil
}

// Unique returns the distinct rendered values of a column in first-seen order.
func (t *Table) Unique(col string) ([]string, error) {
	vals, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0)
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		out.Rows[i] = row
	}
	return out
}

// WithColumn returns a copy of t with a column computed per row. An existing
// column of the same name is replaced in place of its position.
func (t *Table) WithColumn(name string, fn func(Row) (Value, error)) (*Table, error) {
	out := t.Clone()
	if !out.HasColumn(name) {
		out.Columns = append(out.Columns, name)
	}
	for i, r := range out.Rows {
		v, err := fn(t.Rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		r[name] = v
	}
	return out, nil
}

// Filter returns the rows for which keep is true, sharing no row maps with t.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}

// Select projects t onto cols in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	out := New(cols...)
	for _, r := range t.Rows {
		out.Append(r)
	}
	return out, nil
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) *Table {
	out := New(t.Columns...)
	for i, r := range t.Rows {
		if i >= n {
			break
		}
		out.Append(r)
	}
	return out
}

// Equal compares column order and every cell.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		for _, c := range t.Columns {
			if !t.Rows[i][c].Equal(o.Rows[i][c]) {
				return false
			}
		}
	}
	return true
}
