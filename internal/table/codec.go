package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// wireCell keeps the kind of every cell so a decoded table equals the
// encoded one, non-finite numbers included.
type wireCell struct {
	Kind  Kind   `json:"k"`
	Value string `json:"v,omitempty"`
}

type wireTable struct {
	Columns []string     `json:"columns"`
	Rows    [][]wireCell `json:"rows"`
}

func (v Value) wire() wireCell {
	switch v.kind {
	case Number:
		return wireCell{Kind: Number, Value: strconv.FormatFloat(v.num, 'g', -1, 64)}
	case String:
		return wireCell{Kind: String, Value: v.str}
	case Date:
		return wireCell{Kind: Date, Value: v.date.Format(DateLayout)}
	default:
		return wireCell{Kind: Null}
	}
}

func (c wireCell) value() (Value, error) {
	switch c.Kind {
	case Null:
		return NullValue(), nil
	case Number:
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", c.Value, err)
		}
		return NumberValue(f), nil
	case String:
		return StringValue(c.Value), nil
	case Date:
		t, err := time.Parse(DateLayout, c.Value)
		if err != nil {
			return Value{}, fmt.Errorf("invalid date %q: %w", c.Value, err)
		}
		return DateValue(t), nil
	default:
		return Value{}, fmt.Errorf("unknown cell kind %d", c.Kind)
	}
}

// MarshalBinary encodes the table losslessly for the remote cache.
func (t *Table) MarshalBinary() ([]byte, error) {
	w := wireTable{Columns: t.Columns, Rows: make([][]wireCell, len(t.Rows))}
	for i, r := range t.Rows {
		cells := make([]wireCell, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = r[c].wire()
		}
		w.Rows[i] = cells
	}
	return json.Marshal(w)
}

func (t *Table) UnmarshalBinary(data []byte) error {
	var w wireTable
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := New(w.Columns...)
	for i, cells := range w.Rows {
		if len(cells) != len(w.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(cells), len(w.Columns))
		}
		row := make(Row, len(cells))
		for j, c := range cells {
			v, err := c.value()
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, w.Columns[j], err)
			}
			row[w.Columns[j]] = v
		}
		out.Rows = append(out.Rows, row)
	}
	*t = *out
	return nil
}
