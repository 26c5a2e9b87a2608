package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the only date format recognised in source cells.
const DateLayout = "2006-01-02"

type Kind uint8

const (
	Null Kind = iota
	Number
	String
	Date
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Number:
		return "number"
	case String:
		return "string"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// Value is a single table cell.
type Value struct {
	kind Kind
	num  float64
	str  string
	date time.Time
}

func NumberValue(f float64) Value { return Value{kind: Number, num: f} }
func StringValue(s string) Value  { return Value{kind: String, str: s} }
func DateValue(t time.Time) Value { return Value{kind: Date, date: t} }
func NullValue() Value            { return Value{} }

// Parse types a raw source cell: blank or a NaN spelling is Null, then
// number, then date, otherwise string.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NullValue()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) {
			return NullValue()
		}
		return NumberValue(f)
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateValue(t)
	}
	return StringValue(s)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// Float returns the numeric content and whether the value is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.num, true
}

// Int returns the value as an integer when it is a whole number.
func (v Value) Int() (int, bool) {
	if v.kind != Number || v.num != math.Trunc(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return int(v.num), true
}

func (v Value) Time() (time.Time, bool) {
	if v.kind != Date {
		return time.Time{}, false
	}
	return v.date, true
}

// String renders the value the way it would appear in a source cell.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case String:
		return v.str
	case Date:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Number:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case String:
		return v.str == o.str
	case Date:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

// MarshalJSON encodes cells as plain JSON scalars for API responses:
// numbers (null when not finite), strings, dates as YYYY-MM-DD, null for
// Null. The encoding is lossy; the remote cache uses MarshalBinary.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case String:
		return json.Marshal(v.str)
	case Date:
		return json.Marshal(v.date.Format(DateLayout))
	default:
		return []byte("null"), nil
	}
}
