// Package views builds display-ready derived tables and series from
// canonical tables. Every function is pure: no I/O, no mutation of its
// inputs.
package views

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDegenerateInput = errors.New("degenerate input")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrLengthMismatch  = errors.New("length mismatch")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMissingValue    = errors.New("missing value")
)

// MissingValueError marks one point of a series whose source cell was Null.
type MissingValueError struct {
	Index  int
	Key    string
	Column string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("point %d (%s): %q: %v", e.Index, e.Key, e.Column, ErrMissingValue)
}

func (e *MissingValueError) Unwrap() error { return ErrMissingValue }

// DomainError marks one point of a ratio-like series whose denominator was
// exactly zero.
type DomainError struct {
	Index       int
	Key         string
	Numerator   float64
	Denominator float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("point %d (%s): %g / %g: %v", e.Index, e.Key, e.Numerator, e.Denominator, ErrDivisionByZero)
}

func (e *DomainError) Unwrap() error { return ErrDivisionByZero }

// Point is one keyed value of a series. A point with Err set carries no
// value; Value is NaN so it can never be mistaken for data.
type Point struct {
	Key   string
	Value float64
	Err   error
}

func (p Point) Valid() bool { return p.Err == nil }

func (p Point) MarshalJSON() ([]byte, error) {
	out := struct {
		Key   string   `json:"key"`
		Value *float64 `json:"value"`
		Error string   `json:"error,omitempty"`
	}{Key: p.Key}

	if p.Err != nil {
		out.Error = p.Err.Error()
	} else if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
		v := p.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// Series is an ordered run of keyed points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// NewSeries pairs keys with values. Both must be the same length.
func NewSeries(name string, keys []string, values []float64) (Series, error) {
	if len(keys) != len(values) {
		return Series{}, fmt.Errorf("%w: %d keys, %d values", ErrLengthMismatch, len(keys), len(values))
	}
	s := Series{Name: name, Points: make([]Point, len(keys))}
	for i := range keys {
		s.Points[i] = Point{Key: keys[i], Value: values[i]}
	}
	return s, nil
}

func (s Series) Len() int { return len(s.Points) }

// ValidValues returns the values of the points without an error, in order.
func (s Series) ValidValues() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Err == nil {
			out = append(out, p.Value)
		}
	}
	return out
}

func (s Series) Keys() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Key
	}
	return out
}

// Values returns every point's value; errored points read as NaN.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		if p.Err != nil {
			out[i] = math.NaN()
		} else {
			out[i] = p.Value
		}
	}
	return out
}

// Err joins the errors of every errored point, nil when all are valid.
func (s Series) Err() error {
	var errs []error
	for _, p := range s.Points {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}

// divide builds num/den per point. A zero denominator yields a DomainError
// point; errors already present on either input carry through.
func divide(name string, keys []string, num, den []Point, scale float64, offset bool) Series {
	out := Series{Name: name, Points: make([]Point, len(keys))}
	for i, key := range keys {
		switch {
		case num[i].Err != nil:
			out.Points[i] = Point{Key: key, Value: math.NaN(), Err: num[i].Err}
		case den[i].Err != nil:
			out.Points[i] = Point{Key: key, Value: math.NaN(), Err: den[i].Err}
		case den[i].Value == 0:
			out.Points[i] = Point{Key: key, Value: math.NaN(), Err: &DomainError{
				Index:       i,
				Key:         key,
				Numerator:   num[i].Value,
				Denominator: den[i].Value,
			}}
		default:
			n := num[i].Value
			if offset {
				n -= den[i].Value
			}
			out.Points[i] = Point{Key: key, Value: n / den[i].Value * scale}
		}
	}
	return out
}

// Ratio divides two scalars under the same policy as RatioSeries: a zero
// denominator yields a DomainError point.
func Ratio(key string, numerator, denominator float64) Point {
	num := []Point{{Key: key, Value: numerator}}
	den := []Point{{Key: key, Value: denominator}}
	return divide(key, []string{key}, num, den, 1, false).Points[0]
}
