package views

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gmv-dashboard/backend/internal/table"
)

// Matrix is a square, symmetric matrix labelled by column on both axes.
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// At returns the cell for a pair of labels, NaN when either is unknown.
func (m *Matrix) At(row, col string) float64 {
	i, j := m.index(row), m.index(col)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

func (m *Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// MarshalJSON writes undefined coefficients as null.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				values[i][j] = &v
			}
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, values})
}

// constant reports whether x has no usable variance: fewer than two
// observations or every observation equal.
func constant(x []float64) bool {
	if len(x) < 2 {
		return true
	}
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// sample is one numeric column with its presence mask.
type sample struct {
	values []float64
	ok     []bool
}

func readSample(t *table.Table, col string) (sample, error) {
	values, ok, err := observed(t, col)
	return sample{values: values, ok: ok}, err
}

// pairwise keeps the rows where both samples hold a value.
func pairwise(a, b sample) (x, y []float64) {
	for i := range a.values {
		if a.ok[i] && b.ok[i] {
			x = append(x, a.values[i])
			y = append(y, b.values[i])
		}
	}
	return x, y
}

// pearson correlates two samples over their complete rows. Fewer than two
// complete rows or zero variance on either side is NaN.
func pearson(a, b sample) float64 {
	x, y := pairwise(a, b)
	if constant(x) || constant(y) {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// CorrelationMatrix computes pairwise Pearson coefficients over columns,
// each pair over the rows where both columns hold a value. The diagonal is
// 1; any pair without variance is NaN, including the diagonal cell of a
// column without variance.
func CorrelationMatrix(t *table.Table, columns []string) (*Matrix, error) {
	data := make([]sample, len(columns))
	for i, c := range columns {
		s, err := readSample(t, c)
		if err != nil {
			return nil, err
		}
		data[i] = s
	}

	m := &Matrix{Columns: append([]string(nil), columns...), Values: make([][]float64, len(columns))}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			var r float64
			if i == j {
				r = 1
				if x, _ := pairwise(data[i], data[i]); constant(x) {
					r = math.NaN()
				}
			} else {
				r = pearson(data[i], data[j])
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

// CorrelationWith correlates each of columns with target, keyed by column
// name, over the rows where both hold a value. Inputs without variance give
// NaN points.
func CorrelationWith(t *table.Table, target string, columns []string) (Series, error) {
	y, err := readSample(t, target)
	if err != nil {
		return Series{}, err
	}

	values := make([]float64, len(columns))
	for i, c := range columns {
		x, err := readSample(t, c)
		if err != nil {
			return Series{}, err
		}
		values[i] = pearson(x, y)
	}
	return NewSeries(target, columns, values)
}
