package views

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gmv-dashboard/backend/internal/table"
)

// PeriodColumn is the YYYY-MM key column of the primary dataset.
const PeriodColumn = "YearMonth"

// observed reads a numeric column with its presence mask. Null cells are
// gaps, not errors.
func observed(t *table.Table, col string) ([]float64, []bool, error) {
	if !t.HasColumn(col) {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	return t.Observed(col)
}

// present reads a numeric column keeping only its non-Null cells.
func present(t *table.Table, col string) ([]float64, error) {
	values, ok, err := observed(t, col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out, nil
}

// columnPoints reads a numeric column as points; a Null cell becomes a
// MissingValueError point.
func columnPoints(t *table.Table, col string, keys []string) ([]Point, error) {
	values, ok, err := observed(t, col)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(values))
	for i, v := range values {
		if ok[i] {
			out[i] = Point{Key: keys[i], Value: v}
			continue
		}
		out[i] = Point{Key: keys[i], Value: math.NaN(), Err: &MissingValueError{Index: i, Key: keys[i], Column: col}}
	}
	return out, nil
}

// rowKeys keys rows by period when the table has one, by row index
// otherwise.
func rowKeys(t *table.Table) []string {
	if t.HasColumn(PeriodColumn) {
		keys, _ := t.Strings(PeriodColumn)
		return keys
	}
	keys := make([]string, t.Len())
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// ColumnSeries returns a numeric column keyed by period, or by row index
// when the table has no period column. Null cells become errored points.
func ColumnSeries(t *table.Table, col string) (Series, error) {
	pts, err := columnPoints(t, col, rowKeys(t))
	if err != nil {
		return Series{}, err
	}
	return Series{Name: col, Points: pts}, nil
}

// MonthlyMetricSeries returns metricCol keyed by period. With categories,
// each point is instead the row sum of those category columns, skipping
// Null cells. A row with no value to report becomes an errored point.
func MonthlyMetricSeries(t *table.Table, metricCol string, categories []string) (Series, error) {
	if !t.HasColumn(PeriodColumn) {
		return Series{}, fmt.Errorf("%w: %q", ErrUnknownColumn, PeriodColumn)
	}
	keys := rowKeys(t)

	if len(categories) == 0 {
		pts, err := columnPoints(t, metricCol, keys)
		if err != nil {
			return Series{}, err
		}
		return Series{Name: metricCol, Points: pts}, nil
	}

	sums := make([]float64, t.Len())
	seen := make([]bool, t.Len())
	for _, c := range categories {
		values, ok, err := observed(t, c)
		if err != nil {
			return Series{}, err
		}
		for i := range values {
			if ok[i] {
				sums[i] += values[i]
				seen[i] = true
			}
		}
	}

	out := Series{Name: metricCol, Points: make([]Point, len(keys))}
	for i, key := range keys {
		if seen[i] {
			out.Points[i] = Point{Key: key, Value: sums[i]}
			continue
		}
		out.Points[i] = Point{Key: key, Value: math.NaN(), Err: &MissingValueError{Index: i, Key: key, Column: metricCol}}
	}
	return out, nil
}

// CategoryTotal is one bar of a category breakdown.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// CategoryBreakdown totals each category column, over the rows of period
// when it is non-empty, otherwise over every row. Results are ordered by
// total, largest first; equal totals keep input order.
func CategoryBreakdown(t *table.Table, categories []string, period string) ([]CategoryTotal, error) {
	rows := t
	if period != "" {
		if !t.HasColumn(PeriodColumn) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, PeriodColumn)
		}
		rows = t.Filter(func(r table.Row) bool {
			return r.Get(PeriodColumn).String() == period
		})
	}

	out := make([]CategoryTotal, 0, len(categories))
	for _, c := range categories {
		values, err := present(rows, c)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryTotal{Category: c, Total: floats.Sum(values)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out, nil
}

// RatioSeries divides numeratorCol by denominatorCol row by row. A zero
// denominator yields a DomainError point, never 0 or an infinity; a Null
// operand yields a MissingValueError point.
func RatioSeries(t *table.Table, numeratorCol, denominatorCol string) (Series, error) {
	keys := rowKeys(t)
	num, err := columnPoints(t, numeratorCol, keys)
	if err != nil {
		return Series{}, err
	}
	den, err := columnPoints(t, denominatorCol, keys)
	if err != nil {
		return Series{}, err
	}

	name := numeratorCol + "/" + denominatorCol
	return divide(name, keys, num, den, 1, false), nil
}

// NormalizeToUnitRange divides every value by the series maximum. Errored
// points are carried through and ignored when finding the maximum.
func NormalizeToUnitRange(s Series) (Series, error) {
	peak := math.Inf(-1)
	for _, p := range s.Points {
		if p.Err == nil && p.Value > peak {
			peak = p.Value
		}
	}
	if math.IsInf(peak, -1) {
		return Series{}, fmt.Errorf("%w: %q has no values", ErrDegenerateInput, s.Name)
	}
	if peak == 0 {
		return Series{}, fmt.Errorf("%w: %q has maximum 0", ErrDegenerateInput, s.Name)
	}

	out := Series{Name: s.Name, Points: make([]Point, len(s.Points))}
	for i, p := range s.Points {
		if p.Err != nil {
			out.Points[i] = p
			continue
		}
		out.Points[i] = Point{Key: p.Key, Value: p.Value / peak}
	}
	return out, nil
}

// PercentChange computes (comparison - baseline) / baseline * 100 per
// position. Keys come from baseline. A zero baseline yields a DomainError
// point.
func PercentChange(baseline, comparison Series) (Series, error) {
	if baseline.Len() != comparison.Len() {
		return Series{}, fmt.Errorf("%w: baseline %d, comparison %d", ErrLengthMismatch, baseline.Len(), comparison.Len())
	}
	name := comparison.Name + " vs " + baseline.Name
	return divide(name, baseline.Keys(), comparison.Points, baseline.Points, 100, true), nil
}

// ColumnSum totals the non-Null cells of a numeric column.
func ColumnSum(t *table.Table, col string) (float64, error) {
	values, err := present(t, col)
	if err != nil {
		return 0, err
	}
	return floats.Sum(values), nil
}

// ColumnMean averages the non-Null cells of a numeric column. A column
// without values is degenerate.
func ColumnMean(t *table.Table, col string) (float64, error) {
	values, err := present(t, col)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %q has no values", ErrDegenerateInput, col)
	}
	return stat.Mean(values, nil), nil
}

// GroupValue is one group of a grouped aggregate.
type GroupValue struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// GroupMean averages valueCol per distinct groupCol value, groups in
// first-seen order. Null values are skipped; a group left without values is
// omitted.
func GroupMean(t *table.Table, groupCol, valueCol string) ([]GroupValue, error) {
	if !t.HasColumn(groupCol) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, groupCol)
	}
	values, ok, err := observed(t, valueCol)
	if err != nil {
		return nil, err
	}

	groups, _ := t.Strings(groupCol)
	order := make([]string, 0)
	members := make(map[string][]float64)
	for i, g := range groups {
		if !ok[i] {
			continue
		}
		if _, seen := members[g]; !seen {
			order = append(order, g)
		}
		members[g] = append(members[g], values[i])
	}

	out := make([]GroupValue, len(order))
	for i, g := range order {
		out[i] = GroupValue{Group: g, Value: stat.Mean(members[g], nil)}
	}
	return out, nil
}
