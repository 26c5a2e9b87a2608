package views

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/gmv-dashboard/backend/internal/table"
)

// Canonical allocation columns, as produced by the allocation loader.
const (
	allocChannel   = "Channel"
	allocBaseline  = "Baseline"
	allocOptimized = "Optimized"
	allocShare     = "Share"
	categoryColumn = "Category"
)

// ChannelValue is one channel's aggregate.
type ChannelValue struct {
	Channel string  `json:"channel"`
	Value   float64 `json:"value"`
}

func sortDescending(out []ChannelValue) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
}

// ChannelAllocation averages each channel column of a wide spend table over
// its first firstN rows (every row when firstN is not positive), largest
// allocation first. Null cells are skipped.
func ChannelAllocation(t *table.Table, channels []string, firstN int) ([]ChannelValue, error) {
	rows := t
	if firstN > 0 {
		rows = t.Head(firstN)
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to average", ErrDegenerateInput)
	}

	out := make([]ChannelValue, 0, len(channels))
	for _, ch := range channels {
		values, err := present(rows, ch)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %q has no values", ErrDegenerateInput, ch)
		}
		out = append(out, ChannelValue{Channel: ch, Value: stat.Mean(values, nil)})
	}
	sortDescending(out)
	return out, nil
}

// meanByChannel averages a canonical allocation column per channel, skipping
// Null cells. Channels keep first-seen order; a channel with no values maps
// to NaN.
func meanByChannel(t *table.Table, col string) ([]string, map[string]float64, error) {
	if err := requireColumns(t, allocChannel, col); err != nil {
		return nil, nil, err
	}

	order := make([]string, 0)
	members := make(map[string][]float64)
	for i, r := range t.Rows {
		ch := r.Get(allocChannel).String()
		if _, ok := members[ch]; !ok {
			order = append(order, ch)
			members[ch] = nil
		}
		v := r.Get(col)
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q row %d", table.ErrNotNumeric, col, i)
		}
		members[ch] = append(members[ch], f)
	}

	means := make(map[string]float64, len(order))
	for _, ch := range order {
		if len(members[ch]) == 0 {
			means[ch] = math.NaN()
			continue
		}
		means[ch] = stat.Mean(members[ch], nil)
	}
	return order, means, nil
}

// AllocationShares reports each channel's allocation from a canonical
// allocation table: the spend share when the model exports one, the baseline
// spend otherwise. Largest first.
func AllocationShares(t *table.Table) ([]ChannelValue, error) {
	col := allocBaseline
	if t.HasColumn(allocShare) && hasValues(t, allocShare) {
		col = allocShare
	}

	order, means, err := meanByChannel(t, col)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelValue, len(order))
	for i, ch := range order {
		out[i] = ChannelValue{Channel: ch, Value: means[ch]}
	}
	sortDescending(out)
	return out, nil
}

func hasValues(t *table.Table, col string) bool {
	for _, r := range t.Rows {
		if !r.Get(col).IsNull() {
			return true
		}
	}
	return false
}

// ChannelComparison averages baseline and optimized allocation per channel
// into a Channel, Baseline, Optimized table in first-seen channel order. A
// channel without optimized values gets a Null cell.
func ChannelComparison(t *table.Table) (*table.Table, error) {
	order, baseline, err := meanByChannel(t, allocBaseline)
	if err != nil {
		return nil, err
	}
	_, optimized, err := meanByChannel(t, allocOptimized)
	if err != nil {
		return nil, err
	}

	out := table.New(allocChannel, allocBaseline, allocOptimized)
	for _, ch := range order {
		out.Append(table.Row{
			allocChannel:   table.StringValue(ch),
			allocBaseline:  numberOrNull(baseline[ch]),
			allocOptimized: numberOrNull(optimized[ch]),
		})
	}
	return out, nil
}

func numberOrNull(f float64) table.Value {
	if math.IsNaN(f) {
		return table.NullValue()
	}
	return table.NumberValue(f)
}

// AverageImportance averages each channel column of a feature importance
// matrix across categories, largest first. Null cells are skipped.
func AverageImportance(t *table.Table) ([]ChannelValue, error) {
	if !t.HasColumn(categoryColumn) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, categoryColumn)
	}

	out := make([]ChannelValue, 0, len(t.Columns)-1)
	for _, ch := range t.Columns {
		if ch == categoryColumn {
			continue
		}
		var values []float64
		for _, r := range t.Rows {
			if f, ok := r.Get(ch).Float(); ok {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %q has no values", ErrDegenerateInput, ch)
		}
		out = append(out, ChannelValue{Channel: ch, Value: stat.Mean(values, nil)})
	}
	sortDescending(out)
	return out, nil
}

// Improvement is one product category's mean baseline and optimized revenue
// and the percent change between them.
type Improvement struct {
	Category  string  `json:"category"`
	Baseline  float64 `json:"baseline"`
	Optimized float64 `json:"optimized"`
	Percent   Point   `json:"percent"`
}

// ProductImprovements averages <Category>_baseline and <Category>_optimized
// for each category, skipping Null cells. A zero mean baseline yields a
// DomainError percent.
func ProductImprovements(t *table.Table, categories []string) ([]Improvement, error) {
	out := make([]Improvement, 0, len(categories))
	for _, c := range categories {
		base, err := present(t, c+"_baseline")
		if err != nil {
			return nil, err
		}
		opt, err := present(t, c+"_optimized")
		if err != nil {
			return nil, err
		}
		if len(base) == 0 || len(opt) == 0 {
			return nil, fmt.Errorf("%w: %q has no values", ErrDegenerateInput, c)
		}

		b, o := stat.Mean(base, nil), stat.Mean(opt, nil)
		pct := divide(c, []string{c}, []Point{{Key: c, Value: o}}, []Point{{Key: c, Value: b}}, 100, true)
		out = append(out, Improvement{Category: c, Baseline: b, Optimized: o, Percent: pct.Points[0]})
	}
	return out, nil
}
