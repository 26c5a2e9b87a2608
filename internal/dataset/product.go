package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/table"
)

const (
	BaselineSuffix  = "_baseline"
	OptimizedSuffix = "_optimized"

	CategoryColumn = "Category"
)

var ErrUnpairedColumn = errors.New("baseline column without optimized partner")

// LoadProductRevenue reads per-period baseline/optimized revenue pairs named
// <Category>_baseline and <Category>_optimized.
func (l *Loader) LoadProductRevenue(ctx context.Context, src source.Source) (*table.Table, error) {
	return l.load(ctx, ProductRevenue, src, func(t *table.Table) (*table.Table, error) {
		categories := ProductCategories(t)
		if len(categories) == 0 {
			return nil, fmt.Errorf("%w: no %s columns", table.ErrColumnNotFound, BaselineSuffix)
		}
		for _, c := range categories {
			if !t.HasColumn(c + OptimizedSuffix) {
				return nil, fmt.Errorf("%w: %q", ErrUnpairedColumn, c+BaselineSuffix)
			}
		}
		return t, nil
	})
}

// ProductCategories lists the categories of a product revenue table in
// column order.
func ProductCategories(t *table.Table) []string {
	out := make([]string, 0)
	for _, c := range t.Columns {
		if strings.HasSuffix(c, BaselineSuffix) {
			out = append(out, strings.TrimSuffix(c, BaselineSuffix))
		}
	}
	return out
}

// LoadFeatureImportance reads the category by channel importance matrix.
// The index column, written with a blank or "Unnamed: 0" header, is renamed
// to Category.
func (l *Loader) LoadFeatureImportance(ctx context.Context, src source.Source) (*table.Table, error) {
	return l.load(ctx, FeatureImportance, src, normalizeFeatureImportance)
}

func normalizeFeatureImportance(t *table.Table) (*table.Table, error) {
	if len(t.Columns) < 2 {
		return nil, fmt.Errorf("%w: need a category column and at least one channel", table.ErrColumnNotFound)
	}

	index := t.Columns[0]
	channels := t.Columns[1:]
	if index != CategoryColumn && t.HasColumn(CategoryColumn) {
		return nil, fmt.Errorf("duplicate column %q", CategoryColumn)
	}

	out := table.New(append([]string{CategoryColumn}, channels...)...)
	for i, r := range t.Rows {
		row := table.Row{CategoryColumn: table.StringValue(r.Get(index).String())}
		for _, ch := range channels {
			v := r.Get(ch)
			if _, ok := v.Float(); !ok && !v.IsNull() {
				return nil, fmt.Errorf("%w: %q row %d", table.ErrNotNumeric, ch, i)
			}
			row[ch] = v
		}
		out.Append(row)
	}
	return out, nil
}
