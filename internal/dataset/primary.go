package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/table"
)

const (
	YearColumn   = "Year"
	MonthColumn  = "Month"
	PeriodColumn = "YearMonth"
)

var (
	ErrNoMetricColumns = errors.New("no metric columns")
	ErrInvalidPeriod   = errors.New("invalid period")
)

// PeriodKey renders the zero-padded YYYY-MM key. Keys sort lexicographically
// in chronological order.
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

// LoadPrimaryDataset reads the merged monthly metrics table and appends the
// YearMonth period key. Row order follows the source.
func (l *Loader) LoadPrimaryDataset(ctx context.Context, src source.Source) (*table.Table, error) {
	return l.load(ctx, Primary, src, normalizePrimary)
}

func normalizePrimary(t *table.Table) (*table.Table, error) {
	if err := t.Require(YearColumn, MonthColumn); err != nil {
		return nil, err
	}

	metrics := 0
	for _, c := range t.Columns {
		if c != YearColumn && c != MonthColumn && c != PeriodColumn {
			metrics++
		}
	}
	if metrics == 0 {
		return nil, ErrNoMetricColumns
	}

	return t.WithColumn(PeriodColumn, func(r table.Row) (table.Value, error) {
		year, ok := r.Get(YearColumn).Int()
		if !ok {
			return table.Value{}, fmt.Errorf("%w: Year %q is not an integer", ErrInvalidPeriod, r.Get(YearColumn))
		}
		month, ok := r.Get(MonthColumn).Int()
		if !ok {
			return table.Value{}, fmt.Errorf("%w: Month %q is not an integer", ErrInvalidPeriod, r.Get(MonthColumn))
		}
		if month < 1 || month > 12 {
			return table.Value{}, fmt.Errorf("%w: Month %d out of range", ErrInvalidPeriod, month)
		}
		return table.StringValue(PeriodKey(year, month)), nil
	})
}
