package views

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmv-dashboard/backend/internal/table"
)

func num(f float64) table.Value { return table.NumberValue(f) }
func str(s string) table.Value  { return table.StringValue(s) }

func monthly() *table.Table {
	t := table.New("YearMonth", "Total_GMV", "A", "B", "Has Holiday")
	t.Append(table.Row{"YearMonth": str("2023-12"), "Total_GMV": num(40), "A": num(1), "B": num(1), "Has Holiday": num(1)})
	t.Append(table.Row{"YearMonth": str("2024-01"), "Total_GMV": num(20), "A": num(10), "B": num(5), "Has Holiday": num(0)})
	t.Append(table.Row{"YearMonth": str("2024-01"), "Total_GMV": num(10), "A": num(3), "B": num(2), "Has Holiday": num(0)})
	return t
}

func TestMonthlyMetricSeries(t *testing.T) {
	s, err := MonthlyMetricSeries(monthly(), "Total_GMV", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-01"}, s.Keys())
	assert.Equal(t, []float64{40, 20, 10}, s.Values())

	s, err = MonthlyMetricSeries(monthly(), "Total_GMV", []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 15, 5}, s.Values())
	assert.NoError(t, s.Err())
}

func TestMonthlyMetricSeriesUnknownColumn(t *testing.T) {
	_, err := MonthlyMetricSeries(monthly(), "Total_GMV", []string{"A", "Z"})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = MonthlyMetricSeries(table.New("Total_GMV"), "Total_GMV", nil)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestCategoryBreakdownByPeriod(t *testing.T) {
	got, err := CategoryBreakdown(monthly(), []string{"A", "B"}, "2024-01")
	require.NoError(t, err)

	totals := make(map[string]float64)
	for _, c := range got {
		totals[c.Category] = c.Total
	}
	assert.Equal(t, map[string]float64{"A": 13, "B": 7}, totals)
	assert.Equal(t, "A", got[0].Category)
}

func TestCategoryBreakdownAllPeriodsAndTies(t *testing.T) {
	tbl := table.New("YearMonth", "X", "Y", "Z")
	tbl.Append(table.Row{"YearMonth": str("2024-01"), "X": num(1), "Y": num(5), "Z": num(5)})
	tbl.Append(table.Row{"YearMonth": str("2024-02"), "X": num(1), "Y": num(0), "Z": num(0)})

	got, err := CategoryBreakdown(tbl, []string{"X", "Z", "Y"}, "")
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{{"Z", 5}, {"Y", 5}, {"X", 2}}, got)
}

func TestCategoryBreakdownUnknownPeriodIsZero(t *testing.T) {
	got, err := CategoryBreakdown(monthly(), []string{"A"}, "1999-01")
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{{"A", 0}}, got)
}

func TestReshapeWideToLong(t *testing.T) {
	tbl := table.New("Month", "X", "Y")
	tbl.Append(table.Row{"Month": str("Jan"), "X": num(1), "Y": num(2)})

	long, err := ReshapeWideToLong(tbl, "Month", []string{"X", "Y"}, "Category", "Value")
	require.NoError(t, err)

	want := table.New("Month", "Category", "Value")
	want.Append(table.Row{"Month": str("Jan"), "Category": str("X"), "Value": num(1)})
	want.Append(table.Row{"Month": str("Jan"), "Category": str("Y"), "Value": num(2)})
	assert.True(t, want.Equal(long))
}

func TestReshapeWideToLongIsRowMajor(t *testing.T) {
	tbl := table.New("Month", "X", "Y")
	tbl.Append(table.Row{"Month": str("Jan"), "X": num(1), "Y": num(2)})
	tbl.Append(table.Row{"Month": str("Feb"), "X": num(3), "Y": num(4)})

	long, err := ReshapeWideToLong(tbl, "Month", []string{"Y", "X"}, "Category", "Value")
	require.NoError(t, err)

	values, err := long.Numbers("Value")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 4, 3}, values)
}

func TestReshapeWideToLongErrors(t *testing.T) {
	tbl := table.New("Month", "X")

	_, err := ReshapeWideToLong(tbl, "Month", []string{"Q"}, "Category", "Value")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = ReshapeWideToLong(tbl, "Month", []string{"X"}, "Month", "Value")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := table.New("a", "b", "c", "flat")
	for _, row := range [][4]float64{{1, 2, 3, 7}, {2, 4, 2, 7}, {3, 6, 1, 7}} {
		tbl.Append(table.Row{"a": num(row[0]), "b": num(row[1]), "c": num(row[2]), "flat": num(row[3])})
	}

	m, err := CorrelationMatrix(tbl, []string{"a", "b", "c", "flat"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.At("a", "a"))
	assert.InDelta(t, 1.0, m.At("a", "b"), 1e-12)
	assert.InDelta(t, -1.0, m.At("a", "c"), 1e-12)
	assert.Equal(t, m.At("b", "c"), m.At("c", "b"))
	assert.True(t, math.IsNaN(m.At("flat", "flat")))
	assert.True(t, math.IsNaN(m.At("a", "flat")))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"columns":["a","b","c","flat"]`)
	assert.Contains(t, string(data), `null`)
}

func TestCorrelationMatrixUnknownColumn(t *testing.T) {
	_, err := CorrelationMatrix(monthly(), []string{"A", "nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestCorrelationWith(t *testing.T) {
	tbl := table.New("gmv", "tavg", "prcp")
	tbl.Append(table.Row{"gmv": num(1), "tavg": num(10), "prcp": num(3)})
	tbl.Append(table.Row{"gmv": num(2), "tavg": num(20), "prcp": num(3)})
	tbl.Append(table.Row{"gmv": num(3), "tavg": num(30), "prcp": num(3)})

	s, err := CorrelationWith(tbl, "gmv", []string{"tavg", "prcp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tavg", "prcp"}, s.Keys())
	assert.InDelta(t, 1.0, s.Values()[0], 1e-12)
	assert.True(t, math.IsNaN(s.Values()[1]))
}

func TestRatioSeries(t *testing.T) {
	tbl := table.New("n", "d")
	tbl.Append(table.Row{"n": num(10), "d": num(2)})
	tbl.Append(table.Row{"n": num(20), "d": num(0)})

	s, err := RatioSeries(tbl, "n", "d")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	assert.NoError(t, s.Points[0].Err)
	assert.Equal(t, 5.0, s.Points[0].Value)

	assert.ErrorIs(t, s.Points[1].Err, ErrDivisionByZero)
	var domainErr *DomainError
	require.ErrorAs(t, s.Points[1].Err, &domainErr)
	assert.Equal(t, 1, domainErr.Index)
	assert.Equal(t, 20.0, domainErr.Numerator)
	assert.False(t, s.Points[1].Valid())
	assert.False(t, math.IsInf(s.Points[1].Value, 0))
	assert.NotEqual(t, 0.0, s.Points[1].Value)

	assert.ErrorIs(t, s.Err(), ErrDivisionByZero)
}

func TestRatioSeriesKeysByPeriod(t *testing.T) {
	s, err := RatioSeries(monthly(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-01"}, s.Keys())
	assert.Equal(t, []float64{1, 2, 1.5}, s.Values())
}

func TestPointJSON(t *testing.T) {
	data, err := json.Marshal(Point{Key: "2024-01", Value: math.NaN(), Err: &DomainError{Index: 0, Key: "2024-01", Numerator: 1}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)
	assert.Contains(t, string(data), `"error":"point 0 (2024-01)`)

	data, err = json.Marshal(Point{Key: "x", Value: 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"x","value":2.5}`, string(data))
}

func TestNormalizeToUnitRange(t *testing.T) {
	s, err := NewSeries("gmv", []string{"a", "b", "c"}, []float64{10, 20, 40})
	require.NoError(t, err)

	got, err := NormalizeToUnitRange(s)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5, 1.0}, got.Values())
	assert.Equal(t, []float64{10, 20, 40}, s.Values())
}

func TestNormalizeToUnitRangeDegenerate(t *testing.T) {
	s, err := NewSeries("gmv", []string{"a", "b", "c"}, []float64{0, 0, 0})
	require.NoError(t, err)

	_, err = NormalizeToUnitRange(s)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = NormalizeToUnitRange(Series{Name: "empty"})
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestNormalizeCarriesDomainErrors(t *testing.T) {
	tbl := table.New("n", "d")
	tbl.Append(table.Row{"n": num(4), "d": num(2)})
	tbl.Append(table.Row{"n": num(4), "d": num(0)})
	tbl.Append(table.Row{"n": num(4), "d": num(1)})

	ratio, err := RatioSeries(tbl, "n", "d")
	require.NoError(t, err)

	got, err := NormalizeToUnitRange(ratio)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Points[0].Value)
	assert.ErrorIs(t, got.Points[1].Err, ErrDivisionByZero)
	assert.Equal(t, 1.0, got.Points[2].Value)
}

func TestPercentChange(t *testing.T) {
	base, _ := NewSeries("baseline", []string{"p1", "p2"}, []float64{100, 0})
	cmp, _ := NewSeries("optimized", []string{"p1", "p2"}, []float64{120, 5})

	got, err := PercentChange(base, cmp)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got.Points[0].Value, 1e-9)
	assert.ErrorIs(t, got.Points[1].Err, ErrDivisionByZero)

	short, _ := NewSeries("short", []string{"p1"}, []float64{1})
	_, err = PercentChange(base, short)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestNewSeriesLengthMismatch(t *testing.T) {
	_, err := NewSeries("x", []string{"a"}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestColumnAggregates(t *testing.T) {
	sum, err := ColumnSum(monthly(), "Total_GMV")
	require.NoError(t, err)
	assert.Equal(t, 70.0, sum)

	mean, err := ColumnMean(monthly(), "A")
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3, mean, 1e-12)

	_, err = ColumnMean(table.New("A"), "A")
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = ColumnSum(monthly(), "missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestGroupMean(t *testing.T) {
	got, err := GroupMean(monthly(), "Has Holiday", "Total_GMV")
	require.NoError(t, err)
	assert.Equal(t, []GroupValue{{"1", 40}, {"0", 15}}, got)
}

func allocation() *table.Table {
	t := table.New("Period", "Channel", "Baseline", "Optimized", "Share")
	t.Append(table.Row{"Period": str("1"), "Channel": str("TV"), "Baseline": num(10), "Optimized": num(12)})
	t.Append(table.Row{"Period": str("1"), "Channel": str("SEM"), "Baseline": num(30)})
	t.Append(table.Row{"Period": str("2"), "Channel": str("TV"), "Baseline": num(20), "Optimized": num(14)})
	t.Append(table.Row{"Period": str("2"), "Channel": str("SEM"), "Baseline": num(40)})
	return t
}

func TestChannelComparison(t *testing.T) {
	got, err := ChannelComparison(allocation())
	require.NoError(t, err)

	assert.Equal(t, []string{"Channel", "Baseline", "Optimized"}, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "TV", got.Rows[0].Get("Channel").String())
	assert.True(t, got.Rows[0].Get("Baseline").Equal(num(15)))
	assert.True(t, got.Rows[0].Get("Optimized").Equal(num(13)))
	assert.True(t, got.Rows[1].Get("Optimized").IsNull())
}

func TestAllocationShares(t *testing.T) {
	got, err := AllocationShares(allocation())
	require.NoError(t, err)
	assert.Equal(t, []ChannelValue{{"SEM", 35}, {"TV", 15}}, got)

	withShare := table.New("Channel", "Baseline", "Share")
	withShare.Append(table.Row{"Channel": str("A"), "Baseline": num(100), "Share": num(0.25)})
	withShare.Append(table.Row{"Channel": str("B"), "Baseline": num(50), "Share": num(0.75)})
	got, err = AllocationShares(withShare)
	require.NoError(t, err)
	assert.Equal(t, []ChannelValue{{"B", 0.75}, {"A", 0.25}}, got)
}

func TestChannelAllocation(t *testing.T) {
	spend := table.New("TV", "SEM")
	spend.Append(table.Row{"TV": num(1), "SEM": num(10)})
	spend.Append(table.Row{"TV": num(3), "SEM": num(20)})
	spend.Append(table.Row{"TV": num(100), "SEM": num(0)})

	got, err := ChannelAllocation(spend, []string{"TV", "SEM"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []ChannelValue{{"SEM", 15}, {"TV", 2}}, got)

	got, err = ChannelAllocation(spend, []string{"TV", "SEM"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "TV", got[0].Channel)

	_, err = ChannelAllocation(spend, []string{"Radio"}, 2)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestAverageImportance(t *testing.T) {
	fi := table.New("Category", "TV", "SEM")
	fi.Append(table.Row{"Category": str("Camera"), "TV": num(0.2), "SEM": num(0.5)})
	fi.Append(table.Row{"Category": str("GameCDDVD"), "TV": num(0.4), "SEM": table.NullValue()})

	got, err := AverageImportance(fi)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SEM", got[0].Channel)
	assert.InDelta(t, 0.5, got[0].Value, 1e-12)
	assert.InDelta(t, 0.3, got[1].Value, 1e-12)

	_, err = AverageImportance(table.New("TV"))
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestProductImprovements(t *testing.T) {
	pr := table.New("Camera_baseline", "Camera_optimized", "Toy_baseline", "Toy_optimized")
	pr.Append(table.Row{"Camera_baseline": num(100), "Camera_optimized": num(110), "Toy_baseline": num(0), "Toy_optimized": num(5)})
	pr.Append(table.Row{"Camera_baseline": num(100), "Camera_optimized": num(130), "Toy_baseline": num(0), "Toy_optimized": num(5)})

	got, err := ProductImprovements(pr, []string{"Camera", "Toy"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 100.0, got[0].Baseline)
	assert.Equal(t, 120.0, got[0].Optimized)
	assert.InDelta(t, 20.0, got[0].Percent.Value, 1e-9)
	assert.True(t, errors.Is(got[1].Percent.Err, ErrDivisionByZero))
}

func TestDistribution(t *testing.T) {
	bins, err := Distribution([]float64{0, 1, 2, 3, 4, 10}, 5)
	require.NoError(t, err)
	require.Len(t, bins, 5)

	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 10.0, bins[4].Upper)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 2, bins[1].Count)
	assert.Equal(t, 1, bins[4].Count)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 6, total)
}

func TestDistributionEdgeCases(t *testing.T) {
	bins, err := Distribution([]float64{3, 3, 3}, 10)
	require.NoError(t, err)
	assert.Equal(t, []Bin{{Lower: 3, Upper: 3, Count: 3}}, bins)

	_, err = Distribution(nil, 10)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = Distribution([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Distribution([]float64{1, math.NaN()}, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestColumnSeries(t *testing.T) {
	s, err := ColumnSeries(monthly(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-01"}, s.Keys())

	plain := table.New("x")
	plain.Append(table.Row{"x": num(4)})
	plain.Append(table.Row{"x": num(5)})
	s, err = ColumnSeries(plain, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, s.Keys())
	assert.Equal(t, []float64{4, 5}, s.Values())

	_, err = ColumnSeries(plain, "y")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestRatio(t *testing.T) {
	p := Ratio("clv_cac", 300, 100)
	require.True(t, p.Valid())
	assert.Equal(t, 3.0, p.Value)

	p = Ratio("clv_cac", 300, 0)
	assert.True(t, math.IsNaN(p.Value))
	var domain *DomainError
	require.True(t, errors.As(p.Err, &domain))
	assert.Equal(t, 300.0, domain.Numerator)
}

// gappy has blank cells in tavg, A and B, as a merged export with missing
// weather or category readings does.
func gappy() *table.Table {
	t := table.New("YearMonth", "Total_GMV", "tavg", "A", "B", "Has Holiday")
	null := table.NullValue()
	t.Append(table.Row{"YearMonth": str("2024-01"), "Total_GMV": num(10), "tavg": num(1), "A": num(1), "B": null, "Has Holiday": num(0)})
	t.Append(table.Row{"YearMonth": str("2024-02"), "Total_GMV": num(20), "tavg": null, "A": null, "B": null, "Has Holiday": num(1)})
	t.Append(table.Row{"YearMonth": str("2024-03"), "Total_GMV": num(30), "tavg": num(3), "A": num(2), "B": num(4), "Has Holiday": num(0)})
	t.Append(table.Row{"YearMonth": str("2024-04"), "Total_GMV": num(40), "tavg": num(4), "A": num(3), "B": num(1), "Has Holiday": num(0)})
	return t
}

func TestAggregatesSkipNull(t *testing.T) {
	sum, err := ColumnSum(gappy(), "tavg")
	require.NoError(t, err)
	assert.Equal(t, 8.0, sum)

	mean, err := ColumnMean(gappy(), "tavg")
	require.NoError(t, err)
	assert.InDelta(t, 8.0/3, mean, 1e-12)

	empty := table.New("x")
	empty.Append(table.Row{"x": table.NullValue()})
	_, err = ColumnMean(empty, "x")
	assert.ErrorIs(t, err, ErrDegenerateInput)

	got, err := GroupMean(gappy(), "Has Holiday", "tavg")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0", got[0].Group)
	assert.InDelta(t, 8.0/3, got[0].Value, 1e-12)

	totals, err := CategoryBreakdown(gappy(), []string{"A", "B"}, "")
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{{"A", 6}, {"B", 5}}, totals)
}

func TestTextCellIsStillNotNumeric(t *testing.T) {
	tbl := gappy()
	tbl.Rows[1]["tavg"] = str("n/a")

	_, err := ColumnMean(tbl, "tavg")
	assert.ErrorIs(t, err, table.ErrNotNumeric)
	_, err = CorrelationWith(tbl, "Total_GMV", []string{"tavg"})
	assert.ErrorIs(t, err, table.ErrNotNumeric)
}

func TestNullCellsBecomeErroredPoints(t *testing.T) {
	s, err := ColumnSeries(gappy(), "tavg")
	require.NoError(t, err)
	require.Len(t, s.Points, 4)
	assert.ErrorIs(t, s.Points[1].Err, ErrMissingValue)
	assert.True(t, math.IsNaN(s.Points[1].Value))
	assert.Equal(t, []float64{1, 3, 4}, s.ValidValues())

	var missing *MissingValueError
	require.True(t, errors.As(s.Err(), &missing))
	assert.Equal(t, "2024-02", missing.Key)
	assert.Equal(t, "tavg", missing.Column)

	sums, err := MonthlyMetricSeries(gappy(), "Total_GMV", []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, sums.Points[0].Value)
	assert.ErrorIs(t, sums.Points[1].Err, ErrMissingValue)
	assert.Equal(t, []float64{1, 6, 4}, sums.ValidValues())

	ratio, err := RatioSeries(gappy(), "Total_GMV", "tavg")
	require.NoError(t, err)
	assert.ErrorIs(t, ratio.Points[1].Err, ErrMissingValue)
	assert.Equal(t, 10.0, ratio.Points[0].Value)

	normalized, err := NormalizeToUnitRange(s)
	require.NoError(t, err)
	assert.Equal(t, 0.25, normalized.Points[0].Value)
	assert.Error(t, normalized.Points[1].Err)

	data, err := json.Marshal(s.Points[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":null`)
}

func TestCorrelationUsesCompleteRows(t *testing.T) {
	s, err := CorrelationWith(gappy(), "Total_GMV", []string{"tavg"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Values()[0], 1e-12)

	m, err := CorrelationMatrix(gappy(), []string{"Total_GMV", "tavg"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.At("tavg", "tavg"))
	assert.InDelta(t, 1.0, m.At("Total_GMV", "tavg"), 1e-12)

	// Only one complete row: no variance to correlate.
	sparse := table.New("x", "y")
	sparse.Append(table.Row{"x": num(1), "y": num(2)})
	sparse.Append(table.Row{"x": num(2), "y": table.NullValue()})
	sparse.Append(table.Row{"x": table.NullValue(), "y": num(5)})
	s, err = CorrelationWith(sparse, "y", []string{"x"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(s.Values()[0]))
}

func TestBudgetViewsSkipNull(t *testing.T) {
	pr := table.New("Camera_baseline", "Camera_optimized")
	pr.Append(table.Row{"Camera_baseline": num(100), "Camera_optimized": num(110)})
	pr.Append(table.Row{"Camera_baseline": table.NullValue(), "Camera_optimized": num(130)})

	got, err := ProductImprovements(pr, []string{"Camera"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got[0].Baseline)
	assert.Equal(t, 120.0, got[0].Optimized)
	assert.InDelta(t, 20.0, got[0].Percent.Value, 1e-9)

	spend := table.New("YearMonth", "TV", "Radio")
	spend.Append(table.Row{"YearMonth": str("2016-07"), "TV": num(4), "Radio": table.NullValue()})
	spend.Append(table.Row{"YearMonth": str("2016-08"), "TV": table.NullValue(), "Radio": num(1)})
	alloc, err := ChannelAllocation(spend, []string{"TV", "Radio"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []ChannelValue{{"TV", 4}, {"Radio", 1}}, alloc)

	blank := table.New("TV")
	blank.Append(table.Row{"TV": table.NullValue()})
	_, err = ChannelAllocation(blank, []string{"TV"}, 0)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}
