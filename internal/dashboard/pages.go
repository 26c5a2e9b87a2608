package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/table"
	"github.com/gmv-dashboard/backend/internal/views"
)

// Primary dataset columns the pages read.
const (
	totalGMV        = "Total_GMV"
	hasHoliday      = "Has Holiday"
	npsColumn       = "NPS"
	roiColumn       = "ROI"
	clvColumn       = "CLV"
	cacColumn       = "CAC"
	digitalColumn   = "Digital"
	deliveryColumn  = "Delivery_Performance"
	procurementCol  = "Procurement_Performance"
	roiDistribution = 10
)

// OverviewFilter selects the categories summed into the GMV trend and the
// period of the category breakdown. Empty values mean all categories and
// the latest period.
type OverviewFilter struct {
	Categories []string
	Period     string
}

type OverviewPage struct {
	Meta
	Categories        []string              `json:"categories"`
	Period            string                `json:"period"`
	Periods           []string              `json:"periods"`
	TotalGMV          float64               `json:"total_gmv"`
	MonthlyGMV        views.Series          `json:"monthly_gmv"`
	CategoryBreakdown []views.CategoryTotal `json:"category_breakdown"`
	CategoryTrend     *table.Table          `json:"category_trend"`
	HolidayImpact     HolidayImpact         `json:"holiday_impact"`
}

// HolidayImpact compares mean GMV of holiday and non-holiday periods.
type HolidayImpact struct {
	Holiday    float64     `json:"holiday"`
	NonHoliday float64     `json:"non_holiday"`
	Impact     views.Point `json:"impact_pct"`
}

func (s *Service) Overview(ctx context.Context, filter OverviewFilter) (*OverviewPage, error) {
	return render(ctx, s, "overview", func(ctx context.Context, meta Meta) (*OverviewPage, error) {
		categories, err := s.selectCategories(filter.Categories)
		if err != nil {
			return nil, err
		}

		src, err := sourceOf(dataset.Primary, s.sources.Primary)
		if err != nil {
			return nil, err
		}
		t, err := s.loader.LoadPrimaryDataset(ctx, src)
		if err != nil {
			return nil, err
		}

		periods, err := t.Unique(dataset.PeriodColumn)
		if err != nil {
			return nil, err
		}
		period, err := selectPeriod(periods, filter.Period)
		if err != nil {
			return nil, err
		}

		page := &OverviewPage{Meta: meta, Categories: categories, Period: period, Periods: periods}

		if page.TotalGMV, err = views.ColumnSum(t, totalGMV); err != nil {
			return nil, view("total_gmv", err)
		}
		if page.MonthlyGMV, err = views.MonthlyMetricSeries(t, totalGMV, categories); err != nil {
			return nil, view("monthly_gmv", err)
		}
		if page.CategoryBreakdown, err = views.CategoryBreakdown(t, s.opts.Categories, period); err != nil {
			return nil, view("category_breakdown", err)
		}
		if page.CategoryTrend, err = views.ReshapeWideToLong(t, dataset.PeriodColumn, s.opts.Categories, "Category", "GMV"); err != nil {
			return nil, view("category_trend", err)
		}
		if page.HolidayImpact, err = holidayImpact(t); err != nil {
			return nil, view("holiday_impact", err)
		}
		return page, nil
	})
}

// selectCategories validates a category filter against the configured
// categories, keeping configured order.
func (s *Service) selectCategories(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return s.Categories(), nil
	}
	known := make(map[string]bool, len(s.opts.Categories))
	for _, c := range s.opts.Categories {
		known[c] = true
	}
	want := make(map[string]bool, len(requested))
	for _, c := range requested {
		if !known[c] {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, c)
		}
		want[c] = true
	}

	out := make([]string, 0, len(want))
	for _, c := range s.opts.Categories {
		if want[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func selectPeriod(periods []string, requested string) (string, error) {
	if len(periods) == 0 {
		return "", fmt.Errorf("%w: no periods", views.ErrDegenerateInput)
	}
	if requested == "" {
		return periods[len(periods)-1], nil
	}
	for _, p := range periods {
		if p == requested {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, requested)
}

func holidayImpact(t *table.Table) (HolidayImpact, error) {
	groups, err := views.GroupMean(t, hasHoliday, totalGMV)
	if err != nil {
		return HolidayImpact{}, err
	}

	var holiday, nonHoliday *float64
	for _, g := range groups {
		v := g.Value
		switch g.Group {
		case "1":
			holiday = &v
		case "0":
			nonHoliday = &v
		}
	}
	if holiday == nil || nonHoliday == nil {
		return HolidayImpact{}, fmt.Errorf("%w: need both holiday and non-holiday periods", views.ErrDegenerateInput)
	}

	base, _ := views.NewSeries("non_holiday", []string{"impact"}, []float64{*nonHoliday})
	cmp, _ := views.NewSeries("holiday", []string{"impact"}, []float64{*holiday})
	impact, err := views.PercentChange(base, cmp)
	if err != nil {
		return HolidayImpact{}, err
	}
	return HolidayImpact{Holiday: *holiday, NonHoliday: *nonHoliday, Impact: impact.Points[0]}, nil
}

type ExplorationPage struct {
	Meta
	AverageNPS         float64       `json:"average_nps"`
	AverageStockIndex  float64       `json:"average_stock_index"`
	DigitalSpend       float64       `json:"digital_spend"`
	NPSGMVCorrelation  views.Point   `json:"nps_gmv_correlation"`
	NPSvsGMV           *table.Table  `json:"nps_vs_gmv"`
	StockVsGMV         *table.Table  `json:"stock_vs_gmv"`
	ChannelInvestment  *table.Table  `json:"channel_investment"`
	CategoryTrend      *table.Table  `json:"category_trend"`
	WeatherCorrelation views.Series  `json:"weather_correlation"`
	CorrelationMatrix  *views.Matrix `json:"correlation_matrix"`
}

func (s *Service) Exploration(ctx context.Context) (*ExplorationPage, error) {
	return render(ctx, s, "exploration", func(ctx context.Context, meta Meta) (*ExplorationPage, error) {
		src, err := sourceOf(dataset.Primary, s.sources.Primary)
		if err != nil {
			return nil, err
		}
		t, err := s.loader.LoadPrimaryDataset(ctx, src)
		if err != nil {
			return nil, err
		}

		stock := s.opts.StockIndexColumn
		page := &ExplorationPage{Meta: meta}

		if page.AverageNPS, err = views.ColumnMean(t, npsColumn); err != nil {
			return nil, view("average_nps", err)
		}
		if page.AverageStockIndex, err = views.ColumnMean(t, stock); err != nil {
			return nil, view("average_stock_index", err)
		}
		if page.DigitalSpend, err = views.ColumnSum(t, digitalColumn); err != nil {
			return nil, view("digital_spend", err)
		}

		corr, err := views.CorrelationWith(t, totalGMV, []string{npsColumn})
		if err != nil {
			return nil, view("nps_gmv_correlation", err)
		}
		page.NPSGMVCorrelation = corr.Points[0]

		if page.NPSvsGMV, err = t.Select(dataset.PeriodColumn, npsColumn, totalGMV); err != nil {
			return nil, view("nps_vs_gmv", err)
		}
		if page.StockVsGMV, err = t.Select(dataset.PeriodColumn, stock, totalGMV); err != nil {
			return nil, view("stock_vs_gmv", err)
		}

		channels := present(t, s.opts.Channels)
		if page.ChannelInvestment, err = views.ReshapeWideToLong(t, dataset.PeriodColumn, channels, "Channel", "Investment"); err != nil {
			return nil, view("channel_investment", err)
		}
		if page.CategoryTrend, err = views.ReshapeWideToLong(t, dataset.PeriodColumn, s.opts.Categories, "Category", "GMV"); err != nil {
			return nil, view("category_trend", err)
		}

		weather := present(t, s.opts.WeatherFactors)
		if page.WeatherCorrelation, err = views.CorrelationWith(t, totalGMV, weather); err != nil {
			return nil, view("weather_correlation", err)
		}
		if page.CorrelationMatrix, err = views.CorrelationMatrix(t, append([]string{totalGMV}, weather...)); err != nil {
			return nil, view("correlation_matrix", err)
		}

		if missing := len(s.opts.Channels) - len(channels) + len(s.opts.WeatherFactors) - len(weather); missing > 0 {
			s.logger.Warn("Configured columns absent from primary dataset",
				zap.String("render_id", meta.RenderID),
				zap.Int("missing", missing),
			)
		}
		return page, nil
	})
}

// present keeps the columns of cols that t has, in order.
func present(t *table.Table, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

type KPIPage struct {
	Meta
	AverageROAS            float64      `json:"average_roas"`
	AverageCLV             float64      `json:"average_clv"`
	AverageCAC             float64      `json:"average_cac"`
	CLVToCAC               views.Point  `json:"clv_cac_ratio"`
	AverageDelivery        float64      `json:"average_delivery"`
	AverageProcurement     float64      `json:"average_procurement"`
	NPSTrend               string       `json:"nps_trend"`
	ROAS                   views.Series `json:"roas"`
	CLV                    views.Series `json:"clv"`
	CAC                    views.Series `json:"cac"`
	CLVToCACSeries         views.Series `json:"clv_cac_series"`
	NormalizedProcurement  views.Series `json:"normalized_procurement"`
	NormalizedGMV          views.Series `json:"normalized_gmv"`
	DeliveryPerformance    views.Series `json:"delivery_performance"`
	ProcurementPerformance views.Series `json:"procurement_performance"`
	NPS                    views.Series `json:"nps"`
	StockIndex             views.Series `json:"stock_index"`
	ROIDistribution        []views.Bin  `json:"roi_distribution"`
}

func (s *Service) KPI(ctx context.Context) (*KPIPage, error) {
	return render(ctx, s, "kpi", func(ctx context.Context, meta Meta) (*KPIPage, error) {
		src, err := sourceOf(dataset.Primary, s.sources.Primary)
		if err != nil {
			return nil, err
		}
		t, err := s.loader.LoadPrimaryDataset(ctx, src)
		if err != nil {
			return nil, err
		}

		page := &KPIPage{Meta: meta}

		means := []struct {
			col string
			dst *float64
		}{
			{roiColumn, &page.AverageROAS},
			{clvColumn, &page.AverageCLV},
			{cacColumn, &page.AverageCAC},
			{deliveryColumn, &page.AverageDelivery},
			{procurementCol, &page.AverageProcurement},
		}
		for _, m := range means {
			if *m.dst, err = views.ColumnMean(t, m.col); err != nil {
				return nil, view("average_"+m.col, err)
			}
		}

		page.CLVToCAC = views.Ratio("clv_cac_ratio", page.AverageCLV, page.AverageCAC)

		series := []struct {
			col string
			dst *views.Series
		}{
			{roiColumn, &page.ROAS},
			{clvColumn, &page.CLV},
			{cacColumn, &page.CAC},
			{deliveryColumn, &page.DeliveryPerformance},
			{procurementCol, &page.ProcurementPerformance},
			{npsColumn, &page.NPS},
			{s.opts.StockIndexColumn, &page.StockIndex},
		}
		for _, sr := range series {
			if *sr.dst, err = views.MonthlyMetricSeries(t, sr.col, nil); err != nil {
				return nil, view(sr.col, err)
			}
		}

		if page.CLVToCACSeries, err = views.RatioSeries(t, clvColumn, cacColumn); err != nil {
			return nil, view("clv_cac_series", err)
		}
		if page.NormalizedProcurement, err = views.NormalizeToUnitRange(page.ProcurementPerformance); err != nil {
			return nil, view("normalized_procurement", err)
		}
		gmv, err := views.MonthlyMetricSeries(t, totalGMV, nil)
		if err != nil {
			return nil, view("normalized_gmv", err)
		}
		if page.NormalizedGMV, err = views.NormalizeToUnitRange(gmv); err != nil {
			return nil, view("normalized_gmv", err)
		}

		if page.ROIDistribution, err = views.Distribution(page.ROAS.ValidValues(), roiDistribution); err != nil {
			return nil, view("roi_distribution", err)
		}

		page.NPSTrend = trend(page.NPS)
		return page, nil
	})
}

// trend compares the first and last valid points.
func trend(s views.Series) string {
	values := s.ValidValues()
	if len(values) < 2 {
		return "flat"
	}
	switch first, last := values[0], values[len(values)-1]; {
	case last > first:
		return "improving"
	case last < first:
		return "declining"
	default:
		return "flat"
	}
}
