// Package dashboard composes the four dashboard pages from the loaders and
// view builders. It is the presentation host's core: it owns no rendering,
// only the structured documents a front-end draws.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/metrics"
	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/views"
)

var ErrInvalidFilter = errors.New("invalid filter")

// Sources names the source of every dataset a page may read.
type Sources struct {
	Primary           source.Source
	ChannelSpend      source.Source
	RevenueSummary    source.Source
	ProductRevenue    source.Source
	OptymAllocation   source.Source
	RobynMaxResponse  source.Source
	RobynTarget       source.Source
	RobynBudget       source.Source
	FeatureImportance source.Source
}

func (s Sources) all() []source.Source {
	return []source.Source{
		s.Primary, s.ChannelSpend, s.RevenueSummary, s.ProductRevenue, s.OptymAllocation,
		s.RobynMaxResponse, s.RobynTarget, s.RobynBudget, s.FeatureImportance,
	}
}

// Options carries the column vocabulary of the primary and spend datasets.
type Options struct {
	Categories        []string
	Channels          []string
	SpendChannels     []string
	WeatherFactors    []string
	StockIndexColumn  string
	AllocationPeriods int
}

// Meta identifies one render of a page.
type Meta struct {
	Page        string    `json:"page"`
	RenderID    string    `json:"render_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	loader  *dataset.Loader
	sources Sources
	opts    Options
	logger  *zap.Logger
}

func NewService(loader *dataset.Loader, sources Sources, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StockIndexColumn == "" {
		opts.StockIndexColumn = "Stock Index"
	}
	return &Service{
		loader:  loader,
		sources: sources,
		opts:    opts,
		logger:  logger,
	}
}

// SourceNames lists the configured source locations, for watchers.
func (s *Service) SourceNames() []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, src := range s.sources.all() {
		if src == nil || seen[src.Name()] {
			continue
		}
		seen[src.Name()] = true
		out = append(out, src.Name())
	}
	return out
}

// Categories returns the configured product categories.
func (s *Service) Categories() []string {
	return append([]string(nil), s.opts.Categories...)
}

// render times and logs one page build under a fresh render id.
func render[T any](ctx context.Context, s *Service, page string, build func(ctx context.Context, meta Meta) (*T, error)) (*T, error) {
	meta := Meta{Page: page, RenderID: uuid.NewString(), GeneratedAt: time.Now().UTC()}
	start := time.Now()

	doc, err := build(ctx, meta)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PageRenderDuration.WithLabelValues(page, status).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Error("Page render failed",
			zap.String("page", page),
			zap.String("render_id", meta.RenderID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Page rendered",
		zap.String("page", page),
		zap.String("render_id", meta.RenderID),
		zap.Duration("duration", time.Since(start)),
	)
	return doc, nil
}

// view labels a builder failure with the panel it belongs to.
func view(name string, err error) error {
	if err == nil {
		return nil
	}
	metrics.ViewErrors.WithLabelValues(name).Inc()
	return fmt.Errorf("%s: %w", name, err)
}

func sourceOf(name string, src source.Source) (source.Source, error) {
	if src == nil {
		return nil, &dataset.DataLoadError{Dataset: name, Source: "(unconfigured)", Err: source.ErrNotFound}
	}
	return src, nil
}

// Series returns one primary-dataset metric keyed by period.
func (s *Service) Series(ctx context.Context, metric string) (views.Series, error) {
	src, err := sourceOf(dataset.Primary, s.sources.Primary)
	if err != nil {
		return views.Series{}, err
	}
	t, err := s.loader.LoadPrimaryDataset(ctx, src)
	if err != nil {
		return views.Series{}, err
	}
	series, err := views.MonthlyMetricSeries(t, metric, nil)
	return series, view("series", err)
}

// Correlation returns the correlation matrix of primary-dataset columns.
func (s *Service) Correlation(ctx context.Context, columns []string) (*views.Matrix, error) {
	src, err := sourceOf(dataset.Primary, s.sources.Primary)
	if err != nil {
		return nil, err
	}
	t, err := s.loader.LoadPrimaryDataset(ctx, src)
	if err != nil {
		return nil, err
	}
	m, err := views.CorrelationMatrix(t, columns)
	return m, view("correlation", err)
}

// Check resolves the identity of every configured source without reading
// it. It reports the first source that cannot be reached.
func (s *Service) Check() error {
	for _, src := range s.sources.all() {
		if src == nil {
			continue
		}
		if _, err := src.Identity(); err != nil {
			return &dataset.DataLoadError{Dataset: "source", Source: src.Name(), Err: err}
		}
	}
	return nil
}
