package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/table"
	"github.com/gmv-dashboard/backend/internal/views"
)

type BudgetPage struct {
	Meta
	Revenue               RevenueSummary       `json:"revenue"`
	ProductImprovements   []views.Improvement  `json:"product_improvements"`
	OptymAllocation       []views.ChannelValue `json:"optym_allocation"`
	OptymChannelBudget    *table.Table         `json:"optym_channel_budget"`
	RobynAllocation       []views.ChannelValue `json:"robyn_allocation"`
	RobynTargetAllocation []views.ChannelValue `json:"robyn_target_allocation"`
	RobynBudget           *table.Table         `json:"robyn_budget"`
	ChannelROAS           []views.GroupValue   `json:"channel_roas"`
	FeatureImportance     *table.Table         `json:"feature_importance"`
	AverageImportance     []views.ChannelValue `json:"average_importance"`
}

// RevenueSummary is the Optym model's overall revenue outcome.
type RevenueSummary struct {
	AverageBaseline       float64      `json:"average_baseline"`
	AverageOptimized      float64      `json:"average_optimized"`
	AverageImprovementPct float64      `json:"average_improvement_pct"`
	Baseline              views.Series `json:"baseline"`
	Optimized             views.Series `json:"optimized"`
}

type budgetTables struct {
	spend       *table.Table
	revenue     *table.Table
	product     *table.Table
	optym       *table.Table
	robynMax    *table.Table
	robynTarget *table.Table
	robynBudget *table.Table
	importance  *table.Table
}

type loadFunc func(ctx context.Context, src source.Source) (*table.Table, error)

func (s *Service) allocationLoader(schema dataset.Schema) loadFunc {
	return func(ctx context.Context, src source.Source) (*table.Table, error) {
		return s.loader.LoadModelAllocation(ctx, src, schema)
	}
}

// loadBudget loads every budget dataset concurrently; the first failure
// cancels the rest.
func (s *Service) loadBudget(ctx context.Context) (*budgetTables, error) {
	var out budgetTables
	srcs := s.sources

	steps := []struct {
		name string
		src  source.Source
		dst  **table.Table
		load loadFunc
	}{
		{dataset.ChannelSpend, srcs.ChannelSpend, &out.spend, s.loader.LoadChannelSpend},
		{dataset.RevenueSummary, srcs.RevenueSummary, &out.revenue, s.loader.LoadRevenueSummary},
		{dataset.ProductRevenue, srcs.ProductRevenue, &out.product, s.loader.LoadProductRevenue},
		{"optym_allocation", srcs.OptymAllocation, &out.optym, s.allocationLoader(dataset.SchemaOptym)},
		{"robyn_max_response", srcs.RobynMaxResponse, &out.robynMax, s.allocationLoader(dataset.SchemaRobyn)},
		{"robyn_target", srcs.RobynTarget, &out.robynTarget, s.allocationLoader(dataset.SchemaRobyn)},
		{"robyn_budget", srcs.RobynBudget, &out.robynBudget, s.allocationLoader(dataset.SchemaRobynBudget)},
		{dataset.FeatureImportance, srcs.FeatureImportance, &out.importance, s.loader.LoadFeatureImportance},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		step := step
		g.Go(func() error {
			src, err := sourceOf(step.name, step.src)
			if err != nil {
				return err
			}
			t, err := step.load(ctx, src)
			if err != nil {
				return err
			}
			*step.dst = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Budget(ctx context.Context) (*BudgetPage, error) {
	return render(ctx, s, "budget", func(ctx context.Context, meta Meta) (*BudgetPage, error) {
		tables, err := s.loadBudget(ctx)
		if err != nil {
			return nil, err
		}

		page := &BudgetPage{Meta: meta}

		if page.Revenue, err = revenueSummary(tables.revenue); err != nil {
			return nil, view("revenue", err)
		}
		categories := dataset.ProductCategories(tables.product)
		if page.ProductImprovements, err = views.ProductImprovements(tables.product, categories); err != nil {
			return nil, view("product_improvements", err)
		}

		spendChannels := present(tables.spend, s.opts.SpendChannels)
		if page.OptymAllocation, err = views.ChannelAllocation(tables.spend, spendChannels, s.opts.AllocationPeriods); err != nil {
			return nil, view("optym_allocation", err)
		}
		if page.OptymChannelBudget, err = views.ChannelComparison(tables.optym); err != nil {
			return nil, view("optym_channel_budget", err)
		}
		if page.RobynAllocation, err = views.AllocationShares(tables.robynMax); err != nil {
			return nil, view("robyn_allocation", err)
		}
		if page.RobynTargetAllocation, err = views.AllocationShares(tables.robynTarget); err != nil {
			return nil, view("robyn_target_allocation", err)
		}
		if page.RobynBudget, err = views.ChannelComparison(tables.robynBudget); err != nil {
			return nil, view("robyn_budget", err)
		}

		roas := tables.robynBudget.Filter(func(r table.Row) bool {
			return !r.Get(dataset.AllocROAS).IsNull()
		})
		if page.ChannelROAS, err = views.GroupMean(roas, dataset.AllocChannel, dataset.AllocROAS); err != nil {
			return nil, view("channel_roas", err)
		}

		page.FeatureImportance = tables.importance
		if page.AverageImportance, err = views.AverageImportance(tables.importance); err != nil {
			return nil, view("average_importance", err)
		}
		return page, nil
	})
}

func revenueSummary(t *table.Table) (RevenueSummary, error) {
	var out RevenueSummary
	var err error

	if out.AverageBaseline, err = views.ColumnMean(t, dataset.Baseline); err != nil {
		return out, err
	}
	if out.AverageOptimized, err = views.ColumnMean(t, dataset.Optimized); err != nil {
		return out, err
	}
	if out.AverageImprovementPct, err = views.ColumnMean(t, dataset.ImprovementPct); err != nil {
		return out, err
	}
	if out.Baseline, err = views.ColumnSeries(t, dataset.Baseline); err != nil {
		return out, err
	}
	if out.Optimized, err = views.ColumnSeries(t, dataset.Optimized); err != nil {
		return out, err
	}
	return out, nil
}
