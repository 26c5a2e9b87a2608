package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/table"
)

// Schema selects the column conventions of an optimization model's
// allocation export.
type Schema string

const (
	// SchemaOptym is one row per period with <Channel>_baseline and
	// <Channel>_optimized columns.
	SchemaOptym Schema = "optym"
	// SchemaRobyn is Robyn's allocator output: one row per channel keyed by
	// channels, with initSpendUnit and friends.
	SchemaRobyn Schema = "robyn"
	// SchemaRobynBudget is the condensed Robyn budget sheet with
	// Original_Budget, New_Budget and Revenue_per_Dollar per Channel.
	SchemaRobynBudget Schema = "robyn_budget"
)

func ParseSchema(s string) (Schema, error) {
	switch Schema(s) {
	case SchemaOptym, SchemaRobyn, SchemaRobynBudget:
		return Schema(s), nil
	default:
		return "", fmt.Errorf("unknown allocation schema %q", s)
	}
}

// Canonical allocation columns shared by every schema.
const (
	AllocPeriod    = "Period"
	AllocChannel   = "Channel"
	AllocBaseline  = "Baseline"
	AllocOptimized = "Optimized"
	AllocResponse  = "Response"
	AllocShare     = "Share"
	AllocROAS      = "ROAS"
)

var AllocationColumns = []string{AllocPeriod, AllocChannel, AllocBaseline, AllocOptimized, AllocResponse, AllocShare, AllocROAS}

// LoadModelAllocation reads an allocation table in the given schema and
// returns it in the canonical allocation layout, one row per (period,
// channel). Values are copied unchanged; columns a schema lacks are Null.
func (l *Loader) LoadModelAllocation(ctx context.Context, src source.Source, schema Schema) (*table.Table, error) {
	var normalize func(*table.Table) (*table.Table, error)
	switch schema {
	case SchemaOptym:
		normalize = normalizeOptym
	case SchemaRobyn:
		normalize = normalizeRobyn
	case SchemaRobynBudget:
		normalize = normalizeRobynBudget
	default:
		return nil, classify(ModelAllocation, src.Name(), fmt.Errorf("unknown allocation schema %q", schema))
	}
	return l.load(ctx, ModelAllocation+":"+string(schema), src, normalize)
}

// optymIgnored reports index and total columns exported next to the channel
// pairs.
func optymIgnored(col string) bool {
	return strings.Contains(col, "Unnamed") || strings.Contains(col, "Total")
}

func normalizeOptym(t *table.Table) (*table.Table, error) {
	var channels []string
	period := ""
	for _, c := range t.Columns {
		switch {
		case strings.HasSuffix(c, BaselineSuffix):
			if !optymIgnored(c) {
				channels = append(channels, strings.TrimSuffix(c, BaselineSuffix))
			}
		case strings.HasSuffix(c, OptimizedSuffix):
		case period == "" && !strings.Contains(c, "Total"):
			period = c
		}
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channel %s columns", table.ErrColumnNotFound, BaselineSuffix)
	}
	for _, ch := range channels {
		if !t.HasColumn(ch + OptimizedSuffix) {
			return nil, fmt.Errorf("%w: %q", ErrUnpairedColumn, ch+BaselineSuffix)
		}
	}

	out := table.New(AllocationColumns...)
	for i, r := range t.Rows {
		p := table.StringValue(strconv.Itoa(i + 1))
		if period != "" && !r.Get(period).IsNull() {
			p = table.StringValue(r.Get(period).String())
		}
		for _, ch := range channels {
			out.Append(table.Row{
				AllocPeriod:    p,
				AllocChannel:   table.StringValue(strings.TrimSpace(ch)),
				AllocBaseline:  r.Get(ch + BaselineSuffix),
				AllocOptimized: r.Get(ch + OptimizedSuffix),
			})
		}
	}
	return out, nil
}

func normalizeRobyn(t *table.Table) (*table.Table, error) {
	if err := t.Require("channels", "initSpendUnit"); err != nil {
		return nil, err
	}
	return canonical(t, "channels", map[string]string{
		AllocBaseline:  "initSpendUnit",
		AllocOptimized: "optmSpendUnit",
		AllocResponse:  "optmResponseUnit",
		AllocShare:     "initSpendShare",
	}), nil
}

func normalizeRobynBudget(t *table.Table) (*table.Table, error) {
	if err := t.Require("Channel", "Original_Budget", "New_Budget"); err != nil {
		return nil, err
	}
	return canonical(t, "Channel", map[string]string{
		AllocBaseline:  "Original_Budget",
		AllocOptimized: "New_Budget",
		AllocROAS:      "Revenue_per_Dollar",
	}), nil
}

// canonical maps one source row to one allocation row. Source columns that
// are absent leave their canonical column Null.
func canonical(t *table.Table, channelCol string, mapping map[string]string) *table.Table {
	out := table.New(AllocationColumns...)
	for _, r := range t.Rows {
		row := table.Row{
			AllocPeriod:  table.NullValue(),
			AllocChannel: table.StringValue(strings.TrimSpace(r.Get(channelCol).String())),
		}
		for dst, src := range mapping {
			if t.HasColumn(src) {
				row[dst] = r.Get(src)
			}
		}
		out.Append(row)
	}
	return out
}
