package views

import (
	"fmt"

	"github.com/gmv-dashboard/backend/internal/table"
)

// ReshapeWideToLong melts valueCols into (idCol, nameLabel, valueLabel)
// rows. Output is row-major: every input row contributes one row per value
// column, in the order valueCols lists them. Cells are copied as is.
func ReshapeWideToLong(t *table.Table, idCol string, valueCols []string, nameLabel, valueLabel string) (*table.Table, error) {
	if err := requireColumns(t, append([]string{idCol}, valueCols...)...); err != nil {
		return nil, err
	}
	if nameLabel == "" || valueLabel == "" || nameLabel == valueLabel || nameLabel == idCol || valueLabel == idCol {
		return nil, fmt.Errorf("%w: labels %q and %q must be distinct, non-empty and differ from %q",
			ErrInvalidArgument, nameLabel, valueLabel, idCol)
	}

	out := table.New(idCol, nameLabel, valueLabel)
	out.Rows = make([]table.Row, 0, t.Len()*len(valueCols))
	for _, r := range t.Rows {
		for _, c := range valueCols {
			out.Rows = append(out.Rows, table.Row{
				idCol:      r.Get(idCol),
				nameLabel:  table.StringValue(c),
				valueLabel: r.Get(c),
			})
		}
	}
	return out, nil
}

func requireColumns(t *table.Table, cols ...string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}
