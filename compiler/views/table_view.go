package views

import (
	"context"
	"fmt"

	"github.com/syssam/lookgen"
)

// generateTableView renders a plain view over a warehouse table: every column
// becomes a dimension, repeated records become nested unnest views, and there
// are no measures. Multi-channel views switch the backing table through an
// unquoted channel parameter.
func generateTableView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "table view has no tables")
	}
	table := releaseTable(req.Defn)

	tbl, err := tableSchema(ctx, req, table.Table)
	if err != nil {
		return nil, err
	}
	dims, groups, err := Dimensions(tbl)
	if err != nil {
		return nil, err
	}
	nested, err := NestedViews(tbl, tbl.Columns, req.Name)
	if err != nil {
		return nil, err
	}

	view := &Defn{
		Name:            req.Name,
		Dimensions:      dims,
		DimensionGroups: groups,
	}
	if len(req.Defn.Tables) > 1 {
		param := Parameter{
			Name:         "channel",
			Type:         "unquoted",
			DefaultValue: table.Table,
		}
		for _, t := range req.Defn.Tables {
			param.AllowedValues = append(param.AllowedValues, AllowedValue{
				Label: SlugToTitle(t.Channel),
				Value: t.Table,
			})
		}
		view.Parameters = []Parameter{param}
		view.SQLTableName = "`{% parameter channel %}`"
	} else {
		view.SQLTableName = fmt.Sprintf("`%s`", table.Table)
	}

	return &File{Views: append([]*Defn{view}, nested...)}, nil
}
