package views

import (
	"context"
	"fmt"

	"github.com/syssam/lookgen"
)

// generatePingView renders a view over a ping table. It carries the inferred
// dimensions plus client and ping count measures, marks document_id as the
// primary key for joins, and exposes a channel filter when the view unions
// more than one channel.
func generatePingView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "ping view has no tables")
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
	for i := range dims {
		if dims[i].Name == "document_id" {
			dims[i].PrimaryKey = true
		}
	}
	measures, err := baseMeasures(table.Table, dims)
	if err != nil {
		return nil, err
	}
	nested, err := NestedViews(tbl, tbl.Columns, req.Name)
	if err != nil {
		return nil, err
	}

	view := &Defn{
		Name:            req.Name,
		SQLTableName:    fmt.Sprintf("`%s`", table.Table),
		Dimensions:      dims,
		DimensionGroups: groups,
		Measures:        measures,
	}
	if suggestions := channelSuggestions(req.Defn); len(suggestions) > 1 {
		view.Filters = []FilterField{{
			Name:         "channel",
			Type:         "string",
			Description:  "Filter by the app's channel",
			SQL:          "{% condition %} ${TABLE}.normalized_channel {% endcondition %}",
			DefaultValue: suggestions[0],
			Suggestions:  suggestions,
		}}
	}

	return &File{Views: append([]*Defn{view}, nested...)}, nil
}
