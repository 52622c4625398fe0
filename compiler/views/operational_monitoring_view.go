package views

import (
	"context"
	"fmt"
	"sort"

	"github.com/syssam/lookgen"
)

// opmonAllowedDimensions are always exposed on monitoring views; everything
// else must be a configured breakdown dimension.
var opmonAllowedDimensions = map[string]bool{
	"branch":    true,
	"metric":    true,
	"statistic": true,
	"parameter": true,
}

// generateOperationalView renders a view over a monitoring statistics table.
// The x axis is a date dimension, parsed out of the build id when the project
// monitors by build, and only the allowed plus configured breakdown
// dimensions surface. Point estimates and confidence bounds sum up for
// aggregation across branches.
func generateOperationalView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "operational monitoring view has no tables")
	}
	table := req.Defn.Tables[0]

	xaxis := table.Xaxis
	if xaxis == "" {
		xaxis = "build_id"
	}
	xaxisSQL := fmt.Sprintf("${TABLE}.%s", xaxis)
	if xaxis == "build_id" {
		xaxisSQL = fmt.Sprintf("PARSE_DATE('%%Y%%m%%d', CAST(${TABLE}.%s AS STRING))", xaxis)
	}

	tbl, err := tableSchema(ctx, req, table.Table)
	if err != nil {
		return nil, err
	}
	all, _, err := Dimensions(tbl)
	if err != nil {
		return nil, err
	}

	dims := []Dimension{{
		Name:      xaxis,
		Type:      "date",
		SQL:       xaxisSQL,
		Datatype:  "date",
		ConvertTZ: "no",
	}}
	breakdowns := make([]string, 0, len(table.Dimensions))
	for name := range table.Dimensions {
		breakdowns = append(breakdowns, name)
	}
	sort.Strings(breakdowns)
	for _, d := range all {
		if opmonAllowedDimensions[d.Name] || contains(breakdowns, d.Name) {
			dims = append(dims, d)
		}
	}

	view := &Defn{
		Name:         req.Name,
		SQLTableName: fmt.Sprintf("`%s`", table.Table),
		Dimensions:   dims,
		Measures: []Measure{
			{Name: "point", Type: "sum", SQL: "${TABLE}.point"},
			{Name: "upper", Type: "sum", SQL: "${TABLE}.upper"},
			{Name: "lower", Type: "sum", SQL: "${TABLE}.lower"},
		},
	}
	return &File{Views: []*Defn{view}}, nil
}

// generateOperationalAlertingView renders a plain view over an alerts table
// with a date dimension and an error count measure.
func generateOperationalAlertingView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "alerting view has no tables")
	}
	table := req.Defn.Tables[0]

	tbl, err := tableSchema(ctx, req, table.Table)
	if err != nil {
		return nil, err
	}
	all, _, err := Dimensions(tbl)
	if err != nil {
		return nil, err
	}

	dims := make([]Dimension, 0, len(all)+1)
	dims = append(dims, all...)
	dims = append(dims, Dimension{
		Name: "submission_date",
		Type: "date",
		SQL:  "${TABLE}.submission_date",
	})

	view := &Defn{
		Name:         req.Name,
		SQLTableName: fmt.Sprintf("`%s`", table.Table),
		Dimensions:   dims,
		Measures: []Measure{
			{Name: "errors", Type: "number", SQL: "COUNT(*)"},
		},
	}
	return &File{Views: []*Defn{view}}, nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
