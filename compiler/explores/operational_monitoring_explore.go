package explores

import (
	"sort"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/lkml"
)

// rollupTrigger reloads rollup tables at 9am, after the upstream ETL is done.
const rollupTrigger = "SELECT CAST(TIMESTAMP_SUB(CURRENT_TIMESTAMP, INTERVAL 9 HOUR) AS DATE)"

// generateOperationalExplore renders the explore over a monitoring statistics
// view: hidden, always filtered to the configured branches, with one
// materialized rollup per summarized metric so dashboards load from
// aggregates.
func generateOperationalExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]

	xaxis := req.Defn.Xaxis
	if xaxis == "" {
		xaxis = "build_id"
	}

	baseFilters := []lkml.Filter{
		{Key: base + ".branch", Value: strings.Join(req.Defn.Branches, ", ")},
		{Key: base + ".parameter", Value: "50"},
	}
	dimensionNames := make([]string, 0, len(req.Defn.Dimensions))
	for name := range req.Defn.Dimensions {
		dimensionNames = append(dimensionNames, name)
	}
	sort.Strings(dimensionNames)
	for _, name := range dimensionNames {
		if def := req.Defn.Dimensions[name].Default; def != "" {
			baseFilters = append(baseFilters, lkml.Filter{Key: base + "." + name, Value: def})
		}
	}

	seen := make(map[string]bool)
	var rollups []AggregateTable
	for _, summary := range req.Defn.Summaries {
		if seen[summary.Metric] {
			continue
		}
		seen[summary.Metric] = true
		filters := append(append([]lkml.Filter(nil), baseFilters...),
			lkml.Filter{Key: base + ".metric", Value: summary.Metric})
		rollups = append(rollups, AggregateTable{
			Name: "rollup_" + summary.Metric,
			Query: Query{
				Dimensions: []string{xaxis, "branch"},
				Measures:   []string{"lower", "upper", "point"},
				Filters:    filters,
			},
			SQLTrigger: rollupTrigger,
		})
	}

	return &File{Explores: []*Explore{{
		Name:   base,
		Hidden: true,
		AlwaysFilters: []lkml.Filter{
			{Key: "branch", Value: strings.Join(req.Defn.Branches, ", ")},
		},
		AggregateTables: rollups,
	}}}, nil
}

// generateOperationalAlertingExplore renders the hidden explore over an
// alerts view.
func generateOperationalAlertingExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	if req.Views[base] == nil {
		return nil, lookgen.NewJoinError(req.Namespace, req.Name, base, "base_view",
			"alerting explore references unknown view")
	}
	return &File{Explores: []*Explore{{
		Name:   base,
		Hidden: true,
	}}}, nil
}
