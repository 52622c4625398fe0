package explores

import (
	"github.com/syssam/lookgen/lkml"
)

// generateClientCountsExplore renders the cohort analysis explore with its
// predefined cohort and build breakdown queries. Required filters come from
// the extended daily clients view, which owns the date partitioning.
func generateClientCountsExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	extended := req.Defn.Views["extended_view"]
	extendedFile := req.Views[extended]

	joins, err := unnestedJoins(req)
	if err != nil {
		return nil, err
	}

	var queries []Query
	if group := timePartitioningGroup(extendedFile, extended); group != "" {
		dateDimension := group + "_date"
		queries = append(queries, Query{
			Name:        "cohort_analysis",
			Description: "Client Counts of weekly cohorts over the past N days.",
			Dimensions:  []string{"days_since_first_seen", "first_seen_week"},
			Measures:    []string{"client_count"},
			Pivots:      []string{"first_seen_week"},
			Filters: []lkml.Filter{
				{Key: dateDimension, Value: "8 weeks"},
				{Key: "first_seen_date", Value: "8 weeks"},
				{Key: "have_completed_period", Value: "yes"},
			},
			Sorts: []string{"days_since_first_seen asc"},
		})
		if hasDimension(extendedFile, extended, "app_build") {
			queries = append(queries, Query{
				Name:        "build_breakdown",
				Description: "Number of clients per build.",
				Dimensions:  []string{dateDimension, "app_build"},
				Measures:    []string{"client_count"},
				Pivots:      []string{"app_build"},
				Sorts:       []string{dateDimension + " asc"},
			})
		}
	}

	return &File{Explores: []*Explore{{
		Name:          req.Name,
		ViewName:      base,
		Description:   "Client counts across dimensions and cohorts.",
		AlwaysFilters: requiredFilters(extendedFile, extended),
		Queries:       queries,
		Joins:         joins,
	}}}, nil
}
