package explores

import (
	"github.com/syssam/lookgen/lkml"
)

// generateMetricDefinitionsExplore renders the explore over one metric
// definitions view. Only the base view's fields surface; the seven day
// default window keeps the derived table aggregation bounded.
func generateMetricDefinitionsExplore(req *Request) (*File, error) {
	return &File{Explores: []*Explore{{
		Name:          req.Name,
		Fields:        []string{"ALL_FIELDS*"},
		AlwaysFilters: []lkml.Filter{{Key: "analysis_basis_date", Value: "7 days"}},
	}}}, nil
}
