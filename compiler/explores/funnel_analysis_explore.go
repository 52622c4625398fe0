package explores

import (
	"fmt"
	"strings"

	"github.com/syssam/lookgen/compiler/views"
	"github.com/syssam/lookgen/lkml"
)

// generateFunnelAnalysisExplore renders the funnel explore: each step view
// cross joins against the day's events, and the event_names suggestion
// explore rides along hidden.
func generateFunnelAnalysisExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	file := req.Views[base]

	var joins []Join
	if defn := viewDefn(file, base); defn != nil {
		for _, v := range file.Views {
			if isStepView(v) {
				joins = append(joins, Join{
					Name:         v.Name,
					Relationship: "many_to_one",
					Type:         "cross",
				})
			}
		}
	}

	funnel := &Explore{
		Name:           base,
		Description:    "Count funnel completion over time. Funnels are limited to a single day.",
		ViewLabel:      " User-Day Funnels",
		AlwaysFilters:  []lkml.Filter{{Key: "submission_date", Value: "14 days"}},
		Joins:          joins,
		SQLAlwaysWhere: fmt.Sprintf("${%s.submission_date} >= '2010-01-01'", base),
	}
	eventNames := &Explore{Name: "event_names", Hidden: true}

	return &File{Explores: []*Explore{funnel, eventNames}}, nil
}

func isStepView(v *views.Defn) bool {
	return strings.HasPrefix(v.Name, "step_")
}
