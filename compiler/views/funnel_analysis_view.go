package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/lkml"
	"github.com/syssam/lookgen/schema"
)

func filterYes(name string) lkml.Filter {
	return lkml.Filter{Key: name, Value: "yes"}
}

// funnelSteps is how many ordered steps a funnel supports.
const funnelSteps = 4

// generateFunnelAnalysisView synthesizes the funnel views: the funnel_analysis
// view extending the daily events table with one completed_step dimension and
// count measure per step, the event_types match-string view each step extends,
// and the event_names suggestion view.
func generateFunnelAnalysisView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "funnel analysis view has no tables")
	}
	eventsDaily := req.Defn.Tables[0].Table
	project, dataset, _, err := schema.ParseTableName(eventsDaily)
	if err != nil {
		return nil, err
	}
	eventTypesTable := fmt.Sprintf("`%s.%s.event_types`", project, dataset)

	funnel := &Defn{
		Name:    req.Name,
		Extends: []string{"events_daily_table"},
	}
	for n := 1; n <= funnelSteps; n++ {
		var matchStrings []string
		for i := 1; i <= n; i++ {
			matchStrings = append(matchStrings, fmt.Sprintf("${step_%d.match_string}", i))
		}
		funnel.Dimensions = append(funnel.Dimensions, Dimension{
			Name: fmt.Sprintf("completed_step_%d", n),
			Type: "yesno",
			SQL: fmt.Sprintf(
				"REGEXP_CONTAINS(${TABLE}.events, mozfun.event_analysis.create_funnel_regex([%s], True))",
				strings.Join(matchStrings, ","),
			),
			Description: fmt.Sprintf("Whether the user completed step %d on the associated day.", n),
		})
	}
	for n := 1; n <= funnelSteps; n++ {
		measure := Measure{
			Name: fmt.Sprintf("count_completed_step_%d", n),
			Type: "count",
			Description: fmt.Sprintf(
				"The number of times that step %d was completed. "+
					"Grouping by day makes this a count of users who completed "+
					"step %d on each day.", n, n),
		}
		for i := 1; i <= n; i++ {
			measure.Filters = append(measure.Filters, filterYes(fmt.Sprintf("completed_step_%d", i)))
		}
		funnel.Measures = append(funnel.Measures, measure)
	}
	for n := 1; n <= funnelSteps; n++ {
		funnel.Measures = append(funnel.Measures, Measure{
			Name: fmt.Sprintf("fraction_completed_step_%d", n),
			Type: "number",
			SQL:  fmt.Sprintf("SAFE_DIVIDE(${count_completed_step_%d}, ${count_completed_step_1})", n),
			Description: fmt.Sprintf(
				"Of the user-days that completed Step 1, the fraction that completed step %d.", n),
		})
	}

	eventTypes := &Defn{
		Name: "event_types",
		DerivedTableSQL: "SELECT " +
			"mozfun.event_analysis.aggregate_match_strings( " +
			"ARRAY_AGG( " +
			"mozfun.event_analysis.event_index_to_match_string(index))) AS match_string " +
			"FROM " +
			eventTypesTable + " " +
			"WHERE " +
			"{% condition category %} category {% endcondition %} " +
			"AND {% condition event %} event {% endcondition %}",
		Filters: []FilterField{
			{
				Name:             "category",
				Type:             "string",
				Description:      "The event category, as defined in metrics.yaml.",
				SuggestExplore:   "event_names",
				SuggestDimension: "event_names.category",
			},
			{
				Name:             "event",
				Type:             "string",
				Description:      "The event name.",
				SuggestExplore:   "event_names",
				SuggestDimension: "event_names.event",
			},
		},
		Dimensions: []Dimension{{
			Name:   "match_string",
			Hidden: true,
			SQL:    "${TABLE}.match_string",
		}},
	}

	views := []*Defn{funnel, eventTypes}
	for n := 1; n <= funnelSteps; n++ {
		views = append(views, &Defn{
			Name:    fmt.Sprintf("step_%d", n),
			Extends: []string{"event_types"},
		})
	}

	views = append(views, &Defn{
		Name: "event_names",
		DerivedTableSQL: "SELECT category, " +
			"event, " +
			"property.key AS property_name, " +
			"property_value.key AS property_value " +
			"FROM " + eventTypesTable + " " +
			"LEFT JOIN UNNEST(event_properties) AS property " +
			"LEFT JOIN UNNEST(property.value) AS property_value",
		Dimensions: []Dimension{
			{Name: "category", Type: "string", SQL: "${TABLE}.category"},
			{Name: "event", Type: "string", SQL: "${TABLE}.event"},
			{Name: "property_name", Type: "string", SQL: "${TABLE}.property_name"},
			{Name: "property_value", Type: "string", SQL: "${TABLE}.property_value"},
		},
	})

	return &File{
		Includes: []string{FileName("events_daily_table")},
		Views:    views,
	}, nil
}
