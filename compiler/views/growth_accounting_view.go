package views

import (
	"context"
	"fmt"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/lkml"
)

// defaultIdentifierField keys the growth accounting grain when the namespace
// document does not override it.
const defaultIdentifierField = "client_id"

// growthAccountingDimensions are the activity window flags the retention and
// churn measures filter on, plus the per day primary key. All hidden; they
// only exist to feed the measures.
func growthAccountingDimensions(identifier string) []Dimension {
	return []Dimension{
		{
			Name:   "active_this_week",
			Type:   "yesno",
			SQL:    "mozfun.bits28.active_in_range(days_seen_bits, -6, 7)",
			Hidden: true,
		},
		{
			Name:   "active_last_week",
			Type:   "yesno",
			SQL:    "mozfun.bits28.active_in_range(days_seen_bits, -13, 7)",
			Hidden: true,
		},
		{
			Name:   "new_this_week",
			Type:   "yesno",
			SQL:    "DATE_DIFF(${submission_date}, first_run_date, DAY) BETWEEN 0 AND 6",
			Hidden: true,
		},
		{
			Name:   "new_last_week",
			Type:   "yesno",
			SQL:    "DATE_DIFF(${submission_date}, first_run_date, DAY) BETWEEN 7 AND 13",
			Hidden: true,
		},
		{
			Name:       identifier + "_day",
			Type:       "string",
			SQL:        fmt.Sprintf("CONCAT(CAST(${TABLE}.submission_date AS STRING), ${%s})", identifier),
			Hidden:     true,
			PrimaryKey: true,
		},
	}
}

// growthAccountingMeasures is the growth accounting framework: the activity
// counts bucketed by the window flags and the retention, churn and quick
// ratio numbers derived from them.
func growthAccountingMeasures() []Measure {
	return []Measure{
		{
			Name:    "overall_active_previous",
			Type:    "count",
			Filters: []lkml.Filter{{Key: "active_last_week", Value: "yes"}},
		},
		{
			Name:    "overall_active_current",
			Type:    "count",
			Filters: []lkml.Filter{{Key: "active_this_week", Value: "yes"}},
		},
		{
			Name: "overall_resurrected",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_last_week", Value: "no"},
				{Key: "new_this_week", Value: "no"},
				{Key: "active_last_week", Value: "no"},
				{Key: "active_this_week", Value: "yes"},
			},
		},
		{
			Name: "new_users",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_this_week", Value: "yes"},
				{Key: "active_this_week", Value: "yes"},
			},
		},
		{
			Name: "established_users_returning",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_last_week", Value: "no"},
				{Key: "new_this_week", Value: "no"},
				{Key: "active_last_week", Value: "yes"},
				{Key: "active_this_week", Value: "yes"},
			},
		},
		{
			Name: "new_users_returning",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_last_week", Value: "yes"},
				{Key: "active_last_week", Value: "yes"},
				{Key: "active_this_week", Value: "yes"},
			},
		},
		{
			Name: "new_users_churned_count",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_last_week", Value: "yes"},
				{Key: "active_last_week", Value: "yes"},
				{Key: "active_this_week", Value: "no"},
			},
		},
		{
			Name: "established_users_churned_count",
			Type: "count",
			Filters: []lkml.Filter{
				{Key: "new_last_week", Value: "no"},
				{Key: "new_this_week", Value: "no"},
				{Key: "active_last_week", Value: "yes"},
				{Key: "active_this_week", Value: "no"},
			},
		},
		{
			Name: "new_users_churned",
			Type: "number",
			SQL:  "-1 * ${new_users_churned_count}",
		},
		{
			Name: "established_users_churned",
			Type: "number",
			SQL:  "-1 * ${established_users_churned_count}",
		},
		{
			Name: "overall_churned",
			Type: "number",
			SQL:  "${new_users_churned} + ${established_users_churned}",
		},
		{
			Name: "overall_retention_rate",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"(${established_users_returning} + ${new_users_returning})," +
				"${overall_active_previous}" +
				")",
		},
		{
			Name: "established_user_retention_rate",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"${established_users_returning}," +
				"(${established_users_returning} + ${established_users_churned_count})" +
				")",
		},
		{
			Name: "new_user_retention_rate",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"${new_users_returning}," +
				"(${new_users_returning} + ${new_users_churned_count})" +
				")",
		},
		{
			Name: "overall_churn_rate",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"(${established_users_churned_count} + ${new_users_churned_count})," +
				"${overall_active_previous}" +
				")",
		},
		{
			Name: "fraction_of_active_resurrected",
			Type: "number",
			SQL:  "SAFE_DIVIDE(${overall_resurrected}, ${overall_active_current})",
		},
		{
			Name: "fraction_of_active_new",
			Type: "number",
			SQL:  "SAFE_DIVIDE(${new_users}, ${overall_active_current})",
		},
		{
			Name: "fraction_of_active_established_returning",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"${established_users_returning}," +
				"${overall_active_current}" +
				")",
		},
		{
			Name: "fraction_of_active_new_returning",
			Type: "number",
			SQL:  "SAFE_DIVIDE(${new_users_returning}, ${overall_active_current})",
		},
		{
			Name: "quick_ratio",
			Type: "number",
			SQL: "SAFE_DIVIDE(" +
				"${new_users} + ${overall_resurrected}," +
				"${established_users_churned_count} + ${new_users_churned_count}" +
				")",
		},
	}
}

// generateGrowthAccountingView renders the retention and churn view over a
// clients last seen table: the table's own dimensions plus the hidden weekly
// activity flags, and the growth accounting measure framework on top.
func generateGrowthAccountingView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "growth accounting view has no tables")
	}
	table := req.Defn.Tables[0].Table

	identifier := req.Defn.IdentifierField
	if identifier == "" {
		identifier = defaultIdentifierField
	}

	tbl, err := tableSchema(ctx, req, table)
	if err != nil {
		return nil, err
	}
	dims, groups, err := Dimensions(tbl)
	if err != nil {
		return nil, err
	}
	dims = append(dims, growthAccountingDimensions(identifier)...)

	view := &Defn{
		Name:            req.Name,
		SQLTableName:    fmt.Sprintf("`%s`", table),
		Dimensions:      dims,
		DimensionGroups: groups,
		Measures:        growthAccountingMeasures(),
	}
	return &File{Views: []*Defn{view}}, nil
}
