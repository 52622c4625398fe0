package views

import (
	"context"
	"strings"

	"github.com/syssam/lookgen"
)

const haveCompletedPeriodSQL = `DATE_ADD(
        {% if client_counts.first_seen_date._is_selected %}
          DATE_ADD(DATE(${client_counts.first_seen_date}), INTERVAL 1 DAY)
        {% elsif client_counts.first_seen_week._is_selected %}
          DATE_ADD(DATE(${client_counts.first_seen_week}), INTERVAL 1 WEEK)
        {% elsif client_counts.first_seen_month._is_selected %}
          DATE_ADD(PARSE_DATE('%Y-%m', ${client_counts.first_seen_month}), INTERVAL 1 MONTH)
        {% elsif client_counts.first_seen_year._is_selected %}
          DATE_ADD(DATE(${client_counts.first_seen_year}, 1, 1), INTERVAL 1 YEAR)
        {% endif %}
        ,
        {% if client_counts.days_since_first_seen._is_selected %}
          INTERVAL CAST(${client_counts.days_since_first_seen} AS INT64) DAY
        {% elsif client_counts.weeks_since_first_seen._is_selected %}
          INTERVAL CAST(${client_counts.weeks_since_first_seen} AS INT64) WEEK
        {% elsif client_counts.months_since_first_seen._is_selected %}
          INTERVAL CAST(${client_counts.months_since_first_seen} AS INT64) MONTH
        {% elsif client_counts.years_since_first_seen._is_selected %}
          INTERVAL CAST(${client_counts.months_since_first_seen} AS INT64) YEAR
        {% endif %}
      ) < current_date`

// generateClientCountsView renders the cohort analysis view. It extends the
// daily clients table view and adds the since_first_seen duration group, the
// have_completed_period guard dimension and a distinct client count.
func generateClientCountsView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "client counts view has no tables")
	}
	table := req.Defn.Tables[0].Table

	baseView := "baseline_clients_daily_table"
	if table != "" {
		parts := strings.Split(table, ".")
		baseView = parts[len(parts)-1] + "_table"
	}

	view := &Defn{
		Name:    req.Name,
		Extends: []string{baseView},
		Dimensions: []Dimension{{
			Name: "have_completed_period",
			Type: "yesno",
			SQL:  haveCompletedPeriodSQL,
			Description: "Only for use with cohort analysis. " +
				"Filter on true to remove the tail of incomplete data from cohorts. " +
				"Indicates whether the cohort for this row have all had a chance to complete this interval. " +
				"For example, new clients from yesterday have not all had a chance to send a ping for today.",
		}},
		DimensionGroups: []DimensionGroup{{
			Name:        "since_first_seen",
			Type:        "duration",
			SQLStart:    "CAST(${TABLE}.first_seen_date AS TIMESTAMP)",
			SQLEnd:      "CAST(${TABLE}.submission_date AS TIMESTAMP)",
			Intervals:   []string{"day", "week", "month", "year"},
			Description: "Amount of time that has passed since the client was first seen.",
		}},
		Measures: []Measure{{
			Name: "client_count",
			Type: "number",
			SQL:  "COUNT(DISTINCT ${TABLE}.client_id)",
			Description: "The number of clients, " +
				"determined by whether they sent a baseline ping on the day in question.",
		}},
	}

	return &File{
		Includes: []string{FileName(baseView)},
		Views:    []*Defn{view},
	}, nil
}
