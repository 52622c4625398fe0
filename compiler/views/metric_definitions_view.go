package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
)

// statisticMeasureTypes maps metric-hub statistic slugs to LookML measure
// types. Percentile statistics additionally get a dashboard filter binding.
var statisticMeasureTypes = map[string]string{
	"sum":        "sum",
	"mean":       "average",
	"max":        "max",
	"min":        "min",
	"percentile": "median",
}

// generateMetricDefinitionsView renders one view per metric-hub data source.
// Metrics aggregate per client and date inside a derived table, so each
// metric is exposed as a dimension that custom Looker measures can aggregate
// further, plus one measure per declared statistic.
func generateMetricDefinitionsView(ctx context.Context, req *Request) (*File, error) {
	if req.Metrics == nil {
		return nil, lookgen.NewConfigError("metrics", req.Name, "no metric-hub configuration loaded")
	}
	source := strings.TrimPrefix(req.Name, "metric_definitions_")
	ds, ok := req.Metrics.DataSource(source, req.Namespace)
	if !ok {
		return nil, lookgen.NewConfigError("metrics", source,
			fmt.Sprintf("namespace %q has no such data source", req.Namespace))
	}

	var metrics []load.MetricDefinition
	for _, m := range req.Metrics.MetricsOfDataSource(source, req.Namespace) {
		if m.SelectExpression == "" || m.Type == "histogram" {
			continue
		}
		metrics = append(metrics, m)
	}
	if len(metrics) == 0 {
		return &File{}, nil
	}

	clientID := ds.ClientIDColumn
	if clientID == "" {
		clientID = "client_id"
	}
	submissionDate := ds.SubmissionDateColumn
	if submissionDate == "" {
		submissionDate = "submission_date"
	}

	var sql strings.Builder
	sql.WriteString("SELECT")
	for _, m := range metrics {
		fmt.Fprintf(&sql, "\n              %s AS %s,", m.SelectExpression, m.Name)
	}
	fmt.Fprintf(&sql, "\n              m.%s AS client_id,", clientID)
	fmt.Fprintf(&sql, "\n              m.%s AS analysis_basis", submissionDate)
	fmt.Fprintf(&sql, "\n            FROM %s AS m", ds.TableFor(""))
	fmt.Fprintf(&sql, "\n            WHERE m.%s BETWEEN", submissionDate)
	fmt.Fprintf(&sql, "\n              COALESCE(SAFE_CAST({%% date_start analysis_basis %%} AS DATE), CURRENT_DATE()) AND")
	fmt.Fprintf(&sql, "\n              COALESCE(SAFE_CAST({%% date_end analysis_basis %%} AS DATE), CURRENT_DATE())")
	sql.WriteString("\n            GROUP BY client_id, analysis_basis")

	view := &Defn{
		Name:            req.Name,
		DerivedTableSQL: sql.String(),
		Dimensions: []Dimension{{
			Name:   "client_id",
			Hidden: true,
			SQL:    "${TABLE}.client_id",
		}},
		DimensionGroups: []DimensionGroup{{
			Name:       "analysis_basis",
			Type:       "time",
			SQL:        "${TABLE}.analysis_basis",
			Timeframes: dropTimeframe(defaultTimeframes, "time"),
			ConvertTZ:  "no",
			Datatype:   "date",
		}},
	}

	for _, m := range metrics {
		label := m.FriendlyName
		if label == "" {
			label = SlugToTitle(m.Name)
		}
		view.Dimensions = append(view.Dimensions, Dimension{
			Name:        m.Name,
			Type:        "number",
			SQL:         "${TABLE}." + m.Name,
			Label:       label,
			GroupLabel:  "Metrics",
			Description: m.Description,
		})
		for _, statistic := range m.StatisticNames() {
			measureType, ok := statisticMeasureTypes[statistic]
			if !ok {
				return nil, lookgen.NewConfigError("metrics", statistic,
					fmt.Sprintf("metric %q declares an unknown statistic", m.Name))
			}
			view.Measures = append(view.Measures, Measure{
				Name:        m.Name + "_" + statistic,
				Type:        measureType,
				SQL:         "${" + m.Name + "}",
				Description: fmt.Sprintf("%s of %s", SlugToTitle(statistic), label),
			})
		}
	}

	return &File{Views: []*Defn{view}}, nil
}
