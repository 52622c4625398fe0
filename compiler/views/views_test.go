package views

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/lkml"
	"github.com/syssam/lookgen/schema"
)

func testSchemas() *load.StaticSchemaSource {
	return &load.StaticSchemaSource{Tables: map[string]*schema.Table{
		"mozdata.fenix.baseline": {
			Project: "mozdata", Dataset: "fenix", Name: "baseline",
			Columns: []*schema.Column{
				{Name: "client_id", Type: schema.TypeString},
				{Name: "document_id", Type: schema.TypeString},
				{Name: "os", Type: schema.TypeString},
				{Name: "submission_timestamp", Type: schema.TypeTimestamp},
			},
		},
		"mozdata.fenix.events_unnested": {
			Project: "mozdata", Dataset: "fenix", Name: "events_unnested",
			Columns: []*schema.Column{
				{Name: "client_id", Type: schema.TypeString},
				{Name: "event_id", Type: schema.TypeString},
				{Name: "event_category", Type: schema.TypeString},
				{Name: "submission_timestamp", Type: schema.TypeTimestamp},
			},
		},
		"mozdata.fenix.baseline_clients_last_seen": {
			Project: "mozdata", Dataset: "fenix", Name: "baseline_clients_last_seen",
			Columns: []*schema.Column{
				{Name: "client_id", Type: schema.TypeString},
				{Name: "days_seen_bits", Type: schema.TypeInteger},
				{Name: "first_seen_date", Type: schema.TypeDate},
				{Name: "os", Type: schema.TypeString},
				{Name: "submission_date", Type: schema.TypeDate},
			},
		},
		"moz-fx-data-shared-prod.operational_monitoring.fission_statistics": {
			Project: "moz-fx-data-shared-prod", Dataset: "operational_monitoring", Name: "fission_statistics",
			Columns: []*schema.Column{
				{Name: "branch", Type: schema.TypeString},
				{Name: "build_id", Type: schema.TypeInteger},
				{Name: "cores_count", Type: schema.TypeString},
				{Name: "metric", Type: schema.TypeString},
				{Name: "statistic", Type: schema.TypeString},
				{Name: "parameter", Type: schema.TypeNumeric},
				{Name: "point", Type: schema.TypeFloat},
				{Name: "lower", Type: schema.TypeFloat},
				{Name: "upper", Type: schema.TypeFloat},
			},
		},
	}}
}

func TestGeneratePingView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "baseline",
		Defn: load.ViewDefn{
			Type: PingView,
			Tables: []load.TableDefn{
				{Table: "mozdata.fenix.baseline", Channel: "beta"},
				{Table: "mozdata.fenix.baseline", Channel: "release"},
			},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)
	require.Len(t, file.Views, 1)

	view := file.Views[0]
	assert.Equal(t, "`mozdata.fenix.baseline`", view.SQLTableName)

	byName := make(map[string]Dimension)
	for _, d := range view.Dimensions {
		byName[d.Name] = d
	}
	assert.True(t, byName["document_id"].PrimaryKey)
	assert.True(t, byName["client_id"].Hidden)
	assert.False(t, byName["os"].Hidden)

	require.Len(t, view.Measures, 2)
	assert.Equal(t, "clients", view.Measures[0].Name)
	assert.Equal(t, "${client_id}", view.Measures[0].SQL)
	assert.Equal(t, "ping_count", view.Measures[1].Name)

	require.Len(t, view.Filters, 1)
	assert.Equal(t, "channel", view.Filters[0].Name)
	assert.Equal(t, "beta", view.Filters[0].DefaultValue)
	assert.Equal(t, []string{"beta", "release"}, view.Filters[0].Suggestions)

	rendered := file.Render()
	assert.Contains(t, rendered, "view: baseline {")
	assert.Contains(t, rendered, "sql_table_name: `mozdata.fenix.baseline`\n")
	assert.Contains(t, rendered, "sql: ${TABLE}.os ;;")
}

func TestGenerateTableViewChannelParameter(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "baseline_table",
		Defn: load.ViewDefn{
			Type: TableView,
			Tables: []load.TableDefn{
				{Table: "mozdata.fenix.baseline", Channel: "release"},
				{Table: "mozdata.fenix.baseline", Channel: "beta"},
			},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	view := file.Views[0]
	assert.Equal(t, "`{% parameter channel %}`", view.SQLTableName)
	require.Len(t, view.Parameters, 1)
	assert.Equal(t, "unquoted", view.Parameters[0].Type)
	assert.Len(t, view.Parameters[0].AllowedValues, 2)
	assert.Empty(t, view.Measures, "table views carry no measures")
}

func TestGenerateEventsView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "events",
		Defn: load.ViewDefn{
			Type: EventsView,
			Tables: []load.TableDefn{{
				EventsTableView: "events_unnested_table",
				BaseTable:       "mozdata.fenix.events_unnested",
			}},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"events_unnested_table.view.lkml"}, file.Includes)
	view := file.Views[0]
	assert.Equal(t, []string{"events_unnested_table"}, view.Extends)
	require.Len(t, view.Dimensions, 1)
	assert.Equal(t, "event_id", view.Dimensions[0].Name)
	assert.True(t, view.Dimensions[0].PrimaryKey)
	require.Len(t, view.Measures, 2)
	assert.Equal(t, "event_count", view.Measures[0].Name)
	assert.Equal(t, "client_count", view.Measures[1].Name)
}

func TestGenerateClientCountsView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "client_counts",
		Defn: load.ViewDefn{
			Type:   ClientCountsView,
			Tables: []load.TableDefn{{Table: "mozdata.fenix.baseline_clients_daily"}},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	view := file.Views[0]
	assert.Equal(t, []string{"baseline_clients_daily_table"}, view.Extends)
	require.Len(t, view.DimensionGroups, 1)
	assert.Equal(t, "since_first_seen", view.DimensionGroups[0].Name)
	assert.Equal(t, "duration", view.DimensionGroups[0].Type)
	assert.Equal(t, []string{"day", "week", "month", "year"}, view.DimensionGroups[0].Intervals)
	require.Len(t, view.Measures, 1)
	assert.Equal(t, "client_count", view.Measures[0].Name)
}

func TestGenerateFunnelAnalysisView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "funnel_analysis",
		Defn: load.ViewDefn{
			Type:   FunnelAnalysisView,
			Tables: []load.TableDefn{{Table: "mozdata.fenix.events_daily"}},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	var names []string
	for _, v := range file.Views {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{
		"funnel_analysis", "event_types", "step_1", "step_2", "step_3", "step_4", "event_names",
	}, names)

	funnel := file.Views[0]
	require.Len(t, funnel.Dimensions, 4)
	assert.Equal(t, "completed_step_1", funnel.Dimensions[0].Name)
	require.Len(t, funnel.Measures, 8)
	assert.Len(t, funnel.Measures[2].Filters, 3, "step 3 count filters on steps 1-3")
	assert.Equal(t, "fraction_completed_step_4", funnel.Measures[7].Name)

	assert.Contains(t, file.Views[1].DerivedTableSQL, "`mozdata.fenix.event_types`")
}

func TestGenerateOperationalMonitoringView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "operational_monitoring",
		Name:      "fission",
		Defn: load.ViewDefn{
			Type: OperationalView,
			Tables: []load.TableDefn{{
				Table: "moz-fx-data-shared-prod.operational_monitoring.fission_statistics",
				Xaxis: "build_id",
				Dimensions: map[string]load.DimensionDefault{
					"cores_count": {Default: "4", Options: []string{"4", "1"}},
				},
			}},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	view := file.Views[0]
	require.NotEmpty(t, view.Dimensions)
	xaxis := view.Dimensions[0]
	assert.Equal(t, "build_id", xaxis.Name)
	assert.Equal(t, "PARSE_DATE('%Y%m%d', CAST(${TABLE}.build_id AS STRING))", xaxis.SQL)
	assert.Equal(t, "no", xaxis.ConvertTZ)

	var names []string
	for _, d := range view.Dimensions[1:] {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"branch", "cores_count", "metric", "statistic", "parameter"}, names)
	assert.NotContains(t, names, "point")

	require.Len(t, view.Measures, 3)
	assert.Equal(t, "point", view.Measures[0].Name)
	assert.Equal(t, "sum", view.Measures[0].Type)
}

func TestGenerateMetricDefinitionsView(t *testing.T) {
	cfg, err := load.ParseMetricsConfig(map[string]string{"fenix": `
[metrics.uri_count]
data_source = "baseline"
select_expression = "SUM(metrics.counter.events_total_uri_count)"
friendly_name = "URI Count"

[metrics.uri_count.statistics.percentile]

[data_sources.baseline]
from_expression = "mozdata.{dataset}.baseline"
default_dataset = "fenix"
`})
	require.NoError(t, err)

	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "metric_definitions_baseline",
		Defn:      load.ViewDefn{Type: MetricDefinitions},
		Schemas:   testSchemas(),
		Metrics:   cfg,
	})
	require.NoError(t, err)
	require.Len(t, file.Views, 1)

	view := file.Views[0]
	assert.Contains(t, view.DerivedTableSQL, "SUM(metrics.counter.events_total_uri_count) AS uri_count")
	assert.Contains(t, view.DerivedTableSQL, "FROM mozdata.fenix.baseline AS m")

	require.Len(t, view.Dimensions, 2)
	assert.Equal(t, "uri_count", view.Dimensions[1].Name)
	assert.Equal(t, "URI Count", view.Dimensions[1].Label)
	require.Len(t, view.Measures, 1)
	assert.Equal(t, "uri_count_percentile", view.Measures[0].Name)
	assert.Equal(t, "median", view.Measures[0].Type)
}

func TestGenerateGrowthAccountingView(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "growth_accounting",
		Defn: load.ViewDefn{
			Type: GrowthAccounting,
			Tables: []load.TableDefn{
				{Table: "mozdata.fenix.baseline_clients_last_seen"},
			},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)
	require.Len(t, file.Views, 1)

	view := file.Views[0]
	assert.Equal(t, "`mozdata.fenix.baseline_clients_last_seen`", view.SQLTableName)

	byName := make(map[string]Dimension)
	for _, d := range view.Dimensions {
		byName[d.Name] = d
	}
	assert.Contains(t, byName, "os", "table columns surface as dimensions")
	assert.Equal(t, "mozfun.bits28.active_in_range(days_seen_bits, -6, 7)", byName["active_this_week"].SQL)
	assert.Equal(t, "mozfun.bits28.active_in_range(days_seen_bits, -13, 7)", byName["active_last_week"].SQL)
	assert.True(t, byName["new_this_week"].Hidden)
	assert.True(t, byName["client_id_day"].PrimaryKey)
	assert.Equal(t,
		"CONCAT(CAST(${TABLE}.submission_date AS STRING), ${client_id})",
		byName["client_id_day"].SQL)

	measures := make(map[string]Measure)
	for _, m := range view.Measures {
		measures[m.Name] = m
	}
	require.Len(t, view.Measures, 20)
	assert.Equal(t, []lkml.Filter{{Key: "active_last_week", Value: "yes"}},
		measures["overall_active_previous"].Filters)
	assert.Equal(t, []lkml.Filter{
		{Key: "new_last_week", Value: "no"},
		{Key: "new_this_week", Value: "no"},
		{Key: "active_last_week", Value: "no"},
		{Key: "active_this_week", Value: "yes"},
	}, measures["overall_resurrected"].Filters)
	assert.Equal(t,
		"SAFE_DIVIDE(${new_users} + ${overall_resurrected},"+
			"${established_users_churned_count} + ${new_users_churned_count})",
		measures["quick_ratio"].SQL)
	assert.Equal(t, "-1 * ${new_users_churned_count}", measures["new_users_churned"].SQL)
}

func TestGrowthAccountingIdentifierOverride(t *testing.T) {
	file, err := Generate(context.Background(), &Request{
		Namespace: "fenix",
		Name:      "growth_accounting",
		Defn: load.ViewDefn{
			Type:            GrowthAccounting,
			IdentifierField: "user_id",
			Tables: []load.TableDefn{
				{Table: "mozdata.fenix.baseline_clients_last_seen"},
			},
		},
		Schemas: testSchemas(),
	})
	require.NoError(t, err)

	byName := make(map[string]Dimension)
	for _, d := range file.Views[0].Dimensions {
		byName[d.Name] = d
	}
	require.Contains(t, byName, "user_id_day")
	assert.Equal(t,
		"CONCAT(CAST(${TABLE}.submission_date AS STRING), ${user_id})",
		byName["user_id_day"].SQL)
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate(context.Background(), &Request{
		Name: "bad",
		Defn: load.ViewDefn{Type: "retention_view"},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown view type"))
}
