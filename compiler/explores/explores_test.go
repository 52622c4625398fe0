package explores

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/views"
	"github.com/syssam/lookgen/lkml"
)

func baselineFile(withClientID bool) *views.File {
	view := &views.Defn{
		Name: "baseline",
		Dimensions: []views.Dimension{
			{Name: "os", Type: "string"},
		},
		DimensionGroups: []views.DimensionGroup{
			{Name: "submission", Type: "time"},
		},
		Filters: []views.FilterField{{
			Name:        "channel",
			Type:        "string",
			Suggestions: []string{"release", "beta"},
		}},
	}
	if withClientID {
		view.Dimensions = append(view.Dimensions, views.Dimension{Name: "client_id", Hidden: true})
	}
	return &views.File{Views: []*views.Defn{
		view,
		{Name: "baseline__experiments", Dimensions: []views.Dimension{{Name: "branch"}}},
	}}
}

func eventsFile() *views.File {
	return &views.File{Views: []*views.Defn{{
		Name:       "events",
		Extends:    []string{"events_unnested_table"},
		Dimensions: []views.Dimension{{Name: "event_id", PrimaryKey: true}, {Name: "client_id", Hidden: true}},
	}}}
}

func eventsTableFile() *views.File {
	return &views.File{Views: []*views.Defn{{
		Name:       "events_unnested_table",
		Dimensions: []views.Dimension{{Name: "event_category"}, {Name: "client_id", Hidden: true}},
		DimensionGroups: []views.DimensionGroup{
			{Name: "submission", Type: "time"},
		},
	}}}
}

func TestGeneratePingExplore(t *testing.T) {
	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "baseline",
		Defn: load.ExploreDefn{
			Type:  PingExplore,
			Views: map[string]string{"base_view": "baseline"},
		},
		Views: map[string]*views.File{"baseline": baselineFile(true)},
	})
	require.NoError(t, err)
	require.Len(t, file.Explores, 1)

	explore := file.Explores[0]
	assert.Equal(t, "baseline", explore.ViewName)
	assert.Equal(t, []lkml.Filter{
		{Key: "channel", Value: "release"},
		{Key: "submission_date", Value: "28 days"},
	}, explore.AlwaysFilters)
	assert.Equal(t, "${baseline.submission_date} >= '2010-01-01'", explore.SQLAlwaysWhere)

	require.Len(t, explore.Joins, 1)
	join := explore.Joins[0]
	assert.Equal(t, "baseline__experiments", join.Name)
	assert.Equal(t, "one_to_many", join.Relationship)
	assert.Equal(t, "LEFT JOIN UNNEST(${baseline.experiments}) AS baseline__experiments ", join.SQL)

	assert.Equal(t, []string{"/looker-hub/fenix/views/baseline.view.lkml"}, file.Includes)
}

func TestChannelDefaultEscaped(t *testing.T) {
	base := baselineFile(true)
	base.Views[0].Filters[0].Suggestions = []string{"release_v2"}
	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "baseline",
		Defn: load.ExploreDefn{
			Type:  PingExplore,
			Views: map[string]string{"base_view": "baseline"},
		},
		Views: map[string]*views.File{"baseline": base},
	})
	require.NoError(t, err)
	assert.Equal(t, "release^_v2", file.Explores[0].AlwaysFilters[0].Value)
}

func TestGenerateEventsExploreJoinsBaseline(t *testing.T) {
	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "events",
		Defn: load.ExploreDefn{
			Type: EventsExplore,
			Views: map[string]string{
				"base_view":     "events",
				"extended_view": "events_unnested_table",
				"joined_view":   "baseline",
			},
		},
		Views: map[string]*views.File{
			"events":                eventsFile(),
			"events_unnested_table": eventsTableFile(),
			"baseline":              baselineFile(true),
		},
	})
	require.NoError(t, err)

	explore := file.Explores[0]
	assert.Equal(t, "event_counts", explore.Name)
	assert.Equal(t, "events", explore.ViewName)

	require.Len(t, explore.Joins, 1)
	join := explore.Joins[0]
	assert.Equal(t, "baseline", join.Name)
	assert.Equal(t, "many_to_one", join.Relationship)
	assert.Equal(t, "${events.client_id} = ${baseline.client_id}", join.SQLOn)

	require.Len(t, explore.Queries, 1)
	assert.Equal(t, "all_event_counts", explore.Queries[0].Name)
	assert.Equal(t, []string{"submission_date"}, explore.Queries[0].Dimensions)

	assert.Contains(t, file.Includes, "/looker-hub/fenix/views/events.view.lkml")
	assert.Contains(t, file.Includes, "/looker-hub/fenix/views/baseline.view.lkml")
}

func TestEventsExploreMissingJoinKey(t *testing.T) {
	_, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "events",
		Defn: load.ExploreDefn{
			Type: EventsExplore,
			Views: map[string]string{
				"base_view":     "events",
				"extended_view": "events_unnested_table",
				"joined_view":   "baseline",
			},
		},
		Views: map[string]*views.File{
			"events":                eventsFile(),
			"events_unnested_table": eventsTableFile(),
			"baseline":              baselineFile(false),
		},
	})
	require.Error(t, err)
	assert.True(t, lookgen.IsJoinError(err))
}

func TestGenerateClientCountsExplore(t *testing.T) {
	daily := &views.File{Views: []*views.Defn{{
		Name: "baseline_clients_daily_table",
		Dimensions: []views.Dimension{
			{Name: "app_build", Type: "string"},
		},
		DimensionGroups: []views.DimensionGroup{{Name: "submission", Type: "time"}},
	}}}
	counts := &views.File{Views: []*views.Defn{{
		Name:    "client_counts",
		Extends: []string{"baseline_clients_daily_table"},
	}}}

	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "client_counts",
		Defn: load.ExploreDefn{
			Type: ClientCountsExplore,
			Views: map[string]string{
				"base_view":     "client_counts",
				"extended_view": "baseline_clients_daily_table",
			},
		},
		Views: map[string]*views.File{
			"client_counts":                counts,
			"baseline_clients_daily_table": daily,
		},
	})
	require.NoError(t, err)

	explore := file.Explores[0]
	require.Len(t, explore.Queries, 2)
	assert.Equal(t, "cohort_analysis", explore.Queries[0].Name)
	assert.Equal(t, []string{"first_seen_week"}, explore.Queries[0].Pivots)
	assert.Equal(t, "build_breakdown", explore.Queries[1].Name)
	assert.Equal(t, "${client_counts.submission_date} >= '2010-01-01'", explore.SQLAlwaysWhere)
}

func TestGenerateFunnelAnalysisExplore(t *testing.T) {
	funnel := &views.File{Views: []*views.Defn{
		{Name: "funnel_analysis", Extends: []string{"events_daily_table"}},
		{Name: "event_types"},
		{Name: "step_1", Extends: []string{"event_types"}},
		{Name: "step_2", Extends: []string{"event_types"}},
		{Name: "event_names"},
	}}

	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "funnel_analysis",
		Defn: load.ExploreDefn{
			Type:  FunnelAnalysisExplore,
			Views: map[string]string{"base_view": "funnel_analysis"},
		},
		Views: map[string]*views.File{"funnel_analysis": funnel},
	})
	require.NoError(t, err)
	require.Len(t, file.Explores, 2)

	explore := file.Explores[0]
	require.Len(t, explore.Joins, 2)
	assert.Equal(t, "step_1", explore.Joins[0].Name)
	assert.Equal(t, "cross", explore.Joins[0].Type)
	assert.Equal(t, "many_to_one", explore.Joins[0].Relationship)

	assert.Equal(t, "event_names", file.Explores[1].Name)
	assert.True(t, file.Explores[1].Hidden)
}

func TestGenerateOperationalExplore(t *testing.T) {
	statistics := &views.File{Views: []*views.Defn{{
		Name: "fission",
		Dimensions: []views.Dimension{
			{Name: "build_id"}, {Name: "branch"}, {Name: "cores_count"},
			{Name: "metric"}, {Name: "parameter"}, {Name: "statistic"},
		},
	}}}
	file, err := Generate(&Request{
		Namespace: "operational_monitoring",
		Name:      "fission",
		Defn: load.ExploreDefn{
			Type:     OperationalExplore,
			Views:    map[string]string{"base_view": "fission"},
			Branches: []string{"enabled", "disabled"},
			Xaxis:    "build_id",
			Dimensions: map[string]load.DimensionDefault{
				"cores_count": {Default: "4", Options: []string{"4", "1"}},
			},
			Summaries: []load.Summary{
				{Metric: "gc_ms", Statistic: "mean"},
				{Metric: "gc_ms", Statistic: "percentile"},
			},
		},
		Views: map[string]*views.File{"fission": statistics},
	})
	require.NoError(t, err)

	explore := file.Explores[0]
	assert.True(t, explore.Hidden)
	assert.Equal(t, []lkml.Filter{{Key: "branch", Value: "enabled, disabled"}}, explore.AlwaysFilters)

	require.Len(t, explore.AggregateTables, 1, "one rollup per distinct metric")
	rollup := explore.AggregateTables[0]
	assert.Equal(t, "rollup_gc_ms", rollup.Name)
	assert.Equal(t, []string{"build_id", "branch"}, rollup.Query.Dimensions)
	assert.Contains(t, rollup.Query.Filters, lkml.Filter{Key: "fission.parameter", Value: "50"})
	assert.Contains(t, rollup.Query.Filters, lkml.Filter{Key: "fission.cores_count", Value: "4"})
	assert.Contains(t, rollup.Query.Filters, lkml.Filter{Key: "fission.metric", Value: "gc_ms"})

	declared := make(map[string]bool)
	for _, dim := range statistics.Views[0].Dimensions {
		declared[dim.Name] = true
	}
	for _, filter := range rollup.Query.Filters {
		field := strings.TrimPrefix(filter.Key, "fission.")
		assert.True(t, declared[field], "rollup filter %s must name a view dimension", filter.Key)
	}
}

func TestGenerateGrowthAccountingExplore(t *testing.T) {
	growth := &views.File{Views: []*views.Defn{{
		Name: "growth_accounting",
		Dimensions: []views.Dimension{
			{Name: "client_id", Hidden: true},
			{Name: "os", Type: "string"},
			{Name: "active_this_week", Type: "yesno", Hidden: true},
		},
		DimensionGroups: []views.DimensionGroup{
			{Name: "submission", Type: "time"},
		},
	}}}
	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "growth_accounting",
		Defn: load.ExploreDefn{
			Type:  GrowthAccounting,
			Views: map[string]string{"base_view": "growth_accounting"},
		},
		Views: map[string]*views.File{"growth_accounting": growth},
	})
	require.NoError(t, err)
	require.Len(t, file.Explores, 1)

	explore := file.Explores[0]
	assert.Equal(t, "growth_accounting", explore.Name)
	assert.Equal(t, "growth_accounting", explore.ViewName)
	assert.Empty(t, explore.AlwaysFilters)
	assert.Equal(t, "${growth_accounting.submission_date} >= '2010-01-01'", explore.SQLAlwaysWhere)
	assert.Equal(t, []string{"/looker-hub/fenix/views/growth_accounting.view.lkml"}, file.Includes)
}

func TestAlertingExploreUnknownView(t *testing.T) {
	_, err := Generate(&Request{
		Namespace: "operational_monitoring",
		Name:      "fission_alerts",
		Defn: load.ExploreDefn{
			Type:  OperationalAlerting,
			Views: map[string]string{"base_view": "fission_alerts"},
		},
		Views: map[string]*views.File{},
	})
	require.Error(t, err)
	assert.True(t, lookgen.IsJoinError(err))
}

func TestRenderExploreFile(t *testing.T) {
	file, err := Generate(&Request{
		Namespace: "fenix",
		Name:      "baseline",
		Defn: load.ExploreDefn{
			Type:  PingExplore,
			Views: map[string]string{"base_view": "baseline"},
		},
		Views: map[string]*views.File{"baseline": baselineFile(true)},
	})
	require.NoError(t, err)

	rendered := file.Render()
	assert.Contains(t, rendered, `include: "/looker-hub/fenix/views/baseline.view.lkml"`)
	assert.Contains(t, rendered, "explore: baseline {")
	assert.Contains(t, rendered, `always_filter: {`)
	assert.Contains(t, rendered, `filters: [channel: "release", submission_date: "28 days"]`)
	assert.Equal(t, rendered, file.Render(), "rendering is deterministic")
}
