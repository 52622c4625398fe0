// Package views turns table schemas and namespace definitions into LookML
// view files. Each view kind has a generator in the Types dispatch table;
// dimension inference is shared and a pure function of column schema.
package views

import (
	"context"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/schema"
)

// View kinds. The set is closed: namespace documents naming any other kind
// fail resolution.
const (
	PingView            = "ping_view"
	TableView           = "table_view"
	ClientCountsView    = "client_counts_view"
	EventsView          = "events_view"
	FunnelAnalysisView  = "funnel_analysis_view"
	GrowthAccounting    = "growth_accounting_view"
	MetricDefinitions   = "metric_definitions_view"
	OperationalView     = "operational_monitoring_view"
	OperationalAlerting = "operational_monitoring_alerting_view"
)

// Request carries everything one view generation needs.
type Request struct {
	// Namespace is the owning namespace identifier.
	Namespace string
	// Name is the view name inside the namespace.
	Name string
	// Defn is the resolved definition of this view.
	Defn load.ViewDefn
	// Schemas resolves fully qualified table names to column schemas.
	Schemas load.SchemaSource
	// Metrics holds metric-hub definitions, used by metric definition views.
	Metrics *load.MetricsConfig
}

// Generator produces the view file of one view kind.
type Generator func(ctx context.Context, req *Request) (*File, error)

// Types dispatches view generation by kind.
var Types = map[string]Generator{
	PingView:            generatePingView,
	TableView:           generateTableView,
	ClientCountsView:    generateClientCountsView,
	EventsView:          generateEventsView,
	FunnelAnalysisView:  generateFunnelAnalysisView,
	GrowthAccounting:    generateGrowthAccountingView,
	MetricDefinitions:   generateMetricDefinitionsView,
	OperationalView:     generateOperationalView,
	OperationalAlerting: generateOperationalAlertingView,
}

// Generate renders one view by dispatching on its kind.
func Generate(ctx context.Context, req *Request) (*File, error) {
	generator, ok := Types[req.Defn.Type]
	if !ok {
		return nil, lookgen.NewConfigError("views", req.Defn.Type,
			"unknown view type for view "+req.Name)
	}
	return generator(ctx, req)
}

// releaseTable picks the table whose schema a multi-channel view renders
// from: the release channel when present, otherwise the first.
func releaseTable(defn load.ViewDefn) load.TableDefn {
	for _, t := range defn.Tables {
		if t.Channel == "release" {
			return t
		}
	}
	return defn.Tables[0]
}

func tableSchema(ctx context.Context, req *Request, fqn string) (*schema.Table, error) {
	project, dataset, table, err := schema.ParseTableName(fqn)
	if err != nil {
		return nil, err
	}
	return req.Schemas.TableSchema(ctx, project, dataset, table)
}

// channelSuggestions lists the distinct channels of a view's tables in
// declaration order.
func channelSuggestions(defn load.ViewDefn) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range defn.Tables {
		if t.Channel == "" || seen[t.Channel] {
			continue
		}
		seen[t.Channel] = true
		out = append(out, t.Channel)
	}
	return out
}
