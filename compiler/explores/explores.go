// Package explores wires generated views into LookML explores. Each explore
// kind has a generator in the Types dispatch table. Generators work over the
// in-memory view files of the namespace, so join keys are checked against the
// dimensions a view actually exposes before anything renders.
package explores

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/views"
	"github.com/syssam/lookgen/lkml"
)

// Explore kinds. The set is closed.
const (
	PingExplore           = "ping_explore"
	TableExplore          = "table_explore"
	ClientCountsExplore   = "client_counts_explore"
	EventsExplore         = "events_explore"
	FunnelAnalysisExplore = "funnel_analysis_explore"
	GrowthAccounting      = "growth_accounting_explore"
	MetricDefinitions     = "metric_definitions_explore"
	OperationalExplore    = "operational_monitoring_explore"
	OperationalAlerting   = "operational_monitoring_alerting_explore"
)

// Request carries everything one explore generation needs.
type Request struct {
	// Namespace is the owning namespace identifier.
	Namespace string
	// Name is the explore name inside the namespace.
	Name string
	// Defn is the resolved definition of this explore.
	Defn load.ExploreDefn
	// Views holds the generated view files of the namespace by view name.
	Views map[string]*views.File
	// Hidden marks the explore hidden in the field picker.
	Hidden bool
}

// Generator produces the explore file of one explore kind.
type Generator func(req *Request) (*File, error)

// Types dispatches explore generation by kind.
var Types = map[string]Generator{
	PingExplore:           generatePingExplore,
	TableExplore:          generateTableExplore,
	ClientCountsExplore:   generateClientCountsExplore,
	EventsExplore:         generateEventsExplore,
	FunnelAnalysisExplore: generateFunnelAnalysisExplore,
	GrowthAccounting:      generateGrowthAccountingExplore,
	MetricDefinitions:     generateMetricDefinitionsExplore,
	OperationalExplore:    generateOperationalExplore,
	OperationalAlerting:   generateOperationalAlertingExplore,
}

// Generate renders one explore by dispatching on its kind.
func Generate(req *Request) (*File, error) {
	generator, ok := Types[req.Defn.Type]
	if !ok {
		return nil, lookgen.NewConfigError("explores", req.Defn.Type,
			"unknown explore type for explore "+req.Name)
	}
	file, err := generator(req)
	if err != nil {
		return nil, err
	}
	finish(req, file)
	return file, nil
}

// finish applies the cross-kind invariants: the hidden flag, the include list
// naming exactly the dependent view files, and the time partitioning guard
// that keeps filter-only queries cheap.
func finish(req *Request, file *File) {
	if len(file.Explores) == 0 {
		return
	}
	first := file.Explores[0]
	if req.Hidden {
		first.Hidden = true
	}
	if first.SQLAlwaysWhere == "" {
		baseView := req.Defn.Views["base_view"]
		for _, role := range []string{"base_view", "extended_view"} {
			view, ok := req.Defn.Views[role]
			if !ok {
				continue
			}
			if group := timePartitioningGroup(req.Views[view], view); group != "" {
				first.SQLAlwaysWhere = fmt.Sprintf("${%s.%s_date} >= '2010-01-01'", baseView, group)
			}
		}
	}
	for _, view := range file.dependentViews(req) {
		file.Includes = append(file.Includes,
			fmt.Sprintf("/looker-hub/%s/views/%s.view.lkml", req.Namespace, view))
	}
}

// dependentViews lists the views Looker must load for this file: the base
// view and explicitly joined views, not extended ones, which the base view
// file already includes.
func (f *File) dependentViews(req *Request) []string {
	var out []string
	if base, ok := req.Defn.Views["base_view"]; ok {
		out = append(out, base)
	}
	for _, explore := range f.Explores {
		for _, join := range explore.Joins {
			if join.External {
				out = append(out, join.Name)
			}
		}
	}
	return out
}

var filterEscape = regexp.MustCompile(`((?:^-)|["_%,^])`)

// escapeFilterExpr escapes characters Looker treats specially in filter
// expressions.
func escapeFilterExpr(expr string) string {
	return filterEscape.ReplaceAllString(expr, "^$1")
}

// viewDefn finds the named view block inside a generated view file.
func viewDefn(file *views.File, name string) *views.Defn {
	if file == nil {
		return nil
	}
	for _, v := range file.Views {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// timePartitioningGroup returns the name of the time dimension group a view
// is partitioned on, "submission" when present.
func timePartitioningGroup(file *views.File, view string) string {
	defn := viewDefn(file, view)
	if defn == nil {
		return ""
	}
	for _, g := range defn.DimensionGroups {
		if g.Name == "submission" {
			return "submission"
		}
	}
	return ""
}

// hasDimension reports whether a view exposes a dimension with this name.
func hasDimension(file *views.File, view, name string) bool {
	defn := viewDefn(file, view)
	if defn == nil {
		return false
	}
	for _, d := range defn.Dimensions {
		if d.Name == name {
			return true
		}
	}
	return false
}

// defaultChannel returns the escaped default of a view's channel filter.
func defaultChannel(file *views.File, view string) string {
	defn := viewDefn(file, view)
	if defn == nil {
		return ""
	}
	for _, f := range defn.Filters {
		if f.Name == "channel" && len(f.Suggestions) > 0 {
			return escapeFilterExpr(f.Suggestions[0])
		}
	}
	return ""
}

// requiredFilters builds the always_filter entries of a view: the default
// channel when the view has one, and a four week submission window when it is
// time partitioned.
func requiredFilters(file *views.File, view string) []lkml.Filter {
	var filters []lkml.Filter
	if channel := defaultChannel(file, view); channel != "" {
		filters = append(filters, lkml.Filter{Key: "channel", Value: channel})
	}
	if group := timePartitioningGroup(file, view); group != "" {
		filters = append(filters, lkml.Filter{Key: group + "_date", Value: "28 days"})
	}
	return filters
}

// unnestedJoins derives one_to_many joins for the nested unnest views of the
// base view file. Names resolve backwards so doubly nested records join
// through their parent view.
func unnestedJoins(req *Request) ([]Join, error) {
	base, ok := req.Defn.Views["base_view"]
	if !ok {
		return nil, lookgen.NewConfigError("explores", req.Name, "explore has no base_view")
	}
	file := req.Views[base]
	if file == nil || len(file.Views) == 0 {
		return nil, lookgen.NewConfigError("explores", req.Name,
			fmt.Sprintf("explore references unknown view %q", base))
	}

	known := make(map[string]bool, len(file.Views))
	parent := file.Views[0].Name
	nested := file.Views[1:]
	for _, v := range file.Views {
		known[v.Name] = true
	}
	if extended, ok := req.Defn.Views["extended_view"]; ok {
		if extFile := req.Views[extended]; extFile != nil {
			for _, v := range extFile.Views {
				known[v.Name] = true
			}
			if len(extFile.Views) > 1 {
				nested = append(nested, extFile.Views[1:]...)
			}
		}
	}

	var joins []Join
	for _, view := range nested {
		baseName, metric, err := splitNestedName(view.Name, known)
		if err != nil {
			return nil, err
		}
		label := views.SlugToTitle(view.Name)
		if extended, ok := req.Defn.Views["extended_view"]; ok && baseName == extended {
			// Extended view names are overridden by the extending view.
			label = views.SlugToTitle(parent + metricSuffix(view.Name, baseName))
			baseName = parent
		}
		joins = append(joins, Join{
			Name:         view.Name,
			ViewLabel:    label,
			Relationship: "one_to_many",
			SQL:          fmt.Sprintf("LEFT JOIN UNNEST(${%s.%s}) AS %s ", baseName, metric, view.Name),
		})
	}
	return joins, nil
}

func metricSuffix(viewName, baseName string) string {
	return viewName[len(baseName):]
}

// splitNestedName resolves a nested view name like sync__payload__events into
// its parent view and the repeated column joined through, walking backwards
// so deeper nesting binds to the nearest existing parent.
func splitNestedName(name string, known map[string]bool) (string, string, error) {
	parts := strings.Split(name, "__")
	for i := len(parts) - 1; i > 0; i-- {
		baseView := strings.Join(parts[:i], "__")
		if known[baseView] {
			return baseView, strings.Join(parts[i:], "__"), nil
		}
	}
	return "", "", lookgen.NewConfigError("explores", name, "cannot resolve nested view parent")
}
