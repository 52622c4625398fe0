// Package dashboards builds dashboard element graphs from metric summaries
// and renders them through the embedded template. Element construction is
// split into an expanded and a compact strategy, chosen once per dashboard,
// so the listen map and filter set invariants live in one place each.
package dashboards

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/views"
)

// Dashboard kinds. The set is closed.
const (
	OperationalDashboard = "operational_monitoring_dashboard"
)

// Request carries everything one dashboard generation needs.
type Request struct {
	// Namespace is the owning namespace identifier, also the model name
	// dashboard filters bind against.
	Namespace string
	// Name is the dashboard name inside the namespace.
	Name string
	// Defn is the resolved definition of this dashboard.
	Defn load.DashboardDefn
	// Explores holds the explore definitions of the namespace, used to find
	// the base view behind each referenced explore.
	Explores map[string]load.ExploreDefn
	// Views holds the generated view files of the namespace by view name.
	Views map[string]*views.File
}

// Generator produces the dashboard of one dashboard kind.
type Generator func(req *Request) (*Dashboard, error)

// Types dispatches dashboard generation by kind.
var Types = map[string]Generator{
	OperationalDashboard: generateOperationalDashboard,
}

// Generate builds one dashboard by dispatching on its kind.
func Generate(req *Request) (*Dashboard, error) {
	generator, ok := Types[req.Defn.Type]
	if !ok {
		return nil, lookgen.NewConfigError("dashboards", req.Defn.Type,
			"unknown dashboard type for dashboard "+req.Name)
	}
	return generator(req)
}

// generateOperationalDashboard builds the monitoring dashboard: one graph
// tile per metric summary (or per statistic when compact), single-select
// filters for breakdown dimensions, a multi-select filter for the group-by
// dimension, and the trailing alerts grid when an alerts table is configured.
func generateOperationalDashboard(req *Request) (*Dashboard, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("dashboards", req.Name, "dashboard has no tables")
	}
	lead := &req.Defn.Tables[0]

	dash := &Dashboard{
		Name:   req.Name,
		Title:  req.Defn.Title,
		Layout: "newspaper",
	}

	graphIndex := 0
	var alertsTable *load.DashboardTableDefn
	for i := range req.Defn.Tables {
		table := &req.Defn.Tables[i]
		dash.Includes = append(dash.Includes,
			fmt.Sprintf("/looker-hub/%s/explores/%s.explore.lkml", req.Namespace, table.Explore))

		if strings.HasSuffix(table.Table, "alerts") {
			alertsTable = table
			continue
		}

		if err := checkBindings(req, table, lead); err != nil {
			return nil, err
		}

		build := buildExpandedElements
		if lead.CompactVisualization {
			build = buildCompactElements
		}
		elements, err := build(req, table, lead, &graphIndex)
		if err != nil {
			return nil, err
		}
		dash.Elements = append(dash.Elements, elements...)
	}

	dash.Filters = dashboardFilters(req, lead, dash.Elements)

	if alertsTable != nil {
		alerts, err := alertsElement(req, alertsTable, graphIndex)
		if err != nil {
			return nil, err
		}
		dash.Alerts = alerts
	}

	return dash, nil
}

// checkBindings verifies every field the table's elements will reference
// against the dimensions and measures its explore's base view actually
// exposes, so a broken reference fails generation instead of rendering.
// Listen maps and pivots bind to the lead table's breakdown dimensions, so
// those must exist on every table's base view, not just the lead's.
func checkBindings(req *Request, table, lead *load.DashboardTableDefn) error {
	base := req.Explores[table.Explore].Views["base_view"]
	file, ok := req.Views[base]
	if !ok {
		return lookgen.NewBindingError(req.Name, table.Explore, table.Explore, base)
	}

	required := []string{xaxisOf(table), "branch", "metric", "statistic"}
	for name := range table.Dimensions {
		required = append(required, name)
	}
	for name := range lead.Dimensions {
		if _, own := table.Dimensions[name]; !own {
			required = append(required, name)
		}
	}
	for _, field := range required {
		if !exposesField(file, base, field) {
			return lookgen.NewBindingError(req.Name, table.Explore, table.Explore, field)
		}
	}
	for _, measure := range []string{"point", "upper", "lower"} {
		if !exposesMeasure(file, base, measure) {
			return lookgen.NewBindingError(req.Name, table.Explore, table.Explore, measure)
		}
	}
	return nil
}

func exposesField(file *views.File, view, name string) bool {
	for _, v := range file.Views {
		if v.Name != view {
			continue
		}
		for _, d := range v.Dimensions {
			if d.Name == name {
				return true
			}
		}
	}
	return false
}

func exposesMeasure(file *views.File, view, name string) bool {
	for _, v := range file.Views {
		if v.Name != view {
			continue
		}
		for _, m := range v.Measures {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func xaxisOf(table *load.DashboardTableDefn) string {
	if table.Xaxis != "" {
		return table.Xaxis
	}
	return "build_id"
}

// summaryTile is one (title, metric expression, statistic) triple an element
// is built from, after metric groups are folded together.
type summaryTile struct {
	title     string
	metric    string
	statistic string
}

// summaryTiles folds the table's summaries into tiles: summaries sharing a
// metric group collapse into one tile per (group, statistic) whose metric
// expression lists every group member.
func summaryTiles(table *load.DashboardTableDefn) []summaryTile {
	groups := make(map[string][]string)
	for _, summary := range table.Summaries {
		for _, group := range summary.MetricGroups {
			if !contains(groups[group], summary.Metric) {
				groups[group] = append(groups[group], summary.Metric)
			}
		}
	}

	seen := make(map[string]bool)
	var tiles []summaryTile
	for _, summary := range table.Summaries {
		metricGroups := summary.MetricGroups
		if len(metricGroups) == 0 {
			tiles = append(tiles, summaryTile{
				title:     views.SlugToTitle(summary.Metric),
				metric:    summary.Metric,
				statistic: summary.Statistic,
			})
			continue
		}
		for _, group := range metricGroups {
			key := group + "\x00" + summary.Statistic
			if seen[key] {
				continue
			}
			seen[key] = true
			quoted := make([]string, len(groups[group]))
			for i, m := range groups[group] {
				quoted[i] = fmt.Sprintf("%q", m)
			}
			tiles = append(tiles, summaryTile{
				title:     views.SlugToTitle(group),
				metric:    strings.Join(quoted, ", "),
				statistic: summary.Statistic,
			})
		}
	}
	return tiles
}

// buildExpandedElements emits one element per summary tile with the metric
// and statistic baked into the element filters.
func buildExpandedElements(req *Request, table, lead *load.DashboardTableDefn, graphIndex *int) ([]Element, error) {
	var elements []Element
	for _, tile := range summaryTiles(table) {
		title := tile.title
		if lead.GroupByDimension != "" {
			title = fmt.Sprintf("%s - By %s", title, lead.GroupByDimension)
		}
		element := newElement(table, lead, title, tile.statistic)
		element.Filters = []ElementFilter{
			{Field: table.Explore + ".metric", Value: fmt.Sprintf("'%s'", tile.metric)},
			{Field: table.Explore + ".statistic", Value: tile.statistic},
		}
		element.Row = *graphIndex / 2 * 10
		element.Col = *graphIndex % 2 * 12
		*graphIndex++
		elements = append(elements, element)
	}
	return elements, nil
}

// buildCompactElements emits one element per statistic; the metric choice is
// promoted to a dashboard filter and reaches the element via its listen map.
func buildCompactElements(req *Request, table, lead *load.DashboardTableDefn, graphIndex *int) ([]Element, error) {
	seen := make(map[string]bool)
	var elements []Element
	for _, summary := range table.Summaries {
		if seen[summary.Statistic] {
			continue
		}
		seen[summary.Statistic] = true

		element := newElement(table, lead, "Metric", summary.Statistic)
		element.Filters = []ElementFilter{
			{Field: table.Explore + ".statistic", Value: summary.Statistic},
		}
		element.Listen = append(element.Listen,
			Listen{Name: "Metric", Field: table.Explore + ".metric"})
		element.Row = *graphIndex / 2 * 10
		element.Col = *graphIndex % 2 * 12
		*graphIndex++
		elements = append(elements, element)
	}
	return elements, nil
}

// newElement fills the parts shared by both strategies: widget type, field
// and pivot lists, the listen map and the branch colors.
func newElement(table, lead *load.DashboardTableDefn, title, statistic string) Element {
	explore := table.Explore
	xaxis := xaxisOf(table)
	percentile := statistic == "percentile"

	fields := []string{explore + "." + xaxis, explore + ".branch"}
	if percentile {
		fields = append(fields, explore+".upper", explore+".lower")
	}
	fields = append(fields, explore+".point")

	pivots := []string{explore + ".branch"}
	if lead.GroupByDimension != "" {
		pivots = append(pivots, explore+"."+lead.GroupByDimension)
	}

	widget := "looker_line"
	if percentile {
		widget = `"ci-line-chart"`
	}

	listen := []Listen{{Name: "Date", Field: explore + "." + xaxis}}
	if percentile {
		listen = append(listen, Listen{Name: "Percentile", Field: explore + ".parameter"})
	}
	for _, name := range sortedDimensionNames(lead.Dimensions) {
		listen = append(listen, Listen{Name: views.SlugToTitle(name), Field: explore + "." + name})
	}

	return Element{
		Title:        title,
		Name:         title + "_" + statistic,
		NoteText:     views.SlugToTitle(statistic),
		Explore:      explore,
		Widget:       widget,
		Fields:       fields,
		Pivots:       pivots,
		FieldX:       explore + "." + xaxis,
		FieldY:       explore + ".point",
		CILower:      explore + ".lower",
		CIUpper:      explore + ".upper",
		Listen:       listen,
		SeriesColors: SeriesColors(table.Branches),
	}
}

// dashboardFilters assembles the filter list: the Date filter, a Percentile
// filter when any element is a percentile chart, a Metric filter for compact
// dashboards, and one filter per breakdown dimension. The group-by dimension
// becomes a multi-select defaulting to its full sorted option set.
func dashboardFilters(req *Request, lead *load.DashboardTableDefn, elements []Element) []Filter {
	explore := lead.Explore
	xaxis := xaxisOf(lead)

	filters := []Filter{{
		Kind:          fieldFilter,
		Name:          "Date",
		Title:         "Date",
		AllowMultiple: true,
		Model:         req.Namespace,
		Explore:       explore,
		Field:         explore + "." + xaxis,
	}}

	if anyPercentile(elements) {
		filters = append(filters, Filter{
			Kind:     fieldFilter,
			Name:     "Percentile",
			Title:    "Percentile",
			Default:  "50",
			Required: true,
			Model:    req.Namespace,
			Explore:  explore,
			Field:    explore + ".parameter",
		})
	}

	if lead.CompactVisualization {
		filters = append(filters, Filter{
			Kind:     fieldFilter,
			Name:     "Metric",
			Title:    "Metric",
			Default:  firstMetric(lead),
			Required: true,
			Model:    req.Namespace,
			Explore:  explore,
			Field:    explore + ".metric",
		})
	}

	for _, name := range sortedDimensionNames(lead.Dimensions) {
		info := lead.Dimensions[name]
		title := views.SlugToTitle(name)
		if name == lead.GroupByDimension {
			options := append([]string(nil), info.Options...)
			sort.Strings(options)
			filters = append(filters, Filter{
				Kind:          stringFilter,
				Name:          title,
				Title:         title,
				Default:       strings.Join(options, ","),
				AllowMultiple: true,
				Required:      true,
				UIType:        "advanced",
				Options:       options,
			})
			continue
		}
		filters = append(filters, Filter{
			Kind:     stringFilter,
			Name:     title,
			Title:    title,
			Default:  info.Default,
			Required: true,
			UIType:   "dropdown_menu",
			Options:  info.Options,
		})
	}
	return filters
}

// alertsElement builds the trailing alerts grid over the alerting explore,
// showing every column of the alerts view, newest first.
func alertsElement(req *Request, table *load.DashboardTableDefn, graphIndex int) (*Alerts, error) {
	base := req.Explores[table.Explore].Views["base_view"]
	file, ok := req.Views[base]
	if !ok || len(file.Views) == 0 {
		return nil, lookgen.NewBindingError(req.Name, "Alerts", table.Explore, base)
	}

	var fields []string
	for _, d := range file.Views[0].Dimensions {
		fields = append(fields, table.Explore+"."+d.Name)
	}
	date := table.Explore + ".submission_date"
	return &Alerts{
		Explore: table.Explore,
		Fields:  fields,
		Sort:    date + " desc",
		Date:    date,
		Row:     graphIndex / 2 * 10,
		Col:     0,
	}, nil
}

func anyPercentile(elements []Element) bool {
	for _, e := range elements {
		if e.Widget != "looker_line" {
			return true
		}
	}
	return false
}

// firstMetric picks the lexicographically first summarized metric as the
// compact Metric filter default.
func firstMetric(table *load.DashboardTableDefn) string {
	metrics := make([]string, 0, len(table.Summaries))
	for _, s := range table.Summaries {
		metrics = append(metrics, s.Metric)
	}
	sort.Strings(metrics)
	if len(metrics) == 0 {
		return ""
	}
	return metrics[0]
}

func sortedDimensionNames(dimensions map[string]load.DimensionDefault) []string {
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
