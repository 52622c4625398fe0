package dashboards

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// ElementFilter is one baked-in filter line of an element. Value carries its
// final rendered form, quoting included.
type ElementFilter struct {
	Field string
	Value string
}

// Listen binds one dashboard filter to an explore field of the element.
type Listen struct {
	Name  string
	Field string
}

// Element is one tile of a dashboard.
type Element struct {
	Title        string
	Name         string
	NoteText     string
	Explore      string
	Widget       string
	Fields       []string
	Pivots       []string
	Filters      []ElementFilter
	Row          int
	Col          int
	FieldX       string
	FieldY       string
	CILower      string
	CIUpper      string
	Listen       []Listen
	SeriesColors []SeriesColor
}

// Filter is one dashboard-level filter. Field filters bind to an explore
// field; string filters carry their own option set.
type Filter struct {
	Kind          string
	Name          string
	Title         string
	Default       string
	AllowMultiple bool
	Required      bool
	UIType        string
	Model         string
	Explore       string
	Field         string
	Options       []string
}

const (
	fieldFilter  = "field_filter"
	stringFilter = "string_filter"
)

// Alerts is the trailing alerts grid of a dashboard, present when the
// namespace configures an alerting explore.
type Alerts struct {
	Explore string
	Fields  []string
	Sort    string
	Date    string
	Row     int
	Col     int
}

// Dashboard is the built element graph of one dashboard, ready to render.
type Dashboard struct {
	Name     string
	Title    string
	Layout   string
	Elements []Element
	Filters  []Filter
	Alerts   *Alerts
	Includes []string
}

//go:embed dashboard.tmpl
var dashboardTemplateText string

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"fieldList": func(fields []string) string {
		lines := make([]string, len(fields))
		for i, f := range fields {
			lines[i] = "      " + f
		}
		return strings.Join(lines, ",\n")
	},
	"join": func(values []string) string {
		return strings.Join(values, ", ")
	},
}).Parse(dashboardTemplateText))

// Render serializes the dashboard to its LookML text form. Output bytes
// depend only on the dashboard contents.
func (d *Dashboard) Render() (string, error) {
	var b strings.Builder
	if err := dashboardTemplate.Execute(&b, d); err != nil {
		return "", fmt.Errorf("dashboards: rendering %s: %w", d.Name, err)
	}
	return b.String(), nil
}

// FileName returns the on-disk name of a dashboard file.
func FileName(dashboard string) string {
	return fmt.Sprintf("%s.dashboard.lookml", dashboard)
}
