package views

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/schema"
)

const suggestPersistFor = "24 hours"

// timeframes of a time dimension group; DATE columns drop "time".
var defaultTimeframes = []string{"raw", "time", "date", "week", "month", "quarter", "year"}

// hiddenPaths are identifier columns that are never useful for grouping.
var hiddenPaths = map[string]bool{
	"document_id":           true,
	"client_id":             true,
	"client_info.client_id": true,
	"context_id":            true,
	"additional_properties": true,
}

// mapLayers assigns Looker map layers to geo columns.
var mapLayers = map[string]string{
	"country":              "countries",
	"metadata.geo.country": "countries",
}

// timeSuffix is stripped from time column names so the timeframe suffixes of
// the dimension group do not stutter: submission_timestamp becomes the
// submission group with submission_date, submission_week and so on.
var timeSuffix = regexp.MustCompile(`_(date|time(stamp)?)$`)

func dimensionType(t schema.Type) (string, bool) {
	switch t {
	case schema.TypeBoolean:
		return "yesno", true
	case schema.TypeInteger, schema.TypeFloat, schema.TypeNumeric:
		return "number", true
	case schema.TypeString, schema.TypeBytes, schema.TypeBigNumeric:
		return "string", true
	case schema.TypeTimestamp, schema.TypeDate, schema.TypeDateTime, schema.TypeTime:
		return "time", true
	}
	return "", false
}

// Dimensions infers the dimensions and dimension groups of a table. Columns
// flatten depth-first with non-repeated records contributing dotted paths;
// sibling order is by column name so inference does not depend on schema
// field order. A column type without a rule fails with a schema error rather
// than dropping the column.
//
// When a table carries both submission_date and submission_timestamp the
// timestamp wins the shared "submission" group name; any other name collision
// is an error.
func Dimensions(table *schema.Table) ([]Dimension, []DimensionGroup, error) {
	entries, err := inferColumns(table, table.Columns, nil)
	if err != nil {
		return nil, nil, err
	}

	var (
		order []string
		byKey = make(map[string]inferredDimension)
	)
	for _, entry := range entries {
		key := entry.name()
		if entry.group != nil && entry.group.Type == "time" {
			key += "_time"
		}
		if _, ok := byKey[key]; ok {
			if !entry.overridesDuplicate() {
				return nil, nil, lookgen.NewSchemaError(table.FullyQualifiedName(), entry.name(),
					"", fmt.Sprintf("duplicate dimension %q", key))
			}
		} else {
			order = append(order, key)
		}
		byKey[key] = entry
	}

	var dims []Dimension
	var groups []DimensionGroup
	for _, key := range order {
		entry := byKey[key]
		if entry.group != nil {
			groups = append(groups, *entry.group)
		} else {
			dims = append(dims, *entry.dim)
		}
	}
	return dims, groups, nil
}

type inferredDimension struct {
	dim   *Dimension
	group *DimensionGroup
}

func (e inferredDimension) name() string {
	if e.group != nil {
		return e.group.Name
	}
	return e.dim.Name
}

// overridesDuplicate reports whether this entry may silently replace an
// earlier one with the same key. Only the shared submission/start/end time
// groups do, picking the last column in name order, which prefers
// submission_timestamp over submission_date.
func (e inferredDimension) overridesDuplicate() bool {
	if e.group == nil || e.group.Type != "time" {
		return false
	}
	name := e.group.Name
	return name == "submission" || strings.HasSuffix(name, "end") || strings.HasSuffix(name, "start")
}

func inferColumns(table *schema.Table, cols []*schema.Column, prefix []string) ([]inferredDimension, error) {
	sorted := append([]*schema.Column(nil), cols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var out []inferredDimension
	for _, col := range sorted {
		if col.Type == schema.TypeRecord && !col.Repeated() {
			nested, err := inferColumns(table, col.Fields, append(append([]string(nil), prefix...), col.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		entry, err := inferColumn(table, col, prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func inferColumn(table *schema.Table, col *schema.Column, prefix []string) (inferredDimension, error) {
	path := append(append([]string(nil), prefix...), col.Name)
	dotted := strings.Join(path, ".")
	sql := "${TABLE}." + dotted

	if col.Repeated() || hiddenPaths[dotted] || col.Type == schema.TypeRecord {
		return inferredDimension{dim: &Dimension{
			Name:        strings.Join(path, "__"),
			SQL:         sql,
			Hidden:      true,
			Description: col.Description,
		}}, nil
	}

	dimType, ok := dimensionType(col.Type)
	if !ok {
		return inferredDimension{}, lookgen.NewSchemaError(
			table.FullyQualifiedName(), dotted, col.Type.String(),
			"no dimension rule for column type")
	}

	var groupLabel, groupItemLabel string
	if len(path) > 1 {
		groupLabel = SlugToTitle(strings.Join(path[:len(path)-1], " "))
		groupItemLabel = SlugToTitle(path[len(path)-1])
	}

	if dimType == "time" {
		name := append(append([]string(nil), path[:len(path)-1]...),
			timeSuffix.ReplaceAllString(path[len(path)-1], ""))
		group := &DimensionGroup{
			Name:        strings.Join(name, "__"),
			Type:        "time",
			SQL:         sql,
			Timeframes:  defaultTimeframes,
			Description: col.Description,
		}
		if col.Type == schema.TypeDate {
			group.Timeframes = dropTimeframe(defaultTimeframes, "time")
			group.ConvertTZ = "no"
			group.Datatype = "date"
		}
		if groupLabel != "" {
			// Nesting dimension groups under a group label breaks Looker's
			// field picker, so the path collapses into the label instead.
			group.Label = groupLabel + ": " + groupItemLabel
		}
		return inferredDimension{group: group}, nil
	}

	return inferredDimension{dim: &Dimension{
		Name:              strings.Join(path, "__"),
		Type:              dimType,
		SQL:               sql,
		GroupLabel:        groupLabel,
		GroupItemLabel:    groupItemLabel,
		MapLayerName:      mapLayers[dotted],
		SuggestPersistFor: suggestPersistFor,
		Description:       col.Description,
	}}, nil
}

func dropTimeframe(frames []string, drop string) []string {
	out := make([]string, 0, len(frames)-1)
	for _, f := range frames {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

// NestedViews derives one view per repeated record column, named
// <view>__<column>, so explores can join them through UNNEST. Non-repeated
// records only recurse; the labeled_counter records of Glean tables are
// handled by their own measures and skipped here.
func NestedViews(table *schema.Table, cols []*schema.Column, viewName string) ([]*Defn, error) {
	sorted := append([]*schema.Column(nil), cols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var out []*Defn
	for _, col := range sorted {
		if col.Type != schema.TypeRecord || col.Name == "labeled_counter" {
			continue
		}
		nestedName := viewName + "__" + col.Name
		if col.Repeated() {
			entries, err := inferColumns(table, col.Fields, nil)
			if err != nil {
				return nil, err
			}
			view := &Defn{Name: nestedName}
			for _, entry := range entries {
				if entry.group != nil {
					view.DimensionGroups = append(view.DimensionGroups, *entry.group)
				} else {
					view.Dimensions = append(view.Dimensions, *entry.dim)
				}
			}
			out = append(out, view)
		}
		children, err := NestedViews(table, col.Fields, nestedName)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

// clientIDField returns the dimension that identifies a client, if any. More
// than one candidate on the same table is ambiguous and fails.
func clientIDField(table string, dims []Dimension) (string, error) {
	candidates := map[string]bool{
		"client_id":              true,
		"client_info__client_id": true,
		"context_id":             true,
	}
	var found []string
	for _, d := range dims {
		if candidates[d.Name] {
			found = append(found, d.Name)
		}
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	}
	return "", lookgen.NewSchemaError(table, strings.Join(found, ", "), "",
		"multiple client identifier columns")
}

// baseMeasures derives the measures every ping-shaped view carries: a
// distinct client count when a client identifier exists and a ping count
// when document_id exists.
func baseMeasures(table string, dims []Dimension) ([]Measure, error) {
	var measures []Measure
	clientID, err := clientIDField(table, dims)
	if err != nil {
		return nil, err
	}
	if clientID != "" {
		measures = append(measures, Measure{
			Name: "clients",
			Type: "count_distinct",
			SQL:  fmt.Sprintf("${%s}", clientID),
		})
	}
	for _, d := range dims {
		if d.Name == "document_id" {
			measures = append(measures, Measure{Name: "ping_count", Type: "count"})
		}
	}
	return measures, nil
}
