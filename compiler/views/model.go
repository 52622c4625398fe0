package views

import (
	"fmt"

	"github.com/syssam/lookgen/lkml"
)

// Dimension is a single LookML dimension.
type Dimension struct {
	Name              string
	Type              string
	SQL               string
	Description       string
	Label             string
	GroupLabel        string
	GroupItemLabel    string
	MapLayerName      string
	SuggestPersistFor string
	Datatype          string
	ConvertTZ         string
	Hidden            bool
	PrimaryKey        bool
}

// DimensionGroup is a LookML dimension_group, either a time group with
// timeframes or a duration group with intervals.
type DimensionGroup struct {
	Name        string
	Type        string
	SQL         string
	SQLStart    string
	SQLEnd      string
	Description string
	Label       string
	Datatype    string
	ConvertTZ   string
	Timeframes  []string
	Intervals   []string
	Hidden      bool
}

// Measure is a LookML measure.
type Measure struct {
	Name        string
	Type        string
	SQL         string
	Description string
	Filters     []lkml.Filter
}

// FilterField is an always-suggesting filter field declared on a view.
type FilterField struct {
	Name             string
	Type             string
	Description      string
	SQL              string
	DefaultValue     string
	Suggestions      []string
	SuggestExplore   string
	SuggestDimension string
}

// AllowedValue is one entry of a parameter's allowed_value list.
type AllowedValue struct {
	Label string
	Value string
}

// Parameter is a LookML parameter, used to switch the backing channel table.
type Parameter struct {
	Name          string
	Type          string
	DefaultValue  string
	AllowedValues []AllowedValue
}

// Defn is one view block of a view file.
type Defn struct {
	Name            string
	Extends         []string
	SQLTableName    string
	DerivedTableSQL string
	Parameters      []Parameter
	Filters         []FilterField
	Dimensions      []Dimension
	DimensionGroups []DimensionGroup
	Measures        []Measure
}

// File is one .view.lkml output file, holding a primary view and any nested
// unnest views derived from repeated record columns.
type File struct {
	Includes []string
	Views    []*Defn
}

// Render serializes the file to LookML text.
func (f *File) Render() string {
	doc := make([]lkml.Pair, 0, len(f.Includes)+len(f.Views))
	for _, include := range f.Includes {
		doc = append(doc, lkml.Pair{Key: "include", Value: lkml.Quoted(include)})
	}
	for _, view := range f.Views {
		doc = append(doc, lkml.Pair{Key: "view", Value: view.block()})
	}
	return lkml.Dump(doc)
}

func (v *Defn) block() *lkml.Block {
	blk := &lkml.Block{Name: v.Name}
	if len(v.Extends) > 0 {
		blk.Add("extends", lkml.Literals(v.Extends...))
	}
	if v.SQLTableName != "" {
		blk.Add("sql_table_name", lkml.Literal(v.SQLTableName))
	}
	if v.DerivedTableSQL != "" {
		derived := &lkml.Block{}
		derived.Add("sql", lkml.SQL(v.DerivedTableSQL))
		blk.Add("derived_table", derived)
	}
	for _, p := range v.Parameters {
		blk.Add("parameter", p.block())
	}
	for _, f := range v.Filters {
		blk.Add("filter", f.block())
	}
	for _, d := range v.Dimensions {
		blk.Add("dimension", d.block())
	}
	for _, g := range v.DimensionGroups {
		blk.Add("dimension_group", g.block())
	}
	for _, m := range v.Measures {
		blk.Add("measure", m.block())
	}
	return blk
}

func (d Dimension) block() *lkml.Block {
	blk := &lkml.Block{Name: d.Name}
	if d.PrimaryKey {
		blk.Add("primary_key", lkml.Literal("yes"))
	}
	if d.Hidden {
		blk.Add("hidden", lkml.Literal("yes"))
	}
	if d.Type != "" {
		blk.Add("type", lkml.Literal(d.Type))
	}
	if d.Label != "" {
		blk.Add("label", lkml.Quoted(d.Label))
	}
	if d.GroupLabel != "" {
		blk.Add("group_label", lkml.Quoted(d.GroupLabel))
	}
	if d.GroupItemLabel != "" {
		blk.Add("group_item_label", lkml.Quoted(d.GroupItemLabel))
	}
	if d.MapLayerName != "" {
		blk.Add("map_layer_name", lkml.Quoted(d.MapLayerName))
	}
	if d.ConvertTZ != "" {
		blk.Add("convert_tz", lkml.Literal(d.ConvertTZ))
	}
	if d.Datatype != "" {
		blk.Add("datatype", lkml.Literal(d.Datatype))
	}
	if d.SQL != "" {
		blk.Add("sql", lkml.SQL(d.SQL))
	}
	if d.SuggestPersistFor != "" {
		blk.Add("suggest_persist_for", lkml.Quoted(d.SuggestPersistFor))
	}
	if d.Description != "" {
		blk.Add("description", lkml.Quoted(d.Description))
	}
	return blk
}

func (g DimensionGroup) block() *lkml.Block {
	blk := &lkml.Block{Name: g.Name}
	if g.Hidden {
		blk.Add("hidden", lkml.Literal("yes"))
	}
	if g.Type != "" {
		blk.Add("type", lkml.Literal(g.Type))
	}
	if g.Label != "" {
		blk.Add("label", lkml.Quoted(g.Label))
	}
	if len(g.Timeframes) > 0 {
		blk.Add("timeframes", lkml.Literals(g.Timeframes...))
	}
	if len(g.Intervals) > 0 {
		blk.Add("intervals", lkml.Literals(g.Intervals...))
	}
	if g.ConvertTZ != "" {
		blk.Add("convert_tz", lkml.Literal(g.ConvertTZ))
	}
	if g.Datatype != "" {
		blk.Add("datatype", lkml.Literal(g.Datatype))
	}
	if g.SQL != "" {
		blk.Add("sql", lkml.SQL(g.SQL))
	}
	if g.SQLStart != "" {
		blk.Add("sql_start", lkml.SQL(g.SQLStart))
	}
	if g.SQLEnd != "" {
		blk.Add("sql_end", lkml.SQL(g.SQLEnd))
	}
	if g.Description != "" {
		blk.Add("description", lkml.Quoted(g.Description))
	}
	return blk
}

func (m Measure) block() *lkml.Block {
	blk := &lkml.Block{Name: m.Name}
	blk.Add("type", lkml.Literal(m.Type))
	if m.SQL != "" {
		blk.Add("sql", lkml.SQL(m.SQL))
	}
	if len(m.Filters) > 0 {
		blk.Add("filters", lkml.Filters(m.Filters...))
	}
	if m.Description != "" {
		blk.Add("description", lkml.Quoted(m.Description))
	}
	return blk
}

func (f FilterField) block() *lkml.Block {
	blk := &lkml.Block{Name: f.Name}
	blk.Add("type", lkml.Literal(f.Type))
	if f.Description != "" {
		blk.Add("description", lkml.Quoted(f.Description))
	}
	if f.DefaultValue != "" {
		blk.Add("default_value", lkml.Quoted(f.DefaultValue))
	}
	if len(f.Suggestions) > 0 {
		blk.Add("suggestions", lkml.Strings(f.Suggestions...))
	}
	if f.SuggestExplore != "" {
		blk.Add("suggest_explore", lkml.Literal(f.SuggestExplore))
	}
	if f.SuggestDimension != "" {
		blk.Add("suggest_dimension", lkml.Literal(f.SuggestDimension))
	}
	if f.SQL != "" {
		blk.Add("sql", lkml.SQL(f.SQL))
	}
	return blk
}

func (p Parameter) block() *lkml.Block {
	blk := &lkml.Block{Name: p.Name}
	blk.Add("type", lkml.Literal(p.Type))
	if p.DefaultValue != "" {
		blk.Add("default_value", lkml.Quoted(p.DefaultValue))
	}
	for _, av := range p.AllowedValues {
		value := &lkml.Block{}
		value.Add("label", lkml.Quoted(av.Label))
		value.Add("value", lkml.Quoted(av.Value))
		blk.Add("allowed_value", value)
	}
	return blk
}

// FileName returns the on-disk name of a view file.
func FileName(view string) string {
	return fmt.Sprintf("%s.view.lkml", view)
}
