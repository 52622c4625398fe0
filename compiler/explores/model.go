package explores

import (
	"fmt"

	"github.com/syssam/lookgen/lkml"
)

// Join is one join block of an explore. External joins reference another
// view's file; unnest joins stay within the base view file.
type Join struct {
	Name         string
	ViewLabel    string
	Relationship string
	Type         string
	SQL          string
	SQLOn        string
	External     bool
}

// Query is a predefined explore query surfaced in Looker's quick start.
type Query struct {
	Name        string
	Description string
	Dimensions  []string
	Measures    []string
	Pivots      []string
	Filters     []lkml.Filter
	Sorts       []string
}

// AggregateTable is a materialized rollup attached to an explore.
type AggregateTable struct {
	Name       string
	Query      Query
	SQLTrigger string
}

// Explore is one explore block.
type Explore struct {
	Name            string
	ViewName        string
	ViewLabel       string
	Description     string
	SQLAlwaysWhere  string
	Hidden          bool
	Fields          []string
	AlwaysFilters   []lkml.Filter
	Joins           []Join
	Queries         []Query
	AggregateTables []AggregateTable
}

// File is one .explore.lkml output file.
type File struct {
	Includes []string
	Explores []*Explore
}

// Render serializes the file to LookML text.
func (f *File) Render() string {
	doc := make([]lkml.Pair, 0, len(f.Includes)+len(f.Explores))
	for _, include := range f.Includes {
		doc = append(doc, lkml.Pair{Key: "include", Value: lkml.Quoted(include)})
	}
	for _, explore := range f.Explores {
		doc = append(doc, lkml.Pair{Key: "explore", Value: explore.block()})
	}
	return lkml.Dump(doc)
}

func (e *Explore) block() *lkml.Block {
	blk := &lkml.Block{Name: e.Name}
	if e.ViewName != "" {
		blk.Add("view_name", lkml.Literal(e.ViewName))
	}
	if e.ViewLabel != "" {
		blk.Add("view_label", lkml.Quoted(e.ViewLabel))
	}
	if e.Description != "" {
		blk.Add("description", lkml.Quoted(e.Description))
	}
	if e.Hidden {
		blk.Add("hidden", lkml.Literal("yes"))
	}
	if len(e.Fields) > 0 {
		blk.Add("fields", lkml.Literals(e.Fields...))
	}
	if len(e.AlwaysFilters) > 0 {
		filters := &lkml.Block{}
		filters.Add("filters", lkml.Filters(e.AlwaysFilters...))
		blk.Add("always_filter", filters)
	}
	if e.SQLAlwaysWhere != "" {
		blk.Add("sql_always_where", lkml.SQL(e.SQLAlwaysWhere))
	}
	for _, q := range e.Queries {
		blk.Add("query", q.block())
	}
	for _, j := range e.Joins {
		blk.Add("join", j.block())
	}
	for _, a := range e.AggregateTables {
		blk.Add("aggregate_table", a.block())
	}
	return blk
}

func (j Join) block() *lkml.Block {
	blk := &lkml.Block{Name: j.Name}
	if j.ViewLabel != "" {
		blk.Add("view_label", lkml.Quoted(j.ViewLabel))
	}
	if j.Relationship != "" {
		blk.Add("relationship", lkml.Literal(j.Relationship))
	}
	if j.Type != "" {
		blk.Add("type", lkml.Literal(j.Type))
	}
	if j.SQLOn != "" {
		blk.Add("sql_on", lkml.SQL(j.SQLOn))
	}
	if j.SQL != "" {
		blk.Add("sql", lkml.SQL(j.SQL))
	}
	return blk
}

func (q Query) block() *lkml.Block {
	blk := &lkml.Block{Name: q.Name}
	if q.Description != "" {
		blk.Add("description", lkml.Quoted(q.Description))
	}
	if len(q.Dimensions) > 0 {
		blk.Add("dimensions", lkml.Literals(q.Dimensions...))
	}
	if len(q.Measures) > 0 {
		blk.Add("measures", lkml.Literals(q.Measures...))
	}
	if len(q.Pivots) > 0 {
		blk.Add("pivots", lkml.Literals(q.Pivots...))
	}
	if len(q.Filters) > 0 {
		blk.Add("filters", lkml.Filters(q.Filters...))
	}
	if len(q.Sorts) > 0 {
		blk.Add("sorts", lkml.Literals(q.Sorts...))
	}
	return blk
}

func (a AggregateTable) block() *lkml.Block {
	blk := &lkml.Block{Name: a.Name}
	blk.Add("query", a.Query.block())
	if a.SQLTrigger != "" {
		materialization := &lkml.Block{}
		materialization.Add("sql_trigger_value", lkml.SQL(a.SQLTrigger))
		blk.Add("materialization", materialization)
	}
	return blk
}

// FileName returns the on-disk name of an explore file.
func FileName(explore string) string {
	return fmt.Sprintf("%s.explore.lkml", explore)
}
