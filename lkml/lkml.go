// Package lkml serializes LookML documents.
//
// Documents are ordered slices of pairs, so output order is declaration
// order, never map iteration order. Byte-identical output for identical
// models is a contract the render/diff guard depends on.
package lkml

import (
	"strings"
)

// A Value is anything that can appear on the right-hand side of a pair.
type Value interface {
	write(b *strings.Builder, indent int)
}

// Literal is an unquoted scalar value such as yes, 12 or a field reference.
type Literal string

// Quoted is a double-quoted string value.
type Quoted string

// SQL is a SQL expression value, terminated with ";;".
type SQL string

// List is a bracketed list of values.
type List []Value

// Filter is a key/value entry inside a filters list, e.g. submission_date: "28 days".
type Filter struct {
	Key   string
	Value string
}

// Pair is a single key: value entry. Values may be nested blocks.
type Pair struct {
	Key   string
	Value Value
}

// Block is a named or anonymous LookML block, e.g. dimension: os { ... } or
// always_filter { ... }. Children preserve declaration order.
type Block struct {
	Name     string
	Children []Pair
}

// Add appends a pair and returns the block for chaining.
func (blk *Block) Add(key string, value Value) *Block {
	blk.Children = append(blk.Children, Pair{Key: key, Value: value})
	return blk
}

func (v Literal) write(b *strings.Builder, _ int) {
	b.WriteString(string(v))
}

func (v Quoted) write(b *strings.Builder, _ int) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(string(v), `"`, `\"`))
	b.WriteByte('"')
}

func (v SQL) write(b *strings.Builder, _ int) {
	b.WriteString(string(v))
	b.WriteString(" ;;")
}

func (v Filter) write(b *strings.Builder, _ int) {
	b.WriteString(v.Key)
	b.WriteString(`: "`)
	b.WriteString(strings.ReplaceAll(v.Value, `"`, `\"`))
	b.WriteByte('"')
}

func (v List) write(b *strings.Builder, indent int) {
	b.WriteByte('[')
	for i, item := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		item.write(b, indent)
	}
	b.WriteByte(']')
}

func (blk *Block) write(b *strings.Builder, indent int) {
	if blk.Name != "" {
		b.WriteString(blk.Name)
		b.WriteByte(' ')
	}
	b.WriteString("{\n")
	writePairs(b, blk.Children, indent+1)
	pad(b, indent)
	b.WriteByte('}')
}

func writePairs(b *strings.Builder, pairs []Pair, indent int) {
	for _, p := range pairs {
		pad(b, indent)
		b.WriteString(p.Key)
		b.WriteString(": ")
		p.Value.write(b, indent)
		b.WriteByte('\n')
	}
}

func pad(b *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		b.WriteString("  ")
	}
}

// Dump renders a document to LookML text. Top-level blocks are separated by a
// blank line; consecutive scalar pairs such as includes are not.
func Dump(doc []Pair) string {
	var b strings.Builder
	for i, p := range doc {
		if _, block := p.Value.(*Block); i > 0 && block {
			b.WriteByte('\n')
		}
		b.WriteString(p.Key)
		b.WriteString(": ")
		p.Value.write(&b, 0)
		b.WriteByte('\n')
	}
	return b.String()
}

// Strings converts plain strings into quoted list values.
func Strings(values ...string) List {
	list := make(List, len(values))
	for i, v := range values {
		list[i] = Quoted(v)
	}
	return list
}

// Literals converts plain strings into unquoted list values.
func Literals(values ...string) List {
	list := make(List, len(values))
	for i, v := range values {
		list[i] = Literal(v)
	}
	return list
}

// Filters converts ordered key/value entries into a filters list value.
func Filters(filters ...Filter) List {
	list := make(List, len(filters))
	for i, f := range filters {
		list[i] = f
	}
	return list
}
