// Package schema models BigQuery table schemas as consumed by the generator.
//
// A Table is an immutable snapshot fetched once per run. Columns carry a
// closed Type set; anything outside it has no generation rule and surfaces as
// an unsupported schema error downstream rather than being dropped.
package schema

import (
	"fmt"
	"strings"
)

// A Type represents a BigQuery column type.
type Type uint8

// Column types supported by the generator.
const (
	TypeInvalid Type = iota
	TypeString
	TypeBytes
	TypeInteger
	TypeFloat
	TypeNumeric
	TypeBigNumeric
	TypeBoolean
	TypeTimestamp
	TypeDate
	TypeDateTime
	TypeTime
	TypeRecord
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:    "INVALID",
	TypeString:     "STRING",
	TypeBytes:      "BYTES",
	TypeInteger:    "INTEGER",
	TypeFloat:      "FLOAT",
	TypeNumeric:    "NUMERIC",
	TypeBigNumeric: "BIGNUMERIC",
	TypeBoolean:    "BOOLEAN",
	TypeTimestamp:  "TIMESTAMP",
	TypeDate:       "DATE",
	TypeDateTime:   "DATETIME",
	TypeTime:       "TIME",
	TypeRecord:     "RECORD",
}

// String returns the BigQuery name of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Valid reports whether t is a known column type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Temporal reports whether the type maps to a Looker dimension group.
func (t Type) Temporal() bool {
	switch t {
	case TypeTimestamp, TypeDate, TypeDateTime, TypeTime:
		return true
	}
	return false
}

// ParseType returns the Type named by s. Legacy and standard SQL aliases
// (BOOL, INT64, FLOAT64, STRUCT) map to their canonical types. Unknown names
// return TypeInvalid, not an error; callers decide how to surface them.
func ParseType(s string) Type {
	switch strings.ToUpper(s) {
	case "STRING":
		return TypeString
	case "BYTES":
		return TypeBytes
	case "INTEGER", "INT64":
		return TypeInteger
	case "FLOAT", "FLOAT64":
		return TypeFloat
	case "NUMERIC":
		return TypeNumeric
	case "BIGNUMERIC":
		return TypeBigNumeric
	case "BOOLEAN", "BOOL":
		return TypeBoolean
	case "TIMESTAMP":
		return TypeTimestamp
	case "DATE":
		return TypeDate
	case "DATETIME":
		return TypeDateTime
	case "TIME":
		return TypeTime
	case "RECORD", "STRUCT":
		return TypeRecord
	}
	return TypeInvalid
}

// A Mode represents a BigQuery column mode.
type Mode uint8

// Column modes.
const (
	ModeNullable Mode = iota
	ModeRequired
	ModeRepeated
)

// String returns the BigQuery name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRequired:
		return "REQUIRED"
	case ModeRepeated:
		return "REPEATED"
	default:
		return "NULLABLE"
	}
}

// ParseMode returns the Mode named by s, defaulting to NULLABLE.
func ParseMode(s string) Mode {
	switch strings.ToUpper(s) {
	case "REQUIRED":
		return ModeRequired
	case "REPEATED":
		return ModeRepeated
	}
	return ModeNullable
}

// Column is a single column in a table schema. Record columns carry their
// nested fields in declaration order.
type Column struct {
	Name        string
	Type        Type
	Mode        Mode
	Description string
	Fields      []*Column
}

// Repeated reports whether the column is an array.
func (c *Column) Repeated() bool {
	return c.Mode == ModeRepeated
}

// Table is a fully qualified table with its column schema. It is used only as
// input and never mutated by the generator.
type Table struct {
	Project string
	Dataset string
	Name    string
	Columns []*Column
}

// FullyQualifiedName returns project.dataset.table.
func (t *Table) FullyQualifiedName() string {
	return t.Project + "." + t.Dataset + "." + t.Name
}

// Column returns the top-level column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ParseTableName splits a project.dataset.table identifier.
func ParseTableName(name string) (project, dataset, table string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("schema: malformed table name %q", name)
	}
	return parts[0], parts[1], parts[2], nil
}
