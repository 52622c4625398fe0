// Package lookgen turns BigQuery table metadata, metric-hub definitions and
// per-application namespace configuration into LookML views, explores and
// dashboards.
//
// The root package defines the error taxonomy shared by every compiler stage.
// Model construction lives under compiler/ (namespaces, views, explores,
// dashboards, gen), external inputs under compiler/load, the table schema
// model under schema/ and the LookML serializer under lkml/.
//
// Generation is deterministic: identical inputs produce byte-identical output
// trees. Nothing in the engine mutates its inputs or keeps state between runs.
package lookgen
