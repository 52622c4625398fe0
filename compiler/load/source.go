package load

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/syssam/lookgen/schema"
)

// SchemaSource provides table schemas. Implementations fetch from BigQuery or
// serve recorded snapshots; the generator treats either as a pure input.
type SchemaSource interface {
	// TableSchema returns the schema of project.dataset.table.
	TableSchema(ctx context.Context, project, dataset, table string) (*schema.Table, error)
}

// StaticSchemaSource serves schemas from an in-memory map keyed by fully
// qualified table name. It backs tests and recorded fixture runs.
type StaticSchemaSource struct {
	Tables map[string]*schema.Table
}

// TableSchema implements SchemaSource.
func (s *StaticSchemaSource) TableSchema(_ context.Context, project, dataset, table string) (*schema.Table, error) {
	name := project + "." + dataset + "." + table
	t, ok := s.Tables[name]
	if !ok {
		return nil, fmt.Errorf("load: no schema recorded for %s", name)
	}
	return t, nil
}

// TableNames returns the fully qualified names of all recorded tables, sorted.
func (s *StaticSchemaSource) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MemoSchemaSource memoizes another source so each table schema is fetched at
// most once per run. Safe for concurrent use across namespace workers.
type MemoSchemaSource struct {
	Source SchemaSource

	mu     sync.Mutex
	tables map[string]*schema.Table
}

// NewMemoSchemaSource wraps source with per-run memoization.
func NewMemoSchemaSource(source SchemaSource) *MemoSchemaSource {
	return &MemoSchemaSource{Source: source, tables: make(map[string]*schema.Table)}
}

// TableSchema implements SchemaSource.
func (s *MemoSchemaSource) TableSchema(ctx context.Context, project, dataset, table string) (*schema.Table, error) {
	name := project + "." + dataset + "." + table

	s.mu.Lock()
	if t, ok := s.tables[name]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	t, err := s.Source.TableSchema(ctx, project, dataset, table)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tables[name] = t
	s.mu.Unlock()
	return t, nil
}
