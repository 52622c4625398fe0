package load

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/lookgen/schema"
)

// CachedSchemaSource persists fetched schemas as msgpack snapshots on disk,
// so repeated runs against an unchanged catalog are hermetic and skip the
// metadata API entirely. The cache key is the fully qualified table name.
type CachedSchemaSource struct {
	Source SchemaSource
	Dir    string
}

// NewCachedSchemaSource wraps source with an on-disk snapshot cache rooted at
// dir.
func NewCachedSchemaSource(source SchemaSource, dir string) *CachedSchemaSource {
	return &CachedSchemaSource{Source: source, Dir: dir}
}

// TableSchema implements SchemaSource. Cache reads fall through to the
// underlying source on any miss or decode failure; cache writes are best
// effort and never fail the fetch.
func (s *CachedSchemaSource) TableSchema(ctx context.Context, project, dataset, table string) (*schema.Table, error) {
	path := s.path(project, dataset, table)
	if t, err := readSnapshot(path); err == nil {
		return t, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		// A corrupt snapshot should not poison the run; refetch and rewrite.
		_ = os.Remove(path)
	}

	t, err := s.Source.TableSchema(ctx, project, dataset, table)
	if err != nil {
		return nil, err
	}
	if err := writeSnapshot(path, t); err != nil {
		return t, nil
	}
	return t, nil
}

func (s *CachedSchemaSource) path(project, dataset, table string) string {
	name := strings.Join([]string{project, dataset, table}, ".")
	return filepath.Join(s.Dir, name+".schema.msgpack")
}

func readSnapshot(path string) (*schema.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t schema.Table
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("load: decoding schema snapshot %s: %w", path, err)
	}
	return &t, nil
}

func writeSnapshot(path string, t *schema.Table) error {
	data, err := msgpack.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
