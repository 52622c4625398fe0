package gen

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/syssam/lookgen"
)

// checkProtected compares the newly rendered content of protected output
// paths against what is already on disk. Any difference fails the run with a
// ConflictError before a single byte is written; protected paths that do not
// exist yet may be created. Returns the protected paths whose content is
// unchanged, which the writer then skips.
func checkProtected(outDir string, patterns []string, files map[string]string) (map[string]bool, error) {
	unchanged := make(map[string]bool)
	var conflicts []string

	for rel, content := range files {
		if !matchesProtected(rel, patterns) {
			continue
		}
		existing, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if string(existing) == content {
			unchanged[rel] = true
			continue
		}
		conflicts = append(conflicts, rel)
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, lookgen.NewConflictError(conflicts...)
	}
	return unchanged, nil
}

func matchesProtected(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
