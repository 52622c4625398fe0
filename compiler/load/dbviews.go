package load

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ViewReferenceMap maps dataset -> view -> referenced tables, where each
// reference is a [project, dataset, table] triple. It answers whether a view
// selects from stable ping tables and which ones.
type ViewReferenceMap map[string]map[string][][]string

// viewMetadata mirrors the metadata.yaml files in a generated-sql archive.
type viewMetadata struct {
	References map[string][]string `yaml:"references"`
}

// ReadViewReferences builds a ViewReferenceMap from a generated-sql tar.gz
// archive. Only metadata.yaml entries under the given project that reference
// a view.sql are considered, matching the layout of the bigquery-etl
// generated-sql branch.
func ReadViewReferences(r io.Reader, project string) (ViewReferenceMap, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("load: opening generated-sql archive: %w", err)
	}
	defer gz.Close()

	views := make(ViewReferenceMap)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load: reading generated-sql archive: %w", err)
		}
		if !strings.HasSuffix(hdr.Name, "/metadata.yaml") {
			continue
		}

		// .../sql/<project>/<dataset>/<view>/metadata.yaml
		parts := strings.Split(hdr.Name, "/")
		if len(parts) < 4 {
			continue
		}
		fileProject, dataset, view := parts[len(parts)-4], parts[len(parts)-3], parts[len(parts)-2]
		if fileProject != project {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("load: reading %s: %w", hdr.Name, err)
		}
		var meta viewMetadata
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("load: parsing %s: %w", hdr.Name, err)
		}
		refs, ok := meta.References["view.sql"]
		if !ok {
			continue
		}

		if views[dataset] == nil {
			views[dataset] = make(map[string][][]string)
		}
		tables := make([][]string, 0, len(refs))
		for _, ref := range refs {
			tables = append(tables, strings.Split(ref, "."))
		}
		views[dataset][view] = tables
	}
	return views, nil
}

// ViewNames returns the view identifiers of a dataset in sorted order.
func (m ViewReferenceMap) ViewNames(dataset string) []string {
	names := make([]string, 0, len(m[dataset]))
	for name := range m[dataset] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
