// Package gen orchestrates one generation run: it fans namespaces out over a
// bounded worker group, renders every view, explore and dashboard in memory,
// checks protected paths, and only then writes the output tree. A run with
// unchanged inputs writes byte-identical files.
package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/dashboards"
	"github.com/syssam/lookgen/compiler/explores"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/namespaces"
	"github.com/syssam/lookgen/compiler/views"
)

// fileHeader marks every generated LookML file.
const fileHeader = "# Code generated by lookgen. DO NOT EDIT.\n\n"

// NamespacesFile is the name of the namespace listing document.
const NamespacesFile = "namespaces.yaml"

// Options configure one generation run.
type Options struct {
	// OutDir is the root of the output tree.
	OutDir string
	// Namespaces is the resolved namespace mapping generation runs over.
	Namespaces load.CustomNamespaces
	// Schemas resolves table schemas.
	Schemas load.SchemaSource
	// Metrics holds metric-hub definitions, may be nil.
	Metrics *load.MetricsConfig
	// Protected lists output path patterns, relative to OutDir, that must
	// never change content across runs.
	Protected []string
	// Workers bounds namespace parallelism. Zero means a small default.
	Workers int
	// Logger receives run progress. Nil disables logging.
	Logger *zap.Logger
}

// Run executes one generation run. Unit failures (a table view with an
// unmappable column, a namespace with a broken join, a dashboard with a
// broken field binding) are collected and reported together; configuration
// and protected file conflicts abort immediately.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	names := sortedKeys(opts.Namespaces)
	report := &Report{}
	results := make([]map[string]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			files, err := generateNamespace(gctx, opts, name, report, logger)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	files := make(map[string]string)
	for _, result := range results {
		for rel, content := range result {
			files[rel] = content
		}
	}

	var doc bytes.Buffer
	if err := namespaces.WriteDocument(&doc, opts.Namespaces); err != nil {
		return err
	}
	files[NamespacesFile] = doc.String()

	unchanged, err := checkProtected(opts.OutDir, opts.Protected, files)
	if err != nil {
		return err
	}
	if err := writeFiles(opts.OutDir, files, unchanged); err != nil {
		return err
	}

	logger.Info("generation finished",
		zap.Int("namespaces", len(names)),
		zap.Int("files", len(files)),
		zap.Int("failed_units", len(report.Units())))
	return report.Err()
}

// generateNamespace renders one namespace's output files into memory. A join
// failure marks the whole namespace failed; a schema failure marks just that
// view failed and the rest of the namespace still renders.
func generateNamespace(ctx context.Context, opts Options, name string, report *Report, logger *zap.Logger) (map[string]string, error) {
	defn := opts.Namespaces[name]
	files := make(map[string]string)
	viewFiles := make(map[string]*views.File, len(defn.Views))

	for _, viewName := range sortedKeys(defn.Views) {
		file, err := views.Generate(ctx, &views.Request{
			Namespace: name,
			Name:      viewName,
			Defn:      defn.Views[viewName],
			Schemas:   opts.Schemas,
			Metrics:   opts.Metrics,
		})
		if err != nil {
			if lookgen.IsSchemaError(err) {
				report.Add("view", name, viewName, err)
				continue
			}
			return nil, err
		}
		viewFiles[viewName] = file
		if len(file.Views) == 0 {
			continue
		}
		files[path.Join(name, "views", views.FileName(viewName))] = fileHeader + file.Render()
	}

	for _, exploreName := range sortedKeys(defn.Explores) {
		exploreDefn := defn.Explores[exploreName]
		if missing := missingView(exploreDefn, viewFiles); missing != "" {
			report.Add("explore", name, exploreName,
				lookgen.NewConfigError("explores", exploreName,
					fmt.Sprintf("explore depends on failed view %q", missing)))
			continue
		}
		file, err := explores.Generate(&explores.Request{
			Namespace: name,
			Name:      exploreName,
			Defn:      exploreDefn,
			Views:     viewFiles,
		})
		if err != nil {
			if lookgen.IsJoinError(err) {
				report.Add("namespace", name, exploreName, err)
				logger.Warn("namespace aborted",
					zap.String("namespace", name), zap.Error(err))
				return nil, nil
			}
			return nil, err
		}
		files[path.Join(name, "explores", explores.FileName(exploreName))] = fileHeader + file.Render()
	}

	for _, dashName := range sortedKeys(defn.Dashboards) {
		content, err := renderDashboard(opts, name, dashName, defn, viewFiles)
		if err != nil {
			if lookgen.IsBindingError(err) {
				report.Add("dashboard", name, dashName, err)
				continue
			}
			return nil, err
		}
		files[path.Join(name, "dashboards", dashboards.FileName(dashName))] = content
	}

	logger.Debug("generated namespace",
		zap.String("namespace", name), zap.Int("files", len(files)))
	return files, nil
}

func renderDashboard(opts Options, namespace, dashName string, defn load.NamespaceDefn, viewFiles map[string]*views.File) (string, error) {
	dash, err := dashboards.Generate(&dashboards.Request{
		Namespace: namespace,
		Name:      dashName,
		Defn:      defn.Dashboards[dashName],
		Explores:  defn.Explores,
		Views:     viewFiles,
	})
	if err != nil {
		return "", err
	}
	rendered, err := dash.Render()
	if err != nil {
		return "", err
	}
	return fileHeader + rendered, nil
}

// missingView returns the first referenced view an explore cannot find among
// the generated view files, empty when all resolve.
func missingView(defn load.ExploreDefn, viewFiles map[string]*views.File) string {
	for _, role := range []string{"base_view", "extended_view", "joined_view"} {
		view, ok := defn.Views[role]
		if !ok {
			continue
		}
		if _, ok := viewFiles[view]; !ok {
			return view
		}
	}
	return ""
}

func writeFiles(outDir string, files map[string]string, skip map[string]bool) error {
	for _, rel := range sortedKeys(files) {
		if skip[rel] {
			continue
		}
		target := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("gen: creating output directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(files[rel]), 0o644); err != nil {
			return fmt.Errorf("gen: writing %s: %w", rel, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
