package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/schema"
)

func testSchemas() *load.StaticSchemaSource {
	return &load.StaticSchemaSource{Tables: map[string]*schema.Table{
		"mozdata.fenix.baseline": {
			Project: "mozdata", Dataset: "fenix", Name: "baseline",
			Columns: []*schema.Column{
				{Name: "client_id", Type: schema.TypeString},
				{Name: "os", Type: schema.TypeString},
				{Name: "submission_timestamp", Type: schema.TypeTimestamp},
			},
		},
		"moz-fx-data-shared-prod.operational_monitoring.fission_statistics": {
			Project: "moz-fx-data-shared-prod", Dataset: "operational_monitoring", Name: "fission_statistics",
			Columns: []*schema.Column{
				{Name: "branch", Type: schema.TypeString},
				{Name: "build_id", Type: schema.TypeInteger},
				{Name: "cores_count", Type: schema.TypeString},
				{Name: "metric", Type: schema.TypeString},
				{Name: "statistic", Type: schema.TypeString},
				{Name: "parameter", Type: schema.TypeNumeric},
				{Name: "point", Type: schema.TypeFloat},
				{Name: "lower", Type: schema.TypeFloat},
				{Name: "upper", Type: schema.TypeFloat},
			},
		},
	}}
}

func testNamespaces() load.CustomNamespaces {
	return load.CustomNamespaces{
		"fenix": {
			PrettyName: "Firefox for Android",
			Views: map[string]load.ViewDefn{
				"baseline": {
					Type:   "ping_view",
					Tables: []load.TableDefn{{Table: "mozdata.fenix.baseline", Channel: "release"}},
				},
				"baseline_table": {
					Type:   "table_view",
					Tables: []load.TableDefn{{Table: "mozdata.fenix.baseline", Channel: "release"}},
				},
			},
			Explores: map[string]load.ExploreDefn{
				"baseline": {
					Type:  "ping_explore",
					Views: map[string]string{"base_view": "baseline"},
				},
			},
		},
		"operational_monitoring": {
			Views: map[string]load.ViewDefn{
				"fission": {
					Type: "operational_monitoring_view",
					Tables: []load.TableDefn{{
						Table: "moz-fx-data-shared-prod.operational_monitoring.fission_statistics",
						Xaxis: "build_id",
						Dimensions: map[string]load.DimensionDefault{
							"cores_count": {Default: "4", Options: []string{"4", "1"}},
						},
					}},
				},
			},
			Explores: map[string]load.ExploreDefn{
				"fission": {
					Type:     "operational_monitoring_explore",
					Views:    map[string]string{"base_view": "fission"},
					Branches: []string{"enabled", "disabled"},
					Xaxis:    "build_id",
					Summaries: []load.Summary{
						{Metric: "gc_ms", Statistic: "mean"},
					},
				},
			},
			Dashboards: map[string]load.DashboardDefn{
				"fission": {
					Type:  "operational_monitoring_dashboard",
					Title: "Fission",
					Tables: []load.DashboardTableDefn{{
						Explore:  "fission",
						Table:    "moz-fx-data-shared-prod.operational_monitoring.fission_statistics",
						Branches: []string{"enabled", "disabled"},
						Xaxis:    "build_id",
						Dimensions: map[string]load.DimensionDefault{
							"cores_count": {Default: "4", Options: []string{"4", "1"}},
						},
						Summaries: []load.Summary{
							{Metric: "gc_ms", Statistic: "mean"},
						},
					}},
				},
			},
		},
	}
}

func runOnce(t *testing.T, outDir string, protected []string) error {
	t.Helper()
	return Run(context.Background(), Options{
		OutDir:     outDir,
		Namespaces: testNamespaces(),
		Schemas:    testSchemas(),
		Protected:  protected,
	})
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestRunWritesTree(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, runOnce(t, outDir, nil))

	tree := readTree(t, outDir)
	assert.Contains(t, tree, "fenix/views/baseline.view.lkml")
	assert.Contains(t, tree, "fenix/views/baseline_table.view.lkml")
	assert.Contains(t, tree, "fenix/explores/baseline.explore.lkml")
	assert.Contains(t, tree, "operational_monitoring/views/fission.view.lkml")
	assert.Contains(t, tree, "operational_monitoring/explores/fission.explore.lkml")
	assert.Contains(t, tree, "operational_monitoring/dashboards/fission.dashboard.lookml")
	assert.Contains(t, tree, "namespaces.yaml")

	view := tree["fenix/views/baseline.view.lkml"]
	assert.True(t, strings.HasPrefix(view, "# Code generated by lookgen. DO NOT EDIT.\n"))
	assert.Contains(t, view, "view: baseline {")

	dashboard := tree["operational_monitoring/dashboards/fission.dashboard.lookml"]
	assert.Contains(t, dashboard, "- dashboard: fission")
	assert.Contains(t, dashboard, "type: looker_line")
}

func TestRunDeterministic(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, runOnce(t, first, nil))
	require.NoError(t, runOnce(t, second, nil))

	assert.Equal(t, readTree(t, first), readTree(t, second))
}

func TestProtectedConflictFailsClosed(t *testing.T) {
	outDir := t.TempDir()
	protected := filepath.Join(outDir, "fenix", "views", "baseline.view.lkml")
	require.NoError(t, os.MkdirAll(filepath.Dir(protected), 0o755))
	require.NoError(t, os.WriteFile(protected, []byte("view: hand_maintained {}\n"), 0o644))

	err := runOnce(t, outDir, []string{"fenix/views/*.view.lkml"})
	require.Error(t, err)
	assert.True(t, lookgen.IsConflictError(err))
	assert.Contains(t, err.Error(), "fenix/views/baseline.view.lkml")

	data, readErr := os.ReadFile(protected)
	require.NoError(t, readErr)
	assert.Equal(t, "view: hand_maintained {}\n", string(data), "conflicting file is left untouched")
}

func TestProtectedUnchangedSucceeds(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, runOnce(t, outDir, nil))
	require.NoError(t, runOnce(t, outDir, []string{"**/*.view.lkml", NamespacesFile}))
}

func TestSchemaFailureIsolatedPerView(t *testing.T) {
	schemas := testSchemas()
	schemas.Tables["mozdata.fenix.baseline"].Columns = append(
		schemas.Tables["mozdata.fenix.baseline"].Columns,
		&schema.Column{Name: "geo", Type: schema.TypeInvalid},
	)

	outDir := t.TempDir()
	err := Run(context.Background(), Options{
		OutDir:     outDir,
		Namespaces: testNamespaces(),
		Schemas:    schemas,
	})
	require.Error(t, err)
	assert.True(t, lookgen.IsSchemaError(err))

	tree := readTree(t, outDir)
	assert.NotContains(t, tree, "fenix/views/baseline.view.lkml")
	assert.Contains(t, tree, "operational_monitoring/views/fission.view.lkml",
		"other namespaces still generate")
}

func TestReportOrdering(t *testing.T) {
	report := &Report{}
	report.Add("view", "fenix", "metrics", lookgen.NewSchemaError("t", "c", "INVALID", "no rule"))
	report.Add("dashboard", "burnham", "overview", lookgen.NewBindingError("overview", "e", "x", "f"))

	units := report.Units()
	require.Len(t, units, 2)
	assert.Equal(t, "burnham", units[0].Namespace)
	assert.Equal(t, "fenix", units[1].Namespace)

	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard burnham/overview")
	assert.Contains(t, err.Error(), "view fenix/metrics")
}
