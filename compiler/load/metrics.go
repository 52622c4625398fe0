package load

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// MetricDefinition is one metric from a metric-hub configuration file. The
// generator threads names, titles and statistics into dashboards; it never
// evaluates SelectExpression.
type MetricDefinition struct {
	Name             string
	DataSource       string                    `toml:"data_source"`
	SelectExpression string                    `toml:"select_expression"`
	FriendlyName     string                    `toml:"friendly_name"`
	Description      string                    `toml:"description"`
	Category         string                    `toml:"category"`
	Type             string                    `toml:"type"`
	Statistics       map[string]map[string]any `toml:"statistics"`
}

// StatisticNames returns the statistics configured for the metric in sorted
// order. A metric without statistics renders no dashboard elements.
func (m MetricDefinition) StatisticNames() []string {
	names := make([]string, 0, len(m.Statistics))
	for name := range m.Statistics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DataSourceDefinition is one data source from a metric-hub configuration
// file. FromExpression may carry a {dataset} substitution placeholder.
type DataSourceDefinition struct {
	Name                  string
	FromExpression        string `toml:"from_expression"`
	ClientIDColumn        string `toml:"client_id_column"`
	SubmissionDateColumn  string `toml:"submission_date_column"`
	ExperimentsColumnType string `toml:"experiments_column_type"`
	DefaultDataset        string `toml:"default_dataset"`
	FriendlyName          string `toml:"friendly_name"`
	Description           string `toml:"description"`
	BuildIDColumn         string `toml:"build_id_column"`
}

// TableFor resolves the data source's from_expression against a dataset,
// substituting the {dataset} placeholder. An empty dataset falls back to the
// configured default.
func (d DataSourceDefinition) TableFor(dataset string) string {
	if dataset == "" {
		dataset = d.DefaultDataset
	}
	return strings.ReplaceAll(d.FromExpression, "{dataset}", dataset)
}

// MetricsSpec is the parsed form of one metric-hub TOML document.
type MetricsSpec struct {
	Metrics     map[string]MetricDefinition     `toml:"metrics"`
	DataSources map[string]DataSourceDefinition `toml:"data_sources"`
}

// PlatformDefinition binds a metrics spec to the namespace (platform) it
// belongs to.
type PlatformDefinition struct {
	Platform string
	Spec     MetricsSpec
}

// MetricsConfig is a collection of metric-hub definitions across namespaces.
type MetricsConfig struct {
	Definitions []PlatformDefinition
}

// ParseMetricsSpec parses one metric-hub TOML document. Metric and data
// source names are backfilled from their section keys.
func ParseMetricsSpec(data string) (MetricsSpec, error) {
	var spec MetricsSpec
	if _, err := toml.Decode(data, &spec); err != nil {
		return MetricsSpec{}, fmt.Errorf("load: parsing metric-hub config: %w", err)
	}
	for name, m := range spec.Metrics {
		m.Name = name
		spec.Metrics[name] = m
	}
	for name, d := range spec.DataSources {
		d.Name = name
		spec.DataSources[name] = d
	}
	return spec, nil
}

// ParseMetricsConfig parses metric-hub documents keyed by platform into a
// collection.
func ParseMetricsConfig(docs map[string]string) (*MetricsConfig, error) {
	platforms := make([]string, 0, len(docs))
	for platform := range docs {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	cfg := &MetricsConfig{}
	for _, platform := range platforms {
		spec, err := ParseMetricsSpec(docs[platform])
		if err != nil {
			return nil, fmt.Errorf("load: platform %s: %w", platform, err)
		}
		cfg.Definitions = append(cfg.Definitions, PlatformDefinition{Platform: platform, Spec: spec})
	}
	return cfg, nil
}

// MetricsOfDataSource returns the metric definitions of a namespace that use
// the given data source, sorted by metric name.
func (c *MetricsConfig) MetricsOfDataSource(dataSource, namespace string) []MetricDefinition {
	var metrics []MetricDefinition
	for _, def := range c.Definitions {
		if def.Platform != namespace {
			continue
		}
		for name, m := range def.Spec.Metrics {
			if m.DataSource == dataSource {
				m.Name = name
				metrics = append(metrics, m)
			}
		}
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	return metrics
}

// DataSourcesOfNamespace returns the data source slugs of a namespace that at
// least one metric uses, sorted. Unused data sources are filtered out.
func (c *MetricsConfig) DataSourcesOfNamespace(namespace string) []string {
	var sources []string
	for _, def := range c.Definitions {
		if def.Platform != namespace {
			continue
		}
		for slug := range def.Spec.DataSources {
			if len(c.MetricsOfDataSource(slug, namespace)) > 0 {
				sources = append(sources, slug)
			}
		}
	}
	sort.Strings(sources)
	return sources
}

// DataSource returns the definition of a data source in a namespace, or false.
func (c *MetricsConfig) DataSource(slug, namespace string) (DataSourceDefinition, bool) {
	for _, def := range c.Definitions {
		if def.Platform != namespace {
			continue
		}
		if d, ok := def.Spec.DataSources[slug]; ok {
			d.Name = slug
			return d, true
		}
	}
	return DataSourceDefinition{}, false
}

// Namespaces returns every platform with at least one used data source,
// sorted.
func (c *MetricsConfig) Namespaces() []string {
	var namespaces []string
	for _, def := range c.Definitions {
		if len(c.DataSourcesOfNamespace(def.Platform)) > 0 {
			namespaces = append(namespaces, def.Platform)
		}
	}
	sort.Strings(namespaces)
	return namespaces
}
