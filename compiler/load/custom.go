package load

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DimensionDefault is the default value and dropdown options of one
// operational monitoring breakdown dimension.
type DimensionDefault struct {
	Default string   `yaml:"default"`
	Options []string `yaml:"options"`
}

// Summary selects one metric and statistic pair for dashboard rendering.
type Summary struct {
	Metric       string   `yaml:"metric"`
	Statistic    string   `yaml:"statistic"`
	MetricGroups []string `yaml:"metric_groups,omitempty"`
}

// TableDefn is one table entry of a view definition. The table name may be a
// glob pattern; the namespace resolver expands it against the known tables.
type TableDefn struct {
	Table           string                      `yaml:"table,omitempty"`
	Channel         string                      `yaml:"channel,omitempty"`
	EventsTableView string                      `yaml:"events_table_view,omitempty"`
	BaseTable       string                      `yaml:"base_table,omitempty"`
	Xaxis           string                      `yaml:"xaxis,omitempty"`
	Dimensions      map[string]DimensionDefault `yaml:"dimensions,omitempty"`
}

// ViewDefn is a view definition inside a namespace document.
type ViewDefn struct {
	Type   string      `yaml:"type"`
	Tables []TableDefn `yaml:"tables,omitempty"`
	// IdentifierField overrides the client identifier growth accounting
	// views key their grain on.
	IdentifierField string `yaml:"identifier_field,omitempty"`
}

// ExploreDefn is an explore definition inside a namespace document.
type ExploreDefn struct {
	Type       string                      `yaml:"type"`
	Views      map[string]string           `yaml:"views"`
	Branches   []string                    `yaml:"branches,omitempty"`
	Xaxis      string                      `yaml:"xaxis,omitempty"`
	Dimensions map[string]DimensionDefault `yaml:"dimensions,omitempty"`
	Summaries  []Summary                   `yaml:"summaries,omitempty"`
}

// DashboardTableDefn is one table entry of a dashboard definition.
type DashboardTableDefn struct {
	Explore              string                      `yaml:"explore"`
	Table                string                      `yaml:"table"`
	Branches             []string                    `yaml:"branches,omitempty"`
	Xaxis                string                      `yaml:"xaxis,omitempty"`
	CompactVisualization bool                        `yaml:"compact_visualization,omitempty"`
	Dimensions           map[string]DimensionDefault `yaml:"dimensions,omitempty"`
	GroupByDimension     string                      `yaml:"group_by_dimension,omitempty"`
	Summaries            []Summary                   `yaml:"summaries,omitempty"`
}

// DashboardDefn is a dashboard definition inside a namespace document.
type DashboardDefn struct {
	Type   string               `yaml:"type"`
	Title  string               `yaml:"title"`
	Tables []DashboardTableDefn `yaml:"tables"`
}

// NamespaceDefn is one namespace's definition: its views, explores and
// dashboards, plus presentation metadata.
type NamespaceDefn struct {
	PrettyName string                   `yaml:"pretty_name,omitempty"`
	Owners     []string                 `yaml:"owners,omitempty"`
	Spoke      string                   `yaml:"spoke,omitempty"`
	GleanApp   *bool                    `yaml:"glean_app,omitempty"`
	Views      map[string]ViewDefn      `yaml:"views,omitempty"`
	Explores   map[string]ExploreDefn   `yaml:"explores,omitempty"`
	Dashboards map[string]DashboardDefn `yaml:"dashboards,omitempty"`
}

// CustomNamespaces is the hand-maintained namespace override document.
type CustomNamespaces map[string]NamespaceDefn

// ParseCustomNamespaces parses the custom namespaces YAML document. An empty
// document yields an empty map.
func ParseCustomNamespaces(data []byte) (CustomNamespaces, error) {
	custom := make(CustomNamespaces)
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("load: parsing custom namespaces: %w", err)
	}
	return custom, nil
}

// ParseNameList parses a flat YAML sequence of namespace identifiers, as used
// by the allowlist and disallowlist. Entries may be glob patterns.
func ParseNameList(data []byte) ([]string, error) {
	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		// The disallowlist has historically also been written as a mapping of
		// name -> null; accept that shape too.
		var asMap map[string]any
		if mapErr := yaml.Unmarshal(data, &asMap); mapErr != nil {
			return nil, fmt.Errorf("load: parsing name list: %w", err)
		}
		for name := range asMap {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
