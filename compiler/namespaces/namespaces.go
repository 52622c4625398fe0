// Package namespaces resolves the full set of generation namespaces from the
// application catalog, the warehouse view reference map, the hand-maintained
// custom namespace document and the metric-hub definitions.
//
// Resolution is a pure function of its inputs. The same catalog produces the
// same namespace mapping regardless of input ordering.
package namespaces

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/views"
)

// DefaultSpoke is assigned to namespaces that do not pick their own spoke.
const DefaultSpoke = "looker-spoke-default"

// UserFacingProject is the project whose datasets hold the user-facing views
// derived namespaces read from.
const UserFacingProject = "mozdata"

// Options are the inputs to Resolve.
type Options struct {
	// Apps is the parsed application catalog.
	Apps []load.App
	// DBViews maps dataset -> view -> referenced tables.
	DBViews load.ViewReferenceMap
	// Custom is the hand-maintained namespace override document.
	Custom load.CustomNamespaces
	// Metrics holds the metric-hub definitions, may be nil.
	Metrics *load.MetricsConfig
	// Tables lists the known fully qualified table names custom glob
	// patterns are expanded against.
	Tables []string
	// Allowlist and Disallowlist are namespace name patterns. Disallowed
	// namespaces are dropped unless the allowlist also matches them.
	Allowlist    []string
	Disallowlist []string
}

// Resolve computes the namespace mapping that generation runs over. Derived
// application namespaces come first, custom entries are merged on top (a
// custom entry setting glean_app to false replaces the derived one entirely),
// metric-hub namespaces are merged last, and finally the disallowlist is
// applied and defaults are filled in.
func Resolve(opts Options) (load.CustomNamespaces, error) {
	resolved := make(load.CustomNamespaces, len(opts.Apps))
	for _, app := range opts.Apps {
		defn, err := deriveApp(app, opts.DBViews)
		if err != nil {
			return nil, err
		}
		resolved[app.Name] = defn
	}

	custom, err := expandGlobs(opts.Custom, opts.Tables)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(custom) {
		merge(resolved, name, custom[name])
	}

	if opts.Metrics != nil {
		metricHub := metricHubNamespaces(opts.Metrics, resolved)
		for _, name := range sortedKeys(metricHub) {
			merge(resolved, name, metricHub[name])
		}
	}

	for _, name := range sortedKeys(resolved) {
		if matchesAny(name, opts.Disallowlist) && !matchesAny(name, opts.Allowlist) {
			delete(resolved, name)
			continue
		}
		defn := resolved[name]
		if defn.Spoke == "" {
			defn.Spoke = DefaultSpoke
		}
		if defn.GleanApp == nil {
			defn.GleanApp = boolPtr(false)
		}
		resolved[name] = defn
	}
	return resolved, nil
}

// deriveApp builds the namespace definition of one application from the view
// reference map: ping views over views selecting a single stable ping table,
// a plain table view per warehouse view, and the derived events,
// client_counts and funnel_analysis views when their source tables exist.
func deriveApp(app load.App, dbViews load.ViewReferenceMap) (load.NamespaceDefn, error) {
	views := make(map[string]load.ViewDefn)
	explores := make(map[string]load.ExploreDefn)

	add := func(name string, defn load.ViewDefn) error {
		if _, ok := views[name]; ok {
			return lookgen.NewConfigError("namespace", app.Name,
				fmt.Sprintf("duplicate view name %q", name))
		}
		views[name] = defn
		return nil
	}

	for _, name := range pingViewNames(app, dbViews) {
		var tables []load.TableDefn
		for _, channel := range app.Channels {
			if !selectsStablePing(dbViews, channel, name) {
				continue
			}
			tables = append(tables, load.TableDefn{
				Table:   fmt.Sprintf("%s.%s.%s", UserFacingProject, channel.Dataset, name),
				Channel: channel.Channel,
			})
		}
		if err := add(name, load.ViewDefn{Type: "ping_view", Tables: tables}); err != nil {
			return load.NamespaceDefn{}, err
		}
		explores[name] = load.ExploreDefn{
			Type:  "ping_explore",
			Views: map[string]string{"base_view": name},
		}
	}

	for _, channel := range app.Channels {
		for _, name := range dbViews.ViewNames(channel.Dataset) {
			tableName := name + "_table"
			table := load.TableDefn{
				Table:   fmt.Sprintf("%s.%s.%s", UserFacingProject, channel.Dataset, name),
				Channel: channel.Channel,
			}
			if existing, ok := views[tableName]; ok {
				existing.Tables = append(existing.Tables, table)
				views[tableName] = existing
				continue
			}
			if err := add(tableName, load.ViewDefn{Type: "table_view", Tables: []load.TableDefn{table}}); err != nil {
				return load.NamespaceDefn{}, err
			}
		}
	}

	release := app.ReleaseChannel()
	releaseViews := dbViews[release.Dataset]

	if _, ok := releaseViews["events_unnested"]; ok {
		if err := add("events", load.ViewDefn{
			Type: "events_view",
			Tables: []load.TableDefn{{
				EventsTableView: "events_unnested_table",
				BaseTable:       fmt.Sprintf("%s.%s.events_unnested", UserFacingProject, release.Dataset),
			}},
		}); err != nil {
			return load.NamespaceDefn{}, err
		}
		exploreViews := map[string]string{
			"base_view":     "events",
			"extended_view": "events_unnested_table",
		}
		if _, ok := views["baseline"]; ok {
			exploreViews["joined_view"] = "baseline"
		}
		explores["events"] = load.ExploreDefn{
			Type:  "events_explore",
			Views: exploreViews,
		}
	}

	for _, daily := range []string{"baseline_clients_daily", "clients_daily"} {
		if _, ok := releaseViews[daily]; !ok {
			continue
		}
		if err := add("client_counts", load.ViewDefn{
			Type: "client_counts_view",
			Tables: []load.TableDefn{{
				Table: fmt.Sprintf("%s.%s.%s", UserFacingProject, release.Dataset, daily),
			}},
		}); err != nil {
			return load.NamespaceDefn{}, err
		}
		explores["client_counts"] = load.ExploreDefn{
			Type: "client_counts_explore",
			Views: map[string]string{
				"base_view":     "client_counts",
				"extended_view": daily + "_table",
			},
		}
		break
	}

	if _, ok := releaseViews["baseline_clients_last_seen"]; ok {
		if err := add("growth_accounting", load.ViewDefn{
			Type: "growth_accounting_view",
			Tables: []load.TableDefn{{
				Table: fmt.Sprintf("%s.%s.baseline_clients_last_seen", UserFacingProject, release.Dataset),
			}},
		}); err != nil {
			return load.NamespaceDefn{}, err
		}
		explores["growth_accounting"] = load.ExploreDefn{
			Type:  "growth_accounting_explore",
			Views: map[string]string{"base_view": "growth_accounting"},
		}
	}

	if _, ok := releaseViews["events_daily"]; ok {
		if _, ok := releaseViews["event_types"]; ok {
			if err := add("funnel_analysis", load.ViewDefn{
				Type: "funnel_analysis_view",
				Tables: []load.TableDefn{{
					Table: fmt.Sprintf("%s.%s.events_daily", UserFacingProject, release.Dataset),
				}},
			}); err != nil {
				return load.NamespaceDefn{}, err
			}
			explores["funnel_analysis"] = load.ExploreDefn{
				Type:  "funnel_analysis_explore",
				Views: map[string]string{"base_view": "funnel_analysis"},
			}
		}
	}

	return load.NamespaceDefn{
		PrettyName: app.PrettyName,
		Owners:     app.Owners,
		GleanApp:   boolPtr(true),
		Views:      views,
		Explores:   explores,
	}, nil
}

// pingViewNames lists, in sorted order, the warehouse views of an app that
// select from a stable ping table on at least one channel.
func pingViewNames(app load.App, dbViews load.ViewReferenceMap) []string {
	seen := make(map[string]bool)
	for _, channel := range app.Channels {
		for name := range dbViews[channel.Dataset] {
			if selectsStablePing(dbViews, channel, name) {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectsStablePing reports whether a view selects from exactly one stable
// ping table of the channel, possibly unioned across app id variants.
func selectsStablePing(dbViews load.ViewReferenceMap, channel load.Channel, view string) bool {
	refs, ok := dbViews[channel.Dataset][view]
	if !ok || len(refs) == 0 {
		return false
	}
	tables := make(map[string]bool)
	datasets := make(map[string]bool)
	for _, ref := range refs {
		if len(ref) < 2 {
			return false
		}
		tables[ref[len(ref)-1]] = true
		datasets[ref[len(ref)-2]] = true
	}
	return len(tables) == 1 && datasets[channel.SourceDataset]
}

// metricHubNamespaces builds one namespace fragment per metric-hub platform:
// a metric_definitions view and explore per data source that has at least one
// metric defined against it. When the platform already resolves to a
// namespace with a client_counts or baseline_clients_daily view its table is
// carried over so the view can join against it.
func metricHubNamespaces(cfg *load.MetricsConfig, existing load.CustomNamespaces) load.CustomNamespaces {
	out := make(load.CustomNamespaces)
	for _, namespace := range cfg.Namespaces() {
		sources := cfg.DataSourcesOfNamespace(namespace)
		if len(sources) == 0 {
			continue
		}
		viewDefns := make(map[string]load.ViewDefn, len(sources))
		explores := make(map[string]load.ExploreDefn, len(sources))
		for _, source := range sources {
			name := "metric_definitions_" + source
			defn := load.ViewDefn{Type: "metric_definitions_view"}
			if table, ok := joinTable(existing[namespace]); ok {
				defn.Tables = []load.TableDefn{{Table: table}}
			}
			viewDefns[name] = defn
			explores[name] = load.ExploreDefn{
				Type:  "metric_definitions_explore",
				Views: map[string]string{"base_view": name},
			}
		}
		out[namespace] = load.NamespaceDefn{
			PrettyName: views.SlugToTitle(namespace),
			Views:      viewDefns,
			Explores:   explores,
		}
	}
	return out
}

// joinTable picks the table metric definition views join against, preferring
// the client_counts view over the raw baseline_clients_daily one.
func joinTable(defn load.NamespaceDefn) (string, bool) {
	for _, name := range []string{"client_counts", "baseline_clients_daily"} {
		view, ok := defn.Views[name]
		if !ok || len(view.Tables) == 0 {
			continue
		}
		return view.Tables[0].Table, true
	}
	return "", false
}

// expandGlobs replaces glob-patterned table entries of custom view
// definitions with one entry per matching known table. A pattern matching
// nothing indicates stale configuration and fails the run.
func expandGlobs(custom load.CustomNamespaces, tables []string) (load.CustomNamespaces, error) {
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)

	out := make(load.CustomNamespaces, len(custom))
	for name, defn := range custom {
		if len(defn.Views) > 0 {
			views := make(map[string]load.ViewDefn, len(defn.Views))
			for viewName, view := range defn.Views {
				expanded := make([]load.TableDefn, 0, len(view.Tables))
				for _, table := range view.Tables {
					if !isPattern(table.Table) {
						expanded = append(expanded, table)
						continue
					}
					matched := false
					for _, candidate := range sorted {
						ok, err := doublestar.Match(table.Table, candidate)
						if err != nil {
							return nil, lookgen.NewConfigError("views", table.Table,
								fmt.Sprintf("invalid table pattern in namespace %q: %v", name, err))
						}
						if !ok {
							continue
						}
						matched = true
						entry := table
						entry.Table = candidate
						expanded = append(expanded, entry)
					}
					if !matched {
						return nil, lookgen.NewConfigError("views", table.Table,
							fmt.Sprintf("table pattern in namespace %q matches no known table", name))
					}
				}
				view.Tables = expanded
				views[viewName] = view
			}
			defn.Views = views
		}
		out[name] = defn
	}
	return out, nil
}

func isPattern(table string) bool {
	return strings.ContainsAny(table, "*?[{")
}

// merge folds one namespace fragment into the resolved mapping. Setting
// glean_app to false replaces the derived entry wholesale, which suppresses
// the auto-generated views and explores. Otherwise fields merge key-wise with
// the incoming fragment winning and owner lists combining.
func merge(resolved load.CustomNamespaces, name string, incoming load.NamespaceDefn) {
	base, ok := resolved[name]
	if !ok || (incoming.GleanApp != nil && !*incoming.GleanApp) {
		resolved[name] = incoming
		return
	}

	if incoming.PrettyName != "" {
		base.PrettyName = incoming.PrettyName
	}
	if incoming.Spoke != "" {
		base.Spoke = incoming.Spoke
	}
	if incoming.GleanApp != nil {
		base.GleanApp = incoming.GleanApp
	}
	base.Owners = append(base.Owners, incoming.Owners...)
	base.Views = mergeMaps(base.Views, incoming.Views)
	base.Explores = mergeMaps(base.Explores, incoming.Explores)
	base.Dashboards = mergeMaps(base.Dashboards, incoming.Dashboards)
	resolved[name] = base
}

func mergeMaps[V any](base, incoming map[string]V) map[string]V {
	if len(incoming) == 0 {
		return base
	}
	if base == nil {
		base = make(map[string]V, len(incoming))
	}
	for k, v := range incoming {
		base[k] = v
	}
	return base
}

// matchesAny reports whether any of the patterns matches the name in full.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func boolPtr(b bool) *bool { return &b }
