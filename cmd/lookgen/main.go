// lookgen generates the LookML output tree from BigQuery metadata, metric-hub
// definitions and namespace configuration.
//
// Configuration comes from the environment (optionally via a .env file), with
// flags overriding the common paths. See config for the full set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/syssam/lookgen/compiler/gen"
	"github.com/syssam/lookgen/compiler/load"
	"github.com/syssam/lookgen/compiler/namespaces"
	"github.com/syssam/lookgen/schema"
)

type config struct {
	AppListings      string   `env:"LOOKGEN_APP_LISTINGS"`
	GeneratedSQL     string   `env:"LOOKGEN_GENERATED_SQL"`
	CustomNamespaces string   `env:"LOOKGEN_CUSTOM_NAMESPACES"`
	Allowlist        string   `env:"LOOKGEN_ALLOWLIST"`
	Disallowlist     string   `env:"LOOKGEN_DISALLOWLIST"`
	MetricHubDir     string   `env:"LOOKGEN_METRIC_HUB_DIR"`
	Tables           string   `env:"LOOKGEN_TABLES"`
	OutDir           string   `env:"LOOKGEN_OUT" envDefault:"looker-hub"`
	Project          string   `env:"LOOKGEN_PROJECT" envDefault:"moz-fx-data-shared-prod"`
	BigQueryProject  string   `env:"LOOKGEN_BIGQUERY_PROJECT"`
	BQCredentials    string   `env:"LOOKGEN_BQ_CREDENTIALS"`
	SchemaCache      string   `env:"LOOKGEN_SCHEMA_CACHE"`
	Protected        []string `env:"LOOKGEN_PROTECTED" envSeparator:","`
	Workers          int      `env:"LOOKGEN_WORKERS" envDefault:"4"`
	Verbose          bool     `env:"LOOKGEN_VERBOSE" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "lookgen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	flag.StringVar(&cfg.AppListings, "app-listings", cfg.AppListings, "path to the app listings JSON")
	flag.StringVar(&cfg.GeneratedSQL, "generated-sql", cfg.GeneratedSQL, "path to the generated-sql tar.gz archive")
	flag.StringVar(&cfg.CustomNamespaces, "custom-namespaces", cfg.CustomNamespaces, "path to the custom namespaces YAML")
	flag.StringVar(&cfg.Allowlist, "allowlist", cfg.Allowlist, "path to the namespace allowlist YAML")
	flag.StringVar(&cfg.Disallowlist, "disallowlist", cfg.Disallowlist, "path to the namespace disallowlist YAML")
	flag.StringVar(&cfg.MetricHubDir, "metric-hub", cfg.MetricHubDir, "directory of metric-hub TOML definitions")
	flag.StringVar(&cfg.OutDir, "out", cfg.OutDir, "output directory")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")
	flag.Parse()

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	opts, err := resolveOptions(ctx, cfg)
	if err != nil {
		return err
	}
	opts.Logger = logger

	logger.Info("starting generation",
		zap.String("out", cfg.OutDir),
		zap.Int("namespaces", len(opts.Namespaces)),
		zap.Int("workers", cfg.Workers))
	return gen.Run(ctx, opts)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// resolveOptions loads every input and resolves the namespace mapping the run
// generates from.
func resolveOptions(ctx context.Context, cfg config) (gen.Options, error) {
	var resolveOpts namespaces.Options

	if cfg.AppListings != "" {
		data, err := os.ReadFile(cfg.AppListings)
		if err != nil {
			return gen.Options{}, fmt.Errorf("reading app listings: %w", err)
		}
		if resolveOpts.Apps, err = load.ParseAppListings(data); err != nil {
			return gen.Options{}, err
		}
	}

	if cfg.GeneratedSQL != "" {
		f, err := os.Open(cfg.GeneratedSQL)
		if err != nil {
			return gen.Options{}, fmt.Errorf("opening generated-sql archive: %w", err)
		}
		resolveOpts.DBViews, err = load.ReadViewReferences(f, cfg.Project)
		f.Close()
		if err != nil {
			return gen.Options{}, err
		}
	}

	if cfg.CustomNamespaces != "" {
		data, err := os.ReadFile(cfg.CustomNamespaces)
		if err != nil {
			return gen.Options{}, fmt.Errorf("reading custom namespaces: %w", err)
		}
		if resolveOpts.Custom, err = load.ParseCustomNamespaces(data); err != nil {
			return gen.Options{}, err
		}
	}

	var err error
	if resolveOpts.Allowlist, err = readNameList(cfg.Allowlist); err != nil {
		return gen.Options{}, err
	}
	if resolveOpts.Disallowlist, err = readNameList(cfg.Disallowlist); err != nil {
		return gen.Options{}, err
	}
	if resolveOpts.Tables, err = readLines(cfg.Tables); err != nil {
		return gen.Options{}, err
	}

	metrics, err := readMetricHub(cfg.MetricHubDir)
	if err != nil {
		return gen.Options{}, err
	}
	resolveOpts.Metrics = metrics

	resolved, err := namespaces.Resolve(resolveOpts)
	if err != nil {
		return gen.Options{}, err
	}

	schemas, err := newSchemaSource(ctx, cfg)
	if err != nil {
		return gen.Options{}, err
	}

	return gen.Options{
		OutDir:     cfg.OutDir,
		Namespaces: resolved,
		Schemas:    schemas,
		Metrics:    metrics,
		Protected:  cfg.Protected,
		Workers:    cfg.Workers,
	}, nil
}

// newSchemaSource builds the schema source chain: BigQuery when a project is
// configured, an on-disk snapshot cache when a cache directory is, and an
// in-memory memo always.
func newSchemaSource(ctx context.Context, cfg config) (load.SchemaSource, error) {
	if cfg.BigQueryProject == "" {
		if cfg.SchemaCache == "" {
			return nil, fmt.Errorf("either LOOKGEN_BIGQUERY_PROJECT or LOOKGEN_SCHEMA_CACHE must be set")
		}
		cached := load.NewCachedSchemaSource(missSource{}, cfg.SchemaCache)
		return load.NewMemoSchemaSource(cached), nil
	}

	var clientOpts []option.ClientOption
	if cfg.BQCredentials != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.BQCredentials))
	}
	client, err := bigquery.NewClient(ctx, cfg.BigQueryProject, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client: %w", err)
	}

	var source load.SchemaSource = load.NewBigQuerySchemaSource(client)
	if cfg.SchemaCache != "" {
		source = load.NewCachedSchemaSource(source, cfg.SchemaCache)
	}
	return load.NewMemoSchemaSource(source), nil
}

// missSource backs cache-only runs, where every schema must already be
// snapshotted on disk.
type missSource struct{}

func (missSource) TableSchema(_ context.Context, project, dataset, table string) (*schema.Table, error) {
	return nil, fmt.Errorf("no schema snapshot for %s.%s.%s and no BigQuery project configured", project, dataset, table)
}

func readNameList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return load.ParseNameList(data)
}

// readLines reads a newline-separated list, skipping blanks and # comments.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// readMetricHub parses every TOML document in the directory; the file name
// (without extension) is the platform the definitions belong to.
func readMetricHub(dir string) (*load.MetricsConfig, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading metric-hub directory: %w", err)
	}
	docs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading metric-hub config: %w", err)
		}
		platform := strings.TrimSuffix(entry.Name(), ".toml")
		docs[platform] = string(data)
	}
	return load.ParseMetricsConfig(docs)
}
