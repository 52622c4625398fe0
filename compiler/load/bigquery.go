package load

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/syssam/lookgen/schema"
)

// BigQuerySchemaSource fetches table schemas from the BigQuery metadata API.
type BigQuerySchemaSource struct {
	Client *bigquery.Client
}

// NewBigQuerySchemaSource returns a schema source backed by the given client.
func NewBigQuerySchemaSource(client *bigquery.Client) *BigQuerySchemaSource {
	return &BigQuerySchemaSource{Client: client}
}

// TableSchema implements SchemaSource.
func (s *BigQuerySchemaSource) TableSchema(ctx context.Context, project, dataset, table string) (*schema.Table, error) {
	md, err := s.Client.DatasetInProject(project, dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: fetching schema for %s.%s.%s: %w", project, dataset, table, err)
	}
	return &schema.Table{
		Project: project,
		Dataset: dataset,
		Name:    table,
		Columns: convertSchema(md.Schema),
	}, nil
}

func convertSchema(fields bigquery.Schema) []*schema.Column {
	columns := make([]*schema.Column, 0, len(fields))
	for _, f := range fields {
		mode := schema.ModeNullable
		switch {
		case f.Repeated:
			mode = schema.ModeRepeated
		case f.Required:
			mode = schema.ModeRequired
		}
		columns = append(columns, &schema.Column{
			Name:        f.Name,
			Type:        schema.ParseType(string(f.Type)),
			Mode:        mode,
			Description: f.Description,
			Fields:      convertSchema(f.Schema),
		})
	}
	return columns
}
