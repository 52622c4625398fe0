package views

import (
	"context"

	"github.com/syssam/lookgen"
)

// generateEventsView renders the per-event view. It extends the unnested
// events table view and adds event and client counts; event_id becomes the
// primary key when the underlying table has one, enabling one_to_many joins.
func generateEventsView(ctx context.Context, req *Request) (*File, error) {
	if len(req.Defn.Tables) == 0 {
		return nil, lookgen.NewConfigError("views", req.Name, "events view has no tables")
	}
	table := req.Defn.Tables[0]
	if table.EventsTableView == "" || table.BaseTable == "" {
		return nil, lookgen.NewConfigError("views", req.Name,
			"events view needs events_table_view and base_table")
	}

	tbl, err := tableSchema(ctx, req, table.BaseTable)
	if err != nil {
		return nil, err
	}
	dims, _, err := Dimensions(tbl)
	if err != nil {
		return nil, err
	}

	measures := []Measure{{
		Name:        "event_count",
		Type:        "count",
		Description: "The number of times the event(s) occurred.",
	}}
	clientID, err := clientIDField(table.BaseTable, dims)
	if err != nil {
		return nil, err
	}
	if clientID != "" {
		measures = append(measures, Measure{
			Name:        "client_count",
			Type:        "count_distinct",
			SQL:         "${" + clientID + "}",
			Description: "The number of clients that completed the event(s).",
		})
	}

	view := &Defn{
		Name:     req.Name,
		Extends:  []string{table.EventsTableView},
		Measures: measures,
	}
	for _, d := range dims {
		if d.Name == "event_id" {
			view.Dimensions = []Dimension{{Name: "event_id", PrimaryKey: true}}
			break
		}
	}

	return &File{
		Includes: []string{FileName(table.EventsTableView)},
		Views:    []*Defn{view},
	}, nil
}
