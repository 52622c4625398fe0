package explores

import (
	"fmt"
	"strings"

	"github.com/syssam/lookgen"
	"github.com/syssam/lookgen/lkml"
)

// generateEventsExplore renders the per-event counts explore. The explore
// always surfaces as event_counts unless the definition already names a
// counts explore. When the namespace has a baseline ping view the explore
// joins it on client id, so event streams can be sliced by baseline
// attributes; a baseline view without a client id on either side is a join
// error for the namespace.
func generateEventsExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	extended := req.Defn.Views["extended_view"]
	extendedFile := req.Views[extended]

	name := req.Name
	if !strings.HasSuffix(name, "_counts") {
		name = "event_counts"
	}

	joins, err := unnestedJoins(req)
	if err != nil {
		return nil, err
	}

	if joined, ok := req.Defn.Views["joined_view"]; ok {
		join, err := clientIDJoin(req, base, joined)
		if err != nil {
			return nil, err
		}
		joins = append(joins, join)
	}

	explore := &Explore{
		Name:          name,
		ViewName:      base,
		Description:   "Event counts over time.",
		AlwaysFilters: requiredFilters(extendedFile, extended),
		Joins:         joins,
	}
	if group := timePartitioningGroup(extendedFile, extended); group != "" {
		dateDimension := group + "_date"
		explore.Queries = []Query{{
			Name:        "all_event_counts",
			Description: "Event counts from all events over the past two weeks.",
			Dimensions:  []string{dateDimension},
			Measures:    []string{"event_count"},
			Filters:     []lkml.Filter{{Key: dateDimension, Value: "14 days"}},
		}}
	}

	return &File{Explores: []*Explore{explore}}, nil
}

// clientIDJoin builds a many_to_one join between two views on their client id
// dimension. Both sides must expose it.
func clientIDJoin(req *Request, left, right string) (Join, error) {
	const key = "client_id"
	if !hasDimension(req.Views[left], left, key) {
		return Join{}, lookgen.NewJoinError(req.Namespace, left, right, key,
			fmt.Sprintf("view %q does not expose the join key", left))
	}
	if !hasDimension(req.Views[right], right, key) {
		return Join{}, lookgen.NewJoinError(req.Namespace, left, right, key,
			fmt.Sprintf("view %q does not expose the join key", right))
	}
	return Join{
		Name:         right,
		Relationship: "many_to_one",
		SQLOn:        fmt.Sprintf("${%s.%s} = ${%s.%s}", left, key, right, key),
		External:     true,
	}, nil
}
