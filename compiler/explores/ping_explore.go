package explores

// generatePingExplore renders an explore per ping view with the required
// channel and submission filters plus the unnest joins of its nested views.
func generatePingExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	joins, err := unnestedJoins(req)
	if err != nil {
		return nil, err
	}
	return &File{Explores: []*Explore{{
		Name:          req.Name,
		ViewName:      base,
		AlwaysFilters: requiredFilters(req.Views[base], base),
		Joins:         joins,
	}}}, nil
}

// generateTableExplore renders a plain explore over a table view; the filter
// set is the same as for ping explores but may be empty.
func generateTableExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	joins, err := unnestedJoins(req)
	if err != nil {
		return nil, err
	}
	return &File{Explores: []*Explore{{
		Name:          req.Name,
		ViewName:      base,
		AlwaysFilters: requiredFilters(req.Views[base], base),
		Joins:         joins,
	}}}, nil
}
