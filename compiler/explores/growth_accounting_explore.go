package explores

// generateGrowthAccountingExplore renders the explore over a growth
// accounting view. The view carries no channel filter and no submission
// dimension group, so only the unnest joins of the clients last seen schema
// surface.
func generateGrowthAccountingExplore(req *Request) (*File, error) {
	base := req.Defn.Views["base_view"]
	joins, err := unnestedJoins(req)
	if err != nil {
		return nil, err
	}
	return &File{Explores: []*Explore{{
		Name:     req.Name,
		ViewName: base,
		Joins:    joins,
	}}}, nil
}
