package dashboards

import "sort"

// palette holds the series colors assigned to experiment branches, in
// assignment order.
var palette = []string{
	"#3FE1B0",
	"#0060E0",
	"#9059FF",
	"#B933E1",
	"#FF2A8A",
	"#FF505F",
	"#FF7139",
	"#FFA537",
	"#005E5D",
	"#073072",
	"#7F165B",
	"#A7341F",
}

// SeriesColor pairs one branch with its assigned color.
type SeriesColor struct {
	Branch string
	Color  string
}

// SeriesColors assigns palette colors to branches. The assignment is a pure
// function of the sorted branch set, so the same branches get the same colors
// on every run regardless of configuration order. Branches beyond the palette
// get no color.
func SeriesColors(branches []string) []SeriesColor {
	sorted := append([]string(nil), branches...)
	sort.Strings(sorted)

	colors := make([]SeriesColor, 0, len(sorted))
	for i, branch := range sorted {
		if i >= len(palette) {
			break
		}
		colors = append(colors, SeriesColor{Branch: branch, Color: palette[i]})
	}
	return colors
}
