// Package risk defines flood-risk categories and combines classified factor
// grids into a single weighted risk surface.
package risk

import "github.com/sells-group/floodrisk/internal/grid"

// Category is an ordinal per-cell risk class.
type Category int

// Risk categories. Values are stored in grids as float64.
const (
	Low      Category = 1
	Moderate Category = 2
	High     Category = 3
	NoData   Category = 4
)

// Categories lists every category in code order.
var Categories = []Category{Low, Moderate, High, NoData}

func (c Category) String() string {
	switch c {
	case Low:
		return "low"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	case NoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the four defined categories.
func (c Category) Valid() bool {
	return c >= Low && c <= NoData
}

// CategoryAt reads the category stored at (row, col) of a classified grid.
// Masked cells and out-of-range codes read as NoData.
func CategoryAt(g *grid.Grid, row, col int) Category {
	return categoryAtIndex(g, row*g.Cols()+col)
}

func categoryAtIndex(g *grid.Grid, i int) Category {
	v, ok := g.AtIndex(i)
	if !ok {
		return NoData
	}
	c := Category(v)
	if float64(c) != v || c < Low || c > High {
		return NoData
	}
	return c
}

// Histogram counts cells per category over a classified grid.
func Histogram(g *grid.Grid) map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for i := 0; i < g.Len(); i++ {
		counts[categoryAtIndex(g, i)]++
	}
	return counts
}
