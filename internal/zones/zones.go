// Package zones groups contiguous cells of equal risk category into zones.
package zones

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

// Connectivity selects neighbour connectivity.
type Connectivity int

const (
	// Conn4 uses N, E, S, W neighbours.
	Conn4 Connectivity = iota
	// Conn8 adds the diagonals.
	Conn8
)

var (
	offsets4 = [][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}
	offsets8 = [][2]int{{-1, 0}, {-1, 1}, {0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}}
)

// Zone is one connected region of a single category.
type Zone struct {
	ID       int           `json:"id"`
	Category risk.Category `json:"category"`
	// Cells holds row-major cell indices in BFS order.
	Cells []int `json:"-"`
	Count int   `json:"count"`
	// Bounding box in cell coordinates, inclusive.
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
	// Area is Count times the cell area of the grid's transform; zero when
	// the grid is not geo-referenced.
	Area float64 `json:"area"`
}

// Options filter and shape zone extraction.
type Options struct {
	Conn Connectivity
	// MinCells drops zones smaller than this.
	MinCells int
}

// Extract returns the connected zones of category cat in a classified grid,
// largest first (ties broken by first cell index).
func Extract(g *grid.Grid, cat risk.Category, opts Options) ([]Zone, error) {
	if !cat.Valid() {
		return nil, eris.Errorf("zones: invalid category %d", cat)
	}
	offsets := offsets4
	if opts.Conn == Conn8 {
		offsets = offsets8
	}
	rows, cols := g.Shape()
	cellArea := g.Meta.CellArea()

	seen := make([]bool, rows*cols)
	var zones []Zone
	for start := 0; start < rows*cols; start++ {
		if seen[start] || risk.CategoryAt(g, start/cols, start%cols) != cat {
			continue
		}
		seen[start] = true
		queue := []int{start}
		z := Zone{Category: cat, MinRow: rows, MinCol: cols, MaxRow: -1, MaxCol: -1}
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			ur, uc := u/cols, u%cols
			z.MinRow, z.MaxRow = min(z.MinRow, ur), max(z.MaxRow, ur)
			z.MinCol, z.MaxCol = min(z.MinCol, uc), max(z.MaxCol, uc)
			for _, d := range offsets {
				vr, vc := ur+d[0], uc+d[1]
				if vr < 0 || vr >= rows || vc < 0 || vc >= cols {
					continue
				}
				vi := vr*cols + vc
				if seen[vi] || risk.CategoryAt(g, vr, vc) != cat {
					continue
				}
				seen[vi] = true
				queue = append(queue, vi)
			}
		}
		if len(queue) < opts.MinCells {
			continue
		}
		z.Cells = queue
		z.Count = len(queue)
		z.Area = float64(z.Count) * cellArea
		zones = append(zones, z)
	}

	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Count > zones[j].Count
	})
	for i := range zones {
		zones[i].ID = i + 1
	}
	return zones, nil
}
