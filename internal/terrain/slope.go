package terrain

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
)

// Slope returns the slope of a DEM in degrees. Gradients use central
// differences in the interior and one-sided differences at the edges;
// cellSize scales both axes (1 reproduces per-pixel gradients). Negative
// elevations are invalid. A cell is no-data when it, or any neighbour its
// gradient needs, is invalid.
func Slope(dem *grid.Grid, cellSize float64) (*grid.Grid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, eris.Errorf("terrain: cell size must be positive, got %g", cellSize)
	}
	rows, cols := dem.Shape()
	valid := func(r, c int) (float64, bool) {
		v, ok := dem.At(r, c)
		return v, ok && v >= 0
	}

	out := grid.NewLike(dem)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if _, ok := valid(r, c); !ok {
				continue
			}
			gy, ok := gradient(rows, r, func(i int) (float64, bool) { return valid(i, c) })
			if !ok {
				continue
			}
			gx, ok := gradient(cols, c, func(j int) (float64, bool) { return valid(r, j) })
			if !ok {
				continue
			}
			gx /= cellSize
			gy /= cellSize
			out.Set(r, c, math.Atan(math.Sqrt(gx*gx+gy*gy))*180/math.Pi)
		}
	}
	return out, nil
}

// gradient differentiates along one axis of length n at position i.
func gradient(n, i int, at func(int) (float64, bool)) (float64, bool) {
	if n == 1 {
		return 0, true
	}
	lo, hi, span := i-1, i+1, 2.0
	if i == 0 {
		lo, span = 0, 1
	}
	if i == n-1 {
		hi, span = n-1, 1
	}
	a, ok := at(lo)
	if !ok {
		return 0, false
	}
	b, ok := at(hi)
	if !ok {
		return 0, false
	}
	return (b - a) / span, true
}

// Inundation marks cells at or below waterLevel with 1 and the rest with 0.
// No-data cells stay no-data.
func Inundation(dem *grid.Grid, waterLevel float64) *grid.Grid {
	out := grid.NewLike(dem)
	for i := 0; i < dem.Len(); i++ {
		v, ok := dem.AtIndex(i)
		if !ok {
			continue
		}
		if v <= waterLevel {
			out.SetIndex(i, 1)
		} else {
			out.SetIndex(i, 0)
		}
	}
	return out
}
