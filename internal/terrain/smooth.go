// Package terrain derives factor rasters from a DEM or a land-cover grid:
// Gaussian smoothing, slope, inundation masks and distance-to-feature.
package terrain

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
)

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

// Smooth applies a separable Gaussian filter with standard deviation sigma
// (in cells). Borders are reflected. No-data cells contribute nothing and stay
// no-data; the kernel is renormalised over the valid cells it covers.
func Smooth(g *grid.Grid, sigma float64) (*grid.Grid, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, eris.Errorf("terrain: sigma must be positive, got %g", sigma)
	}
	kernel := gaussianKernel(sigma)
	rows, cols := g.Shape()

	// Horizontal pass keeps value-weight and mask-weight sums separately so the
	// vertical pass can renormalise.
	num := make([]float64, rows*cols)
	den := make([]float64, rows*cols)
	half := len(kernel) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var n, d float64
			for k, w := range kernel {
				cc := reflect(c+k-half, cols)
				if v, ok := g.At(r, cc); ok {
					n += w * v
					d += w
				}
			}
			num[r*cols+c] = n
			den[r*cols+c] = d
		}
	}

	out := grid.NewLike(g)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if g.IsNoData(r, c) {
				continue
			}
			var n, d float64
			for k, w := range kernel {
				rr := reflect(r+k-half, rows)
				n += w * num[rr*cols+c]
				d += w * den[rr*cols+c]
			}
			if d > 0 {
				out.Set(r, c, n/d)
			}
		}
	}
	return out, nil
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		k[i+radius] = w
		sum += w
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect maps an out-of-range index back into [0, n) by mirroring about the
// edges (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}
