package terrain

import (
	"errors"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
)

// ErrNoTargets is returned when a proximity source grid has no target cell.
var ErrNoTargets = errors.New("terrain: no target cells in source grid")

// far stands in for +Inf in the distance transform.
const far = 1e20

// Proximity returns, for every cell, the Euclidean distance to the nearest
// valid cell whose value is in targets, scaled by cellSize. The result is
// fully populated.
func Proximity(src *grid.Grid, targets []float64, cellSize float64) (*grid.Grid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		return nil, eris.Errorf("terrain: cell size must be positive, got %g", cellSize)
	}
	if len(targets) == 0 {
		return nil, eris.New("terrain: no target values given")
	}
	want := make(map[float64]struct{}, len(targets))
	for _, t := range targets {
		want[t] = struct{}{}
	}

	rows, cols := src.Shape()
	d := make([]float64, rows*cols)
	found := false
	for i := range d {
		d[i] = far
		if v, ok := src.AtIndex(i); ok {
			if _, hit := want[v]; hit {
				d[i] = 0
				found = true
			}
		}
	}
	if !found {
		return nil, ErrNoTargets
	}

	// Squared EDT (Felzenszwalb & Huttenlocher): columns, then rows.
	n := max(rows, cols)
	f := make([]float64, n)
	buf := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)

	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			f[r] = d[r*cols+c]
		}
		edt1D(f[:rows], buf[:rows], v, z)
		for r := 0; r < rows; r++ {
			d[r*cols+c] = buf[r]
		}
	}
	for r := 0; r < rows; r++ {
		copy(f[:cols], d[r*cols:(r+1)*cols])
		edt1D(f[:cols], buf[:cols], v, z)
		copy(d[r*cols:(r+1)*cols], buf[:cols])
	}

	out := grid.NewLike(src)
	for i, sq := range d {
		out.SetIndex(i, math.Sqrt(sq)*cellSize)
	}
	return out, nil
}

// edt1D computes the 1-D squared distance transform of f into dst.
func edt1D(f, dst []float64, v []int, z []float64) {
	n := len(f)
	k := 0
	v[0] = 0
	z[0] = -far
	z[1] = far
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = far
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		dst[q] = dq*dq + f[v[k]]
	}
}

func intersect(f []float64, q, p int) float64 {
	fq, fp := f[q], f[p]
	return ((fq + float64(q*q)) - (fp + float64(p*p))) / float64(2*q-2*p)
}
