package grid

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minRowsPerBand keeps small grids on a single goroutine.
const minRowsPerBand = 64

// ForEachRowBand splits [0, rows) into contiguous bands and calls fn for each,
// concurrently when workers allows. workers <= 0 means GOMAXPROCS. fn must only
// write cells inside its band.
func ForEachRowBand(rows, workers int, fn func(r0, r1 int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	bands := rows / minRowsPerBand
	if bands > workers {
		bands = workers
	}
	if bands <= 1 {
		fn(0, rows)
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	step := (rows + bands - 1) / bands
	for r0 := 0; r0 < rows; r0 += step {
		r1 := min(r0+step, rows)
		g.Go(func() error {
			fn(r0, r1)
			return nil
		})
	}
	// Band callbacks cannot fail; errgroup is only here for SetLimit.
	_ = g.Wait()
}
