package classify

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

// DegenerateNormalizationWarning reports a factor grid whose valid values are
// all equal, so it cannot be rescaled. The classified grid is all NoData.
type DegenerateNormalizationWarning struct {
	Kind  Kind
	Value float64
}

func (w *DegenerateNormalizationWarning) Error() string {
	return fmt.Sprintf("classify: %s grid is uniform (%g); every cell set to no-data", w.Kind, w.Value)
}

// Result is a classified grid plus what happened on the way.
type Result struct {
	Grid *grid.Grid
	// Normalized is true when raw values were rescaled to [0,1].
	Normalized bool
	// Warning is set when normalisation degenerated.
	Warning *DegenerateNormalizationWarning
}

// Classifier classifies factor grids.
type Classifier struct {
	// Workers bounds row-band parallelism; zero selects GOMAXPROCS.
	Workers int
}

// Classify is Classifier{}.Classify.
func Classify(g *grid.Grid, spec FactorSpec) (*Result, error) {
	return Classifier{}.Classify(g, spec)
}

// Classify maps every cell of g to a risk category. g is not modified.
func (c Classifier) Classify(g *grid.Grid, spec FactorSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	res := &Result{}
	out := grid.NewLike(g)

	src := g
	if spec.Normalize {
		norm, rescaled, warn := normalizeUnit(g, spec)
		if warn != nil {
			zap.L().Warn("classify: degenerate normalisation",
				zap.String("factor", string(spec.Kind)),
				zap.Float64("value", warn.Value),
			)
			for i := 0; i < out.Len(); i++ {
				out.SetIndex(i, float64(risk.NoData))
			}
			res.Grid = out
			res.Warning = warn
			return res, nil
		}
		src = norm
		res.Normalized = rescaled
	}

	cols := out.Cols()
	grid.ForEachRowBand(out.Rows(), c.Workers, func(r0, r1 int) {
		for i := r0 * cols; i < r1*cols; i++ {
			v, ok := src.AtIndex(i)
			cat := risk.NoData
			if ok {
				cat = Value(v, spec)
			}
			out.SetIndex(i, float64(cat))
		}
	})
	res.Grid = out
	return res, nil
}

// Value classifies a single valid raw value.
func Value(v float64, spec FactorSpec) risk.Category {
	if v < 0 {
		if spec.NegativeIsNoData {
			return risk.NoData
		}
		if spec.ClampNegative {
			v = 0
		}
	}
	if spec.Direction == Increasing {
		switch {
		case v >= spec.High:
			return risk.High
		case v >= spec.Low:
			return risk.Moderate
		default:
			return risk.Low
		}
	}
	switch {
	case v < spec.Low:
		return risk.High
	case v <= spec.High:
		return risk.Moderate
	default:
		return risk.Low
	}
}

// normalizeUnit rescales valid cells to [0,1] when the grid's range leaves
// that interval. A uniform grid yields a warning instead.
func normalizeUnit(g *grid.Grid, spec FactorSpec) (*grid.Grid, bool, *DegenerateNormalizationWarning) {
	lo, hi, ok := g.MinMax()
	if !ok {
		return g, false, nil
	}
	if lo == hi {
		return nil, false, &DegenerateNormalizationWarning{Kind: spec.Kind, Value: lo}
	}
	if lo >= 0 && hi <= 1 {
		return g, false, nil
	}
	return Rescale(g, lo, hi), true, nil
}

// Rescale maps every valid cell v of g to (v-lo)/(hi-lo). hi must differ from lo.
func Rescale(g *grid.Grid, lo, hi float64) *grid.Grid {
	out := grid.NewLike(g)
	span := hi - lo
	for i := 0; i < g.Len(); i++ {
		if v, ok := g.AtIndex(i); ok {
			out.SetIndex(i, (v-lo)/span)
		}
	}
	return out
}
