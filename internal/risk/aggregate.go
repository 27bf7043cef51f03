package risk

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
)

// DefaultWeightTolerance is the absolute tolerance on Σweights == 1.
const DefaultWeightTolerance = 1e-6

// WeightedFactor pairs a classified grid with its weight.
type WeightedFactor struct {
	Name   string
	Grid   *grid.Grid
	Weight float64
}

// WeightSumError reports weights that do not sum to 1 within tolerance.
type WeightSumError struct {
	Sum       float64
	Tolerance float64
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("risk: weights sum to %.9g, want 1 (tolerance %g)", e.Sum, e.Tolerance)
}

// ValidateWeights checks that every weight lies in [0,1] and that they sum to
// 1 within tol. tol <= 0 selects DefaultWeightTolerance.
func ValidateWeights(weights []float64, tol float64) error {
	if tol <= 0 {
		tol = DefaultWeightTolerance
	}
	if len(weights) == 0 {
		return eris.New("risk: no weights")
	}
	var sum float64
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return eris.Errorf("risk: weight %d is %g, want a value in [0,1]", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > tol {
		return &WeightSumError{Sum: sum, Tolerance: tol}
	}
	return nil
}

// Aggregator combines classified factor grids.
type Aggregator struct {
	// Tolerance on the weight sum; zero selects DefaultWeightTolerance.
	Tolerance float64
	// Workers bounds row-band parallelism; zero selects GOMAXPROCS.
	Workers int
}

// Aggregate is Aggregator{}.Aggregate.
func Aggregate(factors []WeightedFactor) (*grid.Grid, error) {
	return Aggregator{}.Aggregate(factors)
}

// Aggregate computes round(Σ wᵢ·cᵢ) per cell, rounding half away from zero.
// A cell is NoData if any factor is NoData there. Weights and shapes are
// checked before any cell is visited. The result carries the metadata of the
// first factor.
func (a Aggregator) Aggregate(factors []WeightedFactor) (*grid.Grid, error) {
	if len(factors) == 0 {
		return nil, eris.New("risk: no factors to aggregate")
	}

	weights := make([]float64, len(factors))
	names := make([]string, len(factors))
	grids := make([]*grid.Grid, len(factors))
	for i, f := range factors {
		if f.Grid == nil {
			return nil, eris.Errorf("risk: factor %q has no grid", f.Name)
		}
		weights[i] = f.Weight
		names[i] = f.Name
		grids[i] = f.Grid
	}
	if err := ValidateWeights(weights, a.Tolerance); err != nil {
		return nil, err
	}
	if err := grid.CheckShapes(names, grids...); err != nil {
		return nil, err
	}

	out := grid.NewLike(grids[0])
	cols := out.Cols()
	grid.ForEachRowBand(out.Rows(), a.Workers, func(r0, r1 int) {
		for i := r0 * cols; i < r1*cols; i++ {
			out.SetIndex(i, combineCell(grids, weights, i))
		}
	})
	return out, nil
}

func combineCell(grids []*grid.Grid, weights []float64, i int) float64 {
	var s float64
	for k, g := range grids {
		c := categoryAtIndex(g, i)
		if c == NoData {
			return float64(NoData)
		}
		s += weights[k] * float64(c)
	}
	return math.Round(s)
}
