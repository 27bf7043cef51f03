package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

func row(t *testing.T, vals ...float64) *grid.Grid {
	t.Helper()
	g, err := grid.FromRows([][]float64{vals}, nil)
	require.NoError(t, err)
	return g
}

func categories(g *grid.Grid) []risk.Category {
	out := make([]risk.Category, 0, g.Len())
	for c := 0; c < g.Cols(); c++ {
		out = append(out, risk.CategoryAt(g, 0, c))
	}
	return out
}

func TestValue_DecreasingBoundaries(t *testing.T) {
	spec := DefaultSpec(Slope, 30, 50)
	tests := []struct {
		v    float64
		want risk.Category
	}{
		{29.999, risk.High},
		{30, risk.Moderate},
		{40, risk.Moderate},
		{50, risk.Moderate},
		{50.001, risk.Low},
		{0, risk.High},
		{-1, risk.NoData},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Value(tt.v, spec), "v=%g", tt.v)
	}
}

func TestValue_IncreasingBoundaries(t *testing.T) {
	spec := DefaultSpec(Rainfall, 10, 24)
	tests := []struct {
		v    float64
		want risk.Category
	}{
		{9.999, risk.Low},
		{10, risk.Moderate},
		{23.999, risk.Moderate},
		{24, risk.High},
		{100, risk.High},
		{-5, risk.Low}, // clamped to 0
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Value(tt.v, spec), "v=%g", tt.v)
	}
}

func TestValue_NegativeRainfallClampCanReachModerate(t *testing.T) {
	spec := DefaultSpec(Rainfall, 0, 24)
	assert.Equal(t, risk.Moderate, Value(-3, spec))
}

func TestValue_NegativeProximityIsNotNoData(t *testing.T) {
	spec := FactorSpec{Kind: Proximity, Low: 0.3, High: 0.6}
	assert.Equal(t, risk.High, Value(-0.1, spec))
}

func TestClassify_Elevation(t *testing.T) {
	g := row(t, 500, 570, 650, 700, 701, -3, math.NaN())
	res, err := Classify(g, DefaultSpec(Elevation, 570, 700))
	require.NoError(t, err)
	assert.Equal(t, []risk.Category{
		risk.High, risk.Moderate, risk.Moderate, risk.Moderate, risk.Low, risk.NoData, risk.NoData,
	}, categories(res.Grid))
	assert.False(t, res.Normalized)
	assert.Nil(t, res.Warning)
	// Every output cell is populated, NoData included.
	assert.Equal(t, g.Len(), res.Grid.ValidCount())
}

func TestClassify_ProximityNormalisation(t *testing.T) {
	g := row(t, 0, 50, 100)
	norm, rescaled, warn := normalizeUnit(g, DefaultSpec(Proximity, 0.3, 0.6))
	require.Nil(t, warn)
	require.True(t, rescaled)
	for i, want := range []float64{0, 0.5, 1.0} {
		v, ok := norm.AtIndex(i)
		require.True(t, ok)
		assert.InDelta(t, want, v, 1e-12)
	}

	res, err := Classify(g, DefaultSpec(Proximity, 0.3, 0.6))
	require.NoError(t, err)
	assert.True(t, res.Normalized)
	assert.Equal(t, []risk.Category{risk.High, risk.Moderate, risk.Low}, categories(res.Grid))
}

func TestClassify_ProximityAlreadyInRange(t *testing.T) {
	g := row(t, 0.1, 0.5, 0.9)
	res, err := Classify(g, DefaultSpec(Proximity, 0.3, 0.6))
	require.NoError(t, err)
	assert.False(t, res.Normalized)
	assert.Equal(t, []risk.Category{risk.High, risk.Moderate, risk.Low}, categories(res.Grid))
}

func TestClassify_ProximityUniformIsAllNoData(t *testing.T) {
	g := row(t, 5, 5, 5)
	res, err := Classify(g, DefaultSpec(Proximity, 0.3, 0.6))
	require.NoError(t, err)
	require.NotNil(t, res.Warning)
	assert.Equal(t, Proximity, res.Warning.Kind)
	assert.Equal(t, 5.0, res.Warning.Value)
	assert.Equal(t, []risk.Category{risk.NoData, risk.NoData, risk.NoData}, categories(res.Grid))
}

func TestClassify_ProximityIgnoresNoDataInRange(t *testing.T) {
	g := row(t, 10, math.NaN(), 30)
	res, err := Classify(g, DefaultSpec(Proximity, 0.3, 0.6))
	require.NoError(t, err)
	assert.Equal(t, []risk.Category{risk.High, risk.NoData, risk.Low}, categories(res.Grid))
}

func TestClassify_Idempotent(t *testing.T) {
	g, err := grid.FromRows([][]float64{
		{12, 45, 60, math.NaN()},
		{-2, 30, 50, 51},
	}, nil)
	require.NoError(t, err)
	before := g.Clone()

	spec := DefaultSpec(Slope, 30, 50)
	a, err := Classify(g, spec)
	require.NoError(t, err)
	b, err := Classify(g, spec)
	require.NoError(t, err)

	assert.True(t, grid.Equal(a.Grid, b.Grid))
	assert.True(t, grid.Equal(before, g), "input must not be modified")
}

func TestClassify_ParallelMatchesSequential(t *testing.T) {
	g, err := grid.New(257, 33)
	require.NoError(t, err)
	for i := 0; i < g.Len(); i++ {
		g.SetIndex(i, float64(i%97))
	}
	spec := DefaultSpec(Rainfall, 20, 60)
	seq, err := Classifier{Workers: 1}.Classify(g, spec)
	require.NoError(t, err)
	par, err := Classifier{Workers: 6}.Classify(g, spec)
	require.NoError(t, err)
	assert.True(t, grid.Equal(seq.Grid, par.Grid))
}

func TestClassify_PreservesMetadata(t *testing.T) {
	g := row(t, 1, 2)
	g.Meta = grid.GeoMetadata{Transform: [6]float64{0, 30, 0, 0, 0, -30}, CRS: "EPSG:32643"}
	res, err := Classify(g, DefaultSpec(Slope, 30, 50))
	require.NoError(t, err)
	assert.Equal(t, g.Meta, res.Grid.Meta)
}

func TestClassify_InvalidSpec(t *testing.T) {
	g := row(t, 1)
	_, err := Classify(g, FactorSpec{Kind: Slope, Low: 50, High: 30})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	_, err = Classify(g, FactorSpec{Kind: Slope, Low: math.NaN(), High: 30})
	assert.Error(t, err)

	_, err = Classify(g, FactorSpec{Kind: Slope, High: 1, NegativeIsNoData: true, ClampNegative: true})
	assert.Error(t, err)

	_, err = Classify(g, FactorSpec{Kind: Slope, High: 1, Direction: Direction(7)})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Rainfall ")
	require.NoError(t, err)
	assert.Equal(t, Rainfall, k)
	_, err = ParseKind("landuse")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("increasing")
	require.NoError(t, err)
	assert.Equal(t, Increasing, d)
	d, err = ParseDirection("DEC")
	require.NoError(t, err)
	assert.Equal(t, Decreasing, d)
	assert.Equal(t, "decreasing", d.String())
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDefaultSpec(t *testing.T) {
	assert.True(t, DefaultSpec(Elevation, 1, 2).NegativeIsNoData)
	assert.True(t, DefaultSpec(Slope, 1, 2).NegativeIsNoData)
	r := DefaultSpec(Rainfall, 1, 2)
	assert.Equal(t, Increasing, r.Direction)
	assert.True(t, r.ClampNegative)
	assert.False(t, r.NegativeIsNoData)
	p := DefaultSpec(Proximity, 1, 2)
	assert.True(t, p.Normalize)
	assert.Equal(t, Decreasing, p.Direction)
}
