package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/rasterio"
	"github.com/sells-group/floodrisk/internal/terrain"
)

func newTerrainCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("input", "", "")
	cmd.Flags().String("output", "", "")
	cmd.Flags().Float64("cell-size", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestGridCellSize(t *testing.T) {
	g, err := grid.New(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, gridCellSize(g))

	g.Meta.Transform = [6]float64{0, 30, 0, 0, 0, -30}
	assert.Equal(t, 30.0, gridCellSize(g))
}

func TestCellSize_Flag(t *testing.T) {
	g, err := grid.New(1, 1)
	require.NoError(t, err)
	g.Meta.Transform = [6]float64{0, 30, 0, 0, 0, -30}

	assert.Equal(t, 30.0, cellSize(newTerrainCmd(t), g))
	assert.Equal(t, 5.0, cellSize(newTerrainCmd(t, "--cell-size", "5"), g))
}

func TestTransformGrid_Inundation(t *testing.T) {
	dir := t.TempDir()
	in := writeASC(t, dir, "dem.asc", [][]float64{{5, 15}, {-9999, 10}})
	out := filepath.Join(dir, "flood.asc")

	cmd := newTerrainCmd(t, "--input", in, "--output", out)
	require.NoError(t, transformGrid(cmd, func(g *grid.Grid) (*grid.Grid, error) {
		return terrain.Inundation(g, 10), nil
	}))

	got, err := rasterio.ReadASCIIFile(out)
	require.NoError(t, err)
	assert.False(t, got.IsNoData(0, 0))
	v, _ := got.At(0, 0)
	assert.Equal(t, 1.0, v)
	v, _ = got.At(0, 1)
	assert.Equal(t, 0.0, v)
	assert.True(t, got.IsNoData(1, 0))
	v, _ = got.At(1, 1)
	assert.Equal(t, 1.0, v)
}

func TestTransformGrid_ProximityNoTargets(t *testing.T) {
	dir := t.TempDir()
	in := writeASC(t, dir, "lulc.asc", [][]float64{{1, 2}, {2, 1}})

	cmd := newTerrainCmd(t, "--input", in, "--output", filepath.Join(dir, "prox.asc"))
	err := transformGrid(cmd, func(g *grid.Grid) (*grid.Grid, error) {
		return terrain.Proximity(g, []float64{9}, cellSize(cmd, g))
	})
	assert.ErrorIs(t, err, terrain.ErrNoTargets)
}

func TestTransformGrid_MissingInput(t *testing.T) {
	cmd := newTerrainCmd(t, "--input", filepath.Join(t.TempDir(), "nope.asc"), "--output", "x.asc")
	err := transformGrid(cmd, func(g *grid.Grid) (*grid.Grid, error) { return g, nil })
	assert.Error(t, err)
}
