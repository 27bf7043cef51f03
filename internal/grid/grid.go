// Package grid provides the raster representation shared by every stage of the
// flood-risk engine: a dense rows×cols float64 array with an explicit per-cell
// validity mask and opaque geo-referencing metadata.
package grid

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// GeoMetadata carries the spatial reference of a grid. The engine never
// interprets it; it is forwarded unchanged from inputs to outputs.
type GeoMetadata struct {
	// Transform is a GDAL-style affine transform:
	// x = T[0] + col*T[1] + row*T[2], y = T[3] + col*T[4] + row*T[5].
	Transform [6]float64 `json:"transform"`
	CRS       string     `json:"crs,omitempty"`
}

// IsZero reports whether no geo-referencing has been attached.
func (m GeoMetadata) IsZero() bool {
	return m.Transform == [6]float64{} && m.CRS == ""
}

// CellArea returns the absolute area of one cell in transform units.
func (m GeoMetadata) CellArea() float64 {
	return math.Abs(m.Transform[1]*m.Transform[5] - m.Transform[2]*m.Transform[4])
}

// CellCorner returns the map coordinate of the top-left corner of cell (row, col).
func (m GeoMetadata) CellCorner(row, col int) (x, y float64) {
	t := m.Transform
	x = t[0] + float64(col)*t[1] + float64(row)*t[2]
	y = t[3] + float64(col)*t[4] + float64(row)*t[5]
	return x, y
}

// Grid is a rectangular raster. Cells whose mask bit is false are no-data and
// their stored value is meaningless. A Grid is treated as immutable once it
// has been handed to another stage; producers fill it with Set before that.
type Grid struct {
	rows, cols int
	values     []float64
	valid      []bool
	Meta       GeoMetadata
}

// New allocates a rows×cols grid with every cell marked no-data.
func New(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, eris.Errorf("grid: invalid dimensions %dx%d", rows, cols)
	}
	n := rows * cols
	return &Grid{
		rows:   rows,
		cols:   cols,
		values: make([]float64, n),
		valid:  make([]bool, n),
	}, nil
}

// NewLike allocates an all-no-data grid with the shape and metadata of g.
func NewLike(g *Grid) *Grid {
	n := g.rows * g.cols
	return &Grid{
		rows:   g.rows,
		cols:   g.cols,
		values: make([]float64, n),
		valid:  make([]bool, n),
		Meta:   g.Meta,
	}
}

// FromRows builds a grid from row-major data. NaN and ±Inf are stored as
// no-data. When nodata is non-nil, cells equal to *nodata are no-data as well.
func FromRows(data [][]float64, nodata *float64) (*Grid, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, eris.New("grid: empty input")
	}
	cols := len(data[0])
	g, err := New(len(data), cols)
	if err != nil {
		return nil, err
	}
	for r, row := range data {
		if len(row) != cols {
			return nil, eris.Errorf("grid: row %d has %d columns, want %d", r, len(row), cols)
		}
		for c, v := range row {
			if nodata != nil && v == *nodata {
				continue
			}
			g.Set(r, c, v)
		}
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns rows*cols.
func (g *Grid) Len() int { return len(g.values) }

// Shape returns (rows, cols).
func (g *Grid) Shape() (int, int) { return g.rows, g.cols }

// At returns the value at (row, col) and whether the cell holds data.
func (g *Grid) At(row, col int) (float64, bool) {
	i := row*g.cols + col
	return g.values[i], g.valid[i]
}

// AtIndex is At addressed by row-major index.
func (g *Grid) AtIndex(i int) (float64, bool) {
	return g.values[i], g.valid[i]
}

// Set stores v at (row, col). Non-finite values mark the cell no-data.
func (g *Grid) Set(row, col int, v float64) {
	g.SetIndex(row*g.cols+col, v)
}

// SetIndex is Set addressed by row-major index.
func (g *Grid) SetIndex(i int, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		g.values[i] = 0
		g.valid[i] = false
		return
	}
	g.values[i] = v
	g.valid[i] = true
}

// SetNoData marks (row, col) as no-data.
func (g *Grid) SetNoData(row, col int) {
	i := row*g.cols + col
	g.values[i] = 0
	g.valid[i] = false
}

// IsNoData reports whether (row, col) holds no data.
func (g *Grid) IsNoData(row, col int) bool {
	return !g.valid[row*g.cols+col]
}

// ValidCount returns the number of cells holding data.
func (g *Grid) ValidCount() int {
	n := 0
	for _, ok := range g.valid {
		if ok {
			n++
		}
	}
	return n
}

// MinMax returns the extrema over valid cells. ok is false when the grid has
// no valid cell.
func (g *Grid) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, v := range g.values {
		if !g.valid[i] {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	out := NewLike(g)
	copy(out.values, g.values)
	copy(out.valid, g.valid)
	return out
}

// ToRows returns the grid as row-major slices with no-data cells set to NaN.
func (g *Grid) ToRows() [][]float64 {
	out := make([][]float64, g.rows)
	for r := 0; r < g.rows; r++ {
		row := make([]float64, g.cols)
		for c := 0; c < g.cols; c++ {
			v, ok := g.At(r, c)
			if !ok {
				v = math.NaN()
			}
			row[c] = v
		}
		out[r] = row
	}
	return out
}

// Equal reports whether a and b have the same shape, the same validity mask and
// equal values at every valid cell. Metadata is ignored.
func Equal(a, b *Grid) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i := range a.values {
		if a.valid[i] != b.valid[i] {
			return false
		}
		if a.valid[i] && a.values[i] != b.values[i] {
			return false
		}
	}
	return true
}

// String summarises the grid for logs.
func (g *Grid) String() string {
	return fmt.Sprintf("grid(%dx%d, %d valid)", g.rows, g.cols, g.ValidCount())
}
