// Package rasterio reads and writes grids on disk: ESRI ASCII grids for
// numeric layers and shapefiles for classified output.
package rasterio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/grid"
)

// DefaultNoData is written for no-data cells when a grid has no other value.
const DefaultNoData = -9999.0

// asciiHeader is the parsed header block of an ESRI ASCII grid.
type asciiHeader struct {
	ncols, nrows int
	xll, yll     float64
	center       bool
	dx, dy       float64
	nodata       *float64
}

// ReadASCII parses an ESRI ASCII grid from r. Cells equal to NODATA_value,
// NaN and infinities are no-data.
func ReadASCII(r io.Reader) (*grid.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<28)
	sc.Split(bufio.ScanWords)

	var (
		h       asciiHeader
		pending string
	)
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isHeaderKey(key) {
			pending = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("rasterio: header %q has no value", tok)
		}
		if err := h.set(key, sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "rasterio: scan header")
	}
	if h.ncols <= 0 || h.nrows <= 0 {
		return nil, eris.Errorf("rasterio: invalid dimensions %dx%d", h.nrows, h.ncols)
	}
	if h.dx <= 0 || h.dy <= 0 {
		return nil, eris.New("rasterio: missing or non-positive cellsize")
	}

	g, err := grid.New(h.nrows, h.ncols)
	if err != nil {
		return nil, err
	}
	g.Meta = h.meta()

	n := 0
	consume := func(tok string) error {
		if n >= g.Len() {
			return eris.Errorf("rasterio: more than %d cell values", g.Len())
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "rasterio: parse cell %d", n)
		}
		if h.nodata == nil || v != *h.nodata {
			g.SetIndex(n, v)
		}
		n++
		return nil
	}
	if pending != "" {
		if err := consume(pending); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := consume(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "rasterio: scan cells")
	}
	if n != g.Len() {
		return nil, eris.Errorf("rasterio: got %d cell values, want %d", n, g.Len())
	}
	return g, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	}
	return false
}

func (h *asciiHeader) set(key, raw string) error {
	if key == "ncols" || key == "nrows" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return eris.Wrapf(err, "rasterio: parse %s", key)
		}
		if key == "ncols" {
			h.ncols = n
		} else {
			h.nrows = n
		}
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return eris.Wrapf(err, "rasterio: parse %s", key)
	}
	switch key {
	case "xllcorner":
		h.xll = v
	case "yllcorner":
		h.yll = v
	case "xllcenter":
		h.xll, h.center = v, true
	case "yllcenter":
		h.yll, h.center = v, true
	case "cellsize":
		h.dx, h.dy = v, v
	case "dx":
		h.dx = v
	case "dy":
		h.dy = v
	case "nodata_value":
		h.nodata = &v
	}
	return nil
}

// meta converts the lower-left header origin into a north-up transform.
func (h asciiHeader) meta() grid.GeoMetadata {
	xll, yll := h.xll, h.yll
	if h.center {
		xll -= h.dx / 2
		yll -= h.dy / 2
	}
	return grid.GeoMetadata{
		Transform: [6]float64{xll, h.dx, 0, yll + float64(h.nrows)*h.dy, 0, -h.dy},
	}
}

// WriteASCII writes g as an ESRI ASCII grid. Grids without geo-referencing
// get a unit-cell transform at the origin. Rotated transforms are rejected.
func WriteASCII(w io.Writer, g *grid.Grid, nodata float64) error {
	rows, cols := g.Shape()
	t := g.Meta.Transform
	if g.Meta.IsZero() || (t[1] == 0 && t[5] == 0) {
		t = [6]float64{0, 1, 0, float64(rows), 0, -1}
	}
	if t[2] != 0 || t[4] != 0 {
		return eris.New("rasterio: rotated transforms cannot be written as ASCII grids")
	}
	dx, dy := t[1], -t[5]
	if dx <= 0 || dy <= 0 {
		return eris.Errorf("rasterio: transform is not north-up (dx=%g, dy=%g)", dx, dy)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", cols, rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", fmtFloat(t[0]), fmtFloat(t[3]-float64(rows)*dy))
	if dx == dy {
		fmt.Fprintf(bw, "cellsize %s\n", fmtFloat(dx))
	} else {
		fmt.Fprintf(bw, "dx %s\ndy %s\n", fmtFloat(dx), fmtFloat(dy))
	}
	fmt.Fprintf(bw, "NODATA_value %s\n", fmtFloat(nodata))

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				_ = bw.WriteByte(' ')
			}
			v, ok := g.At(r, c)
			if !ok {
				v = nodata
			}
			_, _ = bw.WriteString(fmtFloat(v))
		}
		_ = bw.WriteByte('\n')
	}
	return eris.Wrap(bw.Flush(), "rasterio: flush")
}

func fmtFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadASCIIFile reads path and, when a sibling .prj exists, its CRS text.
func ReadASCIIFile(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rasterio: open %s", path)
	}
	defer func() { _ = f.Close() }()

	g, err := ReadASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "rasterio: read %s", path)
	}
	if prj, err := os.ReadFile(prjPath(path)); err == nil {
		g.Meta.CRS = strings.TrimSpace(string(prj))
	}
	return g, nil
}

// WriteASCIIFile writes g to path, plus a .prj when the grid carries a CRS.
func WriteASCIIFile(path string, g *grid.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "rasterio: create %s", path)
	}
	if err := WriteASCII(f, g, DefaultNoData); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "rasterio: write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "rasterio: close %s", path)
	}
	return writePrj(path, g.Meta.CRS)
}

func prjPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
}

func writePrj(path, crs string) error {
	if crs == "" {
		return nil
	}
	if err := os.WriteFile(prjPath(path), []byte(crs+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "rasterio: write prj")
	}
	return nil
}
