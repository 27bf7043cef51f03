package rasterio

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

// Shapefile attribute layout for classified cells.
const (
	fieldRisk  = 0
	fieldLabel = 1
)

// CellPolygon returns the square footprint of cell (row, col) as a closed
// clockwise ring.
func CellPolygon(meta grid.GeoMetadata, row, col int) []shp.Point {
	x0, y0 := meta.CellCorner(row, col)
	x1, y1 := meta.CellCorner(row, col+1)
	x2, y2 := meta.CellCorner(row+1, col+1)
	x3, y3 := meta.CellCorner(row+1, col)
	return []shp.Point{{X: x0, Y: y0}, {X: x1, Y: y1}, {X: x2, Y: y2}, {X: x3, Y: y3}, {X: x0, Y: y0}}
}

// WriteShapefile writes one polygon per classified cell with RISK and LABEL
// attributes. Cells reading as no-data are skipped unless includeNoData is
// set. Returns the number of records written.
func WriteShapefile(path string, g *grid.Grid, includeNoData bool) (int, error) {
	meta := g.Meta
	if meta.IsZero() {
		meta.Transform = [6]float64{0, 1, 0, float64(g.Rows()), 0, -1}
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "rasterio: create shapefile %s", path)
	}
	written, err := writeCells(w, g, meta, includeNoData)
	w.Close()
	if err != nil {
		return written, err
	}
	if err := fixDBFName(path); err != nil {
		return written, err
	}

	if err := writePrj(path, g.Meta.CRS); err != nil {
		return written, err
	}
	zap.L().Debug("rasterio: wrote shapefile",
		zap.String("path", path),
		zap.Int("records", written),
	)
	return written, nil
}

func writeCells(w *shp.Writer, g *grid.Grid, meta grid.GeoMetadata, includeNoData bool) (int, error) {
	if err := w.SetFields([]shp.Field{
		shp.NumberField("RISK", 2),
		shp.StringField("LABEL", 12),
	}); err != nil {
		return 0, eris.Wrap(err, "rasterio: set shapefile fields")
	}

	written := 0
	rows, cols := g.Shape()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cat := risk.CategoryAt(g, r, c)
			if cat == risk.NoData && !includeNoData {
				continue
			}
			poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{CellPolygon(meta, r, c)}))
			idx := int(w.Write(&poly))
			if err := w.WriteAttribute(idx, fieldRisk, int(cat)); err != nil {
				return written, eris.Wrapf(err, "rasterio: write RISK for cell (%d,%d)", r, c)
			}
			if err := w.WriteAttribute(idx, fieldLabel, cat.String()); err != nil {
				return written, eris.Wrapf(err, "rasterio: write LABEL for cell (%d,%d)", r, c)
			}
			written++
		}
	}
	return written, nil
}

// fixDBFName moves the attribute table go-shp writes to "<base>dbf" (no dot)
// to "<base>.dbf", where readers look for it.
func fixDBFName(path string) error {
	base := strings.TrimSuffix(path, ".shp")
	misnamed := base + "dbf"
	if _, err := os.Stat(misnamed); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "rasterio: stat %s", misnamed)
	}
	if err := os.Rename(misnamed, base+".dbf"); err != nil {
		return eris.Wrapf(err, "rasterio: rename attribute table for %s", path)
	}
	return nil
}
