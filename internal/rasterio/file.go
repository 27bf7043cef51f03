package rasterio

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/grid"
)

// FileLoader loads grids from ESRI ASCII files on local disk.
type FileLoader struct {
	// Dir, when set, resolves relative sources against it.
	Dir string
}

// Load reads the grid at source.
func (l FileLoader) Load(ctx context.Context, source string) (*grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "rasterio: load")
	}
	path := l.resolve(source)
	g, err := ReadASCIIFile(path)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("rasterio: loaded grid",
		zap.String("path", path),
		zap.Int("rows", g.Rows()),
		zap.Int("cols", g.Cols()),
	)
	return g, nil
}

func (l FileLoader) resolve(source string) string {
	if l.Dir == "" || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(l.Dir, source)
}

// FileEmitter writes grids by destination extension: .shp produces a
// shapefile of classified cells, anything else an ESRI ASCII grid.
type FileEmitter struct {
	// IncludeNoData adds no-data cells to shapefile output.
	IncludeNoData bool
}

// Emit writes g to dest.
func (e FileEmitter) Emit(ctx context.Context, g *grid.Grid, dest string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "rasterio: emit")
	}
	if strings.EqualFold(filepath.Ext(dest), ".shp") {
		_, err := WriteShapefile(dest, g, e.IncludeNoData)
		return err
	}
	return WriteASCIIFile(dest, g)
}
