package zones

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/floodrisk/internal/grid"
)

// MultiPolygon renders a zone as one square polygon per cell.
func MultiPolygon(meta grid.GeoMetadata, cols int, z Zone) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, idx := range z.Cells {
		r, c := idx/cols, idx%cols
		x0, y0 := meta.CellCorner(r, c)
		x1, y1 := meta.CellCorner(r, c+1)
		x2, y2 := meta.CellCorner(r+1, c+1)
		x3, y3 := meta.CellCorner(r+1, c)
		ring := []float64{x0, y0, x3, y3, x2, y2, x1, y1, x0, y0}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)})); err != nil {
			return nil, eris.Wrapf(err, "zones: build polygon for cell %d", idx)
		}
	}
	return mp, nil
}

// FeatureCollection converts zones extracted from g into GeoJSON features.
// Grids without geo-referencing use cell coordinates with y pointing down.
func FeatureCollection(g *grid.Grid, zs []Zone) (*geojson.FeatureCollection, error) {
	meta := g.Meta
	if meta.IsZero() {
		meta.Transform = [6]float64{0, 1, 0, 0, 0, 1}
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(zs))}
	for _, z := range zs {
		mp, err := MultiPolygon(meta, g.Cols(), z)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(z.ID),
			Geometry: mp,
			Properties: map[string]any{
				"category": int(z.Category),
				"label":    z.Category.String(),
				"cells":    z.Count,
				"area":     z.Area,
				"bbox":     []int{z.MinRow, z.MinCol, z.MaxRow, z.MaxCol},
			},
		})
	}
	return fc, nil
}

// WriteGeoJSON writes zones of g to path as a FeatureCollection.
func WriteGeoJSON(path string, g *grid.Grid, zs []Zone) error {
	fc, err := FeatureCollection(g, zs)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "zones: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "zones: write %s", path)
	}
	return nil
}
