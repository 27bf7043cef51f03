package grid

import "fmt"

// ShapeMismatchError reports grids that cannot be combined because their
// dimensions differ.
type ShapeMismatchError struct {
	Name               string
	WantRows, WantCols int
	GotRows, GotCols   int
}

func (e *ShapeMismatchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("grid: shape mismatch for %s: got %dx%d, want %dx%d",
			e.Name, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
	}
	return fmt.Sprintf("grid: shape mismatch: got %dx%d, want %dx%d",
		e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// CheckShapes returns a *ShapeMismatchError naming the first grid whose shape
// differs from the first one. names may be nil or shorter than grids.
func CheckShapes(names []string, grids ...*Grid) error {
	if len(grids) == 0 {
		return nil
	}
	ref := grids[0]
	for i, g := range grids[1:] {
		if g.rows == ref.rows && g.cols == ref.cols {
			continue
		}
		var name string
		if i+1 < len(names) {
			name = names[i+1]
		}
		return &ShapeMismatchError{
			Name:     name,
			WantRows: ref.rows,
			WantCols: ref.cols,
			GotRows:  g.rows,
			GotCols:  g.cols,
		}
	}
	return nil
}
