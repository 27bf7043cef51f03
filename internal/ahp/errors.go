package ahp

import "fmt"

// InvalidMatrixError reports a pairwise comparison matrix the solver refuses.
// Row and Col are -1 when the problem is not tied to a cell.
type InvalidMatrixError struct {
	Reason   string
	Row, Col int
}

func (e *InvalidMatrixError) Error() string {
	if e.Row >= 0 && e.Col >= 0 {
		return fmt.Sprintf("ahp: invalid matrix at (%d,%d): %s", e.Row, e.Col, e.Reason)
	}
	return "ahp: invalid matrix: " + e.Reason
}

// DegenerateVectorError reports a priority vector that cannot be normalised
// because its components sum to zero.
type DegenerateVectorError struct {
	Sum float64
}

func (e *DegenerateVectorError) Error() string {
	return fmt.Sprintf("ahp: degenerate priority vector (sum %g)", e.Sum)
}
