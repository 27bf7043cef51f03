package ahp

import (
	"fmt"
	"math"
)

// Validate checks that m is a non-empty square matrix of finite, strictly
// positive values.
func Validate(m [][]float64) error {
	n := len(m)
	if n == 0 {
		return &InvalidMatrixError{Reason: "matrix is empty", Row: -1, Col: -1}
	}
	for i, row := range m {
		if len(row) != n {
			return &InvalidMatrixError{
				Reason: fmt.Sprintf("row has %d entries, want %d", len(row), n),
				Row:    i,
				Col:    -1,
			}
		}
		for j, v := range row {
			switch {
			case math.IsNaN(v):
				return &InvalidMatrixError{Reason: "entry is NaN", Row: i, Col: j}
			case math.IsInf(v, 0):
				return &InvalidMatrixError{Reason: "entry is infinite", Row: i, Col: j}
			case v <= 0:
				return &InvalidMatrixError{Reason: fmt.Sprintf("entry %g is not positive", v), Row: i, Col: j}
			}
		}
	}
	return nil
}

// CheckReciprocal verifies a unit diagonal and A[j][i]*A[i][j] ≈ 1 within a
// relative tolerance. Non-square input is reported as by Validate.
func CheckReciprocal(m [][]float64, tol float64) error {
	for i, row := range m {
		if len(row) != len(m) {
			return &InvalidMatrixError{
				Reason: fmt.Sprintf("row has %d entries, want %d", len(row), len(m)),
				Row:    i,
				Col:    -1,
			}
		}
	}
	for i := range m {
		if math.Abs(m[i][i]-1) > tol {
			return &InvalidMatrixError{Reason: fmt.Sprintf("diagonal entry %g is not 1", m[i][i]), Row: i, Col: i}
		}
		for j := i + 1; j < len(m); j++ {
			if p := m[i][j] * m[j][i]; math.Abs(p-1) > tol {
				return &InvalidMatrixError{
					Reason: fmt.Sprintf("entries %g and %g are not reciprocal", m[i][j], m[j][i]),
					Row:    i,
					Col:    j,
				}
			}
		}
	}
	return nil
}
