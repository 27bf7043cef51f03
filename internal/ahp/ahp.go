// Package ahp derives criterion weights from a pairwise comparison matrix using
// the Analytic Hierarchy Process and reports Saaty's consistency ratio.
package ahp

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method selects how the priority vector is computed.
type Method string

const (
	// MethodEigen uses the principal right eigenvector.
	MethodEigen Method = "eigen"
	// MethodColumnMean normalises each column to sum 1 and averages rows.
	MethodColumnMean Method = "column-mean"
)

// ConsistencyLimit is the conventional upper bound for an acceptable CR.
const ConsistencyLimit = 0.1

// randomIndex holds Saaty's random consistency indices for n = 1..10.
var randomIndex = [...]float64{0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49}

// RandomIndex returns the random consistency index for an n×n matrix. Sizes
// beyond the table use the last entry.
func RandomIndex(n int) float64 {
	if n < 1 {
		return 0
	}
	if n > len(randomIndex) {
		return randomIndex[len(randomIndex)-1]
	}
	return randomIndex[n-1]
}

// Result is the outcome of a solve.
type Result struct {
	Method    Method    `json:"method"`
	Weights   []float64 `json:"weights"`
	LambdaMax float64   `json:"lambda_max"`
	CI        float64   `json:"ci"`
	RI        float64   `json:"ri"`
	CR        float64   `json:"cr"`
}

// Consistent reports whether CR is within limit.
func (r *Result) Consistent(limit float64) bool {
	return r.CR <= limit
}

// Solve computes weights and the consistency ratio for m. Weights are returned
// even when the matrix is inconsistent; callers decide whether to accept them.
//
// The eigen method takes the eigenvalue with the largest real part and drops
// any imaginary residue of it and of its eigenvector. That is exact for
// positive reciprocal matrices (Perron root) and an approximation otherwise.
func Solve(m [][]float64, method Method) (*Result, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	n := len(m)

	var (
		weights []float64
		lambda  float64
		err     error
	)
	switch method {
	case MethodEigen, "":
		method = MethodEigen
		weights, lambda, err = principalEigen(m)
	case MethodColumnMean:
		weights, lambda, err = columnMean(m)
	default:
		return nil, eris.Errorf("ahp: unknown method %q", method)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Method:    method,
		Weights:   weights,
		LambdaMax: lambda,
		RI:        RandomIndex(n),
	}
	if n > 1 {
		res.CI = (lambda - float64(n)) / float64(n-1)
		// λmax ≥ n for positive reciprocal matrices; tiny negatives are rounding.
		if res.CI < 0 && res.CI > -1e-9 {
			res.CI = 0
		}
	}
	if res.RI != 0 {
		res.CR = res.CI / res.RI
	}
	return res, nil
}

func principalEigen(m [][]float64) ([]float64, float64, error) {
	n := len(m)
	a := mat.NewDense(n, n, nil)
	for i, row := range m {
		a.SetRow(i, row)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenRight); !ok {
		return nil, 0, eris.New("ahp: eigen decomposition did not converge")
	}
	values := eig.Values(nil)

	best := 0
	for i := 1; i < len(values); i++ {
		if real(values[i]) > real(values[best]) {
			best = i
		}
	}

	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = real(vecs.At(i, best))
	}
	weights, err := normalize(v)
	if err != nil {
		return nil, 0, err
	}
	lambda := real(values[best])
	if math.IsNaN(lambda) {
		return nil, 0, eris.New("ahp: eigenvalue is NaN")
	}
	return weights, lambda, nil
}

func columnMean(m [][]float64) ([]float64, float64, error) {
	n := len(m)
	colSums := make([]float64, n)
	for _, row := range m {
		floats.Add(colSums, row)
	}

	weights := make([]float64, n)
	for i, row := range m {
		var s float64
		for j, v := range row {
			s += v / colSums[j]
		}
		weights[i] = s / float64(n)
	}

	weighted := make([]float64, n)
	for i, row := range m {
		weighted[i] = floats.Dot(row, weights)
	}
	meanW := floats.Sum(weights) / float64(n)
	if meanW == 0 {
		return nil, 0, &DegenerateVectorError{}
	}
	lambda := (floats.Sum(weighted) / float64(n)) / meanW

	weights, err := normalize(weights)
	if err != nil {
		return nil, 0, err
	}
	return weights, lambda, nil
}

func normalize(v []float64) ([]float64, error) {
	sum := floats.Sum(v)
	if sum == 0 || math.IsNaN(sum) {
		return nil, &DegenerateVectorError{Sum: sum}
	}
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/sum, out)
	return out, nil
}
