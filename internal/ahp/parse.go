package ahp

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseMatrix parses a compact matrix literal: rows separated by ';' or
// newlines, entries by ',' or whitespace. Entries may be fractions ("1/3").
func ParseMatrix(s string) ([][]float64, error) {
	rowSplit := func(r rune) bool { return r == ';' || r == '\n' }
	var m [][]float64
	for i, line := range strings.FieldsFunc(s, rowSplit) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		row := make([]float64, 0, len(fields))
		for j, f := range fields {
			v, err := ParseJudgment(f)
			if err != nil {
				return nil, eris.Wrapf(err, "ahp: parse entry (%d,%d)", i, j)
			}
			row = append(row, v)
		}
		m = append(m, row)
	}
	if len(m) == 0 {
		return nil, eris.New("ahp: parse matrix: no rows")
	}
	return m, nil
}

// ParseJudgment parses a single comparison value: a decimal or "a/b".
func ParseJudgment(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		a, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, eris.Wrapf(err, "numerator %q", num)
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, eris.Wrapf(err, "denominator %q", den)
		}
		if b == 0 {
			return 0, eris.Errorf("zero denominator in %q", s)
		}
		return a / b, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "value %q", s)
	}
	return v, nil
}

// Complete fills the lower triangle and diagonal of an upper-triangular
// judgment list: judgments[k] holds A[i][j] for i<j in row-major order.
func Complete(n int, judgments []float64) ([][]float64, error) {
	want := n * (n - 1) / 2
	if n < 1 || len(judgments) != want {
		return nil, eris.Errorf("ahp: %d criteria need %d judgments, got %d", n, want, len(judgments))
	}
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := judgments[k]
			if v <= 0 {
				return nil, &InvalidMatrixError{Reason: "judgment must be positive", Row: i, Col: j}
			}
			m[i][j] = v
			m[j][i] = 1 / v
			k++
		}
	}
	return m, nil
}
