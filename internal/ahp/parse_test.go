package ahp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatrix(t *testing.T) {
	m, err := ParseMatrix("1,3,5; 1/3,1,2; 1/5,1/2,1")
	require.NoError(t, err)
	require.Len(t, m, 3)
	assert.InDelta(t, 1.0/3, m[1][0], 1e-12)
	assert.InDelta(t, 0.5, m[2][1], 1e-12)
	assert.Equal(t, 5.0, m[0][2])
}

func TestParseMatrix_Multiline(t *testing.T) {
	m, err := ParseMatrix("1 2\n0.5 1\n")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {0.5, 1}}, m)
}

func TestParseMatrix_Errors(t *testing.T) {
	for _, in := range []string{"", " ; ", "1,x", "1/0,1", "a/2"} {
		_, err := ParseMatrix(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestComplete(t *testing.T) {
	m, err := Complete(3, []float64{3, 5, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m[1][1])
	assert.Equal(t, 3.0, m[0][1])
	assert.InDelta(t, 1.0/3, m[1][0], 1e-12)
	assert.InDelta(t, 0.5, m[2][1], 1e-12)
	assert.NoError(t, CheckReciprocal(m, 1e-12))

	_, err = Complete(3, []float64{3, 5})
	assert.Error(t, err)
	_, err = Complete(2, []float64{-1})
	assert.Error(t, err)
}
