package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/config"
)

var thresholds = config.ThresholdsConfig{
	Elevation: config.FactorThreshold{Low: 570, High: 700},
	Slope:     config.FactorThreshold{Low: 30, High: 50},
	Rainfall:  config.FactorThreshold{Low: 10, High: 24},
	Proximity: config.FactorThreshold{Low: 0.3, High: 0.6},
}

const weightsDoc = `
name: pune
output: out/risk.asc
factors:
  - kind: elevation
    path: dem.asc
  - kind: slope
    path: slope.asc
    low: 15
    high: 35
  - name: rain
    kind: rainfall
    path: /data/rain.asc
    clamp_negative: false
weights: [0.5, 0.3, 0.2]
`

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, Validate([]byte(weightsDoc)))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"yaml", "factors: [unclosed", "YAML parse error"},
		{"no factors", "weights: [1]", "/"},
		{"unknown kind", "factors: [{kind: wind, path: a}]\nweights: [1]", "/factors/0/kind"},
		{"missing path", "factors: [{kind: slope}]\nweights: [1]", "/factors/0"},
		{"weight range", "factors: [{kind: slope, path: a}]\nweights: [1.5]", "/weights/0"},
		{"unknown field", "factors: [{kind: slope, path: a}]\nweights: [1]\ncolour: red", "/"},
		{"bad judgment", "factors: [{kind: slope, path: a}]\nmatrix: [[\"x\"]]", "/matrix/0/0"},
		{"both weights and matrix", "factors: [{kind: slope, path: a}]\nweights: [1]\nmatrix: [[1]]", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate([]byte(tt.doc))
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if len(e) >= len(tt.want) && e[:len(tt.want)] == tt.want {
					found = true
				}
			}
			assert.True(t, found, "errors %v should start with %q", errs, tt.want)
		})
	}
}

func TestParse_ValidationError(t *testing.T) {
	_, err := Parse([]byte("factors: []\nweights: [1]"))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotEmpty(t, ve.Errors)
	assert.Contains(t, err.Error(), "scenario: invalid")
}

func TestLoadFile_Request(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pune.yaml")
	require.NoError(t, os.WriteFile(path, []byte(weightsDoc), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	req, err := s.Request(thresholds)
	require.NoError(t, err)

	assert.Equal(t, "pune", req.Name)
	assert.Equal(t, filepath.Join(dir, "out/risk.asc"), req.Output)
	assert.Equal(t, []float64{0.5, 0.3, 0.2}, req.Weights)
	assert.Empty(t, req.Matrix)
	require.Len(t, req.Factors, 3)

	elev := req.Factors[0]
	assert.Equal(t, "elevation", elev.Name)
	assert.Equal(t, filepath.Join(dir, "dem.asc"), elev.Source)
	assert.Equal(t, 570.0, elev.Spec.Low)
	assert.Equal(t, 700.0, elev.Spec.High)
	assert.True(t, elev.Spec.NegativeIsNoData)

	slope := req.Factors[1]
	assert.Equal(t, 15.0, slope.Spec.Low)
	assert.Equal(t, 35.0, slope.Spec.High)

	rain := req.Factors[2]
	assert.Equal(t, "rain", rain.Name)
	assert.Equal(t, "/data/rain.asc", rain.Source)
	assert.Equal(t, classify.Increasing, rain.Spec.Direction)
	assert.False(t, rain.Spec.ClampNegative)
}

func TestLoadFile_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kerala.yml")
	doc := "factors: [{kind: slope, path: s.asc}]\nweights: [1]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kerala", s.Name)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRequest_Matrix(t *testing.T) {
	doc := `
method: column-mean
factors:
  - {kind: slope, path: s.asc}
  - {kind: rainfall, path: r.asc}
matrix:
  - [1, 3]
  - ["1/3", 1]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	req, err := s.Request(thresholds)
	require.NoError(t, err)

	assert.Equal(t, ahp.MethodColumnMean, req.Method)
	require.Len(t, req.Matrix, 2)
	assert.Equal(t, 3.0, req.Matrix[0][1])
	assert.InDelta(t, 1.0/3, req.Matrix[1][0], 1e-12)
	assert.Equal(t, "s.asc", req.Factors[0].Source)
}

func TestRequest_Judgments(t *testing.T) {
	doc := `
factors:
  - {kind: elevation, path: e.asc}
  - {kind: slope, path: s.asc}
  - {kind: proximity, path: p.asc, normalize: false}
judgments: [3, 5, "1/2"]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	req, err := s.Request(thresholds)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{
		{1, 3, 5},
		{1.0 / 3, 1, 0.5},
		{0.2, 2, 1},
	}, req.Matrix)
	assert.False(t, req.Factors[2].Spec.Normalize)
}

func TestRequest_JudgmentCountMismatch(t *testing.T) {
	doc := `
factors:
  - {kind: elevation, path: e.asc}
  - {kind: slope, path: s.asc}
judgments: [3, 5]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	_, err = s.Request(thresholds)
	assert.Error(t, err)
}

func TestRequest_WeightCountMismatch(t *testing.T) {
	doc := `
factors:
  - {kind: elevation, path: e.asc}
weights: [0.5, 0.5]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	_, err = s.Request(thresholds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 weights for 1 factors")
}

func TestRequest_DirectionOverride(t *testing.T) {
	doc := `
factors:
  - {kind: slope, path: s.asc, direction: increasing, clamp_negative: true}
weights: [1]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	req, err := s.Request(thresholds)
	require.NoError(t, err)

	spec := req.Factors[0].Spec
	assert.Equal(t, classify.Increasing, spec.Direction)
	assert.True(t, spec.ClampNegative)
	assert.False(t, spec.NegativeIsNoData)
}
