package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/risk"
)

func sampleSummary(t *testing.T) Summary {
	t.Helper()
	g, err := grid.FromRows([][]float64{{1, 1, 2, 3}, {3, 3, 4, 1}}, nil)
	require.NoError(t, err)
	return Summarize("combined", g)
}

func TestSummarize(t *testing.T) {
	s := sampleSummary(t)
	assert.Equal(t, 8, s.Total())
	assert.Equal(t, 3, s.Counts[risk.Low])
	assert.Equal(t, 1, s.Counts[risk.Moderate])
	assert.Equal(t, 3, s.Counts[risk.High])
	assert.Equal(t, 1, s.Counts[risk.NoData])
	assert.InDelta(t, 37.5, s.Percent(risk.High), 1e-9)
	assert.Equal(t, 0.0, Summary{}.Percent(risk.Low))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleSummary(t)))
	out := buf.String()
	assert.Contains(t, out, "combined (2x4)")
	assert.Contains(t, out, "37.50%")
	assert.Contains(t, out, "no_data")

	big := Summary{Name: "big", Rows: 1000, Cols: 1000, Counts: map[risk.Category]int{risk.Low: 1000000}}
	buf.Reset()
	require.NoError(t, WriteTable(&buf, big))
	assert.Contains(t, buf.String(), "1,000,000")
}

func TestWriteWeights(t *testing.T) {
	cr := 0.0032
	var buf bytes.Buffer
	require.NoError(t, WriteWeights(&buf, []Weight{{"elevation", 0.5}, {"slope", 0.5}}, &cr))
	assert.Contains(t, buf.String(), "elevation  0.5000")
	assert.Contains(t, buf.String(), "CR")
}

func TestWriteXLSX(t *testing.T) {
	cr := 0.02
	path := filepath.Join(t.TempDir(), "report.xlsx")
	err := WriteXLSX(path, Report{
		Summaries: []Summary{sampleSummary(t)},
		Weights:   []Weight{{"elevation", 0.6}, {"slope", 0.4}},
		CR:        &cr,
	})
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet, ok := f.Sheet["combined"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 6)
	assert.Equal(t, "high", sheet.Rows[3].Cells[0].String())
	assert.Equal(t, "3", sheet.Rows[3].Cells[2].String())

	weights, ok := f.Sheet["weights"]
	require.True(t, ok)
	require.Len(t, weights.Rows, 4)
	assert.Equal(t, "slope", weights.Rows[2].Cells[0].String())
}

func TestWriteXLSX_Empty(t *testing.T) {
	err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), Report{})
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "summary", sheetName(""))
	assert.Len(t, sheetName(strings.Repeat("a", 40)), 31)
}
