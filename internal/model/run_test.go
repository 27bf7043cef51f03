package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   RunStatus
		want     string
		terminal bool
	}{
		{RunStatusRunning, "running", false},
		{RunStatusComplete, "complete", true},
		{RunStatusFailed, "failed", true},
		{RunStatusRejected, "rejected", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestWeightSourceValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "manual", string(WeightSourceManual))
	assert.Equal(t, "ahp", string(WeightSourceAHP))
	assert.Equal(t, "ahp_column_mean", string(WeightSourceAHPColumnMean))
}

func TestRun_OmitsNilCR(t *testing.T) {
	t.Parallel()

	run := Run{
		ID:     "r1",
		Status: RunStatusComplete,
		Result: &RunResult{Rows: 2, Cols: 3, Counts: map[string]int{"low": 6}},
	}
	data, err := json.Marshal(run)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "consistency_ratio")
	assert.Contains(t, string(data), `"counts":{"low":6}`)

	cr := 0.05
	run.ConsistencyRatio = &cr
	data, err = json.Marshal(run)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"consistency_ratio":0.05`)
}
