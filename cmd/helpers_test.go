package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodrisk/internal/config"
	"github.com/sells-group/floodrisk/internal/model"
	"github.com/sells-group/floodrisk/internal/store"
)

// useTestConfig installs the default configuration as the global cfg.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "runs.db")},
		Engine: config.EngineConfig{
			Method:              "eigen",
			ConsistencyLimit:    0.1,
			WeightTolerance:     1e-6,
			ReciprocalTolerance: 0.05,
		},
		Thresholds: config.ThresholdsConfig{
			Elevation: config.FactorThreshold{Low: 570, High: 700},
			Slope:     config.FactorThreshold{Low: 30, High: 50},
			Rainfall:  config.FactorThreshold{Low: 10, High: 24},
			Proximity: config.FactorThreshold{Low: 0.3, High: 0.6},
		},
		Zones:  config.ZonesConfig{Connectivity: 4, MinCells: 1},
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

// writeASC writes a geo-referenced ESRI ASCII grid with 10 m cells.
func writeASC(t *testing.T, dir, name string, rows [][]float64) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\nxllcorner 500000\nyllcorner 2000000\ncellsize 10\nNODATA_value -9999\n", len(rows[0]), len(rows))
	for _, r := range rows {
		vals := make([]string, len(r))
		for i, v := range r {
			vals[i] = fmt.Sprint(v)
		}
		b.WriteString(strings.Join(vals, " "))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

type mockStore struct{ mock.Mock }

func (m *mockStore) CreateRun(ctx context.Context, run store.NewRun) (*model.Run, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, status model.RunStatus, msg string) error {
	args := m.Called(ctx, runID, status, msg)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
