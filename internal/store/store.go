package store

import (
	"context"
	"errors"

	"github.com/sells-group/floodrisk/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Name   string          `json:"name,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// NewRun describes a run at the moment its weights are known.
type NewRun struct {
	Name             string
	WeightSource     model.WeightSource
	Factors          []model.FactorWeight
	ConsistencyRatio *float64
}

// ErrNotFound is returned by every backend when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store defines the persistence interface for assessment run history.
type Store interface {
	CreateRun(ctx context.Context, run NewRun) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	// FailRun moves a run to a terminal failure status (failed or rejected).
	FailRun(ctx context.Context, runID string, status model.RunStatus, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
