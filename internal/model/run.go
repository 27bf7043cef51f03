package model

import "time"

// RunStatus represents the current state of an assessment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
	RunStatusRejected RunStatus = "rejected" // blocked by the consistency gate
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed || s == RunStatusRejected
}

// WeightSource records where the factor weights of a run came from.
type WeightSource string

const (
	WeightSourceManual        WeightSource = "manual"
	WeightSourceAHP           WeightSource = "ahp"
	WeightSourceAHPColumnMean WeightSource = "ahp_column_mean"
)

// FactorWeight is one factor's contribution to a run.
type FactorWeight struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Source string  `json:"source,omitempty"`
	Weight float64 `json:"weight"`
}

// Run is a single flood-risk assessment. ConsistencyRatio is nil when
// weights were supplied directly.
type Run struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Status           RunStatus      `json:"status"`
	WeightSource     WeightSource   `json:"weight_source"`
	Factors          []FactorWeight `json:"factors"`
	ConsistencyRatio *float64       `json:"consistency_ratio,omitempty"`
	Result           *RunResult     `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// RunResult holds the outcome of a completed run.
type RunResult struct {
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Counts     map[string]int `json:"counts"`
	OutputPath string         `json:"output_path,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Warnings   []string       `json:"warnings,omitempty"`
}
