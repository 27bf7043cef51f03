package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/model"
)

// Factor is one input layer of an assessment.
type Factor struct {
	Name   string              `json:"name"`
	Source string              `json:"source"`
	Spec   classify.FactorSpec `json:"spec"`
}

// Request describes one assessment. Exactly one of Weights or Matrix is set;
// both are in Factors order.
type Request struct {
	Name    string      `json:"name"`
	Factors []Factor    `json:"factors"`
	Weights []float64   `json:"weights,omitempty"`
	Matrix  [][]float64 `json:"matrix,omitempty"`
	Method  ahp.Method  `json:"method,omitempty"`
	// Output is handed to the Emitter; empty skips emission.
	Output string `json:"output,omitempty"`
	// OverrideConsistency accepts AHP weights whose CR exceeds the limit.
	OverrideConsistency bool `json:"override_consistency,omitempty"`
}

// Validate checks the request structure. Numeric checks on weights and
// matrices happen in Run.
func (r Request) Validate() error {
	if len(r.Factors) == 0 {
		return eris.New("pipeline: request has no factors")
	}
	seen := make(map[string]struct{}, len(r.Factors))
	for i, f := range r.Factors {
		if f.Name == "" {
			return eris.Errorf("pipeline: factor %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return eris.Errorf("pipeline: duplicate factor %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Source == "" {
			return eris.Errorf("pipeline: factor %q has no source", f.Name)
		}
		if err := f.Spec.Validate(); err != nil {
			return eris.Wrapf(err, "pipeline: factor %q", f.Name)
		}
	}

	hasWeights, hasMatrix := len(r.Weights) > 0, len(r.Matrix) > 0
	switch {
	case hasWeights && hasMatrix:
		return eris.New("pipeline: give either weights or a comparison matrix, not both")
	case !hasWeights && !hasMatrix:
		return eris.New("pipeline: weights or a comparison matrix are required")
	case hasWeights && len(r.Weights) != len(r.Factors):
		return eris.Errorf("pipeline: %d weights for %d factors", len(r.Weights), len(r.Factors))
	case hasMatrix && len(r.Matrix) != len(r.Factors):
		return eris.Errorf("pipeline: %dx%d matrix for %d factors", len(r.Matrix), len(r.Matrix), len(r.Factors))
	}

	switch r.Method {
	case "", ahp.MethodEigen, ahp.MethodColumnMean:
	default:
		return eris.Errorf("pipeline: unknown weighting method %q", r.Method)
	}
	return nil
}

// WeightSource reports where the request's weights come from.
func (r Request) WeightSource() model.WeightSource {
	switch {
	case len(r.Matrix) == 0:
		return model.WeightSourceManual
	case r.Method == ahp.MethodColumnMean:
		return model.WeightSourceAHPColumnMean
	default:
		return model.WeightSourceAHP
	}
}

// FactorNames returns factor names in request order.
func (r Request) FactorNames() []string {
	names := make([]string, len(r.Factors))
	for i, f := range r.Factors {
		names[i] = f.Name
	}
	return names
}

// ConsistencyWarning blocks AHP weights whose consistency ratio exceeds the
// limit unless the request overrides it.
type ConsistencyWarning struct {
	CR    float64
	Limit float64
	// Weights are the rejected weights, in factor order.
	Weights []float64
}

func (w *ConsistencyWarning) Error() string {
	return fmt.Sprintf("pipeline: consistency ratio %.4f exceeds %.2f; revise the comparison matrix or override", w.CR, w.Limit)
}
