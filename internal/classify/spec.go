// Package classify turns raw factor grids (elevation, slope, rainfall,
// proximity) into categorical risk grids using per-factor threshold rules.
package classify

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind names a flood-risk factor.
type Kind string

// Known factor kinds.
const (
	Elevation Kind = "elevation"
	Slope     Kind = "slope"
	Rainfall  Kind = "rainfall"
	Proximity Kind = "proximity"
)

// Kinds lists the built-in factors in canonical order. The same order is used
// for pairwise comparison matrices.
var Kinds = []Kind{Elevation, Slope, Rainfall, Proximity}

// ParseKind resolves a factor name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", eris.Errorf("classify: unknown factor kind %q", s)
}

// Direction states how risk moves with the raw value.
type Direction int

const (
	// Decreasing: low values are high risk (elevation, slope, proximity).
	Decreasing Direction = iota
	// Increasing: high values are high risk (rainfall).
	Increasing
)

func (d Direction) String() string {
	if d == Increasing {
		return "increasing"
	}
	return "decreasing"
}

// ParseDirection accepts "increasing" or "decreasing".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increasing", "inc":
		return Increasing, nil
	case "decreasing", "dec":
		return Decreasing, nil
	}
	return 0, eris.Errorf("classify: unknown direction %q", s)
}

// FactorSpec configures classification of one factor grid.
type FactorSpec struct {
	Kind      Kind      `json:"kind" yaml:"kind"`
	Low       float64   `json:"low" yaml:"low"`
	High      float64   `json:"high" yaml:"high"`
	Direction Direction `json:"direction" yaml:"direction"`
	// Normalize rescales valid cells to [0,1] when the grid range leaves it.
	Normalize bool `json:"normalize" yaml:"normalize"`
	// NegativeIsNoData marks negative raw values as NoData.
	NegativeIsNoData bool `json:"negative_is_no_data" yaml:"negative_is_no_data"`
	// ClampNegative replaces negative raw values with 0 before thresholding.
	ClampNegative bool `json:"clamp_negative" yaml:"clamp_negative"`
}

// DefaultSpec returns the standard rules for a built-in factor kind.
func DefaultSpec(kind Kind, low, high float64) FactorSpec {
	s := FactorSpec{Kind: kind, Low: low, High: high}
	switch kind {
	case Elevation, Slope:
		s.NegativeIsNoData = true
	case Rainfall:
		s.Direction = Increasing
		s.ClampNegative = true
	case Proximity:
		s.Normalize = true
	}
	return s
}

// Validate rejects non-finite or inverted thresholds and contradictory flags.
func (s FactorSpec) Validate() error {
	if math.IsNaN(s.Low) || math.IsNaN(s.High) || math.IsInf(s.Low, 0) || math.IsInf(s.High, 0) {
		return eris.Errorf("classify: %s thresholds must be finite", s.name())
	}
	if s.Low > s.High {
		return eris.Errorf("classify: %s low threshold %g exceeds high threshold %g", s.name(), s.Low, s.High)
	}
	if s.NegativeIsNoData && s.ClampNegative {
		return eris.Errorf("classify: %s cannot both clamp negatives and treat them as no-data", s.name())
	}
	if s.Direction != Decreasing && s.Direction != Increasing {
		return eris.Errorf("classify: %s has unknown direction %d", s.name(), s.Direction)
	}
	return nil
}

func (s FactorSpec) name() string {
	if s.Kind == "" {
		return "factor"
	}
	return string(s.Kind)
}
