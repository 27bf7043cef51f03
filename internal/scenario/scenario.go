// Package scenario reads assessment scenario files: YAML documents listing
// factor layers, their thresholds and either weights or pairwise judgments.
package scenario

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/config"
	"github.com/sells-group/floodrisk/internal/pipeline"
)

//go:embed scenario.schema.json
var schemaJSON string

var (
	printer = message.NewPrinter(language.English)
	schema  = mustCompileSchema(schemaJSON, "scenario.schema.json")
)

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Scenario is a decoded scenario file.
type Scenario struct {
	Name                string    `yaml:"name"`
	Method              string    `yaml:"method"`
	Output              string    `yaml:"output"`
	OverrideConsistency bool      `yaml:"override_consistency"`
	Factors             []Factor  `yaml:"factors"`
	Weights             []float64 `yaml:"weights"`
	// Matrix and Judgments entries are decimals or fractions such as "1/3".
	Matrix    [][]string `yaml:"matrix"`
	Judgments []string   `yaml:"judgments"`

	// baseDir resolves relative paths; empty means the working directory.
	baseDir string
}

// Factor is one factor entry. Unset thresholds and flags fall back to the
// configured thresholds and the kind's default rules.
type Factor struct {
	Name             string   `yaml:"name"`
	Kind             string   `yaml:"kind"`
	Path             string   `yaml:"path"`
	Low              *float64 `yaml:"low"`
	High             *float64 `yaml:"high"`
	Direction        string   `yaml:"direction"`
	Normalize        *bool    `yaml:"normalize"`
	ClampNegative    *bool    `yaml:"clamp_negative"`
	NegativeIsNoData *bool    `yaml:"negative_is_no_data"`
}

// ValidationError lists schema violations, one per offending location.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "scenario: invalid: " + strings.Join(e.Errors, "; ")
}

// Validate checks raw YAML against the scenario schema and returns one
// message per violation.
func Validate(data []byte) []string {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	err := schema.Validate(toJSONCompatible(doc))
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

func toJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			out[k] = toJSONCompatible(v2)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = toJSONCompatible(v2)
		}
		return out
	default:
		return val
	}
}

// Parse validates and decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	if errs := Validate(data); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "scenario: decode")
	}
	return &s, nil
}

// LoadFile reads a scenario file. Relative factor and output paths resolve
// against the file's directory.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: %s", path)
	}
	s.baseDir = filepath.Dir(path)
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Request converts the scenario into a pipeline request. th supplies
// thresholds for factors that omit low or high.
func (s *Scenario) Request(th config.ThresholdsConfig) (pipeline.Request, error) {
	req := pipeline.Request{
		Name:                s.Name,
		Method:              ahp.Method(s.Method),
		Output:              s.resolve(s.Output),
		OverrideConsistency: s.OverrideConsistency,
		Weights:             s.Weights,
	}

	for i, f := range s.Factors {
		pf, err := s.factor(f, th)
		if err != nil {
			return pipeline.Request{}, eris.Wrapf(err, "scenario: factor %d", i)
		}
		req.Factors = append(req.Factors, pf)
	}

	switch {
	case len(s.Matrix) > 0:
		m, err := parseMatrix(s.Matrix)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.Matrix = m
	case len(s.Judgments) > 0:
		vals, err := parseRow(s.Judgments)
		if err != nil {
			return pipeline.Request{}, eris.Wrap(err, "scenario: judgments")
		}
		m, err := ahp.Complete(len(s.Factors), vals)
		if err != nil {
			return pipeline.Request{}, eris.Wrap(err, "scenario: judgments")
		}
		req.Matrix = m
	}

	if err := req.Validate(); err != nil {
		return pipeline.Request{}, eris.Wrap(err, "scenario: request")
	}
	return req, nil
}

func (s *Scenario) factor(f Factor, th config.ThresholdsConfig) (pipeline.Factor, error) {
	kind, err := classify.ParseKind(f.Kind)
	if err != nil {
		return pipeline.Factor{}, err
	}
	def, _ := th.For(string(kind))
	low, high := def.Low, def.High
	if f.Low != nil {
		low = *f.Low
	}
	if f.High != nil {
		high = *f.High
	}

	spec := classify.DefaultSpec(kind, low, high)
	if f.Direction != "" {
		if spec.Direction, err = classify.ParseDirection(f.Direction); err != nil {
			return pipeline.Factor{}, err
		}
	}
	if f.Normalize != nil {
		spec.Normalize = *f.Normalize
	}
	if f.ClampNegative != nil {
		spec.ClampNegative = *f.ClampNegative
		if spec.ClampNegative && f.NegativeIsNoData == nil {
			spec.NegativeIsNoData = false
		}
	}
	if f.NegativeIsNoData != nil {
		spec.NegativeIsNoData = *f.NegativeIsNoData
		if spec.NegativeIsNoData && f.ClampNegative == nil {
			spec.ClampNegative = false
		}
	}

	name := f.Name
	if name == "" {
		name = string(kind)
	}
	return pipeline.Factor{Name: name, Source: s.resolve(f.Path), Spec: spec}, nil
}

func (s *Scenario) resolve(p string) string {
	if p == "" || s.baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.baseDir, p)
}

func parseMatrix(rows [][]string) ([][]float64, error) {
	m := make([][]float64, len(rows))
	for i, r := range rows {
		row, err := parseRow(r)
		if err != nil {
			return nil, eris.Wrapf(err, "scenario: matrix row %d", i)
		}
		m[i] = row
	}
	return m, nil
}

func parseRow(vals []string) ([]float64, error) {
	out := make([]float64, len(vals))
	for j, v := range vals {
		f, err := ahp.ParseJudgment(v)
		if err != nil {
			return nil, err
		}
		out[j] = f
	}
	return out, nil
}
