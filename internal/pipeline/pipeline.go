// Package pipeline coordinates a flood-risk assessment: weight resolution,
// factor loading and classification, aggregation and emission.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/grid"
	"github.com/sells-group/floodrisk/internal/model"
	"github.com/sells-group/floodrisk/internal/risk"
	"github.com/sells-group/floodrisk/internal/store"
)

// Loader acquires a factor grid. The grid carries its geo-referencing.
type Loader interface {
	Load(ctx context.Context, source string) (*grid.Grid, error)
}

// Emitter writes the combined grid to a destination.
type Emitter interface {
	Emit(ctx context.Context, g *grid.Grid, dest string) error
}

// Options tune the engine.
type Options struct {
	ConsistencyLimit    float64
	WeightTolerance     float64
	Workers             int
	StrictReciprocal    bool
	ReciprocalTolerance float64
}

// DefaultOptions returns the stock engine settings.
func DefaultOptions() Options {
	return Options{
		ConsistencyLimit:    ahp.ConsistencyLimit,
		WeightTolerance:     risk.DefaultWeightTolerance,
		ReciprocalTolerance: 0.05,
	}
}

// FactorResult is one classified factor.
type FactorResult struct {
	Name       string
	Weight     float64
	Grid       *grid.Grid
	Normalized bool
}

// Result is the outcome of a successful Run.
type Result struct {
	RunID     string
	Combined  *grid.Grid
	Factors   []FactorResult
	Weights   []float64
	AHP       *ahp.Result // nil for manual weights
	Histogram map[risk.Category]int
	// Warnings are non-fatal: degenerate normalisations and overridden
	// consistency warnings.
	Warnings []error
	Duration time.Duration
}

// Coordinator runs assessments.
type Coordinator struct {
	loader  Loader
	emitter Emitter
	store   store.Store
	opts    Options
	tracer  trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore records every run in st.
func WithStore(st store.Store) Option {
	return func(c *Coordinator) { c.store = st }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) { c.tracer = t }
}

// New creates a Coordinator. emitter may be nil when no request sets Output.
func New(loader Loader, emitter Emitter, opts Options, options ...Option) *Coordinator {
	def := DefaultOptions()
	if opts.ConsistencyLimit <= 0 {
		opts.ConsistencyLimit = def.ConsistencyLimit
	}
	if opts.WeightTolerance <= 0 {
		opts.WeightTolerance = def.WeightTolerance
	}
	if opts.ReciprocalTolerance <= 0 {
		opts.ReciprocalTolerance = def.ReciprocalTolerance
	}
	c := &Coordinator{
		loader:  loader,
		emitter: emitter,
		opts:    opts,
		tracer:  otel.Tracer("github.com/sells-group/floodrisk/internal/pipeline"),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Run executes one assessment. Weights are resolved and validated before any
// grid is loaded. A ConsistencyWarning is returned, and the run recorded as
// rejected, when AHP weights exceed the consistency limit without override.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("assessment", req.Name))

	ctx, span := c.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("assessment", req.Name),
		attribute.Int("factors", len(req.Factors)),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	res := &Result{}
	if err := c.stage(ctx, log, "weights", func(context.Context) error {
		w, ar, err := c.resolveWeights(req)
		res.Weights, res.AHP = w, ar
		return err
	}); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if res.AHP != nil {
		span.SetAttributes(attribute.Float64("ahp.cr", res.AHP.CR))
		log.Info("pipeline: weights from comparison matrix",
			zap.String("method", string(res.AHP.Method)),
			zap.Float64s("weights", res.Weights),
			zap.Float64("cr", res.AHP.CR),
		)
	}

	runID, err := c.createRun(ctx, req, res)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	res.RunID = runID

	if res.AHP != nil && !res.AHP.Consistent(c.opts.ConsistencyLimit) {
		cw := &ConsistencyWarning{CR: res.AHP.CR, Limit: c.opts.ConsistencyLimit, Weights: res.Weights}
		if !req.OverrideConsistency {
			log.Warn("pipeline: rejecting inconsistent weights", zap.Float64("cr", cw.CR))
			c.failRun(ctx, log, runID, model.RunStatusRejected, cw)
			recordSpanError(span, cw)
			return nil, cw
		}
		log.Warn("pipeline: inconsistent weights accepted by override", zap.Float64("cr", cw.CR))
		res.Warnings = append(res.Warnings, cw)
	}

	if err := c.execute(ctx, log, req, res); err != nil {
		c.failRun(ctx, log, runID, model.RunStatusFailed, err)
		recordSpanError(span, err)
		return nil, err
	}

	res.Histogram = risk.Histogram(res.Combined)
	res.Duration = time.Since(start)
	c.completeRun(ctx, log, req, res)

	log.Info("pipeline: assessment complete",
		zap.String("run_id", runID),
		zap.Int("low", res.Histogram[risk.Low]),
		zap.Int("moderate", res.Histogram[risk.Moderate]),
		zap.Int("high", res.Histogram[risk.High]),
		zap.Int("no_data", res.Histogram[risk.NoData]),
		zap.Duration("duration", res.Duration),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}

// execute loads, classifies, aggregates and emits.
func (c *Coordinator) execute(ctx context.Context, log *zap.Logger, req Request, res *Result) error {
	res.Factors = make([]FactorResult, len(req.Factors))
	warnings := make([]*classify.DegenerateNormalizationWarning, len(req.Factors))

	if err := c.stage(ctx, log, "classify", func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, f := range req.Factors {
			g.Go(func() error {
				fr, warn, err := c.loadAndClassify(gctx, f)
				if err != nil {
					return err
				}
				fr.Weight = res.Weights[i]
				res.Factors[i] = *fr
				warnings[i] = warn
				return nil
			})
		}
		return g.Wait()
	}); err != nil {
		return err
	}
	for _, w := range warnings {
		if w != nil {
			res.Warnings = append(res.Warnings, w)
		}
	}

	if err := c.stage(ctx, log, "aggregate", func(context.Context) error {
		weighted := make([]risk.WeightedFactor, len(res.Factors))
		for i, f := range res.Factors {
			weighted[i] = risk.WeightedFactor{Name: f.Name, Grid: f.Grid, Weight: f.Weight}
		}
		agg := risk.Aggregator{Tolerance: c.opts.WeightTolerance, Workers: c.opts.Workers}
		combined, err := agg.Aggregate(weighted)
		res.Combined = combined
		return err
	}); err != nil {
		return err
	}

	if req.Output == "" {
		return nil
	}
	if c.emitter == nil {
		return eris.New("pipeline: output requested but no emitter configured")
	}
	return c.stage(ctx, log, "emit", func(ctx context.Context) error {
		return eris.Wrapf(c.emitter.Emit(ctx, res.Combined, req.Output), "pipeline: emit %s", req.Output)
	})
}

func (c *Coordinator) loadAndClassify(ctx context.Context, f Factor) (*FactorResult, *classify.DegenerateNormalizationWarning, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.factor", trace.WithAttributes(
		attribute.String("factor", f.Name),
		attribute.String("kind", string(f.Spec.Kind)),
	))
	defer span.End()

	raw, err := c.loader.Load(ctx, f.Source)
	if err != nil {
		err = eris.Wrapf(err, "pipeline: load %s from %s", f.Name, f.Source)
		recordSpanError(span, err)
		return nil, nil, err
	}

	cr, err := classify.Classifier{Workers: c.opts.Workers}.Classify(raw, f.Spec)
	if err != nil {
		err = eris.Wrapf(err, "pipeline: classify %s", f.Name)
		recordSpanError(span, err)
		return nil, nil, err
	}
	return &FactorResult{Name: f.Name, Grid: cr.Grid, Normalized: cr.Normalized}, cr.Warning, nil
}

// resolveWeights returns manual weights or solves the comparison matrix,
// then checks the weight sum.
func (c *Coordinator) resolveWeights(req Request) ([]float64, *ahp.Result, error) {
	if len(req.Matrix) == 0 {
		w := append([]float64(nil), req.Weights...)
		if err := risk.ValidateWeights(w, c.opts.WeightTolerance); err != nil {
			return nil, nil, err
		}
		return w, nil, nil
	}

	if err := ahp.Validate(req.Matrix); err != nil {
		return nil, nil, err
	}
	if c.opts.StrictReciprocal {
		if err := ahp.CheckReciprocal(req.Matrix, c.opts.ReciprocalTolerance); err != nil {
			return nil, nil, err
		}
	}
	ar, err := ahp.Solve(req.Matrix, req.Method)
	if err != nil {
		return nil, nil, err
	}
	if err := risk.ValidateWeights(ar.Weights, c.opts.WeightTolerance); err != nil {
		return nil, nil, err
	}
	return ar.Weights, ar, nil
}

// stage wraps fn in a span and logs its duration.
func (c *Coordinator) stage(ctx context.Context, log *zap.Logger, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		recordSpanError(span, err)
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return err
	}
	log.Debug("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (c *Coordinator) createRun(ctx context.Context, req Request, res *Result) (string, error) {
	if c.store == nil {
		return "", nil
	}
	factors := make([]model.FactorWeight, len(req.Factors))
	for i, f := range req.Factors {
		factors[i] = model.FactorWeight{
			Name:   f.Name,
			Kind:   string(f.Spec.Kind),
			Source: f.Source,
			Weight: res.Weights[i],
		}
	}
	in := store.NewRun{Name: req.Name, WeightSource: req.WeightSource(), Factors: factors}
	if res.AHP != nil {
		cr := res.AHP.CR
		in.ConsistencyRatio = &cr
	}
	run, err := c.store.CreateRun(ctx, in)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create run")
	}
	return run.ID, nil
}

func (c *Coordinator) failRun(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus, cause error) {
	if c.store == nil || runID == "" {
		return
	}
	if err := c.store.FailRun(ctx, runID, status, cause.Error()); err != nil {
		log.Warn("pipeline: failed to record run failure", zap.String("run_id", runID), zap.Error(err))
	}
}

func (c *Coordinator) completeRun(ctx context.Context, log *zap.Logger, req Request, res *Result) {
	if c.store == nil || res.RunID == "" {
		return
	}
	counts := make(map[string]int, len(res.Histogram))
	for cat, n := range res.Histogram {
		counts[cat.String()] = n
	}
	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Error())
	}
	result := &model.RunResult{
		Rows:       res.Combined.Rows(),
		Cols:       res.Combined.Cols(),
		Counts:     counts,
		OutputPath: req.Output,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   warnings,
	}
	if err := c.store.CompleteRun(ctx, res.RunID, result); err != nil {
		log.Warn("pipeline: failed to record run result", zap.String("run_id", res.RunID), zap.Error(err))
	}
}
