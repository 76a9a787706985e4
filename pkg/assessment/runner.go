package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-dra/pkg/generator"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/skills"
	"github.com/dd0wney/cluso-dra/pkg/solver"
)

// Runner wires a generator and a solver. It is safe for concurrent use;
// every Run gets its own run id.
type Runner struct {
	generator *generator.Generator
	solver    *solver.Solver
	logger    logging.Logger
	metrics   *metrics.Registry
	newID     func() uuid.UUID
	now       func() time.Time
	// hybrid is set when skill components are configured
	hybrid bool
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger shared by the runner, generator and solver
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the registry shared by the runner, generator and solver
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunIDs overrides run id generation
func WithRunIDs(next func() uuid.UUID) Option {
	return func(r *Runner) { r.newID = next }
}

// New validates both configurations and creates a runner
func New(genCfg generator.Config, solveCfg solver.Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		logger: logging.NewNopLogger(),
		newID:  uuid.New,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	genCfg = genCfg.WithDefaults()
	if err := genCfg.Validate(); err != nil {
		return nil, err
	}
	r.hybrid = len(genCfg.SkillComponents) > 0
	r.generator = generator.New(genCfg, generator.WithLogger(r.logger), generator.WithMetrics(r.metrics))

	s, err := solver.New(solveCfg, solver.WithLogger(r.logger), solver.WithMetrics(r.metrics))
	if err != nil {
		return nil, err
	}
	r.solver = s
	r.logger = r.logger.With(logging.Component("assessment"))
	return r, nil
}

// Run generates the models from seq and solves the ones selected by opts.
// Generation errors abort before any solve. On error no assessment is
// returned.
func (r *Runner) Run(ctx context.Context, seq []skills.SkillInstance, opts Options) (*Assessment, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Models == ModelsHybrid && !r.hybrid {
		return nil, fmt.Errorf("%w: hybrid model needs skill components", reliability.ErrInvalidConfig)
	}

	start := time.Now()
	runID := r.newID()
	logger := r.logger.With(logging.RunID(runID.String()))

	res, err := r.generator.Generate(seq)
	if err != nil {
		r.record(metrics.StatusError, start)
		return nil, fmt.Errorf("generate: %w", err)
	}

	a := &Assessment{
		RunID:       runID,
		GeneratedAt: r.now().UTC(),
		Source:      opts.Source,
		Instances:   len(seq),
		Skills:      skills.Labels(seq),
		Warnings:    append([]reliability.Warning{}, res.Warnings...),
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.Models.markov() {
		if a.Markov, err = r.solver.Solve(ctx, res.Markov); err != nil {
			return nil, r.fail(logger, "markov", err, opts, start)
		}
	}
	if opts.Models.faultTree() {
		if a.FaultTree, err = r.solver.Solve(ctx, res.FaultTree); err != nil {
			return nil, r.fail(logger, "fault tree", err, opts, start)
		}
	}
	if opts.Models.hybrid() && res.Hybrid != nil {
		if a.Hybrid, err = r.solver.Solve(ctx, res.Hybrid); err != nil {
			return nil, r.fail(logger, "hybrid", err, opts, start)
		}
	}

	fields := []logging.Field{
		logging.Count(a.Instances),
		logging.Int("warnings", len(a.Warnings)),
		logging.Latency(time.Since(start)),
	}
	if a.Markov != nil {
		fields = append(fields, logging.Float64("markov_overall", a.Markov.Overall))
	}
	if a.FaultTree != nil {
		fields = append(fields, logging.Float64("fault_tree_overall", a.FaultTree.Overall))
	}
	if a.Hybrid != nil {
		fields = append(fields, logging.Float64("hybrid_overall", a.Hybrid.Overall))
	}
	logger.Info("assessment complete", fields...)
	r.record(metrics.StatusSuccess, start)
	return a, nil
}

// RunSignal annotates a recorded signal and assesses the resulting sequence
func (r *Runner) RunSignal(ctx context.Context, sig skills.Signal, det skills.Detector, an skills.Analyzer, opts Options) (*Assessment, error) {
	seq, err := skills.Annotate(ctx, sig, det, an)
	if err != nil {
		r.record(metrics.StatusError, time.Now())
		return nil, fmt.Errorf("annotate: %w", err)
	}
	return r.Run(ctx, seq, opts)
}

func (r *Runner) fail(logger logging.Logger, stage string, err error, opts Options, start time.Time) error {
	var te *reliability.TimeoutError
	if errors.As(err, &te) {
		if opts.Timeout > 0 {
			err = &reliability.TimeoutError{After: opts.Timeout, Cause: te.Cause}
		}
		logger.Warn("assessment timed out", logging.Duration("timeout", opts.Timeout), logging.String("stage", stage))
		r.record(metrics.StatusTimeout, start)
		return err
	}
	r.record(metrics.StatusError, start)
	return fmt.Errorf("solve %s: %w", stage, err)
}

func (r *Runner) record(status string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordAssessment(status, time.Since(start))
	}
}
