// Package solver computes failure probabilities and sensitivity rankings
// for reliability models.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// Solver evaluates models. It holds no per-solve state and is safe for
// concurrent use.
type Solver struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
	// strategy picks the absorption strategy for n transient states
	strategy func(n int) Strategy
}

// Option configures a Solver
type Option func(*Solver)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Solver) { s.metrics = m }
}

// New validates cfg (zero fields take defaults) and creates a solver
func New(cfg Config, opts ...Option) (*Solver, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Solver{cfg: cfg, logger: logging.NewNopLogger(), strategy: cfg.pickStrategy}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("solver"))
	return s, nil
}

// Config returns the effective configuration
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve computes the overall and per-skill failure probability of model and
// ranks skills by influence. The model is never modified. Either a complete
// report or an error is returned.
func (s *Solver) Solve(ctx context.Context, model reliability.Model) (*reliability.Report, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", reliability.ErrInvalidModel)
	}

	start := time.Now()
	op := logging.StartTimer(s.logger, "solve", logging.Model(string(model.Kind())))

	report, err := s.solve(ctx, model)
	if err != nil {
		fields, err := s.fail(model, err, start)
		op.EndError(err, fields...)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSolve(string(report.Model), report.Strategy, metrics.StatusSuccess,
			time.Since(start), report.Iterations, report.Overall)
		s.metrics.RecordSensitivity(string(report.Model), 2*len(report.Sensitivity))
	}
	op.End(logging.Probability(report.Overall), logging.Strategy(report.Strategy))
	return report, nil
}

// fail counts err and returns log fields describing it along with the
// error to hand back to the caller
func (s *Solver) fail(model reliability.Model, err error, start time.Time) ([]logging.Field, error) {
	kind := string(model.Kind())
	status := metrics.StatusError
	var fields []logging.Field

	var nc *reliability.NonConvergenceError
	var nr *reliability.NumericRangeError
	switch {
	case errors.As(err, &nr):
		fields = append(fields, logging.String("node", nr.Node), logging.Float64("value", nr.Value))
		if s.metrics != nil {
			s.metrics.RecordNumericRange()
		}
	case errors.As(err, &nc):
		reason := "iteration_bound"
		if len(nc.States) > 0 {
			reason = "closed_class"
		}
		fields = append(fields, logging.Strategy(nc.Strategy), logging.String("reason", reason),
			logging.Iterations(nc.Iterations))
		if s.metrics != nil {
			s.metrics.RecordNonConvergence(nc.Strategy, reason)
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = metrics.StatusTimeout
		err = &reliability.TimeoutError{After: time.Since(start), Cause: err}
	}

	if s.metrics != nil {
		s.metrics.RecordSolve(kind, "", status, time.Since(start), 0, 0)
	}
	return fields, err
}

func (s *Solver) solve(ctx context.Context, model reliability.Model) (*reliability.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch m := model.(type) {
	case *reliability.MarkovModel:
		return s.solveMarkovReport(ctx, m)
	case *reliability.FaultTree:
		return s.solveTreeReport(ctx, m)
	case *reliability.HybridModel:
		return s.solveHybridReport(ctx, m)
	default:
		return nil, fmt.Errorf("%w: unsupported model kind %q", reliability.ErrInvalidModel, model.Kind())
	}
}

func (s *Solver) solveMarkovReport(ctx context.Context, m *reliability.MarkovModel) (*reliability.Report, error) {
	res, err := s.solveMarkov(ctx, m)
	if err != nil {
		return nil, err
	}

	report := &reliability.Report{
		Model:         reliability.KindMarkov,
		Strategy:      res.strategy,
		Overall:       res.overall,
		PerSkill:      res.perState,
		Iterations:    res.iterations,
		ExpectedSteps: res.steps,
		Sensitivity:   []reliability.Importance{},
	}

	if !s.cfg.DisableSensitivity {
		eval := func(ctx context.Context, perturbed reliability.Model) (float64, error) {
			r, err := s.solveMarkov(ctx, perturbed.(*reliability.MarkovModel))
			if err != nil {
				return 0, err
			}
			return r.overall, nil
		}
		report.Sensitivity, err = s.sensitivity(ctx, m, res.overall, eval)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (s *Solver) solveTreeReport(ctx context.Context, ft *reliability.FaultTree) (*reliability.Report, error) {
	values, err := s.evaluateTree(ctx, ft)
	if err != nil {
		return nil, err
	}

	report := &reliability.Report{
		Model:       reliability.KindFaultTree,
		Overall:     values[ft.Root()],
		PerSkill:    make(map[string]float64),
		Gates:       make(map[string]float64),
		Sensitivity: []reliability.Importance{},
	}
	for _, label := range ft.Skills() {
		report.PerSkill[label], _ = ft.SkillProbability(label)
	}
	for _, id := range ft.BottomUp() {
		if n, _ := ft.Node(id); !n.IsEvent() {
			report.Gates[id] = values[id]
		}
	}

	if !s.cfg.DisableSensitivity {
		eval := func(ctx context.Context, perturbed reliability.Model) (float64, error) {
			tree := perturbed.(*reliability.FaultTree)
			v, err := s.evaluateTree(ctx, tree)
			if err != nil {
				return 0, err
			}
			return v[tree.Root()], nil
		}
		report.Sensitivity, err = s.sensitivity(ctx, ft, report.Overall, eval)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// SolveWithTimeout runs Solve under a deadline of d. Expiry yields a
// *reliability.TimeoutError and no report.
func (s *Solver) SolveWithTimeout(ctx context.Context, model reliability.Model, d time.Duration) (*reliability.Report, error) {
	if d <= 0 {
		return s.Solve(ctx, model)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	report, err := s.Solve(ctx, model)
	var te *reliability.TimeoutError
	if errors.As(err, &te) {
		return nil, &reliability.TimeoutError{After: d, Cause: te.Cause}
	}
	return report, err
}
