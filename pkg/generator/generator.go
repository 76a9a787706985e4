// Package generator turns an annotated skill sequence into reliability
// models: an absorbing Markov chain over skill transitions, a fault tree
// over skill failures and, when skills are mapped to robot components, a
// hybrid of the chain with one component tree per skill.
package generator

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/skills"
)

// Result holds the models built from one sequence. The models are
// immutable and may be shared with any number of solvers.
type Result struct {
	Markov    *reliability.MarkovModel
	FaultTree *reliability.FaultTree
	// Hybrid is nil unless skill components are configured
	Hybrid *reliability.HybridModel
	// Probabilities is the aggregated local failure probability per
	// observed label
	Probabilities map[string]float64
	Warnings      []reliability.Warning
}

// Generator builds models. The zero value is not usable; call New.
type Generator struct {
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Generator
type Option func(*Generator)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(g *Generator) { g.metrics = m }
}

// New creates a generator. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg.WithDefaults(), logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logging.Component("generator"))
	return g
}

// Generate builds the models from seq with cfg
func Generate(seq []skills.SkillInstance, cfg Config) (*Result, error) {
	return New(cfg).Generate(seq)
}

// Generate validates seq and the configuration, then builds the models.
// No partial result is returned on error.
func (g *Generator) Generate(seq []skills.SkillInstance) (*Result, error) {
	start := time.Now()

	res, err := g.generate(seq)
	if err != nil {
		g.logger.Error("model generation failed", logging.Error(err), logging.Count(len(seq)))
		g.record(metrics.StatusError, 0, time.Since(start))
		return nil, err
	}

	for _, w := range res.Warnings {
		g.logger.Warn(w.Message, logging.String("code", w.Code), logging.Skill(w.Element))
		if g.metrics != nil {
			g.metrics.RecordWarning(w.Code)
		}
	}
	states := len(res.Markov.States())
	g.logger.Info("models generated",
		logging.Count(len(seq)),
		logging.States(states),
		logging.Int("warnings", len(res.Warnings)),
		logging.Latency(time.Since(start)))
	g.record(metrics.StatusSuccess, states, time.Since(start))
	return res, nil
}

func (g *Generator) record(status string, states int, d time.Duration) {
	if g.metrics != nil {
		g.metrics.RecordGeneration(status, states, d)
	}
}

func (g *Generator) generate(seq []skills.SkillInstance) (*Result, error) {
	if err := skills.ValidateSequence(seq); err != nil {
		return nil, err
	}
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}

	probs, err := g.localProbabilities(seq)
	if err != nil {
		return nil, err
	}

	markov, err := g.buildMarkov(seq, probs)
	if err != nil {
		return nil, err
	}

	tree, warnings, err := g.buildFaultTree(skills.Labels(seq), probs)
	if err != nil {
		return nil, err
	}

	hybrid, hybridWarnings, err := g.buildHybrid(markov, probs)
	if err != nil {
		return nil, err
	}

	return &Result{
		Markov:        markov,
		FaultTree:     tree,
		Hybrid:        hybrid,
		Probabilities: probs,
		Warnings:      append(warnings, hybridWarnings...),
	}, nil
}

func (g *Generator) localProbabilities(seq []skills.SkillInstance) (map[string]float64, error) {
	risks := make(map[string][]float64)
	for _, inst := range seq {
		risks[inst.Label] = append(risks[inst.Label], inst.Risk)
	}

	probs := make(map[string]float64, len(risks))
	for label, r := range risks {
		p, err := aggregate(r, g.cfg.Aggregation, g.cfg.Percentile)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", label, err)
		}
		probs[label] = p
	}
	return probs, nil
}

// buildMarkov pairs consecutive instances into transition counts. The last
// instance of the run counts one transition into the absorbing default, so
// a recording that revisits a skill still ends. Repeat factors scale the
// observed weight of every transition into their target before the counts
// are normalized.
func (g *Generator) buildMarkov(seq []skills.SkillInstance, probs map[string]float64) (*reliability.MarkovModel, error) {
	labels := skills.Labels(seq)

	counts := make(map[string]map[string]int, len(labels))
	instances := make(map[string]int, len(labels))
	var edges []reliability.TransitionEdge
	edgeIndex := make(map[[2]string]int)

	observe := func(from, to string) {
		if counts[from] == nil {
			counts[from] = make(map[string]int)
		}
		counts[from][to]++

		key := [2]string{from, to}
		if idx, ok := edgeIndex[key]; ok {
			edges[idx].Count++
		} else {
			edgeIndex[key] = len(edges)
			edges = append(edges, reliability.TransitionEdge{From: from, To: to, Count: 1})
		}
	}

	for i, inst := range seq {
		instances[inst.Label]++
		if i > 0 {
			observe(seq[i-1].Label, inst.Label)
		}
	}
	observe(seq[len(seq)-1].Label, g.cfg.AbsorbingDefault)

	spec := reliability.MarkovSpec{
		Initial: seq[0].Label,
		Edges:   edges,
	}
	for _, label := range labels {
		succ := make(map[string]float64, len(counts[label]))
		for to, n := range counts[label] {
			succ[to] = float64(n) * g.cfg.repeatFactor(to)
		}
		spec.States = append(spec.States, reliability.StateSpec{
			Label:              label,
			FailureProbability: probs[label],
			Successors:         succ,
			Terminal:           g.cfg.AbsorbingDefault,
			Instances:          instances[label],
		})
	}

	return reliability.NewMarkovModel(spec)
}
