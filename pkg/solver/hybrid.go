package solver

import (
	"context"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// hybridResult is the outcome of one hybrid solve
type hybridResult struct {
	*markovResult
	// gates holds every evaluated gate of every component tree, top events
	// included
	gates map[string]float64
}

// solveHybrid evaluates each skill's component tree, moves its top event
// onto the skill's FAILURE edge and solves the resulting chain
func (s *Solver) solveHybrid(ctx context.Context, h *reliability.HybridModel) (*hybridResult, error) {
	chain := h.Chain()
	gates := make(map[string]float64)

	for _, skill := range h.TreeSkills() {
		tree, _ := h.Tree(skill)
		values, err := s.evaluateTree(ctx, tree)
		if err != nil {
			return nil, err
		}
		for _, id := range tree.BottomUp() {
			if n, _ := tree.Node(id); !n.IsEvent() {
				gates[id] = values[id]
			}
		}

		if chain, err = chain.WithFailureProbability(skill, values[tree.Root()]); err != nil {
			return nil, err
		}
	}

	res, err := s.solveMarkov(ctx, chain)
	if err != nil {
		return nil, err
	}
	return &hybridResult{markovResult: res, gates: gates}, nil
}

func (s *Solver) solveHybridReport(ctx context.Context, h *reliability.HybridModel) (*reliability.Report, error) {
	res, err := s.solveHybrid(ctx, h)
	if err != nil {
		return nil, err
	}

	report := &reliability.Report{
		Model:         reliability.KindHybrid,
		Strategy:      res.strategy,
		Overall:       res.overall,
		PerSkill:      res.perState,
		Iterations:    res.iterations,
		ExpectedSteps: res.steps,
		Gates:         res.gates,
		Sensitivity:   []reliability.Importance{},
	}

	if !s.cfg.DisableSensitivity {
		eval := func(ctx context.Context, perturbed reliability.Model) (float64, error) {
			r, err := s.solveHybrid(ctx, perturbed.(*reliability.HybridModel))
			if err != nil {
				return 0, err
			}
			return r.overall, nil
		}
		report.Sensitivity, err = s.sensitivity(ctx, h, res.overall, eval)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}
