package solver

import (
	"context"
	"errors"
	"math"

	"github.com/dd0wney/cluso-dra/pkg/parallel"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// scorePrecision is the grid scores are rounded to, so that ties do not
// depend on floating point noise
const scorePrecision = 1e12

// overallFunc evaluates the top-level failure probability of a model
type overallFunc func(ctx context.Context, m reliability.Model) (float64, error)

// sensitivity perturbs every skill probability by ±delta (clamped to
// [0,1]) and scores (P(p+) - P(p-)) / (p+ - p-). When one perturbed model
// no longer converges the unperturbed point stands in for it, giving a
// one-sided difference. Both sides failing is an error.
func (s *Solver) sensitivity(ctx context.Context, model reliability.Model, base float64, eval overallFunc) ([]reliability.Importance, error) {
	labels := model.Skills()
	if len(labels) == 0 {
		return []reliability.Importance{}, nil
	}

	workers := s.cfg.Workers
	if workers > len(labels) {
		workers = len(labels)
	}
	pool, err := parallel.NewWorkerPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	scores, err := parallel.Map(ctx, pool, len(labels), func(ctx context.Context, i int) (float64, error) {
		return s.influence(ctx, model, labels[i], base, eval)
	})
	if err != nil {
		return nil, err
	}

	out := make([]reliability.Importance, len(labels))
	for i, label := range labels {
		out[i] = reliability.Importance{Component: label, Score: scores[i]}
	}
	reliability.RankImportance(out)
	return out, nil
}

func (s *Solver) influence(ctx context.Context, model reliability.Model, label string, base float64, eval overallFunc) (float64, error) {
	p, _ := model.SkillProbability(label)
	hi := reliability.Clamp(p + s.cfg.SensitivityDelta)
	lo := reliability.Clamp(p - s.cfg.SensitivityDelta)

	var failed error
	at := func(q float64) (float64, float64, error) {
		if q == p {
			return q, base, nil
		}
		perturbed, err := model.WithSkillProbability(label, q)
		if err != nil {
			return 0, 0, err
		}
		v, err := eval(ctx, perturbed)
		if errors.Is(err, reliability.ErrNonConvergence) {
			if failed != nil {
				return 0, 0, failed
			}
			failed = err
			return p, base, nil
		}
		return q, v, err
	}

	xHi, yHi, err := at(hi)
	if err != nil {
		return 0, err
	}
	xLo, yLo, err := at(lo)
	if err != nil {
		return 0, err
	}
	if xHi == xLo {
		return 0, nil
	}

	score := (yHi - yLo) / (xHi - xLo)
	return math.Round(score*scorePrecision) / scorePrecision, nil
}
