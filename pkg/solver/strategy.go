package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// System is the transient block of an absorbing chain: Q holds
// transient-to-transient probabilities and R the one-step probability of
// entering FAILURE
type System struct {
	States []string
	Q      *mat.Dense
	R      *mat.VecDense
}

// Size returns the number of transient states
func (s *System) Size() int {
	return len(s.States)
}

// Solution solves (I-Q)f = R and (I-Q)t = 1
type Solution struct {
	// Absorption is the probability of ending in FAILURE per state
	Absorption []float64
	// Steps is the expected number of skill executions before absorption.
	// It is nil when the iterative strategy could not settle it.
	Steps      []float64
	Iterations int
}

// Strategy computes absorption for a System. Implementations must not
// modify the system.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, sys *System) (*Solution, error)
}

// Direct factorizes I-Q once (LU with partial pivoting) and back-solves
// both right-hand sides
type Direct struct{}

func (Direct) Name() string { return StrategyDirect }

func (Direct) Solve(ctx context.Context, sys *System) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := sys.Size()
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -sys.Q.At(i, j)
			if i == j {
				v += 1
			}
			a.Set(i, j, v)
		}
	}

	var lu mat.LU
	lu.Factorize(a)

	var f mat.VecDense
	if err := lu.SolveVecTo(&f, false, sys.R); err != nil {
		return nil, singular(err)
	}

	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	var t mat.VecDense
	if err := lu.SolveVecTo(&t, false, mat.NewVecDense(n, ones)); err != nil {
		return nil, singular(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Solution{
		Absorption: mat.Col(nil, 0, &f),
		Steps:      mat.Col(nil, 0, &t),
	}, nil
}

func singular(err error) error {
	var cond mat.Condition
	residual := math.Inf(1)
	if errors.As(err, &cond) {
		residual = float64(cond)
	}
	return &reliability.NonConvergenceError{Strategy: StrategyDirect, Residual: residual}
}

// Iterative runs f <- Qf + R from zero until no entry of f moves by
// Tolerance or more. The expected steps t <- Qt + 1 ride along; once f has
// settled, t gets up to MaxIterations further sweeps to reach the same
// relative precision and Steps is left nil if it does not.
type Iterative struct {
	Tolerance     float64
	MaxIterations int
}

func (Iterative) Name() string { return StrategyIterative }

// ctxCheckInterval is how many sweeps run between context checks
const ctxCheckInterval = 256

func (it Iterative) Solve(ctx context.Context, sys *System) (*Solution, error) {
	n := sys.Size()
	f := mat.NewVecDense(n, nil)
	t := mat.NewVecDense(n, nil)
	nextF := mat.NewVecDense(n, nil)
	nextT := mat.NewVecDense(n, nil)

	residual := math.Inf(1)
	for iter := 1; iter <= it.MaxIterations; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		nextF.MulVec(sys.Q, f)
		nextF.AddVec(nextF, sys.R)
		nextT.MulVec(sys.Q, t)

		residual = 0
		stepResidual := 0.0
		for i := 0; i < n; i++ {
			nextT.SetVec(i, nextT.AtVec(i)+1)
			residual = math.Max(residual, math.Abs(nextF.AtVec(i)-f.AtVec(i)))
			stepResidual = math.Max(stepResidual, relativeStep(nextT.AtVec(i), t.AtVec(i)))
		}

		f, nextF = nextF, f
		t, nextT = nextT, t

		if residual < it.Tolerance {
			steps, err := it.settleSteps(ctx, sys, t, nextT, stepResidual)
			if err != nil {
				return nil, err
			}
			return &Solution{
				Absorption: mat.Col(nil, 0, f),
				Steps:      steps,
				Iterations: iter,
			}, nil
		}
	}

	return nil, &reliability.NonConvergenceError{
		Strategy:   StrategyIterative,
		Iterations: it.MaxIterations,
		Residual:   residual,
	}
}

// settleSteps continues t <- Qt + 1 until the relative change of every
// entry drops below Tolerance. It returns nil when MaxIterations sweeps
// are not enough.
func (it Iterative) settleSteps(ctx context.Context, sys *System, t, next *mat.VecDense, residual float64) ([]float64, error) {
	for sweep := 1; residual >= it.Tolerance; sweep++ {
		if sweep > it.MaxIterations {
			return nil, nil
		}
		if sweep%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		next.MulVec(sys.Q, t)
		residual = 0
		for i := 0; i < sys.Size(); i++ {
			next.SetVec(i, next.AtVec(i)+1)
			residual = math.Max(residual, relativeStep(next.AtVec(i), t.AtVec(i)))
		}
		t, next = next, t
	}
	return mat.Col(nil, 0, t), nil
}

func relativeStep(next, prev float64) float64 {
	return math.Abs(next-prev) / math.Max(1, next)
}

// pickStrategy resolves the configured strategy for a system of n states
func (c Config) pickStrategy(n int) Strategy {
	iterative := Iterative{Tolerance: c.Tolerance, MaxIterations: c.MaxIterations}
	switch c.Strategy {
	case StrategyDirect:
		return Direct{}
	case StrategyIterative:
		return iterative
	default:
		if n <= c.DirectThreshold {
			return Direct{}
		}
		return iterative
	}
}
