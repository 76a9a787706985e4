package solver

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/dd0wney/cluso-dra/pkg/algorithms"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// markovResult is the outcome of one absorption solve
type markovResult struct {
	strategy   string
	overall    float64
	perState   map[string]float64
	steps      map[string]float64
	iterations int
}

// buildSystem extracts Q and R from the model rows, in model state order
func buildSystem(m *reliability.MarkovModel) *System {
	states := m.States()
	index := make(map[string]int, len(states))
	for i, s := range states {
		index[s] = i
	}

	n := len(states)
	q := mat.NewDense(n, n, nil)
	r := mat.NewVecDense(n, nil)
	for i, s := range states {
		for to, p := range m.Row(s) {
			if j, ok := index[to]; ok {
				q.Set(i, j, q.At(i, j)+p)
			} else if to == reliability.StateFailure {
				r.SetVec(i, r.AtVec(i)+p)
			}
		}
	}
	return &System{States: states, Q: q, R: r}
}

// transitionGraph has an edge for every positive-probability transition,
// absorbing states included
func transitionGraph(m *reliability.MarkovModel) *algorithms.Digraph {
	g := algorithms.NewDigraph()
	for _, s := range m.States() {
		g.AddNode(s)
	}
	for _, a := range m.AbsorbingStates() {
		g.AddNode(a)
	}
	for _, s := range m.States() {
		row := m.Row(s)
		targets := make([]string, 0, len(row))
		for to, p := range row {
			if p > 0 {
				targets = append(targets, to)
			}
		}
		sort.Strings(targets)
		for _, to := range targets {
			g.AddEdge(s, to)
		}
	}
	return g
}

// trappedStates returns the transient states of closed classes: sets the
// chain can enter but never leave for FAILURE or SUCCESS
func trappedStates(g *algorithms.Digraph) []string {
	scc := algorithms.StronglyConnectedComponents(g)
	var trapped []string
	for _, c := range algorithms.ClosedComponents(g, scc) {
		for _, member := range c.Members {
			if member != reliability.StateFailure && member != reliability.StateSuccess {
				trapped = append(trapped, member)
			}
		}
	}
	sort.Strings(trapped)
	return trapped
}

// solveMarkov computes absorption into FAILURE from every skill state
func (s *Solver) solveMarkov(ctx context.Context, m *reliability.MarkovModel) (*markovResult, error) {
	graph := transitionGraph(m)
	if trapped := trappedStates(graph); len(trapped) > 0 {
		return nil, &reliability.NonConvergenceError{Strategy: s.strategy(len(m.States())).Name(), States: trapped}
	}

	sys := buildSystem(m)
	strategy := s.strategy(sys.Size())
	sol, err := strategy.Solve(ctx, sys)
	if err != nil {
		return nil, err
	}

	// states with no path to FAILURE are exactly 0
	reachesFailure := graph.Reverse().Reachable(reliability.StateFailure)

	res := &markovResult{
		strategy:   strategy.Name(),
		perState:   make(map[string]float64, sys.Size()),
		iterations: sol.Iterations,
	}
	if sol.Steps != nil {
		res.steps = make(map[string]float64, sys.Size())
	}
	for i, state := range sys.States {
		p := sol.Absorption[i]
		if !reachesFailure[state] {
			p = 0
		}
		if !reliability.InUnitInterval(p, s.cfg.RangeTolerance) {
			return nil, &reliability.NumericRangeError{Node: state, Value: p}
		}
		res.perState[state] = reliability.Clamp(p)
		if sol.Steps != nil {
			res.steps[state] = sol.Steps[i]
		}
	}
	res.overall = res.perState[m.Initial()]
	return res, nil
}
