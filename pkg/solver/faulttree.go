package solver

import (
	"context"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// evaluateTree propagates leaf probabilities to the root, children first.
// AND multiplies; OR is one minus the product of complements. Events are
// assumed independent.
func (s *Solver) evaluateTree(ctx context.Context, ft *reliability.FaultTree) (map[string]float64, error) {
	values := make(map[string]float64)
	for _, id := range ft.BottomUp() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, _ := ft.Node(id)
		var v float64
		switch {
		case node.IsEvent():
			v, _ = ft.SkillProbability(node.Skill)
		case node.Gate == reliability.GateAND:
			v = 1
			for _, c := range node.Children {
				v *= values[c]
			}
		default:
			survive := 1.0
			for _, c := range node.Children {
				survive *= 1 - values[c]
			}
			v = 1 - survive
		}

		if !reliability.InUnitInterval(v, s.cfg.RangeTolerance) {
			return nil, &reliability.NumericRangeError{Node: id, Value: v}
		}
		values[id] = reliability.Clamp(v)
	}
	return values, nil
}
