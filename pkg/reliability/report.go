package reliability

import (
	"math"
	"sort"
)

// Importance is one entry of a sensitivity ranking
type Importance struct {
	Component string  `json:"component"`
	Score     float64 `json:"influence_score"`
}

// Report is the result of one solver run. It is read-only once returned.
type Report struct {
	Model    ModelKind          `json:"model"`
	Strategy string             `json:"strategy,omitempty"`
	Overall  float64            `json:"overall"`
	PerSkill map[string]float64 `json:"per_skill"`
	// Sensitivity is ordered by descending absolute score, ties by component.
	Sensitivity []Importance `json:"sensitivity"`

	Iterations    int                `json:"iterations,omitempty"`
	ExpectedSteps map[string]float64 `json:"expected_steps,omitempty"`
	// Gates holds the evaluated probability of every fault tree gate
	Gates map[string]float64 `json:"gates,omitempty"`
}

// RankImportance sorts a sensitivity ranking in place: descending by
// absolute score, then ascending by component for determinism
func RankImportance(entries []Importance) {
	sort.SliceStable(entries, func(i, j int) bool {
		ai, aj := math.Abs(entries[i].Score), math.Abs(entries[j].Score)
		if ai != aj {
			return ai > aj
		}
		return entries[i].Component < entries[j].Component
	})
}

// Top returns the first n entries of the ranking
func (r *Report) Top(n int) []Importance {
	if n > len(r.Sensitivity) {
		n = len(r.Sensitivity)
	}
	return append([]Importance(nil), r.Sensitivity[:n]...)
}
