package reliability

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Synthetic absorbing states of every Markov model
const (
	StateFailure = "FAILURE"
	StateSuccess = "SUCCESS"
)

// RootEvent is the identifier of the fault tree top event
const RootEvent = "SYSTEM_FAILURE"

// Tolerance is the slack allowed on row sums and probability bounds
const Tolerance = 1e-9

// ModelKind identifies the formalism of a model
type ModelKind string

const (
	KindMarkov    ModelKind = "markov"
	KindFaultTree ModelKind = "fault_tree"
	KindHybrid    ModelKind = "hybrid"
)

// GateType is a fault tree gate
type GateType string

const (
	GateAND GateType = "AND"
	GateOR  GateType = "OR"
)

// Valid reports whether g is a supported gate type
func (g GateType) Valid() bool {
	return g == GateAND || g == GateOR
}

// Model is implemented by MarkovModel, FaultTree and HybridModel. All are
// immutable: WithSkillProbability returns a modified copy.
type Model interface {
	Kind() ModelKind
	// Skills returns the skill labels whose failure probability parameterizes the model, sorted.
	Skills() []string
	// SkillProbability returns the local failure probability of a skill label.
	SkillProbability(label string) (float64, bool)
	// WithSkillProbability returns a copy with one skill probability replaced.
	WithSkillProbability(label string, p float64) (Model, error)
}

// TransitionEdge is an observed transition count. To is a skill or, for
// the end of a run, an absorbing state.
type TransitionEdge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Count int    `json:"count" yaml:"count"`
}

// Warning codes
const (
	WarnMissingData = "MISSING_DATA"
)

// Warning is a non-fatal finding recorded while generating a model
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Element string `json:"element,omitempty"`
}

// Clamp limits v to [0,1]. NaN maps to 0.
func Clamp[T constraints.Float](v T) T {
	if v != v {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// InUnitInterval reports whether v lies in [0,1] within tol
func InUnitInterval[T constraints.Float](v, tol T) bool {
	return v >= -tol && v <= 1+tol
}

// ValidProbability reports whether p is a finite value in [0,1]
func ValidProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
