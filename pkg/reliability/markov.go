package reliability

import (
	"fmt"
	"math"
	"sort"
)

// StateSpec describes one skill state of a Markov model.
type StateSpec struct {
	Label string
	// FailureProbability is the local probability of moving to FAILURE.
	FailureProbability float64
	// Successors is the empirical next-state distribution, conditional on not
	// failing. Keys are skill labels or an absorbing state. Weights are
	// normalized on construction.
	Successors map[string]float64
	// Terminal is the absorbing state taking the non-failure mass when
	// Successors is empty. Defaults to SUCCESS.
	Terminal string
	// Instances is the number of observed instances of this skill.
	Instances int
}

// MarkovSpec is the input to NewMarkovModel
type MarkovSpec struct {
	Name    string
	Initial string
	States  []StateSpec
	Edges   []TransitionEdge
}

type markovState struct {
	failure    float64
	successors map[string]float64
	terminal   string
	instances  int
}

// MarkovModel is an absorbing Markov chain over skill states plus the
// synthetic FAILURE and SUCCESS states. It is immutable once built.
type MarkovModel struct {
	name    string
	initial string
	order   []string
	states  map[string]*markovState
	edges   []TransitionEdge
}

// NewMarkovModel validates a spec and builds the model
func NewMarkovModel(spec MarkovSpec) (*MarkovModel, error) {
	const op = "NewMarkovModel"

	if len(spec.States) == 0 {
		return nil, NewError(op).Entity("model").Context("no skill states").Build()
	}

	m := &MarkovModel{
		name:    spec.Name,
		initial: spec.Initial,
		order:   make([]string, 0, len(spec.States)),
		states:  make(map[string]*markovState, len(spec.States)),
	}

	for _, s := range spec.States {
		if s.Label == "" {
			return nil, NewError(op).Entity("state").Context("empty label").Build()
		}
		if isAbsorbing(s.Label) {
			return nil, NewError(op).State(s.Label).Context("label is reserved for an absorbing state").Build()
		}
		if _, dup := m.states[s.Label]; dup {
			return nil, NewError(op).State(s.Label).Context("duplicate state").Build()
		}
		if !ValidProbability(s.FailureProbability) {
			return nil, NewError(op).State(s.Label).
				Contextf("failure probability %v outside [0,1]", s.FailureProbability).Build()
		}

		terminal := s.Terminal
		if terminal == "" {
			terminal = StateSuccess
		}
		if !isAbsorbing(terminal) {
			return nil, NewError(op).State(s.Label).Contextf("terminal %q is not an absorbing state", terminal).Build()
		}

		m.order = append(m.order, s.Label)
		m.states[s.Label] = &markovState{
			failure:   s.FailureProbability,
			terminal:  terminal,
			instances: s.Instances,
		}
	}

	for _, s := range spec.States {
		succ, err := normalizeSuccessors(s.Successors)
		if err != nil {
			return nil, NewError(op).State(s.Label).Cause(fmt.Errorf("%w: %v", ErrInvalidModel, err)).Build()
		}
		for to := range succ {
			if _, known := m.states[to]; !known && !isAbsorbing(to) {
				return nil, NewError(op).State(s.Label).Contextf("successor %q is not a state", to).Build()
			}
		}
		m.states[s.Label].successors = succ
	}

	if m.initial == "" {
		m.initial = m.order[0]
	}
	if _, ok := m.states[m.initial]; !ok {
		return nil, NewError(op).State(m.initial).Context("initial state is not a skill state").Build()
	}

	for _, e := range spec.Edges {
		if e.Count < 0 {
			return nil, NewError(op).Entity("edge").Contextf("%s->%s has negative count %d", e.From, e.To, e.Count).Build()
		}
	}
	m.edges = append([]TransitionEdge(nil), spec.Edges...)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func normalizeSuccessors(in map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	total := 0.0
	for to, w := range in {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("successor %q has invalid weight %v", to, w)
		}
		total += w
	}
	if total == 0 {
		return out, nil
	}
	for to, w := range in {
		if w > 0 {
			out[to] = w / total
		}
	}
	return out, nil
}

func isAbsorbing(label string) bool {
	return label == StateFailure || label == StateSuccess
}

// Kind implements Model
func (m *MarkovModel) Kind() ModelKind { return KindMarkov }

// Name returns the model name
func (m *MarkovModel) Name() string { return m.name }

// Initial returns the state the chain starts in
func (m *MarkovModel) Initial() string { return m.initial }

// States returns the transient (skill) states in first-appearance order
func (m *MarkovModel) States() []string {
	return append([]string(nil), m.order...)
}

// Skills implements Model
func (m *MarkovModel) Skills() []string {
	skills := m.States()
	sort.Strings(skills)
	return skills
}

// AbsorbingStates returns FAILURE and SUCCESS
func (m *MarkovModel) AbsorbingStates() []string {
	return []string{StateFailure, StateSuccess}
}

// SkillProbability implements Model
func (m *MarkovModel) SkillProbability(label string) (float64, bool) {
	s, ok := m.states[label]
	if !ok {
		return 0, false
	}
	return s.failure, true
}

// Instances returns how many observed instances back a state
func (m *MarkovModel) Instances(label string) int {
	if s, ok := m.states[label]; ok {
		return s.instances
	}
	return 0
}

// IsTerminal reports whether a skill state has no observed successor
func (m *MarkovModel) IsTerminal(label string) bool {
	s, ok := m.states[label]
	return ok && len(s.successors) == 0
}

// Edges returns the observed transition counts
func (m *MarkovModel) Edges() []TransitionEdge {
	return append([]TransitionEdge(nil), m.edges...)
}

// Row returns the full outgoing distribution of a state, including the
// FAILURE edge. Absorbing states return an empty row.
func (m *MarkovModel) Row(label string) map[string]float64 {
	row := make(map[string]float64)
	s, ok := m.states[label]
	if !ok {
		return row
	}

	row[StateFailure] = s.failure
	rest := 1 - s.failure
	if len(s.successors) == 0 {
		row[s.terminal] += rest
		return row
	}
	for to, t := range s.successors {
		row[to] += rest * t
	}
	return row
}

// Transitions returns every non-empty row keyed by source state
func (m *MarkovModel) Transitions() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(m.order))
	for _, label := range m.order {
		out[label] = m.Row(label)
	}
	return out
}

// Validate checks that every transient row is stochastic within Tolerance
func (m *MarkovModel) Validate() error {
	for _, label := range m.order {
		sum := 0.0
		for _, p := range m.Row(label) {
			if p < -Tolerance {
				return NewError("Validate").State(label).Contextf("negative transition %v", p).Build()
			}
			sum += p
		}
		if math.Abs(sum-1) > Tolerance {
			return NewError("Validate").State(label).Contextf("outgoing probabilities sum to %.12g", sum).Build()
		}
	}
	return nil
}

// WithFailureProbability returns a copy of the model with one state's local
// failure probability replaced
func (m *MarkovModel) WithFailureProbability(label string, p float64) (*MarkovModel, error) {
	if _, ok := m.states[label]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, label)
	}
	if !ValidProbability(p) {
		return nil, NewError("WithFailureProbability").State(label).
			Contextf("probability %v outside [0,1]", p).Build()
	}

	clone := &MarkovModel{
		name:    m.name,
		initial: m.initial,
		order:   m.order,
		states:  make(map[string]*markovState, len(m.states)),
		edges:   m.edges,
	}
	for k, s := range m.states {
		cp := *s
		clone.states[k] = &cp
	}
	clone.states[label].failure = p
	return clone, nil
}

// WithSkillProbability implements Model
func (m *MarkovModel) WithSkillProbability(label string, p float64) (Model, error) {
	return m.WithFailureProbability(label, p)
}
