package reliability

import (
	"fmt"
	"math"
	"sort"
)

// HybridSpec is the input to NewHybridModel. Trees is keyed by skill label.
type HybridSpec struct {
	Name  string
	Chain *MarkovModel
	Trees map[string]*FaultTree
}

// HybridModel composes a Markov chain over skills with one component fault
// tree per skill. The top event of a skill's tree is that state's local
// failure probability; states without a tree keep the chain's value.
//
// Its parameters are the tree parameters (robot components and the
// behavioral risk of each tree skill, keyed by the skill label) plus the
// chain states without a tree. A parameter shared by several trees has one
// value. It is immutable once built.
type HybridModel struct {
	name   string
	chain  *MarkovModel
	trees  map[string]*FaultTree
	params []string
}

// NewHybridModel validates a spec and builds the model
func NewHybridModel(spec HybridSpec) (*HybridModel, error) {
	const op = "NewHybridModel"

	if spec.Chain == nil {
		return nil, NewError(op).Entity("model").Context("no Markov chain").Build()
	}

	h := &HybridModel{
		name:  spec.Name,
		chain: spec.Chain,
		trees: make(map[string]*FaultTree, len(spec.Trees)),
	}

	states := make(map[string]bool)
	for _, s := range spec.Chain.States() {
		states[s] = true
	}

	shared := make(map[string]float64)
	for _, skill := range sortedTreeKeys(spec.Trees) {
		tree := spec.Trees[skill]
		if !states[skill] {
			return nil, NewError(op).State(skill).Context("component tree for a skill that is not a chain state").Build()
		}
		if tree == nil {
			return nil, NewError(op).State(skill).Context("nil component tree").Build()
		}
		for _, param := range tree.Skills() {
			if states[param] && param != skill {
				return nil, NewError(op).State(skill).
					Contextf("tree parameter %q is another skill state", param).Build()
			}
			p, _ := tree.SkillProbability(param)
			if prev, seen := shared[param]; seen && math.Abs(prev-p) > Tolerance {
				return nil, NewError(op).Event(param).
					Contextf("parameter has probability %v in one tree and %v in another", prev, p).Build()
			}
			shared[param] = p
		}
		h.trees[skill] = tree
	}

	for _, s := range spec.Chain.States() {
		if _, ok := h.trees[s]; !ok {
			shared[s], _ = spec.Chain.SkillProbability(s)
		}
	}
	for param := range shared {
		h.params = append(h.params, param)
	}
	sort.Strings(h.params)

	return h, nil
}

func sortedTreeKeys(m map[string]*FaultTree) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kind implements Model
func (h *HybridModel) Kind() ModelKind { return KindHybrid }

// Name returns the model name
func (h *HybridModel) Name() string { return h.name }

// Chain returns the Markov chain. Failure probabilities of skills with a
// component tree are placeholders until the trees are evaluated.
func (h *HybridModel) Chain() *MarkovModel { return h.chain }

// Tree returns the component fault tree of a skill
func (h *HybridModel) Tree(skill string) (*FaultTree, bool) {
	ft, ok := h.trees[skill]
	return ft, ok
}

// TreeSkills returns the skills that have a component tree, sorted
func (h *HybridModel) TreeSkills() []string {
	return sortedTreeKeys(h.trees)
}

// Skills implements Model. It returns every parameter, sorted.
func (h *HybridModel) Skills() []string {
	return append([]string(nil), h.params...)
}

// SkillProbability implements Model
func (h *HybridModel) SkillProbability(label string) (float64, bool) {
	for _, skill := range h.TreeSkills() {
		if p, ok := h.trees[skill].SkillProbability(label); ok {
			return p, true
		}
	}
	if _, ok := h.trees[label]; ok {
		return 0, false
	}
	return h.chain.SkillProbability(label)
}

// WithSkillProbability implements Model. Every tree binding the parameter
// takes the new value; a chain state without a tree is updated directly.
func (h *HybridModel) WithSkillProbability(label string, p float64) (Model, error) {
	if !ValidProbability(p) {
		return nil, NewError("WithSkillProbability").Event(label).
			Contextf("probability %v outside [0,1]", p).Build()
	}

	clone := &HybridModel{
		name:   h.name,
		chain:  h.chain,
		trees:  make(map[string]*FaultTree, len(h.trees)),
		params: h.params,
	}

	found := false
	for skill, tree := range h.trees {
		clone.trees[skill] = tree
		if _, ok := tree.SkillProbability(label); !ok {
			continue
		}
		changed, err := tree.WithSkillProbability(label, p)
		if err != nil {
			return nil, err
		}
		clone.trees[skill] = changed.(*FaultTree)
		found = true
	}
	if found {
		return clone, nil
	}

	if _, hasTree := h.trees[label]; !hasTree {
		if _, ok := h.chain.SkillProbability(label); ok {
			chain, err := h.chain.WithFailureProbability(label, p)
			if err != nil {
				return nil, err
			}
			clone.chain = chain
			return clone, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, label)
}
