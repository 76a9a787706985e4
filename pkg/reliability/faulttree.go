package reliability

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-dra/pkg/algorithms"
)

// GateSpec describes a gate node
type GateSpec struct {
	ID       string
	Type     GateType
	Children []string
}

// EventSpec describes a basic event leaf bound to a skill label
type EventSpec struct {
	ID    string
	Skill string
}

// FaultTreeSpec is the input to NewFaultTree. Probabilities maps every
// skill label referenced by an event to its failure probability.
type FaultTreeSpec struct {
	Name          string
	Root          string
	Gates         []GateSpec
	Events        []EventSpec
	Probabilities map[string]float64
}

// Node is a read-only view of a fault tree node
type Node struct {
	ID       string
	Gate     GateType // empty for basic events
	Skill    string   // empty for gates
	Children []string
}

// IsEvent reports whether the node is a basic event leaf
func (n Node) IsEvent() bool {
	return n.Gate == ""
}

// FaultTree is an AND/OR gate tree over skill basic events with a single
// root. It is immutable once built.
type FaultTree struct {
	name   string
	root   string
	nodes  map[string]Node
	order  []string // children before parents
	probs  map[string]float64
	skills []string
}

// NewFaultTree validates a spec and builds the tree
func NewFaultTree(spec FaultTreeSpec) (*FaultTree, error) {
	const op = "NewFaultTree"

	root := spec.Root
	if root == "" {
		root = RootEvent
	}

	ft := &FaultTree{
		name:  spec.Name,
		root:  root,
		nodes: make(map[string]Node, len(spec.Gates)+len(spec.Events)),
		probs: make(map[string]float64),
	}

	graph := algorithms.NewDigraph()

	for _, g := range spec.Gates {
		if g.ID == "" {
			return nil, NewError(op).Entity("gate").Context("empty id").Build()
		}
		if _, dup := ft.nodes[g.ID]; dup {
			return nil, NewError(op).Gate(g.ID).Context("duplicate node").Build()
		}
		if !g.Type.Valid() {
			return nil, NewError(op).Gate(g.ID).Contextf("unsupported gate type %q", g.Type).Build()
		}
		if len(g.Children) == 0 {
			return nil, NewError(op).Gate(g.ID).Context("gate has no children").Build()
		}
		ft.nodes[g.ID] = Node{ID: g.ID, Gate: g.Type, Children: append([]string(nil), g.Children...)}
		graph.AddNode(g.ID)
	}

	skills := make(map[string]bool)
	for _, e := range spec.Events {
		if e.ID == "" || e.Skill == "" {
			return nil, NewError(op).Event(e.ID).Context("event needs an id and a skill").Build()
		}
		if _, dup := ft.nodes[e.ID]; dup {
			return nil, NewError(op).Event(e.ID).Context("duplicate node").Build()
		}
		p, ok := spec.Probabilities[e.Skill]
		if !ok {
			return nil, NewError(op).Event(e.ID).Contextf("no probability for skill %q", e.Skill).Build()
		}
		if !ValidProbability(p) {
			return nil, NewError(op).Event(e.ID).Contextf("probability %v outside [0,1]", p).Build()
		}
		ft.nodes[e.ID] = Node{ID: e.ID, Skill: e.Skill}
		ft.probs[e.Skill] = p
		skills[e.Skill] = true
		graph.AddNode(e.ID)
	}

	if _, ok := ft.nodes[root]; !ok {
		return nil, NewError(op).Gate(root).Context("root node missing").Build()
	}
	if ft.nodes[root].IsEvent() {
		return nil, NewError(op).Event(root).Context("root must be a gate").Build()
	}

	for _, g := range spec.Gates {
		for _, child := range g.Children {
			if _, ok := ft.nodes[child]; !ok {
				return nil, NewError(op).Gate(g.ID).Contextf("unknown child %q", child).Build()
			}
			graph.AddEdge(g.ID, child)
		}
	}

	if !algorithms.IsTree(graph) {
		return nil, NewError(op).Entity("tree").Context(treeDiagnosis(graph, root)).Build()
	}
	if roots := algorithms.Roots(graph); roots[0] != root {
		return nil, NewError(op).Gate(root).Contextf("declared root is not the tree root (%s)", roots[0]).Build()
	}

	order, err := algorithms.TopologicalSort(graph)
	if err != nil {
		return nil, NewError(op).Entity("tree").Cause(fmt.Errorf("%w: %v", ErrInvalidModel, err)).Build()
	}
	for i := len(order) - 1; i >= 0; i-- {
		ft.order = append(ft.order, order[i])
	}

	for s := range skills {
		ft.skills = append(ft.skills, s)
	}
	sort.Strings(ft.skills)

	return ft, nil
}

func treeDiagnosis(graph *algorithms.Digraph, root string) string {
	if algorithms.HasCycle(graph) {
		return "gates form a cycle"
	}
	if roots := algorithms.Roots(graph); len(roots) != 1 {
		return fmt.Sprintf("expected exactly one root, found %v", roots)
	}
	for id, deg := range graph.InDegrees() {
		if id != root && deg > 1 {
			return fmt.Sprintf("node %q has %d parents", id, deg)
		}
	}
	return "nodes unreachable from root"
}

// Kind implements Model
func (ft *FaultTree) Kind() ModelKind { return KindFaultTree }

// Name returns the tree name
func (ft *FaultTree) Name() string { return ft.name }

// Root returns the top event id
func (ft *FaultTree) Root() string { return ft.root }

// Node returns a copy of a node
func (ft *FaultTree) Node(id string) (Node, bool) {
	n, ok := ft.nodes[id]
	if !ok {
		return Node{}, false
	}
	n.Children = append([]string(nil), n.Children...)
	return n, true
}

// BottomUp returns node ids ordered so that every child precedes its parent
func (ft *FaultTree) BottomUp() []string {
	return append([]string(nil), ft.order...)
}

// Skills implements Model
func (ft *FaultTree) Skills() []string {
	return append([]string(nil), ft.skills...)
}

// SkillProbability implements Model
func (ft *FaultTree) SkillProbability(label string) (float64, bool) {
	p, ok := ft.probs[label]
	return p, ok
}

// Events returns the basic event ids bound to a skill label, sorted
func (ft *FaultTree) Events(label string) []string {
	ids := make([]string, 0)
	for id, n := range ft.nodes {
		if n.IsEvent() && n.Skill == label {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// WithSkillProbability implements Model. Every leaf bound to the label
// takes the new probability.
func (ft *FaultTree) WithSkillProbability(label string, p float64) (Model, error) {
	if _, ok := ft.probs[label]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, label)
	}
	if !ValidProbability(p) {
		return nil, NewError("WithSkillProbability").Event(label).
			Contextf("probability %v outside [0,1]", p).Build()
	}

	clone := *ft
	clone.probs = make(map[string]float64, len(ft.probs))
	for k, v := range ft.probs {
		clone.probs[k] = v
	}
	clone.probs[label] = p
	return &clone, nil
}
