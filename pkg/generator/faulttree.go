package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-dra/pkg/algorithms"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// buildFaultTree lays out the configured components under the root gate.
// Skills referenced by the configuration but never observed get their
// baseline probability and a MISSING_DATA warning.
func (g *Generator) buildFaultTree(observed []string, probs map[string]float64) (*reliability.FaultTree, []reliability.Warning, error) {
	ftc := g.cfg.FaultTree
	root := reliability.RootEvent

	if len(ftc.Components) == 0 {
		spec := reliability.FaultTreeSpec{
			Root:          root,
			Probabilities: make(map[string]float64, len(observed)),
		}
		gate := reliability.GateSpec{ID: root, Type: ftc.RootGate}
		for _, label := range observed {
			id := eventID(root, label)
			gate.Children = append(gate.Children, id)
			spec.Events = append(spec.Events, reliability.EventSpec{ID: id, Skill: label})
			spec.Probabilities[label] = probs[label]
		}
		spec.Gates = []reliability.GateSpec{gate}
		tree, err := reliability.NewFaultTree(spec)
		return tree, nil, err
	}

	topLevel, err := componentRoots(ftc.Components)
	if err != nil {
		return nil, nil, err
	}

	spec := reliability.FaultTreeSpec{
		Root:          root,
		Probabilities: make(map[string]float64),
		Gates:         []reliability.GateSpec{{ID: root, Type: ftc.RootGate, Children: topLevel}},
	}

	var warnings []reliability.Warning
	missing := make(map[string][]string)
	for _, name := range sortedKeys(ftc.Components) {
		comp := ftc.Components[name]
		gate := reliability.GateSpec{
			ID:       name,
			Type:     validGate(comp.Gate),
			Children: append([]string(nil), comp.Components...),
		}
		for _, skill := range comp.Skills {
			id := eventID(name, skill)
			gate.Children = append(gate.Children, id)
			spec.Events = append(spec.Events, reliability.EventSpec{ID: id, Skill: skill})

			if p, ok := probs[skill]; ok {
				spec.Probabilities[skill] = p
			} else {
				spec.Probabilities[skill] = g.cfg.baseline(skill)
				missing[skill] = append(missing[skill], name)
			}
		}
		spec.Gates = append(spec.Gates, gate)
	}

	for _, skill := range sortedKeys(missing) {
		warnings = append(warnings, reliability.Warning{
			Code: reliability.WarnMissingData,
			Message: fmt.Sprintf("skill %q referenced by %s was never observed; using baseline %g",
				skill, strings.Join(missing[skill], ", "), spec.Probabilities[skill]),
			Element: skill,
		})
	}

	for _, label := range observed {
		if _, ok := spec.Probabilities[label]; !ok {
			g.logger.Info("observed skill is not part of the fault tree", logging.Skill(label))
		}
	}

	tree, err := reliability.NewFaultTree(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return tree, warnings, nil
}

// componentRoots checks that components form a forest and returns the
// components no other component lists as a child, sorted
func componentRoots(components map[string]ComponentSpec) ([]string, error) {
	graph := algorithms.NewDigraph()
	for _, name := range sortedKeys(components) {
		graph.AddNode(name)
	}
	for _, name := range sortedKeys(components) {
		for _, child := range components[name].Components {
			if child == name {
				return nil, fmt.Errorf("%w: component %q lists itself", reliability.ErrInvalidConfig, name)
			}
			graph.AddEdge(name, child)
		}
	}

	if cycles := algorithms.DetectCycles(graph); len(cycles) > 0 {
		return nil, fmt.Errorf("%w: components form a cycle: %s",
			reliability.ErrInvalidConfig, strings.Join(cycles[0], " -> "))
	}

	indeg := graph.InDegrees()
	for _, name := range sortedKeys(indeg) {
		if indeg[name] > 1 {
			return nil, fmt.Errorf("%w: component %q has %d parents", reliability.ErrInvalidConfig, name, indeg[name])
		}
	}

	roots := algorithms.Roots(graph)
	sort.Strings(roots)
	return roots, nil
}

func validGate(g reliability.GateType) reliability.GateType {
	if g == "" {
		return reliability.GateOR
	}
	return g
}

func eventID(parent, skill string) string {
	return parent + "/" + skill
}
