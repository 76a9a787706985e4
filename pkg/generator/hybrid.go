package generator

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// buildHybrid gives every configured, observed skill an OR tree over its
// behavioral risk and its components, and composes the trees with chain.
// It returns nil when no skill components are configured.
func (g *Generator) buildHybrid(chain *reliability.MarkovModel, probs map[string]float64) (*reliability.HybridModel, []reliability.Warning, error) {
	if len(g.cfg.SkillComponents) == 0 {
		return nil, nil, nil
	}

	var warnings []reliability.Warning
	unconfigured := make(map[string][]string)
	trees := make(map[string]*reliability.FaultTree)

	for _, skill := range sortedKeys(g.cfg.SkillComponents) {
		p, observed := probs[skill]
		if !observed {
			warnings = append(warnings, reliability.Warning{
				Code:    reliability.WarnMissingData,
				Message: fmt.Sprintf("skill %q has components but was never observed; no tree built", skill),
				Element: skill,
			})
			continue
		}

		sc := g.cfg.SkillComponents[skill]
		for _, name := range componentNames(sc) {
			if _, clash := probs[name]; clash {
				return nil, nil, fmt.Errorf("%w: component %q of skill %q is also an observed skill",
					reliability.ErrInvalidConfig, name, skill)
			}
			if _, ok := g.cfg.componentFailure(name); !ok {
				unconfigured[name] = append(unconfigured[name], skill)
			}
		}

		tree, err := g.skillTree(skill, p, sc)
		if err != nil {
			return nil, nil, err
		}
		trees[skill] = tree
	}

	for _, name := range sortedKeys(unconfigured) {
		warnings = append(warnings, reliability.Warning{
			Code: reliability.WarnMissingData,
			Message: fmt.Sprintf("component %q used by %s has no failure probability; using baseline %g",
				name, strings.Join(unconfigured[name], ", "), g.cfg.Baseline),
			Element: name,
		})
	}

	h, err := reliability.NewHybridModel(reliability.HybridSpec{Chain: chain, Trees: trees})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return h, warnings, nil
}

// skillTree lays out one skill's tree: the top event "<skill>_failure" is
// an OR over the behavior event, each single component and one AND gate
// "loss_of_<group>" per redundancy group
func (g *Generator) skillTree(skill string, behavior float64, sc SkillComponents) (*reliability.FaultTree, error) {
	root := skill + "_failure"
	spec := reliability.FaultTreeSpec{
		Name:          root,
		Root:          root,
		Probabilities: map[string]float64{skill: behavior},
	}

	top := reliability.GateSpec{ID: root, Type: reliability.GateOR}
	event := func(parent *reliability.GateSpec, id, param string) {
		parent.Children = append(parent.Children, id)
		spec.Events = append(spec.Events, reliability.EventSpec{ID: id, Skill: param})
		if param != skill {
			spec.Probabilities[param], _ = g.cfg.componentFailure(param)
		}
	}

	event(&top, eventID(skill, skill), skill)
	for _, name := range sc.Components {
		event(&top, eventID(skill, name), name)
	}
	for _, group := range sortedKeys(sc.Redundant) {
		loss := reliability.GateSpec{ID: eventID(skill, "loss_of_"+group), Type: reliability.GateAND}
		for _, name := range sc.Redundant[group] {
			event(&loss, eventID(loss.ID, name), name)
		}
		top.Children = append(top.Children, loss.ID)
		spec.Gates = append(spec.Gates, loss)
	}
	spec.Gates = append([]reliability.GateSpec{top}, spec.Gates...)

	tree, err := reliability.NewFaultTree(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: skill %q: %w", reliability.ErrInvalidConfig, skill, err)
	}
	return tree, nil
}

// componentNames returns every component of sc, single ones first
func componentNames(sc SkillComponents) []string {
	names := append([]string(nil), sc.Components...)
	for _, group := range sortedKeys(sc.Redundant) {
		names = append(names, sc.Redundant[group]...)
	}
	return names
}
