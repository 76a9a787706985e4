package generator

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// Aggregation turns the risk scores of a label's instances into one local
// failure probability
type Aggregation string

const (
	AggregateMean       Aggregation = "mean"
	AggregateMax        Aggregation = "max"
	AggregatePercentile Aggregation = "percentile"
)

// ComponentSpec is one fault tree component: a gate over skills and over
// nested components
type ComponentSpec struct {
	Gate       reliability.GateType `yaml:"gate" json:"gate"`
	Skills     []string             `yaml:"skills" json:"skills,omitempty"`
	Components []string             `yaml:"components" json:"components,omitempty"`
}

// FaultTreeConfig describes the fault tree topology. Components not listed
// as a child of another component hang directly under the root gate. An
// empty Components map yields an OR gate over every observed skill.
type FaultTreeConfig struct {
	RootGate   reliability.GateType     `yaml:"root_gate" json:"root_gate"`
	Components map[string]ComponentSpec `yaml:"components" json:"components,omitempty"`
}

// SkillComponents lists the robot components a skill depends on. Members of
// a Redundant group only fail the skill together.
type SkillComponents struct {
	Components []string            `yaml:"components" json:"components,omitempty"`
	Redundant  map[string][]string `yaml:"redundant" json:"redundant,omitempty"`
}

// Config controls model generation. It is a plain value; Generate never
// modifies it.
type Config struct {
	Aggregation Aggregation `yaml:"aggregation" json:"aggregation"`
	// Percentile is used by AggregatePercentile and lies in (0,1]
	Percentile float64 `yaml:"percentile" json:"percentile"`
	// Baseline is the failure probability of a skill with no observations
	Baseline  float64            `yaml:"baseline" json:"baseline"`
	Baselines map[string]float64 `yaml:"baselines" json:"baselines,omitempty"`
	// AbsorbingDefault is where the run goes after its last instance:
	// SUCCESS or FAILURE
	AbsorbingDefault string          `yaml:"absorbing_default" json:"absorbing_default"`
	FaultTree        FaultTreeConfig `yaml:"fault_tree" json:"fault_tree"`
	// RepeatFactors scales the observed weight of transitions into a state
	// (a skill or an absorbing state). Missing entries are 1.
	RepeatFactors map[string]float64 `yaml:"repeat_factors" json:"repeat_factors,omitempty"`
	// SkillComponents gives skills a component fault tree; a non-empty map
	// also builds the hybrid model
	SkillComponents map[string]SkillComponents `yaml:"skill_components" json:"skill_components,omitempty"`
	// ComponentFailure is the failure probability of each robot component.
	// Unlisted components take the baseline.
	ComponentFailure map[string]float64 `yaml:"component_failure" json:"component_failure,omitempty"`
}

// Defaults
const (
	DefaultAggregation = AggregateMean
	DefaultPercentile  = 0.95
)

// DefaultConfig returns the generator defaults
func DefaultConfig() Config {
	return Config{
		Aggregation:      DefaultAggregation,
		Percentile:       DefaultPercentile,
		AbsorbingDefault: reliability.StateSuccess,
		FaultTree:        FaultTreeConfig{RootGate: reliability.GateOR},
	}
}

// WithDefaults fills zero fields with defaults
func (c Config) WithDefaults() Config {
	c.Aggregation = validation.DefaultOr(c.Aggregation, DefaultAggregation)
	c.Percentile = validation.DefaultOr(c.Percentile, DefaultPercentile)
	c.AbsorbingDefault = validation.DefaultOr(c.AbsorbingDefault, reliability.StateSuccess)
	c.FaultTree.RootGate = validation.DefaultOr(c.FaultTree.RootGate, reliability.GateOR)
	return c
}

// Validate checks the configuration. Every violation is reported; the
// result wraps reliability.ErrInvalidConfig.
func (c Config) Validate() error {
	cv := validation.NewConfigValidator("generator").
		OneOf("aggregation", string(c.Aggregation), string(AggregateMean), string(AggregateMax), string(AggregatePercentile)).
		When(c.Aggregation == AggregatePercentile, func(cv *validation.ConfigValidator) {
			cv.OpenUnit("percentile", c.Percentile)
		}).
		Probability("baseline", c.Baseline).
		OneOf("absorbing_default", c.AbsorbingDefault, reliability.StateSuccess, reliability.StateFailure).
		OneOf("fault_tree.root_gate", string(c.FaultTree.RootGate), string(reliability.GateAND), string(reliability.GateOR))

	for _, label := range sortedKeys(c.Baselines) {
		cv.Probability("baselines."+label, c.Baselines[label])
	}

	for _, name := range sortedKeys(c.FaultTree.Components) {
		spec := c.FaultTree.Components[name]
		field := "fault_tree.components." + name
		cv.Label(field, name)
		if name == reliability.RootEvent {
			cv.Custom(field, func() error { return fmt.Errorf("name %q is reserved for the top event", name) })
		}
		if spec.Gate != "" && !spec.Gate.Valid() {
			cv.Custom(field+".gate", func() error { return fmt.Errorf("unsupported gate %q", spec.Gate) })
		}
		if len(spec.Skills)+len(spec.Components) == 0 {
			cv.Custom(field, func() error { return fmt.Errorf("component has no skills and no child components") })
		}
		for _, s := range spec.Skills {
			cv.Required(field+".skills", s)
		}
		for _, child := range spec.Components {
			if _, ok := c.FaultTree.Components[child]; !ok {
				cv.Custom(field+".components", func() error { return fmt.Errorf("unknown component %q", child) })
			}
		}
	}

	for _, label := range sortedKeys(c.RepeatFactors) {
		cv.Label("repeat_factors", label)
		cv.NonNegativeFloat("repeat_factors."+label, c.RepeatFactors[label])
	}

	for _, name := range sortedKeys(c.ComponentFailure) {
		cv.Label("component_failure", name)
		cv.Probability("component_failure."+name, c.ComponentFailure[name])
	}

	for _, skill := range sortedKeys(c.SkillComponents) {
		c.validateSkillComponents(cv, skill)
	}

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) validateSkillComponents(cv *validation.ConfigValidator, skill string) {
	sc := c.SkillComponents[skill]
	field := "skill_components." + skill
	cv.Label("skill_components", skill)
	if len(sc.Components)+len(sc.Redundant) == 0 {
		cv.Custom(field, func() error { return fmt.Errorf("skill lists no components") })
	}

	seen := make(map[string]string)
	claim := func(name, where string) {
		cv.Label(field+"."+where, name)
		if name == skill {
			cv.Custom(field, func() error { return fmt.Errorf("component %q shares the skill's name", name) })
		}
		if prev, dup := seen[name]; dup {
			cv.Custom(field, func() error { return fmt.Errorf("component %q listed in %s and %s", name, prev, where) })
			return
		}
		seen[name] = where
	}

	for _, name := range sc.Components {
		claim(name, "components")
	}
	for _, group := range sortedKeys(sc.Redundant) {
		cv.Label(field+".redundant", group)
		members := sc.Redundant[group]
		if len(members) == 0 {
			cv.Custom(field+".redundant."+group, func() error { return fmt.Errorf("redundancy group has no members") })
		}
		for _, name := range members {
			claim(name, "redundant."+group)
		}
	}
}

// repeatFactor returns the weight scale of transitions into to
func (c Config) repeatFactor(to string) float64 {
	if f, ok := c.RepeatFactors[to]; ok {
		return f
	}
	return 1
}

// componentFailure returns the failure probability of a robot component
// and whether it was configured
func (c Config) componentFailure(name string) (float64, bool) {
	if p, ok := c.ComponentFailure[name]; ok {
		return p, true
	}
	return c.Baseline, false
}

// baseline returns the failure probability assumed for an unobserved skill
func (c Config) baseline(label string) float64 {
	if p, ok := c.Baselines[label]; ok {
		return p
	}
	return c.Baseline
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
