package reliability

import (
	"errors"
	"testing"
)

func twoSkillChain(t *testing.T) *MarkovModel {
	t.Helper()
	m, err := NewMarkovModel(MarkovSpec{States: []StateSpec{
		{Label: "grasp", FailureProbability: 0.1, Successors: map[string]float64{"place": 1}},
		{Label: "place", FailureProbability: 0.2},
	}})
	if err != nil {
		t.Fatalf("NewMarkovModel failed: %v", err)
	}
	return m
}

// componentTree is an OR over a skill's behavior and one component
func componentTree(t *testing.T, skill, component string, behavior, p float64) *FaultTree {
	t.Helper()
	ft, err := NewFaultTree(FaultTreeSpec{
		Root:  skill + "_failure",
		Gates: []GateSpec{{ID: skill + "_failure", Type: GateOR, Children: []string{skill + "/" + skill, skill + "/" + component}}},
		Events: []EventSpec{
			{ID: skill + "/" + skill, Skill: skill},
			{ID: skill + "/" + component, Skill: component},
		},
		Probabilities: map[string]float64{skill: behavior, component: p},
	})
	if err != nil {
		t.Fatalf("NewFaultTree failed: %v", err)
	}
	return ft
}

func TestNewHybridModel(t *testing.T) {
	h, err := NewHybridModel(HybridSpec{
		Name:  "cell",
		Chain: twoSkillChain(t),
		Trees: map[string]*FaultTree{"grasp": componentTree(t, "grasp", "gripper", 0.1, 0.01)},
	})
	if err != nil {
		t.Fatalf("NewHybridModel failed: %v", err)
	}

	if h.Kind() != KindHybrid || h.Name() != "cell" {
		t.Errorf("unexpected identity %s %s", h.Kind(), h.Name())
	}
	want := []string{"grasp", "gripper", "place"}
	got := h.Skills()
	if len(got) != len(want) {
		t.Fatalf("Expected parameters %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parameter %d = %s, want %s", i, got[i], want[i])
		}
	}

	for label, want := range map[string]float64{"grasp": 0.1, "gripper": 0.01, "place": 0.2} {
		if p, ok := h.SkillProbability(label); !ok || p != want {
			t.Errorf("%s = %v (%v), want %v", label, p, ok, want)
		}
	}
	if _, ok := h.SkillProbability("move"); ok {
		t.Error("move is not a parameter")
	}
}

func TestHybridModel_WithSkillProbability(t *testing.T) {
	h, err := NewHybridModel(HybridSpec{
		Chain: twoSkillChain(t),
		Trees: map[string]*FaultTree{
			"grasp": componentTree(t, "grasp", "gripper", 0.1, 0.01),
			"place": componentTree(t, "place", "gripper", 0.2, 0.01),
		},
	})
	if err != nil {
		t.Fatalf("NewHybridModel failed: %v", err)
	}

	changed, err := h.WithSkillProbability("gripper", 0.5)
	if err != nil {
		t.Fatalf("WithSkillProbability failed: %v", err)
	}
	c := changed.(*HybridModel)
	for _, skill := range []string{"grasp", "place"} {
		tree, _ := c.Tree(skill)
		if p, _ := tree.SkillProbability("gripper"); p != 0.5 {
			t.Errorf("%s tree gripper = %v, want 0.5", skill, p)
		}
	}
	if p, _ := h.SkillProbability("gripper"); p != 0.01 {
		t.Errorf("original changed to %v", p)
	}

	if _, err := h.WithSkillProbability("move", 0.1); !errors.Is(err, ErrUnknownSkill) {
		t.Errorf("Expected ErrUnknownSkill, got %v", err)
	}
	if _, err := h.WithSkillProbability("gripper", 1.5); err == nil {
		t.Error("Expected an error for probability 1.5")
	}
}

func TestHybridModel_ChainStateWithoutTree(t *testing.T) {
	h, err := NewHybridModel(HybridSpec{
		Chain: twoSkillChain(t),
		Trees: map[string]*FaultTree{"grasp": componentTree(t, "grasp", "gripper", 0.1, 0.01)},
	})
	if err != nil {
		t.Fatalf("NewHybridModel failed: %v", err)
	}

	changed, err := h.WithSkillProbability("place", 0.3)
	if err != nil {
		t.Fatalf("WithSkillProbability failed: %v", err)
	}
	if p, _ := changed.(*HybridModel).Chain().SkillProbability("place"); p != 0.3 {
		t.Errorf("place = %v, want 0.3", p)
	}
}

func TestNewHybridModel_Invalid(t *testing.T) {
	chain := twoSkillChain(t)

	tests := []struct {
		name string
		spec HybridSpec
	}{
		{"no chain", HybridSpec{}},
		{"unknown skill", HybridSpec{Chain: chain, Trees: map[string]*FaultTree{
			"move": componentTree(t, "move", "wheels", 0.1, 0.01),
		}}},
		{"nil tree", HybridSpec{Chain: chain, Trees: map[string]*FaultTree{"grasp": nil}}},
		{"parameter is another skill", HybridSpec{Chain: chain, Trees: map[string]*FaultTree{
			"grasp": componentTree(t, "grasp", "place", 0.1, 0.01),
		}}},
		{"shared parameter disagrees", HybridSpec{Chain: chain, Trees: map[string]*FaultTree{
			"grasp": componentTree(t, "grasp", "gripper", 0.1, 0.01),
			"place": componentTree(t, "place", "gripper", 0.2, 0.02),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h, err := NewHybridModel(tt.spec); err == nil {
				t.Errorf("Expected an error, got %+v", h)
			}
		})
	}
}
