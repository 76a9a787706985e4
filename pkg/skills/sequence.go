package skills

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// ValidateSequence checks that seq is non-empty, that every instance is
// well formed, that IDs are unique, and that instances are time ordered
// without overlap. Touching intervals are allowed. The first violation is
// returned as a *reliability.InvalidSequenceError.
func ValidateSequence(seq []SkillInstance) error {
	if len(seq) == 0 {
		return &reliability.InvalidSequenceError{Index: 0, Reason: "sequence is empty"}
	}

	seen := make(map[string]int, len(seq))
	for i, inst := range seq {
		bad := func(format string, args ...any) error {
			return &reliability.InvalidSequenceError{Index: i, ID: inst.ID, Reason: fmt.Sprintf(format, args...)}
		}

		if math.IsNaN(inst.Start) || math.IsNaN(inst.End) || math.IsInf(inst.Start, 0) || math.IsInf(inst.End, 0) {
			return bad("interval [%v, %v] is not finite", inst.Start, inst.End)
		}
		if err := validation.Struct(inst); err != nil {
			return bad("%v", err)
		}
		if inst.Label == reliability.StateFailure || inst.Label == reliability.StateSuccess {
			return bad("label %q is reserved", inst.Label)
		}
		if prev, dup := seen[inst.ID]; dup {
			return bad("duplicate id, first used by instance %d", prev)
		}
		seen[inst.ID] = i

		if i == 0 {
			continue
		}
		prev := seq[i-1]
		if inst.Start < prev.Start {
			return bad("starts at %v, before the previous instance (%v)", inst.Start, prev.Start)
		}
		if inst.Start < prev.End {
			return bad("interval [%v, %v] overlaps previous [%v, %v]", inst.Start, inst.End, prev.Start, prev.End)
		}
	}
	return nil
}

// Labels returns the distinct labels of seq in first-appearance order
func Labels(seq []SkillInstance) []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range seq {
		if !seen[inst.Label] {
			seen[inst.Label] = true
			out = append(out, inst.Label)
		}
	}
	return out
}

type sequenceFile struct {
	Skills []SkillInstance `yaml:"skills"`
}

// ReadSequence decodes a skill sequence from YAML or JSON. The document
// is either a list of instances or a mapping with a "skills" list.
func ReadSequence(r io.Reader) ([]SkillInstance, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &reliability.InvalidSequenceError{Index: 0, Reason: "sequence is empty"}
		}
		return nil, fmt.Errorf("decode skill sequence: %w", err)
	}

	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var seq []SkillInstance
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&seq); err != nil {
			return nil, fmt.Errorf("decode skill sequence: %w", err)
		}
	case yaml.MappingNode:
		var f sequenceFile
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode skill sequence: %w", err)
		}
		seq = f.Skills
	default:
		return nil, fmt.Errorf("decode skill sequence: expected a list or a mapping, got %s", kindName(node.Kind))
	}

	if err := ValidateSequence(seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// WriteSequence encodes seq as YAML under a "skills" key
func WriteSequence(w io.Writer, seq []SkillInstance) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sequenceFile{Skills: seq}); err != nil {
		return fmt.Errorf("encode skill sequence: %w", err)
	}
	return enc.Close()
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty document"
	}
}
