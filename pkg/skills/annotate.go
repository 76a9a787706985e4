package skills

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

// Annotate runs detection, scores every detected window, and returns the
// validated sequence. It stops at the first failure and returns no
// partial sequence.
func Annotate(ctx context.Context, sig Signal, det Detector, an Analyzer) ([]SkillInstance, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	detected, err := det.Detect(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("detect skills: %w", err)
	}

	out := make([]SkillInstance, len(detected))
	for i, inst := range detected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		risk, err := an.Score(ctx, Window{Instance: inst, Signal: sig.Window(inst.Start, inst.End)})
		if err != nil {
			return nil, fmt.Errorf("score %s (%s): %w", inst.ID, inst.Label, err)
		}
		if !reliability.ValidProbability(risk.Value) {
			return nil, &reliability.InvalidSequenceError{
				Index:  i,
				ID:     inst.ID,
				Reason: fmt.Sprintf("analyzer returned risk %v outside [0,1]", risk.Value),
			}
		}

		inst.Risk = risk.Value
		if len(risk.Features) > 0 {
			inst.Features = make(map[string]float64, len(risk.Features))
			for k, v := range risk.Features {
				inst.Features[k] = v
			}
		}
		out[i] = inst
	}

	if err := ValidateSequence(out); err != nil {
		return nil, err
	}
	return out, nil
}
