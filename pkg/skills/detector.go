package skills

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// instanceNamespace seeds the name-based UUIDs given to detected instances
var instanceNamespace = uuid.MustParse("5b0f3a1e-6c44-4c1e-9d4a-2f6f1f0c7d21")

// LabelColumnDetector segments a signal wherever an integer label column
// changes value. Each run of equal codes becomes one skill instance.
type LabelColumnDetector struct {
	Column string
	// Names maps a code to a skill label. Unmapped codes become "skill_<code>".
	Names map[int]string
}

// Detect implements Detector. The last segment ends one sampling step
// after its final sample so that its window still covers that sample.
func (d LabelColumnDetector) Detect(ctx context.Context, sig Signal) ([]SkillInstance, error) {
	codes, err := sig.Column(d.Column)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}

	var out []SkillInstance
	start := 0
	for i := 1; i <= len(codes); i++ {
		if i < len(codes) && codes[i] == codes[start] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code := codes[start]
		if math.IsNaN(code) || code != math.Trunc(code) {
			return nil, fmt.Errorf("%w: label column %q holds non-integer code %v at row %d", ErrBadSignal, d.Column, code, start)
		}

		end := d.segmentEnd(sig.Time, i)
		label := d.label(int(code))
		out = append(out, SkillInstance{
			ID:    instanceID(label, len(out), sig.Time[start]),
			Label: label,
			Start: sig.Time[start],
			End:   end,
		})
		start = i
	}
	return out, nil
}

func (d LabelColumnDetector) segmentEnd(times []float64, next int) float64 {
	if next < len(times) {
		return times[next]
	}
	last := times[len(times)-1]
	if len(times) > 1 {
		return last + (last - times[len(times)-2])
	}
	return last
}

func (d LabelColumnDetector) label(code int) string {
	if name, ok := d.Names[code]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("skill_%d", code)
}

func instanceID(label string, index int, start float64) string {
	return uuid.NewSHA1(instanceNamespace, []byte(fmt.Sprintf("%s/%d/%g", label, index, start))).String()
}
