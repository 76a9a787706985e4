// Package skills holds the skill-level view of a recorded run: the
// detected skill instances, the signal they were cut from, and the
// pluggable detector and analyzer that produce them.
package skills

import (
	"context"
	"errors"
)

// SkillInstance is one detected execution of a skill. Instances are
// values; nothing in the pipeline mutates one after it is built.
type SkillInstance struct {
	ID    string  `json:"id" yaml:"id" validate:"required"`
	Label string  `json:"label" yaml:"label" validate:"required"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end" validate:"gtefield=Start"`
	// Risk is the behavioural risk score in [0,1]
	Risk     float64            `json:"risk" yaml:"risk" validate:"gte=0,lte=1"`
	Features map[string]float64 `json:"features,omitempty" yaml:"features,omitempty"`
}

// Duration returns End - Start
func (s SkillInstance) Duration() float64 {
	return s.End - s.Start
}

// Detector segments a signal into an ordered skill sequence. Returned
// instances carry no risk yet.
type Detector interface {
	Detect(ctx context.Context, sig Signal) ([]SkillInstance, error)
}

// Analyzer scores the behaviour inside one skill window
type Analyzer interface {
	Score(ctx context.Context, w Window) (Risk, error)
}

// Risk is an analyzer result. Features are the properties the score was
// derived from and are kept for traceability only.
type Risk struct {
	Value    float64
	Features map[string]float64
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(ctx context.Context, sig Signal) ([]SkillInstance, error)

func (f DetectorFunc) Detect(ctx context.Context, sig Signal) ([]SkillInstance, error) {
	return f(ctx, sig)
}

// AnalyzerFunc adapts a function to Analyzer
type AnalyzerFunc func(ctx context.Context, w Window) (Risk, error)

func (f AnalyzerFunc) Score(ctx context.Context, w Window) (Risk, error) {
	return f(ctx, w)
}

var (
	ErrUnknownColumn = errors.New("unknown signal column")
	ErrEmptyWindow   = errors.New("skill window has no samples")
	ErrBadSignal     = errors.New("malformed signal")
)
