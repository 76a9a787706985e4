package skills

import (
	"context"
	"fmt"
)

// Level is a coarse magnitude class
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelOutOfRange
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "out_of_range"
	}
}

// Thresholds splits a magnitude into low/medium/high. Values above Max
// are out of range.
type Thresholds struct {
	Medium float64
	High   float64
	Max    float64
}

// Classify returns the class of |v|
func (t Thresholds) Classify(v float64) Level {
	switch {
	case v != v || v < 0 || v > t.Max:
		return LevelOutOfRange
	case v < t.Medium:
		return LevelLow
	case v < t.High:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Default joint thresholds for a 7-DoF arm (rad/s and Nm)
var (
	DefaultVelocityThresholds = Thresholds{Medium: 0.3, High: 0.7, Max: 2.01}
	DefaultTorqueThresholds   = Thresholds{Medium: 10, High: 30, Max: 50.1}
)

// riskFactors rates every (velocity, torque) class pair; MaxRiskFactor is
// the worst
var riskFactors = map[[2]Level]float64{
	{LevelLow, LevelLow}:       1,
	{LevelMedium, LevelLow}:    4,
	{LevelHigh, LevelLow}:      8,
	{LevelLow, LevelMedium}:    5,
	{LevelLow, LevelHigh}:      10,
	{LevelMedium, LevelMedium}: 9,
	{LevelHigh, LevelMedium}:   13,
	{LevelMedium, LevelHigh}:   14,
	{LevelHigh, LevelHigh}:     18,
}

// MaxRiskFactor normalizes risk factors to [0,1]
const MaxRiskFactor = 18.0

// RiskFactor returns the factor of a class pair, and false when either
// class is out of range
func RiskFactor(velocity, torque Level) (float64, bool) {
	f, ok := riskFactors[[2]Level{velocity, torque}]
	return f, ok
}

// KinematicAnalyzer scores a window from its peak joint velocity and
// torque. A dimension with no configured columns counts as low.
type KinematicAnalyzer struct {
	VelocityColumns []string
	TorqueColumns   []string
	Velocity        Thresholds
	Torque          Thresholds
}

// NewKinematicAnalyzer uses the default thresholds
func NewKinematicAnalyzer(velocityColumns, torqueColumns []string) KinematicAnalyzer {
	return KinematicAnalyzer{
		VelocityColumns: velocityColumns,
		TorqueColumns:   torqueColumns,
		Velocity:        DefaultVelocityThresholds,
		Torque:          DefaultTorqueThresholds,
	}
}

// Score implements Analyzer. Out-of-range magnitudes score 1.
func (a KinematicAnalyzer) Score(_ context.Context, w Window) (Risk, error) {
	if w.Signal.Len() == 0 {
		return Risk{}, fmt.Errorf("%w: %s", ErrEmptyWindow, w.Instance.ID)
	}

	vmax, hasV, err := w.Signal.MaxAbs(a.VelocityColumns)
	if err != nil {
		return Risk{}, err
	}
	tmax, hasT, err := w.Signal.MaxAbs(a.TorqueColumns)
	if err != nil {
		return Risk{}, err
	}

	features := make(map[string]float64, 3)
	vl, tl := LevelLow, LevelLow
	if hasV {
		features["velocity_max"] = vmax
		vl = a.Velocity.Classify(vmax)
	}
	if hasT {
		features["torque_max"] = tmax
		tl = a.Torque.Classify(tmax)
	}

	factor, ok := RiskFactor(vl, tl)
	if !ok {
		factor = MaxRiskFactor
	}
	features["risk_factor"] = factor
	return Risk{Value: factor / MaxRiskFactor, Features: features}, nil
}
