package solver

import (
	"fmt"
	"runtime"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// Strategy names accepted by Config.Strategy
const (
	StrategyDirect    = "direct"
	StrategyIterative = "iterative"
	StrategyAuto      = "auto"
)

// Defaults
const (
	DefaultTolerance        = 1e-9
	DefaultMaxIterations    = 100000
	DefaultDirectThreshold  = 200
	DefaultSensitivityDelta = 0.01
	DefaultRangeTolerance   = 1e-9
)

// Config controls a Solver. It is a plain value.
type Config struct {
	// Strategy selects how absorption is computed: direct, iterative or auto
	Strategy string `yaml:"strategy" json:"strategy"`
	// Tolerance is the fixed-point stopping threshold: the largest change of
	// any absorption probability between two iterates. Expected steps are
	// settled afterwards to the same relative precision and are omitted
	// when MaxIterations further sweeps do not get there.
	Tolerance     float64 `yaml:"tolerance" json:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"`
	// DirectThreshold is the largest transient state count auto solves
	// directly
	DirectThreshold int `yaml:"direct_threshold" json:"direct_threshold"`
	// SensitivityDelta is the half-width of the finite-difference stencil
	SensitivityDelta float64 `yaml:"sensitivity_delta" json:"sensitivity_delta"`
	// Workers bounds sensitivity parallelism. Zero means GOMAXPROCS.
	Workers            int     `yaml:"workers" json:"workers"`
	RangeTolerance     float64 `yaml:"range_tolerance" json:"range_tolerance"`
	DisableSensitivity bool    `yaml:"disable_sensitivity" json:"disable_sensitivity"`
}

// DefaultConfig returns the solver defaults
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyAuto,
		Tolerance:        DefaultTolerance,
		MaxIterations:    DefaultMaxIterations,
		DirectThreshold:  DefaultDirectThreshold,
		SensitivityDelta: DefaultSensitivityDelta,
		Workers:          runtime.GOMAXPROCS(0),
		RangeTolerance:   DefaultRangeTolerance,
	}
}

// WithDefaults fills zero fields with defaults
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	c.Strategy = validation.DefaultOr(c.Strategy, d.Strategy)
	c.Tolerance = validation.DefaultOr(c.Tolerance, d.Tolerance)
	c.MaxIterations = validation.DefaultOr(c.MaxIterations, d.MaxIterations)
	c.DirectThreshold = validation.DefaultOr(c.DirectThreshold, d.DirectThreshold)
	c.SensitivityDelta = validation.DefaultOr(c.SensitivityDelta, d.SensitivityDelta)
	c.Workers = validation.DefaultOr(c.Workers, d.Workers)
	c.RangeTolerance = validation.DefaultOr(c.RangeTolerance, d.RangeTolerance)
	return c
}

// Validate checks the configuration; the result wraps
// reliability.ErrInvalidConfig
func (c Config) Validate() error {
	err := validation.NewConfigValidator("solver").
		OneOf("strategy", c.Strategy, StrategyDirect, StrategyIterative, StrategyAuto).
		PositiveFloat("tolerance", c.Tolerance).
		Positive("max_iterations", c.MaxIterations).
		NonNegative("direct_threshold", c.DirectThreshold).
		OpenUnit("sensitivity_delta", c.SensitivityDelta).
		Positive("workers", c.Workers).
		PositiveFloat("range_tolerance", c.RangeTolerance).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return nil
}
