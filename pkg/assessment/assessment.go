// Package assessment runs the full pipeline for one skill sequence:
// model generation followed by a solve of each selected model.
package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// Models selects which formalisms a run solves
type Models string

const (
	ModelsMarkov    Models = "markov"
	ModelsFaultTree Models = "fault-tree"
	ModelsBoth      Models = "both"
	ModelsHybrid    Models = "hybrid"
	// ModelsAll solves both models plus the hybrid model when skill
	// components are configured
	ModelsAll Models = "all"
)

func (m Models) markov() bool    { return m == ModelsMarkov || m == ModelsBoth || m == ModelsAll }
func (m Models) faultTree() bool { return m == ModelsFaultTree || m == ModelsBoth || m == ModelsAll }
func (m Models) hybrid() bool    { return m == ModelsHybrid || m == ModelsAll }

// Options controls one run
type Options struct {
	Models Models `yaml:"models" json:"models"`
	// Timeout bounds all solves of the run together. Zero means no deadline.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Source names where the sequence came from; it is copied into the result
	Source string `yaml:"-" json:"-"`
}

// DefaultOptions solves every available model without a deadline
func DefaultOptions() Options {
	return Options{Models: ModelsAll}
}

// WithDefaults fills zero fields with defaults
func (o Options) WithDefaults() Options {
	o.Models = validation.DefaultOr(o.Models, ModelsAll)
	return o
}

// Validate checks the options; the result wraps reliability.ErrInvalidConfig
func (o Options) Validate() error {
	err := validation.NewConfigValidator("assessment").
		OneOf("models", string(o.Models), string(ModelsMarkov), string(ModelsFaultTree), string(ModelsBoth),
			string(ModelsHybrid), string(ModelsAll)).
		NonNegativeDuration("timeout", o.Timeout).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return nil
}

// Assessment is the outcome of one run. Reports of models that were not
// selected are nil.
type Assessment struct {
	RunID       uuid.UUID `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source,omitempty"`
	Instances   int       `json:"instances"`
	Skills      []string  `json:"skills"`

	Markov    *reliability.Report   `json:"markov,omitempty"`
	FaultTree *reliability.Report   `json:"fault_tree,omitempty"`
	Hybrid    *reliability.Report   `json:"hybrid,omitempty"`
	Warnings  []reliability.Warning `json:"warnings"`
}

// Reports returns the non-nil reports: Markov, fault tree, hybrid
func (a *Assessment) Reports() []*reliability.Report {
	var out []*reliability.Report
	for _, r := range []*reliability.Report{a.Markov, a.FaultTree, a.Hybrid} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Key is the archive object name of the assessment
func (a *Assessment) Key() string {
	return a.RunID.String() + ".json"
}
