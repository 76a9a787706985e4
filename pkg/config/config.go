// Package config loads the YAML configuration file shared by the dra
// commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-dra/pkg/archive"
	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/generator"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/solver"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// Environment variables that override file values
const (
	EnvLogLevel    = "LOG_LEVEL"
	EnvS3Bucket    = "DRA_S3_BUCKET"
	EnvS3Prefix    = "DRA_S3_PREFIX"
	EnvS3Region    = "DRA_S3_REGION"
	EnvDatabaseURL = "DRA_DATABASE_URL"
)

// LoggingConfig controls the process logger
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Config is the whole configuration file
type Config struct {
	Generator generator.Config `yaml:"generator"`
	// FaultTree is a top-level shortcut for generator.fault_tree
	FaultTree  *generator.FaultTreeConfig `yaml:"fault_tree"`
	Solver     solver.Config              `yaml:"solver"`
	Assessment assessment.Options         `yaml:"assessment"`
	Archive    archive.Config             `yaml:"archive"`
	Logging    LoggingConfig              `yaml:"logging"`
}

// Default returns a configuration with every section at its defaults
func Default() Config {
	return Config{
		Generator:  generator.DefaultConfig(),
		Solver:     solver.DefaultConfig(),
		Assessment: assessment.DefaultOptions(),
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path. An empty path yields the defaults. Environment
// overrides are applied before validation.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		cfg.ApplyEnv(os.LookupEnv)
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document and fills defaults. Unknown keys are
// rejected. It does not validate.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", reliability.ErrInvalidConfig, err)
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults fills zero values in every section
func (c Config) WithDefaults() Config {
	if c.FaultTree != nil {
		c.Generator.FaultTree = *c.FaultTree
		c.FaultTree = nil
	}
	c.Generator = c.Generator.WithDefaults()
	c.Solver = c.Solver.WithDefaults()
	c.Assessment = c.Assessment.WithDefaults()
	c.Logging.Level = validation.DefaultOr(c.Logging.Level, "info")
	return c
}

// ApplyEnv overrides values from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvS3Bucket); ok && v != "" {
		c.Archive.S3.Bucket = v
	}
	if v, ok := lookup(EnvS3Prefix); ok && v != "" {
		c.Archive.S3.Prefix = v
	}
	if v, ok := lookup(EnvS3Region); ok && v != "" {
		c.Archive.S3.Region = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		c.Archive.PostgresURL = v
	}
}

// Validate checks every section and reports all problems together
func (c Config) Validate() error {
	var errs []error
	if err := c.Generator.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Solver.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Assessment.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Archive.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := validation.Struct(c.Logging); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging: %w", reliability.ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}
