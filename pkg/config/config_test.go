package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/generator"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/solver"
)

const sampleYAML = `
generator:
  aggregation: max
  baseline: 0.02
  baselines:
    regrasp: 0.3
  repeat_factors:
    grasp: 0.9
    SUCCESS: 0.1
  skill_components:
    grasp:
      components: [gripper]
      redundant:
        vision: [camera_left, camera_right]
  component_failure:
    gripper: 0.01
    camera_left: 0.1
fault_tree:
  root_gate: OR
  components:
    gripper:
      gate: OR
      skills: [grasp, regrasp]
    joints:
      gate: AND
      skills: [move, place]
solver:
  strategy: iterative
  tolerance: 1e-10
  workers: 2
assessment:
  models: markov
  timeout: 30s
archive:
  dir: out/assessments
  s3:
    bucket: dra-reports
    prefix: robots/cell-7
logging:
  level: debug
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, generator.AggregateMax, cfg.Generator.Aggregation)
	assert.Equal(t, 0.3, cfg.Generator.Baselines["regrasp"])
	assert.Equal(t, generator.DefaultPercentile, cfg.Generator.Percentile)
	assert.Equal(t, reliability.StateSuccess, cfg.Generator.AbsorbingDefault)
	require.Contains(t, cfg.Generator.FaultTree.Components, "joints")
	assert.Equal(t, reliability.GateAND, cfg.Generator.FaultTree.Components["joints"].Gate)
	assert.Nil(t, cfg.FaultTree)
	assert.Equal(t, 0.1, cfg.Generator.RepeatFactors[reliability.StateSuccess])
	require.Contains(t, cfg.Generator.SkillComponents, "grasp")
	grasp := cfg.Generator.SkillComponents["grasp"]
	assert.Equal(t, []string{"gripper"}, grasp.Components)
	assert.Equal(t, []string{"camera_left", "camera_right"}, grasp.Redundant["vision"])
	assert.Equal(t, 0.01, cfg.Generator.ComponentFailure["gripper"])

	assert.Equal(t, solver.StrategyIterative, cfg.Solver.Strategy)
	assert.Equal(t, 1e-10, cfg.Solver.Tolerance)
	assert.Equal(t, solver.DefaultMaxIterations, cfg.Solver.MaxIterations)
	assert.Equal(t, 2, cfg.Solver.Workers)

	assert.Equal(t, assessment.ModelsMarkov, cfg.Assessment.Models)
	assert.Equal(t, 30*time.Second, cfg.Assessment.Timeout)

	assert.Equal(t, "dra-reports", cfg.Archive.S3.Bucket)
	assert.Equal(t, logging.DebugLevel, cfg.Level())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, solver.StrategyAuto, cfg.Solver.Strategy)
	assert.Equal(t, assessment.ModelsAll, cfg.Assessment.Models)
	assert.Equal(t, logging.InfoLevel, cfg.Level())
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("solver:\n  tolerence: 1e-9\n"))
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)
}

func TestValidate_ReportsEverySection(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
generator:
  aggregation: median
solver:
  strategy: newton
assessment:
  models: petri
logging:
  level: loud
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, reliability.ErrInvalidConfig)
	for _, field := range []string{"aggregation", "strategy", "models", "Level"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:    "warn",
		EnvS3Bucket:    "from-env",
		EnvDatabaseURL: "postgres://localhost/dra",
		EnvS3Prefix:    "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.Archive.S3.Prefix = "keep"
	cfg.ApplyEnv(lookup)

	assert.Equal(t, logging.WarnLevel, cfg.Level())
	assert.Equal(t, "from-env", cfg.Archive.S3.Bucket)
	assert.Equal(t, "keep", cfg.Archive.S3.Prefix)
	assert.Equal(t, "postgres://localhost/dra", cfg.Archive.PostgresURL)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, generator.AggregateMax, cfg.Generator.Aggregation)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("solver:\n  workers: -3\n"), 0644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)
}
