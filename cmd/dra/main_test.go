package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-dra/pkg/archive"
)

const pickAndPlaceYAML = `
skills:
  - {id: s0, label: grasp, start: 0, end: 1, risk: 0.1}
  - {id: s1, label: move, start: 1, end: 2, risk: 0.05}
  - {id: s2, label: place, start: 2, end: 3, risk: 0.2}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		skillsPath: writeFile(t, dir, "seq.yaml", pickAndPlaceYAML),
		outPath:    filepath.Join(dir, "out", "assessment.json"),
		archiveDir: filepath.Join(dir, "archive"),
		metrics:    true,
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), opts, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	a, err := archive.ReadFile(opts.outPath)
	require.NoError(t, err)
	require.NotNil(t, a.Markov)
	require.NotNil(t, a.FaultTree)
	assert.InDelta(t, 0.316, a.Markov.Overall, 1e-9)
	assert.Equal(t, "place", a.FaultTree.Sensitivity[0].Component)

	_, err = os.Stat(filepath.Join(opts.archiveDir, a.Key()))
	assert.NoError(t, err)

	assert.Contains(t, stdout.String(), "Dynamic Reliability Assessment")
	assert.Contains(t, stdout.String(), "dra_assessments_total")
}

func TestRun_ModelFlag(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		skillsPath: writeFile(t, dir, "seq.yaml", pickAndPlaceYAML),
		outPath:    filepath.Join(dir, "a.json"),
		models:     "fault-tree",
		quiet:      true,
	}

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), opts, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	a, err := archive.ReadFile(opts.outPath)
	require.NoError(t, err)
	assert.Nil(t, a.Markov)
	assert.NotNil(t, a.FaultTree)
}

func TestRun_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	overlapping := writeFile(t, dir, "bad.yaml", `
- {id: a, label: grasp, start: 0, end: 2, risk: 0.1}
- {id: b, label: move, start: 1, end: 3, risk: 0.1}
`)
	good := writeFile(t, dir, "seq.yaml", pickAndPlaceYAML)

	tests := []struct {
		name string
		opts options
	}{
		{"no skills", options{}},
		{"missing file", options{skillsPath: filepath.Join(dir, "nope.yaml")}},
		{"overlapping instances", options{skillsPath: overlapping}},
		{"bad model", options{skillsPath: good, models: "petri"}},
		{"missing config", options{skillsPath: good, configPath: filepath.Join(dir, "nope.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitUsage, run(context.Background(), tt.opts, &stdout, &stderr))
		})
	}
}

const abab = `
- {id: "1", label: a, start: 0, end: 1, risk: 0.01}
- {id: "2", label: b, start: 1, end: 2, risk: 0.01}
- {id: "3", label: a, start: 2, end: 3, risk: 0.01}
- {id: "4", label: b, start: 3, end: 4, risk: 0.01}
`

func TestRun_NonConvergence(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		configPath: writeFile(t, dir, "dra.yaml", `
solver:
  strategy: iterative
  max_iterations: 2
  tolerance: 1e-15
`),
		skillsPath: writeFile(t, dir, "loop.yaml", abab),
		models:     "markov",
	}

	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitFailure, run(context.Background(), opts, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "stopped after 2 iterations")
}

func TestRun_RepeatedSkills(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		skillsPath: writeFile(t, dir, "loop.yaml", abab),
		outPath:    filepath.Join(dir, "a.json"),
		models:     "markov",
		quiet:      true,
	}

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), opts, &stdout, &stderr), stderr.String())

	a, err := archive.ReadFile(opts.outPath)
	require.NoError(t, err)
	assert.Less(t, a.Markov.Overall, 0.05)
}

func TestRun_Hybrid(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		configPath: writeFile(t, dir, "dra.yaml", `
generator:
  skill_components:
    grasp: {components: [gripper]}
    place: {components: [gripper]}
  component_failure:
    gripper: 0.1
`),
		skillsPath: writeFile(t, dir, "seq.yaml", pickAndPlaceYAML),
		outPath:    filepath.Join(dir, "a.json"),
	}

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), opts, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "hybrid")

	a, err := archive.ReadFile(opts.outPath)
	require.NoError(t, err)
	require.NotNil(t, a.Hybrid)
	assert.Equal(t, "gripper", a.Hybrid.Sensitivity[0].Component)

	// hybrid alone needs skill components
	opts = options{skillsPath: opts.skillsPath, models: "hybrid", quiet: true}
	assert.Equal(t, exitUsage, run(context.Background(), opts, &stdout, &stderr))
}
