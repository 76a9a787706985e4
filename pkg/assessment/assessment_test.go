package assessment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-dra/pkg/generator"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/skills"
	"github.com/dd0wney/cluso-dra/pkg/solver"
)

var (
	fixedID   = uuid.MustParse("0b6c3f4e-2f0a-4a53-9c55-1f7b6b2f9a10")
	fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
)

func pickAndPlace() []skills.SkillInstance {
	return []skills.SkillInstance{
		{ID: "s0", Label: "grasp", Start: 0, End: 1, Risk: 0.1},
		{ID: "s1", Label: "move", Start: 1, End: 2, Risk: 0.05},
		{ID: "s2", Label: "place", Start: 2, End: 3, Risk: 0.2},
	}
}

func count(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return fixedTime }),
		WithRunIDs(func() uuid.UUID { return fixedID }),
	}, opts...)
	r, err := New(generator.DefaultConfig(), solver.DefaultConfig(), opts...)
	require.NoError(t, err)
	return r
}

func TestRun_PickAndPlace(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := logging.NewRecorder()
	r := newRunner(t, WithMetrics(reg), WithLogger(rec))

	a, err := r.Run(context.Background(), pickAndPlace(), Options{Source: "demo.yaml"})
	require.NoError(t, err)

	assert.Equal(t, fixedID, a.RunID)
	assert.Equal(t, fixedTime, a.GeneratedAt)
	assert.Equal(t, "demo.yaml", a.Source)
	assert.Equal(t, 3, a.Instances)
	assert.Equal(t, []string{"grasp", "move", "place"}, a.Skills)
	assert.Empty(t, a.Warnings)
	assert.Equal(t, fixedID.String()+".json", a.Key())

	require.Len(t, a.Reports(), 2)
	for _, report := range a.Reports() {
		assert.InDelta(t, 0.316, report.Overall, 1e-9, string(report.Model))
		assert.Equal(t, "place", report.Sensitivity[0].Component)
	}

	assert.Equal(t, 1.0, count(t, reg.AssessmentsTotal.WithLabelValues(metrics.StatusSuccess)))
	assert.Equal(t, 1.0, count(t, reg.GenerationsTotal.WithLabelValues(metrics.StatusSuccess)))

	var done []logging.RecordedEntry
	for _, e := range rec.AtLevel(logging.InfoLevel) {
		if e.Message == "assessment complete" {
			done = append(done, e)
		}
	}
	require.Len(t, done, 1)
	assert.Equal(t, fixedID.String(), done[0].Fields["run_id"])
}

func TestRun_ModelSelection(t *testing.T) {
	r := newRunner(t)

	a, err := r.Run(context.Background(), pickAndPlace(), Options{Models: ModelsMarkov})
	require.NoError(t, err)
	assert.NotNil(t, a.Markov)
	assert.Nil(t, a.FaultTree)

	a, err = r.Run(context.Background(), pickAndPlace(), Options{Models: ModelsFaultTree})
	require.NoError(t, err)
	assert.Nil(t, a.Markov)
	assert.NotNil(t, a.FaultTree)
}

func TestRun_InvalidSequenceAbortsBeforeSolve(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newRunner(t, WithMetrics(reg))

	seq := pickAndPlace()
	seq[1].Start = 0.5

	a, err := r.Run(context.Background(), seq, Options{})
	assert.Nil(t, a)
	require.ErrorIs(t, err, reliability.ErrInvalidSequence)
	assert.Equal(t, 1.0, count(t, reg.AssessmentsTotal.WithLabelValues(metrics.StatusError)))
	assert.Equal(t, 0.0, count(t, reg.SolvesTotal.WithLabelValues("markov", "direct", metrics.StatusSuccess)))
}

func TestRun_Timeout(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newRunner(t, WithMetrics(reg))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	a, err := r.Run(ctx, pickAndPlace(), Options{Timeout: 5 * time.Second})
	assert.Nil(t, a)
	require.ErrorIs(t, err, reliability.ErrTimeout)

	var te *reliability.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 5*time.Second, te.After)
	assert.Equal(t, 1.0, count(t, reg.AssessmentTimeouts))
}

// abab alternates two skills and ends after b
func abab(risk float64) []skills.SkillInstance {
	return []skills.SkillInstance{
		{ID: "1", Label: "a", Start: 0, End: 1, Risk: risk},
		{ID: "2", Label: "b", Start: 1, End: 2, Risk: risk},
		{ID: "3", Label: "a", Start: 2, End: 3, Risk: risk},
		{ID: "4", Label: "b", Start: 3, End: 4, Risk: risk},
	}
}

func TestRun_RepeatedSkillsEndTheRun(t *testing.T) {
	a, err := newRunner(t).Run(context.Background(), abab(0), Options{Models: ModelsMarkov})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Markov.Overall)
	assert.Equal(t, 0.0, a.Markov.PerSkill["b"])
	assert.InDelta(t, 3, a.Markov.ExpectedSteps["b"], 1e-9)
}

func TestRun_NonConvergence(t *testing.T) {
	r, err := New(generator.DefaultConfig(), solver.Config{
		Strategy:      solver.StrategyIterative,
		MaxIterations: 2,
		Tolerance:     1e-15,
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), abab(0.01), Options{Models: ModelsMarkov})
	assert.ErrorIs(t, err, reliability.ErrNonConvergence)
	assert.ErrorContains(t, err, "solve markov")

	a, err := r.Run(context.Background(), abab(0.01), Options{Models: ModelsFaultTree})
	require.NoError(t, err)
	assert.InDelta(t, 1-0.99*0.99, a.FaultTree.Overall, 1e-12)
}

func hybridConfig() generator.Config {
	cfg := generator.DefaultConfig()
	cfg.SkillComponents = map[string]generator.SkillComponents{
		"grasp": {Components: []string{"gripper"}},
		"place": {Components: []string{"gripper"}},
	}
	cfg.ComponentFailure = map[string]float64{"gripper": 0.1}
	return cfg
}

func TestRun_Hybrid(t *testing.T) {
	rec := logging.NewRecorder()
	r, err := New(hybridConfig(), solver.DefaultConfig(), WithLogger(rec))
	require.NoError(t, err)

	a, err := r.Run(context.Background(), pickAndPlace(), Options{})
	require.NoError(t, err)
	require.Len(t, a.Reports(), 3)
	assert.InDelta(t, 0.316, a.Markov.Overall, 1e-9)
	require.NotNil(t, a.Hybrid)
	assert.Equal(t, reliability.KindHybrid, a.Hybrid.Model)
	assert.InDelta(t, 1-0.9*0.9*0.95*0.8*0.9, a.Hybrid.Overall, 1e-9)
	assert.Equal(t, "gripper", a.Hybrid.Sensitivity[0].Component)

	a, err = r.Run(context.Background(), pickAndPlace(), Options{Models: ModelsHybrid})
	require.NoError(t, err)
	assert.Nil(t, a.Markov)
	assert.Nil(t, a.FaultTree)
	assert.NotNil(t, a.Hybrid)

	var done []logging.RecordedEntry
	for _, e := range rec.AtLevel(logging.InfoLevel) {
		if e.Message == "assessment complete" {
			done = append(done, e)
		}
	}
	require.Len(t, done, 2)
	assert.Contains(t, done[0].Fields, "hybrid_overall")
}

func TestRun_HybridNeedsComponents(t *testing.T) {
	r := newRunner(t)

	_, err := r.Run(context.Background(), pickAndPlace(), Options{Models: ModelsHybrid})
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)

	a, err := r.Run(context.Background(), pickAndPlace(), Options{Models: ModelsAll})
	require.NoError(t, err)
	assert.Nil(t, a.Hybrid)
	assert.Len(t, a.Reports(), 2)
}

func TestRun_InvalidOptions(t *testing.T) {
	r := newRunner(t)

	_, err := r.Run(context.Background(), pickAndPlace(), Options{Models: "petri"})
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)

	_, err = r.Run(context.Background(), pickAndPlace(), Options{Timeout: -time.Second})
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(generator.Config{Aggregation: "median"}, solver.Config{})
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)

	_, err = New(generator.Config{}, solver.Config{Strategy: "gauss"})
	assert.ErrorIs(t, err, reliability.ErrInvalidConfig)
}

func TestRunSignal(t *testing.T) {
	sig := skills.Signal{Columns: []string{"skill", "joint_vel", "joint_torque"}}
	rows := [][]float64{
		{1, 0.1, 2}, {1, -0.2, 5}, {1, 0.1, 1},
		{2, 0.5, 12}, {2, -0.4, -20}, {2, 0.3, 15},
		{3, 1.0, 35}, {3, 0.9, -40}, {3, 0.2, 10},
	}
	for i, row := range rows {
		sig.Time = append(sig.Time, float64(i))
		sig.Rows = append(sig.Rows, row)
	}

	det := skills.LabelColumnDetector{Column: "skill", Names: map[int]string{1: "grasp", 2: "move", 3: "place"}}
	an := skills.NewKinematicAnalyzer([]string{"joint_vel"}, []string{"joint_torque"})

	a, err := newRunner(t).RunSignal(context.Background(), sig, det, an, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, a.Instances)
	assert.InDelta(t, 1, a.Markov.Overall, 1e-9)
	assert.InDelta(t, 1, a.FaultTree.Overall, 1e-9)
	assert.InDelta(t, 1.0/18, a.Markov.PerSkill["grasp"], 1e-9)
}

func TestAssessment_JSON(t *testing.T) {
	a, err := newRunner(t).Run(context.Background(), pickAndPlace(), Options{Models: ModelsFaultTree})
	require.NoError(t, err)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, fixedID.String(), decoded["run_id"])
	assert.NotContains(t, decoded, "markov")
	assert.Equal(t, []any{}, decoded["warnings"])

	tree := decoded["fault_tree"].(map[string]any)
	for _, key := range []string{"overall", "per_skill", "sensitivity"} {
		assert.Contains(t, tree, key)
	}
}
