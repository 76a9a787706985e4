package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
)

func sample() *assessment.Assessment {
	return &assessment.Assessment{
		RunID:       uuid.MustParse("6f1c9b0e-5a7d-4c1b-8e0f-3d2a1b4c5d6e"),
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Instances:   3,
		Skills:      []string{"grasp", "move", "place"},
		Markov: &reliability.Report{
			Model:    reliability.KindMarkov,
			Strategy: "direct",
			Overall:  0.316,
			PerSkill: map[string]float64{"grasp": 0.316, "move": 0.24, "place": 0.2},
			Sensitivity: []reliability.Importance{
				{Component: "place", Score: 0.855},
				{Component: "grasp", Score: 0.76},
				{Component: "move", Score: 0.72},
			},
		},
		Warnings: []reliability.Warning{},
	}
}

// fakeS3 is an in-memory bucket
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			key := strings.TrimPrefix(k, aws.ToString(in.Bucket)+"/")
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Name() string { return "broken" }
func (f *failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func counter(t *testing.T, m *metrics.Registry, sink, status string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.ArchiveWritesTotal.WithLabelValues(sink, status).Write(&out))
	return out.GetCounter().GetValue()
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Put(ctx, "b.json", []byte(`{"b":1}`)))
	require.NoError(t, fs.Put(ctx, "a.json", []byte(`{"a":1}`)))
	require.NoError(t, fs.Put(ctx, "a.json", []byte(`{"a":2}`)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	keys, err := fs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, keys)

	data, err := fs.Get(ctx, "a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	_, err = fs.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []string{"", "../escape.json", "sub/dir.json", ".."} {
		assert.Error(t, fs.Put(ctx, bad, nil), "key %q", bad)
	}
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3StoreWithClient(fake, "reports", "/dra/runs/")

	assert.Equal(t, "dra/runs/x.json", store.ObjectKey("x.json"))

	a := sample()
	archiver := NewArchiver([]Store{store})
	require.NoError(t, archiver.Archive(ctx, a))

	objectKey := "reports/dra/runs/" + a.RunID.String() + ".json"
	require.Contains(t, fake.objects, objectKey)
	assert.Equal(t, "application/json", fake.contentTypes[objectKey])

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.Key()}, keys)

	loaded, err := Load(ctx, store, a.Key())
	require.NoError(t, err)
	assert.Equal(t, a.RunID, loaded.RunID)
	assert.InDelta(t, 0.316, loaded.Markov.Overall, 1e-12)
	assert.Equal(t, "place", loaded.Markov.Sensitivity[0].Component)

	_, err = store.Get(ctx, "other.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchiver_ContinuesPastFailingStore(t *testing.T) {
	ctx := context.Background()
	reg := metrics.NewRegistry()
	rec := logging.NewRecorder()
	mem := NewMemoryStore()

	archiver := NewArchiver([]Store{&failingStore{}, mem}, WithMetrics(reg), WithLogger(rec))
	err := archiver.Archive(ctx, sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: disk full")

	keys, _ := mem.List(ctx)
	assert.Len(t, keys, 1, "healthy store still written")

	assert.Equal(t, 1.0, counter(t, reg, "broken", metrics.StatusError))
	assert.Equal(t, 1.0, counter(t, reg, "memory", metrics.StatusSuccess))
	require.Len(t, rec.AtLevel(logging.ErrorLevel), 1)
	assert.NoError(t, archiver.Close())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	a := sample()

	require.NoError(t, WriteFile(path, a))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"run_id\""), "indented output")
	assert.Contains(t, string(data), `"influence_score": 0.855`)

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.GeneratedAt, loaded.GeneratedAt)
	assert.Nil(t, loaded.FaultTree)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"dir only", Config{Dir: "out"}, false},
		{"bucket", Config{S3: S3Config{Bucket: "b", Prefix: "p"}}, false},
		{"prefix without bucket", Config{S3: S3Config{Prefix: "p"}}, true},
		{"half credentials", Config{S3: S3Config{Bucket: "b", AccessKey: "k"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, reliability.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpen_FileOnly(t *testing.T) {
	stores, err := Open(context.Background(), Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "file", stores[0].Name())
}

func TestPGStore(t *testing.T) {
	url := os.Getenv("DRA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DRA_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewPGStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	a := sample()
	require.NoError(t, NewArchiver([]Store{store}).Archive(ctx, a))

	loaded, err := Load(ctx, store, a.Key())
	require.NoError(t, err)
	assert.Equal(t, a.RunID, loaded.RunID)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, a.Key())

	_, err = store.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}
