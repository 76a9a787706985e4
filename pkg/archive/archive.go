package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-dra/pkg/assessment"
	"github.com/dd0wney/cluso-dra/pkg/logging"
	"github.com/dd0wney/cluso-dra/pkg/metrics"
	"github.com/dd0wney/cluso-dra/pkg/reliability"
	"github.com/dd0wney/cluso-dra/pkg/validation"
)

// Config selects the stores an Archiver writes to. Every empty section is
// skipped.
type Config struct {
	Dir         string   `yaml:"dir" json:"dir"`
	S3          S3Config `yaml:"s3" json:"s3"`
	PostgresURL string   `yaml:"postgres_url" json:"-"`
}

// Validate checks the configuration; the result wraps
// reliability.ErrInvalidConfig
func (c Config) Validate() error {
	err := validation.NewConfigValidator("archive").
		When(c.S3.Endpoint != "" || c.S3.Prefix != "", func(cv *validation.ConfigValidator) {
			cv.Required("s3.bucket", c.S3.Bucket)
		}).
		When((c.S3.AccessKey == "") != (c.S3.SecretKey == ""), func(cv *validation.ConfigValidator) {
			cv.Custom("s3.secret_key", func() error { return fmt.Errorf("access_key and secret_key must be set together") })
		}).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", reliability.ErrInvalidConfig, err)
	}
	return nil
}

// Open connects every configured store. On error the stores opened so far
// are closed.
func Open(ctx context.Context, cfg Config) ([]Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var stores []Store
	fail := func(err error) ([]Store, error) {
		for _, s := range stores {
			s.Close()
		}
		return nil, err
	}

	if cfg.Dir != "" {
		fs, err := NewFileStore(cfg.Dir)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, fs)
	}
	if cfg.S3.Enabled() {
		s3s, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, s3s)
	}
	if cfg.PostgresURL != "" {
		pg, err := NewPGStore(ctx, cfg.PostgresURL)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, pg)
	}
	return stores, nil
}

// Encode renders an assessment as indented JSON
func Encode(a *assessment.Assessment) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document written by Encode
func Decode(data []byte) (*assessment.Assessment, error) {
	var a assessment.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &a, nil
}

// WriteFile writes an assessment to path, replacing any existing file
func WriteFile(path string, a *assessment.Assessment) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadFile loads an assessment written by WriteFile
func ReadFile(path string) (*assessment.Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Archiver writes every assessment to each of its stores
type Archiver struct {
	stores  []Store
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures an Archiver
type Option func(*Archiver)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Registry) Option {
	return func(a *Archiver) { a.metrics = m }
}

// NewArchiver creates an archiver over stores
func NewArchiver(stores []Store, opts ...Option) *Archiver {
	a := &Archiver{stores: stores, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logging.Component("archive"))
	return a
}

// Stores returns the configured stores
func (a *Archiver) Stores() []Store {
	return append([]Store(nil), a.stores...)
}

// Archive encodes the assessment once and writes it to every store. A
// failing store does not stop the others; all failures are returned
// joined.
func (a *Archiver) Archive(ctx context.Context, as *assessment.Assessment) error {
	data, err := Encode(as)
	if err != nil {
		return err
	}

	key := as.Key()
	var errs []error
	for _, s := range a.stores {
		if err := s.Put(ctx, key, data); err != nil {
			a.logger.Error("archive write failed",
				logging.String("sink", s.Name()), logging.RunID(as.RunID.String()), logging.Error(err))
			a.record(s.Name(), metrics.StatusError)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		a.logger.Info("assessment archived",
			logging.String("sink", s.Name()), logging.RunID(as.RunID.String()), logging.Path(key))
		a.record(s.Name(), metrics.StatusSuccess)
	}
	return errors.Join(errs...)
}

// Load reads one assessment back from a store
func Load(ctx context.Context, s Store, key string) (*assessment.Assessment, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Close closes every store
func (a *Archiver) Close() error {
	var errs []error
	for _, s := range a.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Archiver) record(sink, status string) {
	if a.metrics != nil {
		a.metrics.RecordArchiveWrite(sink, status)
	}
}
