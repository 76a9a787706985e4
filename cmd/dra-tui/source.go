package main

import (
	"context"
	"path/filepath"

	"github.com/dd0wney/cluso-dra/pkg/archive"
	"github.com/dd0wney/cluso-dra/pkg/assessment"
)

// source lists and loads assessments
type source interface {
	Keys(ctx context.Context) ([]string, error)
	Load(ctx context.Context, key string) (*assessment.Assessment, error)
}

// fileSource is a single assessment file
type fileSource string

func (f fileSource) Keys(context.Context) ([]string, error) {
	return []string{filepath.Base(string(f))}, nil
}

func (f fileSource) Load(context.Context, string) (*assessment.Assessment, error) {
	return archive.ReadFile(string(f))
}

// storeSource browses an archive store
type storeSource struct {
	store archive.Store
}

func (s storeSource) Keys(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s storeSource) Load(ctx context.Context, key string) (*assessment.Assessment, error) {
	return archive.Load(ctx, s.store, key)
}
