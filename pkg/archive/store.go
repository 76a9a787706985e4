// Package archive persists assessments as JSON documents in a local
// directory, an S3 bucket or a PostgreSQL table.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for an unknown key
var ErrNotFound = errors.New("assessment not found")

// Store is a flat key/value space of JSON documents. Keys are
// "<run_id>.json".
type Store interface {
	// Name identifies the sink in logs and metrics
	Name() string
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns every key, sorted
	List(ctx context.Context) ([]string, error)
	Close() error
}

func checkKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("key %q must be a plain file name", key)
	}
	return key, nil
}
