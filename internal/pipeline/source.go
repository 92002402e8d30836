package pipeline

import (
	"context"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// Source fetches screenshot bytes. Baseline returns an error wrapping
// snapshot.ErrNotFound when no baseline exists yet.
type Source interface {
	Current(ctx context.Context, scenario, filename string) ([]byte, error)
	Baseline(ctx context.Context, scenario, filename string) ([]byte, error)
}

// Sink stores diff images and returns the location they can be viewed at.
type Sink interface {
	PutDiff(ctx context.Context, key string, png []byte) (string, error)
}

// StorageBackend serves a local snapshot.Storage tree as both Source and Sink.
type StorageBackend struct {
	storage *snapshot.Storage
}

// NewStorageBackend wraps storage.
func NewStorageBackend(storage *snapshot.Storage) *StorageBackend {
	return &StorageBackend{storage: storage}
}

func (b *StorageBackend) Current(ctx context.Context, scenario, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.storage.ReadCurrent(scenario, filename)
}

func (b *StorageBackend) Baseline(ctx context.Context, scenario, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.storage.ReadBaseline(scenario, filename)
}

func (b *StorageBackend) PutDiff(ctx context.Context, key string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.storage.Put(key, png)
}
