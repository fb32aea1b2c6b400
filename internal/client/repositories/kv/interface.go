// Package kv is the durable, quota-limited key-value store behind the local
// record and the identity key.
package kv

import (
	"context"
)

type Repository interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set fails with common.ErrQuotaExceeded when the write would push the
	// total size of all keys and values over the quota.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	// Usage is the total size in bytes of all keys and values.
	Usage(ctx context.Context) (int64, error)
}
