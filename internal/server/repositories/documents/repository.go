// Package documents stores one JSON document per user and applies
// merge-writes at top-level field granularity.
package documents

import (
	"context"
	"time"
)

type Record struct {
	UserID    string
	Doc       []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns common.ErrNotFound when the user has no document.
	Get(ctx context.Context, userID string) ([]byte, error)
	// Merge overlays the top-level fields of patch (a JSON object) onto the
	// stored document, creating it when absent, and returns the result.
	Merge(ctx context.Context, userID string, patch []byte) ([]byte, error)
	// ListUpdatedSince returns documents changed after since, oldest first.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]Record, error)
}
