package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/soullink/internal/common"
)

type memoryDoc struct {
	fields    map[string]json.RawMessage
	updatedAt time.Time
}

// MemoryRepository keeps documents in process memory. It backs the server
// in "memory" storage mode and the client's offline remote.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*memoryDoc
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*memoryDoc), now: time.Now}
}

func (r *MemoryRepository) Get(_ context.Context, userID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return json.Marshal(d.fields)
}

func (r *MemoryRepository) Merge(_ context.Context, userID string, patch []byte) ([]byte, error) {
	fields, err := DecodeObject(patch)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.docs[userID]
	if !ok {
		d = &memoryDoc{fields: make(map[string]json.RawMessage, len(fields))}
		r.docs[userID] = d
	}
	for k, v := range fields {
		d.fields[k] = v
	}
	d.updatedAt = r.now()

	return json.Marshal(d.fields)
}

func (r *MemoryRepository) ListUpdatedSince(_ context.Context, since time.Time) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for id, d := range r.docs {
		if !d.updatedAt.After(since) {
			continue
		}
		b, err := json.Marshal(d.fields)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{UserID: id, Doc: b, UpdatedAt: d.updatedAt})
	}
	slices.SortFunc(out, func(a, b Record) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return out, nil
}

// DecodeObject parses a merge payload. Anything but a JSON object is
// rejected with common.ErrInvalidDocument.
func DecodeObject(b []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidDocument, err)
	}
	if fields == nil {
		return nil, common.ErrInvalidDocument
	}
	return fields, nil
}
