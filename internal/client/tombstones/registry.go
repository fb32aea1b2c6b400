// Package tombstones records permanently deleted companion ids. A deleted id
// never comes back, whatever a later snapshot or stale local record says.
package tombstones

import (
	"slices"
	"sync"

	"github.com/dmitrijs2005/soullink/internal/models"
)

type Registry struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewRegistry(ids ...string) *Registry {
	r := &Registry{ids: make(map[string]struct{}, len(ids))}
	r.Union(ids)
	return r
}

// MarkDeleted adds id and reports whether it was new.
func (r *Registry) MarkDeleted(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

func (r *Registry) IsDeleted(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok
}

// Union adds every id in ids. Empty ids are ignored.
func (r *Registry) Union(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			r.ids[id] = struct{}{}
		}
	}
}

// IDs returns the registry contents in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Filter returns the companions whose ids are not deleted, in order.
func (r *Registry) Filter(companions []models.Companion) []models.Companion {
	out := make([]models.Companion, 0, len(companions))
	for _, c := range companions {
		if !r.IsDeleted(c.ID) {
			out = append(out, c)
		}
	}
	return out
}
