package services

import "sync"

// Hub fans document snapshots out to the subscribers of each user. Each
// subscriber holds at most one pending snapshot; a newer one replaces it,
// since every snapshot is the whole document.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]chan []byte)}
}

func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	ch := make(chan []byte, 1)

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]chan []byte)
	}
	h.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
		})
	}
}

func (h *Hub) Publish(userID string, doc []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[userID] {
		for {
			select {
			case ch <- doc:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
