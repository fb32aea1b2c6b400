package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soullink/internal/server/services"
)

// MemoryRemoteStore runs the server's document service in process.
type MemoryRemoteStore struct {
	docs   *services.DocumentService
	logger logging.Logger

	mu      sync.Mutex
	closed  bool
	offline bool
	cancels map[int]context.CancelFunc
	nextSub int
	wg      sync.WaitGroup

	saves atomic.Int64
}

func NewMemoryRemoteStore(logger logging.Logger) *MemoryRemoteStore {
	logger = logging.OrNop(logger)
	return NewMemoryRemoteStoreWith(services.NewDocumentService(nil, repomanager.NewMemoryRepositoryManager(), logger), logger)
}

// NewMemoryRemoteStoreWith shares docs, so several clients can observe the
// same documents.
func NewMemoryRemoteStoreWith(docs *services.DocumentService, logger logging.Logger) *MemoryRemoteStore {
	return &MemoryRemoteStore{
		docs:    docs,
		logger:  logging.OrNop(logger).With("module", "memory_remote"),
		cancels: make(map[int]context.CancelFunc),
	}
}

// SetOffline makes Save fail with ErrUnavailable while on.
func (m *MemoryRemoteStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Saves reports how many writes reached the document service.
func (m *MemoryRemoteStore) Saves() int {
	return int(m.saves.Load())
}

func (m *MemoryRemoteStore) Save(ctx context.Context, userID string, doc models.Document) error {
	m.mu.Lock()
	closed, offline := m.closed, m.offline
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if offline {
		return ErrUnavailable
	}

	b, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if _, err := m.docs.Save(ctx, userID, b); err != nil {
		return err
	}
	m.saves.Add(1)
	return nil
}

func (m *MemoryRemoteStore) Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (func(), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	id := m.nextSub
	m.nextSub++
	m.cancels[id] = cancel
	m.mu.Unlock()

	sub, err := m.docs.Subscribe(ctx, userID)
	if err != nil {
		m.drop(id)
		return nil, err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer sub.Close()

		initial := sub.Initial
		if !sub.Exists {
			initial = nil
		}
		m.deliver(ctx, initial, onSnapshot)

		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-sub.Updates:
				if !ok {
					return
				}
				m.deliver(ctx, b, onSnapshot)
			}
		}
	}()

	return func() { m.drop(id) }, nil
}

func (m *MemoryRemoteStore) deliver(ctx context.Context, b []byte, fn SnapshotFunc) {
	if ctx.Err() != nil {
		return
	}
	doc, exists, err := decodeSnapshot(ctx, b, m.logger)
	if err != nil {
		m.logger.Warn(ctx, "dropping undecodable snapshot", "err", err)
		return
	}
	fn(doc, exists)
}

func (m *MemoryRemoteStore) drop(id int) {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close ends all subscriptions and waits for their goroutines.
func (m *MemoryRemoteStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancels := m.cancels
	m.cancels = map[int]context.CancelFunc{}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	m.wg.Wait()
	return nil
}
