// Package services holds the business logic of the document server.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/dbx"
	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/documents"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/repomanager"
)

type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hub         *Hub
	logger      logging.Logger

	// serializes merge+publish so subscribers see snapshots in commit order
	mu sync.Mutex
}

// NewDocumentService wires the service. db may be nil when the repository
// manager does not need a connection (in-memory storage).
func NewDocumentService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: rm,
		hub:         NewHub(),
		logger:      logging.OrNop(logger).With("module", "document_service"),
	}
}

func (s *DocumentService) withRepo(ctx context.Context, fn func(ctx context.Context, repo documents.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.repomanager.Documents(nil))
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Documents(tx))
	})
}

// Save merge-writes payload into the user's document and notifies every
// subscriber of that user, the writer included.
func (s *DocumentService) Save(ctx context.Context, userID string, payload []byte) ([]byte, error) {
	if userID == "" {
		return nil, common.ErrNoUserID
	}
	if _, err := documents.DecodeObject(payload); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var merged []byte
	err := s.withRepo(ctx, func(ctx context.Context, repo documents.Repository) error {
		var err error
		merged, err = repo.Merge(ctx, userID, payload)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("merge document: %w", err)
	}

	s.hub.Publish(userID, merged)
	s.logger.Debug(ctx, "document saved", "user_id", userID, "bytes", len(merged))
	return merged, nil
}

// Get returns the current document; exists is false when there is none.
func (s *DocumentService) Get(ctx context.Context, userID string) (doc []byte, exists bool, err error) {
	if userID == "" {
		return nil, false, common.ErrNoUserID
	}
	err = s.withRepo(ctx, func(ctx context.Context, repo documents.Repository) error {
		doc, err = repo.Get(ctx, userID)
		return err
	})
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

type Subscription struct {
	Initial []byte
	Exists  bool
	Updates <-chan []byte
	cancel  func()
}

func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Subscribe registers for updates before reading the current document, so
// no write between the two is missed. A write may then be seen twice.
func (s *DocumentService) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, common.ErrNoUserID
	}

	updates, cancel := s.hub.Subscribe(userID)
	doc, exists, err := s.Get(ctx, userID)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Subscription{Initial: doc, Exists: exists, Updates: updates, cancel: cancel}, nil
}
