package client

import (
	"context"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
	"github.com/dmitrijs2005/soullink/internal/sanitize"
)

// SnapshotFunc receives the whole document after every change. exists is
// false (and doc nil) when the user has no document yet.
type SnapshotFunc func(doc *models.Document, exists bool)

type RemoteStore interface {
	// Subscribe delivers the current document once and then every new
	// version, the caller's own writes included, until unsubscribe is
	// called or ctx ends. Callbacks run on a single goroutine.
	Subscribe(ctx context.Context, userID string, onSnapshot SnapshotFunc) (unsubscribe func(), err error)
	// Save overwrites the top-level fields present in doc.
	Save(ctx context.Context, userID string, doc models.Document) error
	Close() error
}

func encodeDocument(doc models.Document) ([]byte, error) {
	return sanitize.Marshal(doc)
}

func decodeSnapshot(ctx context.Context, b []byte, log logging.Logger) (*models.Document, bool, error) {
	if len(b) == 0 {
		return nil, false, nil
	}
	doc, err := sanitize.DecodeDocument(ctx, b, log)
	if err != nil {
		return nil, false, err
	}
	return &doc, true, nil
}
