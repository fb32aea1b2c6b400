package sanitize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/models"
)

var ErrUndefined = errors.New("value is not serializable")

// Marshal sanitizes v and encodes the result as JSON.
func Marshal(v any) ([]byte, error) {
	clean, ok := Value(v)
	if !ok {
		return nil, ErrUndefined
	}
	return json.Marshal(clean)
}

// State passes st through Value and decodes the result back into the typed
// model. It is the gate in front of every durable write.
func State(st models.State) (models.State, error) {
	b, err := Marshal(st)
	if err != nil {
		return models.State{}, err
	}
	return models.DecodeState(b)
}

// DecodeState parses stored bytes and warns when message contents had to
// be coerced to strings.
func DecodeState(ctx context.Context, b []byte, log logging.Logger) (models.State, error) {
	st, err := models.DecodeState(b)
	if err != nil {
		return models.State{}, fmt.Errorf("decode state: %w", err)
	}
	if n := st.CoercedMessages(); n > 0 {
		logging.OrNop(log).Warn(ctx, "non-string message content coerced", "count", n)
	}
	return st, nil
}

// DecodeDocument is DecodeState for remote snapshots.
func DecodeDocument(ctx context.Context, b []byte, log logging.Logger) (models.Document, error) {
	doc, err := models.DecodeDocument(b)
	if err != nil {
		return models.Document{}, fmt.Errorf("decode document: %w", err)
	}
	if n := doc.CoercedMessages(); n > 0 {
		logging.OrNop(log).Warn(ctx, "non-string message content coerced", "count", n)
	}
	return doc, nil
}
