package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) ([]byte, error) {
	query :=
		`SELECT doc FROM user_documents
		 WHERE user_id = $1
		 `

	var doc []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// Merge relies on jsonb concatenation: keys present in the patch replace
// the stored ones, the rest are kept.
func (r *PostgresRepository) Merge(ctx context.Context, userID string, patch []byte) ([]byte, error) {
	query :=
		`INSERT INTO user_documents (user_id, doc, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET doc = user_documents.doc || EXCLUDED.doc, updated_at = now()
		 RETURNING doc
		 `

	var doc []byte
	if err := r.db.QueryRowContext(ctx, query, userID, string(patch)).Scan(&doc); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]Record, error) {
	query :=
		`SELECT user_id, doc, updated_at FROM user_documents
		 WHERE updated_at > $1
		 ORDER BY updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.UserID, &rec.Doc, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
