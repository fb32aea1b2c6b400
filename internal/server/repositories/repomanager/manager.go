package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/soullink/internal/dbx"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/documents"
)

// RepositoryManager vends repositories bound to a DBTX (a *sql.DB or an
// open transaction) and migrates the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
}
