package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/soullink/internal/dbx"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/documents"
)

// MemoryRepositoryManager hands out one shared in-memory repository and
// ignores the DBTX argument.
type MemoryRepositoryManager struct {
	docs *documents.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{docs: documents.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Documents(dbx.DBTX) documents.Repository {
	return m.docs
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
