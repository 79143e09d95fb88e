package repomanager

import (
	"context"
	"database/sql"

	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/server/repositories/audit"
	"github.com/custodia-project/custodia/internal/server/repositories/evidence"
)

// InMemoryRepositoryManager ignores the DB handle it is given and returns
// the same in-memory repositories every time. Used by tests and DSN-less
// local runs.
type InMemoryRepositoryManager struct {
	evidence *evidence.InMemoryRepository
	audit    *audit.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		evidence: evidence.NewInMemoryRepository(),
		audit:    audit.NewInMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Evidence(db dbx.DBTX) evidence.Repository {
	return m.evidence
}

func (m *InMemoryRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return m.audit
}
