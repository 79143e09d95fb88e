// Package repomanager hands out repositories bound to a DB handle, so
// services can run them either directly against the pool or inside a
// transaction started with dbx.WithTx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/server/repositories/audit"
	"github.com/custodia-project/custodia/internal/server/repositories/evidence"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Evidence(db dbx.DBTX) evidence.Repository
	Audit(db dbx.DBTX) audit.Repository
}
