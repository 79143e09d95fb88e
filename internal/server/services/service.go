// Package services implements the registry's business operations: upload
// init/complete, manifest export/verify and audit replay. Services own the
// transaction boundaries; repositories stay single-statement.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/repositories/audit"
)

// runInTx runs fn inside a database transaction when a real database is
// configured. With in-memory repositories there is nothing to begin, so fn
// runs directly with a nil handle, which the in-memory manager ignores.
func runInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, db, nil, fn)
}

// appendEvent marshals payload and appends a new audit event to the case
// stream through the given repository handle.
func appendEvent(ctx context.Context, repo audit.Repository, clock Clock,
	caseID string, eventType models.EventType, payload any) (*models.AuditEvent, error) {

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit payload: %w", err)
	}

	event := &models.AuditEvent{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		EventType: eventType,
		Payload:   body,
		CreatedAt: clock.Now(),
	}

	if err := repo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append audit event: %w", err)
	}

	return event, nil
}
