// Package audit persists the append-only audit stream. The contract exposes
// no update or delete on purpose.
package audit

import (
	"context"

	"github.com/custodia-project/custodia/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, event *models.AuditEvent) error

	// ListByCase returns the case's events in append order.
	ListByCase(ctx context.Context, caseID string) ([]*models.AuditEvent, error)
}
