package audit

import (
	"context"
	"fmt"

	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, event *models.AuditEvent) error {

	query := `INSERT INTO audit_events (id, case_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.CaseID, string(event.EventType), []byte(event.Payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}

	return nil
}

func (r *PostgresRepository) ListByCase(ctx context.Context, caseID string) ([]*models.AuditEvent, error) {
	query := `SELECT id, case_id, event_type, payload, created_at FROM audit_events
		WHERE case_id=$1 ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEvent
	for rows.Next() {
		item := &models.AuditEvent{}
		var eventType string
		var payload []byte
		if err := rows.Scan(&item.ID, &item.CaseID, &eventType, &payload, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.EventType = models.EventType(eventType)
		item.Payload = payload
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
