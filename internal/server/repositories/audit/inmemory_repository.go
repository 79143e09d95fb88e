package audit

import (
	"context"
	"sync"

	"github.com/custodia-project/custodia/internal/server/models"
)

// InMemoryRepository keeps the stream in an append-ordered slice guarded by
// a single append lock, mirroring what the bigserial seq column gives the
// Postgres repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []*models.AuditEvent
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *event
	r.events = append(r.events, &clone)
	return nil
}

func (r *InMemoryRepository) ListByCase(ctx context.Context, caseID string) ([]*models.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.AuditEvent
	for _, ev := range r.events {
		if ev.CaseID == caseID {
			clone := *ev
			result = append(result, &clone)
		}
	}

	return result, nil
}
