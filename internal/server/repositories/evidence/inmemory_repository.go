package evidence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/server/models"
)

// InMemoryRepository keeps records in process memory. It backs tests and
// DSN-less local runs and honors the same invariants as the Postgres
// repository: conditional finalize and per-case digest uniqueness.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*models.EvidenceRecord
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*models.EvidenceRecord)}
}

func (r *InMemoryRepository) Create(ctx context.Context, rec *models.EvidenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("evidence %s already exists", rec.ID)
	}

	clone := *rec
	r.records[rec.ID] = &clone
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.EvidenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: evidence %s", common.ErrNotFound, id)
	}

	clone := *rec
	return &clone, nil
}

func (r *InMemoryRepository) ListByCase(ctx context.Context, caseID string) ([]*models.EvidenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.EvidenceRecord
	for _, rec := range r.records {
		if rec.CaseID == caseID {
			clone := *rec
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UploadedAt.Before(result[j].UploadedAt)
	})

	return result, nil
}

func (r *InMemoryRepository) FindVerifiedBySHA256(ctx context.Context, caseID string, sha hashing.ServerVerifiedHash) (*models.EvidenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.CaseID == caseID && rec.Status == models.EvidenceVerified && rec.SHA256 == sha {
			clone := *rec
			return &clone, nil
		}
	}

	return nil, fmt.Errorf("%w: no verified evidence with digest", common.ErrNotFound)
}

func (r *InMemoryRepository) FinalizeVerified(ctx context.Context, id string, sha hashing.ServerVerifiedHash, verifiedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Status != models.EvidencePending {
		return false, nil
	}

	for _, other := range r.records {
		if other.ID != id && other.CaseID == rec.CaseID && other.Status == models.EvidenceVerified && other.SHA256 == sha {
			return false, fmt.Errorf("%w: digest already verified in case", common.ErrDuplicateEvidence)
		}
	}

	rec.SHA256 = sha
	rec.Status = models.EvidenceVerified
	t := verifiedAt
	rec.VerifiedAt = &t
	return true, nil
}
