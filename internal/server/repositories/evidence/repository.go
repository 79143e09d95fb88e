// Package evidence persists evidence records for the registry.
package evidence

import (
	"context"
	"time"

	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/server/models"
)

// Repository is the storage contract for evidence records. FinalizeVerified
// carries the single-writer guarantee: it transitions a record to verified
// only while it is still pending, so concurrent completes for the same
// record resolve to exactly one winner.
type Repository interface {
	Create(ctx context.Context, rec *models.EvidenceRecord) error
	GetByID(ctx context.Context, id string) (*models.EvidenceRecord, error)
	ListByCase(ctx context.Context, caseID string) ([]*models.EvidenceRecord, error)

	// FindVerifiedBySHA256 returns the verified record holding the digest in
	// the given case, or common.ErrNotFound.
	FindVerifiedBySHA256(ctx context.Context, caseID string, sha hashing.ServerVerifiedHash) (*models.EvidenceRecord, error)

	// FinalizeVerified performs the conditional verified transition. It
	// reports false (with no error) when the record was not pending anymore,
	// and common.ErrDuplicateEvidence when the per-case uniqueness index
	// rejects the digest.
	FinalizeVerified(ctx context.Context, id string, sha hashing.ServerVerifiedHash, verifiedAt time.Time) (bool, error)
}
