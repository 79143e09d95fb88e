package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/filex"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/repositories/repomanager"
	"github.com/custodia-project/custodia/internal/server/storage"
)

// EvidenceService runs the two-phase ingest: InitUpload registers a pending
// record and hands out a write credential, CompleteUpload reads the stored
// bytes back, recomputes the digest server-side and finalizes the record.
type EvidenceService struct {
	db                 *sql.DB
	manager            repomanager.RepositoryManager
	gateway            storage.Gateway
	clock              Clock
	logger             logging.Logger
	maxUploadSizeBytes int64
}

func NewEvidenceService(db *sql.DB, manager repomanager.RepositoryManager, gateway storage.Gateway,
	clock Clock, logger logging.Logger, maxUploadSizeBytes int64) *EvidenceService {
	return &EvidenceService{
		db:                 db,
		manager:            manager,
		gateway:            gateway,
		clock:              clock,
		logger:             logger,
		maxUploadSizeBytes: maxUploadSizeBytes,
	}
}

type InitUploadRequest struct {
	CaseID      string
	Filename    string
	ContentType string
	SizeBytes   int64
}

type InitUploadResult struct {
	Record     *models.EvidenceRecord
	Credential *storage.WriteCredential
}

type uploadInitPayload struct {
	EvidenceID string `json:"evidence_id"`
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"size_bytes"`
	Actor      string `json:"actor,omitempty"`
}

type uploadCompletePayload struct {
	EvidenceID string `json:"evidence_id"`
	Actor      string `json:"actor,omitempty"`
}

type hashVerifiedPayload struct {
	EvidenceID string `json:"evidence_id"`
	SHA256     string `json:"sha256"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	ExistingID string `json:"existing_id,omitempty"`
}

type hashMismatchPayload struct {
	EvidenceID string `json:"evidence_id"`
	Asserted   string `json:"asserted_sha256"`
	Computed   string `json:"computed_sha256"`
	Actor      string `json:"actor,omitempty"`
}

// InitUpload validates the request, registers a pending record and returns a
// time-boxed write credential for the record's storage key. The record and
// its UPLOAD_INIT event land in one transaction.
func (s *EvidenceService) InitUpload(ctx context.Context, actor string, req *InitUploadRequest) (*InitUploadResult, error) {
	if req.CaseID == "" {
		return nil, fmt.Errorf("%w: case id is required", common.ErrValidation)
	}

	filename, err := filex.SanitizeFilename(req.Filename)
	if err != nil {
		return nil, err
	}
	if !filex.ValidFilename(filename) {
		return nil, fmt.Errorf("%w: invalid filename", common.ErrValidation)
	}

	if req.SizeBytes <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", common.ErrValidation)
	}
	if req.SizeBytes > s.maxUploadSizeBytes {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", common.ErrValidation, req.SizeBytes, s.maxUploadSizeBytes)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.NewString()
	key := "cases/" + req.CaseID + "/" + id

	cred, err := s.gateway.IssueWriteCredential(ctx, key)
	if err != nil {
		return nil, err
	}

	rec := &models.EvidenceRecord{
		ID:               id,
		CaseID:           req.CaseID,
		OriginalFilename: filename,
		ContentType:      contentType,
		SizeBytes:        req.SizeBytes,
		StorageKey:       key,
		Status:           models.EvidencePending,
		UploadedAt:       s.clock.Now(),
	}

	err = runInTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.manager.Evidence(tx).Create(ctx, rec); err != nil {
			return err
		}
		_, err := appendEvent(ctx, s.manager.Audit(tx), s.clock, rec.CaseID, models.EventUploadInit,
			uploadInitPayload{EvidenceID: rec.ID, Filename: filename, SizeBytes: req.SizeBytes, Actor: actor})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "upload initialized", "evidence_id", rec.ID, "case_id", rec.CaseID, "actor", actor)

	return &InitUploadResult{Record: rec, Credential: cred}, nil
}

// CompleteUpload finalizes a pending record. The server reads the stored
// object back and recomputes its digest; the client-asserted digest is only
// ever compared against, never stored. Exactly one concurrent complete can
// win the pending-to-verified swap; losers observe the winner's outcome.
func (s *EvidenceService) CompleteUpload(ctx context.Context, actor, evidenceID string,
	asserted hashing.ClientAssertedHash) (*models.EvidenceRecord, error) {

	repo := s.manager.Evidence(s.dbHandle())

	rec, err := repo.GetByID(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	if rec.Status == models.EvidenceVerified {
		// a complete already won; re-completing with the same content is a no-op
		if asserted != "" && string(asserted) != string(rec.SHA256) {
			return nil, fmt.Errorf("%w: evidence %s", common.ErrHashMismatch, rec.ID)
		}
		return rec, nil
	}

	data, err := s.gateway.ReadBytes(ctx, rec.StorageKey)
	if err != nil {
		return nil, err
	}

	verified := hashing.SumVerified(data)

	if asserted != "" && string(asserted) != string(verified) {
		_, aerr := appendEvent(ctx, s.manager.Audit(s.dbHandle()), s.clock, rec.CaseID, models.EventHashMismatch,
			hashMismatchPayload{EvidenceID: rec.ID, Asserted: string(asserted), Computed: string(verified), Actor: actor})
		if aerr != nil {
			return nil, aerr
		}
		s.logger.Warn(ctx, "hash mismatch", "evidence_id", rec.ID, "case_id", rec.CaseID)
		return nil, fmt.Errorf("%w: evidence %s", common.ErrHashMismatch, rec.ID)
	}

	if existing, ferr := repo.FindVerifiedBySHA256(ctx, rec.CaseID, verified); ferr == nil && existing.ID != rec.ID {
		return nil, s.reportDuplicate(ctx, actor, rec, existing, verified)
	} else if ferr != nil && !errors.Is(ferr, common.ErrNotFound) {
		return nil, ferr
	}

	verifiedAt := s.clock.Now()
	won := false

	err = runInTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		done, err := s.manager.Evidence(tx).FinalizeVerified(ctx, rec.ID, verified, verifiedAt)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}

		auditRepo := s.manager.Audit(tx)
		if _, err := appendEvent(ctx, auditRepo, s.clock, rec.CaseID, models.EventUploadComplete,
			uploadCompletePayload{EvidenceID: rec.ID, Actor: actor}); err != nil {
			return err
		}
		if _, err := appendEvent(ctx, auditRepo, s.clock, rec.CaseID, models.EventHashVerified,
			hashVerifiedPayload{EvidenceID: rec.ID, SHA256: string(verified)}); err != nil {
			return err
		}

		won = true
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEvidence) {
			// the unique index caught a racing upload of the same content
			if existing, ferr := repo.FindVerifiedBySHA256(ctx, rec.CaseID, verified); ferr == nil {
				return nil, s.reportDuplicate(ctx, actor, rec, existing, verified)
			}
		}
		return nil, err
	}

	if !won {
		// lost the swap to a concurrent complete of the same record
		again, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if again.Status != models.EvidenceVerified || again.SHA256 != verified {
			return nil, fmt.Errorf("%w: evidence %s", common.ErrHashMismatch, rec.ID)
		}
		return again, nil
	}

	s.logger.Info(ctx, "evidence verified", "evidence_id", rec.ID, "case_id", rec.CaseID, "sha256", string(verified))

	return repo.GetByID(ctx, rec.ID)
}

// ListEvidence returns all evidence records of a case in upload order.
func (s *EvidenceService) ListEvidence(ctx context.Context, caseID string) ([]*models.EvidenceRecord, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", common.ErrValidation)
	}
	return s.manager.Evidence(s.dbHandle()).ListByCase(ctx, caseID)
}

func (s *EvidenceService) reportDuplicate(ctx context.Context, actor string,
	rec, existing *models.EvidenceRecord, sha hashing.ServerVerifiedHash) error {

	_, err := appendEvent(ctx, s.manager.Audit(s.dbHandle()), s.clock, rec.CaseID, models.EventHashVerified,
		hashVerifiedPayload{EvidenceID: rec.ID, SHA256: string(sha), Duplicate: true, ExistingID: existing.ID})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "duplicate content detected",
		"evidence_id", rec.ID, "existing_id", existing.ID, "case_id", rec.CaseID, "actor", actor)

	return &common.DuplicateEvidenceError{CaseID: rec.CaseID, ExistingID: existing.ID, SHA256: string(sha)}
}

// dbHandle returns the pool handle for non-transactional repository access.
// With in-memory repositories the handle is ignored.
func (s *EvidenceService) dbHandle() dbx.DBTX {
	if s.db == nil {
		return nil
	}
	return s.db
}
