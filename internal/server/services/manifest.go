package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/repositories/repomanager"
)

const manifestKeyInfo = "custodia manifest signing v1"

// ManifestService produces and checks signed, point-in-time projections of a
// case. The signature covers the canonical payload bytes only, so a manifest
// verifies the same regardless of when or by whom it was exported.
type ManifestService struct {
	db         *sql.DB
	manager    repomanager.RepositoryManager
	signingKey []byte
	clock      Clock
	logger     logging.Logger
}

// NewManifestService derives the HMAC signing key from the server secret via
// HKDF, so the manifest key is never the raw secret shared with token auth.
func NewManifestService(db *sql.DB, manager repomanager.RepositoryManager, secretKey string,
	clock Clock, logger logging.Logger) (*ManifestService, error) {

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secretKey), nil, []byte(manifestKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive manifest key: %w", err)
	}

	return &ManifestService{db: db, manager: manager, signingKey: key, clock: clock, logger: logger}, nil
}

type manifestExportedPayload struct {
	ManifestSHA256 string `json:"manifest_sha256"`
	Actor          string `json:"actor,omitempty"`
}

// Export snapshots a case's evidence and audit stream, signs the canonical
// payload and appends a MANIFEST_EXPORTED event. A case with no records and
// no events does not exist.
func (s *ManifestService) Export(ctx context.Context, actor, caseID string) (*models.Manifest, error) {
	if caseID == "" {
		return nil, fmt.Errorf("%w: case id is required", common.ErrValidation)
	}

	var payload models.ManifestPayload
	var sha, mac string

	err := runInTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		records, err := s.manager.Evidence(tx).ListByCase(ctx, caseID)
		if err != nil {
			return err
		}
		events, err := s.manager.Audit(tx).ListByCase(ctx, caseID)
		if err != nil {
			return err
		}

		if len(records) == 0 && len(events) == 0 {
			return fmt.Errorf("%w: case %s", common.ErrNotFound, caseID)
		}

		payload = models.ManifestPayload{
			Case: models.CaseSnapshot{
				ID:            caseID,
				EvidenceCount: len(records),
				EventCount:    len(events),
			},
			Evidence: records,
			Audit:    events,
		}

		sha, mac, err = s.sign(payload)
		if err != nil {
			return err
		}

		// the export event is appended after the snapshot was read, so the
		// signed stream never contains the event announcing it
		_, err = appendEvent(ctx, s.manager.Audit(tx), s.clock, caseID, models.EventManifestExported,
			manifestExportedPayload{ManifestSHA256: sha, Actor: actor})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "manifest exported", "case_id", caseID, "manifest_sha256", sha, "actor", actor)

	return &models.Manifest{
		Case:           payload.Case,
		Evidence:       payload.Evidence,
		Audit:          payload.Audit,
		ManifestSHA256: sha,
		ManifestHMAC:   mac,
		GeneratedAt:    s.clock.Now(),
		ExportedBy:     actor,
	}, nil
}

// ManifestVerification reports the two integrity checks independently: the
// digest catches accidental corruption, the HMAC catches forgery.
type ManifestVerification struct {
	SHA256Valid    bool   `json:"sha256_valid"`
	HMACValid      bool   `json:"hmac_valid"`
	ComputedSHA256 string `json:"computed_sha256"`
}

func (v *ManifestVerification) OK() bool {
	return v.SHA256Valid && v.HMACValid
}

// Verify recomputes digest and HMAC over the manifest's payload fields and
// compares them to the embedded values. It never touches the database: a
// manifest is self-contained by design of the canonical encoding.
func (s *ManifestService) Verify(ctx context.Context, m *models.Manifest) (*ManifestVerification, error) {
	sha, mac, err := s.sign(m.Payload())
	if err != nil {
		return nil, err
	}

	result := &ManifestVerification{
		SHA256Valid:    sha == m.ManifestSHA256,
		HMACValid:      hmac.Equal([]byte(mac), []byte(m.ManifestHMAC)),
		ComputedSHA256: sha,
	}

	if !result.OK() {
		s.logger.Warn(ctx, "manifest verification failed",
			"case_id", m.Case.ID, "sha256_valid", result.SHA256Valid, "hmac_valid", result.HMACValid)
	}

	return result, nil
}

// sign returns the hex digest and hex HMAC of the payload's canonical bytes.
func (s *ManifestService) sign(payload models.ManifestPayload) (sha string, mac string, err error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode manifest payload: %w", err)
	}

	digest := sha256.Sum256(canonical)

	h := hmac.New(sha256.New, s.signingKey)
	h.Write(canonical)

	return hex.EncodeToString(digest[:]), hex.EncodeToString(h.Sum(nil)), nil
}
