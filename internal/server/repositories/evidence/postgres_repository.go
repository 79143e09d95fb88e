package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/dbx"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.EvidenceRecord) error {

	query :=
		`INSERT INTO evidence (id, case_id, original_filename, content_type, size_bytes, storage_key, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CaseID, rec.OriginalFilename, rec.ContentType, rec.SizeBytes, rec.StorageKey, rec.Status, rec.UploadedAt)
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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.EvidenceRecord, error) {
	query := `SELECT id, case_id, original_filename, content_type, size_bytes, storage_key, sha256, status, uploaded_at, verified_at
		FROM evidence WHERE id=$1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: evidence %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) ListByCase(ctx context.Context, caseID string) ([]*models.EvidenceRecord, error) {
	query := `SELECT id, case_id, original_filename, content_type, size_bytes, storage_key, sha256, status, uploaded_at, verified_at
		FROM evidence WHERE case_id=$1 ORDER BY uploaded_at, id`

	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	defer rows.Close()

	var result []*models.EvidenceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) FindVerifiedBySHA256(ctx context.Context, caseID string, sha hashing.ServerVerifiedHash) (*models.EvidenceRecord, error) {
	query := `SELECT id, case_id, original_filename, content_type, size_bytes, storage_key, sha256, status, uploaded_at, verified_at
		FROM evidence WHERE case_id=$1 AND sha256=$2 AND status='verified'`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, caseID, string(sha)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no verified evidence with digest", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}

	return rec, nil
}

// FinalizeVerified is a compare-and-swap on status: the WHERE clause only
// matches while the record is still pending, so exactly one concurrent
// complete can win.
func (r *PostgresRepository) FinalizeVerified(ctx context.Context, id string, sha hashing.ServerVerifiedHash, verifiedAt time.Time) (bool, error) {

	query := `UPDATE evidence SET sha256=$1, status='verified', verified_at=$2 WHERE id=$3 AND status='pending'`

	res, err := r.db.ExecContext(ctx, query, string(sha), verifiedAt, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return false, fmt.Errorf("%w: digest already verified in case", common.ErrDuplicateEvidence)
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.EvidenceRecord, error) {
	rec := &models.EvidenceRecord{}
	var sha sql.NullString
	var verifiedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.CaseID, &rec.OriginalFilename, &rec.ContentType, &rec.SizeBytes,
		&rec.StorageKey, &sha, &rec.Status, &rec.UploadedAt, &verifiedAt)
	if err != nil {
		return nil, err
	}

	if sha.Valid {
		rec.SHA256 = hashing.ServerVerifiedHash(sha.String)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}

	return rec, nil
}
