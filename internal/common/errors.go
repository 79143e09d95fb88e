// Package common holds the error taxonomy shared by the client and server
// components. Callers discriminate with errors.Is/errors.As; only transient
// storage errors are ever retried.
package common

import (
	"errors"
	"fmt"
)

var (
	// repository specific errors
	ErrNotFound = errors.New("not found")

	// ErrValidation covers bad filenames, oversized files and malformed
	// requests. Non-retryable, surfaced immediately to the caller.
	ErrValidation = errors.New("validation error")

	// ErrTransientStorage covers network or object-store failures on read
	// and write. Retryable by the upload orchestrator up to its budget.
	ErrTransientStorage = errors.New("transient storage error")

	// ErrHashing marks a failed digest computation (I/O error, truncated
	// read). The caller never receives a partial digest.
	ErrHashing = errors.New("hashing error")

	// ErrHashMismatch means a recomputed digest contradicts a stored one.
	// Fatal, never auto-corrected.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrTamperDetected marks a manifest or replay finding. Terminal and
	// reportable, never retried away.
	ErrTamperDetected = errors.New("tamper detected")

	// ErrDuplicateEvidence is the sentinel wrapped by DuplicateEvidenceError
	// so repositories can signal the condition without knowing the existing
	// record id.
	ErrDuplicateEvidence = errors.New("duplicate evidence")

	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// DuplicateEvidenceError reports that finalizing an upload would duplicate
// content already verified in the same case. It is a first-class outcome,
// not a failure to suppress: the caller receives the id of the record that
// already holds the content.
type DuplicateEvidenceError struct {
	CaseID     string
	ExistingID string
	SHA256     string
}

func (e *DuplicateEvidenceError) Error() string {
	return fmt.Sprintf("duplicate content in case %s: already held by record %s", e.CaseID, e.ExistingID)
}

func (e *DuplicateEvidenceError) Unwrap() error {
	return ErrDuplicateEvidence
}
