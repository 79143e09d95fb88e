// Package models defines the persistent data model of the evidence
// registry: evidence records, audit events and manifests.
package models

import (
	"time"

	"github.com/custodia-project/custodia/internal/hashing"
)

type EvidenceStatus string

const (
	// EvidencePending marks a record created by init whose content has not
	// been verified yet. Its SHA256 is empty by invariant.
	EvidencePending EvidenceStatus = "pending"

	// EvidenceVerified marks a record whose digest was recomputed
	// server-side from stored bytes. The transition happens exactly once.
	EvidenceVerified EvidenceStatus = "verified"
)

// EvidenceRecord represents one ingested file. Records are append-only with
// respect to content: once verified, neither the bytes nor the digest ever
// change.
type EvidenceRecord struct {
	ID               string                     `json:"id"`
	CaseID           string                     `json:"case_id"`
	OriginalFilename string                     `json:"original_filename"`
	ContentType      string                     `json:"content_type"`
	SizeBytes        int64                      `json:"size_bytes"`
	StorageKey       string                     `json:"storage_key"`
	SHA256           hashing.ServerVerifiedHash `json:"sha256,omitempty"`
	Status           EvidenceStatus             `json:"status"`
	UploadedAt       time.Time                  `json:"uploaded_at"`
	VerifiedAt       *time.Time                 `json:"verified_at,omitempty"`
}
