// Package api is the client-side view of the registry's HTTP API.
package api

import (
	"context"
	"time"

	"github.com/custodia-project/custodia/internal/hashing"
)

// Evidence mirrors the server's evidence record as seen over the wire.
type Evidence struct {
	ID               string     `json:"id"`
	CaseID           string     `json:"case_id"`
	OriginalFilename string     `json:"original_filename"`
	ContentType      string     `json:"content_type"`
	SizeBytes        int64      `json:"size_bytes"`
	SHA256           string     `json:"sha256,omitempty"`
	Status           string     `json:"status"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
}

// UploadTarget is the write credential returned by init: one key, one
// presigned URL, one deadline.
type UploadTarget struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type InitUploadRequest struct {
	CaseID      string
	Filename    string
	ContentType string
	SizeBytes   int64
}

type InitUploadResult struct {
	Evidence   *Evidence
	Credential *UploadTarget
}

// Client talks to the registry. Errors carry the shared taxonomy so the
// orchestrator can decide between retrying, reporting a duplicate and
// giving up.
type Client interface {
	InitUpload(ctx context.Context, req *InitUploadRequest) (*InitUploadResult, error)
	CompleteUpload(ctx context.Context, evidenceID string, sha hashing.ClientAssertedHash) (*Evidence, error)
}
