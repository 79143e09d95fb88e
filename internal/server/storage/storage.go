// Package storage is the object-store gateway. It issues time-boxed write
// credentials and reads stored bytes back; no integrity logic lives here.
package storage

import (
	"context"
	"time"
)

// WriteCredential authorizes exactly one upload to one key for a limited
// time. For the S3 gateway the URL is a presigned PUT.
type WriteCredential struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Gateway is the collaborator interface the registry and the replay verifier
// consume. Both operations are reliable-but-fallible: failures propagate as
// typed errors, never as silent empty results.
type Gateway interface {
	IssueWriteCredential(ctx context.Context, key string) (*WriteCredential, error)
	ReadBytes(ctx context.Context, key string) ([]byte, error)
}
