package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventUploadInit       EventType = "UPLOAD_INIT"
	EventUploadComplete   EventType = "UPLOAD_COMPLETE"
	EventHashVerified     EventType = "HASH_VERIFIED"
	EventHashMismatch     EventType = "HASH_MISMATCH"
	EventManifestExported EventType = "MANIFEST_EXPORTED"
	EventReplayRun        EventType = "REPLAY_RUN"
)

// AuditEvent is one immutable fact about a case's evidence lifecycle. The
// audit stream is append-only: no update or delete exists anywhere in the
// codebase, and within a case created_at never decreases.
type AuditEvent struct {
	ID        string          `json:"id"`
	CaseID    string          `json:"case_id"`
	EventType EventType       `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
