package models

import "time"

// CaseSnapshot is the case metadata captured inside a manifest.
type CaseSnapshot struct {
	ID            string `json:"id"`
	EvidenceCount int    `json:"evidence_count"`
	EventCount    int    `json:"event_count"`
}

// ManifestPayload is the signed portion of a manifest. Its canonical
// serialization is the stdlib JSON encoding: struct fields encode in
// declaration order and no maps are involved, so the same logical content
// always produces the same bytes.
type ManifestPayload struct {
	Case     CaseSnapshot      `json:"case"`
	Evidence []*EvidenceRecord `json:"evidence"`
	Audit    []*AuditEvent     `json:"audit"`
}

// Manifest is a point-in-time, signed projection of one case. ManifestSHA256
// and ManifestHMAC cover the canonical bytes of the payload fields only;
// GeneratedAt and ExportedBy ride outside the signature so verification
// depends solely on case content.
type Manifest struct {
	Case     CaseSnapshot      `json:"case"`
	Evidence []*EvidenceRecord `json:"evidence"`
	Audit    []*AuditEvent     `json:"audit"`

	ManifestSHA256 string `json:"manifest_sha256"`
	ManifestHMAC   string `json:"manifest_hmac"`

	GeneratedAt time.Time `json:"generated_at"`
	ExportedBy  string    `json:"exported_by,omitempty"`
}

// Payload extracts the signed fields for recomputation during verify.
func (m *Manifest) Payload() ManifestPayload {
	return ManifestPayload{Case: m.Case, Evidence: m.Evidence, Audit: m.Audit}
}
