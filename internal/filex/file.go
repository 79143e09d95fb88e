// Package filex contains filename handling for evidence ingestion. Raw
// filenames cross a trust boundary twice (client to server, server to
// storage key derivation) and are sanitized on the way in and re-validated
// on the server.
package filex

import (
	"fmt"
	"strings"

	"github.com/custodia-project/custodia/internal/common"
)

const maxFilenameLen = 255

// SanitizeFilename reduces a raw filename to its last path element, strips
// control characters, and rejects traversal names. The result is safe to
// transmit as an original_filename; it is never used verbatim as a storage
// key.
func SanitizeFilename(name string) (string, error) {
	// keep only the last path element, for both separator conventions
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())

	// neutralize traversal sequences that survived the basename cut
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "_")
	}

	if name == "" || name == "." {
		return "", fmt.Errorf("%w: empty or traversal filename", common.ErrValidation)
	}
	if len(name) > maxFilenameLen {
		return "", fmt.Errorf("%w: filename exceeds %d bytes", common.ErrValidation, maxFilenameLen)
	}

	return name, nil
}

// ValidFilename reports whether a filename is acceptable as-is: already
// sanitized, with no separators, traversal sequences or control characters.
// The server applies this to every init request and never trusts the client
// to have called SanitizeFilename.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > maxFilenameLen {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
