// Package hashing computes SHA-256 content digests and encodes the trust
// boundary around them in the type system: a ClientAssertedHash is computed
// outside the server and is informational only, while a ServerVerifiedHash
// can only come from server-side recomputation over stored bytes. The two
// are deliberately not interchangeable.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/custodia-project/custodia/internal/common"
)

// ClientAssertedHash is a digest computed on the client before upload. It is
// used for progress reporting and pre-flight checks and is never stored as
// the record's digest.
type ClientAssertedHash string

// ServerVerifiedHash is a digest the server recomputed from bytes it read
// back from the object store. Only SumVerified produces one, and only it may
// populate EvidenceRecord.SHA256.
type ServerVerifiedHash string

func (h ServerVerifiedHash) String() string { return string(h) }

// Sum streams r through SHA-256 and returns the lowercase hex digest. A read
// failure surfaces as ErrHashing, never as a partial digest.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHashing, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumVerified digests bytes the server read back from storage.
func SumVerified(b []byte) ServerVerifiedHash {
	d := sha256.Sum256(b)
	return ServerVerifiedHash(hex.EncodeToString(d[:]))
}

// Result delivers the outcome of an asynchronous hash computation.
type Result struct {
	Digest ClientAssertedHash
	Err    error
}

// SumAsync hashes r in its own goroutine so the calling goroutine stays
// responsive while large files are digested. The single result is delivered
// on the returned buffered channel; the caller typically selects on it
// together with its context.
func SumAsync(r io.Reader) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		d, err := Sum(r)
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Digest: ClientAssertedHash(d)}
	}()
	return ch
}
