package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-project/custodia/internal/common"
)

// MemoryGateway stores objects in process memory. It backs tests and
// DSN-less local runs; the credentials it issues carry mem:// URLs that the
// test harness resolves by calling Put directly.
type MemoryGateway struct {
	mu      sync.RWMutex
	objects map[string][]byte
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryGateway(ttl time.Duration) *MemoryGateway {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryGateway{
		objects: make(map[string][]byte),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (g *MemoryGateway) IssueWriteCredential(ctx context.Context, key string) (*WriteCredential, error) {
	return &WriteCredential{
		Key:       key,
		URL:       "mem://" + key,
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}

func (g *MemoryGateway) ReadBytes(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	b, ok := g.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s not found", common.ErrTransientStorage, key)
	}

	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Put writes object bytes directly, standing in for the presigned upload.
// Tests also use it to simulate out-of-band tampering.
func (g *MemoryGateway) Put(key string, b []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored := make([]byte, len(b))
	copy(stored, b)
	g.objects[key] = stored
}
