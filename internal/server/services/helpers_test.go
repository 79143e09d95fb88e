package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/logging"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/repositories/repomanager"
	"github.com/custodia-project/custodia/internal/server/storage"
)

type testEnv struct {
	manager  *repomanager.InMemoryRepositoryManager
	gateway  *storage.MemoryGateway
	evidence *EvidenceService
	manifest *ManifestService
	replay   *ReplayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	manager := repomanager.NewInMemoryRepositoryManager()
	gateway := storage.NewMemoryGateway(time.Minute)
	clock := NewMonotonicClock()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	manifest, err := NewManifestService(nil, manager, "test-secret", clock, logger)
	require.NoError(t, err)

	return &testEnv{
		manager:  manager,
		gateway:  gateway,
		evidence: NewEvidenceService(nil, manager, gateway, clock, logger, 1<<20),
		manifest: manifest,
		replay:   NewReplayService(nil, manager, gateway, clock, logger, 2),
	}
}

// initUpload registers a record and stores the content, stopping short of
// complete so tests can drive the finalize step themselves.
func (e *testEnv) initUpload(t *testing.T, caseID, filename string, content []byte) *InitUploadResult {
	t.Helper()

	res, err := e.evidence.InitUpload(context.Background(), "tester", &InitUploadRequest{
		CaseID:    caseID,
		Filename:  filename,
		SizeBytes: int64(len(content)),
	})
	require.NoError(t, err)

	e.gateway.Put(res.Credential.Key, content)
	return res
}

// upload runs the full two-phase ingest for the given content.
func (e *testEnv) upload(t *testing.T, caseID, filename string, content []byte) *models.EvidenceRecord {
	t.Helper()

	res := e.initUpload(t, caseID, filename, content)
	rec, err := e.evidence.CompleteUpload(context.Background(), "tester", res.Record.ID, assertedSum(t, content))
	require.NoError(t, err)
	return rec
}

func (e *testEnv) events(t *testing.T, caseID string) []*models.AuditEvent {
	t.Helper()

	list, err := e.manager.Audit(nil).ListByCase(context.Background(), caseID)
	require.NoError(t, err)
	return list
}

func eventsOfType(events []*models.AuditEvent, et models.EventType) []*models.AuditEvent {
	var out []*models.AuditEvent
	for _, ev := range events {
		if ev.EventType == et {
			out = append(out, ev)
		}
	}
	return out
}

func assertedSum(t *testing.T, content []byte) hashing.ClientAssertedHash {
	t.Helper()

	d, err := hashing.Sum(bytes.NewReader(content))
	require.NoError(t, err)
	return hashing.ClientAssertedHash(d)
}
