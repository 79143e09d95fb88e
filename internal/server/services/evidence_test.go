package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/server/models"
)

const helloTestSHA256 = "25ed92417af3bbda3761ca1cb87210cad5f9116fd9b0d502b01c36522ffa4463"

func TestInitUpload_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *InitUploadRequest
	}{
		{"empty case id", &InitUploadRequest{Filename: "a.bin", SizeBytes: 1}},
		{"empty filename", &InitUploadRequest{CaseID: "case1", SizeBytes: 1}},
		{"zero size", &InitUploadRequest{CaseID: "case1", Filename: "a.bin"}},
		{"negative size", &InitUploadRequest{CaseID: "case1", Filename: "a.bin", SizeBytes: -1}},
		{"oversized", &InitUploadRequest{CaseID: "case1", Filename: "a.bin", SizeBytes: (1 << 20) + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.evidence.InitUpload(ctx, "tester", tt.req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestInitUpload_SanitizesFilename(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.evidence.InitUpload(context.Background(), "tester", &InitUploadRequest{
		CaseID:    "case1",
		Filename:  "/tmp/uploads/report.pdf",
		SizeBytes: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Record.OriginalFilename)
}

func TestInitUpload_CreatesPendingRecordAndEvent(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.evidence.InitUpload(context.Background(), "agent-7", &InitUploadRequest{
		CaseID:      "case1",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   42,
	})
	require.NoError(t, err)

	rec := res.Record
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.EvidencePending, rec.Status)
	assert.Empty(t, rec.SHA256)
	assert.Nil(t, rec.VerifiedAt)
	assert.Equal(t, "cases/case1/"+rec.ID, rec.StorageKey)

	require.NotNil(t, res.Credential)
	assert.Equal(t, rec.StorageKey, res.Credential.Key)
	assert.NotEmpty(t, res.Credential.URL)
	assert.False(t, res.Credential.ExpiresAt.IsZero())

	events := env.events(t, "case1")
	require.Len(t, events, 1)
	assert.Equal(t, models.EventUploadInit, events[0].EventType)

	var p uploadInitPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &p))
	assert.Equal(t, rec.ID, p.EvidenceID)
	assert.Equal(t, "agent-7", p.Actor)
}

func TestInitUpload_DefaultsContentType(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.evidence.InitUpload(context.Background(), "tester", &InitUploadRequest{
		CaseID:    "case1",
		Filename:  "blob",
		SizeBytes: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", res.Record.ContentType)
}

func TestCompleteUpload_VerifiesContent(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello test")

	rec := env.upload(t, "case1", "hello.txt", content)

	assert.Equal(t, models.EvidenceVerified, rec.Status)
	assert.Equal(t, hashing.ServerVerifiedHash(helloTestSHA256), rec.SHA256)
	require.NotNil(t, rec.VerifiedAt)
	assert.False(t, rec.VerifiedAt.Before(rec.UploadedAt))

	events := env.events(t, "case1")
	require.Len(t, events, 3)
	assert.Equal(t, models.EventUploadInit, events[0].EventType)
	assert.Equal(t, models.EventUploadComplete, events[1].EventType)
	assert.Equal(t, models.EventHashVerified, events[2].EventType)

	var p hashVerifiedPayload
	require.NoError(t, json.Unmarshal(events[2].Payload, &p))
	assert.Equal(t, helloTestSHA256, p.SHA256)
	assert.False(t, p.Duplicate)
}

func TestCompleteUpload_EmptyAssertedDigestStillVerifies(t *testing.T) {
	env := newTestEnv(t)
	res := env.initUpload(t, "case1", "hello.txt", []byte("hello test"))

	rec, err := env.evidence.CompleteUpload(context.Background(), "tester", res.Record.ID, "")
	require.NoError(t, err)
	assert.Equal(t, hashing.ServerVerifiedHash(helloTestSHA256), rec.SHA256)
}

func TestCompleteUpload_HashMismatch(t *testing.T) {
	env := newTestEnv(t)
	res := env.initUpload(t, "case1", "hello.txt", []byte("hello test"))

	_, err := env.evidence.CompleteUpload(context.Background(), "tester", res.Record.ID,
		hashing.ClientAssertedHash("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
	assert.ErrorIs(t, err, common.ErrHashMismatch)

	// the record stays pending, the stream records the mismatch
	rec, err := env.manager.Evidence(nil).GetByID(context.Background(), res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvidencePending, rec.Status)
	assert.Empty(t, rec.SHA256)

	mismatches := eventsOfType(env.events(t, "case1"), models.EventHashMismatch)
	require.Len(t, mismatches, 1)

	var p hashMismatchPayload
	require.NoError(t, json.Unmarshal(mismatches[0].Payload, &p))
	assert.Equal(t, helloTestSHA256, p.Computed)
}

func TestCompleteUpload_MissingObject(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.evidence.InitUpload(context.Background(), "tester", &InitUploadRequest{
		CaseID:    "case1",
		Filename:  "lost.bin",
		SizeBytes: 4,
	})
	require.NoError(t, err)

	_, err = env.evidence.CompleteUpload(context.Background(), "tester", res.Record.ID, "")
	assert.ErrorIs(t, err, common.ErrTransientStorage)

	rec, err := env.manager.Evidence(nil).GetByID(context.Background(), res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvidencePending, rec.Status)
}

func TestCompleteUpload_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.evidence.CompleteUpload(context.Background(), "tester", "missing", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCompleteUpload_DuplicateContentSameCase(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello test")

	first := env.upload(t, "case1", "original.txt", content)

	second := env.initUpload(t, "case1", "copy.txt", content)
	_, err := env.evidence.CompleteUpload(context.Background(), "tester", second.Record.ID, assertedSum(t, content))

	assert.ErrorIs(t, err, common.ErrDuplicateEvidence)

	var dup *common.DuplicateEvidenceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.Equal(t, "case1", dup.CaseID)
	assert.Equal(t, helloTestSHA256, dup.SHA256)

	// the duplicate attempt stays pending; the stream records a duplicated verification
	rec, err := env.manager.Evidence(nil).GetByID(context.Background(), second.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EvidencePending, rec.Status)

	verifications := eventsOfType(env.events(t, "case1"), models.EventHashVerified)
	require.Len(t, verifications, 2)

	var p hashVerifiedPayload
	require.NoError(t, json.Unmarshal(verifications[1].Payload, &p))
	assert.True(t, p.Duplicate)
	assert.Equal(t, first.ID, p.ExistingID)
}

func TestCompleteUpload_SameContentDifferentCases(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello test")

	a := env.upload(t, "case1", "a.txt", content)
	b := env.upload(t, "case2", "b.txt", content)

	assert.Equal(t, a.SHA256, b.SHA256)
	assert.Equal(t, models.EvidenceVerified, b.Status)
}

func TestCompleteUpload_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello test")

	rec := env.upload(t, "case1", "hello.txt", content)

	again, err := env.evidence.CompleteUpload(context.Background(), "tester", rec.ID, assertedSum(t, content))
	require.NoError(t, err)
	assert.Equal(t, rec.SHA256, again.SHA256)
	assert.True(t, again.VerifiedAt.Equal(*rec.VerifiedAt))

	// no second round of events
	assert.Len(t, env.events(t, "case1"), 3)
}

func TestCompleteUpload_IdempotentRejectsDifferentDigest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "case1", "hello.txt", []byte("hello test"))

	_, err := env.evidence.CompleteUpload(context.Background(), "tester", rec.ID,
		hashing.ClientAssertedHash("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
	assert.ErrorIs(t, err, common.ErrHashMismatch)
}

func TestCompleteUpload_ConcurrentCompletes(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("hello test")
	res := env.initUpload(t, "case1", "hello.txt", content)
	asserted := assertedSum(t, content)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.evidence.CompleteUpload(context.Background(), "tester", res.Record.ID, asserted)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "complete %d", i)
	}

	// exactly one verification made it into the stream
	events := env.events(t, "case1")
	assert.Len(t, eventsOfType(events, models.EventHashVerified), 1)
	assert.Len(t, eventsOfType(events, models.EventUploadComplete), 1)
}

func TestListEvidence(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.evidence.ListEvidence(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrValidation)

	list, err := env.evidence.ListEvidence(context.Background(), "empty-case")
	require.NoError(t, err)
	assert.Empty(t, list)

	for i := 0; i < 3; i++ {
		env.upload(t, "case1", fmt.Sprintf("f%d.bin", i), []byte(fmt.Sprintf("content %d", i)))
	}

	list, err = env.evidence.ListEvidence(context.Background(), "case1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
