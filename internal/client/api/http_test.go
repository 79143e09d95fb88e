package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-project/custodia/internal/common"
)

func TestInitUpload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/evidence/init", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))

		var body initUploadBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "case1", body.CaseID)
		assert.Equal(t, int64(42), body.SizeBytes)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(initUploadReply{
			Evidence: &Evidence{ID: "ev1", CaseID: "case1", Status: "pending"},
			Credential: &UploadTarget{
				Key: "case1/ev1", URL: "http://upload.example/ev1", ExpiresAt: time.Now().Add(time.Minute),
			},
		})
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "token123")

	res, err := client.InitUpload(context.Background(), &InitUploadRequest{
		CaseID: "case1", Filename: "a.bin", SizeBytes: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "ev1", res.Evidence.ID)
	assert.Equal(t, "case1/ev1", res.Credential.Key)
	assert.NotEmpty(t, res.Credential.URL)
}

func TestCompleteUpload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/evidence/ev1/complete", r.URL.Path)

		var body completeUploadBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", body.SHA256)

		_ = json.NewEncoder(w).Encode(evidenceReply{
			Evidence: &Evidence{ID: "ev1", Status: "verified", SHA256: body.SHA256},
		})
	}))
	defer ts.Close()

	client := NewHTTPClient(ts.URL, "token123")

	ev, err := client.CompleteUpload(context.Background(), "ev1",
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	require.NoError(t, err)
	assert.Equal(t, "verified", ev.Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"validation", http.StatusBadRequest, `{"error":"bad filename"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), "bad filename")
		}},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid token"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrUnauthorized)
		}},
		{"not found", http.StatusNotFound, `{"error":"no such evidence"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrNotFound)
		}},
		{"duplicate", http.StatusConflict, `{"error":"duplicate content","existing_id":"ev9","sha256":"abc"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrDuplicateEvidence)
			var dup *common.DuplicateEvidenceError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, "ev9", dup.ExistingID)
		}},
		{"hash mismatch", http.StatusUnprocessableEntity, `{"error":"hash mismatch"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrHashMismatch)
		}},
		{"bad gateway", http.StatusBadGateway, `{"error":"storage down"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrTransientStorage)
		}},
		{"internal error", http.StatusInternalServerError, `{"error":"internal error"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, common.ErrTransientStorage)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := NewHTTPClient(ts.URL, "token123")
			_, err := client.InitUpload(context.Background(), &InitUploadRequest{CaseID: "case1", Filename: "a", SizeBytes: 1})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	client := NewHTTPClient(ts.URL, "token123")
	_, err := client.InitUpload(context.Background(), &InitUploadRequest{CaseID: "case1", Filename: "a", SizeBytes: 1})
	assert.ErrorIs(t, err, common.ErrTransientStorage)
}
