package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/server/models"
	"github.com/custodia-project/custodia/internal/server/services"
	"github.com/custodia-project/custodia/internal/server/storage"
)

type initUploadRequest struct {
	CaseID      string `json:"case_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

type initUploadResponse struct {
	Evidence   *models.EvidenceRecord   `json:"evidence"`
	Credential *storage.WriteCredential `json:"credential"`
}

type completeUploadRequest struct {
	SHA256 string `json:"sha256,omitempty"`
}

type evidenceResponse struct {
	Evidence *models.EvidenceRecord `json:"evidence"`
}

type evidenceListResponse struct {
	Evidence []*models.EvidenceRecord `json:"evidence"`
}

type errorResponse struct {
	Error      string `json:"error"`
	ExistingID string `json:"existing_id,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
}

func (s *Server) handleInitUpload(w http.ResponseWriter, r *http.Request) {
	var req initUploadRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.evidence.InitUpload(r.Context(), Actor(r.Context()), &services.InitUploadRequest{
		CaseID:      req.CaseID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, initUploadResponse{Evidence: res.Record, Credential: res.Credential})
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req completeUploadRequest
	if !s.decode(w, r, &req) {
		return
	}

	rec, err := s.evidence.CompleteUpload(r.Context(), Actor(r.Context()), r.PathValue("id"),
		hashing.ClientAssertedHash(req.SHA256))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, evidenceResponse{Evidence: rec})
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	list, err := s.evidence.ListEvidence(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.EvidenceRecord{}
	}

	s.writeJSON(w, r, http.StatusOK, evidenceListResponse{Evidence: list})
}

func (s *Server) handleExportManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest.Export(r.Context(), Actor(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, m)
}

func (s *Server) handleVerifyManifest(w http.ResponseWriter, r *http.Request) {
	var m models.Manifest
	if !s.decode(w, r, &m) {
		return
	}

	res, err := s.manifest.Verify(r.Context(), &m)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	report, err := s.replay.Replay(r.Context(), Actor(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, report)
}

// decode reads a size-limited JSON body into dst, reporting a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the error taxonomy onto HTTP status codes. Duplicate
// content is a 409 that names the record already holding the bytes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *common.DuplicateEvidenceError
	if errors.As(err, &dup) {
		s.writeJSON(w, r, http.StatusConflict, errorResponse{
			Error:      "duplicate content",
			ExistingID: dup.ExistingID,
			SHA256:     dup.SHA256,
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrValidation):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrHashMismatch):
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		s.writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrTransientStorage):
		s.writeError(w, r, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error(r.Context(), "internal error", "path", r.URL.Path, "error", err.Error())
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(r.Context(), "failed to write response", "error", err.Error())
	}
}
