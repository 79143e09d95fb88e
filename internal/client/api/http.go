package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/hashing"
)

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type initUploadBody struct {
	CaseID      string `json:"case_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

type initUploadReply struct {
	Evidence   *Evidence     `json:"evidence"`
	Credential *UploadTarget `json:"credential"`
}

type completeUploadBody struct {
	SHA256 string `json:"sha256,omitempty"`
}

type evidenceReply struct {
	Evidence *Evidence `json:"evidence"`
}

type errorReply struct {
	Error      string `json:"error"`
	ExistingID string `json:"existing_id,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
}

func (c *HTTPClient) InitUpload(ctx context.Context, req *InitUploadRequest) (*InitUploadResult, error) {
	var reply initUploadReply
	err := c.post(ctx, "/api/evidence/init", initUploadBody{
		CaseID:      req.CaseID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	}, &reply)
	if err != nil {
		return nil, err
	}

	return &InitUploadResult{Evidence: reply.Evidence, Credential: reply.Credential}, nil
}

func (c *HTTPClient) CompleteUpload(ctx context.Context, evidenceID string, sha hashing.ClientAssertedHash) (*Evidence, error) {
	var reply evidenceReply
	err := c.post(ctx, "/api/evidence/"+evidenceID+"/complete", completeUploadBody{SHA256: string(sha)}, &reply)
	if err != nil {
		return nil, err
	}
	return reply.Evidence, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransientStorage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return decodeError(resp)
}

// decodeError maps response statuses back onto the shared error taxonomy, so
// callers handle API failures exactly like local ones.
func decodeError(resp *http.Response) error {
	var reply errorReply
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &reply)

	msg := reply.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrValidation, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	case http.StatusConflict:
		return &common.DuplicateEvidenceError{ExistingID: reply.ExistingID, SHA256: reply.SHA256}
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", common.ErrHashMismatch, msg)
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", common.ErrTransientStorage, msg)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
