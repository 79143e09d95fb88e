// Package netx holds the HTTP plumbing the upload client needs to exercise a
// write credential issued by the server.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-project/custodia/internal/common"
)

// UploadToPresignedURL PUTs body to a presigned object-store URL. Any
// transport failure or non-2xx response is a transient storage error; the
// retry budget lives with the caller.
func UploadToPresignedURL(ctx context.Context, url, contentType string, body []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: upload: %v", common.ErrTransientStorage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: upload failed: %s; body: %s", common.ErrTransientStorage, resp.Status, string(b))
	}
	return nil
}
