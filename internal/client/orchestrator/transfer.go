package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"os"
	"path/filepath"

	"github.com/custodia-project/custodia/internal/client/api"
	"github.com/custodia-project/custodia/internal/common"
	"github.com/custodia-project/custodia/internal/filex"
	"github.com/custodia-project/custodia/internal/hashing"
	"github.com/custodia-project/custodia/internal/netx"
)

// processFile runs one file through the transfer lifecycle. The digest is
// computed before anything touches the network, so the complete step can
// assert what the bytes were at the moment of reading.
func (o *Orchestrator) processFile(ctx context.Context, path string) Result {
	res := Result{Path: path}

	o.transition(&res, StateHashing)

	b, err := os.ReadFile(path)
	if err != nil {
		return o.fail(ctx, &res, err)
	}

	var digest hashing.ClientAssertedHash
	select {
	case <-ctx.Done():
		return o.fail(ctx, &res, ctx.Err())
	case hr := <-hashing.SumAsync(bytes.NewReader(b)):
		if hr.Err != nil {
			return o.fail(ctx, &res, hr.Err)
		}
		digest = hr.Digest
	}
	res.SHA256 = string(digest)

	filename, err := filex.SanitizeFilename(filepath.Base(path))
	if err != nil {
		return o.fail(ctx, &res, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(filename))

	o.transition(&res, StateInitializing)

	initReq := &api.InitUploadRequest{
		CaseID:      o.caseID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(b)),
	}

	var init *api.InitUploadResult
	err = o.retry.Do(ctx, func() error {
		var ierr error
		init, ierr = o.client.InitUpload(ctx, initReq)
		return ierr
	})
	if err != nil {
		return o.fail(ctx, &res, err)
	}
	res.EvidenceID = init.Evidence.ID

	o.transition(&res, StateUploading)

	err = o.retry.Do(ctx, func() error {
		if !init.Credential.ExpiresAt.IsZero() && o.now().After(init.Credential.ExpiresAt) {
			// credential went stale between attempts; a fresh init issues a
			// new one and the old pending record is simply abandoned
			fresh, ierr := o.client.InitUpload(ctx, initReq)
			if ierr != nil {
				return ierr
			}
			init = fresh
			res.EvidenceID = fresh.Evidence.ID
		}
		return netx.UploadToPresignedURL(ctx, init.Credential.URL, contentType, b)
	})
	if err != nil {
		return o.fail(ctx, &res, err)
	}

	o.transition(&res, StateCompleting)

	var ev *api.Evidence
	err = o.retry.Do(ctx, func() error {
		var cerr error
		ev, cerr = o.client.CompleteUpload(ctx, res.EvidenceID, digest)
		return cerr
	})
	if err != nil {
		var dup *common.DuplicateEvidenceError
		if errors.As(err, &dup) {
			res.State = StateDuplicate
			res.ExistingID = dup.ExistingID
			res.Err = err
			o.pub.publish(Event{Path: path, State: StateDuplicate, EvidenceID: res.EvidenceID,
				SHA256: res.SHA256, ExistingID: dup.ExistingID, Err: err})
			o.logger.Info(ctx, "duplicate content", "path", path, "existing_id", dup.ExistingID)
			return res
		}
		return o.fail(ctx, &res, err)
	}

	res.State = StateVerified
	res.SHA256 = ev.SHA256
	o.pub.publish(Event{Path: path, State: StateVerified, EvidenceID: res.EvidenceID, SHA256: res.SHA256})
	o.logger.Info(ctx, "evidence verified", "path", path, "evidence_id", res.EvidenceID, "sha256", res.SHA256)

	return res
}

func (o *Orchestrator) transition(res *Result, s State) {
	res.State = s
	o.pub.publish(Event{Path: res.Path, State: s, EvidenceID: res.EvidenceID, SHA256: res.SHA256})
}

func (o *Orchestrator) fail(ctx context.Context, res *Result, err error) Result {
	res.State = StateFailed
	res.Err = err
	o.pub.publish(Event{Path: res.Path, State: StateFailed, EvidenceID: res.EvidenceID, SHA256: res.SHA256, Err: err})
	o.logger.Error(ctx, "transfer failed", "path", res.Path, "error", err.Error())
	return *res
}
