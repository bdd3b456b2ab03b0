// Package batch implements the BatchEngine (C7): per-object
// download/upload/not-found resolution for POST /objects/batch.
package batch

import (
	"context"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/signer"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// HTTPError is a client-visible (status, message) pair raised while
// validating a batch request, distinct from the per-object errors that
// ride inside an otherwise-200 response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// Engine resolves a batch request against a MetaRequester and
// LinkSigner pair, in the input object order, preserving that order in
// the response (spec.md §4.7, §5).
type Engine struct {
	Meta   storage.MetaRequester
	Signer signer.LinkSigner
}

// NewEngine builds an Engine over the given backends.
func NewEngine(meta storage.MetaRequester, s signer.LinkSigner) *Engine {
	return &Engine{Meta: meta, Signer: s}
}

// Resolve validates req against repo/tokenPayload and produces the
// batch response, resolving each object independently so a per-object
// signer failure never fails its siblings (spec.md §7).
func (e *Engine) Resolve(ctx context.Context, repo string, tokenPayload *token.RepoTokenPayload, req api.BatchRequest) (api.BatchResponse, *HTTPError) {
	// 1) Access sufficiency: a download-only token may not request upload.
	if !tokenPayload.HasWriteAccess() && req.Operation == api.OperationUpload {
		return api.BatchResponse{}, &HTTPError{Status: 403, Message: "You only have read access to this repository"}
	}

	// 2) Repo in query must match the token's repo.
	if !tokenPayload.HasAccess(repo) {
		return api.BatchResponse{}, &HTTPError{Status: 401, Message: "Unauthorized"}
	}

	// 3) Hash algo must be sha256.
	if req.HashAlgo != api.HashAlgorithmSha256 {
		return api.BatchResponse{}, &HTTPError{Status: 422, Message: "Invalid hash algo, only sha256 is supported"}
	}

	// 4) Transfer acceptance: absent or containing basic is OK.
	if len(req.Transfers) > 0 && !req.HasTransfer(api.TransferBasic) {
		return api.BatchResponse{}, &HTTPError{Status: 501, Message: "Only basic transfer is supported"}
	}

	objects := make([]api.ObjectRecord, len(req.Objects))
	for i, obj := range req.Objects {
		objects[i] = e.resolveObject(ctx, repo, obj, req.Operation)
	}

	return api.BatchResponse{
		Transfer: string(api.TransferBasic),
		Objects:  objects,
		HashAlgo: string(api.HashAlgorithmSha256),
	}, nil
}

func (e *Engine) resolveObject(ctx context.Context, repo string, obj api.ObjectIdentity, op api.Operation) api.ObjectRecord {
	record := api.ObjectRecord{OID: obj.OID, Size: obj.Size}

	meta, err := e.Meta.GetMetaResult(ctx, repo, obj.OID)
	if err != nil {
		record.Error = &api.ObjectError{Message: "Not found"}
		return record
	}

	if meta.Exists {
		// An existing object cannot be re-uploaded; surfaced as
		// downloadable regardless of the requested operation.
		download, err := e.Signer.GetPresignedLink(ctx, meta)
		if err != nil {
			record.Error = &api.ObjectError{Message: err.Error()}
			return record
		}
		record.Actions = &api.ObjectActions{Download: &download}
		return record
	}

	if op == api.OperationUpload {
		upload, verify, err := e.Signer.PostPresignedLink(ctx, meta, obj.Size)
		if err != nil {
			record.Error = &api.ObjectError{Message: err.Error()}
			return record
		}
		record.Actions = &api.ObjectActions{Upload: &upload, Verify: verify}
		return record
	}

	record.Error = &api.ObjectError{Message: "Not found"}
	return record
}
