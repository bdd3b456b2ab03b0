// Package signer implements the two LinkSigner strategies (C4): custom
// (proxy) links signed with an HMAC-SHA256 link token, and S3-compatible
// presigned URLs.
package signer

import (
	"context"
	"net/http"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// LinkSigner produces presigned download/upload actions for an object
// and verifies inbound link-scoped requests against the proxy endpoint.
// Signing may call out to the object store, so it takes the request's
// context; CheckLink is a purely local token verification.
type LinkSigner interface {
	GetPresignedLink(ctx context.Context, meta storage.MetaResult) (api.ObjectAction, error)
	PostPresignedLink(ctx context.Context, meta storage.MetaResult, size uint32) (upload api.ObjectAction, verify *api.ObjectAction, err error)
	CheckLink(repo, oid string, header http.Header, op token.Operation) bool
}
