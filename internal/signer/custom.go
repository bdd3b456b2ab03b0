package signer

import (
	"context"
	"fmt"
	"net/http"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// Custom is the proxy-mode LinkSigner: both download and upload links
// point at <host>/<repo>/objects/access/<oid>, which an upstream reverse
// proxy maps onto this server's /objects/access/<oid>?repo=<repo> endpoint,
// carrying a link token whose claims pin the exact (repo, oid,
// operation) triple the proxy endpoint must match. Grounded on the
// original's CustomLinkSigner (services/custom_link_signer.rs).
type Custom struct {
	host  string
	codec *token.Codec
}

// NewCustom builds a Custom signer against the publicly reachable
// CUSTOM_SIGNER_HOST and the link-token codec.
func NewCustom(host string, codec *token.Codec) *Custom {
	return &Custom{host: host, codec: codec}
}

func (s *Custom) link(repo, oid string) string {
	return fmt.Sprintf("%s/%s/objects/access/%s", s.host, repo, oid)
}

func (s *Custom) sign(repo, oid string, op token.Operation) (string, error) {
	return token.EncodeLinkToken(s.codec, token.LinkTokenClaims{Repo: repo, Oid: oid, Operation: op})
}

// GetPresignedLink mints a download-scoped link token. Signing is
// local; the context is accepted for interface uniformity.
func (s *Custom) GetPresignedLink(ctx context.Context, meta storage.MetaResult) (api.ObjectAction, error) {
	tok, err := s.sign(meta.Repo, meta.Oid, token.OperationDownload)
	if err != nil {
		return api.ObjectAction{}, fmt.Errorf("sign download link: %w", err)
	}
	return api.ObjectAction{
		Href:      s.link(meta.Repo, meta.Oid),
		Header:    map[string]string{"Authorization": "Bearer " + tok},
		ExpiresIn: 3600,
	}, nil
}

// PostPresignedLink mints an upload-scoped link token. The custom
// strategy never produces a verify action.
func (s *Custom) PostPresignedLink(ctx context.Context, meta storage.MetaResult, size uint32) (api.ObjectAction, *api.ObjectAction, error) {
	tok, err := s.sign(meta.Repo, meta.Oid, token.OperationUpload)
	if err != nil {
		return api.ObjectAction{}, nil, fmt.Errorf("sign upload link: %w", err)
	}
	return api.ObjectAction{
		Href:      s.link(meta.Repo, meta.Oid),
		Header:    map[string]string{"Authorization": "Bearer " + tok},
		ExpiresIn: 3600,
	}, nil, nil
}

// CheckLink decodes the Authorization header's link token and asserts
// its repo/oid/operation all match the request exactly.
func (s *Custom) CheckLink(repo, oid string, header http.Header, op token.Operation) bool {
	claims, err := token.DecodeLinkTokenFromHeaders(header, s.codec)
	if err != nil {
		return false
	}
	return claims.Repo == repo && claims.Oid == oid && claims.Operation == op
}
