package token

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Operation mirrors api.Operation without importing the api package, so
// that internal/token stays a leaf package with no dependency on
// internal/api.
type Operation string

const (
	OperationDownload Operation = "download"
	OperationUpload   Operation = "upload"
)

// HTTPError is a client-visible (status, message) pair produced while
// decoding or validating a token. internal/httpapi renders it as the
// standard {"message": ...} shape.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func unauthorized(msg string) *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Message: msg}
}

// Claims is the decoded, not-yet-expiry-checked claim bag returned by a
// Codec. FromHeaders wraps this with the expiry check spec.md §4.2
// requires before any caller reads a claim.
type Claims map[string]string

// FromHeaders extracts the Authorization header, asserts the "Bearer "
// form, decodes the token with codec, and rejects it if exp is absent,
// non-numeric, or not in the future. This is the sole place expiry is
// enforced; Codec.Decode itself never looks at exp.
func FromHeaders(header http.Header, codec *Codec) (Claims, *HTTPError) {
	auth := header.Get("Authorization")
	if auth == "" {
		return nil, unauthorized("Authorization header not found")
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, unauthorized("Failed to parse Authorization header")
	}

	claims, err := codec.Decode(parts[1])
	if err != nil {
		return nil, unauthorized(fmt.Sprintf("Failed to decode jwt token %s", err))
	}

	if isExpired(claims) {
		return nil, unauthorized("Token expired")
	}

	return Claims(claims), nil
}

func isExpired(claims map[string]string) bool {
	exp, ok := claims["exp"]
	if !ok {
		return true
	}
	n, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return true
	}
	return time.Now().Unix() >= n
}

// Get returns a named claim, or a "Claim <name> not found in token" 401.
func (c Claims) Get(name string) (string, *HTTPError) {
	v, ok := c[name]
	if !ok {
		return "", unauthorized(fmt.Sprintf("Claim %s not found in token", name))
	}
	return v, nil
}

// RepoTokenPayload is the decoded claim set backing the batch and locks
// APIs: repo, user, operation, each required, with operation constrained
// to upload/download.
type RepoTokenPayload struct {
	Repo      string
	User      string
	Operation Operation
}

// NewRepoTokenPayload reads repo/user/operation off claims, rejecting an
// operation outside {upload,download}.
func NewRepoTokenPayload(claims Claims) (*RepoTokenPayload, *HTTPError) {
	repo, err := claims.Get("repo")
	if err != nil {
		return nil, err
	}
	user, err := claims.Get("user")
	if err != nil {
		return nil, err
	}
	op, err := claims.Get("operation")
	if err != nil {
		return nil, err
	}
	if op != string(OperationUpload) && op != string(OperationDownload) {
		return nil, unauthorized("Invalid operation claim in token, must be upload or download")
	}
	return &RepoTokenPayload{Repo: repo, User: user, Operation: Operation(op)}, nil
}

// HasAccess reports whether the token's repo matches repo.
func (p *RepoTokenPayload) HasAccess(repo string) bool { return p.Repo == repo }

// HasWriteAccess reports whether the token authorizes upload.
func (p *RepoTokenPayload) HasWriteAccess() bool { return p.Operation == OperationUpload }

// RepoTokenClaims is the wire shape encoded by the repo-token Codec.
type RepoTokenClaims struct {
	Repo      string
	User      string
	Operation Operation
}

// EncodeRepoToken signs a repo-scoped token with codec.
func EncodeRepoToken(codec *Codec, c RepoTokenClaims) (string, error) {
	return codec.Encode(map[string]string{
		"repo":      c.Repo,
		"user":      c.User,
		"operation": string(c.Operation),
	})
}

// LinkTokenClaims is the wire shape encoded/decoded by the link-token
// Codec — it authorizes exactly one proxy-mode transfer of one object.
type LinkTokenClaims struct {
	Repo      string
	Oid       string
	Operation Operation
}

// EncodeLinkToken signs a link-scoped token with codec.
func EncodeLinkToken(codec *Codec, c LinkTokenClaims) (string, error) {
	return codec.Encode(map[string]string{
		"repo":      c.Repo,
		"oid":       c.Oid,
		"operation": string(c.Operation),
	})
}

// DecodeLinkTokenFromHeaders decodes and expiry-checks a link token out
// of an Authorization header, returning its LinkTokenClaims.
func DecodeLinkTokenFromHeaders(header http.Header, codec *Codec) (*LinkTokenClaims, *HTTPError) {
	claims, err := FromHeaders(header, codec)
	if err != nil {
		return nil, err
	}
	repo, err := claims.Get("repo")
	if err != nil {
		return nil, err
	}
	oid, err := claims.Get("oid")
	if err != nil {
		return nil, err
	}
	op, err := claims.Get("operation")
	if err != nil {
		return nil, err
	}
	return &LinkTokenClaims{Repo: repo, Oid: oid, Operation: Operation(op)}, nil
}
