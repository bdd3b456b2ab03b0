// Package httpapi is the HTTP surface of the LFS server: route
// registration, request extraction and validation, response rendering,
// and the error-shape normalization middleware.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lfs-gateway/internal/locks"
	"lfs-gateway/internal/logging"
	"lfs-gateway/internal/signer"
	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

const lfsMediaType = "application/vnd.git-lfs+json"

// Services bundles the backend capabilities the handlers dispatch to.
// Proxy is nil outside proxy mode (its routes aren't mounted); Locks is
// nil when no locks backend was configured (its routes answer 501).
type Services struct {
	Meta       storage.MetaRequester
	Signer     signer.LinkSigner
	Proxy      storage.Proxy
	Locks      locks.Store
	RepoTokens *token.Codec
	Log        *logging.Logger
}

type handler struct {
	*Services
}

// directoryRoute registers pattern with and without a trailing slash,
// since an upstream reverse proxy may produce either form.
func directoryRoute(r chi.Router, method, pattern string, h http.HandlerFunc) {
	r.MethodFunc(method, pattern, h)
	r.MethodFunc(method, pattern+"/", h)
}

// NewRouter builds the chi router: logging, panic recovery, real-IP
// extraction, then the error-shape middleware wrapping every route.
func NewRouter(s *Services) chi.Router {
	h := &handler{Services: s}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(ErrorShape(s.Log))

	// Objects module
	directoryRoute(r, http.MethodPost, "/objects/batch", h.handleBatch)

	// Proxy module (proxy mode only)
	if s.Proxy != nil {
		directoryRoute(r, http.MethodGet, "/objects/access/{oid}", h.handleProxyDownload)
		directoryRoute(r, http.MethodPut, "/objects/access/{oid}", h.handleProxyUpload)
	}

	// Locks module
	directoryRoute(r, http.MethodPost, "/locks", h.handleCreateLock)
	directoryRoute(r, http.MethodGet, "/locks", h.handleListLocks)
	directoryRoute(r, http.MethodPost, "/locks/verify", h.handleVerifyLocks)
	directoryRoute(r, http.MethodPost, "/locks/{id}/unlock", h.handleDeleteLock)

	return r
}

// repoFromQuery extracts the mandatory repo query parameter.
func repoFromQuery(r *http.Request) (string, bool) {
	repo := r.URL.Query().Get("repo")
	return repo, repo != ""
}
