package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lfs-gateway/internal/storage"
	"lfs-gateway/internal/token"
)

// handleProxyDownload serves GET /objects/access/{oid}?repo=<r>: the
// link token in the Authorization header must pin this exact (repo,
// oid, download) triple, then the object bytes stream back with their
// stored content type.
func (h *handler) handleProxyDownload(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	oid := chi.URLParam(r, "oid")

	if !h.Signer.CheckLink(repo, oid, r.Header, token.OperationDownload) {
		httpError(w, http.StatusUnauthorized, "Link token does not match the requested object")
		return
	}

	data, contentType, err := h.Proxy.Get(r.Context(), repo, oid)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, fmt.Sprintf("Object %s not found", oid))
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, fmt.Sprintf("Download error: %v", err))
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleProxyUpload serves PUT /objects/access/{oid}?repo=<r>: verify
// the upload-scoped link token, then store the body together with its
// declared content type.
func (h *handler) handleProxyUpload(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	oid := chi.URLParam(r, "oid")

	if !h.Signer.CheckLink(repo, oid, r.Header, token.OperationUpload) {
		httpError(w, http.StatusUnauthorized, "Link token does not match the requested object")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.Proxy.Post(r.Context(), repo, oid, r.Body, contentType); err != nil {
		httpError(w, http.StatusInternalServerError, fmt.Sprintf("Upload error: %v", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}
