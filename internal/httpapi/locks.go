package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/locks"
	"lfs-gateway/internal/token"
)

// verifyLockToken authenticates a locks request: decode the repo token,
// check write access when required, and check the token's repo against
// the query's. Returns the calling user's name.
func (h *handler) verifyLockToken(r *http.Request, repo string, requiresWrite bool) (string, *token.HTTPError) {
	claims, err := token.FromHeaders(r.Header, h.RepoTokens)
	if err != nil {
		return "", err
	}
	payload, err := token.NewRepoTokenPayload(claims)
	if err != nil {
		return "", err
	}
	if requiresWrite && !payload.HasWriteAccess() {
		return "", &token.HTTPError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	if !payload.HasAccess(repo) {
		return "", &token.HTTPError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	return payload.User, nil
}

// locksStore returns the configured store, or the 501 every locks route
// answers when no backend was selected at startup.
func (h *handler) locksStore(w http.ResponseWriter) (locks.Store, bool) {
	if h.Locks == nil {
		httpError(w, http.StatusNotImplemented, "The lock api is not implemented on this server")
		return nil, false
	}
	return h.Locks, true
}

// lockToWire renders a stored lock in the response shape: integer id as
// a string, locked_at as RFC 3339 seconds in UTC.
func lockToWire(l locks.Lock) api.Lock {
	return api.Lock{
		ID:       l.ID,
		Path:     l.Path,
		LockedAt: l.LockedAt.UTC().Format(time.RFC3339),
		Owner:    api.LockOwner{Name: l.Owner.Name},
	}
}

// writeLocksError maps the store's tagged failure taxonomy onto plain
// statuses for the normalization middleware: invalid inputs → 400
// (rendered as 422), missing lock → 404, ownership conflict → 403,
// anything infrastructural → 500.
func writeLocksError(w http.ResponseWriter, err error) {
	var lockErr *locks.Error
	if errors.As(err, &lockErr) {
		switch lockErr.Kind {
		case locks.ErrInvalidID, locks.ErrInvalidCursor, locks.ErrInvalidLimit:
			httpError(w, http.StatusBadRequest, lockErr.Error())
			return
		case locks.ErrLockNotFound:
			httpError(w, http.StatusNotFound, lockErr.Error())
			return
		case locks.ErrForceDeleteRequired:
			httpError(w, http.StatusForbidden, lockErr.Error())
			return
		}
	}
	httpError(w, http.StatusInternalServerError, err.Error())
}

// handleCreateLock serves POST /locks?repo=<r>. A pre-existing lock on
// the same path is not an error at the store level; it surfaces as 409
// with the prior lock and the "already created lock" message.
func (h *handler) handleCreateLock(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	user, tokenErr := h.verifyLockToken(r, repo, true)
	if tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}
	store, ok := h.locksStore(w)
	if !ok {
		return
	}

	var payload api.CreateLockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Path == "" {
		httpError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	ref := ""
	if payload.Ref != nil {
		ref = payload.Ref.Name
	}

	lock, isNew, err := store.CreateLock(r.Context(), repo, user, payload.Path, ref)
	if err != nil {
		writeLocksError(w, err)
		return
	}

	resp := api.CreateLockResponse{Lock: lockToWire(lock)}
	status := http.StatusCreated
	if !isNew {
		resp.Message = "already created lock"
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", lfsMediaType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// parseLimit turns the wire limit string into ListOptions fields,
// distinguishing absent from present-but-unparseable.
func parseLimit(raw string, opts *locks.ListOptions) error {
	if raw == "" {
		return nil
	}
	limit, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return &locks.Error{Kind: locks.ErrInvalidLimit, Err: fmt.Errorf("parse limit %q: %w", raw, err)}
	}
	opts.Limit = int(limit)
	opts.LimitSupplied = true
	return nil
}

// handleListLocks serves GET /locks?repo=<r>[&path=&id=&cursor=&limit=&refspec=].
// A read token suffices; refspec is accepted and ignored.
func (h *handler) handleListLocks(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	if _, tokenErr := h.verifyLockToken(r, repo, false); tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}
	store, ok := h.locksStore(w)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := locks.ListOptions{
		Path:   q.Get("path"),
		ID:     q.Get("id"),
		Cursor: q.Get("cursor"),
		Ref:    q.Get("refspec"),
	}
	if err := parseLimit(q.Get("limit"), &opts); err != nil {
		writeLocksError(w, err)
		return
	}

	nextCursor, page, err := store.ListLocks(r.Context(), repo, opts)
	if err != nil {
		writeLocksError(w, err)
		return
	}

	resp := api.ListLocksResponse{Locks: make([]api.Lock, 0, len(page)), NextCursor: nextCursor}
	for _, l := range page {
		resp.Locks = append(resp.Locks, lockToWire(l))
	}
	w.Header().Set("Content-Type", lfsMediaType)
	json.NewEncoder(w).Encode(resp)
}

// handleVerifyLocks serves POST /locks/verify?repo=<r>: one unfiltered
// page of locks, partitioned into ours/theirs around the token's user.
// Partitioning does not re-paginate; next_cursor is the store's cursor.
func (h *handler) handleVerifyLocks(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	user, tokenErr := h.verifyLockToken(r, repo, false)
	if tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}
	store, ok := h.locksStore(w)
	if !ok {
		return
	}

	var payload api.ListLocksForVerificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		httpError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	opts := locks.ListOptions{Cursor: payload.Cursor}
	if payload.Ref != nil {
		opts.Ref = payload.Ref.Name
	}
	if err := parseLimit(payload.Limit, &opts); err != nil {
		writeLocksError(w, err)
		return
	}

	nextCursor, page, err := store.ListLocks(r.Context(), repo, opts)
	if err != nil {
		writeLocksError(w, err)
		return
	}

	resp := api.VerifyLocksResponse{
		Ours:       make([]api.Lock, 0, len(page)),
		Theirs:     make([]api.Lock, 0, len(page)),
		NextCursor: nextCursor,
	}
	for _, l := range page {
		if l.Owner.Name == user {
			resp.Ours = append(resp.Ours, lockToWire(l))
		} else {
			resp.Theirs = append(resp.Theirs, lockToWire(l))
		}
	}
	w.Header().Set("Content-Type", lfsMediaType)
	json.NewEncoder(w).Encode(resp)
}

// handleDeleteLock serves POST /locks/{id}/unlock?repo=<r>. The ref in
// the payload is accepted for authorization context only; it never
// narrows which lock gets deleted.
func (h *handler) handleDeleteLock(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}
	user, tokenErr := h.verifyLockToken(r, repo, true)
	if tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}
	store, ok := h.locksStore(w)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")

	var payload api.DeleteLockPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		httpError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	force := payload.Force != nil && *payload.Force

	lock, err := store.DeleteLock(r.Context(), repo, user, id, "", force)
	if err != nil {
		writeLocksError(w, err)
		return
	}

	w.Header().Set("Content-Type", lfsMediaType)
	json.NewEncoder(w).Encode(api.DeleteLockResponse{Lock: lockToWire(lock)})
}
