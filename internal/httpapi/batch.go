package httpapi

import (
	"encoding/json"
	"net/http"

	"lfs-gateway/internal/api"
	"lfs-gateway/internal/batch"
	"lfs-gateway/internal/token"
)

// handleBatch serves POST /objects/batch?repo=<r>: decode and validate
// the repo token, then hand the request to the batch engine. A request-
// level validation failure short-circuits the whole response; per-object
// failures ride inside an otherwise-200 body.
func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	repo, ok := repoFromQuery(r)
	if !ok {
		httpError(w, http.StatusUnprocessableEntity, "Missing repo query parameter")
		return
	}

	claims, tokenErr := token.FromHeaders(r.Header, h.RepoTokens)
	if tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}
	payload, tokenErr := token.NewRepoTokenPayload(claims)
	if tokenErr != nil {
		httpError(w, tokenErr.Status, tokenErr.Message)
		return
	}

	var req api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if !req.Operation.Valid() {
		httpError(w, http.StatusUnprocessableEntity, "Invalid operation, must be upload or download")
		return
	}

	engine := batch.NewEngine(h.Meta, h.Signer)
	resp, engineErr := engine.Resolve(r.Context(), repo, payload, req)
	if engineErr != nil {
		httpError(w, engineErr.Status, engineErr.Message)
		return
	}

	w.Header().Set("Content-Type", lfsMediaType)
	json.NewEncoder(w).Encode(resp)
}
