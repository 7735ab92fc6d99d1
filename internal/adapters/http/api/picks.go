// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/quakeflow/picker/internal/domain/picks"
)

// PicksHandler handles synchronous extraction requests.
type PicksHandler struct {
	deps Dependencies
}

// NewPicksHandler creates a new picks handler.
func NewPicksHandler(deps Dependencies) *PicksHandler {
	return &PicksHandler{deps: deps}
}

// HandlePostPicks handles POST /v1/picks requests. The score tensor is
// run through the pipeline inline and the picks are returned in the
// response body. No files are written and the journal is not consulted.
func (h *PicksHandler) HandlePostPicks(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_picks"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	scores, err := req.tensor()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	batches, err := h.deps.ExtractSync(r.Context(), scores, req.metadata())
	if err != nil {
		if isShapeError(err) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "extraction_failed", WrapKind(op, ErrExtraction, err))
		return
	}

	// Empty batches still serialize as arrays, not null.
	for i := range batches {
		if batches[i] == nil {
			batches[i] = []picks.Pick{}
		}
	}
	writeJSON(w, http.StatusOK, picksResponse{Picks: batches})
}
