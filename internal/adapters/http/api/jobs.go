// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/quakeflow/picker/internal/domain/model"
)

// JobsHandler handles asynchronous extraction submissions.
type JobsHandler struct {
	deps Dependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Dependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandlePostJob handles POST /v1/jobs requests. The unit of work is
// queued for the worker pool; results land in the pick directory. A
// request without an id gets a generated one, returned in the ack.
func (h *JobsHandler) HandlePostJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_job"
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

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	// Idempotency: a journaled unit is acknowledged without re-queueing.
	if h.deps.IsProcessed(r.Context(), id) {
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}

	task := model.Task{ID: id, Scores: scores, Meta: req.metadata()}
	if ok := h.deps.Enqueue(r.Context(), task); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: "accepted", Duplicate: false})
}
