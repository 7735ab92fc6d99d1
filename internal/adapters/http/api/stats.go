// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/quakeflow/picker/internal/domain/model"
)

// Stats mirrors the snapshot shape returned by the service.
type Stats = model.Stats

// StatsProvider exposes the current service snapshot.
type StatsProvider interface {
	GetStats() Stats
}

// StatsHandler serves the extraction service snapshot.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler over the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests: lifecycle state, worker and
// queue sizing, queue depth, and journaled-unit count.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
