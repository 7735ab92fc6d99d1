// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/quakeflow/picker/internal/domain/model"
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue pushes a unit of work for async processing. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, task model.Task) bool

	// ExtractSync runs the pipeline inline and returns the picks.
	ExtractSync(ctx context.Context, scores *tensor.Dense4D, meta picks.Metadata) ([][]picks.Pick, error)

	// IsProcessed reports whether a unit id has already been journaled.
	IsProcessed(ctx context.Context, unitID string) bool
}

// Server wires HTTP routes for the extraction API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	picksHandler  *PicksHandler
	jobsHandler   *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		picksHandler:  NewPicksHandler(deps),
		jobsHandler:   NewJobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/picks", MetricsMiddleware(s.picksHandler.HandlePostPicks, "picks"))
	mux.HandleFunc("/v1/jobs", MetricsMiddleware(s.jobsHandler.HandlePostJob, "jobs"))
}

// scoreRequest is the shared payload of POST /v1/picks and POST /v1/jobs.
// Scores carry per-sample phase probabilities shaped
// [batch][class][sample][station].
type scoreRequest struct {
	ID     string          `json:"id,omitempty"`
	Scores [][][][]float64 `json:"scores"`

	FileNames         []string   `json:"file_names,omitempty"`
	BeginTimes        []string   `json:"begin_times,omitempty"`
	StationIDs        [][]string `json:"station_ids,omitempty"`
	SampleInterval    []float64  `json:"sample_interval,omitempty"`
	BeginTimeIndex    []int      `json:"begin_time_index,omitempty"`
	BeginChannelIndex []int      `json:"begin_channel_index,omitempty"`
}

func (r scoreRequest) validate() error {
	if len(r.Scores) == 0 {
		return errors.New("missing scores")
	}
	for _, batch := range r.Scores {
		if len(batch) == 0 || len(batch[0]) == 0 || len(batch[0][0]) == 0 {
			return errors.New("scores must be a non-empty 4-d array")
		}
	}
	return nil
}

// tensor converts the nested JSON array to a dense tensor.
func (r scoreRequest) tensor() (*tensor.Dense4D, error) {
	return tensor.FromNested(r.Scores)
}

// metadata assembles extraction metadata from the optional request fields.
func (r scoreRequest) metadata() picks.Metadata {
	meta := picks.Metadata{
		FileNames:         r.FileNames,
		BeginTimes:        r.BeginTimes,
		StationIDs:        r.StationIDs,
		BeginTimeIndex:    r.BeginTimeIndex,
		BeginChannelIndex: r.BeginChannelIndex,
	}
	switch len(r.SampleInterval) {
	case 0:
	case 1:
		meta.SampleInterval = picks.Scalar(r.SampleInterval[0])
	default:
		meta.SampleInterval = picks.PerBatch(r.SampleInterval)
	}
	return meta
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type picksResponse struct {
	Picks [][]picks.Pick `json:"picks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isShapeError translates tensor shape failures to client errors.
func isShapeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tensor.ErrBadShape) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "shape")
}
