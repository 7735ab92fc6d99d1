package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quakeflow/picker/internal/adapters/http/api"
	"github.com/quakeflow/picker/internal/domain/model"
	"github.com/quakeflow/picker/internal/domain/peaks"
	"github.com/quakeflow/picker/internal/domain/picks"
	"github.com/quakeflow/picker/internal/domain/tensor"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps implements api.Dependencies with a real pipeline and a
// controllable queue.
type mockDeps struct {
	enqueueSuccess bool
	enqueued       []model.Task
	processed      map[string]bool
}

func (m *mockDeps) Enqueue(ctx context.Context, task model.Task) bool {
	if m.enqueueSuccess {
		m.enqueued = append(m.enqueued, task)
		return true
	}
	return false
}

func (m *mockDeps) ExtractSync(ctx context.Context, scores *tensor.Dense4D, meta picks.Metadata) ([][]picks.Pick, error) {
	res, err := peaks.NewDetector(peaks.WithKernel(21)).Detect(scores)
	if err != nil {
		return nil, err
	}
	return picks.NewExtractor(picks.WithMinScore(0.5)).Extract(res, meta)
}

func (m *mockDeps) IsProcessed(ctx context.Context, unitID string) bool {
	return m.processed[unitID]
}

type mockStats struct{}

func (m *mockStats) GetStats() api.Stats {
	return api.Stats{Started: true, WorkerCount: 4, QueueSize: 16}
}

func newTestMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStats{}).Register(context.Background(), mux)
	return mux
}

// impulseBody builds a request payload with one P arrival at sample 150.
func impulseBody(id string) string {
	scores := make([][][][]float64, 1)
	scores[0] = make([][][]float64, 2)
	for c := range scores[0] {
		scores[0][c] = make([][]float64, 300)
		for ti := range scores[0][c] {
			scores[0][c][ti] = []float64{0}
		}
	}
	scores[0][1][150][0] = 0.95

	req := map[string]any{
		"scores":          scores,
		"begin_times":     []string{"2024-01-01T00:00:00.000"},
		"sample_interval": []float64{0.01},
	}
	if id != "" {
		req["id"] = id
	}
	data, _ := json.Marshal(req)
	return string(data)
}

func TestPostPicks(t *testing.T) {
	Convey("Given the API wired to a working pipeline", t, func() {
		mux := newTestMux(&mockDeps{enqueueSuccess: true})

		Convey("A valid request returns the extracted picks", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(impulseBody("")))
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Picks [][]picks.Pick `json:"picks"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Picks, ShouldHaveLength, 1)
			So(resp.Picks[0], ShouldHaveLength, 1)
			So(resp.Picks[0][0].PhaseIndex, ShouldEqual, 150)
			So(resp.Picks[0][0].PhaseTime, ShouldEqual, "2024-01-01T00:00:01.500")
			So(resp.Picks[0][0].PhaseScore, ShouldEqual, "0.950")
			So(resp.Picks[0][0].PhaseType, ShouldEqual, "P")
		})

		Convey("Malformed JSON returns 400", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader("{not json"))
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Missing scores return 400", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(`{"scores": []}`))
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A ragged score array returns 400", func() {
			body := `{"scores": [[[[0.1],[0.2]],[[0.3]]]]}`
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/picks", strings.NewReader(body))
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is not routed", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/picks", nil)
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostJobs(t *testing.T) {
	Convey("Given the API with an accepting queue", t, func() {
		deps := &mockDeps{enqueueSuccess: true, processed: map[string]bool{"seen-unit": true}}
		mux := newTestMux(deps)

		Convey("A valid submission is accepted", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(impulseBody("unit-1")))
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusAccepted)

			var ack struct {
				ID        string `json:"id"`
				Status    string `json:"status"`
				Duplicate bool   `json:"duplicate"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
			So(ack.ID, ShouldEqual, "unit-1")
			So(ack.Status, ShouldEqual, "accepted")
			So(ack.Duplicate, ShouldBeFalse)
			So(deps.enqueued, ShouldHaveLength, 1)
		})

		Convey("A submission without an id gets a generated one", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(impulseBody("")))
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusAccepted)

			var ack struct {
				ID string `json:"id"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
			So(ack.ID, ShouldNotBeEmpty)
		})

		Convey("A journaled unit is acknowledged as duplicate", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(impulseBody("seen-unit")))
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)

			var ack struct {
				Status    string `json:"status"`
				Duplicate bool   `json:"duplicate"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
			So(ack.Status, ShouldEqual, "duplicate")
			So(ack.Duplicate, ShouldBeTrue)
			So(deps.enqueued, ShouldBeEmpty)
		})
	})

	Convey("Given the API under backpressure", t, func() {
		mux := newTestMux(&mockDeps{enqueueSuccess: false})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(impulseBody("unit-2")))
		mux.ServeHTTP(rec, req)

		So(rec.Code, ShouldEqual, http.StatusTooManyRequests)

		var resp struct {
			Code string `json:"code"`
		}
		So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
		So(resp.Code, ShouldEqual, "backpressure")
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the registered API routes", t, func() {
		mux := newTestMux(&mockDeps{enqueueSuccess: true})

		Convey("GET /stats returns the provider snapshot", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats api.Stats
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats.Started, ShouldBeTrue)
			So(stats.WorkerCount, ShouldEqual, 4)
			So(stats.QueueSize, ShouldEqual, 16)
		})

		Convey("POST /stats is not routed", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/stats", nil)
			mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /healthz serves the metrics registry", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "picker_pipeline")
		})
	})
}
