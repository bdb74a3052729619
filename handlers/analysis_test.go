package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-terrawatch/aoi"
	"go-terrawatch/config"
	"go-terrawatch/orchestrator"
	"go-terrawatch/routes"
	"go-terrawatch/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPipeline struct {
	run func(ctx context.Context, region types.AreaOfInterest) (*types.AnalysisResult, error)
}

func (s *stubPipeline) Run(ctx context.Context, region types.AreaOfInterest) (*types.AnalysisResult, error) {
	return s.run(ctx, region)
}

func newAPI(pipeline orchestrator.Pipeline, start bool) (*gin.Engine, *orchestrator.Orchestrator) {
	cfg := config.EngineConfig{Workers: 2, QueueSize: 8, MaxTasks: 100}
	builder := aoi.NewBuilder(config.AOIConfig{DefaultRadiusM: 11132, MaxRadiusM: 55660, CoordDecimals: 4})
	pipelines := map[types.TaskMode]orchestrator.Pipeline{types.ModeFlood: pipeline}
	orch := orchestrator.New(cfg, orchestrator.NewStore(cfg.MaxTasks), builder, pipelines, zap.NewNop())
	if start {
		orch.Start(context.Background())
	}
	return routes.SetupRouter(orch), orch
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitAnalysisAccepted(t *testing.T) {
	pipeline := &stubPipeline{run: func(context.Context, types.AreaOfInterest) (*types.AnalysisResult, error) {
		return &types.AnalysisResult{Story: &types.Narrative{Title: "Flood Risk Outlook"}}, nil
	}}
	r, orch := newAPI(pipeline, true)
	defer orch.Stop()

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 1.557, "lon": 110.35, "mode": "flood"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var body struct {
		TaskID         string `json:"taskId"`
		StatusEndpoint string `json:"statusEndpoint"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.TaskID)
	assert.Equal(t, "/api/v1/tasks/"+body.TaskID, body.StatusEndpoint)

	// Poll until the worker finishes, then the payload carries the result.
	require.Eventually(t, func() bool {
		poll := doJSON(r, http.MethodGet, body.StatusEndpoint, "")
		if poll.Code != http.StatusOK {
			return false
		}
		var task types.AnalysisTask
		if err := json.Unmarshal(poll.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.State == types.TaskSucceeded && task.Result != nil && task.Result.Story != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitAnalysisValidation(t *testing.T) {
	r, _ := newAPI(&stubPipeline{}, false)

	cases := []struct {
		name string
		body string
	}{
		{"missing lat", `{"lon": 110.35, "mode": "flood"}`},
		{"missing lon", `{"lat": 1.557, "mode": "flood"}`},
		{"missing mode", `{"lat": 1.557, "lon": 110.35}`},
		{"unknown mode", `{"lat": 1.557, "lon": 110.35, "mode": "earthquake"}`},
		{"not json", `lat=1`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/v1/analyze", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmitAnalysisRejectsBadGeometry(t *testing.T) {
	r, _ := newAPI(&stubPipeline{}, false)

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 95, "lon": 110.35, "mode": "flood"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(types.KindInvalidGeometry))
}

func TestSubmitAnalysisZeroCoordinatesAccepted(t *testing.T) {
	r, _ := newAPI(&stubPipeline{}, false)

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 0, "lon": 0, "mode": "flood"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGetTaskStatusUnknownID(t *testing.T) {
	r, _ := newAPI(&stubPipeline{}, false)

	w := doJSON(r, http.MethodGet, "/api/v1/tasks/does-not-exist", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(types.KindTaskNotFound))
}

func TestFailedTaskExposesErrorKind(t *testing.T) {
	pipeline := &stubPipeline{run: func(context.Context, types.AreaOfInterest) (*types.AnalysisResult, error) {
		return nil, types.ErrInsufficientData
	}}
	r, orch := newAPI(pipeline, true)
	defer orch.Stop()

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 1.557, "lon": 110.35, "mode": "flood"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		StatusEndpoint string `json:"statusEndpoint"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Eventually(t, func() bool {
		poll := doJSON(r, http.MethodGet, body.StatusEndpoint, "")
		var task types.AnalysisTask
		if err := json.Unmarshal(poll.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.State == types.TaskFailed && task.Error == types.KindInsufficientData
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancelPendingTask(t *testing.T) {
	// Workers never started, so the task stays pending until cancelled.
	r, _ := newAPI(&stubPipeline{}, false)

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 1.557, "lon": 110.35, "mode": "flood"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	cancel := doJSON(r, http.MethodDelete, "/api/v1/tasks/"+body.TaskID, "")
	assert.Equal(t, http.StatusAccepted, cancel.Code)

	// The cancelled task is gone from the table.
	poll := doJSON(r, http.MethodGet, "/api/v1/tasks/"+body.TaskID, "")
	assert.Equal(t, http.StatusNotFound, poll.Code)
}

func TestCancelUnknownTask(t *testing.T) {
	r, _ := newAPI(&stubPipeline{}, false)

	w := doJSON(r, http.MethodDelete, "/api/v1/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelTerminalTaskConflicts(t *testing.T) {
	pipeline := &stubPipeline{run: func(context.Context, types.AreaOfInterest) (*types.AnalysisResult, error) {
		return &types.AnalysisResult{Story: &types.Narrative{}}, nil
	}}
	r, orch := newAPI(pipeline, true)
	defer orch.Stop()

	w := doJSON(r, http.MethodPost, "/api/v1/analyze", `{"lat": 1.557, "lon": 110.35, "mode": "flood"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Eventually(t, func() bool {
		task, err := orch.Status(body.TaskID)
		return err == nil && task.State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	cancel := doJSON(r, http.MethodDelete, "/api/v1/tasks/"+body.TaskID, "")
	assert.Equal(t, http.StatusConflict, cancel.Code)
}
