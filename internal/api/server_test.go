package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/prediction"
)

type mockPredictor struct {
	mock.Mock
	handle *prediction.ModelHandle
}

func (m *mockPredictor) Predict(ctx context.Context, raw map[string]any) (float64, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockPredictor) Current() *prediction.ModelHandle {
	return m.handle
}

func (m *mockPredictor) Retrain(ctx context.Context) (*model.TrainingReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TrainingReport), args.Error(1)
}

func loadedHandle(runID string) *prediction.ModelHandle {
	return prediction.NewModelHandle(&artifact.Model{
		Metadata: model.Metadata{
			RunID:        runID,
			ModelType:    model.ModelType,
			TrainingDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			Metrics:      model.Metrics{R2: 0.91},
		},
	})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestPredict(t *testing.T) {
	svc := &mockPredictor{handle: loadedHandle("run-1")}
	svc.On("Predict", mock.Anything, map[string]any{"crop_type": "rice", "rainfall": 1200.0}).Return(4321.5, nil)

	rec := do(t, NewServer(svc, ":0"), http.MethodPost, "/api/v1/predict", `{"crop_type":"rice","rainfall":1200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 4321.5, resp.PredictedYield, 1e-9)
	assert.Equal(t, YieldUnit, resp.Unit)
	assert.Equal(t, "run-1", resp.ModelRunID)
	svc.AssertExpectations(t)
}

func TestPredict_BadBody(t *testing.T) {
	svc := &mockPredictor{}
	rec := do(t, NewServer(svc, ":0"), http.MethodPost, "/api/v1/predict", `[1,2,3]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestPredict_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "no model", err: common.ErrModelNotFit, want: http.StatusServiceUnavailable},
		{name: "data error", err: fmt.Errorf("wrapped: %w", common.ErrDataError), want: http.StatusUnprocessableEntity},
		{name: "persistence", err: common.ErrPersistence, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPredictor{}
			svc.On("Predict", mock.Anything, mock.Anything).Return(0.0, tt.err)

			rec := do(t, NewServer(svc, ":0"), http.MethodPost, "/api/v1/predict", `{}`)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestModelInfo(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		rec := do(t, NewServer(&mockPredictor{handle: loadedHandle("run-7")}, ":0"), http.MethodGet, "/api/v1/model", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ModelResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "run-7", resp.Metadata.RunID)
		assert.Equal(t, model.ModelType, resp.Metadata.ModelType)
	})

	t.Run("not loaded", func(t *testing.T) {
		rec := do(t, NewServer(&mockPredictor{}, ":0"), http.MethodGet, "/api/v1/model", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTrain(t *testing.T) {
	svc := &mockPredictor{}
	svc.On("Retrain", mock.Anything).Return(&model.TrainingReport{RunID: "run-9", R2: 0.8, SampleCount: 2000}, nil).Once()

	srv := NewServer(svc, ":0")
	rec := do(t, srv, http.MethodPost, "/api/v1/train", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.TrainingReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-9", report.RunID)

	metrics := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `cropcast_training_runs_total{outcome="success"} 1`)
	assert.Contains(t, metrics.Body.String(), `cropcast_model_r2 0.8`)
	assert.Contains(t, metrics.Body.String(), `cropcast_http_requests_total{route="train",status="200"} 1`)
}

func TestTrain_Failure(t *testing.T) {
	svc := &mockPredictor{}
	svc.On("Retrain", mock.Anything).Return(nil, fmt.Errorf("encode: %w", common.ErrDataError))

	rec := do(t, NewServer(svc, ":0"), http.MethodPost, "/api/v1/train", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, NewServer(&mockPredictor{handle: loadedHandle("r")}, ":0"), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","model_loaded":true}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, NewServer(&mockPredictor{}, ":0"), http.MethodGet, "/api/v1/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(&mockPredictor{}, "127.0.0.1:0")

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
