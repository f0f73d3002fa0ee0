package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
)

const maxBodyBytes = 1 << 20

// YieldUnit is the unit of every yield estimate.
const YieldUnit = "kg/ha"

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	Unit           string  `json:"unit"`
	ModelRunID     string  `json:"model_run_id,omitempty"`
	PredictedYield float64 `json:"predicted_yield"`
}

// ModelResponse describes the loaded model.
type ModelResponse struct {
	LoadedAt time.Time      `json:"loaded_at"`
	Metadata model.Metadata `json:"metadata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok", "model_loaded": s.svc.Current() != nil}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil {
		s.metrics.prediction(false)
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	y, err := s.svc.Predict(r.Context(), raw)
	if err != nil {
		s.metrics.prediction(false)
		common.LogError(err, "Prediction failed", common.Fields{"status": statusFor(err)})
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.prediction(true)

	resp := PredictResponse{PredictedYield: y, Unit: YieldUnit}
	if h := s.svc.Current(); h != nil {
		resp.ModelRunID = h.RunID()
		s.metrics.setModelR2(h.Metadata().Metrics.R2)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) modelInfo(w http.ResponseWriter, _ *http.Request) {
	h := s.svc.Current()
	if h == nil {
		writeError(w, http.StatusNotFound, "no model loaded")
		return
	}
	writeJSON(w, http.StatusOK, ModelResponse{Metadata: h.Metadata(), LoadedAt: h.LoadedAt()})
}

func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Retrain(r.Context())
	if err != nil {
		s.metrics.training(false)
		common.LogError(err, "Training via API failed", common.Fields{"status": statusFor(err)})
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.training(true)
	s.metrics.setModelR2(report.R2)
	writeJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrModelNotFit):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrDataError):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
