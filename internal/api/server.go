// Package api exposes the prediction service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/prediction"
)

// Predictor is the subset of prediction.Service the handlers use.
type Predictor interface {
	Predict(ctx context.Context, raw map[string]any) (float64, error)
	Current() *prediction.ModelHandle
	Retrain(ctx context.Context) (*model.TrainingReport, error)
}

// Server routes HTTP requests to a Predictor.
type Server struct {
	svc          Predictor
	metrics      *Metrics
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithTimeouts sets the HTTP read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// NewServer returns a server for svc listening on addr.
func NewServer(svc Predictor, addr string, opts ...Option) *Server {
	s := &Server{
		svc:          svc,
		metrics:      NewMetrics(),
		addr:         addr,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	if h := svc.Current(); h != nil {
		s.metrics.setModelR2(h.Metadata().Metrics.R2)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", s.metrics.WrapHandler("health", http.HandlerFunc(s.health))).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/predict", s.metrics.WrapHandler("predict", http.HandlerFunc(s.predict))).Methods(http.MethodPost)
	v1.Handle("/model", s.metrics.WrapHandler("model", http.HandlerFunc(s.modelInfo))).Methods(http.MethodGet)
	v1.Handle("/train", s.metrics.WrapHandler("train", http.HandlerFunc(s.train))).Methods(http.MethodPost)

	return r
}

// Handler returns the router wrapped with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	logged := handlers.LoggingHandler(os.Stdout, s.Router())
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(logged)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Prediction API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down prediction API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}
