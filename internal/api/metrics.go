package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	predictions     prometheus.Counter
	predictErrors   prometheus.Counter
	trainingRuns    *prometheus.CounterVec
	modelR2         prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropcast_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cropcast_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropcast_predictions_total",
			Help: "Total yield predictions answered.",
		}),
		predictErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropcast_prediction_errors_total",
			Help: "Total prediction requests that failed.",
		}),
		trainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropcast_training_runs_total",
			Help: "Training runs triggered through the API by outcome.",
		}, []string{"outcome"}),
		modelR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cropcast_model_r2",
			Help: "Held-out R² of the currently loaded model.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.predictions,
		m.predictErrors,
		m.trainingRuns,
		m.modelR2,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests to route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) prediction(ok bool) {
	if ok {
		m.predictions.Inc()
	} else {
		m.predictErrors.Inc()
	}
}

func (m *Metrics) training(ok bool) {
	if ok {
		m.trainingRuns.WithLabelValues("success").Inc()
	} else {
		m.trainingRuns.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) setModelR2(r2 float64) {
	m.modelR2.Set(r2)
}
