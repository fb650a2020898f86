package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wattwise/wattwise/pkg/types"
)

// Metrics holds the collectors for the engine and its HTTP API. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	readingsTotal     *prometheus.CounterVec
	anomaliesTotal    *prometheus.CounterVec
	recommendations   *prometheus.CounterVec
	savingsPotential  prometheus.Histogram
	forecastsTotal    *prometheus.CounterVec
	trainDuration     prometheus.Histogram
	trainTotal        *prometheus.CounterVec
	modelSamples      prometheus.Gauge
}

// New creates the collectors and registers them on a new registry along with
// the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wattwise_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		readingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_readings_total",
			Help: "Total readings received by result (accepted, invalid, error).",
		}, []string{"result"}),
		anomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_anomalies_total",
			Help: "Total anomalies detected by alert.",
		}, []string{"alert"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_recommendations_total",
			Help: "Total recommendations issued by action and priority.",
		}, []string{"action", "priority"}),
		savingsPotential: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wattwise_savings_potential_dollars",
			Help:    "Histogram of the savings potential of issued action plans.",
			Buckets: prometheus.LinearBuckets(-2, 0.25, 17),
		}),
		forecastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_forecasts_total",
			Help: "Total forecasts produced by mode.",
		}, []string{"mode"}),
		trainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wattwise_model_train_duration_seconds",
			Help:    "Histogram of model training durations.",
			Buckets: prometheus.DefBuckets,
		}),
		trainTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_model_train_total",
			Help: "Total model training runs by result.",
		}, []string{"result"}),
		modelSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wattwise_model_samples",
			Help: "Number of readings the current model was trained on.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.readingsTotal,
		m.anomaliesTotal,
		m.recommendations,
		m.savingsPotential,
		m.forecastsTotal,
		m.trainDuration,
		m.trainTotal,
		m.modelSamples,
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

// WrapHandler records the count and duration of requests to route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Reading records a received reading and its anomalies.
func (m *Metrics) Reading(result string, anomalies []string) {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues(result).Inc()
	for _, a := range anomalies {
		m.anomaliesTotal.WithLabelValues(a).Inc()
	}
}

// Plan records the recommendations of an issued action plan.
func (m *Metrics) Plan(plan types.ActionPlan) {
	if m == nil {
		return
	}
	for _, r := range plan.Recommendations {
		m.recommendations.WithLabelValues(string(r.ActionType), strconv.Itoa(r.Priority)).Inc()
	}
	m.savingsPotential.Observe(plan.TotalSavingsPotential)
}

// Forecast records a produced forecast.
func (m *Metrics) Forecast(mode types.ForecastMode) {
	if m == nil {
		return
	}
	m.forecastsTotal.WithLabelValues(string(mode)).Inc()
}

// Train records a model training run.
func (m *Metrics) Train(duration time.Duration, samples int, err error) {
	if m == nil {
		return
	}
	m.trainDuration.Observe(duration.Seconds())
	if err != nil {
		m.trainTotal.WithLabelValues("error").Inc()
		return
	}
	m.trainTotal.WithLabelValues("success").Inc()
	m.modelSamples.Set(float64(samples))
}
