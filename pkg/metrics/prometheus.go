package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finsight"

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	gatherer prometheus.Gatherer

	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	forecasts        *prometheus.CounterVec
	trainingRuns     *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	modelR2          *prometheus.GaugeVec
	modelMAE         *prometheus.GaugeVec
	sentimentArticle *prometheus.GaugeVec
	sentimentScore   *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatherer: g,
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		forecasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecast requests by outcome",
		}, []string{"ticker", "result"}),
		trainingRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Training cycles by outcome",
		}, []string{"ticker", "result"}),
		trainingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Duration of training cycles",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"ticker"}),
		modelR2: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "r2_score",
			Help:      "Cross-validated r2 of the serving model",
		}, []string{"ticker"}),
		modelMAE: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "mae",
			Help:      "Cross-validated mean absolute error of the serving model",
		}, []string{"ticker"}),
		sentimentArticle: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "articles",
			Help:      "Articles in the last sentiment summary",
		}, []string{"ticker"}),
		sentimentScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "weighted_score",
			Help:      "Last weighted sentiment score",
		}, []string{"ticker"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordForecast(ticker, result string) {
	r.forecasts.WithLabelValues(ticker, result).Inc()
}

func (r *Recorder) RecordTraining(ticker, result string, seconds float64) {
	r.trainingRuns.WithLabelValues(ticker, result).Inc()
	r.trainingDuration.WithLabelValues(ticker).Observe(seconds)
}

func (r *Recorder) RecordModelScore(ticker string, r2, mae float64) {
	r.modelR2.WithLabelValues(ticker).Set(r2)
	r.modelMAE.WithLabelValues(ticker).Set(mae)
}

func (r *Recorder) RecordSentiment(ticker string, articles int, score float64) {
	r.sentimentArticle.WithLabelValues(ticker).Set(float64(articles))
	r.sentimentScore.WithLabelValues(ticker).Set(score)
}

// RecordHTTP records one served request.
func (r *Recorder) RecordHTTP(method, route string, status int, seconds float64) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
