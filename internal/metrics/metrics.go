package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Duel Metrics
var (
	DuelsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameDuelsStarted,
			Help: HelpTextDuelsStarted,
		},
	)

	DuelsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameDuelsEnded,
			Help: HelpTextDuelsEnded,
		},
		[]string{LabelReason},
	)

	DuelsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameDuelsActive,
			Help: HelpTextDuelsActive,
		},
	)

	SolvesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSolvesDetected,
			Help: HelpTextSolvesDetected,
		},
	)
)

// Judge Metrics
var (
	JudgeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJudgeRequests,
			Help: HelpTextJudgeRequests,
		},
		[]string{LabelEndpoint, LabelOutcome},
	)

	JudgeCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJudgeCacheHits,
			Help: HelpTextJudgeCacheHits,
		},
		[]string{LabelCache},
	)

	JudgeCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJudgeCacheMisses,
			Help: HelpTextJudgeCacheMisses,
		},
		[]string{LabelCache},
	)
)

// Notifier Metrics
var (
	NotifierFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameNotifierFailures,
			Help: HelpTextNotifierFailures,
		},
	)
)
