package metrics

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Duel metric names
const (
	MetricNameDuelsStarted   = "duels_started_total"
	MetricNameDuelsEnded     = "duels_ended_total"
	MetricNameDuelsActive    = "duels_active"
	MetricNameSolvesDetected = "solves_detected_total"
)

// Judge metric names
const (
	MetricNameJudgeRequests    = "judge_requests_total"
	MetricNameJudgeCacheHits   = "judge_cache_hits_total"
	MetricNameJudgeCacheMisses = "judge_cache_misses_total"
)

// Notifier metric names
const (
	MetricNameNotifierFailures = "notifier_failures_total"
)

// Metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
	HelpTextDuelsStarted         = "Total number of duel sessions started"
	HelpTextDuelsEnded           = "Total number of duel sessions ended"
	HelpTextDuelsActive          = "Current number of running duel sessions"
	HelpTextSolvesDetected       = "Total number of accepted solves scored in duels"
	HelpTextJudgeRequests        = "Total number of judge API requests"
	HelpTextJudgeCacheHits       = "Total number of judge cache hits"
	HelpTextJudgeCacheMisses     = "Total number of judge cache misses"
	HelpTextNotifierFailures     = "Total number of failed notification deliveries"
)

// Label names
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelReason   = "reason"
	LabelEndpoint = "endpoint"
	LabelOutcome  = "outcome"
	LabelCache    = "cache"
)

// Judge request outcome label values
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeHTTPError      = "http_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeJudgeFailed    = "judge_failed"
)

// Judge cache label values
const (
	CacheUser       = "user"
	CacheCatalog    = "catalog"
	CacheSubmission = "submission"
)

// Duel end reason label values
const (
	ReasonTimeExpired   = "time_expired"
	ReasonPoolExhausted = "pool_exhausted"
	ReasonForced        = "forced"
	ReasonSetupFailed   = "setup_failed"
)

// HTTPLatencyBuckets are histogram buckets for request durations
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
