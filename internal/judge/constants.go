package judge

import "time"

// Judge API endpoint paths, relative to the configured base URL
const (
	endpointUser       = "/user.info"
	endpointProblemSet = "/problemset.problems"
	endpointUserStatus = "/user.status"
)

// Status values reported in the judge response envelope
const (
	statusOK     = "OK"
	statusFailed = "FAILED"
)

// Cache TTLs, tuned to data volatility. The catalog rarely changes;
// a participant's recent submissions change with every attempt. Caching
// exists to protect the judge from duel polling load, not for correctness.
const (
	userCacheTTL       = 5 * time.Minute
	catalogCacheTTL    = 30 * time.Minute
	submissionCacheTTL = time.Minute
)

// Cache sizes (entries)
const (
	userCacheSize       = 512
	catalogCacheSize    = 32
	submissionCacheSize = 512
)

// defaultHTTPTimeout bounds a single judge API call
const defaultHTTPTimeout = 15 * time.Second
