package judge

import (
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/metrics"
)

// cachedSubmission wraps a recent-submission lookup so an "absent" result
// (participant has no submissions yet) is cacheable too.
type cachedSubmission struct {
	sub *domain.Submission
}

// responseCache holds per-query-key caches for the three judge lookups.
// expirable.LRU is safe for concurrent use, so many duel sessions can poll
// through one client without extra locking.
type responseCache struct {
	users       *expirable.LRU[string, *User]
	catalogs    *expirable.LRU[string, []domain.Problem]
	submissions *expirable.LRU[string, cachedSubmission]
}

func newResponseCache() *responseCache {
	return &responseCache{
		users:       expirable.NewLRU[string, *User](userCacheSize, nil, userCacheTTL),
		catalogs:    expirable.NewLRU[string, []domain.Problem](catalogCacheSize, nil, catalogCacheTTL),
		submissions: expirable.NewLRU[string, cachedSubmission](submissionCacheSize, nil, submissionCacheTTL),
	}
}

func (c *responseCache) getCatalog(key string) ([]domain.Problem, bool) {
	v, ok := c.catalogs.Get(key)
	recordCacheLookup(metrics.CacheCatalog, ok)
	return v, ok
}

func (c *responseCache) getUser(key string) (*User, bool) {
	v, ok := c.users.Get(key)
	recordCacheLookup(metrics.CacheUser, ok)
	return v, ok
}

func (c *responseCache) getSubmission(key string) (cachedSubmission, bool) {
	v, ok := c.submissions.Get(key)
	recordCacheLookup(metrics.CacheSubmission, ok)
	return v, ok
}

func recordCacheLookup(cache string, hit bool) {
	if hit {
		metrics.JudgeCacheHits.WithLabelValues(cache).Inc()
		return
	}
	metrics.JudgeCacheMisses.WithLabelValues(cache).Inc()
}
