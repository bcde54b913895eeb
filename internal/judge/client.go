// Package judge implements the Codeforces API client used by the duel
// engine: problem catalog and recent-submission lookups with short-TTL
// response caching. Every transport failure, non-2xx status, malformed
// body or judge-reported FAILED status surfaces as domain.ErrJudgeUnavailable
// so callers can tell "no data yet" apart from "upstream broken".
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/metrics"
)

// User is a judge account as returned by the user lookup endpoint
type User struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
	Rank   string `json:"rank"`
}

// envelope is the judge's response wrapper: a status field plus a payload
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// wireSubmission mirrors the judge's submission JSON, which nests the
// problem's identity under "problem".
type wireSubmission struct {
	ID        int64  `json:"id"`
	ContestID int    `json:"contestId"`
	Verdict   string `json:"verdict"`
	Problem   struct {
		ContestID int    `json:"contestId"`
		Index     string `json:"index"`
	} `json:"problem"`
}

type catalogResult struct {
	Problems []domain.Problem `json:"problems"`
}

// Client fetches problems and submissions from the judge
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *responseCache
}

// NewClient creates a judge client for the given API base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		cache:      newResponseCache(),
	}
}

// User looks up a judge account by handle. An unknown handle is a FAILED
// status upstream, so it surfaces as ErrJudgeUnavailable carrying the judge
// comment.
func (c *Client) User(ctx context.Context, handle string) (*User, error) {
	cacheKey := "user:" + handle
	if u, ok := c.cache.getUser(cacheKey); ok {
		return u, nil
	}

	q := url.Values{}
	q.Set("handles", handle)

	var users []User
	if err := c.get(ctx, endpointUser, q, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: empty user result for %q", domain.ErrJudgeUnavailable, handle)
	}

	u := &users[0]
	c.cache.users.Add(cacheKey, u)
	return u, nil
}

// ProblemCatalog fetches the judge's problem catalog, optionally filtered
// by tags. The result is cached for tens of minutes per distinct tag set.
func (c *Client) ProblemCatalog(ctx context.Context, tags []string) ([]domain.Problem, error) {
	joined := strings.Join(tags, ";")
	cacheKey := "problems:" + joined
	if joined == "" {
		cacheKey = "problems:all"
	}
	if problems, ok := c.cache.getCatalog(cacheKey); ok {
		return problems, nil
	}

	q := url.Values{}
	if joined != "" {
		q.Set("tags", joined)
	}

	var result catalogResult
	if err := c.get(ctx, endpointProblemSet, q, &result); err != nil {
		return nil, err
	}

	c.cache.catalogs.Add(cacheKey, result.Problems)
	return result.Problems, nil
}

// RecentSubmission fetches a participant's single most recent submission.
// Returns (nil, nil) when the participant has no submissions at all; that is
// "no data yet", not an upstream failure. The short cache TTL here bounds how
// long a genuinely new submission can be masked.
func (c *Client) RecentSubmission(ctx context.Context, handle string) (*domain.Submission, error) {
	cacheKey := "submissions:" + handle + ":1"
	if cached, ok := c.cache.getSubmission(cacheKey); ok {
		return cached.sub, nil
	}

	q := url.Values{}
	q.Set("handle", handle)
	q.Set("from", "1")
	q.Set("count", "1")

	var subs []wireSubmission
	if err := c.get(ctx, endpointUserStatus, q, &subs); err != nil {
		return nil, err
	}

	var sub *domain.Submission
	if len(subs) > 0 {
		w := subs[0]
		contestID := w.Problem.ContestID
		if contestID == 0 {
			contestID = w.ContestID
		}
		sub = &domain.Submission{
			ID:        w.ID,
			ContestID: contestID,
			Index:     w.Problem.Index,
			Verdict:   w.Verdict,
		}
	}

	c.cache.submissions.Add(cacheKey, cachedSubmission{sub: sub})
	return sub, nil
}

// get performs one judge API call and decodes the envelope result into out
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", domain.ErrJudgeUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeTransportError).Inc()
		return fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeHTTPError).Inc()
		return fmt.Errorf("%w: unexpected HTTP status %d", domain.ErrJudgeUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeDecodeError).Inc()
		return fmt.Errorf("%w: malformed response body: %v", domain.ErrJudgeUnavailable, err)
	}

	if env.Status != statusOK {
		metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeJudgeFailed).Inc()
		return fmt.Errorf("%w: judge reported %s: %s", domain.ErrJudgeUnavailable, env.Status, env.Comment)
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeDecodeError).Inc()
		return fmt.Errorf("%w: malformed result payload: %v", domain.ErrJudgeUnavailable, err)
	}

	metrics.JudgeRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	return nil
}
