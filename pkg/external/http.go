// Package external contains the clients of the public intelligence sources
// (PubMed, ClinicalTrials.gov, openFDA, PubChem and the curated patent
// catalog) together with the cache and circuit breakers that guard them.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/letscience-intel-server/internal/domain"
)

// RetryBaseDelay is the first backoff delay after a 429 or 5xx response.
// Tests shorten it.
var RetryBaseDelay = 500 * time.Millisecond

const (
	defaultRetries    = 3
	defaultTimeout    = 15 * time.Second
	defaultMaxResults = 5
	userAgent         = "letscience-intel-server/1.0"
)

// StatusError is returned when a source answers with an unexpected status
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Source, e.StatusCode, e.Body)
}

// Unwrap maps 404 answers to domain.ErrNotFound
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// apiClient is the HTTP plumbing shared by every connector
type apiClient struct {
	source     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
}

func newAPIClient(source, defaultBaseURL string, cfg domain.SourceConfig, defaultRate float64) *apiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRate
	}
	retries := cfg.RetryCount
	if retries <= 0 {
		retries = defaultRetries
	}
	return &apiClient{
		source:     source,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retries:    retries,
	}
}

// getJSON fetches baseURL+path with the query params and decodes the JSON
// body into out.
func (c *apiClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.source, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Source: c.source, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.source, err)
	}
	return nil
}

// do waits for the rate limiter and retries 429 and 5xx answers with
// exponential backoff. The last response is returned once retries run out.
func (c *apiClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= c.retries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func maxResults(limit int, cfg domain.SourceConfig) int {
	switch {
	case limit > 0:
		return limit
	case cfg.MaxResults > 0:
		return cfg.MaxResults
	}
	return defaultMaxResults
}

// parseDate accepts the date layouts used by the sources
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02 15:04", "2006/01/02", "2006-01", "2006 Jan 2", "2006 Jan", "2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
