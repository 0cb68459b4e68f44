// Package circleci implements the rate-limited HTTP client for the CircleCI
// REST API. Every request shares one concurrency semaphore so that fan-out
// fetches stay under the provider's rate limits, and transient failures are
// retried with exponential backoff.
package circleci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Peter554/circle-cli/internal/errors"
	"github.com/Peter554/circle-cli/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBaseURL   = "https://circleci.com/api/v2"
	defaultBaseURLV1 = "https://circleci.com/api/v1.1"

	defaultMaxConcurrent = 5
	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	maxRetries           = 3
)

// ClientConfig holds configuration for the API client. Zero values fall back
// to sensible defaults.
type ClientConfig struct {
	Token         string
	BaseURL       string
	BaseURLV1     string
	MaxConcurrent int64
	Timeout       time.Duration
	RetryInterval time.Duration
}

// Client is a CircleCI API client with bounded request concurrency
type Client struct {
	token         string
	baseURL       string
	baseURLV1     string
	httpClient    *http.Client
	sem           *semaphore.Weighted
	retryInterval time.Duration
}

// NewClient creates a new CircleCI API client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.BaseURLV1 == "" {
		cfg.BaseURLV1 = defaultBaseURLV1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}

	return &Client{
		token:         cfg.Token,
		baseURL:       cfg.BaseURL,
		baseURLV1:     cfg.BaseURLV1,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		sem:           semaphore.NewWeighted(cfg.MaxConcurrent),
		retryInterval: cfg.RetryInterval,
	}
}

// getJSON performs one authenticated GET and decodes the response body into
// target. The request holds a semaphore slot for its full duration
// (including retries) so the concurrency cap bounds real provider pressure.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, authenticated bool, target interface{}) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	requestURL := rawURL
	if len(params) > 0 {
		requestURL = rawURL + "?" + params.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(errors.NewProviderError(fmt.Sprintf("failed to build request for %s", rawURL), err))
		}
		if authenticated {
			req.Header.Set("Circle-Token", c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.GetLogger().Debug("Request failed", zap.String("url", rawURL), zap.Error(err))
			return err // Retryable, backoff will retry
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if err := classifyStatus(resp.StatusCode, rawURL, body); err != nil {
			return err
		}

		if err := json.Unmarshal(body, target); err != nil {
			return backoff.Permanent(errors.NewProviderError(fmt.Sprintf("failed to decode response from %s", rawURL), err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	// Retries exhausted on a transient failure.
	return errors.NewProviderError(fmt.Sprintf("CircleCI unavailable for %s after %d attempts", rawURL, maxRetries+1), err)
}

// classifyStatus maps an HTTP status onto the error taxonomy. Auth and
// not-found failures are permanent: retrying cannot change the outcome.
func classifyStatus(status int, rawURL string, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return backoff.Permanent(errors.NewAuthError("invalid or missing CircleCI token", nil).WithContext("url", rawURL))
	case status == http.StatusNotFound:
		return backoff.Permanent(errors.NewNotFoundError(fmt.Sprintf("not found: %s", rawURL), nil))
	case status == http.StatusTooManyRequests || status >= 500:
		logger.GetLogger().Debug("Transient provider error",
			zap.String("url", rawURL), zap.Int("status", status))
		return fmt.Errorf("status %d from %s", status, rawURL)
	default:
		return backoff.Permanent(errors.NewProviderError(
			fmt.Sprintf("unexpected status %d from %s: %s", status, rawURL, truncate(body, 200)), nil))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// paginatedResponse is the standard v2 API collection envelope
type paginatedResponse struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken *string           `json:"next_page_token"`
}

// getPaginated follows next_page_token until the collection is exhausted or
// maxItems (when positive) have been collected.
func (c *Client) getPaginated(ctx context.Context, rawURL string, params url.Values, maxItems int) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}

	var all []json.RawMessage
	for {
		var page paginatedResponse
		if err := c.getJSON(ctx, rawURL, params, true, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)

		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return all, nil
		}
		params.Set("page-token", *page.NextPageToken)
	}
}

func decodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, errors.NewProviderError("failed to decode API response item", err)
		}
		out = append(out, v)
	}
	return out, nil
}
