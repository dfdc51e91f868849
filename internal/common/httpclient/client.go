// Package httpclient provides an HTTP client with retry logic used to probe
// mirrors and download version-check configurations and spec files.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
	"github.com/rosalinux/abf-autoupdate/internal/common/version"
)

var (
	// ErrMaxRetriesExceeded is returned when all retry attempts have failed
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrRequestTimeout is returned when a request times out
	ErrRequestTimeout = errors.New("request timeout")
	// ErrUnexpectedStatus is returned by Download for any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// envVarPattern matches ${VAR_NAME} syntax for environment variable substitution
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int
	// BaseDelay is the initial delay before first retry (default: 1s)
	BaseDelay time.Duration
	// MaxDelay is the maximum delay between retries (default: 4s)
	MaxDelay time.Duration
	// Timeout is the timeout for each individual request (default: 30s)
	Timeout time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
// Uses exponential backoff with delays of 1s, 2s, 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   4 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// Client wraps an HTTP client with retry logic.
// It implements exponential backoff for failed requests.
type Client struct {
	client *http.Client
	config RetryConfig
	// delayFunc allows overriding the delay function for testing
	delayFunc func(time.Duration)
	// defaultHeaders are headers applied to all requests
	defaultHeaders map[string]string
	// limiter paces every attempt, retries included; nil means unlimited
	limiter *rate.Limiter
}

// New creates a new HTTP client with the default retry configuration.
func New() *Client {
	return NewWithConfig(DefaultRetryConfig())
}

// NewWithConfig creates a new HTTP client with custom retry configuration.
func NewWithConfig(config RetryConfig) *Client {
	return &Client{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		config:    config,
		delayFunc: time.Sleep,
		defaultHeaders: map[string]string{
			"User-Agent": version.UserAgent(),
		},
	}
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.client = client
}

// SetDelayFunc sets a custom delay function (useful for testing).
// The function receives the delay duration that would normally be slept.
func (c *Client) SetDelayFunc(fn func(time.Duration)) {
	c.delayFunc = fn
}

// SetRateLimit limits requests to perSecond with the given burst.
// A non-positive perSecond removes the limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Config returns the current retry configuration.
func (c *Client) Config() RetryConfig {
	return c.config
}

// SetDefaultHeaders adds headers applied to every request.
// Values are processed for ${VAR_NAME} substitution when the request is built.
func (c *Client) SetDefaultHeaders(headers map[string]string) {
	for key, value := range headers {
		c.defaultHeaders[key] = value
	}
}

// DefaultHeaders returns the configured default headers.
func (c *Client) DefaultHeaders() map[string]string {
	return c.defaultHeaders
}

// Do executes an HTTP request with retry logic.
// It retries on network errors, 5xx server errors and 429 with exponential backoff.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.calculateDelay(attempt)
			logger.Debug("retrying %s %s in %v (attempt %d)", req.Method, req.URL, delay, attempt+1)
			c.delayFunc(delay)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		// Clone the request for retry
		reqCopy := req.Clone(ctx)
		c.applyHeaders(reqCopy)

		resp, err := c.client.Do(reqCopy)
		if err != nil {
			lastErr = err
			if isTimeoutError(err) {
				lastErr = fmt.Errorf("%w: %v", ErrRequestTimeout, err)
			}
			continue
		}

		if shouldRetry(resp.StatusCode) {
			if resp.Body != nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			lastResp = resp
			continue
		}

		return resp, nil
	}

	if lastErr != nil {
		return lastResp, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
	}
	return lastResp, ErrMaxRetriesExceeded
}

// Get performs an HTTP GET request with retry logic.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Head issues a HEAD request bounded by timeout and returns the final status code.
// A zero timeout leaves only the client-wide timeout in effect.
func (c *Client) Head(ctx context.Context, url string, timeout time.Duration) (int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		if resp != nil {
			return resp.StatusCode, err
		}
		return 0, err
	}
	resp.Body.Close()

	return resp.StatusCode, nil
}

// Download fetches url into dest, creating parent directories as needed.
// Any response other than 200 OK is an ErrUnexpectedStatus error.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Debug("downloaded %s to %s", url, dest)
	return nil
}

// calculateDelay calculates the delay for a given retry attempt.
// Uses exponential backoff: delay = baseDelay * 2^(attempt-1)
func (c *Client) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := 1 << (attempt - 1)
	delay := c.config.BaseDelay * time.Duration(multiplier)

	if delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}

	return delay
}

// shouldRetry reports whether a status code is worth retrying (5xx and 429).
func shouldRetry(statusCode int) bool {
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	return statusCode == http.StatusTooManyRequests
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeoutError interface {
		Timeout() bool
	}
	var te timeoutError
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

// applyHeaders sets the default headers, substituting environment variables.
// Headers already present on the request are kept.
func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.defaultHeaders {
		if req.Header.Get(key) != "" {
			continue
		}
		req.Header.Set(key, SubstituteEnvVars(value))
	}
}

// SubstituteEnvVars replaces ${VAR_NAME} patterns in a string with
// the corresponding environment variable values.
// If an environment variable is not set, the pattern is replaced with an empty string.
func SubstituteEnvVars(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
