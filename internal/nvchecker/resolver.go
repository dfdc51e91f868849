// Package nvchecker locates a package's .nvchecker.toml on the configured
// mirrors and asks nvchecker for the latest upstream version.
package nvchecker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rosalinux/abf-autoupdate/internal/common/config"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

var (
	// ErrNotFound is returned when no mirror serves a version-check configuration
	ErrNotFound = errors.New("no version-check configuration found")
	// ErrNetwork is returned when every mirror failed at the transport level
	ErrNetwork = errors.New("network error")
)

// DefaultProbeTimeout bounds each HEAD probe
const DefaultProbeTimeout = 10 * time.Second

// Prober issues HEAD requests
type Prober interface {
	Head(ctx context.Context, url string, timeout time.Duration) (int, error)
}

// Resolver finds the first mirror serving a package's configuration
type Resolver struct {
	client    Prober
	templates []string
	branch    string
	timeout   time.Duration
}

// NewResolver creates a Resolver probing templates in order.
// Templates may use the {package} and {branch} placeholders.
func NewResolver(client Prober, templates []string, branch string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Resolver{
		client:    client,
		templates: templates,
		branch:    branch,
		timeout:   timeout,
	}
}

// URLs returns the expanded mirror URLs for pkg in probe order
func (r *Resolver) URLs(pkg string) []string {
	urls := make([]string, 0, len(r.templates))
	for _, t := range r.templates {
		urls = append(urls, config.Expand(t, pkg, r.branch))
	}
	return urls
}

// Resolve returns the first mirror URL answering 200 to a HEAD request.
// Transport errors are logged and the next mirror is tried. ErrNetwork is
// returned only when every mirror failed that way, ErrNotFound otherwise.
func (r *Resolver) Resolve(ctx context.Context, pkg string) (string, error) {
	return r.first(ctx, r.URLs(pkg))
}

// ResolveFallback is Resolve restricted to every mirror but the primary one
func (r *Resolver) ResolveFallback(ctx context.Context, pkg string) (string, error) {
	urls := r.URLs(pkg)
	if len(urls) < 2 {
		return "", ErrNotFound
	}
	return r.first(ctx, urls[1:])
}

// Exists reports whether url answers 200 to a HEAD request
func (r *Resolver) Exists(ctx context.Context, url string) (bool, error) {
	status, err := r.client.Head(ctx, url, r.timeout)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrNetwork, url, err)
	}
	return status == http.StatusOK, nil
}

func (r *Resolver) first(ctx context.Context, urls []string) (string, error) {
	var netErrs []error
	for _, url := range urls {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		ok, err := r.Exists(ctx, url)
		if err != nil {
			logger.Warn("probe failed: %v", err)
			netErrs = append(netErrs, err)
			continue
		}
		if ok {
			logger.Debug("found version-check configuration at %s", url)
			return url, nil
		}
		logger.Debug("no version-check configuration at %s", url)
	}

	if len(urls) > 0 && len(netErrs) == len(urls) {
		return "", errors.Join(netErrs...)
	}
	return "", ErrNotFound
}
