// Package abf wraps the tools that fetch sources and talk to the ABF build
// system: spectool and the abf console client.
//
// Every command runs in the current working directory; callers enter the
// package checkout first.
package abf

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

// MetadataFile is the ABF source manifest regenerated by "abf put"
const MetadataFile = ".abf.yml"

// Client runs spectool and abf through a command.Runner
type Client struct {
	runner   command.Runner
	spectool string
	abf      string
}

// Option configures a Client
type Option func(*Client)

// WithSpectool overrides the spectool program
func WithSpectool(program string) Option {
	return func(c *Client) {
		if program != "" {
			c.spectool = program
		}
	}
}

// WithABF overrides the abf program
func WithABF(program string) Option {
	return func(c *Client) {
		if program != "" {
			c.abf = program
		}
	}
}

// NewClient creates a Client
func NewClient(runner command.Runner, opts ...Option) *Client {
	c := &Client{
		runner:   runner,
		spectool: "spectool",
		abf:      "abf",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSources downloads the sources listed in spec with spectool -g
func (c *Client) FetchSources(ctx context.Context, spec string) error {
	return c.run(ctx, c.spectool, "-g", spec)
}

// Mock builds the package locally with abf mock -v
func (c *Client) Mock(ctx context.Context) error {
	return c.run(ctx, c.abf, "mock", "-v")
}

// Put uploads new source tarballs to the ABF file store. The existing
// .abf.yml is removed first so abf put writes a fresh manifest.
func (c *Client) Put(ctx context.Context) error {
	if err := os.Remove(MetadataFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return c.run(ctx, c.abf, "put")
}

// Build triggers a build of the current branch on ABF
func (c *Client) Build(ctx context.Context) error {
	return c.run(ctx, c.abf, "build")
}

func (c *Client) run(ctx context.Context, name string, args ...string) error {
	res, err := c.runner.Run(ctx, "", name, args...)
	if err != nil {
		return err
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		logger.Debug("%s: %s", command.Format(name, args...), out)
	}
	return nil
}
