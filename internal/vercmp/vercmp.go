// Package vercmp compares an upstream version against the packaged one using
// RPM version ordering.
package vercmp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	version "github.com/knqyf263/go-rpm-version"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
)

var (
	// ErrComparison is returned when two versions cannot be ordered
	ErrComparison = errors.New("version comparison failed")
)

// Result is the ordering of an upstream version relative to the current one
type Result int

const (
	// Same means both versions are equal
	Same Result = iota
	// Newer means upstream is newer than current
	Newer
	// Older means upstream is older than current
	Older
)

func (r Result) String() string {
	switch r {
	case Same:
		return "same"
	case Newer:
		return "newer"
	case Older:
		return "older"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Comparator orders an upstream version against the current packaged version
type Comparator interface {
	Compare(ctx context.Context, upstream, current string) (Result, error)
}

// rpmdev-vercmp exit codes
const (
	exitSame  = 0
	exitNewer = 11
	exitOlder = 12
)

// ExecComparator delegates to rpmdev-vercmp
type ExecComparator struct {
	Runner  command.Runner
	Program string
}

// NewExecComparator returns an ExecComparator running program (rpmdev-vercmp if empty)
func NewExecComparator(runner command.Runner, program string) *ExecComparator {
	if program == "" {
		program = "rpmdev-vercmp"
	}
	return &ExecComparator{Runner: runner, Program: program}
}

// Compare runs "rpmdev-vercmp upstream current" and maps its exit code.
// rpmdev-vercmp exits 11 when the first argument is newer and 12 when it is older.
func (c *ExecComparator) Compare(ctx context.Context, upstream, current string) (Result, error) {
	res, err := c.Runner.Run(ctx, "", c.Program, upstream, current)
	if res == nil {
		return Same, fmt.Errorf("%w: %w", ErrComparison, err)
	}

	switch res.ExitCode {
	case exitSame:
		if err != nil {
			return Same, fmt.Errorf("%w: %w", ErrComparison, err)
		}
		return Same, nil
	case exitNewer:
		return Newer, nil
	case exitOlder:
		return Older, nil
	}

	if err == nil {
		err = fmt.Errorf("unexpected exit code %d", res.ExitCode)
	}
	return Same, fmt.Errorf("%w: %s %s: %w", ErrComparison, upstream, current, err)
}

// RPMComparator compares versions in-process with rpm's ordering rules
type RPMComparator struct{}

// Compare orders upstream against current. Empty versions cannot be compared.
func (RPMComparator) Compare(_ context.Context, upstream, current string) (Result, error) {
	upstream = strings.TrimSpace(upstream)
	current = strings.TrimSpace(current)
	if upstream == "" || current == "" {
		return Same, fmt.Errorf("%w: empty version (upstream %q, current %q)", ErrComparison, upstream, current)
	}

	v1 := version.NewVersion(upstream)
	v2 := version.NewVersion(current)

	switch v1.Compare(v2) {
	case 1:
		return Newer, nil
	case -1:
		return Older, nil
	default:
		return Same, nil
	}
}

// New returns the comparator selected by name: "builtin" for RPMComparator,
// anything else for ExecComparator running program.
func New(name string, runner command.Runner, program string) Comparator {
	if name == "builtin" {
		return RPMComparator{}
	}
	return NewExecComparator(runner, program)
}
