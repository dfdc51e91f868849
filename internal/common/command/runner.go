// Package command runs external tools and captures their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

var (
	// ErrProcess is returned when a spawned tool cannot start or exits non-zero
	ErrProcess = errors.New("external command failed")
	// ErrNotInstalled is returned when the tool is not found in PATH
	ErrNotInstalled = errors.New("command not found in PATH")
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
	// ExitCode is -1 when the process could not be started
	ExitCode int
}

// Runner executes a program with arguments in a directory.
// An empty dir means the current working directory of the process.
// A non-zero exit returns both a populated Result and an error wrapping ErrProcess.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env entries are appended to the inherited environment
	Env []string
}

// NewExecRunner returns a Runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args and waits for it to finish
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	logger.Debug("running: %s", Format(name, args...))

	err := cmd.Run()
	res := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: 0,
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
		if errors.Is(err, exec.ErrNotFound) {
			return res, fmt.Errorf("%w: %s: %w", ErrProcess, name, ErrNotInstalled)
		}
	}

	return res, wrapFailure(name, res, err)
}

// wrapFailure joins ErrProcess with the trimmed stderr of the command
func wrapFailure(name string, res *Result, err error) error {
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		return errors.Join(fmt.Errorf("%w: %s (exit %d)", ErrProcess, name, res.ExitCode), errors.New(stderr))
	}
	return fmt.Errorf("%w: %s: %w", ErrProcess, name, err)
}

// Available reports whether name resolves to an executable in PATH
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Format renders a command line for log messages
func Format(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
