package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrPathOutsideRepo = errors.New("path is outside repository directory")
	ErrInvalidPath     = errors.New("invalid path")
	ErrGitCommand      = errors.New("git command failed")
	ErrNotARepository  = errors.New("directory exists but is not a git repository")
)

// GitRunner executes git commands in a specific working directory
type GitRunner struct {
	workDir string
	runner  command.Runner
}

// NewGitRunner creates a new GitRunner for the specified working directory
func NewGitRunner(workDir string) *GitRunner {
	return NewGitRunnerWith(workDir, command.NewExecRunner())
}

// NewGitRunnerWith creates a GitRunner that spawns git through the given runner
func NewGitRunnerWith(workDir string, runner command.Runner) *GitRunner {
	return &GitRunner{
		workDir: workDir,
		runner:  runner,
	}
}

// WorkDir returns the working directory of the GitRunner
func (g *GitRunner) WorkDir() string {
	return g.workDir
}

// runCommand executes a git command and returns stdout, stderr, and any error
func (g *GitRunner) runCommand(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	res, err := g.runner.Run(ctx, g.workDir, "git", args...)
	if res != nil {
		stdout = res.Stdout
		stderr = res.Stderr
	}

	if err != nil {
		// The runner error already carries stderr for context
		err = errors.Join(ErrGitCommand, err)
	}

	return stdout, stderr, err
}

// Clone clones branch of url into dest and returns a runner for the new checkout.
// An existing dest is removed first so the checkout always matches the remote.
func Clone(ctx context.Context, runner command.Runner, url, branch, dest string) (*GitRunner, error) {
	if err := os.RemoveAll(dest); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, err
	}

	args := []string{"clone"}
	if branch != "" {
		args = append(args, "-b", branch)
	}
	args = append(args, url, dest)

	if _, err := runner.Run(ctx, "", "git", args...); err != nil {
		return nil, errors.Join(ErrGitCommand, err)
	}
	return NewGitRunnerWith(dest, runner), nil
}

// Open returns a runner for an existing checkout, or clones a fresh one when
// dest does not exist yet. An existing checkout is reset to the remote branch:
// local commits, edits and untracked files left by an earlier run are discarded.
func Open(ctx context.Context, runner command.Runner, url, branch, dest string) (*GitRunner, error) {
	info, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return Clone(ctx, runner, url, branch, dest)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() || !IsRepository(dest) {
		return nil, ErrNotARepository
	}

	repo := NewGitRunnerWith(dest, runner)
	entries, err := repo.Status(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		logger.Warn("Discarding %d leftover change(s) in %s", len(entries), dest)
		for _, e := range entries {
			logger.Debug("  %s %s", e.Status, e.FilePath)
		}
	}
	if err := repo.ResetToRemote(ctx, branch); err != nil {
		return nil, err
	}
	return repo, nil
}

// ResetToRemote fetches branch from origin and makes the work tree match it.
// An empty branch resets the current branch to its upstream.
func (g *GitRunner) ResetToRemote(ctx context.Context, branch string) error {
	steps := [][]string{
		{"fetch", "origin"},
		{"reset", "--hard", "@{upstream}"},
	}
	if branch != "" {
		steps = [][]string{
			{"fetch", "origin", branch},
			{"checkout", "-f", "-B", branch, "origin/" + branch},
		}
	}
	steps = append(steps, []string{"clean", "-fdx"})

	for _, args := range steps {
		if _, _, err := g.runCommand(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// IsRepository reports whether dir contains a .git directory
func IsRepository(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// StatusEntry represents a single entry from git status --porcelain
type StatusEntry struct {
	Status   string // A, M, D, R, ??
	FilePath string
}

// Status returns the current git status as a list of StatusEntry
func (g *GitRunner) Status(ctx context.Context) ([]StatusEntry, error) {
	stdout, _, err := g.runCommand(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	return ParseStatusOutput(stdout), nil
}

// ParseStatusOutput parses git status --porcelain output into StatusEntry slice
func ParseStatusOutput(output string) []StatusEntry {
	var entries []StatusEntry

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		if len(line) < 3 {
			continue
		}

		// Git status --porcelain format: XY filename
		status := strings.TrimSpace(line[:2])
		filePath := line[3:]

		// Handle renamed files: R  old -> new
		if strings.HasPrefix(status, "R") {
			parts := strings.Split(filePath, " -> ")
			if len(parts) == 2 {
				filePath = parts[1]
			}
		}

		entries = append(entries, StatusEntry{
			Status:   status,
			FilePath: filePath,
		})
	}

	return entries
}

// Add stages files for commit with path validation
func (g *GitRunner) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		// Default to adding all changes
		_, _, err := g.runCommand(ctx, "add", ".")
		return err
	}

	for _, path := range paths {
		if err := g.validateAndAddPath(ctx, path); err != nil {
			return err
		}
	}

	return nil
}

// validateAndAddPath validates a single path and adds it to staging
func (g *GitRunner) validateAndAddPath(ctx context.Context, path string) error {
	var absPath string
	if filepath.IsAbs(path) {
		absPath = path
	} else {
		absPath = filepath.Join(g.workDir, path)
	}

	absPath = filepath.Clean(absPath)
	workDirAbs := filepath.Clean(g.workDir)

	relPath, err := filepath.Rel(workDirAbs, absPath)
	if err != nil {
		return errors.Join(ErrInvalidPath, err)
	}

	if strings.HasPrefix(relPath, "..") {
		return ErrPathOutsideRepo
	}

	if !fileExists(absPath) {
		return ErrFileNotFound
	}

	_, _, err = g.runCommand(ctx, "add", relPath)
	return err
}

// fileExists checks if a file or directory exists using os.Stat
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Commit creates a git commit with the specified message and author
func (g *GitRunner) Commit(ctx context.Context, message, user, email string) error {
	return g.commit(ctx, false, message, user, email)
}

// CommitAll commits all modified tracked files with the specified message and author
func (g *GitRunner) CommitAll(ctx context.Context, message, user, email string) error {
	return g.commit(ctx, true, message, user, email)
}

func (g *GitRunner) commit(ctx context.Context, all bool, message, user, email string) error {
	args := []string{"commit"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "-m", message)

	// Set author if provided
	if user != "" && email != "" {
		args = append(args, "--author", user+" <"+email+">")
	}

	_, _, err := g.runCommand(ctx, args...)
	return err
}

// Push pushes commits to the remote repository
func (g *GitRunner) Push(ctx context.Context) error {
	_, _, err := g.runCommand(ctx, "push")
	return err
}

// Ensure GitRunner implements GitExecutor interface
var _ GitExecutor = (*GitRunner)(nil)
