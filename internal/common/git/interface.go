package git

import "context"

// GitExecutor defines the interface for git operations.
// This interface allows for mocking git operations in tests.
type GitExecutor interface {
	// Status returns the current git status as a list of StatusEntry
	Status(ctx context.Context) ([]StatusEntry, error)

	// Add stages files for commit
	Add(ctx context.Context, paths ...string) error

	// Commit creates a git commit of the staged changes with the specified message and author
	Commit(ctx context.Context, message, user, email string) error

	// CommitAll commits every modified tracked file (git commit -a)
	CommitAll(ctx context.Context, message, user, email string) error

	// Push pushes commits to the remote repository
	Push(ctx context.Context) error

	// WorkDir returns the working directory of the git repository
	WorkDir() string
}
