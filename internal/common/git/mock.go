package git

import "context"

// MockGitRunner implements GitExecutor for testing.
// Each method can be configured with a custom function to control behavior.
type MockGitRunner struct {
	StatusFunc    func() ([]StatusEntry, error)
	AddFunc       func(paths ...string) error
	CommitFunc    func(message, user, email string) error
	CommitAllFunc func(message, user, email string) error
	PushFunc      func() error
	workDir       string
}

// NewMockGitRunner creates a new MockGitRunner with the specified working directory
func NewMockGitRunner(workDir string) *MockGitRunner {
	return &MockGitRunner{
		workDir: workDir,
	}
}

// Status returns the current git status as a list of StatusEntry
func (m *MockGitRunner) Status(ctx context.Context) ([]StatusEntry, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return nil, nil
}

// Add stages files for commit
func (m *MockGitRunner) Add(ctx context.Context, paths ...string) error {
	if m.AddFunc != nil {
		return m.AddFunc(paths...)
	}
	return nil
}

// Commit creates a git commit with the specified message and author
func (m *MockGitRunner) Commit(ctx context.Context, message, user, email string) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(message, user, email)
	}
	return nil
}

// CommitAll commits all modified tracked files
func (m *MockGitRunner) CommitAll(ctx context.Context, message, user, email string) error {
	if m.CommitAllFunc != nil {
		return m.CommitAllFunc(message, user, email)
	}
	return nil
}

// Push pushes commits to the remote repository
func (m *MockGitRunner) Push(ctx context.Context) error {
	if m.PushFunc != nil {
		return m.PushFunc()
	}
	return nil
}

// WorkDir returns the working directory of the git repository
func (m *MockGitRunner) WorkDir() string {
	return m.workDir
}

// Ensure MockGitRunner implements GitExecutor interface
var _ GitExecutor = (*MockGitRunner)(nil)
