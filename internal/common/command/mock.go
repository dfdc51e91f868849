package command

import (
	"context"
	"fmt"
	"sync"
)

// Call records a single invocation made through MockRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a command line
func (c Call) String() string {
	return Format(c.Name, c.Args...)
}

// MockRunner implements Runner for testing.
// RunFunc controls the result; when nil every command succeeds with empty output.
type MockRunner struct {
	RunFunc func(dir, name string, args ...string) (*Result, error)

	mu    sync.Mutex
	calls []Call
}

// NewMockRunner creates a MockRunner that succeeds for every command
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Run records the call and delegates to RunFunc
func (m *MockRunner) Run(_ context.Context, dir, name string, args ...string) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(dir, name, args...)
	}
	return &Result{}, nil
}

// Calls returns a copy of all recorded calls in order
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls for the named program
func (m *MockRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Exit builds a failed Result with the given exit code, matching what
// ExecRunner returns for a non-zero exit.
func Exit(name string, code int, stderr string) (*Result, error) {
	res := &Result{Stderr: stderr, ExitCode: code}
	return res, wrapFailure(name, res, fmt.Errorf("exit status %d", code))
}

// Ensure MockRunner implements Runner interface
var _ Runner = (*MockRunner)(nil)
