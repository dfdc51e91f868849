package abf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/workdir"
)

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		call func(*Client) error
		want string
	}{
		{"fetch sources", func(c *Client) error { return c.FetchSources(context.Background(), "curl.spec") }, "spectool -g curl.spec"},
		{"mock", func(c *Client) error { return c.Mock(context.Background()) }, "abf mock -v"},
		{"build", func(c *Client) error { return c.Build(context.Background()) }, "abf build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := command.NewMockRunner()
			if err := tt.call(NewClient(runner)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			calls := runner.Calls()
			if len(calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(calls))
			}
			if got := calls[0].String(); got != tt.want {
				t.Errorf("command = %q, want %q", got, tt.want)
			}
			if calls[0].Dir != "" {
				t.Errorf("command should run in the current directory, got dir %q", calls[0].Dir)
			}
		})
	}
}

func TestCustomPrograms(t *testing.T) {
	runner := command.NewMockRunner()
	client := NewClient(runner, WithSpectool("/opt/bin/spectool"), WithABF("/opt/bin/abf"), WithABF(""))

	_ = client.FetchSources(context.Background(), "x.spec")
	_ = client.Build(context.Background())

	var got []string
	for _, c := range runner.Calls() {
		got = append(got, c.Name)
	}
	if diff := cmp.Diff([]string{"/opt/bin/spectool", "/opt/bin/abf"}, got); diff != "" {
		t.Errorf("programs mismatch (-want +got):\n%s", diff)
	}
}

func TestPutRemovesManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, MetadataFile)
	if err := os.WriteFile(manifest, []byte("sources:\n  old.tar.gz: abc\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &command.MockRunner{RunFunc: func(_, name string, args ...string) (*command.Result, error) {
		if _, err := os.Stat(MetadataFile); !os.IsNotExist(err) {
			t.Errorf("%s should be gone before abf put runs", MetadataFile)
		}
		return &command.Result{}, nil
	}}

	err := workdir.Within(dir, func() error {
		return NewClient(runner).Put(context.Background())
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got := runner.Calls(); len(got) != 1 || got[0].String() != "abf put" {
		t.Errorf("calls = %v, want [abf put]", got)
	}
}

func TestPutWithoutManifest(t *testing.T) {
	runner := command.NewMockRunner()
	err := workdir.Within(t.TempDir(), func() error {
		return NewClient(runner).Put(context.Background())
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func TestFailureCarriesStderr(t *testing.T) {
	runner := &command.MockRunner{RunFunc: func(_, name string, args ...string) (*command.Result, error) {
		return command.Exit(name, 1, "error: Bad source: curl-7.3.0.tar.xz")
	}}

	err := NewClient(runner).FetchSources(context.Background(), "curl.spec")
	if !errors.Is(err, command.ErrProcess) {
		t.Fatalf("error = %v, want ErrProcess", err)
	}
	if !strings.Contains(err.Error(), "Bad source") {
		t.Errorf("error %q should include stderr", err)
	}
}
