package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rosalinux/abf-autoupdate/internal/autoupdate"
	"github.com/rosalinux/abf-autoupdate/internal/common/config"
	"github.com/rosalinux/abf-autoupdate/internal/common/output"
)

// TestSubcommandsRegistered tests that every subcommand is attached to the root
func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"update": false, "check": false, "autoadd": false, "version": false, "completion": false}
	for _, cmd := range rootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s subcommand should exist", name)
		}
	}
}

// TestGlobalFlags tests the persistent flags shared by all subcommands
func TestGlobalFlags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		typ       string
	}{
		{"verbose", "v", "bool"},
		{"quiet", "q", "bool"},
		{"no-color", "", "bool"},
		{"debug-log", "", "bool"},
		{"config", "", "string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := rootCmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("root command should have --%s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("--%s shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.Value.Type() != tt.typ {
				t.Errorf("--%s type = %s, want %s", tt.name, flag.Value.Type(), tt.typ)
			}
		})
	}
}

// TestUpdateCommandFlags tests that all update flags are present with the right types
func TestUpdateCommandFlags(t *testing.T) {
	flags := map[string]string{
		"package": "stringSlice",
		"file":    "string",
		"branch":  "string",
		"log":     "string",
		"dry-run": "bool",
	}
	for name, typ := range flags {
		flag := updateCmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("update command should have --%s flag", name)
			continue
		}
		if flag.Value.Type() != typ {
			t.Errorf("flag %s should be %s, got %s", name, typ, flag.Value.Type())
		}
	}
}

// TestPackageFlagGroups tests that --package and --file are exclusive and one is required
func TestPackageFlagGroups(t *testing.T) {
	for _, name := range []string{"update", "check", "autoadd"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatal(err)
			}
			for _, flagName := range []string{"package", "file"} {
				flag := sub.Flags().Lookup(flagName)
				if flag == nil {
					t.Fatalf("%s should have --%s", name, flagName)
				}
				if _, ok := flag.Annotations["cobra_annotation_mutually_exclusive"]; !ok {
					t.Errorf("--%s should be mutually exclusive", flagName)
				}
				if _, ok := flag.Annotations["cobra_annotation_one_required"]; !ok {
					t.Errorf("--%s should belong to a one-required group", flagName)
				}
			}
		})
	}
}

// TestCommandDescriptions tests that subcommands document themselves
func TestCommandDescriptions(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Short == "" {
			t.Errorf("%s should have a short description", cmd.Name())
		}
	}
	for _, example := range []string{"--package", "--file", "--dry-run", "--branch", "--log"} {
		if !strings.Contains(updateCmd.Long, example) {
			t.Errorf("update long description should contain an example with %s", example)
		}
	}
}

func TestPackageFlagsPackages(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "packages.txt")
	if err := os.WriteFile(list, []byte("# core\ncurl\n\nhtop\n"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		flags   packageFlags
		args    []string
		want    []string
		wantErr error
	}{
		{"names", packageFlags{names: []string{"curl", "htop"}}, nil, []string{"curl", "htop"}, nil},
		{"names and arguments", packageFlags{names: []string{"curl"}}, []string{"htop", "dos2unix"}, []string{"curl", "htop", "dos2unix"}, nil},
		{"empty names dropped", packageFlags{names: []string{"", "curl"}}, nil, []string{"curl"}, nil},
		{"file", packageFlags{file: list}, nil, []string{"curl", "htop"}, nil},
		{"empty file", packageFlags{file: empty}, nil, nil, autoupdate.ErrNoPackages},
		{"missing file", packageFlags{file: filepath.Join(dir, "missing")}, nil, nil, os.ErrNotExist},
		{"nothing", packageFlags{}, nil, nil, autoupdate.ErrNoPackages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.packages(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("packages() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("packages() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	both := packageFlags{names: []string{"curl"}, file: list}
	if _, err := both.packages(nil); err == nil {
		t.Error("--package with --file should fail")
	}
	fileAndArgs := packageFlags{file: list}
	if _, err := fileAndArgs.packages([]string{"zlib"}); err == nil {
		t.Error("positional names with --file should fail")
	}
}

// TestPackageSelectionFromCommandLine runs the real argument parsing of each
// subcommand and checks every name after --package is selected
func TestPackageSelectionFromCommandLine(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "packages.txt")
	if err := os.WriteFile(list, []byte("curl\nhtop\n"), 0644); err != nil {
		t.Fatal(err)
	}

	commands := map[string]*packageFlags{
		"update":  &updatePackages,
		"check":   &checkPackages,
		"autoadd": &autoaddPackages,
	}

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{"space separated", []string{"--package", "curl", "htop", "dos2unix"}, []string{"curl", "htop", "dos2unix"}, false},
		{"comma separated", []string{"--package", "curl,htop"}, []string{"curl", "htop"}, false},
		{"repeated flag", []string{"-p", "curl", "-p", "htop", "dos2unix"}, []string{"curl", "htop", "dos2unix"}, false},
		{"file", []string{"--file", list}, []string{"curl", "htop"}, false},
		{"file with extra names", []string{"--file", list, "zlib"}, nil, true},
		{"names without flag", []string{"curl"}, nil, true},
	}

	for name, pf := range commands {
		sub, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Fatal(err)
		}
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				var got []string
				origRunE := sub.RunE
				sub.RunE = func(cmd *cobra.Command, args []string) error {
					pkgs, err := pf.packages(args)
					got = pkgs
					return err
				}
				t.Cleanup(func() {
					sub.RunE = origRunE
					resetPackageFlags(sub, pf)
					rootCmd.SetArgs(nil)
				})

				rootCmd.SetOut(io.Discard)
				rootCmd.SetErr(io.Discard)
				rootCmd.SetArgs(append([]string{name}, tt.args...))
				err := rootCmd.Execute()
				if tt.wantErr {
					if err == nil {
						t.Fatalf("Execute() selected %v, want an error", got)
					}
					return
				}
				if err != nil {
					t.Fatalf("Execute() error = %v", err)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("selected packages mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

// resetPackageFlags clears parsed --package and --file values between executions
func resetPackageFlags(cmd *cobra.Command, pf *packageFlags) {
	*pf = packageFlags{}
	for _, name := range []string{"package", "file"} {
		flag := cmd.Flags().Lookup(name)
		if sv, ok := flag.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = flag.Value.Set(flag.DefValue)
		}
		flag.Changed = false
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Log = "/var/log/autoupdate.log"

	applyOverrides(cfg, "", "")
	if cfg.Branch != config.DefaultBranch || cfg.Log != "/var/log/autoupdate.log" {
		t.Errorf("empty overrides changed config: %+v", cfg)
	}

	applyOverrides(cfg, "rosa13", "/tmp/out.log")
	if cfg.Branch != "rosa13" || cfg.Log != "/tmp/out.log" {
		t.Errorf("overrides not applied: branch=%s log=%s", cfg.Branch, cfg.Log)
	}
}

func TestOutcomeLogOption(t *testing.T) {
	cfg := config.Default()
	_, closeLog, err := outcomeLogOption(cfg)
	if err != nil {
		t.Fatalf("no log configured: %v", err)
	}
	closeLog()

	cfg.Log = filepath.Join(t.TempDir(), "nested", "outcomes.log")
	opt, closeLog, err := outcomeLogOption(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()
	if opt == nil {
		t.Fatal("expected an option")
	}
	if _, err := os.Stat(cfg.Log); err != nil {
		t.Errorf("outcome log not created: %v", err)
	}
}

func TestDisplayOutcomes(t *testing.T) {
	output.NoColor()

	var buf bytes.Buffer
	displayOutcomes(&buf, "Update Results", []autoupdate.Outcome{
		{Package: "curl", Kind: autoupdate.Updated, From: "8.10.0", To: "8.11.1"},
		{Package: "htop", Kind: autoupdate.UpToDate, From: "3.3.0", To: "3.3.0"},
		{Package: "zlib", Kind: autoupdate.Skipped, Reason: "no .nvchecker.toml found on any mirror"},
	})

	got := buf.String()
	for _, want := range []string{
		"Update Results",
		"[updated] curl upgraded [8.10.0] to [8.11.1]",
		"[up-to-date] htop is up to date [3.3.0]",
		"[skipped] zlib skipped: no .nvchecker.toml found on any mirror",
		"updated: 1  up to date: 1  skipped: 1  failed: 0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "added:") {
		t.Error("added count should only be shown when non-zero")
	}

	buf.Reset()
	displayOutcomes(&buf, "Empty", nil)
	if buf.Len() != 0 {
		t.Errorf("no outcomes should print nothing, got %q", buf.String())
	}
}

func TestDisplayCheckResults(t *testing.T) {
	output.NoColor()

	var buf bytes.Buffer
	displayCheckResults(&buf, []autoupdate.CheckResult{
		{Package: "curl", CurrentVersion: "8.10.0", UpstreamVersion: "8.11.1", HasUpdate: true},
		{Package: "htop", CurrentVersion: "3.3.0", UpstreamVersion: "3.3.0"},
		{Package: "gone", Error: &autoupdate.StageError{Stage: autoupdate.StageReadVersion, Err: errors.New("404")}},
	})

	got := buf.String()
	for _, want := range []string{
		"[outdated] curl: 8.10.0 → 8.11.1",
		"[up-to-date] htop: 3.3.0",
		"[failed] gone: read-version: 404",
		"Found 1 update(s) available",
		"1 package(s) had errors",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

// TestSummaryLineCounts checks every count appears in the summary line
func TestSummaryLineCounts(t *testing.T) {
	output.NoColor()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("summary reports each count", prop.ForAll(
		func(updated, upToDate, skipped, failed int) bool {
			line := summaryLine(autoupdate.Summary{Updated: updated, UpToDate: upToDate, Skipped: skipped, Failed: failed})
			return strings.Contains(line, "updated: "+strconv.Itoa(updated)) &&
				strings.Contains(line, "up to date: "+strconv.Itoa(upToDate)) &&
				strings.Contains(line, "skipped: "+strconv.Itoa(skipped)) &&
				strings.Contains(line, "failed: "+strconv.Itoa(failed))
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}

