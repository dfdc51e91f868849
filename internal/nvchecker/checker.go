package nvchecker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
)

var (
	// ErrParse is returned for a malformed .nvchecker.toml
	ErrParse = errors.New("invalid nvchecker configuration")
	// ErrNoVersion is returned when nvchecker reports no version for the package
	ErrNoVersion = errors.New("nvchecker reported no version")
)

// ConfigFile is the file name nvchecker configurations are stored under
const ConfigFile = ".nvchecker.toml"

// globalSection holds nvchecker options rather than a package entry
const globalSection = "__config__"

// Downloader saves the body of a URL to a local file
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Record is one line of nvchecker's JSON log output
type Record struct {
	Event   string `json:"event"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Level   string `json:"level"`
	Error   string `json:"error,omitempty"`
}

// Checker runs nvchecker against downloaded configurations
type Checker struct {
	client     Downloader
	runner     command.Runner
	program    string
	scratchDir string
}

// NewChecker creates a Checker. Scratch directories are created under
// scratchDir, or the system temporary directory when it is empty.
func NewChecker(client Downloader, runner command.Runner, program, scratchDir string) *Checker {
	if program == "" {
		program = "nvchecker"
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Checker{
		client:     client,
		runner:     runner,
		program:    program,
		scratchDir: scratchDir,
	}
}

// UpstreamVersion downloads the configuration at configURL into a private
// scratch directory, runs nvchecker there and returns the version reported
// for pkg. The scratch directory is removed on return.
func (c *Checker) UpstreamVersion(ctx context.Context, pkg, configURL string) (string, error) {
	dir, err := c.scratch(pkg)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	path, err := c.Fetch(ctx, configURL, dir)
	if err != nil {
		return "", err
	}

	res, err := c.run(ctx, dir, path)
	if err != nil {
		return "", err
	}

	records := ParseRecords(res.Stdout)
	records = append(records, ParseRecords(res.Stderr)...)

	v, ok := VersionFor(records, pkg)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoVersion, pkg)
	}
	return v, nil
}

// Fetch downloads configURL into dir as .nvchecker.toml and validates it
func (c *Checker) Fetch(ctx context.Context, configURL, dir string) (string, error) {
	path := filepath.Join(dir, ConfigFile)
	if err := c.client.Download(ctx, configURL, path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	entries, err := LoadEntries(path)
	if err != nil {
		return "", err
	}
	logger.Debug("%s declares: %s", configURL, strings.Join(entries, ", "))

	return path, nil
}

// Validate runs nvchecker on the configuration at path and fails on a
// non-zero exit, proving the file is usable before it is committed.
func (c *Checker) Validate(ctx context.Context, path string) error {
	_, err := c.run(ctx, filepath.Dir(path), path)
	return err
}

// scratch allocates a unique scratch directory for pkg
func (c *Checker) scratch(pkg string) (string, error) {
	dir := filepath.Join(c.scratchDir, "abf-autoupdate-"+pkg+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Checker) run(ctx context.Context, dir, path string) (*command.Result, error) {
	return c.runner.Run(ctx, dir, c.program, "-c", path, "--logger", "json")
}

// LoadEntries parses an nvchecker configuration and returns the names of
// the package entries it declares, sorted.
func LoadEntries(path string) ([]string, error) {
	var doc map[string]any
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	entries := make([]string, 0, len(doc))
	for name, value := range doc {
		if name == globalSection {
			continue
		}
		if _, ok := value.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: %q is not a table", ErrParse, name)
		}
		entries = append(entries, name)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no package entries", ErrParse)
	}
	sort.Strings(entries)
	return entries, nil
}

// ParseRecords decodes line-delimited JSON log output.
// Lines that are not JSON objects are skipped.
func ParseRecords(output string) []Record {
	var records []Record
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Debug("skipping unparsable nvchecker line: %s", line)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// VersionFor returns the version of the first record named pkg that carries one
func VersionFor(records []Record, pkg string) (string, bool) {
	for _, rec := range records {
		if rec.Name == pkg && rec.Version != "" {
			return rec.Version, true
		}
	}
	return "", false
}
