package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoMirrors            = errors.New("no version-check mirrors configured")
	ErrMirrorTemplate       = errors.New("mirror URL must contain the {package} placeholder")
	ErrBranchNotSet         = errors.New("branch is not configured")
	ErrUnknownComparator    = errors.New("unknown comparator: must be 'rpmdev-vercmp' or 'builtin'")
	ErrGitUserNotConfigured = errors.New("git user is not configured: set git.user and git.email or user.name and user.email in ~/.gitconfig")
)

// Comparator names accepted by the comparator setting
const (
	ComparatorExec    = "rpmdev-vercmp"
	ComparatorBuiltin = "builtin"
)

// DefaultBranch is the ABF branch updated when none is given
const DefaultBranch = "rosa2023.1"

// Placeholders expanded in URL templates
const (
	PackagePlaceholder = "{package}"
	BranchPlaceholder  = "{branch}"
)

// Config represents the application configuration
type Config struct {
	// Branch is the ABF branch packages are cloned from and pushed to
	Branch string `yaml:"branch"`
	// Mirrors are URL templates probed in order for .nvchecker.toml
	Mirrors []string `yaml:"mirrors"`
	// SpecURL is the URL template of a package's spec file, used by check
	SpecURL string `yaml:"spec_url"`
	// Workspace is the directory package repositories are checked out into
	Workspace string `yaml:"workspace"`
	// ScratchDir holds per-package temporary files; empty means os.TempDir()
	ScratchDir string `yaml:"scratch_dir,omitempty"`
	// Comparator selects the version comparison backend
	Comparator string `yaml:"comparator"`
	// MockBuild runs a local "abf mock" build before uploading sources.
	// Enabled unless the file sets mock_build: false.
	MockBuild bool `yaml:"mock_build"`
	// Log is the outcome log path; empty disables it
	Log string `yaml:"log,omitempty"`

	Git   GitConfig   `yaml:"git"`
	Tools ToolsConfig `yaml:"tools"`
	HTTP  HTTPConfig  `yaml:"http"`
}

// GitConfig holds repository and author settings
type GitConfig struct {
	Remote string `yaml:"remote"` // URL template of the package repository
	User   string `yaml:"user,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

// ToolsConfig holds the names or paths of external programs
type ToolsConfig struct {
	Nvchecker string `yaml:"nvchecker"`
	Vercmp    string `yaml:"vercmp"`
	RPMSpec   string `yaml:"rpmspec"`
	Spectool  string `yaml:"spectool"`
	ABF       string `yaml:"abf"`
}

// HTTPConfig holds HTTP client settings
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	// RequestsPerSecond caps outgoing requests; zero means unlimited
	RequestsPerSecond float64           `yaml:"requests_per_second,omitempty"`
	Headers           map[string]string `yaml:"headers,omitempty"` // values support ${ENV_VAR}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Branch: DefaultBranch,
		Mirrors: []string{
			"https://abf.io/import/{package}/raw/{branch}/.nvchecker.toml",
			"https://gitlab.archlinux.org/archlinux/packaging/packages/{package}/-/raw/main/.nvchecker.toml",
		},
		SpecURL:    "https://abf.io/import/{package}/raw/{branch}/{package}.spec",
		Workspace:  "~/abf",
		Comparator: ComparatorExec,
		MockBuild:  true,
		Git: GitConfig{
			Remote: "git@abf.io:import/{package}.git",
		},
		Tools: ToolsConfig{
			Nvchecker: "nvchecker",
			Vercmp:    "rpmdev-vercmp",
			RPMSpec:   "rpmspec",
			Spectool:  "spectool",
			ABF:       "abf",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			ProbeTimeout: 10 * time.Second,
			MaxRetries:   3,
		},
	}
}

// ApplyDefaults fills unset fields from Default
func (c *Config) ApplyDefaults() {
	d := Default()
	setDefault(&c.Branch, d.Branch)
	if len(c.Mirrors) == 0 {
		c.Mirrors = d.Mirrors
	}
	setDefault(&c.SpecURL, d.SpecURL)
	setDefault(&c.Workspace, d.Workspace)
	setDefault(&c.Comparator, d.Comparator)
	setDefault(&c.Git.Remote, d.Git.Remote)
	setDefault(&c.Tools.Nvchecker, d.Tools.Nvchecker)
	setDefault(&c.Tools.Vercmp, d.Tools.Vercmp)
	setDefault(&c.Tools.RPMSpec, d.Tools.RPMSpec)
	setDefault(&c.Tools.Spectool, d.Tools.Spectool)
	setDefault(&c.Tools.ABF, d.Tools.ABF)
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.HTTP.ProbeTimeout <= 0 {
		c.HTTP.ProbeTimeout = d.HTTP.ProbeTimeout
	}
	if c.HTTP.MaxRetries < 0 {
		c.HTTP.MaxRetries = 0
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate checks the settings the updater cannot run without
func (c *Config) Validate() error {
	if c.Branch == "" {
		return ErrBranchNotSet
	}
	if len(c.Mirrors) == 0 {
		return ErrNoMirrors
	}
	for _, m := range c.Mirrors {
		if !strings.Contains(m, PackagePlaceholder) {
			return fmt.Errorf("%w: %q", ErrMirrorTemplate, m)
		}
	}
	switch c.Comparator {
	case ComparatorExec, ComparatorBuiltin:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownComparator, c.Comparator)
	}
	return nil
}

// Expand substitutes {package} and {branch} in a URL template
func Expand(template, pkg, branch string) string {
	return strings.NewReplacer(PackagePlaceholder, pkg, BranchPlaceholder, branch).Replace(template)
}

// MirrorURLs returns the expanded mirror URLs for a package in probe order
func (c *Config) MirrorURLs(pkg string) []string {
	urls := make([]string, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		urls = append(urls, Expand(m, pkg, c.Branch))
	}
	return urls
}

// RepositoryURL returns the git URL of a package repository
func (c *Config) RepositoryURL(pkg string) string {
	return Expand(c.Git.Remote, pkg, c.Branch)
}

// SpecFileURL returns the remote spec file URL of a package
func (c *Config) SpecFileURL(pkg string) string {
	return Expand(c.SpecURL, pkg, c.Branch)
}

// WorkspacePath returns the workspace directory with ~ expanded
func (c *Config) WorkspacePath() (string, error) {
	return ExpandHome(c.Workspace)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ~/.config/abf-autoupdate/config.yaml (XDG standard - priority)
// 2. ~/.abf-autoupdate/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "abf-autoupdate", "config.yaml"),
		filepath.Join(home, ".abf-autoupdate", "config.yaml"),
	}, nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return paths[0], nil
}

// Load reads configuration from the first available config file
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path.
// A missing file is created with the default configuration.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	// Decode over the defaults so omitted booleans keep their default value
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()

	return cfg, nil
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetGitUser returns the commit author name and email.
// Explicit git.user/git.email settings win over ~/.gitconfig.
func (c *Config) GetGitUser() (user, email string, err error) {
	if c.Git.User != "" && c.Git.Email != "" {
		return c.Git.User, c.Git.Email, nil
	}

	gitconfigPath, err := defaultGitconfigPath()
	if err == nil {
		user, email, err = parseGitconfig(gitconfigPath)
		if err == nil && user != "" && email != "" {
			return user, email, nil
		}
	}

	return "", "", ErrGitUserNotConfigured
}

// defaultGitconfigPath returns the default gitconfig file path
func defaultGitconfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitconfig"), nil
}

// parseGitconfig reads user.name and user.email from a gitconfig file
func parseGitconfig(path string) (user, email string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	return ParseGitconfigContent(file)
}

// ParseGitconfigContent parses the [user] section of gitconfig INI content.
func ParseGitconfigContent(r io.Reader) (user, email string, err error) {
	scanner := bufio.NewScanner(r)
	inUserSection := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToLower(strings.Trim(line, "[]"))
			inUserSection = section == "user"
			continue
		}

		if inUserSection {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(strings.ToLower(parts[0]))
			value := strings.TrimSpace(parts[1])

			switch key {
			case "name":
				user = value
			case "email":
				email = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", err
	}

	return user, email, nil
}
