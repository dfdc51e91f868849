package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rosalinux/abf-autoupdate/internal/abf"
	"github.com/rosalinux/abf-autoupdate/internal/common/command"
	"github.com/rosalinux/abf-autoupdate/internal/common/config"
	"github.com/rosalinux/abf-autoupdate/internal/common/git"
	"github.com/rosalinux/abf-autoupdate/internal/common/httpclient"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
	"github.com/rosalinux/abf-autoupdate/internal/common/workdir"
	"github.com/rosalinux/abf-autoupdate/internal/nvchecker"
	"github.com/rosalinux/abf-autoupdate/internal/rpmspec"
	"github.com/rosalinux/abf-autoupdate/internal/vercmp"
)

// CommitMessagePrefix starts every version bump commit message
const CommitMessagePrefix = "autoupdate version to "

// Resolver locates a package's version-check configuration on the mirrors
type Resolver interface {
	URLs(pkg string) []string
	Resolve(ctx context.Context, pkg string) (string, error)
	ResolveFallback(ctx context.Context, pkg string) (string, error)
	Exists(ctx context.Context, url string) (bool, error)
}

// UpstreamChecker runs nvchecker
type UpstreamChecker interface {
	UpstreamVersion(ctx context.Context, pkg, configURL string) (string, error)
	Fetch(ctx context.Context, configURL, dir string) (string, error)
	Validate(ctx context.Context, path string) error
}

// SourceTools fetches sources and drives ABF from the current directory
type SourceTools interface {
	FetchSources(ctx context.Context, spec string) error
	Mock(ctx context.Context) error
	Put(ctx context.Context) error
	Build(ctx context.Context) error
}

// SpecMutator rewrites the Version: field of a spec file
type SpecMutator func(path, version string) (changed bool, err error)

// RepoOpener returns a git checkout of url at branch in dest
type RepoOpener func(ctx context.Context, url, branch, dest string) (git.GitExecutor, error)

// Updater runs the update pipeline for packages
type Updater struct {
	cfg        *config.Config
	runner     command.Runner
	http       *httpclient.Client
	resolver   Resolver
	checker    UpstreamChecker
	reader     rpmspec.Reader
	comparator vercmp.Comparator
	tools      SourceTools
	setVersion SpecMutator
	openRepo   RepoOpener
	cloneRepo  RepoOpener
	log        *OutcomeLog
	dryRun     bool
	workspace  string
	scratchDir string
	user       string
	email      string
}

// Option is a functional option for configuring an Updater
type Option func(*Updater) error

// WithRunner sets the runner used for every external tool
func WithRunner(runner command.Runner) Option {
	return func(u *Updater) error {
		u.runner = runner
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for probes and downloads
func WithHTTPClient(client *httpclient.Client) Option {
	return func(u *Updater) error {
		u.http = client
		return nil
	}
}

// WithResolver sets a custom mirror resolver
func WithResolver(r Resolver) Option {
	return func(u *Updater) error {
		u.resolver = r
		return nil
	}
}

// WithUpstreamChecker sets a custom upstream checker
func WithUpstreamChecker(c UpstreamChecker) Option {
	return func(u *Updater) error {
		u.checker = c
		return nil
	}
}

// WithSpecReader sets a custom spec metadata reader
func WithSpecReader(r rpmspec.Reader) Option {
	return func(u *Updater) error {
		u.reader = r
		return nil
	}
}

// WithComparator sets a custom version comparator
func WithComparator(c vercmp.Comparator) Option {
	return func(u *Updater) error {
		u.comparator = c
		return nil
	}
}

// WithSourceTools sets custom spectool/abf wrappers
func WithSourceTools(t SourceTools) Option {
	return func(u *Updater) error {
		u.tools = t
		return nil
	}
}

// WithSpecMutator sets a custom spec mutator
func WithSpecMutator(m SpecMutator) Option {
	return func(u *Updater) error {
		u.setVersion = m
		return nil
	}
}

// WithRepoOpener sets how package checkouts are obtained for updates
func WithRepoOpener(open RepoOpener) Option {
	return func(u *Updater) error {
		u.openRepo = open
		return nil
	}
}

// WithRepoCloner sets how fresh checkouts are obtained for autoadd
func WithRepoCloner(clone RepoOpener) Option {
	return func(u *Updater) error {
		u.cloneRepo = clone
		return nil
	}
}

// WithOutcomeLog appends every outcome to log
func WithOutcomeLog(log *OutcomeLog) Option {
	return func(u *Updater) error {
		u.log = log
		return nil
	}
}

// WithDryRun stops before any mutation when an update is available
func WithDryRun(dryRun bool) Option {
	return func(u *Updater) error {
		u.dryRun = dryRun
		return nil
	}
}

// WithWorkspace sets the directory package checkouts live in
func WithWorkspace(dir string) Option {
	return func(u *Updater) error {
		if dir == "" {
			return errors.New("workspace must not be empty")
		}
		u.workspace = dir
		return nil
	}
}

// WithAuthor sets the commit author
func WithAuthor(user, email string) Option {
	return func(u *Updater) error {
		u.user = user
		u.email = email
		return nil
	}
}

// New creates an Updater from cfg. Collaborators not supplied through
// options are built from the configuration.
func New(cfg *config.Config, opts ...Option) (*Updater, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u := &Updater{cfg: cfg}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, fmt.Errorf("failed to apply updater option: %w", err)
		}
	}

	if err := u.applyDefaults(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *Updater) applyDefaults() error {
	cfg := u.cfg

	if u.runner == nil {
		u.runner = command.NewExecRunner()
	}
	if u.http == nil {
		u.http = httpclient.NewWithConfig(httpclient.RetryConfig{
			MaxRetries: cfg.HTTP.MaxRetries,
			BaseDelay:  httpclient.DefaultRetryConfig().BaseDelay,
			MaxDelay:   httpclient.DefaultRetryConfig().MaxDelay,
			Timeout:    cfg.HTTP.Timeout,
		})
		u.http.SetDefaultHeaders(cfg.HTTP.Headers)
		u.http.SetRateLimit(cfg.HTTP.RequestsPerSecond, 1)
	}
	if u.resolver == nil {
		u.resolver = nvchecker.NewResolver(u.http, cfg.Mirrors, cfg.Branch, cfg.HTTP.ProbeTimeout)
	}
	if u.scratchDir == "" {
		dir, err := config.ExpandHome(cfg.ScratchDir)
		if err != nil {
			return err
		}
		if dir == "" {
			dir = os.TempDir()
		}
		u.scratchDir = dir
	}
	if u.checker == nil {
		u.checker = nvchecker.NewChecker(u.http, u.runner, cfg.Tools.Nvchecker, u.scratchDir)
	}
	if u.reader == nil {
		u.reader = rpmspec.NewReader(u.runner, cfg.Tools.RPMSpec)
	}
	if u.comparator == nil {
		u.comparator = vercmp.New(cfg.Comparator, u.runner, cfg.Tools.Vercmp)
	}
	if u.tools == nil {
		u.tools = abf.NewClient(u.runner, abf.WithSpectool(cfg.Tools.Spectool), abf.WithABF(cfg.Tools.ABF))
	}
	if u.setVersion == nil {
		u.setVersion = rpmspec.SetVersion
	}
	if u.openRepo == nil {
		u.openRepo = func(ctx context.Context, url, branch, dest string) (git.GitExecutor, error) {
			return git.Open(ctx, u.runner, url, branch, dest)
		}
	}
	if u.cloneRepo == nil {
		u.cloneRepo = func(ctx context.Context, url, branch, dest string) (git.GitExecutor, error) {
			return git.Clone(ctx, u.runner, url, branch, dest)
		}
	}
	if u.workspace == "" {
		dir, err := cfg.WorkspacePath()
		if err != nil {
			return err
		}
		u.workspace = dir
	}
	if u.user == "" || u.email == "" {
		if user, email, err := cfg.GetGitUser(); err == nil {
			u.user, u.email = user, email
		} else {
			logger.Debug("%v; committing with git's own identity", err)
		}
	}
	return nil
}

// Workspace returns the directory package checkouts live in
func (u *Updater) Workspace() string {
	return u.workspace
}

// UpdateAll processes packages one after another. A failing package never
// stops the batch; exactly one outcome is returned per package, in order.
func (u *Updater) UpdateAll(ctx context.Context, packages []string) []Outcome {
	outcomes := make([]Outcome, 0, len(packages))
	for _, pkg := range packages {
		outcomes = append(outcomes, u.UpdatePackage(ctx, pkg))
	}
	return outcomes
}

// UpdatePackage brings one package up to date with its upstream release
func (u *Updater) UpdatePackage(ctx context.Context, pkg string) (outcome Outcome) {
	stage := StageCheckout
	defer func() {
		if r := recover(); r != nil {
			outcome = failed(pkg, stage, fmt.Errorf("panic: %v", r))
		}
		u.record(outcome)
	}()

	return u.updatePackage(ctx, pkg, &stage)
}

func (u *Updater) updatePackage(ctx context.Context, pkg string, stage *Stage) Outcome {
	enter := func(s Stage) {
		*stage = s
		logger.Debug("%s: %s", pkg, s)
	}

	enter(StageCheckout)
	dest := filepath.Join(u.workspace, pkg)
	repo, err := u.openRepo(ctx, u.cfg.RepositoryURL(pkg), u.cfg.Branch, dest)
	if err != nil {
		return failed(pkg, StageCheckout, err)
	}

	enter(StageReadVersion)
	specPath := filepath.Join(dest, pkg+".spec")
	meta, err := u.reader.ReadMetadata(ctx, specPath)
	if err != nil {
		return failed(pkg, StageReadVersion, err)
	}
	logger.Info("%s: packaged version %s", pkg, meta.Version)

	upstream, o, done := u.upstreamVersion(ctx, pkg, enter)
	if done {
		return o
	}

	enter(StageCompare)
	result, err := u.comparator.Compare(ctx, upstream, meta.Version)
	if err != nil {
		return failed(pkg, StageCompare, err)
	}

	switch result {
	case vercmp.Same:
		return upToDate(pkg, meta.Version)
	case vercmp.Older:
		return skipped(pkg, "upstream version %s is older than %s", upstream, meta.Version)
	}

	if u.dryRun {
		return skipped(pkg, "dry run: would update %s to %s", meta.Version, upstream)
	}

	logger.Info("%s: updating %s -> %s", pkg, meta.Version, upstream)
	err = workdir.Within(dest, func() error {
		return u.publish(ctx, repo, specPath, upstream, enter)
	})
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return failed(pkg, se.Stage, se.Err)
		}
		return failed(pkg, *stage, err)
	}

	return updated(pkg, meta.Version, upstream)
}

// upstreamVersion resolves the configuration and asks nvchecker for the
// upstream version. done is true when o is the final outcome.
func (u *Updater) upstreamVersion(ctx context.Context, pkg string, enter func(Stage)) (version string, o Outcome, done bool) {
	enter(StageResolve)
	configURL, err := u.resolver.Resolve(ctx, pkg)
	if errors.Is(err, nvchecker.ErrNotFound) {
		return "", skipped(pkg, "no .nvchecker.toml found on any mirror"), true
	}
	if err != nil {
		return "", failed(pkg, StageResolve, err), true
	}

	enter(StageUpstream)
	version, err = u.checker.UpstreamVersion(ctx, pkg, configURL)
	if errors.Is(err, nvchecker.ErrNoVersion) {
		return "", skipped(pkg, "nvchecker reported no version"), true
	}
	if err != nil {
		return "", failed(pkg, StageUpstream, err), true
	}
	logger.Info("%s: upstream version %s", pkg, version)

	return version, Outcome{}, false
}

// publish runs inside the package checkout: bump the spec, fetch and upload
// sources, commit, push and trigger a build.
func (u *Updater) publish(ctx context.Context, repo git.GitExecutor, specPath, version string, enter func(Stage)) error {
	step := func(s Stage, fn func() error) error {
		enter(s)
		if err := fn(); err != nil {
			return &StageError{Stage: s, Err: err}
		}
		return nil
	}

	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StageSpecUpdate, func() error {
			changed, err := u.setVersion(specPath, version)
			if err == nil && !changed {
				logger.Info("%s already sets Version: %s", filepath.Base(specPath), version)
			}
			return err
		}},
		{StageFetchSources, func() error { return u.tools.FetchSources(ctx, filepath.Base(specPath)) }},
		{StageMockBuild, func() error {
			if !u.cfg.MockBuild {
				return nil
			}
			return u.tools.Mock(ctx)
		}},
		{StageUpload, func() error { return u.tools.Put(ctx) }},
		{StageCommit, func() error { return repo.CommitAll(ctx, CommitMessagePrefix+version, u.user, u.email) }},
		{StagePush, func() error { return repo.Push(ctx) }},
		{StageBuild, func() error { return u.tools.Build(ctx) }},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: s.stage, Err: err}
		}
		if err := step(s.stage, s.run); err != nil {
			return err
		}
	}
	return nil
}

func (u *Updater) record(o Outcome) {
	switch o.Kind {
	case Failed:
		logger.Error("%s", o.Message())
	case Skipped:
		logger.Warn("%s", o.Message())
	default:
		logger.Info("%s", o.Message())
	}

	if u.log != nil {
		if err := u.log.Write(o); err != nil {
			logger.Warn("failed to write outcome log: %v", err)
		}
	}
}
