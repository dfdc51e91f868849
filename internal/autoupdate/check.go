package autoupdate

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rosalinux/abf-autoupdate/internal/nvchecker"
	"github.com/rosalinux/abf-autoupdate/internal/rpmspec"
	"github.com/rosalinux/abf-autoupdate/internal/vercmp"
)

// CheckResult represents the result of checking a single package for updates.
type CheckResult struct {
	// Package is the package name
	Package string
	// CurrentVersion is the version in the spec on ABF
	CurrentVersion string
	// UpstreamVersion is the version nvchecker reported
	UpstreamVersion string
	// HasUpdate is true if upstream version is newer than current
	HasUpdate bool
	// Skipped explains why the package could not be checked, if it was skipped
	Skipped string
	// Error contains any error that occurred during checking, as a *StageError
	Error error
}

// Kind maps the result onto an outcome kind name for display
func (r CheckResult) Kind() string {
	switch {
	case r.Error != nil:
		return Failed.String()
	case r.Skipped != "":
		return Skipped.String()
	case r.HasUpdate:
		return "outdated"
	}
	return UpToDate.String()
}

// Check reports whether pkg has a newer upstream release without cloning or
// changing anything. The spec is downloaded from the configured spec URL.
func (u *Updater) Check(ctx context.Context, pkg string) CheckResult {
	result := CheckResult{Package: pkg}
	fail := func(stage Stage, err error) CheckResult {
		result.Error = &StageError{Stage: stage, Err: err}
		return result
	}

	dir := filepath.Join(u.scratchDir, "abf-autoupdate-check-"+pkg+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(StageReadVersion, err)
	}
	defer os.RemoveAll(dir)

	specPath, err := rpmspec.FetchSpec(ctx, u.http, u.cfg.SpecFileURL(pkg), dir)
	if err != nil {
		return fail(StageReadVersion, err)
	}
	meta, err := u.reader.ReadMetadata(ctx, specPath)
	if err != nil {
		return fail(StageReadVersion, err)
	}
	result.CurrentVersion = meta.Version

	configURL, err := u.resolver.Resolve(ctx, pkg)
	if errors.Is(err, nvchecker.ErrNotFound) {
		result.Skipped = "no .nvchecker.toml found on any mirror"
		return result
	}
	if err != nil {
		return fail(StageResolve, err)
	}

	upstream, err := u.checker.UpstreamVersion(ctx, pkg, configURL)
	if errors.Is(err, nvchecker.ErrNoVersion) {
		result.Skipped = "nvchecker reported no version"
		return result
	}
	if err != nil {
		return fail(StageUpstream, err)
	}
	result.UpstreamVersion = upstream

	cmp, err := u.comparator.Compare(ctx, upstream, meta.Version)
	if err != nil {
		return fail(StageCompare, err)
	}
	result.HasUpdate = cmp == vercmp.Newer

	return result
}

// CheckAll checks packages sequentially
func (u *Updater) CheckAll(ctx context.Context, packages []string) []CheckResult {
	results := make([]CheckResult, 0, len(packages))
	for _, pkg := range packages {
		results = append(results, u.Check(ctx, pkg))
	}
	return results
}
