package autoupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
	"github.com/rosalinux/abf-autoupdate/internal/nvchecker"
)

// AutoAddCommitMessage is the commit message used when adding a configuration
const AutoAddCommitMessage = "autoadd .nvchecker.toml"

// AutoAdd copies a version-check configuration from a fallback mirror into
// the package repository. Packages whose primary mirror already serves one
// are skipped. The configuration is validated with nvchecker before it is
// committed to a fresh clone and pushed.
func (u *Updater) AutoAdd(ctx context.Context, pkg string) (outcome Outcome) {
	defer func() { u.record(outcome) }()

	urls := u.resolver.URLs(pkg)
	if len(urls) == 0 {
		return failed(pkg, StageResolve, nvchecker.ErrNotFound)
	}

	present, err := u.resolver.Exists(ctx, urls[0])
	if err != nil {
		logger.Warn("%s: %v", pkg, err)
	}
	if present {
		return skipped(pkg, ".nvchecker.toml already present at %s", urls[0])
	}

	source, err := u.resolver.ResolveFallback(ctx, pkg)
	if errors.Is(err, nvchecker.ErrNotFound) {
		return skipped(pkg, "no .nvchecker.toml found on fallback mirrors")
	}
	if err != nil {
		return failed(pkg, StageResolve, err)
	}

	dir := filepath.Join(u.scratchDir, "abf-autoupdate-add-"+pkg+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failed(pkg, StageDownload, err)
	}
	defer os.RemoveAll(dir)

	local, err := u.checker.Fetch(ctx, source, dir)
	if err != nil {
		return failed(pkg, StageDownload, err)
	}
	if err := u.checker.Validate(ctx, local); err != nil {
		return failed(pkg, StageValidate, err)
	}

	dest := filepath.Join(u.workspace, pkg)
	repo, err := u.cloneRepo(ctx, u.cfg.RepositoryURL(pkg), u.cfg.Branch, dest)
	if err != nil {
		return failed(pkg, StageCheckout, err)
	}

	target := filepath.Join(dest, nvchecker.ConfigFile)
	if err := copyFile(local, target); err != nil {
		return failed(pkg, StageAdd, err)
	}
	if err := repo.Add(ctx, target); err != nil {
		return failed(pkg, StageAdd, err)
	}
	if err := repo.Commit(ctx, AutoAddCommitMessage, u.user, u.email); err != nil {
		return failed(pkg, StageCommit, err)
	}
	if err := repo.Push(ctx); err != nil {
		return failed(pkg, StagePush, err)
	}

	return Outcome{Package: pkg, Kind: Added, Source: source}
}

// AutoAddAll runs AutoAdd for each package in order
func (u *Updater) AutoAddAll(ctx context.Context, packages []string) []Outcome {
	outcomes := make([]Outcome, 0, len(packages))
	for _, pkg := range packages {
		outcomes = append(outcomes, u.AutoAdd(ctx, pkg))
	}
	return outcomes
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
