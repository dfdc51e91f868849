// Package autoupdate keeps ROSA package specs in step with upstream releases.
//
// For each package the Updater:
//   - clones or pulls the package repository from ABF
//   - reads the packaged name and version from <package>.spec
//   - finds a .nvchecker.toml on the configured mirrors and asks nvchecker
//     for the latest upstream version
//   - compares both versions with RPM ordering
//
// When upstream is newer it rewrites the Version: line, downloads the new
// sources with spectool, uploads them with abf put, commits, pushes and
// triggers an ABF build. Every package ends in exactly one Outcome, which is
// logged and optionally appended to a plain-text outcome log.
//
// Usage:
//
//	u, err := autoupdate.New(cfg, autoupdate.WithDryRun(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outcomes := u.UpdateAll(ctx, []string{"curl", "htop"})
package autoupdate
