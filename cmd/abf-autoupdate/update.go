package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rosalinux/abf-autoupdate/internal/autoupdate"
	"github.com/rosalinux/abf-autoupdate/internal/common/config"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
	"github.com/rosalinux/abf-autoupdate/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	updatePackages packageFlags
	// updateBranch overrides the configured branch
	updateBranch string
	// updateLog overrides the configured outcome log path
	updateLog string
	// updateDryRun stops before any mutation
	updateDryRun bool
)

var updateCmd = &cobra.Command{
	Use:   "update --package <name>... | --file <path>",
	Short: "Update packages to their latest upstream version",
	Long: `For each package: clone or pull its ABF repository, compare the spec version
with the one nvchecker reports upstream and, when upstream is newer, bump the
spec, fetch and upload sources, commit, push and trigger an ABF build.

Failures are reported per package and never stop the batch; the command exits
with status 0 once every package has been processed.

Examples:
  abf-autoupdate update --package curl
  abf-autoupdate update --package curl htop dos2unix --dry-run
  abf-autoupdate update --file packages.txt --branch rosa2023.1 --log ~/autoupdate.log`,
	RunE: runUpdate,
}

func init() {
	updatePackages.register(updateCmd)
	updateCmd.Flags().StringVarP(&updateBranch, "branch", "b", "", "Repository branch (default from config, "+config.DefaultBranch+")")
	updateCmd.Flags().StringVarP(&updateLog, "log", "l", "", "Append one line per package outcome to this file")
	updateCmd.Flags().BoolVarP(&updateDryRun, "dry-run", "n", false, "Report available updates without changing anything")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	pkgs, err := updatePackages.packages(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, updateBranch, updateLog)

	logOpt, closeLog, err := outcomeLogOption(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	updater, err := autoupdate.New(cfg, logOpt, autoupdate.WithDryRun(updateDryRun))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Info("Updating %d package(s) on %s in %s", len(pkgs), cfg.Branch, updater.Workspace())
	outcomes := updater.UpdateAll(ctx, pkgs)
	displayOutcomes(cmd.OutOrStdout(), "Update Results", outcomes)
	return nil
}

// applyOverrides copies non-empty flag values over the configuration
func applyOverrides(cfg *config.Config, branch, log string) {
	if branch != "" {
		cfg.Branch = branch
	}
	if log != "" {
		cfg.Log = log
	}
}

// outcomeLogOption opens the configured outcome log. Without one it returns a
// no-op option and close function.
func outcomeLogOption(cfg *config.Config) (autoupdate.Option, func(), error) {
	noop := func() {}
	if cfg.Log == "" {
		return autoupdate.WithOutcomeLog(nil), noop, nil
	}
	path, err := config.ExpandHome(cfg.Log)
	if err != nil {
		return nil, noop, err
	}
	outcomeLog, err := autoupdate.OpenOutcomeLog(path)
	if err != nil {
		return nil, noop, fmt.Errorf("opening outcome log: %w", err)
	}
	return autoupdate.WithOutcomeLog(outcomeLog), func() { outcomeLog.Close() }, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// displayOutcomes prints one colored line per outcome followed by a summary
func displayOutcomes(w io.Writer, title string, outcomes []autoupdate.Outcome) {
	if len(outcomes) == 0 {
		return
	}

	fmt.Fprintln(w)
	output.Header.Fprintln(w, title)
	fmt.Fprintln(w)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %s %s\n", output.FormatOutcome(o.Kind.String()), o.Message())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryLine(autoupdate.Summarize(outcomes)))
}

func summaryLine(s autoupdate.Summary) string {
	parts := []string{
		output.Updated.Sprintf("updated: %d", s.Updated),
		output.UpToDate.Sprintf("up to date: %d", s.UpToDate),
		output.Skipped.Sprintf("skipped: %d", s.Skipped),
		output.Failed.Sprintf("failed: %d", s.Failed),
	}
	if s.Added > 0 {
		parts = append(parts, output.Updated.Sprintf("added: %d", s.Added))
	}
	return strings.Join(parts, "  ")
}
