package main

import (
	"fmt"
	"io"

	"github.com/rosalinux/abf-autoupdate/internal/autoupdate"
	"github.com/rosalinux/abf-autoupdate/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	checkPackages packageFlags
	checkBranch   string
)

var checkCmd = &cobra.Command{
	Use:   "check --package <name>... | --file <path>",
	Short: "Report packages with a newer upstream version",
	Long: `Download each package's spec from ABF, ask nvchecker for the upstream version
and report which packages are outdated. Nothing is cloned, committed or built.

Examples:
  abf-autoupdate check --package curl htop
  abf-autoupdate check --file packages.txt`,
	RunE: runCheck,
}

func init() {
	checkPackages.register(checkCmd)
	checkCmd.Flags().StringVarP(&checkBranch, "branch", "b", "", "Repository branch (default from config)")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	pkgs, err := checkPackages.packages(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, checkBranch, "")

	updater, err := autoupdate.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	displayCheckResults(cmd.OutOrStdout(), updater.CheckAll(ctx, pkgs))
	return nil
}

// displayCheckResults formats and displays check results
func displayCheckResults(w io.Writer, results []autoupdate.CheckResult) {
	if len(results) == 0 {
		return
	}

	var updatesFound, errorsFound int

	fmt.Fprintln(w)
	output.Header.Fprintln(w, "Version Check Results")
	fmt.Fprintln(w)

	for _, r := range results {
		tag := output.FormatOutcome(r.Kind())
		switch {
		case r.Error != nil:
			errorsFound++
			fmt.Fprintf(w, "  %s %s: %v\n", tag, r.Package, r.Error)
		case r.Skipped != "":
			fmt.Fprintf(w, "  %s %s: %s\n", tag, r.Package, r.Skipped)
		case r.HasUpdate:
			updatesFound++
			fmt.Fprintf(w, "  %s %s: %s → %s\n", tag, r.Package, r.CurrentVersion, r.UpstreamVersion)
		default:
			fmt.Fprintf(w, "  %s %s: %s\n", tag, r.Package, r.CurrentVersion)
		}
	}

	fmt.Fprintln(w)
	if updatesFound > 0 {
		output.Info.Fprintf(w, "Found %d update(s) available\n", updatesFound)
	} else {
		output.Success.Fprintln(w, "All checked packages are up to date")
	}
	if errorsFound > 0 {
		output.Warning.Fprintf(w, "%d package(s) had errors\n", errorsFound)
	}
}
