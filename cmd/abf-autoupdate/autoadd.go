package main

import (
	"fmt"

	"github.com/rosalinux/abf-autoupdate/internal/autoupdate"
	"github.com/spf13/cobra"
)

var (
	autoaddPackages packageFlags
	autoaddBranch   string
	autoaddLog      string
)

var autoaddCmd = &cobra.Command{
	Use:   "autoadd --package <name>... | --file <path>",
	Short: "Commit a .nvchecker.toml taken from a fallback mirror",
	Long: `For packages whose ABF repository has no .nvchecker.toml, look for one on the
fallback mirrors (Arch Linux packaging by default), validate it with nvchecker
and commit it to the package repository.

Examples:
  abf-autoupdate autoadd --package tmux
  abf-autoupdate autoadd --file new-packages.txt`,
	RunE: runAutoadd,
}

func init() {
	autoaddPackages.register(autoaddCmd)
	autoaddCmd.Flags().StringVarP(&autoaddBranch, "branch", "b", "", "Repository branch (default from config)")
	autoaddCmd.Flags().StringVarP(&autoaddLog, "log", "l", "", "Append one line per package outcome to this file")

	rootCmd.AddCommand(autoaddCmd)
}

func runAutoadd(cmd *cobra.Command, args []string) error {
	pkgs, err := autoaddPackages.packages(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, autoaddBranch, autoaddLog)

	logOpt, closeLog, err := outcomeLogOption(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	updater, err := autoupdate.New(cfg, logOpt)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	displayOutcomes(cmd.OutOrStdout(), "Autoadd Results", updater.AutoAddAll(ctx, pkgs))
	return nil
}
