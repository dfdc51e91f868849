package main

import (
	"errors"
	"fmt"

	"github.com/rosalinux/abf-autoupdate/internal/autoupdate"
	"github.com/spf13/cobra"
)

// packageFlags selects packages either by name or from a list file
type packageFlags struct {
	names []string
	file  string
}

// register adds --package and --file to cmd. Exactly one must be given.
// Names following --package on the command line are taken as more packages,
// so "--package curl htop" selects both.
func (p *packageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&p.names, "package", "p", nil, "Package names (space or comma separated, repeatable)")
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "File with one package name per line")
	cmd.MarkFlagsMutuallyExclusive("package", "file")
	cmd.MarkFlagsOneRequired("package", "file")
}

// packages returns the selected package names in order. args are the
// positional arguments of the command.
func (p *packageFlags) packages(args []string) ([]string, error) {
	if len(p.names) > 0 && p.file != "" {
		return nil, errors.New("--package and --file are mutually exclusive")
	}
	if p.file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected arguments %q: package names cannot be combined with --file", args)
		}
		pkgs, err := autoupdate.ReadPackageFile(p.file)
		if err != nil {
			return nil, fmt.Errorf("reading package list %s: %w", p.file, err)
		}
		return pkgs, nil
	}

	var pkgs []string
	names := append(append([]string{}, p.names...), args...)
	for _, name := range names {
		if name != "" {
			pkgs = append(pkgs, name)
		}
	}
	if len(pkgs) == 0 {
		return nil, autoupdate.ErrNoPackages
	}
	return pkgs, nil
}
