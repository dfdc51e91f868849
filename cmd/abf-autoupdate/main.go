package main

import (
	"fmt"
	"os"

	"github.com/rosalinux/abf-autoupdate/internal/common/config"
	"github.com/rosalinux/abf-autoupdate/internal/common/logger"
	"github.com/rosalinux/abf-autoupdate/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	debugLog   bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "abf-autoupdate",
	Short: "Keep ROSA packages in step with upstream releases",
	Long: `Checks upstream releases of ROSA packages with nvchecker and, when a newer
version exists, bumps the spec, uploads new sources to ABF, pushes the change
and triggers a build.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if debugLog {
			if err := logger.Default().EnableFileLogging(); err != nil {
				return fmt.Errorf("enabling file logging: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Default().Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug-log", false, "Also write all log levels to the state log directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/abf-autoupdate/config.yaml)")
}

// loadConfig reads the file named by --config or the default location
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
