package main

import (
	stdErrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luispater/matroska-tree-go/internal/logger"
	"github.com/luispater/matroska-tree-go/pkg/config"
	"github.com/luispater/matroska-tree-go/pkg/errors"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mkvtree",
	Short: "Inspect, extract and remux Matroska files",
	Long: `mkvtree reads Matroska and WebM files as a lazily loaded element tree.
It prints the tree and the cue index, extracts track data, cross-checks files
against a streaming parser and remuxes them into clustered, indexed output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg = config.NewConfig()

	var configPath, logFile, cacheFile string
	var noColors, quiet, verbose bool

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&cacheFile, "cache", "", "Cue cache file (overrides MKVTREE_CACHE)")
	flags.StringVar(&logFile, "log-file", "", "Save log messages to this file")
	flags.BoolVar(&noColors, "no-colors", false, "Disable colored output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print debug messages")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := cfg.Load(configPath); err != nil {
				return err
			}
		}

		// Flags win over the config file
		if cmd.Flags().Changed("cache") {
			cfg.CacheFile = cacheFile
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}
		if noColors {
			cfg.UseColors = false
		}
		if quiet {
			cfg.QuietMode = true
		}
		if verbose {
			cfg.Verbose = true
		}

		logger.SetColorMode(cfg.UseColors)
		logger.SetQuietMode(cfg.QuietMode)
		logger.SetVerbose(cfg.Verbose)

		if configPath != "" {
			logger.Debugf("Loaded config from %s", configPath)
		}
		return cfg.Validate()
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		saveLogs()
	}

	rootCmd.AddCommand(infoCmd(), treeCmd(), cuesCmd(), extractCmd(), verifyCmd(), remuxCmd())
}

func saveLogs() {
	if cfg.LogFile == "" {
		return
	}
	if err := logger.SaveLogsToFile(cfg.LogFile); err != nil {
		logger.Warning(fmt.Sprintf("Could not save logs: %v", err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Handle structured errors with additional context
		var matroskaErr *errors.MatroskaError
		if stdErrors.As(err, &matroskaErr) {
			logger.Error(fmt.Sprintf("[%s] %s", strings.ToUpper(string(matroskaErr.Type)), matroskaErr.Message))
			if matroskaErr.Cause != nil {
				logger.Error(fmt.Sprintf("Cause: %v", matroskaErr.Cause))
			}
			if len(matroskaErr.Context) > 0 {
				logger.Error("Context:")
				for key, value := range matroskaErr.Context {
					logger.Error(fmt.Sprintf("  %s: %v", key, value))
				}
			}
		} else {
			logger.Error(err.Error())
		}
		saveLogs()
		os.Exit(1)
	}
}
