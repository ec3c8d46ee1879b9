// Package cmd holds the layercast command line: a one-shot merge, a single
// frame preview, and the merge server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"layercast/config"
	"layercast/logger"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "layercast",
	Short:         "Composite layered image sequences into a video",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		name := logLevel
		if name == "" {
			name = config.GetLogLevel()
		}
		level, err := logger.ParseLevel(name)
		if err != nil {
			return err
		}
		return logger.Init(config.GetLogFile(), true, level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of KEY=VALUE settings loaded before anything else")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default from LAYERCAST_LOG_LEVEL)")
}

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
