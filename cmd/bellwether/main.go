// Package main implements the bellwether CLI: connect to an MCP server,
// run its conformance catalog, and report behavioral drift against a
// saved baseline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool
	logger     *zap.Logger
)

// Exit codes per the check/baseline compare report: 0 clean, 1 operational
// error, 2 warning-level drift, 3 breaking drift.
const (
	exitClean    = 0
	exitError    = 1
	exitWarning  = 2
	exitBreaking = 3
)

var rootCmd = &cobra.Command{
	Use:           "bellwether",
	Short:         "Conformance testing and drift detection for MCP servers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.TimeKey = ""
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		built, err := zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		logger = built
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bellwether.yaml", "configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(goldenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bellwether:", err)
		os.Exit(exitError)
	}
}
