package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotsetlabs/bellwether/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Parse and validate the configuration file without connecting to a server",
	RunE:  runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	fmt.Printf("%s: valid (%s transport)\n", configPath, cfg.Server.Transport)
	os.Exit(exitClean)
	return nil
}
