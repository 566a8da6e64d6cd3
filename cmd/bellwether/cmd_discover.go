package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotsetlabs/bellwether/internal/engine"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Connect to the configured server and list its tools, without running any scenarios",
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		logger.Sugar().Errorf("discover: %v", err)
		os.Exit(exitError)
		return nil
	}

	sess, err := engine.Connect(ctx, cfg, newResolver())
	if err != nil {
		logger.Sugar().Errorf("discover: %v", err)
		os.Exit(exitError)
		return nil
	}
	defer sess.Close()

	tools, err := engine.Discover(ctx, sess, cfg.DefaultTimeout())
	if err != nil {
		logger.Sugar().Errorf("discover: %v", err)
		os.Exit(exitError)
		return nil
	}

	info := sess.ServerInfo()
	fmt.Printf("%s %s (protocol %s)\n", info.Name, info.Version, sess.ProtocolVersion())
	fmt.Printf("%d tools:\n", len(tools))
	for _, t := range tools {
		if t.Description != "" {
			fmt.Printf("  %-30s %s\n", t.Name, t.Description)
		} else {
			fmt.Printf("  %s\n", t.Name)
		}
	}

	os.Exit(exitClean)
	return nil
}
