package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/diff"
)

var baselineDecisionLogPath string

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect, save, and compare baseline documents",
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Run the catalog against the configured server and save the result as a baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineSave,
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare <path>",
	Short: "Run the catalog against the configured server and diff it against a saved baseline",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineCompare,
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a saved baseline as indented JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaselineShow,
}

var baselineDiffCmd = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "Compare two saved baselines and report drift",
	Args:  cobra.ExactArgs(2),
	RunE:  runBaselineDiff,
}

func init() {
	baselineCmd.PersistentFlags().StringVar(&baselineDecisionLogPath, "decision-log", "", "append pruning/scenario decisions to this JSON-lines file")
	baselineCmd.AddCommand(baselineSaveCmd)
	baselineCmd.AddCommand(baselineCompareCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineDiffCmd)
}

func runBaselineSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	result, err := runEngine(ctx, cfg, baselineDecisionLogPath, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	if err := baseline.Save(args[0], result.Baseline); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	fmt.Printf("saved baseline to %s\n", args[0])
	os.Exit(exitClean)
	return nil
}

func runBaselineCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	prior, err := baseline.Load(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	result, err := runEngine(ctx, cfg, baselineDecisionLogPath, nil, &prior)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	d := diff.Compare(prior, result.Baseline, cfg.DiffOptions())
	printDiff(d)
	os.Exit(exitCodeForSeverity(d.Severity))
	return nil
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	b, err := baseline.Load(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	os.Exit(exitClean)
	return nil
}

func runBaselineDiff(cmd *cobra.Command, args []string) error {
	before, err := baseline.Load(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	after, err := baseline.Load(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	cfg, err := loadConfig()
	opts := diff.Options{}
	if err == nil {
		opts = cfg.DiffOptions()
	}

	d := diff.Compare(before, after, opts)
	printDiff(d)
	os.Exit(exitCodeForSeverity(d.Severity))
	return nil
}
