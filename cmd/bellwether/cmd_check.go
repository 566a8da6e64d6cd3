package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/diff"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

var (
	checkBaselinePath     string
	checkSaveBaselinePath string
	checkWorkflowPaths    []string
	checkDecisionLogPath  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the conformance catalog against the configured server and report drift",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkBaselinePath, "baseline", "", "prior baseline to diff this run against")
	checkCmd.Flags().StringVar(&checkSaveBaselinePath, "save-baseline", "", "write this run's baseline to the given path")
	checkCmd.Flags().StringArrayVar(&checkWorkflowPaths, "workflow", nil, "workflow YAML file to run (repeatable)")
	checkCmd.Flags().StringVar(&checkDecisionLogPath, "decision-log", "", "append pruning/scenario decisions to this JSON-lines file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		os.Exit(exitError)
		return nil
	}

	if checkDecisionLogPath == "" {
		checkDecisionLogPath = cfg.DecisionLog
	}

	defs, err := loadWorkflows(checkWorkflowPaths)
	if err != nil {
		logger.Sugar().Errorf("check: %v", err)
		os.Exit(exitError)
		return nil
	}

	var prior baseline.Baseline
	var priorPtr *baseline.Baseline
	if checkBaselinePath != "" {
		prior, err = baseline.Load(checkBaselinePath)
		if err != nil {
			logger.Sugar().Errorf("check: %v", err)
			os.Exit(exitError)
			return nil
		}
		priorPtr = &prior
	}

	result, err := runEngine(ctx, cfg, checkDecisionLogPath, defs, priorPtr)
	if err != nil {
		logger.Sugar().Errorf("check: %v", err)
		os.Exit(exitError)
		return nil
	}

	logger.Sugar().Infof("ran %d scenarios across %d tools", result.Baseline.Summary.ScenarioCount, result.Baseline.Summary.ToolCount)

	if checkSaveBaselinePath != "" {
		if err := baseline.Save(checkSaveBaselinePath, result.Baseline); err != nil {
			logger.Sugar().Errorf("check: %v", err)
			os.Exit(exitError)
			return nil
		}
		logger.Sugar().Infof("saved baseline to %s", checkSaveBaselinePath)
	}

	if checkBaselinePath == "" {
		fmt.Printf("clean: %d tools, %d scenarios (%d passed, %d failed)\n",
			result.Baseline.Summary.ToolCount, result.Baseline.Summary.ScenarioCount,
			result.Baseline.Summary.PassedCount, result.Baseline.Summary.FailedCount)
		os.Exit(exitClean)
		return nil
	}

	d := diff.Compare(prior, result.Baseline, cfg.DiffOptions())
	printDiff(d)
	os.Exit(exitCodeForSeverity(d.Severity))
	return nil
}

func exitCodeForSeverity(sev diff.Severity) int {
	switch sev {
	case diff.SeverityBreaking:
		return exitBreaking
	case diff.SeverityWarning:
		return exitWarning
	default:
		return exitClean
	}
}

func printDiff(d diff.Diff) {
	fmt.Printf("severity: %s\n", d.Severity)
	if d.RefusalReason != "" {
		fmt.Printf("refused: %s\n", d.RefusalReason)
		return
	}
	if len(d.ToolsAdded) > 0 {
		fmt.Printf("tools added: %v\n", d.ToolsAdded)
	}
	if len(d.ToolsRemoved) > 0 {
		fmt.Printf("tools removed: %v\n", d.ToolsRemoved)
	}
	for _, mod := range d.ToolsModified {
		fmt.Printf("tool %s:\n", mod.Tool)
		for _, c := range mod.Changes {
			fmt.Printf("  [%s] %s: %s\n", c.Significance, c.Aspect, c.Description)
		}
	}
}

func loadWorkflows(paths []string) ([]workflow.Definition, error) {
	var defs []workflow.Definition
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open workflow %s: %w", path, err)
		}
		parsed, err := workflow.LoadAll(f)
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse workflow %s: %w", path, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close workflow %s: %w", path, closeErr)
		}
		defs = append(defs, parsed...)
	}
	return defs, nil
}
