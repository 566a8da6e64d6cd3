package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotsetlabs/bellwether/internal/engine"
	"github.com/dotsetlabs/bellwether/internal/golden"
)

var (
	goldenDir         string
	goldenToolName    string
	goldenDescription string
	goldenArgsJSON    string
)

var goldenCmd = &cobra.Command{
	Use:   "golden",
	Short: "Pin, list, and compare single tool-call snapshots",
}

var goldenSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Call a tool once and save its response as a golden snapshot",
	RunE:  runGoldenSave,
}

var goldenCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Call a tool once and compare its response against a saved golden snapshot",
	RunE:  runGoldenCompare,
}

var goldenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved golden snapshots, optionally filtered by tool",
	RunE:  runGoldenList,
}

var goldenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one saved golden snapshot",
	RunE:  runGoldenDelete,
}

func init() {
	goldenCmd.PersistentFlags().StringVar(&goldenDir, "dir", "golden", "root directory for saved golden snapshots")
	for _, c := range []*cobra.Command{goldenSaveCmd, goldenCompareCmd, goldenDeleteCmd} {
		c.Flags().StringVar(&goldenToolName, "tool", "", "tool name (required)")
		c.Flags().StringVar(&goldenDescription, "description", "", "scenario description this snapshot pins")
		_ = c.MarkFlagRequired("tool")
	}
	goldenSaveCmd.Flags().StringVar(&goldenArgsJSON, "args", "{}", "JSON object of tool arguments to call with")
	goldenCompareCmd.Flags().StringVar(&goldenArgsJSON, "args", "{}", "JSON object of tool arguments to call with")
	goldenListCmd.Flags().StringVar(&goldenToolName, "tool", "", "restrict listing to one tool")

	goldenCmd.AddCommand(goldenSaveCmd)
	goldenCmd.AddCommand(goldenCompareCmd)
	goldenCmd.AddCommand(goldenListCmd)
	goldenCmd.AddCommand(goldenDeleteCmd)
}

func parseGoldenArgs() (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(goldenArgsJSON), &args); err != nil {
		return nil, fmt.Errorf("parse --args: %w", err)
	}
	return args, nil
}

func callToolForGolden(ctx context.Context, args map[string]any) (any, bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, false, err
	}
	sess, err := engine.Connect(ctx, cfg, newResolver())
	if err != nil {
		return nil, false, err
	}
	defer sess.Close()
	return engine.CallTool(ctx, sess, goldenToolName, args, cfg.DefaultTimeout())
}

func runGoldenSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	toolArgs, err := parseGoldenArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	response, isError, err := callToolForGolden(ctx, toolArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	store := golden.NewStore(goldenDir)
	entry := golden.Entry{
		ToolName:    goldenToolName,
		ScenarioID:  golden.ScenarioID(goldenToolName, goldenDescription, toolArgs),
		Description: goldenDescription,
		Args:        toolArgs,
		Response:    response,
		IsError:     isError,
	}
	if err := store.Save(entry); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	fmt.Printf("saved %s/%s\n", entry.ToolName, entry.ScenarioID)
	os.Exit(exitClean)
	return nil
}

func runGoldenCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	toolArgs, err := parseGoldenArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	response, _, err := callToolForGolden(ctx, toolArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	store := golden.NewStore(goldenDir)
	scenarioID := golden.ScenarioID(goldenToolName, goldenDescription, toolArgs)
	result, err := store.Compare(goldenToolName, scenarioID, response)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}

	if result.Matches {
		fmt.Printf("clean: %s/%s matches saved snapshot\n", goldenToolName, scenarioID)
		os.Exit(exitClean)
		return nil
	}
	fmt.Printf("drift: %s/%s response hash changed (%s -> %s)\n", goldenToolName, scenarioID, result.Entry.ResponseHash, result.NewHash)
	os.Exit(exitWarning)
	return nil
}

func runGoldenList(cmd *cobra.Command, args []string) error {
	store := golden.NewStore(goldenDir)
	entries, err := store.List(goldenToolName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.ToolName, e.ScenarioID, e.Description)
	}
	os.Exit(exitClean)
	return nil
}

func runGoldenDelete(cmd *cobra.Command, args []string) error {
	toolArgs, err := parseGoldenArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	store := golden.NewStore(goldenDir)
	scenarioID := golden.ScenarioID(goldenToolName, goldenDescription, toolArgs)
	if err := store.Delete(goldenToolName, scenarioID); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
		return nil
	}
	fmt.Printf("deleted %s/%s\n", goldenToolName, scenarioID)
	os.Exit(exitClean)
	return nil
}
