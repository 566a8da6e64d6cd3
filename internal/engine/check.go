package engine

import (
	"context"
	"fmt"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/pruner"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/schema"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
	"github.com/dotsetlabs/bellwether/internal/statetracker"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// Result is one run's complete output: the comparable Baseline document
// plus the raw per-scenario results a report renderer needs for detail
// beyond what the Baseline keeps.
type Result struct {
	Baseline baseline.Baseline
	Tools    []scheduler.ToolResult
}

// Run connects, discovers capabilities, prunes and runs the scenario
// catalog for every tool, runs any configured workflows, and assembles the
// result into a Baseline (§2's full control/data flow in one call).
func (e *Engine) Run(ctx context.Context) (Result, error) {
	started := timeNow()
	cfg := e.opts.Config

	sess, err := connect(ctx, cfg, e.opts.Resolver)
	if err != nil {
		return Result{}, err
	}
	defer sess.Close()

	tools, err := discoverTools(ctx, sess, cfg.DefaultTimeout())
	if err != nil {
		return Result{}, err
	}

	catalog, skipped, err := e.buildCatalog(ctx, tools)
	if err != nil {
		return Result{}, err
	}

	sched := scheduler.New(cfg.SchedulerOptions())
	runResult, err := sched.Run(ctx, sess, catalog)
	if err != nil {
		return Result{}, fmt.Errorf("engine: scheduler run: %w", err)
	}

	toolsByName := make(map[string]mcpproto.Tool, len(tools))
	for _, t := range tools {
		toolsByName[t.Name] = t
	}

	profiles := make([]baseline.Fingerprint, 0, len(runResult.Tools)+len(skipped))
	for _, fp := range skipped {
		profiles = append(profiles, fp)
	}
	scenarioCount, passedCount, failedCount := 0, 0, 0
	for _, tr := range runResult.Tools {
		fp := buildFingerprint(toolsByName[tr.ToolName], tr)
		profiles = append(profiles, fp)

		for _, sc := range tr.Scenarios {
			scenarioCount++
			if sc.Passed {
				passedCount++
			} else {
				failedCount++
			}
			if e.opts.DecisionLog != nil {
				_ = e.opts.DecisionLog.ScenarioDisposition(tr.ToolName, sc)
			}
		}

		if e.opts.History != nil && len(tr.Scenarios) > 0 {
			_ = e.opts.History.Put(ctx, tr.ToolName, pruner.PriorFingerprint{
				SchemaHash:   fp.SchemaHash,
				LastTestedAt: timeNow(),
			})
		}
	}

	signatures, dependencyEdges, err := e.runWorkflows(ctx, sess, tools)
	if err != nil {
		return Result{}, err
	}

	server := baseline.Server{
		Name:            sess.ServerInfo().Name,
		Version:         sess.ServerInfo().Version,
		ProtocolVersion: sess.ProtocolVersion(),
		Capabilities:    capabilityNames(sess.Capabilities()),
	}

	input := baseline.Input{
		Mode:                "check",
		ServerCommand:       cfg.Server.Command,
		Duration:            timeNow().Sub(started),
		Server:              server,
		Tools:               tools,
		ToolProfiles:        profiles,
		WorkflowSignatures:  signatures,
		ScenarioCount:       scenarioCount,
		PassedCount:         passedCount,
		FailedCount:         failedCount,
		DependencyEdgeCount: dependencyEdges,
		Cancelled:           runResult.Cancelled,
	}

	return Result{Baseline: baseline.Build(input), Tools: runResult.Tools}, nil
}

// buildCatalog synthesizes and prunes the scenario catalog for every
// discovered tool, logging each tool's pruning decision. Before any of
// that, the incremental analyzer gets first refusal: a tool whose schema
// hash matches its entry in the prior baseline and whose fingerprint is
// still fresh is left out of the returned catalog entirely, and its prior
// Fingerprint is copied forward verbatim into skipped instead of being
// re-synthesized and re-run.
func (e *Engine) buildCatalog(ctx context.Context, tools []mcpproto.Tool) (map[string][]scenario.Scenario, map[string]baseline.Fingerprint, error) {
	priorFingerprints := fingerprintsByToolName(e.opts.PriorBaseline)

	catalog := make(map[string][]scenario.Scenario, len(tools))
	skipped := make(map[string]baseline.Fingerprint)

	for _, tool := range tools {
		hours := 0.0
		var priorHistory *pruner.PriorFingerprint
		if e.opts.History != nil {
			if prior, ok, _ := e.opts.History.Get(ctx, tool.Name); ok {
				hours = timeNow().Sub(prior.LastTestedAt).Hours()
				priorHistory = &prior
			}
		}

		// An explicitly supplied prior baseline takes priority over the
		// history cache, which is in-memory by default and won't have
		// survived past the process that wrote it.
		priorFP, hasPriorFP := priorFingerprints[tool.Name]
		incrementalPrior := priorHistory
		if hasPriorFP {
			incrementalPrior = &pruner.PriorFingerprint{SchemaHash: priorFP.SchemaHash, LastTestedAt: priorFP.LastTestedAt}
		}

		currentSchemaHash := currentToolSchemaHash(tool)
		if decision := e.incremental.Decide(tool.Name, currentSchemaHash, incrementalPrior, timeNow()); decision.Skip && hasPriorFP {
			if e.opts.DecisionLog != nil {
				_ = e.opts.DecisionLog.IncrementalSkip(tool.Name, decision.Reason)
			}
			skipped[tool.Name] = priorFP
			continue
		}

		tc := characteristicsFromTool(tool, 0, hours)

		decision := e.pruner.Decide(tool.Name, tc)
		if e.opts.DecisionLog != nil {
			_ = e.opts.DecisionLog.PruningDecision(decision)
		}

		scenarios, err := e.synth.Synthesize(ctx, tool, decision.Priority)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: synthesize %s: %w", tool.Name, err)
		}
		catalog[tool.Name] = filterByCategory(scenarios, decision.RunCategories())
	}
	return catalog, skipped, nil
}

// currentToolSchemaHash computes the same schema hash a Fingerprint built
// for tool would carry, the value the incremental analyzer compares
// against a prior baseline's recorded hash.
func currentToolSchemaHash(tool mcpproto.Tool) string {
	doc, _ := schema.CanonicalizeJSON(tool.InputSchema)
	return schema.Hash(doc)
}

// fingerprintsByToolName indexes prior's tool profiles by name. A nil
// prior yields an empty index, so every tool falls through to a fresh
// run.
func fingerprintsByToolName(prior *baseline.Baseline) map[string]baseline.Fingerprint {
	if prior == nil {
		return map[string]baseline.Fingerprint{}
	}
	out := make(map[string]baseline.Fingerprint, len(prior.ToolProfiles))
	for _, fp := range prior.ToolProfiles {
		out[fp.Name] = fp
	}
	return out
}

func filterByCategory(scenarios []scenario.Scenario, allowed []scenario.Category) []scenario.Scenario {
	allow := make(map[scenario.Category]bool, len(allowed))
	for _, c := range allowed {
		allow[c] = true
	}
	out := make([]scenario.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		if allow[s.Category] {
			out = append(out, s)
		}
	}
	return out
}

func capabilityNames(capabilities map[string]any) []string {
	out := make([]string, 0, len(capabilities))
	for name := range capabilities {
		out = append(out, name)
	}
	return out
}

// runWorkflows executes every configured workflow.Definition in sequence
// against the same session the scenario catalog just ran against. Probe
// tools for state snapshots are every discovered tool the State Tracker
// classifies as a probe by name pattern.
func (e *Engine) runWorkflows(ctx context.Context, caller scheduler.Caller, tools []mcpproto.Tool) ([]workflow.Signature, int, error) {
	if len(e.opts.Workflows) == 0 {
		return nil, 0, nil
	}

	var probes []string
	for _, t := range tools {
		c := e.classify(t.Name, t.Description)
		if statetracker.IsProbe(c, t.Name) {
			probes = append(probes, t.Name)
		}
	}

	runner := workflow.New(caller, workflow.Options{
		DefaultTimeout: e.opts.Config.DefaultTimeout(),
		Snapshots:      statetracker.NewTaker(caller, 0, 0),
		ProbeTools:     probes,
		Classify: func(tool string) statetracker.Classification {
			return e.classify(tool, "")
		},
	})

	var signatures []workflow.Signature
	edgeCount := 0
	for _, def := range e.opts.Workflows {
		result, err := runner.Run(ctx, def)
		if err != nil {
			return nil, 0, fmt.Errorf("engine: workflow %s: %w", def.ID, err)
		}
		signatures = append(signatures, result.Signature)
		edgeCount += len(result.Dependencies)
	}
	return signatures, edgeCount, nil
}
