// Package workflow executes ordered multi-step workflows, resolving each
// step's arguments from literal values and prior step outputs, and rolls
// the result up into a WorkflowSignature for inclusion in a baseline
// (§4.8).
package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
	"github.com/dotsetlabs/bellwether/internal/statetracker"
	"github.com/dotsetlabs/bellwether/internal/stepref"
)

// timeNow is a test seam, following the same pattern as session/scheduler.
var timeNow = time.Now

// Step is one step of a workflow definition.
type Step struct {
	Tool        string
	Description string
	Args        map[string]any
	ArgMapping  map[string]string
	Optional    bool
	Assertions  []scenario.Assertion
}

// Definition is one parsed workflow document.
type Definition struct {
	ID              string
	Name            string
	Description     string
	ExpectedOutcome string
	Steps           []Step
}

// StepResult records everything observed while executing one Step.
type StepResult struct {
	StepIndex    int
	Tool         string
	ResolvedArgs map[string]any
	Result       any
	IsError      bool
	Err          error
	Assertions   []scheduler.AssertionResult
	Passed       bool
	Duration     time.Duration
}

// Signature is the workflow's contribution to a baseline: the tool
// sequence it drove, whether it succeeded, and the outputs worth
// fingerprinting for future comparison.
type Signature struct {
	Name         string
	ToolSequence []string
	Succeeded    bool
	KeyOutputs   []any
}

// Result is a Runner's complete output for one workflow.
type Result struct {
	Definition   Definition
	Steps        []StepResult
	Snapshots    []statetracker.Snapshot
	Dependencies []statetracker.DependencyEdge
	Signature    Signature
}

// Options configures a Runner.
type Options struct {
	// DefaultTimeout is the per-step call deadline. Defaults to 30s.
	DefaultTimeout time.Duration

	// Snapshots, when set, is used to take state snapshots before step 0,
	// after each writer step, and after the final step. Nil disables
	// snapshotting and dependency-edge verification (edges are still
	// inferred from tool classification alone, just never verified).
	Snapshots *statetracker.Taker

	// ProbeTools is the set of tool names snapshots call.
	ProbeTools []string

	// Classify overrides how a tool name is classified reader/writer. If
	// nil, statetracker.Classify is called with an empty description,
	// which still catches every name-pattern-driven case.
	Classify func(tool string) statetracker.Classification
}

func (o Options) withDefaults() Options {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.Classify == nil {
		o.Classify = func(tool string) statetracker.Classification {
			return statetracker.Classify(tool, "")
		}
	}
	return o
}

// Runner executes Definitions against a live session.
type Runner struct {
	caller scheduler.Caller
	opts   Options
}

// New returns a Runner configured with opts, calling out to caller.
func New(caller scheduler.Caller, opts Options) *Runner {
	return &Runner{caller: caller, opts: opts.withDefaults()}
}

// Run executes every step of def in order, resolving each step's
// arguments against previously recorded results, and returns the full
// trace plus the workflow's signature.
func (r *Runner) Run(ctx context.Context, def Definition) (Result, error) {
	out := Result{Definition: def}
	var recorded []stepref.StepResult
	succeeded := true

	if r.opts.Snapshots != nil {
		if snap, err := r.opts.Snapshots.Take(ctx, -1, r.opts.ProbeTools); err == nil {
			out.Snapshots = append(out.Snapshots, snap)
		}
	}

	for i, step := range def.Steps {
		args, err := resolveStepArgs(step, recorded)
		if err != nil {
			err = bwerrors.Wrap(bwerrors.CategoryCallLevel, bwerrors.CodeUnresolvedReference, err.Error(), err)
			sr := StepResult{StepIndex: i, Tool: step.Tool, Err: err, Passed: step.Optional}
			out.Steps = append(out.Steps, sr)
			recorded = append(recorded, stepref.StepResult{Result: nil})
			if !step.Optional {
				succeeded = false
			}
			continue
		}

		start := timeNow()
		value, isError, callErr := r.callStep(ctx, step.Tool, args)
		duration := timeNow().Sub(start)

		sr := StepResult{StepIndex: i, Tool: step.Tool, ResolvedArgs: args, Result: value, IsError: isError, Err: callErr, Duration: duration}
		switch {
		case callErr != nil:
			sr.Passed = step.Optional
		default:
			sr.Assertions = scheduler.EvaluateAssertions(step.Assertions, value, isError)
			sr.Passed = stepPassed(isError, sr.Assertions) || step.Optional
		}

		out.Steps = append(out.Steps, sr)
		recorded = append(recorded, stepref.StepResult{Result: value})
		if !sr.Passed {
			succeeded = false
		}

		isLast := i == len(def.Steps)-1
		if r.opts.Snapshots != nil && (isWriterTool(r.opts.Classify(step.Tool)) || isLast) {
			if snap, err := r.opts.Snapshots.Take(ctx, i, r.opts.ProbeTools); err == nil {
				out.Snapshots = append(out.Snapshots, snap)
			}
		}
	}

	out.Dependencies = r.inferDependencies(def, out.Snapshots)
	out.Signature = buildSignature(def, out.Steps, succeeded)
	return out, nil
}

func resolveStepArgs(step Step, recorded []stepref.StepResult) (map[string]any, error) {
	resolved := cloneArgs(step.Args)
	if len(step.ArgMapping) == 0 {
		return resolved, nil
	}
	mapped := make(map[string]any, len(step.ArgMapping))
	for k, ref := range step.ArgMapping {
		mapped[k] = ref
	}
	substituted, err := stepref.ResolveArgs(mapped, recorded)
	if err != nil {
		return nil, err
	}
	for k, v := range substituted {
		resolved[k] = v // argMapping wins over literal args on key conflict
	}
	return resolved, nil
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

func (r *Runner) callStep(ctx context.Context, tool string, args map[string]any) (any, bool, error) {
	params := map[string]any{"name": tool, "arguments": args}
	raw, err := r.caller.Call(ctx, "tools/call", params, r.opts.DefaultTimeout)
	if err != nil {
		return nil, false, err
	}

	var toolResult mcpproto.ToolsCallResult
	if err := json.Unmarshal(raw, &toolResult); err != nil {
		return nil, false, err
	}
	normalized, err := mcpproto.NormalizeToolResult(toolResult)
	if err != nil {
		return nil, false, err
	}
	value, err := scheduler.UnwrapForAssertions(normalized)
	if err != nil {
		return nil, false, err
	}
	return value, normalized.IsError, nil
}

// stepPassed mirrors the Scheduler's non-error aggregation rule: a step
// that didn't error still fails if any of its assertions did.
func stepPassed(isError bool, results []scheduler.AssertionResult) bool {
	if isError {
		return false
	}
	for _, a := range results {
		if !a.Passed {
			return false
		}
	}
	return true
}

func isWriterTool(c statetracker.Classification) bool {
	return c.Role == statetracker.RoleWriter || c.Role == statetracker.RoleBoth
}

func (r *Runner) inferDependencies(def Definition, snapshots []statetracker.Snapshot) []statetracker.DependencyEdge {
	steps := make([]statetracker.StepExecution, len(def.Steps))
	for i, s := range def.Steps {
		steps[i] = statetracker.StepExecution{StepIndex: i, ToolName: s.Tool, Classification: r.opts.Classify(s.Tool)}
	}

	probeStateTypes := make(map[string][]statetracker.StateType, len(r.opts.ProbeTools))
	for _, probe := range r.opts.ProbeTools {
		probeStateTypes[probe] = r.opts.Classify(probe).StateTypes
	}

	var changes []statetracker.SnapshotChange
	for i := 1; i < len(snapshots); i++ {
		changes = append(changes, statetracker.DiffSnapshots(snapshots[i-1], snapshots[i], snapshots[i].AfterStepIndex)...)
	}

	return statetracker.InferDependencies(steps, changes, probeStateTypes)
}

func buildSignature(def Definition, steps []StepResult, succeeded bool) Signature {
	toolSequence := make([]string, len(def.Steps))
	for i, s := range def.Steps {
		toolSequence[i] = s.Tool
	}
	var keyOutputs []any
	for _, sr := range steps {
		if sr.Result != nil {
			keyOutputs = append(keyOutputs, sr.Result)
		}
	}
	return Signature{Name: def.Name, ToolSequence: toolSequence, Succeeded: succeeded, KeyOutputs: keyOutputs}
}
