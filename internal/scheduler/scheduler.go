// Package scheduler drives the scenario catalog to completion against a
// live MCP session with bounded concurrency across tools and strict FIFO
// ordering within a tool (§4.6).
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/telemetry"
)

// timeNow is a test seam, following the same pattern as internal/session.
var timeNow = time.Now

// Caller is the subset of *session.Session the Scheduler depends on. Kept
// as an interface so tests can drive the executor against a fake without
// a live transport.
type Caller interface {
	Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error)
}

// AssertionResult is the outcome of evaluating one Assertion against a
// scenario's unwrapped response.
type AssertionResult struct {
	Assertion scenario.Assertion
	Passed    bool
	Message   string
}

// ScenarioResult records everything observed while executing one Scenario
// (§4.6 step 5).
type ScenarioResult struct {
	Scenario    scenario.Scenario
	RawResponse json.RawMessage
	Unwrapped   any
	IsError     bool
	Assertions  []AssertionResult
	Passed      bool
	Err         error
	Duration    time.Duration
}

// ToolResult collects every scenario run against one tool, in the order
// they completed (which, per §5's ordering guarantee, is the order they
// were enqueued).
type ToolResult struct {
	ToolName  string
	Scenarios []ScenarioResult
}

// RunResult is the Scheduler's complete output for one run.
type RunResult struct {
	Tools     []ToolResult
	Cancelled bool
}

// Options configures a Scheduler.
type Options struct {
	// ParallelTools bounds how many tools run concurrently. Defaults to 1
	// when zero or negative.
	ParallelTools int

	// DefaultTimeout is the per-scenario session.call deadline used when a
	// scenario doesn't specify its own.
	DefaultTimeout time.Duration

	// WarmupScenarios is how many of each tool's leading happy_path
	// scenarios run first, purely to prime the server, before the tool's
	// full catalog runs. Their results are discarded unless
	// IncludeWarmupInFingerprint is set.
	WarmupScenarios int

	// IncludeWarmupInFingerprint keeps warmup scenario results in the
	// final ToolResult instead of discarding them.
	IncludeWarmupInFingerprint bool

	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.ParallelTools <= 0 {
		o.ParallelTools = 1
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = telemetry.NewNoopLogger()
	}
	if o.Tracer == nil {
		o.Tracer = telemetry.NewNoopTracer()
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewNoopMetrics()
	}
	return o
}

// Scheduler runs a catalog of per-tool scenarios to completion.
type Scheduler struct {
	opts      Options
	cancelled atomic.Bool
}

// New returns a Scheduler configured with opts.
func New(opts Options) *Scheduler {
	return &Scheduler{opts: opts.withDefaults()}
}

// Cancel signals every worker to stop issuing new scenarios once its
// current one completes. In-flight scenarios are allowed to finish or
// time out naturally; nothing is forcibly killed (§5 Cancellation
// semantics). Run still returns a RunResult with Cancelled set.
func (s *Scheduler) Cancel() {
	s.cancelled.Store(true)
}

// Run executes catalog (tool name -> its scenario list) against caller,
// with up to Options.ParallelTools tools in flight at once. Scenarios
// within a tool always run sequentially and in catalog order.
func (s *Scheduler) Run(ctx context.Context, caller Caller, catalog map[string][]scenario.Scenario) (RunResult, error) {
	toolNames := make([]string, 0, len(catalog))
	for name := range catalog {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)

	results := make([]ToolResult, len(toolNames))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(s.opts.ParallelTools))

	for i := range toolNames {
		i := i
		scenarios := catalog[toolNames[i]]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			results[i] = s.runTool(gctx, caller, toolNames[i], scenarios)
			return nil
		})
	}

	err := g.Wait()
	cancelled := s.cancelled.Load() || ctx.Err() != nil
	if err != nil && cancelled {
		err = nil
	}
	return RunResult{Tools: results, Cancelled: cancelled}, err
}

func (s *Scheduler) runTool(ctx context.Context, caller Caller, toolName string, scenarios []scenario.Scenario) ToolResult {
	warmup, rest := splitWarmup(scenarios, s.opts.WarmupScenarios)
	out := ToolResult{ToolName: toolName}

	for _, sc := range warmup {
		if s.shouldStop(ctx) {
			return out
		}
		result := s.executeScenario(ctx, caller, sc)
		if s.opts.IncludeWarmupInFingerprint {
			out.Scenarios = append(out.Scenarios, result)
		}
	}

	for _, sc := range rest {
		if s.shouldStop(ctx) {
			break
		}
		out.Scenarios = append(out.Scenarios, s.executeScenario(ctx, caller, sc))
	}
	return out
}

// shouldStop reports whether workers must stop issuing new scenarios:
// either the explicit cancel signal fired, or the run's context ended.
func (s *Scheduler) shouldStop(ctx context.Context) bool {
	if s.cancelled.Load() {
		return true
	}
	return ctx.Err() != nil
}

// splitWarmup peels off up to n leading happy_path scenarios as the
// warmup batch; everything else (including any happy_path scenarios
// beyond n) is the tool's real catalog.
func splitWarmup(scenarios []scenario.Scenario, n int) (warmup, rest []scenario.Scenario) {
	if n <= 0 {
		return nil, scenarios
	}
	taken := 0
	for i, sc := range scenarios {
		if taken < n && sc.Category == scenario.CategoryHappyPath {
			warmup = append(warmup, sc)
			taken++
			continue
		}
		rest = append(rest, scenarios[i])
	}
	return warmup, rest
}

func (s *Scheduler) executeScenario(ctx context.Context, caller Caller, sc scenario.Scenario) ScenarioResult {
	tracer := s.opts.Tracer
	ctx, span := tracer.Start(ctx, "scheduler.execute_scenario", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("bellwether.tool", sc.ToolName),
		attribute.String("bellwether.scenario_category", string(sc.Category)),
	))
	defer span.End()

	start := timeNow()
	params := map[string]any{"name": sc.ToolName, "arguments": sc.Args}
	raw, err := caller.Call(ctx, "tools/call", params, s.opts.DefaultTimeout)
	duration := timeNow().Sub(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tools/call failed")
		return ScenarioResult{
			Scenario: sc,
			Err:      err,
			Duration: duration,
			Passed:   sc.Category == scenario.CategoryErrorHandling,
		}
	}

	var toolResult mcpproto.ToolsCallResult
	if err := json.Unmarshal(raw, &toolResult); err != nil {
		decodeErr := fmt.Errorf("scheduler: decode tools/call result for %q: %w", sc.ToolName, err)
		span.RecordError(decodeErr)
		return ScenarioResult{Scenario: sc, RawResponse: raw, Err: decodeErr, Duration: duration}
	}

	normalized, err := mcpproto.NormalizeToolResult(toolResult)
	if err != nil {
		span.RecordError(err)
		return ScenarioResult{
			Scenario:    sc,
			RawResponse: raw,
			Err:         err,
			Duration:    duration,
			Passed:      sc.Category == scenario.CategoryErrorHandling,
		}
	}

	unwrapped, err := unwrapForAssertions(normalized)
	if err != nil {
		span.RecordError(err)
		return ScenarioResult{Scenario: sc, RawResponse: raw, Err: err, Duration: duration}
	}

	assertionResults := evaluateAssertions(sc.Assertions, unwrapped, normalized.IsError)
	passed := aggregatePassFail(sc.Category, normalized.IsError, assertionResults)
	if !passed {
		span.SetStatus(codes.Error, "scenario assertions failed")
	}

	return ScenarioResult{
		Scenario:    sc,
		RawResponse: raw,
		Unwrapped:   unwrapped,
		IsError:     normalized.IsError,
		Assertions:  assertionResults,
		Passed:      passed,
		Duration:    duration,
	}
}
