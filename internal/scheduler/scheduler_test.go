package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/scenario"
)

type fakeCaller struct {
	mu    sync.Mutex
	calls []map[string]any
	fn    func(name string, args map[string]any) (json.RawMessage, error)
}

func (f *fakeCaller) Call(_ context.Context, _ string, params any, _ time.Duration) (json.RawMessage, error) {
	p := params.(map[string]any)
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
	name := p["name"].(string)
	args, _ := p["arguments"].(map[string]any)
	return f.fn(name, args)
}

func successResult(payload string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": payload}},
		"isError": false,
	})
	return raw
}

func errorResult(message string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": message}},
		"isError": true,
	})
	return raw
}

func TestRunExecutesScenariosInOrderWithinATool(t *testing.T) {
	var seen []string
	caller := &fakeCaller{fn: func(name string, args map[string]any) (json.RawMessage, error) {
		seen = append(seen, args["step"].(string))
		return successResult(`"ok"`), nil
	}}

	catalog := map[string][]scenario.Scenario{
		"tool_a": {
			{ToolName: "tool_a", Category: scenario.CategoryHappyPath, Args: map[string]any{"step": "1"}},
			{ToolName: "tool_a", Category: scenario.CategoryBoundary, Args: map[string]any{"step": "2"}},
			{ToolName: "tool_a", Category: scenario.CategoryBoundary, Args: map[string]any{"step": "3"}},
		},
	}

	sched := New(Options{ParallelTools: 2})
	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestRunMarksNotErrorAssertionFailedOnErrorResponse(t *testing.T) {
	caller := &fakeCaller{fn: func(string, map[string]any) (json.RawMessage, error) {
		return errorResult("boom"), nil
	}}
	catalog := map[string][]scenario.Scenario{
		"tool_a": {{
			ToolName: "tool_a",
			Category: scenario.CategoryHappyPath,
			Args:     map[string]any{},
			Assertions: []scenario.Assertion{
				{Path: "$", Condition: scenario.ConditionNotError},
			},
		}},
	}

	sched := New(Options{})
	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	sc := result.Tools[0].Scenarios[0]
	assert.False(t, sc.Passed)
	assert.True(t, sc.IsError)
	assert.Equal(t, "boom", sc.Unwrapped.(map[string]any)["message"])
}

func TestRunPassesErrorHandlingScenarioWhenCallErrors(t *testing.T) {
	caller := &fakeCaller{fn: func(string, map[string]any) (json.RawMessage, error) {
		return errorResult("missing required field"), nil
	}}
	catalog := map[string][]scenario.Scenario{
		"tool_a": {{
			ToolName: "tool_a",
			Category: scenario.CategoryErrorHandling,
			Args:     map[string]any{},
		}},
	}

	sched := New(Options{})
	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	assert.True(t, result.Tools[0].Scenarios[0].Passed)
}

func TestRunTransportErrorFailsNonErrorHandlingScenario(t *testing.T) {
	caller := &fakeCaller{fn: func(string, map[string]any) (json.RawMessage, error) {
		return nil, errors.New("transport closed")
	}}
	catalog := map[string][]scenario.Scenario{
		"tool_a": {{ToolName: "tool_a", Category: scenario.CategoryHappyPath, Args: map[string]any{}}},
	}

	sched := New(Options{})
	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	sc := result.Tools[0].Scenarios[0]
	assert.False(t, sc.Passed)
	assert.Error(t, sc.Err)
}

func TestWarmupScenariosDiscardedUnlessIncluded(t *testing.T) {
	var callCount int
	caller := &fakeCaller{fn: func(string, map[string]any) (json.RawMessage, error) {
		callCount++
		return successResult(`"ok"`), nil
	}}
	catalog := map[string][]scenario.Scenario{
		"tool_a": {
			{ToolName: "tool_a", Category: scenario.CategoryHappyPath, Args: map[string]any{}},
			{ToolName: "tool_a", Category: scenario.CategoryBoundary, Args: map[string]any{}},
		},
	}

	sched := New(Options{WarmupScenarios: 1})
	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
	assert.Len(t, result.Tools[0].Scenarios, 1)
}

func TestRunStopsIssuingAfterCancel(t *testing.T) {
	sched := New(Options{})
	var mu sync.Mutex
	var executed int
	caller := &fakeCaller{fn: func(string, map[string]any) (json.RawMessage, error) {
		mu.Lock()
		executed++
		mu.Unlock()
		sched.Cancel()
		return successResult(`"ok"`), nil
	}}
	catalog := map[string][]scenario.Scenario{
		"tool_a": {
			{ToolName: "tool_a", Category: scenario.CategoryHappyPath, Args: map[string]any{}},
			{ToolName: "tool_a", Category: scenario.CategoryBoundary, Args: map[string]any{}},
			{ToolName: "tool_a", Category: scenario.CategoryBoundary, Args: map[string]any{}},
		},
	}

	result, err := sched.Run(context.Background(), caller, catalog)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, executed)
}
