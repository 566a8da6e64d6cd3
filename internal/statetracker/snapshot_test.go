package statetracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbeCaller struct {
	fn func(name string) (json.RawMessage, error)
}

func (f *fakeProbeCaller) Call(_ context.Context, _ string, params any, _ time.Duration) (json.RawMessage, error) {
	p := params.(map[string]any)
	return f.fn(p["name"].(string))
}

func successToolsCallResult(payload string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": payload}},
		"isError": false,
	})
	return raw
}

func errorToolsCallResult(message string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": message}},
		"isError": true,
	})
	return raw
}

func TestTakeHashesSortedProbeResponses(t *testing.T) {
	caller := &fakeProbeCaller{fn: func(name string) (json.RawMessage, error) {
		switch name {
		case "list_files":
			return successToolsCallResult(`["a.txt"]`), nil
		case "list_users":
			return successToolsCallResult(`["alice"]`), nil
		default:
			return nil, errors.New("unexpected probe")
		}
	}}

	taker := NewTaker(caller, time.Second, 5*time.Second)
	snap, err := taker.Take(context.Background(), 0, []string{"list_users", "list_files"})
	require.NoError(t, err)
	assert.Equal(t, []string{"list_files", "list_users"}, snap.ProbeTools)
	assert.NotEmpty(t, snap.Hash)

	again, err := taker.Take(context.Background(), 1, []string{"list_files", "list_users"})
	require.NoError(t, err)
	assert.Equal(t, snap.Hash, again.Hash, "identical probe responses must hash identically regardless of probe order")
}

func TestTakeRecordsProbeFailureRatherThanOmittingIt(t *testing.T) {
	caller := &fakeProbeCaller{fn: func(name string) (json.RawMessage, error) {
		if name == "list_files" {
			return errorToolsCallResult("permission denied"), nil
		}
		return successToolsCallResult(`[]`), nil
	}}

	taker := NewTaker(caller, time.Second, 5*time.Second)
	snap, err := taker.Take(context.Background(), 0, []string{"list_files", "list_users"})
	require.NoError(t, err)

	failure, ok := snap.Data["list_files"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "probe_failed", failure["error"])
	assert.Equal(t, "permission denied", failure["message"])
}

func TestTakeTripsCircuitBreakerAfterHalfProbesFail(t *testing.T) {
	var called []string
	caller := &fakeProbeCaller{fn: func(name string) (json.RawMessage, error) {
		called = append(called, name)
		return nil, errors.New("server unavailable")
	}}

	taker := NewTaker(caller, time.Second, 5*time.Second)
	snap, err := taker.Take(context.Background(), 0, []string{"probe_a", "probe_b", "probe_c", "probe_d"})
	require.NoError(t, err)

	// threshold = (4+1)/2 = 2 consecutive failures trips the breaker,
	// so only the first two probes (alphabetically) are ever attempted.
	assert.Len(t, called, 2)
	assert.Len(t, snap.Data, 2)
}
