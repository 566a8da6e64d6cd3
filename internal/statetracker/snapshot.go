package statetracker

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/schema"
)

// Caller is the narrow transport seam the Snapshot Taker needs: a single
// tools/call round trip with a per-call timeout. It matches
// scheduler.Caller's shape so both sit on top of the same session.Session.
type Caller interface {
	Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error)
}

// Snapshot is the hashed, timestamped result of probing every reader tool
// the State Tracker recognizes as a corpus view.
type Snapshot struct {
	// ID correlates this snapshot across logs and workflow results; it
	// carries no bearing on Hash, which is computed from Data alone.
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	AfterStepIndex int            `json:"afterStepIndex"`
	ProbeTools     []string       `json:"probeTools"`
	Data           map[string]any `json:"data"`
	Hash           string         `json:"hash"`
}

// Taker owns the probe call budget: a per-probe timeout, a total deadline
// for the whole snapshot, and a circuit breaker that gives up on the
// remaining probes once the server is clearly unresponsive.
type Taker struct {
	caller          Caller
	perProbeTimeout time.Duration
	totalDeadline   time.Duration
}

func NewTaker(caller Caller, perProbeTimeout, totalDeadline time.Duration) *Taker {
	if perProbeTimeout <= 0 {
		perProbeTimeout = 5 * time.Second
	}
	if totalDeadline <= 0 {
		totalDeadline = 30 * time.Second
	}
	return &Taker{caller: caller, perProbeTimeout: perProbeTimeout, totalDeadline: totalDeadline}
}

// Take calls every probe tool with empty arguments and hashes the result.
// A probe that errors or times out is recorded as a structured failure
// rather than dropped, so drift in error behavior itself stays visible in
// the snapshot hash. Once consecutive failures reach half the probe
// count, the breaker trips and remaining probes are skipped entirely
// (never attempted, so they are absent from Data, not recorded failed).
func (t *Taker) Take(ctx context.Context, afterStepIndex int, probes []string) (Snapshot, error) {
	sorted := append([]string(nil), probes...)
	sort.Strings(sorted)

	ctx, cancel := context.WithTimeout(ctx, t.totalDeadline)
	defer cancel()

	threshold := (len(sorted) + 1) / 2
	consecutiveFailures := 0
	data := make(map[string]any, len(sorted))

	for _, probe := range sorted {
		if threshold > 0 && consecutiveFailures >= threshold {
			break
		}
		value, err := t.probeOne(ctx, probe)
		if err != nil {
			consecutiveFailures++
			data[probe] = failureRecord(err)
			continue
		}
		consecutiveFailures = 0
		data[probe] = value
	}

	canonical := schema.Canonicalize(data)
	return Snapshot{
		ID:             uuid.New().String(),
		Timestamp:      timeNow(),
		AfterStepIndex: afterStepIndex,
		ProbeTools:     sorted,
		Data:           data,
		Hash:           schema.Hash(canonical),
	}, nil
}

func (t *Taker) probeOne(ctx context.Context, probe string) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.perProbeTimeout)
	defer cancel()

	params := map[string]any{"name": probe, "arguments": map[string]any{}}
	raw, err := t.caller.Call(callCtx, "tools/call", params, t.perProbeTimeout)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}

	var result mcpproto.ToolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	normalized, err := mcpproto.NormalizeToolResult(result)
	if err != nil {
		return nil, err
	}
	if normalized.IsError {
		return nil, errors.New(extractFailureText(normalized.Payload))
	}
	var v any
	if len(normalized.Payload) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(normalized.Payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func failureRecord(err error) map[string]any {
	reason := "probe_failed"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "probe_timeout"
	}
	return map[string]any{"error": reason, "message": err.Error()}
}

func extractFailureText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "probe returned an error"
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return string(payload)
}

// timeNow is a test seam, matching the pattern already used in session
// and scheduler.
var timeNow = time.Now
