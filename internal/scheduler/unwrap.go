package scheduler

import (
	"encoding/json"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
)

// unwrapForAssertions converts a normalized MCP result into the value
// assertions evaluate against (§4.6 step 3). An error envelope collapses
// to a uniform {error, isError, message} object regardless of how the
// server phrased the error text, so assertion paths never need to guess
// the error shape; a success envelope is simply its parsed JSON payload.
func unwrapForAssertions(nr mcpproto.NormalizedResult) (any, error) {
	if nr.IsError {
		return map[string]any{
			"error":   true,
			"isError": true,
			"message": extractMessage(nr.Payload),
		}, nil
	}
	if len(nr.Payload) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(nr.Payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnwrapForAssertions is the exported form of unwrapForAssertions, for
// reuse by the Workflow Runner's step executor.
func UnwrapForAssertions(nr mcpproto.NormalizedResult) (any, error) {
	return unwrapForAssertions(nr)
}

func extractMessage(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return string(payload)
}
