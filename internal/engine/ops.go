package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/credentials"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
	"github.com/dotsetlabs/bellwether/internal/session"
)

// Connect exposes the same connection path Run uses, for callers that need
// a live Session without running the full scenario catalog (discover,
// golden save/compare).
func Connect(ctx context.Context, cfg *config.Config, resolver credentials.Resolver) (*session.Session, error) {
	return connect(ctx, cfg, resolver)
}

// Discover exposes tools/list for the `discover` command, a thin
// composition of Transport + Session + Capability Discovery with no
// Scheduler involvement.
func Discover(ctx context.Context, sess *session.Session, timeout time.Duration) ([]mcpproto.Tool, error) {
	return discoverTools(ctx, sess, timeout)
}

// CallTool issues a single tools/call and returns the unwrapped response
// value, for `golden save`/`golden compare` pinning one tool's output
// shape outside a full run.
func CallTool(ctx context.Context, sess *session.Session, name string, args map[string]any, timeout time.Duration) (any, bool, error) {
	params := map[string]any{"name": name, "arguments": args}
	raw, err := sess.Call(ctx, "tools/call", params, timeout)
	if err != nil {
		return nil, false, fmt.Errorf("engine: tools/call %s: %w", name, err)
	}
	var result mcpproto.ToolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("engine: decode tools/call %s: %w", name, err)
	}
	normalized, err := mcpproto.NormalizeToolResult(result)
	if err != nil {
		return nil, false, err
	}
	value, err := scheduler.UnwrapForAssertions(normalized)
	if err != nil {
		return nil, false, err
	}
	return value, normalized.IsError, nil
}
