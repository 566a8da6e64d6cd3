package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/session"
)

// discoverTools issues tools/list and returns the declared catalog. The
// `discover` CLI command stops here; `check` and `baseline` continue on to
// run scenarios against each tool.
func discoverTools(ctx context.Context, sess *session.Session, timeout time.Duration) ([]mcpproto.Tool, error) {
	raw, err := sess.Call(ctx, "tools/list", map[string]any{}, timeout)
	if err != nil {
		return nil, fmt.Errorf("engine: tools/list: %w", err)
	}
	var result mcpproto.ToolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("engine: decode tools/list: %w", err)
	}
	return result.Tools, nil
}
