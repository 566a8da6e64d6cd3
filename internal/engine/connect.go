package engine

import (
	"context"
	"fmt"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/credentials"
	"github.com/dotsetlabs/bellwether/internal/session"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

// connect resolves any configured credential refs, spawns or dials the
// transport the config names, and completes the MCP handshake, returning a
// ready Session. The caller is responsible for Close.
func connect(ctx context.Context, cfg *config.Config, resolver credentials.Resolver) (*session.Session, error) {
	extra := map[string]string{}
	for _, name := range cfg.Server.CredentialRefs {
		secret, err := resolver.Resolve(ctx, name)
		if err != nil {
			return nil, bwerrors.Configuration(bwerrors.CodeConfigInvalid, fmt.Sprintf("resolve credential %q: %v", name, err))
		}
		if !secret.Empty() {
			extra[name] = secret.Reveal()
		}
	}

	tr, err := dial(ctx, cfg, extra)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(ctx, tr, cfg.SessionOptions())
	if err != nil {
		return nil, fmt.Errorf("engine: handshake: %w", err)
	}
	return sess, nil
}

func dial(ctx context.Context, cfg *config.Config, extra map[string]string) (transport.Transport, error) {
	switch cfg.Server.Transport {
	case "stdio":
		return transport.NewStdioTransport(ctx, cfg.StdioOptions(extra))
	case "sse":
		return transport.NewSSETransport(cfg.SSEOptions(extra))
	case "http":
		return transport.NewHTTPTransport(cfg.HTTPOptions(extra))
	default:
		return nil, bwerrors.Configuration(bwerrors.CodeConfigInvalid, fmt.Sprintf("unknown transport %q", cfg.Server.Transport))
	}
}
