package config

import (
	"fmt"
	"os"

	"github.com/dotsetlabs/bellwether/internal/diff"
	"github.com/dotsetlabs/bellwether/internal/pruner"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
	"github.com/dotsetlabs/bellwether/internal/session"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

// SchedulerOptions builds the Scheduler options this config describes.
func (c *Config) SchedulerOptions() scheduler.Options {
	return scheduler.Options{
		ParallelTools:   c.Run.ParallelTools,
		DefaultTimeout:  c.DefaultTimeout(),
		WarmupScenarios: c.Run.WarmupScenarios,
	}
}

// SessionOptions builds the Session options this config describes.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		ClientName:      "bellwether",
		ProtocolVersion: c.Server.ProtocolVersion,
		InitTimeout:     c.InitTimeout(),
	}
}

// PrunerOptions builds the Test Pruner options this config describes.
func (c *Config) PrunerOptions() pruner.Options {
	return pruner.Options{
		MaxSkippedCategories: c.Pruning.MaxSkippedCategories,
	}
}

// DiffOptions builds the Baseline Differ's policy options.
func (c *Config) DiffOptions() diff.Options {
	return diff.Options{
		OptionalAdditionBreaking: c.Diff.OptionalAdditionBreaking,
		EnumAdditionBreaking:     c.Diff.EnumAdditionBreaking,
		AllowVersionMismatch:     c.Diff.AllowVersionMismatch,
		AllowCancelledBaseline:   c.Diff.AllowCancelledBaseline,
	}
}

// StdioOptions builds subprocess transport options for servers configured
// with transport: stdio. env carries any credential-resolved values to add
// on top of Server.EnvAllow.
func (c *Config) StdioOptions(env map[string]string) transport.StdioOptions {
	merged := make(map[string]string, len(c.Server.EnvAllow)+len(env))
	for _, name := range c.Server.EnvAllow {
		if v, ok := os.LookupEnv(name); ok {
			merged[name] = v
		}
	}
	for k, v := range env {
		merged[k] = v
	}
	return transport.StdioOptions{
		Command:  c.Server.Command,
		Args:     c.Server.Args,
		Dir:      c.Server.Dir,
		EnvAllow: merged,
		Framing:  transport.FramingNewlineDelimited,
	}
}

// HTTPOptions builds streaming-HTTP transport options. headers carries any
// credential-resolved values to add on top of Server.Headers.
func (c *Config) HTTPOptions(headers map[string]string) transport.HTTPOptions {
	return transport.HTTPOptions{
		Endpoint: c.Server.Endpoint,
		Headers:  mergeHeaders(c.Server.Headers, headers),
	}
}

// SSEOptions builds SSE transport options, same header merge as HTTPOptions.
func (c *Config) SSEOptions(headers map[string]string) transport.SSEOptions {
	return transport.SSEOptions{
		Endpoint: c.Server.Endpoint,
		Headers:  mergeHeaders(c.Server.Headers, headers),
	}
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// RedisAddr returns the configured Redis address, or an error if the
// history backend isn't redis.
func (c *Config) RedisAddr() (string, error) {
	if c.History.Backend != "redis" {
		return "", fmt.Errorf("config: history.backend is %q, not redis", c.History.Backend)
	}
	return c.History.RedisAddr, nil
}
