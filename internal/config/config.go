// Package config loads the YAML configuration file that drives a run: the
// server connection, run policy, and engine-level knobs. It sits outside
// the core engine's import graph on purpose — every field here resolves
// into one of the engine's own Options structs, never the other way
// around.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level document a bellwether.yaml file unmarshals into.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Run        RunConfig        `yaml:"run"`
	Pruning    PruningConfig    `yaml:"pruning"`
	Diff       DiffConfig       `yaml:"diff"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
	DecisionLog string          `yaml:"decision_log"`
}

// ServerConfig names the MCP server under test and how to reach it.
type ServerConfig struct {
	// Transport is one of "stdio", "sse", "http".
	Transport string `yaml:"transport"`

	// Command/Args spawn a subprocess for the stdio transport.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`

	// Endpoint is the URL for the sse/http transports.
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`

	// EnvAllow lists environment variables passed through to a spawned
	// subprocess verbatim; CredentialRefs names logical credential keys
	// resolved through the external Credential Resolver and injected as
	// additional env/headers at run time.
	EnvAllow       []string `yaml:"env_allow"`
	CredentialRefs []string `yaml:"credential_refs"`

	ProtocolVersion string `yaml:"protocol_version"`
}

// RunConfig tunes the Scheduler and Session for one run.
type RunConfig struct {
	ParallelTools   int    `yaml:"parallel_tools"`
	DefaultTimeout  string `yaml:"default_timeout"`
	WarmupScenarios int    `yaml:"warmup_scenarios"`
	InitTimeout     string `yaml:"init_timeout"`
}

// PruningConfig tunes the Test Pruner and its incremental analyzer.
type PruningConfig struct {
	MaxSkippedCategories int `yaml:"max_skipped_categories"`

	// IncrementalMaxAge bounds how stale a prior fingerprint may be and
	// still let the incremental analyzer skip re-testing a tool whose
	// schema hasn't changed.
	IncrementalMaxAge string `yaml:"incremental_max_age"`
}

// DiffConfig tunes the Baseline Differ's policy knobs (§9 Open Questions).
type DiffConfig struct {
	OptionalAdditionBreaking bool `yaml:"optional_addition_breaking"`
	EnumAdditionBreaking     bool `yaml:"enum_addition_breaking"`
	AllowVersionMismatch     bool `yaml:"allow_version_mismatch"`
	AllowCancelledBaseline   bool `yaml:"allow_cancelled_baseline"`
}

// HistoryConfig selects the cached-history backend for the Test Pruner.
type HistoryConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend  string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	TTL      string `yaml:"ttl"`
}

// LoggingConfig mirrors the teacher's own logging section: a level and an
// output format, nothing more.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present: stdio
// transport with no command (the caller must supply one via flags), a
// single parallel tool, and the memory history backend.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:       "stdio",
			ProtocolVersion: "",
		},
		Run: RunConfig{
			ParallelTools:   1,
			DefaultTimeout:  "30s",
			WarmupScenarios: 1,
			InitTimeout:     "10s",
		},
		Pruning: PruningConfig{
			MaxSkippedCategories: 0,
			IncrementalMaxAge:    "24h",
		},
		Diff: DiffConfig{
			OptionalAdditionBreaking: false,
			EnumAdditionBreaking:     false,
			AllowVersionMismatch:     false,
		},
		History: HistoryConfig{
			Backend: "memory",
			TTL:     "168h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file at path, starting from Default() and
// overlaying whatever the file sets. A missing file is not an error: the
// caller gets defaults, same as the CLI driver running with no config at
// all.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultTimeout parses Run.DefaultTimeout, falling back to 30s on an empty
// or malformed value.
func (c *Config) DefaultTimeout() time.Duration {
	return parseDurationOr(c.Run.DefaultTimeout, 30*time.Second)
}

// InitTimeout parses Run.InitTimeout, falling back to 10s.
func (c *Config) InitTimeout() time.Duration {
	return parseDurationOr(c.Run.InitTimeout, 10*time.Second)
}

// HistoryTTL parses History.TTL, falling back to one week.
func (c *Config) HistoryTTL() time.Duration {
	return parseDurationOr(c.History.TTL, 7*24*time.Hour)
}

// IncrementalMaxAge parses Pruning.IncrementalMaxAge, falling back to 24h.
func (c *Config) IncrementalMaxAge() time.Duration {
	return parseDurationOr(c.Pruning.IncrementalMaxAge, 24*time.Hour)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate rejects a config that is structurally fine YAML but makes no
// sense to run: an unknown transport, or a stdio transport with no
// command.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio":
		if c.Server.Command == "" {
			return fmt.Errorf("config: server.transport is stdio but server.command is empty")
		}
	case "sse", "http":
		if c.Server.Endpoint == "" {
			return fmt.Errorf("config: server.transport is %s but server.endpoint is empty", c.Server.Transport)
		}
	default:
		return fmt.Errorf("config: unknown server.transport %q (want stdio, sse, or http)", c.Server.Transport)
	}

	switch c.History.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown history.backend %q (want memory or redis)", c.History.Backend)
	}
	if c.History.Backend == "redis" && c.History.RedisAddr == "" {
		return fmt.Errorf("config: history.backend is redis but history.redis_addr is empty")
	}

	return nil
}
