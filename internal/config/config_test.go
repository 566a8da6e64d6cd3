package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 1, cfg.Run.ParallelTools)
	assert.Equal(t, "memory", cfg.History.Backend)
}

func TestLoadOverlaysFileOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bellwether.yaml")
	content := `
server:
  transport: stdio
  command: ./my-server
run:
  parallel_tools: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./my-server", cfg.Server.Command)
	assert.Equal(t, 4, cfg.Run.ParallelTools)
	// untouched defaults survive the overlay
	assert.Equal(t, "30s", cfg.Run.DefaultTimeout)
}

func TestValidateRejectsStdioWithoutCommand(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "stdio"
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "carrier-pigeon"
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsRedisBackendWithoutAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "stdio"
	cfg.Server.Command = "./server"
	cfg.History.Backend = "redis"
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateAcceptsSSEWithEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "sse"
	cfg.Server.Endpoint = "http://localhost:9000/mcp"
	assert.NoError(t, cfg.Validate())
}

func TestSchedulerOptionsParsesDefaultTimeout(t *testing.T) {
	cfg := Default()
	cfg.Run.DefaultTimeout = "45s"
	opts := cfg.SchedulerOptions()
	assert.Equal(t, 45*time.Second, opts.DefaultTimeout)
}

func TestHistoryTTLFallsBackOnMalformedValue(t *testing.T) {
	cfg := Default()
	cfg.History.TTL = "not-a-duration"
	assert.Equal(t, 7*24*time.Hour, cfg.HistoryTTL())
}

func TestIncrementalMaxAgeDefaultsToOneDay(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 24*time.Hour, cfg.IncrementalMaxAge())
}

func TestIncrementalMaxAgeFallsBackOnMalformedValue(t *testing.T) {
	cfg := Default()
	cfg.Pruning.IncrementalMaxAge = "not-a-duration"
	assert.Equal(t, 24*time.Hour, cfg.IncrementalMaxAge())
}
