package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/historycache"
)

func TestNewHistoryStoreDefaultsToMemory(t *testing.T) {
	cfg := config.Default()

	store, err := newHistoryStore(cfg)
	require.NoError(t, err)
	_, ok := store.(*historycache.MemoryStore)
	assert.True(t, ok, "expected a memory store when history.backend is unset")
}

func TestNewHistoryStoreBuildsRedisClientFromAddr(t *testing.T) {
	cfg := config.Default()
	cfg.History.Backend = "redis"
	cfg.History.RedisAddr = "127.0.0.1:6379"

	store, err := newHistoryStore(cfg)
	require.NoError(t, err)
	_, ok := store.(*historycache.RedisStore)
	assert.True(t, ok, "expected a redis store when history.backend is redis")
}

func TestNewResolverReturnsChainResolver(t *testing.T) {
	resolver := newResolver()
	assert.NotNil(t, resolver)
}

func TestOpenDecisionLogSkipsEmptyPath(t *testing.T) {
	writer, f, err := openDecisionLog("")
	require.NoError(t, err)
	assert.Nil(t, writer)
	assert.Nil(t, f)
}

func TestOpenDecisionLogCreatesFile(t *testing.T) {
	path := t.TempDir() + "/decisions.jsonl"

	writer, f, err := openDecisionLog(path)
	require.NoError(t, err)
	require.NotNil(t, writer)
	require.NotNil(t, f)
	defer f.Close()
}
