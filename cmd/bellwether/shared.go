package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/credentials"
	"github.com/dotsetlabs/bellwether/internal/decisionlog"
	"github.com/dotsetlabs/bellwether/internal/engine"
	"github.com/dotsetlabs/bellwether/internal/historycache"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newResolver() credentials.Resolver {
	wd, _ := os.Getwd()
	return credentials.NewChainResolver(nil, wd)
}

func newHistoryStore(cfg *config.Config) (historycache.Store, error) {
	if cfg.History.Backend != "redis" {
		return historycache.NewMemoryStore(), nil
	}
	addr, err := cfg.RedisAddr()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return historycache.NewRedisStore(client, cfg.HistoryTTL()), nil
}

func openDecisionLog(path string) (*decisionlog.Writer, *os.File, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open decision log: %w", err)
	}
	return decisionlog.New(f), f, nil
}

// runEngine wires a config into one Engine.Run, the same construction check
// and baseline save/compare all share. prior, when non-nil, is handed to
// the incremental analyzer so a tool whose schema and freshness haven't
// moved since prior was taken gets skipped instead of re-run.
func runEngine(ctx context.Context, cfg *config.Config, decisionLogPath string, defs []workflow.Definition, prior *baseline.Baseline) (engine.Result, error) {
	decLog, logFile, err := openDecisionLog(decisionLogPath)
	if err != nil {
		return engine.Result{}, err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	history, err := newHistoryStore(cfg)
	if err != nil {
		return engine.Result{}, err
	}

	eng := engine.New(engine.Options{
		Config:        cfg,
		Resolver:      newResolver(),
		History:       history,
		Workflows:     defs,
		DecisionLog:   decLog,
		PriorBaseline: prior,
	})
	return eng.Run(ctx)
}
