package credentials

import (
	"context"
	"os"
	"path/filepath"
)

// Source is one link in a ChainResolver's priority order.
type Source interface {
	lookup(name string) (string, bool)
}

// ChainResolver tries each source in order and returns the first hit. It
// implements the reference priority order: explicit config, a named
// environment variable, a project-local .env file, a user-home .env file,
// then a keychain stub.
type ChainResolver struct {
	sources []Source
}

// NewChainResolver builds the default chain: config values the caller
// already has in hand, then $name, then ./.env, then ~/.env, then the
// system keychain.
func NewChainResolver(configValues map[string]string, projectDir string) *ChainResolver {
	sources := []Source{
		configSource(configValues),
		envSource{},
	}
	if projectDir != "" {
		if env, err := loadDotenv(filepath.Join(projectDir, ".env")); err == nil {
			sources = append(sources, env)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if env, err := loadDotenv(filepath.Join(home, ".env")); err == nil {
			sources = append(sources, env)
		}
	}
	sources = append(sources, keychainSource{})
	return &ChainResolver{sources: sources}
}

// Resolve walks the chain in priority order and returns the first match.
// An unresolved name is not an error: callers decide whether a missing
// credential is fatal for their command.
func (c *ChainResolver) Resolve(_ context.Context, name string) (Secret, error) {
	for _, src := range c.sources {
		if v, ok := src.lookup(name); ok && v != "" {
			return NewSecret(v), nil
		}
	}
	return Secret{}, nil
}

type configSource map[string]string

func (c configSource) lookup(name string) (string, bool) {
	v, ok := c[name]
	return v, ok
}

type envSource struct{}

func (envSource) lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok
}

// keychainSource is a stub: the reference chain reserves the last slot for
// an OS keychain lookup, but wiring a real keychain binding is a platform
// concern the core has no business carrying.
type keychainSource struct{}

func (keychainSource) lookup(string) (string, bool) {
	return "", false
}
