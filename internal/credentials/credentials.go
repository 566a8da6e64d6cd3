// Package credentials resolves API secrets for MCP transports without the
// core engine ever touching the resolution chain itself: the CLI driver
// resolves a secret once and hands the opaque value to the transport's
// env/header list.
package credentials

import "context"

// Secret is an opaque resolved value. It intentionally has no String()
// method that would let it slip into a log line or error message by
// accident.
type Secret struct {
	value string
}

// NewSecret wraps a resolved value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the underlying value. Callers pass this straight into a
// transport's env or header list; it must never be logged.
func (s Secret) Reveal() string {
	return s.value
}

// Empty reports whether no secret was resolved.
func (s Secret) Empty() bool {
	return s.value == ""
}

// Resolver looks up the secret for a named credential (e.g. an MCP
// server's declared env var name, or a logical key from config).
type Resolver interface {
	Resolve(ctx context.Context, name string) (Secret, error)
}
