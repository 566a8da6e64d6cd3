// Package oracle supplies example values for a JSON-Schema-shaped parameter.
// The Scenario Synthesizer asks an Oracle for one representative value per
// parameter (happy_path, semantic) and for a handful of distinct alternatives
// (optional_combinations). Bellwether's check mode uses the deterministic
// heuristic Engine in this package; an explore mode can substitute an
// LLM-backed implementation behind the same interface without the caller
// knowing the difference.
package oracle

import "context"

// Engine yields example values for a parameter schema. Implementations must
// be fast and side-effect free: the synthesizer calls ExampleFor once per
// parameter per tool and Alternatives a handful of times, and neither call
// should block on network I/O in the default (check-mode) engine.
type Engine interface {
	// ExampleFor returns one plausible value for schema, using nameHint (the
	// parameter's name, and for semantic-category scenarios the parameter's
	// description as well) to pick among semantic heuristics.
	ExampleFor(ctx context.Context, schema map[string]any, nameHint string) (any, error)

	// Alternatives returns up to n example values for schema, distinct from
	// each other. The list may include ExampleFor's result (HeuristicEngine
	// puts it first). Fewer than n values is not an error if the schema's value
	// space is smaller than n (e.g. a boolean or a short enum).
	Alternatives(ctx context.Context, schema map[string]any, n int) ([]any, error)
}
