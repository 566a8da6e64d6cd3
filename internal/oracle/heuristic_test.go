package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleForPrefersSchemaDefaultThenEnumThenConst(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	v, err := eng.ExampleFor(ctx, map[string]any{"type": "string", "default": "fixed"}, "name")
	require.NoError(t, err)
	assert.Equal(t, "fixed", v)

	v, err = eng.ExampleFor(ctx, map[string]any{"type": "string", "enum": []any{"b", "a"}}, "name")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = eng.ExampleFor(ctx, map[string]any{"const": "pinned"}, "name")
	require.NoError(t, err)
	assert.Equal(t, "pinned", v)
}

func TestExampleForUsesSemanticHintFromName(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	v, err := eng.ExampleFor(ctx, map[string]any{"type": "string"}, "contact_email")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", v)

	v, err = eng.ExampleFor(ctx, map[string]any{"type": "string"}, "webhook_url")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/resource", v)
}

func TestExampleForFallsBackToTypeOnlyValue(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	v, err := eng.ExampleFor(ctx, map[string]any{"type": "integer", "minimum": 5.0}, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = eng.ExampleFor(ctx, map[string]any{"type": "boolean"}, "flag")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestAlternativesReturnsAllEnumValuesUpToN(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	alts, err := eng.Alternatives(ctx, map[string]any{"type": "string", "enum": []any{"c", "a", "b"}}, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, alts)
}

func TestAlternativesForNumericIncludesBounds(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	alts, err := eng.Alternatives(ctx, map[string]any{"type": "integer", "minimum": 1.0, "maximum": 10.0}, 10)
	require.NoError(t, err)
	assert.Contains(t, alts, int64(1))
	assert.Contains(t, alts, int64(10))
}

func TestAlternativesForBooleanReturnsBothValues(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	alts, err := eng.Alternatives(ctx, map[string]any{"type": "boolean"}, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{true, false}, alts)
}

func TestAlternativesReturnsNilForNonPositiveN(t *testing.T) {
	eng := NewHeuristicEngine()
	ctx := context.Background()

	alts, err := eng.Alternatives(ctx, map[string]any{"type": "string"}, 0)
	require.NoError(t, err)
	assert.Nil(t, alts)
}
