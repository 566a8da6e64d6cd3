package scenario

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/oracle"
)

func toolWithSchema(t *testing.T, name, description string, schema map[string]any) mcpproto.Tool {
	t.Helper()
	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	return mcpproto.Tool{Name: name, Description: description, InputSchema: raw}
}

func byCategory(scenarios []Scenario, cat Category) []Scenario {
	var out []Scenario
	for _, s := range scenarios {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

func TestSynthesizeAlwaysEmitsAtLeastOneHappyPathScenario(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())
	tool := toolWithSchema(t, "no_params", "", map[string]any{"type": "object", "properties": map[string]any{}})

	scenarios, err := syn.Synthesize(context.Background(), tool, 50)
	require.NoError(t, err)

	happy := byCategory(scenarios, CategoryHappyPath)
	require.Len(t, happy, 1)
	assert.Equal(t, PriorityCritical, happy[0].Priority)
}

func TestSynthesizeBoundaryOnlyWhenConstraintsPresent(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())
	tool := toolWithSchema(t, "bounded", "", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{"type": "integer", "minimum": 1.0, "maximum": 10.0},
			"label": map[string]any{"type": "string"},
		},
		"required": []any{"count", "label"},
	})

	scenarios, err := syn.Synthesize(context.Background(), tool, 50)
	require.NoError(t, err)

	boundary := byCategory(scenarios, CategoryBoundary)
	assert.NotEmpty(t, boundary)
	for _, s := range boundary {
		assert.Contains(t, s.Args, "count")
	}
}

func TestSynthesizeEnumProducesOneScenarioPerValue(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())
	tool := toolWithSchema(t, "enum_tool", "", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mode": map[string]any{"type": "string", "enum": []any{"a", "b", "c"}},
		},
		"required": []any{"mode"},
	})

	scenarios, err := syn.Synthesize(context.Background(), tool, 50)
	require.NoError(t, err)

	enumScenarios := byCategory(scenarios, CategoryEnum)
	assert.Len(t, enumScenarios, 3)
}

func TestSynthesizeErrorHandlingOmitsEachRequiredParameter(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())
	tool := toolWithSchema(t, "two_required", "", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
			"b": map[string]any{"type": "integer"},
		},
		"required": []any{"a", "b"},
	})

	scenarios, err := syn.Synthesize(context.Background(), tool, 50)
	require.NoError(t, err)

	errScenarios := byCategory(scenarios, CategoryErrorHandling)
	omissionCount := 0
	for _, s := range errScenarios {
		for _, tag := range s.Tags {
			if tag == "omission" {
				omissionCount++
			}
		}
	}
	assert.Equal(t, 2, omissionCount)
	for _, s := range errScenarios {
		require.Len(t, s.Assertions, 1)
		assert.Equal(t, ConditionTruthy, s.Assertions[0].Condition)
	}
}

func TestSynthesizeSecurityRequiresAStringParameter(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())

	withString := toolWithSchema(t, "has_string", "", map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []any{"query"},
	})
	scenarios, err := syn.Synthesize(context.Background(), withString, 50)
	require.NoError(t, err)
	assert.Len(t, byCategory(scenarios, CategorySecurity), len(securityPayloads))

	withoutString := toolWithSchema(t, "no_string", "", map[string]any{
		"type":       "object",
		"properties": map[string]any{"count": map[string]any{"type": "integer"}},
		"required":   []any{"count"},
	})
	scenarios, err = syn.Synthesize(context.Background(), withoutString, 50)
	require.NoError(t, err)
	assert.Empty(t, byCategory(scenarios, CategorySecurity))
}

func TestSynthesizeSemanticMatchesParameterNamePattern(t *testing.T) {
	syn := New(oracle.NewHeuristicEngine())
	tool := toolWithSchema(t, "emailer", "", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient_email": map[string]any{"type": "string"},
			"subject":         map[string]any{"type": "string"},
		},
		"required": []any{"recipient_email", "subject"},
	})

	scenarios, err := syn.Synthesize(context.Background(), tool, 50)
	require.NoError(t, err)

	semantic := byCategory(scenarios, CategorySemantic)
	require.NotEmpty(t, semantic)
	assert.Equal(t, "alice@example.com", semantic[0].Args["recipient_email"])
}

func TestOptionalCombinationCountGrowsWithPriorityAndCapsAtPossibleSubsets(t *testing.T) {
	assert.Equal(t, 1, optionalCombinationCount(0, 5))
	assert.Greater(t, optionalCombinationCount(90, 5), optionalCombinationCount(0, 5))
	assert.LessOrEqual(t, optionalCombinationCount(100, 2), 3)
}
