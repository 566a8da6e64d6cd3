package engine

import (
	"encoding/json"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/pruner"
)

// characteristicsFromTool derives the Test Pruner's ToolCharacteristics
// directly from a tool's declared inputSchema, without needing the
// Scenario Synthesizer's private parameter model. hoursSinceLastTest and
// errorRate carry forward from the previous run's history when available.
func characteristicsFromTool(tool mcpproto.Tool, errorRate, hoursSinceLastTest float64) pruner.ToolCharacteristics {
	var schema map[string]any
	_ = json.Unmarshal(tool.InputSchema, &schema)

	tc := pruner.ToolCharacteristics{
		ErrorRate:          errorRate,
		HoursSinceLastTest: hoursSinceLastTest,
	}
	if tool.Annotations != nil {
		tc.HasExternalDependencyHint = tool.Annotations.OpenWorldHint
	}

	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return tc
	}
	required := map[string]bool{}
	if raw, ok := schema["required"].([]any); ok {
		for _, r := range raw {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	tc.ParameterCount = len(props)
	for name, raw := range props {
		propSchema, _ := raw.(map[string]any)
		if required[name] {
			tc.RequiredCount++
		} else {
			tc.HasOptionalParameter = true
		}
		depth := nestingDepth(propSchema, 0)
		if depth > tc.MaxNestingDepth {
			tc.MaxNestingDepth = depth
		}
		switch propType(propSchema) {
		case "number", "integer":
			tc.HasNumericParameter = true
		case "string":
			tc.HasStringParameter = true
		}
		if _, ok := propSchema["enum"]; ok {
			tc.HasEnumParameter = true
		}
	}
	return tc
}

func propType(schema map[string]any) string {
	if schema == nil {
		return ""
	}
	t, _ := schema["type"].(string)
	return t
}

func nestingDepth(schema map[string]any, depth int) int {
	if schema == nil {
		return depth
	}
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		items, _ := schema["items"].(map[string]any)
		if items == nil {
			return depth
		}
		return nestingDepth(items, depth+1)
	}
	max := depth
	for _, raw := range props {
		child, _ := raw.(map[string]any)
		if d := nestingDepth(child, depth+1); d > max {
			max = d
		}
	}
	return max
}
