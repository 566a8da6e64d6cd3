package scenario

import "sort"

// param describes one property of a tool's inputSchema, flattened for the
// synthesizer's purposes. Nested object/array parameters are treated as a
// single opaque string-keyed value; the synthesizer does not recurse into
// them (§4.4 works at the top-level parameter granularity).
type param struct {
	name     string
	schema   map[string]any
	required bool
}

// paramsFromSchema extracts the top-level parameters of an object schema,
// sorted by name for deterministic iteration order.
func paramsFromSchema(schema map[string]any) []param {
	if schema == nil {
		return nil
	}
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return nil
	}
	required := requiredSet(schema)

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]param, 0, len(names))
	for _, name := range names {
		propSchema, _ := props[name].(map[string]any)
		params = append(params, param{
			name:     name,
			schema:   propSchema,
			required: required[name],
		})
	}
	return params
}

func requiredSet(schema map[string]any) map[string]bool {
	out := map[string]bool{}
	raw, _ := schema["required"].([]any)
	for _, r := range raw {
		if name, ok := r.(string); ok {
			out[name] = true
		}
	}
	return out
}

func requiredParams(params []param) []param {
	out := make([]param, 0, len(params))
	for _, p := range params {
		if p.required {
			out = append(out, p)
		}
	}
	return out
}

func optionalParams(params []param) []param {
	out := make([]param, 0, len(params))
	for _, p := range params {
		if !p.required {
			out = append(out, p)
		}
	}
	return out
}

func paramType(p param) string {
	if p.schema == nil {
		return "string"
	}
	if t, ok := p.schema["type"].(string); ok {
		return t
	}
	return "string"
}

func hasEnum(p param) bool {
	values, ok := p.schema["enum"].([]any)
	return ok && len(values) > 0
}

func enumValues(p param) []any {
	values, _ := p.schema["enum"].([]any)
	return values
}

func numericBound(p param, key string) (float64, bool) {
	raw, ok := p.schema[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func hasBoundaryConstraint(p param) bool {
	switch paramType(p) {
	case "integer", "number":
		_, hasMin := numericBound(p, "minimum")
		_, hasMax := numericBound(p, "maximum")
		return hasMin || hasMax
	case "string":
		_, hasMin := numericBound(p, "minLength")
		_, hasMax := numericBound(p, "maxLength")
		return hasMin || hasMax
	default:
		return false
	}
}
