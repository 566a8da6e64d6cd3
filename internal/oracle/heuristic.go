package oracle

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// semanticHint names one of the name/description patterns the Scenario
// Synthesizer's "semantic" category looks for (§4.4). The heuristic Engine
// recognizes the same set so a semantic-category scenario and a happy_path
// scenario pick compatible values for the same parameter.
type semanticHint string

const (
	hintDate  semanticHint = "date"
	hintEmail semanticHint = "email"
	hintURL   semanticHint = "url"
	hintID    semanticHint = "id"
	hintPhone semanticHint = "phone"
	hintAmount semanticHint = "amount"
	hintMonth semanticHint = "month"
	hintYear  semanticHint = "year"
	hintPath  semanticHint = "path"
)

// semanticExamples gives each hint a primary value and a short list of
// alternatives. Hints are tried in hintOrder's order (most specific first:
// "email" and "url" would otherwise also match a looser "id" or "path"
// heuristic).
var semanticExamples = map[semanticHint]struct {
	primary      any
	alternatives []any
}{
	hintEmail:  {"alice@example.com", []any{"bob@example.org", "test.user+tag@example.net"}},
	hintURL:    {"https://example.com/resource", []any{"https://example.org/a/b?q=1", "http://localhost:8080/path"}},
	hintDate:   {"2024-06-15", []any{"2023-01-01", "2024-12-31"}},
	hintMonth:  {"6", []any{"1", "12"}},
	hintYear:   {"2024", []any{"2023", "2030"}},
	hintPhone:  {"+1-555-0100", []any{"+44-20-7946-0958", "555-0101"}},
	hintAmount: {42.5, []any{0.01, 1000000.0}},
	hintPath:   {"/tmp/bellwether/example.txt", []any{"/var/data/report.csv", "relative/path/file.json"}},
	hintID:     {"example-id-001", []any{"00000000-0000-4000-8000-000000000000", "record-42"}},
}

// hintOrder fixes the detection precedence: earlier entries win when a name
// or description matches more than one pattern (e.g. "email_id" matches
// both email and id; email wins).
var hintOrder = []semanticHint{hintEmail, hintURL, hintDate, hintMonth, hintYear, hintPhone, hintAmount, hintPath, hintID}

var hintKeywords = map[semanticHint][]string{
	hintEmail:  {"email", "e-mail"},
	hintURL:    {"url", "uri", "link", "href", "endpoint"},
	hintDate:   {"date", "timestamp", "datetime", "created_at", "updated_at"},
	hintMonth:  {"month"},
	hintYear:   {"year"},
	hintPhone:  {"phone", "telephone", "mobile"},
	hintAmount: {"amount", "price", "cost", "total", "balance", "quantity"},
	hintPath:   {"path", "filepath", "file_path", "directory", "dir"},
	hintID:     {"id", "identifier", "uuid", "guid", "key"},
}

func detectHint(nameHint string) (semanticHint, bool) {
	lower := strings.ToLower(nameHint)
	for _, hint := range hintOrder {
		for _, kw := range hintKeywords[hint] {
			if strings.Contains(lower, kw) {
				return hint, true
			}
		}
	}
	return "", false
}

// MatchesSemanticHint reports whether name or description matches one of
// the nine semantic patterns (date, email, url, id, phone, amount, month,
// year, path) the Scenario Synthesizer's "semantic" category looks for.
func MatchesSemanticHint(name, description string) bool {
	if _, ok := detectHint(name); ok {
		return true
	}
	_, ok := detectHint(description)
	return ok
}

// HeuristicEngine is the default check-mode Engine. It never performs I/O:
// every value comes from the schema itself (default, enum, const, type,
// minimum/maximum, minLength) or from a semantic-hint lookup keyed on the
// parameter's name. format and maxLength are not consulted.
type HeuristicEngine struct{}

// NewHeuristicEngine returns the deterministic check-mode oracle.
func NewHeuristicEngine() *HeuristicEngine {
	return &HeuristicEngine{}
}

func (HeuristicEngine) ExampleFor(_ context.Context, schema map[string]any, nameHint string) (any, error) {
	if schema == nil {
		schema = map[string]any{}
	}
	if v, ok := schemaDefault(schema); ok {
		return v, nil
	}
	if v, ok := schemaEnumFirst(schema); ok {
		return v, nil
	}
	if v, ok := schemaConstant(schema); ok {
		return v, nil
	}
	if hint, ok := detectHint(nameHint); ok {
		if v, ok := typedHintValue(schema, hint); ok {
			return v, nil
		}
	}
	return valueForType(schema), nil
}

func (h HeuristicEngine) Alternatives(ctx context.Context, schema map[string]any, n int) ([]any, error) {
	if n <= 0 {
		return nil, nil
	}
	if schema == nil {
		schema = map[string]any{}
	}
	if values, ok := schemaEnumAll(schema); ok {
		if len(values) > n {
			values = values[:n]
		}
		return values, nil
	}

	primary, err := h.ExampleFor(ctx, schema, "")
	if err != nil {
		return nil, err
	}
	out := []any{primary}

	kind := kindOf(schema)
	switch kind {
	case "boolean":
		out = appendUnique(out, true, false)
	case "integer", "number":
		min, hasMin := numericBound(schema, "minimum")
		max, hasMax := numericBound(schema, "maximum")
		candidates := []float64{0, 1, -1, 100}
		if hasMin {
			candidates = append(candidates, min)
		}
		if hasMax {
			candidates = append(candidates, max)
		}
		for _, c := range candidates {
			v := any(c)
			if kind == "integer" {
				v = int64(c)
			}
			out = appendUnique(out, v)
		}
	case "string":
		out = appendUnique(out, "alpha", "beta", "gamma-value")
	default:
		out = appendUnique(out, valueForType(map[string]any{"type": "string"}))
	}

	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func appendUnique(values []any, candidates ...any) []any {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[fmt.Sprintf("%v", v)] = struct{}{}
	}
	for _, c := range candidates {
		key := fmt.Sprintf("%v", c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, c)
	}
	return values
}

func schemaDefault(schema map[string]any) (any, bool) {
	v, ok := schema["default"]
	return v, ok
}

func schemaConstant(schema map[string]any) (any, bool) {
	v, ok := schema["const"]
	return v, ok
}

func schemaEnumFirst(schema map[string]any) (any, bool) {
	values, ok := schemaEnumAll(schema)
	if !ok || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

func schemaEnumAll(schema map[string]any) ([]any, bool) {
	raw, ok := schema["enum"]
	if !ok {
		return nil, false
	}
	values, ok := raw.([]any)
	if !ok || len(values) == 0 {
		return nil, false
	}
	sorted := make([]any, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return fmt.Sprintf("%v", sorted[i]) < fmt.Sprintf("%v", sorted[j])
	})
	return sorted, true
}

func kindOf(schema map[string]any) string {
	t, _ := schema["type"].(string)
	if t != "" {
		return t
	}
	if _, ok := schema["properties"]; ok {
		return "object"
	}
	if _, ok := schema["items"]; ok {
		return "array"
	}
	return "string"
}

func numericBound(schema map[string]any, key string) (float64, bool) {
	raw, ok := schema[key]
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

func typedHintValue(schema map[string]any, hint semanticHint) (any, bool) {
	entry, ok := semanticExamples[hint]
	if !ok {
		return nil, false
	}
	if kindOf(schema) == "integer" {
		if hint == hintYear || hint == hintMonth {
			return intFromAny(entry.primary), true
		}
	}
	return entry.primary, true
}

func intFromAny(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return v
	}
	return n
}

// valueForType falls back to a plain value for the JSON type alone, with no
// semantic hint available.
func valueForType(schema map[string]any) any {
	switch kindOf(schema) {
	case "string":
		if minLen, ok := numericBound(schema, "minLength"); ok && minLen > 0 {
			return strings.Repeat("a", int(minLen))
		}
		return "example"
	case "integer":
		if min, ok := numericBound(schema, "minimum"); ok {
			return int64(min)
		}
		return int64(1)
	case "number":
		if min, ok := numericBound(schema, "minimum"); ok {
			return min
		}
		return 1.0
	case "boolean":
		return true
	case "array":
		items, _ := schema["items"].(map[string]any)
		return []any{valueForType(items)}
	case "object":
		return map[string]any{}
	case "null":
		return nil
	default:
		return "example"
	}
}
