package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// toAttributes converts a flat key/value variadic slice (as accepted by
// Logger and Span.AddEvent) into OpenTelemetry attributes, stringifying
// values that aren't already primitive-typed.
func toAttributes(keyvals []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, keyvals[i+1]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// tagsToAttributes converts "key=value" pacer-style tags into attributes.
func tagsToAttributes(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for _, tag := range tags {
		key, value := splitTag(tag)
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}

func splitTag(tag string) (string, string) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '=' {
			return tag[:i], tag[i+1:]
		}
	}
	return tag, ""
}
