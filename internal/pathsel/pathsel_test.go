package pathsel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRootSelector(t *testing.T) {
	v, ok := Get(map[string]any{"a": 1}, "$")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, v)
}

func TestGetNestedObjectAndArray(t *testing.T) {
	doc := map[string]any{
		"data": map[string]any{
			"items": []any{
				map[string]any{"name": "first"},
				map[string]any{"name": "second"},
			},
		},
	}

	v, ok := Get(doc, "$.data.items[1].name")
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestGetMissingKeyReportsNotFound(t *testing.T) {
	_, ok := Get(map[string]any{"a": 1}, "$.b")
	assert.False(t, ok)
}

func TestGetOutOfRangeIndexReportsNotFound(t *testing.T) {
	_, ok := Get(map[string]any{"items": []any{1, 2}}, "$.items[5]")
	assert.False(t, ok)
}

func TestGetWithoutLeadingDollarSign(t *testing.T) {
	v, ok := Get(map[string]any{"isError": true}, "isError")
	assert.True(t, ok)
	assert.Equal(t, true, v)
}
