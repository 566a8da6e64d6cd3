// Package pathsel evaluates the dotted/bracketed selector syntax used
// throughout Bellwether to address a location inside an unwrapped MCP
// response payload: assertion paths (§3) and workflow argMapping step
// references (§4.8) both resolve through Get.
package pathsel

import (
	"strconv"
	"strings"
)

// Get resolves path against value. "$" alone (or the empty string) selects
// value itself; "$.a.b[0].c" walks object key "a", then key "b", then
// array index 0, then key "c". A missing key or out-of-range index is
// reported via the second return value rather than a panic or error, since
// "the path doesn't exist" is itself a meaningful assertion/resolution
// outcome, not a programmer error.
func Get(value any, path string) (any, bool) {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return value, true
	}

	cur := value
	for _, tok := range tokenize(path) {
		switch t := tok.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[t]
			if !ok {
				return nil, false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || t < 0 || t >= len(arr) {
				return nil, false
			}
			cur = arr[t]
		}
	}
	return cur, true
}

// tokenize splits "a.b[0].c" into []any{"a", "b", 0, "c"}.
func tokenize(path string) []any {
	var tokens []any
	for _, segment := range strings.Split(path, ".") {
		for len(segment) > 0 {
			idx := strings.IndexByte(segment, '[')
			if idx < 0 {
				tokens = append(tokens, segment)
				break
			}
			if idx > 0 {
				tokens = append(tokens, segment[:idx])
			}
			end := strings.IndexByte(segment, ']')
			if end < 0 {
				break
			}
			if n, err := strconv.Atoi(segment[idx+1 : end]); err == nil {
				tokens = append(tokens, n)
			}
			segment = segment[end+1:]
		}
	}
	return tokens
}
