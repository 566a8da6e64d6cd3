// Package stepref resolves workflow/scenario argument references of the
// form "$steps[i].result.<path>" against a sequence of recorded step
// results (§4.6 step 1, §4.8 argument resolution).
package stepref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/pathsel"
)

var pattern = regexp.MustCompile(`^\$steps\[(\d+)\]\.result(.*)$`)

// StepResult is the subset of a previously executed step's outcome a
// reference can address: its unwrapped response payload.
type StepResult struct {
	Result any
}

// IsReference reports whether s has the "$steps[i].result..." shape. Args
// that aren't references are used literally.
func IsReference(s string) bool {
	return pattern.MatchString(s)
}

// Resolve evaluates ref against steps. A reference to a step index beyond
// the recorded sequence, or to a path absent from that step's result,
// fails with an error the caller converts to bwerrors.CodeUnresolvedReference
// unless the referencing step is optional.
func Resolve(ref string, steps []StepResult) (any, error) {
	m := pattern.FindStringSubmatch(ref)
	if m == nil {
		return nil, fmt.Errorf("stepref: %q is not a step reference", ref)
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("stepref: invalid step index in %q: %w", ref, err)
	}
	if idx < 0 || idx >= len(steps) {
		return nil, fmt.Errorf("stepref: step index %d out of range (%d recorded steps)", idx, len(steps))
	}

	v, ok := pathsel.Get(steps[idx].Result, m[2])
	if !ok {
		return nil, fmt.Errorf("stepref: path %q not found in step %d result", strings.TrimPrefix(m[2], "."), idx)
	}
	return v, nil
}

// ResolveArgs returns a copy of args with every string value (at any
// nesting depth, inside maps and slices) that matches IsReference
// substituted with its resolved value. Non-reference strings and all
// other value types pass through unchanged.
func ResolveArgs(args map[string]any, steps []StepResult) (map[string]any, error) {
	resolved, err := resolveValue(args, steps)
	if err != nil {
		return nil, err
	}
	out, _ := resolved.(map[string]any)
	return out, nil
}

func resolveValue(v any, steps []StepResult) (any, error) {
	switch val := v.(type) {
	case string:
		if !IsReference(val) {
			return val, nil
		}
		return Resolve(val, steps)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			resolvedChild, err := resolveValue(child, steps)
			if err != nil {
				return nil, err
			}
			out[k] = resolvedChild
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			resolvedChild, err := resolveValue(child, steps)
			if err != nil {
				return nil, err
			}
			out[i] = resolvedChild
		}
		return out, nil
	default:
		return val, nil
	}
}
