package scheduler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/pathsel"
	"github.com/dotsetlabs/bellwether/internal/scenario"
)

// evaluateAssertions checks every assertion against value, the scenario's
// unwrapped response, and isError, the envelope's error flag (kept
// separate from value since a successful payload may have no "isError"
// key at all to select on).
func evaluateAssertions(assertions []scenario.Assertion, value any, isError bool) []AssertionResult {
	out := make([]AssertionResult, 0, len(assertions))
	for _, a := range assertions {
		out = append(out, evaluateAssertion(a, value, isError))
	}
	return out
}

func evaluateAssertion(a scenario.Assertion, value any, isError bool) AssertionResult {
	got, found := pathsel.Get(value, a.Path)

	switch a.Condition {
	case scenario.ConditionExists:
		return assertionResult(a, found)
	case scenario.ConditionEquals:
		return assertionResult(a, found && reflect.DeepEqual(got, a.Value))
	case scenario.ConditionContains:
		return assertionResult(a, found && containsValue(got, a.Value))
	case scenario.ConditionTruthy:
		return assertionResult(a, found && truthy(got))
	case scenario.ConditionType:
		return assertionResult(a, found && typeMatches(got, a.Value))
	case scenario.ConditionNotError:
		return assertionResult(a, !isError)
	default:
		return AssertionResult{Assertion: a, Passed: false, Message: fmt.Sprintf("unknown assertion condition %q", a.Condition)}
	}
}

func assertionResult(a scenario.Assertion, passed bool) AssertionResult {
	message := a.Message
	if message == "" {
		message = defaultMessage(a, passed)
	}
	return AssertionResult{Assertion: a, Passed: passed, Message: message}
}

func defaultMessage(a scenario.Assertion, passed bool) string {
	verb := "failed"
	if passed {
		verb = "passed"
	}
	return fmt.Sprintf("%s %s at %s", a.Condition, verb, a.Path)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

func containsValue(got, want any) bool {
	switch haystack := got.(type) {
	case string:
		needle, ok := want.(string)
		return ok && strings.Contains(haystack, needle)
	case []any:
		for _, item := range haystack {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := want.(string)
		if !ok {
			return false
		}
		_, ok = haystack[key]
		return ok
	default:
		return false
	}
}

func typeMatches(got any, want any) bool {
	wantType, ok := want.(string)
	if !ok {
		return false
	}
	switch got.(type) {
	case nil:
		return wantType == "null"
	case bool:
		return wantType == "boolean"
	case float64, int, int64:
		return wantType == "number"
	case string:
		return wantType == "string"
	case []any:
		return wantType == "array"
	case map[string]any:
		return wantType == "object"
	default:
		return false
	}
}

// EvaluateAssertions is the exported form of evaluateAssertions, for reuse
// by any step executor outside the Scheduler (the Workflow Runner runs its
// own steps but evaluates assertions against them the same way).
func EvaluateAssertions(assertions []scenario.Assertion, value any, isError bool) []AssertionResult {
	return evaluateAssertions(assertions, value, isError)
}

// aggregatePassFail rolls assertion results up into a scenario pass/fail
// verdict per §4.6 step 4: all assertions must pass for non-error
// categories; error_handling passes if the call errored, or if any
// assertion aimed at the error object succeeded.
func aggregatePassFail(category scenario.Category, isError bool, results []AssertionResult) bool {
	if category == scenario.CategoryErrorHandling {
		if isError {
			return true
		}
		for _, r := range results {
			if r.Passed {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
