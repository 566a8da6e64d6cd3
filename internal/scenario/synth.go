package scenario

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/oracle"
)

// maxOptionalCombinations bounds how many optional-parameter subsets
// optional_combinations ever emits, even at the highest tool priority.
const maxOptionalCombinations = 8

// Synthesizer builds the per-tool scenario catalog from a tool's schema.
// It consults an oracle.Engine for example values; it never performs I/O
// itself.
type Synthesizer struct {
	oracle oracle.Engine
}

// New returns a Synthesizer backed by the given value oracle.
func New(engine oracle.Engine) *Synthesizer {
	return &Synthesizer{oracle: engine}
}

// Synthesize builds the full scenario catalog for tool. toolPriority is the
// [0,100] score the Test Pruner computed for this tool (§4.5); it scales
// optional_combinations' subset count and sets those scenarios' priority.
// The priorities of the other categories do not depend on it.
func (s *Synthesizer) Synthesize(ctx context.Context, tool mcpproto.Tool, toolPriority int) ([]Scenario, error) {
	var schema map[string]any
	if len(tool.InputSchema) > 0 {
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("scenario: decode inputSchema for %q: %w", tool.Name, err)
		}
	}
	params := paramsFromSchema(schema)

	happy, happyArgs, err := s.happyPath(ctx, tool.Name, params)
	if err != nil {
		return nil, err
	}
	out := []Scenario{happy}
	out = append(out, s.boundary(tool.Name, params, happyArgs)...)
	out = append(out, s.enum(tool.Name, params, happyArgs)...)

	combos, err := s.optionalCombinations(ctx, tool.Name, params, happyArgs, toolPriority)
	if err != nil {
		return nil, err
	}
	out = append(out, combos...)
	out = append(out, s.errorHandling(tool.Name, params, happyArgs)...)
	out = append(out, s.security(tool.Name, params, happyArgs)...)

	semantic, err := s.semantic(ctx, tool.Name, tool.Description, params, happyArgs)
	if err != nil {
		return nil, err
	}
	out = append(out, semantic...)

	return out, nil
}

// priorityFromScore maps a [0,100] tool priority onto the closed priority
// set for scenarios the catalog rules don't pin to "critical" explicitly.
func priorityFromScore(score int) Priority {
	switch {
	case score >= 75:
		return PriorityHigh
	case score >= 50:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// isHighConfidenceOptional reports whether an optional parameter's schema
// is a plain scalar (string, integer, number or boolean) whose example
// value can join the happy-path call; nested object/array parameters are
// left out. A scalar with an enum qualifies like any other scalar.
func isHighConfidenceOptional(p param) bool {
	switch paramType(p) {
	case "string", "integer", "number", "boolean":
		return true
	default:
		return false
	}
}

func (s *Synthesizer) happyPath(ctx context.Context, toolName string, params []param) (Scenario, map[string]any, error) {
	args := map[string]any{}
	for _, p := range requiredParams(params) {
		v, err := s.oracle.ExampleFor(ctx, p.schema, p.name)
		if err != nil {
			return Scenario{}, nil, fmt.Errorf("scenario: oracle example for %q.%q: %w", toolName, p.name, err)
		}
		args[p.name] = v
	}
	for _, p := range optionalParams(params) {
		if !isHighConfidenceOptional(p) {
			continue
		}
		v, err := s.oracle.ExampleFor(ctx, p.schema, p.name)
		if err != nil {
			return Scenario{}, nil, fmt.Errorf("scenario: oracle example for %q.%q: %w", toolName, p.name, err)
		}
		args[p.name] = v
	}

	scn := Scenario{
		ToolName:    toolName,
		Category:    CategoryHappyPath,
		Description: "calls the tool with valid values for every required parameter",
		Args:        cloneArgs(args),
		Assertions: []Assertion{
			{Path: "$", Condition: ConditionNotError, Message: "happy path call must not return an error"},
		},
		Priority: PriorityCritical,
	}
	return scn, args, nil
}

func (s *Synthesizer) boundary(toolName string, params []param, happyArgs map[string]any) []Scenario {
	var out []Scenario
	for _, p := range params {
		if !hasBoundaryConstraint(p) {
			continue
		}
		for _, bv := range boundaryValues(p) {
			args := cloneArgs(happyArgs)
			args[p.name] = bv.value
			out = append(out, Scenario{
				ToolName:    toolName,
				Category:    CategoryBoundary,
				Description: fmt.Sprintf("%q at its %s bound (%v)", p.name, bv.label, bv.value),
				Args:        args,
				Assertions: []Assertion{
					{Path: "$", Condition: ConditionExists, Message: "boundary call should produce a response"},
				},
				Priority: priorityFromScoreOrCritical(p.required),
				Tags:     []string{"boundary", p.name},
			})
		}
	}
	return out
}

func priorityFromScoreOrCritical(required bool) Priority {
	if required {
		return PriorityHigh
	}
	return PriorityMedium
}

type boundaryValue struct {
	label string
	value any
}

func boundaryValues(p param) []boundaryValue {
	switch paramType(p) {
	case "integer", "number":
		return numericBoundaryValues(p)
	case "string":
		return stringBoundaryValues(p)
	default:
		return nil
	}
}

func numericBoundaryValues(p param) []boundaryValue {
	min, hasMin := numericBound(p, "minimum")
	max, hasMax := numericBound(p, "maximum")

	toNumber := func(f float64) any {
		if paramType(p) == "integer" {
			return int64(f)
		}
		return f
	}

	var out []boundaryValue
	if hasMin {
		out = append(out, boundaryValue{"minimum", toNumber(min)})
		out = append(out, boundaryValue{"below-minimum", toNumber(min - 1)})
	}
	if hasMax {
		out = append(out, boundaryValue{"maximum", toNumber(max)})
		out = append(out, boundaryValue{"above-maximum", toNumber(max + 1)})
	}
	if hasMin && hasMax && min < 0 && max > 0 {
		out = append(out, boundaryValue{"zero", toNumber(0)})
	}
	return out
}

func stringBoundaryValues(p param) []boundaryValue {
	minLen, hasMin := numericBound(p, "minLength")
	maxLen, hasMax := numericBound(p, "maxLength")

	repeat := func(n int) string {
		if n < 0 {
			n = 0
		}
		b := make([]byte, n)
		for i := range b {
			b[i] = 'a'
		}
		return string(b)
	}

	var out []boundaryValue
	if hasMin {
		out = append(out, boundaryValue{"minLength", repeat(int(minLen))})
		if minLen > 0 {
			out = append(out, boundaryValue{"below-minLength", repeat(int(minLen) - 1)})
		}
	}
	if hasMax {
		out = append(out, boundaryValue{"maxLength", repeat(int(maxLen))})
		out = append(out, boundaryValue{"above-maxLength", repeat(int(maxLen) + 1)})
	}
	return out
}

func (s *Synthesizer) enum(toolName string, params []param, happyArgs map[string]any) []Scenario {
	var out []Scenario
	for _, p := range params {
		if !hasEnum(p) {
			continue
		}
		for _, v := range enumValues(p) {
			args := cloneArgs(happyArgs)
			args[p.name] = v
			out = append(out, Scenario{
				ToolName:    toolName,
				Category:    CategoryEnum,
				Description: fmt.Sprintf("%q set to enum value %v", p.name, v),
				Args:        args,
				Assertions: []Assertion{
					{Path: "$", Condition: ConditionNotError, Message: "a declared enum value must be accepted"},
				},
				Priority: priorityFromScoreOrCritical(p.required),
				Tags:     []string{"enum", p.name},
			})
		}
	}
	return out
}

func (s *Synthesizer) optionalCombinations(ctx context.Context, toolName string, params []param, happyArgs map[string]any, toolPriority int) ([]Scenario, error) {
	optional := optionalParams(params)
	if len(optional) == 0 {
		return nil, nil
	}

	n := optionalCombinationCount(toolPriority, len(optional))
	subsets := subsetsUpTo(optional, n)

	var out []Scenario
	for _, subset := range subsets {
		args := map[string]any{}
		for k, v := range happyArgs {
			args[k] = v
		}
		// Start from only the required arguments, then layer this subset
		// of optional parameters on top, so each scenario genuinely
		// exercises a distinct optional-parameter combination.
		for _, p := range optional {
			delete(args, p.name)
		}
		labels := make([]string, 0, len(subset))
		for _, p := range subset {
			v, err := s.oracle.ExampleFor(ctx, p.schema, p.name)
			if err != nil {
				return nil, fmt.Errorf("scenario: oracle example for %q.%q: %w", toolName, p.name, err)
			}
			args[p.name] = v
			labels = append(labels, p.name)
		}
		out = append(out, Scenario{
			ToolName:    toolName,
			Category:    CategoryOptionalCombination,
			Description: fmt.Sprintf("optional parameters included: %v", labels),
			Args:        args,
			Assertions: []Assertion{
				{Path: "$", Condition: ConditionNotError, Message: "a valid optional-parameter combination must be accepted"},
			},
			Priority: priorityFromScore(toolPriority),
			Tags:     []string{"optional_combinations"},
		})
	}
	return out, nil
}

// optionalCombinationCount grows the subset count with tool priority,
// capped at both maxOptionalCombinations and the number of optional
// parameters actually available (2^n possible subsets, excluding empty).
func optionalCombinationCount(toolPriority, optionalCount int) int {
	n := 1 + toolPriority/15
	if n > maxOptionalCombinations {
		n = maxOptionalCombinations
	}
	maxPossible := (1 << optionalCount) - 1
	if n > maxPossible {
		n = maxPossible
	}
	return n
}

// subsetsUpTo returns up to n non-empty subsets of params, smallest first,
// built deterministically (singletons, then pairs, and so on) rather than
// by exhaustive power-set enumeration, which would be wasteful for tools
// with many optional parameters.
func subsetsUpTo(params []param, n int) [][]param {
	var out [][]param
	for size := 1; size <= len(params) && len(out) < n; size++ {
		combos := combinations(params, size)
		for _, c := range combos {
			if len(out) >= n {
				break
			}
			out = append(out, c)
		}
	}
	return out
}

func combinations(items []param, size int) [][]param {
	var out [][]param
	var pick func(start int, current []param)
	pick = func(start int, current []param) {
		if len(current) == size {
			combo := make([]param, size)
			copy(combo, current)
			out = append(out, combo)
			return
		}
		for i := start; i < len(items); i++ {
			pick(i+1, append(current, items[i]))
		}
	}
	pick(0, nil)
	return out
}

func (s *Synthesizer) errorHandling(toolName string, params []param, happyArgs map[string]any) []Scenario {
	var out []Scenario
	for _, p := range requiredParams(params) {
		args := cloneArgs(happyArgs)
		delete(args, p.name)
		out = append(out, Scenario{
			ToolName:    toolName,
			Category:    CategoryErrorHandling,
			Description: fmt.Sprintf("omits required parameter %q", p.name),
			Args:        args,
			Assertions: []Assertion{
				{Path: "$.isError", Condition: ConditionTruthy, Message: "a missing required parameter must be rejected"},
			},
			Priority: PriorityCritical,
			Tags:     []string{"error_handling", "omission", p.name},
		})
	}
	for _, p := range requiredParams(params) {
		wrong, ok := incompatibleValue(p)
		if !ok {
			continue
		}
		args := cloneArgs(happyArgs)
		args[p.name] = wrong
		out = append(out, Scenario{
			ToolName:    toolName,
			Category:    CategoryErrorHandling,
			Description: fmt.Sprintf("substitutes a type-incompatible value for %q", p.name),
			Args:        args,
			Assertions: []Assertion{
				{Path: "$.isError", Condition: ConditionTruthy, Message: "a type-mismatched argument must be rejected"},
			},
			Priority: PriorityHigh,
			Tags:     []string{"error_handling", "type_mismatch", p.name},
		})
	}
	return out
}

// incompatibleValue returns a JSON value of a type incompatible with p's
// declared type, for the type-wrong error_handling scenarios.
func incompatibleValue(p param) (any, bool) {
	switch paramType(p) {
	case "string":
		return 12345, true
	case "integer", "number":
		return "not-a-number", true
	case "boolean":
		return "not-a-boolean", true
	case "array":
		return "not-an-array", true
	case "object":
		return "not-an-object", true
	default:
		return nil, false
	}
}

func (s *Synthesizer) security(toolName string, params []param, happyArgs map[string]any) []Scenario {
	target, ok := firstStringParam(params)
	if !ok {
		return nil
	}

	var out []Scenario
	for _, sp := range securityPayloads {
		args := cloneArgs(happyArgs)
		args[target.name] = sp.payload
		out = append(out, Scenario{
			ToolName:         toolName,
			Category:         CategorySecurity,
			Description:      fmt.Sprintf("%s payload in %q", sp.category, target.name),
			Args:             args,
			ExpectedBehavior: sp.expected,
			Assertions: []Assertion{
				{Path: "$", Condition: ConditionExists, Message: "server must respond (reject or sanitize), not hang or crash"},
			},
			Priority: PriorityHigh,
			Tags:     []string{"security", sp.category, target.name},
		})
	}
	return out
}

func firstStringParam(params []param) (param, bool) {
	for _, p := range params {
		if paramType(p) == "string" {
			return p, true
		}
	}
	return param{}, false
}

func (s *Synthesizer) semantic(ctx context.Context, toolName, toolDescription string, params []param, happyArgs map[string]any) ([]Scenario, error) {
	var out []Scenario
	for _, p := range params {
		if !oracle.MatchesSemanticHint(p.name, toolDescription) {
			continue
		}
		v, err := s.oracle.ExampleFor(ctx, p.schema, p.name)
		if err != nil {
			return nil, fmt.Errorf("scenario: oracle example for %q.%q: %w", toolName, p.name, err)
		}
		args := cloneArgs(happyArgs)
		args[p.name] = v
		out = append(out, Scenario{
			ToolName:    toolName,
			Category:    CategorySemantic,
			Description: fmt.Sprintf("%q set to a semantically plausible value", p.name),
			Args:        args,
			Assertions: []Assertion{
				{Path: "$", Condition: ConditionNotError, Message: "a semantically valid value must be accepted"},
			},
			Priority: priorityFromScore(60),
			Tags:     []string{"semantic", p.name},
		})
	}
	return out, nil
}
