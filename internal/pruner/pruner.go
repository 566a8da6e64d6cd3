// Package pruner decides, per tool, which scenario categories the
// Scheduler actually runs (§4.5). It mirrors the teacher's policy.Engine
// shape: compute a priority score once per turn, then derive a filtered
// set of allowed categories from it, the same "decide once up front,
// annotate with reasons" pattern as policy.Decision.
package pruner

import (
	"time"

	"github.com/dotsetlabs/bellwether/internal/scenario"
)

// basePriority is the starting point before any adjustment is applied.
const basePriority = 50

// ToolCharacteristics summarizes the shape of one tool's inputSchema and
// its prior run history, the raw material the priority score and category
// decisions are computed from.
type ToolCharacteristics struct {
	ParameterCount            int
	RequiredCount             int
	HasNumericParameter       bool
	HasEnumParameter          bool
	HasOptionalParameter      bool
	HasStringParameter        bool
	MaxNestingDepth           int
	HasExternalDependencyHint bool
	ErrorRate                 float64
	HoursSinceLastTest        float64
	ConsecutiveSuccessfulRuns int
}

// CategoryDecision records whether one scenario category runs for a tool
// and why, so a decision log entry can explain the run.
type CategoryDecision struct {
	Category scenario.Category
	Run      bool
	Reason   string
}

// ToolPruningDecision is the Pruner's complete output for one tool.
type ToolPruningDecision struct {
	ToolName   string
	Priority   int
	Categories []CategoryDecision
}

// RunCategories returns the categories this decision allows to run.
func (d ToolPruningDecision) RunCategories() []scenario.Category {
	out := make([]scenario.Category, 0, len(d.Categories))
	for _, c := range d.Categories {
		if c.Run {
			out = append(out, c.Category)
		}
	}
	return out
}

// Options tunes the Pruner's per-run policy.
type Options struct {
	// MaxSkippedCategories caps how many categories may be skipped per
	// tool before the lowest-priority skipped ones are re-enabled (§4.5
	// step 4). Zero means no cap is enforced.
	MaxSkippedCategories int
}

// categoryRestoreOrder is the order in which the skip cap forces skipped
// categories back on: earlier entries are re-enabled first.
var categoryRestoreOrder = []scenario.Category{
	scenario.CategorySemantic,
	scenario.CategorySecurity,
	scenario.CategoryOptionalCombination,
	scenario.CategoryEnum,
	scenario.CategoryBoundary,
}

// Pruner computes a ToolPruningDecision for each discovered tool.
type Pruner struct {
	opts Options
}

// New returns a Pruner configured with opts.
func New(opts Options) *Pruner {
	return &Pruner{opts: opts}
}

// Decide computes the priority score and category allowlist for one tool.
func (p *Pruner) Decide(toolName string, tc ToolCharacteristics) ToolPruningDecision {
	priority := Priority(tc)

	categories := []CategoryDecision{
		{scenario.CategoryHappyPath, true, "always runs"},
		{scenario.CategoryErrorHandling, true, "always runs"},
		decideBoundary(tc, priority),
		decideEnum(tc),
		decideOptionalCombinations(tc, priority),
		decideSecurity(tc, priority),
		decideSemantic(priority),
	}

	categories = enforceSkipCap(categories, p.opts.MaxSkippedCategories)

	return ToolPruningDecision{
		ToolName:   toolName,
		Priority:   priority,
		Categories: categories,
	}
}

// Priority assigns a tool priority in [0,100] per §4.5 step 2: base 50,
// increased by error rate, external dependency, schema complexity, and
// staleness, decreased by a run of consecutive successes.
func Priority(tc ToolCharacteristics) int {
	score := float64(basePriority)

	score += tc.ErrorRate * 30
	if tc.HasExternalDependencyHint {
		score += 10
	}
	score += complexityBonus(tc)
	score += stalenessBonus(tc.HoursSinceLastTest)
	score -= successDiscount(tc.ConsecutiveSuccessfulRuns)

	return clamp(int(score), 0, 100)
}

// complexityBonus rewards tools with more surface area to probe: more
// parameters, deeper nesting, a mix of constraint kinds.
func complexityBonus(tc ToolCharacteristics) float64 {
	bonus := float64(tc.ParameterCount) * 1.5
	bonus += float64(tc.MaxNestingDepth) * 3
	if tc.HasNumericParameter {
		bonus += 2
	}
	if tc.HasEnumParameter {
		bonus += 2
	}
	if bonus > 25 {
		bonus = 25
	}
	return bonus
}

// stalenessBonus grows with time since the tool was last exercised,
// saturating so a tool untested for months doesn't dominate every run.
func stalenessBonus(hoursSinceLastTest float64) float64 {
	if hoursSinceLastTest <= 0 {
		return 0
	}
	bonus := hoursSinceLastTest / 12
	if bonus > 15 {
		bonus = 15
	}
	return bonus
}

// successDiscount reduces priority as consecutive clean runs accumulate,
// saturating so a long green streak never zeroes a tool out entirely.
func successDiscount(consecutiveSuccesses int) float64 {
	discount := float64(consecutiveSuccesses) * 2
	if discount > 20 {
		discount = 20
	}
	return discount
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func decideBoundary(tc ToolCharacteristics, priority int) CategoryDecision {
	if tc.HasNumericParameter && priority >= 40 {
		return CategoryDecision{scenario.CategoryBoundary, true, "numeric parameter present and priority >= 40"}
	}
	return CategoryDecision{scenario.CategoryBoundary, false, "no numeric parameter or priority below 40"}
}

func decideEnum(tc ToolCharacteristics) CategoryDecision {
	if tc.HasEnumParameter {
		return CategoryDecision{scenario.CategoryEnum, true, "enum parameter present"}
	}
	return CategoryDecision{scenario.CategoryEnum, false, "no enum parameter"}
}

func decideOptionalCombinations(tc ToolCharacteristics, priority int) CategoryDecision {
	if tc.HasOptionalParameter && priority >= 60 {
		return CategoryDecision{scenario.CategoryOptionalCombination, true, "optional parameter present and priority >= 60"}
	}
	return CategoryDecision{scenario.CategoryOptionalCombination, false, "no optional parameter or priority below 60"}
}

func decideSecurity(tc ToolCharacteristics, priority int) CategoryDecision {
	if tc.HasStringParameter && (priority >= 30 || tc.HasExternalDependencyHint) {
		return CategoryDecision{scenario.CategorySecurity, true, "string parameter present and (priority >= 30 or external dependency)"}
	}
	return CategoryDecision{scenario.CategorySecurity, false, "no string parameter, or priority below 30 with no external dependency"}
}

func decideSemantic(priority int) CategoryDecision {
	if priority >= 50 {
		return CategoryDecision{scenario.CategorySemantic, true, "priority >= 50"}
	}
	return CategoryDecision{scenario.CategorySemantic, false, "priority below 50"}
}

// enforceSkipCap re-enables the lowest-priority skipped categories when
// more than max categories were skipped (§4.5 step 4). happy_path and
// error_handling never appear skipped, so they're never candidates here.
func enforceSkipCap(categories []CategoryDecision, max int) []CategoryDecision {
	if max <= 0 {
		return categories
	}
	skipped := 0
	for _, c := range categories {
		if !c.Run {
			skipped++
		}
	}
	if skipped <= max {
		return categories
	}

	toRestore := skipped - max
	for _, restoreCat := range categoryRestoreOrder {
		if toRestore <= 0 {
			break
		}
		for i := range categories {
			if categories[i].Category == restoreCat && !categories[i].Run {
				categories[i].Run = true
				categories[i].Reason += " (restored: skip cap exceeded)"
				toRestore--
				break
			}
		}
	}
	return categories
}
