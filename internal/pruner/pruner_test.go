package pruner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/scenario"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

func decisionFor(t *testing.T, decision ToolPruningDecision, cat scenario.Category) CategoryDecision {
	t.Helper()
	for _, c := range decision.Categories {
		if c.Category == cat {
			return c
		}
	}
	require.Failf(t, "category not found", "%s", cat)
	return CategoryDecision{}
}

func TestHappyPathAndErrorHandlingAlwaysRun(t *testing.T) {
	p := New(Options{})
	d := p.Decide("t", ToolCharacteristics{})

	assert.True(t, decisionFor(t, d, scenario.CategoryHappyPath).Run)
	assert.True(t, decisionFor(t, d, scenario.CategoryErrorHandling).Run)
}

func TestBoundaryRequiresNumericParameterAndPriorityThreshold(t *testing.T) {
	p := New(Options{})

	low := p.Decide("t", ToolCharacteristics{HasNumericParameter: true, ConsecutiveSuccessfulRuns: 20})
	assert.False(t, decisionFor(t, low, scenario.CategoryBoundary).Run)

	high := p.Decide("t", ToolCharacteristics{HasNumericParameter: true, ErrorRate: 0.8})
	assert.True(t, decisionFor(t, high, scenario.CategoryBoundary).Run)

	noNumeric := p.Decide("t", ToolCharacteristics{ErrorRate: 0.8})
	assert.False(t, decisionFor(t, noNumeric, scenario.CategoryBoundary).Run)
}

func TestSecurityRunsOnExternalDependencyEvenAtLowPriority(t *testing.T) {
	p := New(Options{})

	d := p.Decide("t", ToolCharacteristics{
		HasStringParameter:        true,
		HasExternalDependencyHint: true,
		ConsecutiveSuccessfulRuns: 20,
	})
	assert.True(t, decisionFor(t, d, scenario.CategorySecurity).Run)
}

func TestPriorityBottomsOutAtSuccessDiscountCapAndClampsAtHundred(t *testing.T) {
	// The success discount saturates well short of zero; a long green
	// streak lowers priority but never erases it entirely.
	assert.Equal(t, 30, Priority(ToolCharacteristics{ConsecutiveSuccessfulRuns: 1000}))
	assert.Equal(t, 100, Priority(ToolCharacteristics{ErrorRate: 1.0, HoursSinceLastTest: 10000, HasExternalDependencyHint: true, ParameterCount: 50}))
}

func TestEnforceSkipCapRestoresLowestPriorityCategoriesFirst(t *testing.T) {
	p := New(Options{MaxSkippedCategories: 1})

	// A tool with no numeric/enum/optional/string parameters and low
	// priority would otherwise skip boundary, enum, optional_combinations,
	// security, and semantic - five skips against a cap of one.
	d := p.Decide("t", ToolCharacteristics{ConsecutiveSuccessfulRuns: 20})

	skipped := 0
	for _, c := range d.Categories {
		if !c.Run {
			skipped++
		}
	}
	assert.Equal(t, 1, skipped)
	// semantic is first in the restore order, so it should be the one
	// still skipped only if every other category got restored first -
	// instead the restore order takes semantic, security, optional,
	// enum, boundary in that order, restoring four of the five skips.
	assert.True(t, decisionFor(t, d, scenario.CategorySemantic).Run)
}

func TestIncrementalAnalyzerSkipsUnchangedFreshFingerprint(t *testing.T) {
	a := NewIncrementalAnalyzer(24 * time.Hour)
	now := fixedTime()

	prior := &PriorFingerprint{SchemaHash: "abc123", LastTestedAt: now.Add(-time.Hour)}
	decision := a.Decide("t", "abc123", prior, now)
	assert.True(t, decision.Skip)

	changedSchema := a.Decide("t", "different", prior, now)
	assert.False(t, changedSchema.Skip)

	stale := &PriorFingerprint{SchemaHash: "abc123", LastTestedAt: now.Add(-72 * time.Hour)}
	assert.False(t, a.Decide("t", "abc123", stale, now).Skip)

	assert.False(t, a.Decide("t", "abc123", nil, now).Skip)
}
