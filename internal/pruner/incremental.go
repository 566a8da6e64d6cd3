package pruner

import "time"

// PriorFingerprint is the subset of a tool's previous fingerprint the
// incremental analyzer consults: enough to decide "has this tool's schema
// or freshness changed" without the Pruner importing the Baseline package.
type PriorFingerprint struct {
	SchemaHash   string
	LastTestedAt time.Time
}

// IncrementalDecision is the analyzer's verdict for one tool.
type IncrementalDecision struct {
	ToolName string
	Skip     bool
	Reason   string
}

// IncrementalAnalyzer filters at run-start: a tool whose schemaHash is
// unchanged from the prior baseline and whose lastTestedAt is within
// MaxAge is skipped outright, with its prior fingerprint copied forward
// verbatim by the caller.
type IncrementalAnalyzer struct {
	// MaxAge is the configurable maximum staleness a prior fingerprint may
	// have and still count as fresh enough to skip re-testing.
	MaxAge time.Duration
}

// NewIncrementalAnalyzer returns an analyzer using maxAge as the freshness
// window.
func NewIncrementalAnalyzer(maxAge time.Duration) *IncrementalAnalyzer {
	return &IncrementalAnalyzer{MaxAge: maxAge}
}

// Decide reports whether toolName can be skipped this run given its
// current schemaHash and an optional prior fingerprint. A nil prior (never
// tested before, or no baseline loaded) always runs.
func (a *IncrementalAnalyzer) Decide(toolName, currentSchemaHash string, prior *PriorFingerprint, now time.Time) IncrementalDecision {
	if prior == nil {
		return IncrementalDecision{ToolName: toolName, Skip: false, Reason: "no prior fingerprint"}
	}
	if prior.SchemaHash != currentSchemaHash {
		return IncrementalDecision{ToolName: toolName, Skip: false, Reason: "schemaHash changed since prior baseline"}
	}
	age := now.Sub(prior.LastTestedAt)
	if age > a.MaxAge {
		return IncrementalDecision{ToolName: toolName, Skip: false, Reason: "prior fingerprint older than max age"}
	}
	return IncrementalDecision{ToolName: toolName, Skip: true, Reason: "schemaHash unchanged and fingerprint still fresh"}
}
