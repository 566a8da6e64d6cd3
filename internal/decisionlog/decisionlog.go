// Package decisionlog writes an auditable JSON-lines record of every
// pruning decision and scenario disposition made during a run, so a
// re-run's choices can be inspected outside the baseline document itself
// (one of the run's three process-wide pieces of global state, alongside
// the Scheduler's metrics counters and the Session's request-id counter).
package decisionlog

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dotsetlabs/bellwether/internal/pruner"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
)

// timeNow is a test seam.
var timeNow = time.Now

// Kind distinguishes the three record shapes this log carries.
type Kind string

const (
	KindPruningDecision     Kind = "pruning_decision"
	KindScenarioDisposition Kind = "scenario_disposition"
	KindIncrementalSkip     Kind = "incremental_skip"
)

// Record is one JSON-lines entry. Only the fields relevant to Kind are
// populated; the rest are left at their zero value and omitted.
type Record struct {
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// ToolName is populated for every Kind; SkippedCats and SkipReasons
	// only when Kind == KindPruningDecision.
	ToolName      string   `json:"toolName,omitempty"`
	SkippedCats   []string `json:"skippedCategories,omitempty"`
	SkipReasons   []string `json:"skipReasons,omitempty"`

	// Populated when Kind == KindIncrementalSkip.
	Reason string `json:"reason,omitempty"`

	// Populated when Kind == KindScenarioDisposition.
	ScenarioCategory string `json:"scenarioCategory,omitempty"`
	ScenarioDesc     string `json:"scenarioDescription,omitempty"`
	Passed           *bool  `json:"passed,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Writer appends Records to an underlying io.Writer, one JSON object per
// line. Safe for concurrent use by multiple Scheduler workers.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	enc *json.Encoder
}

// New wraps out. The caller owns closing out; Writer never closes it.
func New(out io.Writer) *Writer {
	return &Writer{out: out, enc: json.NewEncoder(out)}
}

func (w *Writer) write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = timeNow()
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("decisionlog: encode record: %w", err)
	}
	return nil
}

// PruningDecision appends one line per tool pruning decision, recording
// which categories were skipped and why.
func (w *Writer) PruningDecision(d pruner.ToolPruningDecision) error {
	var skipped, reasons []string
	for _, c := range d.Categories {
		if !c.Run {
			skipped = append(skipped, string(c.Category))
			reasons = append(reasons, c.Reason)
		}
	}
	return w.write(Record{
		Kind:        KindPruningDecision,
		ToolName:    d.ToolName,
		SkippedCats: skipped,
		SkipReasons: reasons,
	})
}

// IncrementalSkip appends one line recording that toolName's scenario
// catalog was skipped this run because its schema and freshness matched
// the prior baseline, and why.
func (w *Writer) IncrementalSkip(toolName, reason string) error {
	return w.write(Record{
		Kind:     KindIncrementalSkip,
		ToolName: toolName,
		Reason:   reason,
	})
}

// ScenarioDisposition appends one line per scenario outcome.
func (w *Writer) ScenarioDisposition(toolName string, result scheduler.ScenarioResult) error {
	passed := result.Passed
	rec := Record{
		Kind:             KindScenarioDisposition,
		ToolName:         toolName,
		ScenarioCategory: string(result.Scenario.Category),
		ScenarioDesc:     result.Scenario.Description,
		Passed:           &passed,
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	return w.write(rec)
}
