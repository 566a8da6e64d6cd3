// Package engine is the top-level facade wiring every collaborator
// together for one run: Config resolves connection and policy settings,
// Credentials resolves secrets, Transport+Session speak MCP, the Scenario
// Synthesizer and Test Pruner build and filter the catalog, the Scheduler
// executes it, the State Tracker and Workflow Runner layer on dataflow
// checks, and the Baseline Builder/Differ turn the results into a
// comparable document. The CLI driver is the only caller of this package.
package engine

import (
	"time"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/credentials"
	"github.com/dotsetlabs/bellwether/internal/decisionlog"
	"github.com/dotsetlabs/bellwether/internal/historycache"
	"github.com/dotsetlabs/bellwether/internal/oracle"
	"github.com/dotsetlabs/bellwether/internal/pruner"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/statetracker"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// timeNow is a test seam, following the pattern used throughout the engine
// packages.
var timeNow = time.Now

// Options configures one Engine instance.
type Options struct {
	Config      *config.Config
	Resolver    credentials.Resolver
	History     historycache.Store
	Workflows   []workflow.Definition
	DecisionLog *decisionlog.Writer

	// PriorBaseline, when set, is consulted by the incremental analyzer:
	// a tool whose current schema hash matches its entry here and whose
	// fingerprint is still fresh is skipped outright, with that entry's
	// Fingerprint copied forward verbatim into the new Baseline.
	PriorBaseline *baseline.Baseline
}

func (o Options) withDefaults() Options {
	if o.Resolver == nil {
		o.Resolver = credentials.NewChainResolver(nil, "")
	}
	if o.History == nil {
		o.History = historycache.NewMemoryStore()
	}
	return o
}

// Engine runs one or more operations (check, baseline build/diff,
// discover) against a single configured MCP server.
type Engine struct {
	opts        Options
	synth       *scenario.Synthesizer
	pruner      *pruner.Pruner
	incremental *pruner.IncrementalAnalyzer
	classify    func(name, description string) statetracker.Classification
}

// New returns an Engine configured with opts. The Value Oracle is always
// the deterministic heuristic engine; the core never calls an LLM.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:        opts,
		synth:       scenario.New(oracle.NewHeuristicEngine()),
		pruner:      pruner.New(opts.Config.PrunerOptions()),
		incremental: pruner.NewIncrementalAnalyzer(opts.Config.IncrementalMaxAge()),
		classify: func(name, description string) statetracker.Classification {
			return statetracker.Classify(name, description)
		},
	}
}
