// Package baseline aggregates one run's discovered capabilities, per-tool
// fingerprints, and workflow signatures into a versioned, content-hashed
// document (§4.9 Build).
package baseline

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/schema"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// FormatVersion is the baseline document's own monotone format version,
// independent of the content it describes. A major-version bump signals a
// document shape change the Differ must gate on before comparing content.
const FormatVersion = "1.0"

// timeNow is a test seam, following the pattern used throughout the
// scheduling packages.
var timeNow = time.Now

// Metadata describes the run that produced a Baseline.
type Metadata struct {
	Mode          string    `json:"mode"`
	GeneratedAt   time.Time `json:"generatedAt"`
	ServerCommand string    `json:"serverCommand"`
	DurationMs    int64     `json:"durationMs"`
	Cancelled     bool      `json:"cancelled"`

	// RunID uniquely identifies the run that produced this Baseline,
	// independent of its content: two runs against an unchanged server
	// get different RunIDs even when their Hash matches.
	RunID string `json:"runId"`
}

// Server identifies the MCP server a Baseline was taken against.
type Server struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocolVersion"`
	Capabilities    []string `json:"capabilities"`
}

// Capabilities is the raw discovered tool list, independent of any
// fingerprinting done over it.
type Capabilities struct {
	Tools []mcpproto.Tool `json:"tools"`
}

// Fingerprint is one tool's behavioral summary (§3 "Fingerprint").
type Fingerprint struct {
	Name                  string    `json:"name"`
	Description           string    `json:"description"`
	SchemaHash            string    `json:"schemaHash"`
	Assertions            []string  `json:"assertions"`
	SecurityNotes         []string  `json:"securityNotes"`
	Limitations           []string  `json:"limitations"`
	LastTestedAt          time.Time `json:"lastTestedAt"`
	InputSchemaHashAtTest string    `json:"inputSchemaHashAtTest"`
	ErrorPatterns         []string  `json:"errorPatterns"`
}

// Summary rolls up run-level counts for quick display without re-walking
// the whole document.
type Summary struct {
	ToolCount          int `json:"toolCount"`
	ScenarioCount      int `json:"scenarioCount"`
	PassedCount        int `json:"passedCount"`
	FailedCount        int `json:"failedCount"`
	WorkflowCount      int `json:"workflowCount"`
	WorkflowFailCount  int `json:"workflowFailCount"`
	DependencyEdgeCount int `json:"dependencyEdgeCount"`
}

// Baseline is the complete, immutable document one run produces (§3
// "Baseline"). Once Build returns a Baseline, nothing mutates it further.
type Baseline struct {
	Version            string               `json:"version"`
	Metadata           Metadata             `json:"metadata"`
	Server             Server               `json:"server"`
	Capabilities       Capabilities         `json:"capabilities"`
	ToolProfiles       []Fingerprint        `json:"toolProfiles"`
	WorkflowSignatures []workflow.Signature `json:"workflowSignatures"`
	Summary            Summary              `json:"summary"`
	Hash               string               `json:"hash"`
}

// Input is everything a single run accumulates for the Builder to
// assemble into a Baseline.
type Input struct {
	Mode               string
	ServerCommand      string
	Duration           time.Duration
	Server             Server
	Tools              []mcpproto.Tool
	ToolProfiles       []Fingerprint
	WorkflowSignatures []workflow.Signature
	ScenarioCount      int
	PassedCount        int
	FailedCount        int
	DependencyEdgeCount int
	Cancelled          bool
}

// Build assembles Input into an immutable, hashed Baseline: profiles and
// the capability tool list are sorted by name, the format version is
// stamped, and the content hash is computed last, over every field except
// itself and the run-scoped values computeHash elides.
func Build(input Input) Baseline {
	tools := append([]mcpproto.Tool(nil), input.Tools...)
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	profiles := append([]Fingerprint(nil), input.ToolProfiles...)
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	signatures := append([]workflow.Signature(nil), input.WorkflowSignatures...)
	sort.Slice(signatures, func(i, j int) bool { return signatures[i].Name < signatures[j].Name })

	workflowFails := 0
	for _, s := range signatures {
		if !s.Succeeded {
			workflowFails++
		}
	}

	b := Baseline{
		Version: FormatVersion,
		Metadata: Metadata{
			Mode:          input.Mode,
			GeneratedAt:   timeNow(),
			ServerCommand: input.ServerCommand,
			DurationMs:    input.Duration.Milliseconds(),
			Cancelled:     input.Cancelled,
			RunID:         uuid.New().String(),
		},
		Server:             input.Server,
		Capabilities:       Capabilities{Tools: tools},
		ToolProfiles:       profiles,
		WorkflowSignatures: signatures,
		Summary: Summary{
			ToolCount:           len(tools),
			ScenarioCount:       input.ScenarioCount,
			PassedCount:         input.PassedCount,
			FailedCount:         input.FailedCount,
			WorkflowCount:       len(signatures),
			WorkflowFailCount:   workflowFails,
			DependencyEdgeCount: input.DependencyEdgeCount,
		},
	}
	b.Hash = computeHash(b)
	return b
}

// computeHash canonicalizes b's JSON body with the hash field and every
// run-scoped value elided, then hashes that canonical form with the same
// primitive the Schema Canonicalizer uses for schemas. Timestamps
// (generatedAt, durationMs, and each profile's lastTestedAt) and the
// RunID are run-time artifacts, not content: a tool re-run against an
// unchanged schema gets a fresh lastTestedAt stamp, and two runs
// separated only by wall-clock time and a new RunID must still hash equal.
func computeHash(b Baseline) string {
	raw, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	delete(doc, "hash")
	if metadata, ok := doc["metadata"].(map[string]any); ok {
		delete(metadata, "durationMs")
		delete(metadata, "generatedAt")
		delete(metadata, "runId")
	}
	if profiles, ok := doc["toolProfiles"].([]any); ok {
		for _, p := range profiles {
			if profile, ok := p.(map[string]any); ok {
				delete(profile, "lastTestedAt")
			}
		}
	}
	return schema.Hash(schema.Canonicalize(doc))
}

// Verify recomputes b's hash and reports whether it still matches the
// stored one, the integrity check a loaded baseline file must pass before
// it is trusted for comparison.
func Verify(b Baseline) bool {
	return computeHash(b) == b.Hash
}
