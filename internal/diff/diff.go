// Package diff compares two Baselines and produces a severity-classified
// drift report (§4.9 Diff).
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/schema"
)

// Severity is the closed set of drift verdicts a Diff can carry.
type Severity string

const (
	SeverityClean    Severity = "clean"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Significance classifies one Change's weight in the severity rollup.
type Significance string

const (
	SignificanceBreaking Significance = "breaking"
	SignificanceWarning  Significance = "warning"
	SignificanceInfo     Significance = "info"
)

// Change is one observed difference on a modified tool.
type Change struct {
	Aspect       string
	Description  string
	Significance Significance
}

// ToolModification collects every Change observed for one tool present in
// both baselines.
type ToolModification struct {
	Tool          string
	SchemaChanged bool
	Changes       []Change
}

// Diff is the full comparison result between two baselines.
type Diff struct {
	ToolsAdded    []string
	ToolsRemoved  []string
	ToolsModified []ToolModification
	Severity      Severity
	// RefusalReason is set, Severity set to breaking, and every other field
	// left zero, when Compare refuses to run the comparison at all:
	// "version_mismatch" or "cancelled_baseline".
	RefusalReason string
}

// Options exposes the same two open-question policy switches
// internal/schema's DiffOptions does, plus whether a major version
// mismatch or a cancelled baseline on either side should abort the
// comparison or be forced through.
type Options struct {
	OptionalAdditionBreaking bool
	EnumAdditionBreaking     bool
	AllowVersionMismatch     bool
	AllowCancelledBaseline   bool
}

// Compare implements §4.9's four-step algorithm: a cancellation and
// version gate, the added/removed/common tool-set split, per-common-tool
// comparison, and a severity rollup over everything found.
func Compare(before, after baseline.Baseline, opts Options) Diff {
	if (before.Metadata.Cancelled || after.Metadata.Cancelled) && !opts.AllowCancelledBaseline {
		return Diff{Severity: SeverityBreaking, RefusalReason: "cancelled_baseline"}
	}
	if !versionsCompatible(before.Version, after.Version) && !opts.AllowVersionMismatch {
		return Diff{Severity: SeverityBreaking, RefusalReason: "version_mismatch"}
	}

	beforeTools := toolsByName(before.Capabilities.Tools)
	afterTools := toolsByName(after.Capabilities.Tools)
	beforeProfiles := fingerprintsByName(before.ToolProfiles)
	afterProfiles := fingerprintsByName(after.ToolProfiles)

	var added, removed, common []string
	for name := range afterTools {
		if _, ok := beforeTools[name]; !ok {
			added = append(added, name)
		} else {
			common = append(common, name)
		}
	}
	for name := range beforeTools {
		if _, ok := afterTools[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(common)

	schemaOpts := schema.DiffOptions{OptionalAdditionBreaking: opts.OptionalAdditionBreaking, EnumAdditionBreaking: opts.EnumAdditionBreaking}

	var modified []ToolModification
	for _, name := range common {
		mod := compareTool(name, beforeTools[name], afterTools[name], beforeProfiles[name], afterProfiles[name], schemaOpts)
		if len(mod.Changes) > 0 {
			modified = append(modified, mod)
		}
	}

	d := Diff{ToolsAdded: added, ToolsRemoved: removed, ToolsModified: modified}
	d.Severity = rollupSeverity(d, before, after)
	return d
}

func versionsCompatible(a, b string) bool {
	return majorVersion(a) == majorVersion(b)
}

func majorVersion(v string) string {
	return strings.SplitN(v, ".", 2)[0]
}

func toolsByName(tools []mcpproto.Tool) map[string]mcpproto.Tool {
	out := make(map[string]mcpproto.Tool, len(tools))
	for _, t := range tools {
		out[t.Name] = t
	}
	return out
}

func fingerprintsByName(profiles []baseline.Fingerprint) map[string]*baseline.Fingerprint {
	out := make(map[string]*baseline.Fingerprint, len(profiles))
	for i := range profiles {
		out[profiles[i].Name] = &profiles[i]
	}
	return out
}

func compareTool(name string, beforeTool, afterTool mcpproto.Tool, beforeFP, afterFP *baseline.Fingerprint, schemaOpts schema.DiffOptions) ToolModification {
	mod := ToolModification{Tool: name}

	beforeCanonical, err1 := schema.CanonicalizeJSON(beforeTool.InputSchema)
	afterCanonical, err2 := schema.CanonicalizeJSON(afterTool.InputSchema)
	if err1 == nil && err2 == nil {
		schemaChanges := schema.Compare(beforeCanonical, afterCanonical, schemaOpts)
		if len(schemaChanges) > 0 {
			mod.SchemaChanged = true
			for _, sc := range schemaChanges {
				sig := SignificanceWarning
				if sc.Breaking {
					sig = SignificanceBreaking
				}
				mod.Changes = append(mod.Changes, Change{
					Aspect:       "schema:" + string(sc.Kind),
					Description:  describeSchemaChange(sc.Path, sc.Detail),
					Significance: sig,
				})
			}
		}
	}

	if beforeTool.Description != afterTool.Description {
		mod.Changes = append(mod.Changes, Change{
			Aspect:       "description",
			Description:  "tool description text changed",
			Significance: SignificanceInfo,
		})
	}

	if beforeFP != nil && afterFP != nil {
		mod.Changes = append(mod.Changes, setDiffChanges("assertions", beforeFP.Assertions, afterFP.Assertions, SignificanceInfo)...)
		mod.Changes = append(mod.Changes, setDiffChanges("securityNotes", beforeFP.SecurityNotes, afterFP.SecurityNotes, SignificanceWarning)...)
		mod.Changes = append(mod.Changes, setDiffChanges("limitations", beforeFP.Limitations, afterFP.Limitations, SignificanceInfo)...)
	}

	if newlyDestructive(beforeTool, afterTool) {
		mod.Changes = append(mod.Changes, Change{
			Aspect:       "annotations:destructiveHint",
			Description:  "tool newly annotated destructiveHint",
			Significance: SignificanceWarning,
		})
	}

	return mod
}

func newlyDestructive(before, after mcpproto.Tool) bool {
	return !hintSet(before.Annotations) && hintSet(after.Annotations)
}

func hintSet(a *mcpproto.ToolAnnotations) bool {
	return a != nil && a.DestructiveHint
}

func describeSchemaChange(path, detail string) string {
	if path == "" {
		path = "$"
	}
	if detail == "" {
		return fmt.Sprintf("at %s", path)
	}
	return fmt.Sprintf("at %s: %s", path, detail)
}

// setDiffChanges reports additions and removals between two ordered string
// sets as Changes tagged with aspect, emitting at most one Change per
// direction (added/removed) rather than one per element, to keep the diff
// readable when many entries shift at once.
func setDiffChanges(aspect string, before, after []string, sig Significance) []Change {
	beforeSet := toSet(before)
	afterSet := toSet(after)

	var added, removed []string
	for _, v := range after {
		if _, ok := beforeSet[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range before {
		if _, ok := afterSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	var changes []Change
	if len(added) > 0 {
		changes = append(changes, Change{
			Aspect:       aspect,
			Description:  fmt.Sprintf("%s added: %s", aspect, strings.Join(added, ", ")),
			Significance: sig,
		})
	}
	if len(removed) > 0 {
		changes = append(changes, Change{
			Aspect:       aspect,
			Description:  fmt.Sprintf("%s removed: %s", aspect, strings.Join(removed, ", ")),
			Significance: sig,
		})
	}
	return changes
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// rollupSeverity implements §4.9 step 4's ordered rules: breaking beats
// warning beats info beats clean, each checked independently rather than
// derived from a single numeric score.
func rollupSeverity(d Diff, before, after baseline.Baseline) Severity {
	if len(d.ToolsRemoved) > 0 {
		return SeverityBreaking
	}
	for _, mod := range d.ToolsModified {
		for _, c := range mod.Changes {
			if c.Significance == SignificanceBreaking {
				return SeverityBreaking
			}
		}
	}
	if workflowRegressed(before, after) {
		return SeverityBreaking
	}

	hasWarning := false
	for _, mod := range d.ToolsModified {
		for _, c := range mod.Changes {
			if c.Significance == SignificanceWarning {
				hasWarning = true
			}
		}
	}
	if hasWarning {
		return SeverityWarning
	}

	if len(d.ToolsAdded) > 0 || len(d.ToolsModified) > 0 {
		return SeverityInfo
	}
	return SeverityClean
}

// workflowRegressed reports whether any workflow signature present in
// both baselines succeeded in before and fails in after.
func workflowRegressed(before, after baseline.Baseline) bool {
	prior := make(map[string]bool, len(before.WorkflowSignatures))
	for _, s := range before.WorkflowSignatures {
		prior[s.Name] = s.Succeeded
	}
	for _, s := range after.WorkflowSignatures {
		if succeededBefore, ok := prior[s.Name]; ok && succeededBefore && !s.Succeeded {
			return true
		}
	}
	return false
}
