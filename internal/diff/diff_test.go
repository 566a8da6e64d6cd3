package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

func tool(name, schema string) mcpproto.Tool {
	return mcpproto.Tool{Name: name, InputSchema: []byte(schema)}
}

func baselineWith(tools []mcpproto.Tool, profiles []baseline.Fingerprint, signatures []workflow.Signature) baseline.Baseline {
	return baseline.Build(baseline.Input{
		Mode:               "check",
		Server:             baseline.Server{Name: "demo", Version: "1.0.0"},
		Tools:              tools,
		ToolProfiles:       profiles,
		WorkflowSignatures: signatures,
	})
}

func TestCompareAddedAndRemovedTools(t *testing.T) {
	before := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object"}`), tool("old_tool", `{"type":"object"}`)}, nil, nil)
	after := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object"}`), tool("new_tool", `{"type":"object"}`)}, nil, nil)

	d := Compare(before, after, Options{})
	assert.Equal(t, []string{"new_tool"}, d.ToolsAdded)
	assert.Equal(t, []string{"old_tool"}, d.ToolsRemoved)
	assert.Equal(t, SeverityBreaking, d.Severity)
}

func TestCompareRequiredParameterAdditionIsBreaking(t *testing.T) {
	before := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)}, nil, nil)
	after := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object","properties":{"query":{"type":"string"},"api_key":{"type":"string"}},"required":["query","api_key"]}`)}, nil, nil)

	d := Compare(before, after, Options{})
	require.Len(t, d.ToolsModified, 1)
	assert.True(t, d.ToolsModified[0].SchemaChanged)
	assert.Equal(t, SeverityBreaking, d.Severity)

	var foundRequired bool
	for _, c := range d.ToolsModified[0].Changes {
		if c.Aspect == "schema:required_changed" {
			foundRequired = true
			assert.Equal(t, SignificanceBreaking, c.Significance)
		}
	}
	assert.True(t, foundRequired)
}

func TestCompareOptionalParameterAdditionIsNotBreakingByDefault(t *testing.T) {
	before := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`)}, nil, nil)
	after := baselineWith([]mcpproto.Tool{tool("search", `{"type":"object","properties":{"query":{"type":"string"},"limit":{"type":"number"}},"required":["query"]}`)}, nil, nil)

	d := Compare(before, after, Options{})
	require.Len(t, d.ToolsModified, 1)
	assert.False(t, d.ToolsModified[0].Changes[0].Significance == SignificanceBreaking)
	assert.Equal(t, SeverityWarning, d.Severity, "a non-breaking schema change still rolls up to warning, not info")
}

func TestCompareVersionMismatchFailsUnlessOverridden(t *testing.T) {
	before := baselineWith(nil, nil, nil)
	after := baselineWith(nil, nil, nil)
	after.Version = "2.0"

	d := Compare(before, after, Options{})
	assert.Equal(t, SeverityBreaking, d.Severity)
	assert.Equal(t, "version_mismatch", d.RefusalReason)

	d2 := Compare(before, after, Options{AllowVersionMismatch: true})
	assert.Empty(t, d2.RefusalReason)
}

func TestCompareCancelledBaselineFailsUnlessOverridden(t *testing.T) {
	before := baselineWith(nil, nil, nil)
	after := baselineWith(nil, nil, nil)
	after.Metadata.Cancelled = true

	d := Compare(before, after, Options{})
	assert.Equal(t, SeverityBreaking, d.Severity)
	assert.Equal(t, "cancelled_baseline", d.RefusalReason)
	assert.Empty(t, d.ToolsModified, "a refused comparison does nothing else")

	d2 := Compare(before, after, Options{AllowCancelledBaseline: true})
	assert.Empty(t, d2.RefusalReason)
}

func TestCompareWorkflowRegressionIsBreaking(t *testing.T) {
	before := baselineWith(nil, nil, []workflow.Signature{{Name: "wf1", Succeeded: true}})
	after := baselineWith(nil, nil, []workflow.Signature{{Name: "wf1", Succeeded: false}})

	d := Compare(before, after, Options{})
	assert.Equal(t, SeverityBreaking, d.Severity)
}

func TestCompareNewSecurityNoteIsWarning(t *testing.T) {
	before := baselineWith(
		[]mcpproto.Tool{tool("run", `{"type":"object"}`)},
		[]baseline.Fingerprint{{Name: "run"}},
		nil,
	)
	after := baselineWith(
		[]mcpproto.Tool{tool("run", `{"type":"object"}`)},
		[]baseline.Fingerprint{{Name: "run", SecurityNotes: []string{"reflects sql_injection payload unsanitized"}}},
		nil,
	)

	d := Compare(before, after, Options{})
	require.Len(t, d.ToolsModified, 1)
	assert.Equal(t, SeverityWarning, d.Severity)
}

func TestCompareCleanWhenNothingDiffers(t *testing.T) {
	tools := []mcpproto.Tool{tool("search", `{"type":"object"}`)}
	before := baselineWith(tools, []baseline.Fingerprint{{Name: "search"}}, nil)
	after := baselineWith(tools, []baseline.Fingerprint{{Name: "search"}}, nil)

	d := Compare(before, after, Options{})
	assert.Equal(t, SeverityClean, d.Severity)
	assert.Empty(t, d.ToolsModified)
}
