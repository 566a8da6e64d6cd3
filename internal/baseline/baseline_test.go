package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

func sampleInput() Input {
	return Input{
		Mode:          "check",
		ServerCommand: "./server",
		Server:        Server{Name: "demo", Version: "1.0.0", ProtocolVersion: "2025-03-26"},
		Tools: []mcpproto.Tool{
			{Name: "zeta_tool"},
			{Name: "alpha_tool"},
		},
		ToolProfiles: []Fingerprint{
			{Name: "zeta_tool", SchemaHash: "aaa"},
			{Name: "alpha_tool", SchemaHash: "bbb"},
		},
		WorkflowSignatures: []workflow.Signature{
			{Name: "zeta_flow", Succeeded: true},
			{Name: "alpha_flow", Succeeded: false},
		},
		ScenarioCount: 10,
		PassedCount:   9,
		FailedCount:   1,
	}
}

func TestBuildSortsToolProfilesAndCapabilitiesByName(t *testing.T) {
	b := Build(sampleInput())
	require.Len(t, b.ToolProfiles, 2)
	assert.Equal(t, "alpha_tool", b.ToolProfiles[0].Name)
	assert.Equal(t, "zeta_tool", b.ToolProfiles[1].Name)
	assert.Equal(t, "alpha_tool", b.Capabilities.Tools[0].Name)
	assert.Equal(t, "alpha_flow", b.WorkflowSignatures[0].Name)
}

func TestBuildStampsFormatVersionAndSummary(t *testing.T) {
	b := Build(sampleInput())
	assert.Equal(t, FormatVersion, b.Version)
	assert.Equal(t, 2, b.Summary.ToolCount)
	assert.Equal(t, 2, b.Summary.WorkflowCount)
	assert.Equal(t, 1, b.Summary.WorkflowFailCount)
}

func TestBuildHashIsDeterministicAndIgnoresDurationMs(t *testing.T) {
	inputA := sampleInput()
	inputA.Duration = 0
	inputB := sampleInput()
	inputB.Duration = 5000000000 // 5s, should not affect the hash

	a := Build(inputA)
	b := Build(inputB)
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEmpty(t, a.Hash)
}

func TestBuildHashChangesWhenToolProfileContentChanges(t *testing.T) {
	input := sampleInput()
	baseHash := Build(input).Hash

	input.ToolProfiles[0].SchemaHash = "changed"
	changedHash := Build(input).Hash

	assert.NotEqual(t, baseHash, changedHash)
}

func TestBuildStampsDistinctRunIDEachCall(t *testing.T) {
	a := Build(sampleInput())
	b := Build(sampleInput())
	assert.NotEmpty(t, a.Metadata.RunID)
	assert.NotEqual(t, a.Metadata.RunID, b.Metadata.RunID)
}

func TestBuildHashIgnoresRunIDAndTimestamps(t *testing.T) {
	inputA := sampleInput()
	inputB := sampleInput()
	inputB.ToolProfiles[0].LastTestedAt = time.Now().Add(48 * time.Hour)

	a := Build(inputA)
	b := Build(inputB)

	assert.NotEqual(t, a.Metadata.RunID, b.Metadata.RunID, "every Build stamps a fresh run id")
	assert.Equal(t, a.Hash, b.Hash, "a fresh run id and bumped lastTestedAt alone must not change the content hash")
}

func TestVerifyDetectsTamperedHash(t *testing.T) {
	b := Build(sampleInput())
	assert.True(t, Verify(b))

	b.Hash = "tampered"
	assert.False(t, Verify(b))
}
