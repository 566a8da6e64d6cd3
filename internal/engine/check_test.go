package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/config"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/schema"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

func successfulCallResult(text string) json.RawMessage {
	raw, _ := json.Marshal(mcpproto.ToolsCallResult{
		Content: []mcpproto.ContentItem{{Type: "text", Text: &text}},
		IsError: false,
	})
	return raw
}

func TestBuildCatalogProducesScenariosForEveryTool(t *testing.T) {
	e := New(Options{Config: config.Default()})
	tools := []mcpproto.Tool{
		{Name: "search", Description: "search the corpus", InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"query": {"type": "string"}},
			"required": ["query"]
		}`)},
	}

	catalog, skipped, err := e.buildCatalog(context.Background(), tools)

	require.NoError(t, err)
	require.Contains(t, catalog, "search")
	assert.NotEmpty(t, catalog["search"])
	assert.Empty(t, skipped)
}

func TestBuildCatalogSkipsToolUnchangedSinceFreshPriorBaseline(t *testing.T) {
	toolSchema := json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`)
	doc, err := schema.CanonicalizeJSON(toolSchema)
	require.NoError(t, err)
	schemaHash := schema.Hash(doc)

	prior := baseline.Baseline{
		ToolProfiles: []baseline.Fingerprint{
			{Name: "search", SchemaHash: schemaHash, Description: "carried forward", LastTestedAt: time.Now()},
		},
	}
	e := New(Options{Config: config.Default(), PriorBaseline: &prior})
	tools := []mcpproto.Tool{{Name: "search", Description: "search the corpus", InputSchema: toolSchema}}

	catalog, skipped, err := e.buildCatalog(context.Background(), tools)

	require.NoError(t, err)
	assert.NotContains(t, catalog, "search")
	require.Contains(t, skipped, "search")
	assert.Equal(t, "carried forward", skipped["search"].Description)
}

func TestBuildCatalogRunsToolWhoseSchemaChangedSincePriorBaseline(t *testing.T) {
	prior := baseline.Baseline{
		ToolProfiles: []baseline.Fingerprint{
			{Name: "search", SchemaHash: "stale-hash", LastTestedAt: time.Now()},
		},
	}
	e := New(Options{Config: config.Default(), PriorBaseline: &prior})
	tools := []mcpproto.Tool{{Name: "search", Description: "search the corpus", InputSchema: json.RawMessage(`{
		"type": "object",
		"properties": {"query": {"type": "string"}},
		"required": ["query"]
	}`)}}

	catalog, skipped, err := e.buildCatalog(context.Background(), tools)

	require.NoError(t, err)
	assert.Contains(t, catalog, "search")
	assert.NotEmpty(t, catalog["search"])
	assert.Empty(t, skipped)
}

type fakeWorkflowCaller struct {
	mu sync.Mutex
	fn func(name string) (json.RawMessage, error)
}

func (f *fakeWorkflowCaller) Call(_ context.Context, _ string, params any, _ time.Duration) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := params.(map[string]any)
	name := p["name"].(string)
	return f.fn(name)
}

func TestRunWorkflowsReturnsNoSignaturesWhenNoneConfigured(t *testing.T) {
	e := New(Options{Config: config.Default()})

	signatures, edges, err := e.runWorkflows(context.Background(), &fakeWorkflowCaller{}, nil)

	require.NoError(t, err)
	assert.Nil(t, signatures)
	assert.Zero(t, edges)
}

func TestRunWorkflowsExecutesEveryConfiguredDefinition(t *testing.T) {
	caller := &fakeWorkflowCaller{fn: func(name string) (json.RawMessage, error) {
		return successfulCallResult(name + "-ok"), nil
	}}
	def := workflow.Definition{
		ID:   "create-then-read",
		Name: "create then read",
		Steps: []workflow.Step{
			{Tool: "create_item", Args: map[string]any{"name": "widget"}},
			{Tool: "get_item", Args: map[string]any{"id": "1"}},
		},
	}
	e := New(Options{Config: config.Default(), Workflows: []workflow.Definition{def}})

	signatures, _, err := e.runWorkflows(context.Background(), caller, nil)

	require.NoError(t, err)
	require.Len(t, signatures, 1)
	assert.True(t, signatures[0].Succeeded)
	assert.Equal(t, []string{"create_item", "get_item"}, signatures[0].ToolSequence)
}
