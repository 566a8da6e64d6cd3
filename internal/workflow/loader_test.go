package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAllParsesSingleDocument(t *testing.T) {
	doc := `
id: wf-1
name: create then get
steps:
  - tool: create_user
    args:
      name: x
  - tool: get_user
    argMapping:
      id: "$steps[0].result.id"
`
	defs, err := LoadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "wf-1", defs[0].ID)
	require.Len(t, defs[0].Steps, 2)
	assert.Equal(t, "create_user", defs[0].Steps[0].Tool)
	assert.Equal(t, "$steps[0].result.id", defs[0].Steps[1].ArgMapping["id"])
}

func TestLoadAllParsesMultipleDocuments(t *testing.T) {
	doc := "id: wf-1\nsteps:\n  - tool: a\n---\nid: wf-2\nsteps:\n  - tool: b\n"
	defs, err := LoadAll(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "wf-1", defs[0].ID)
	assert.Equal(t, "wf-2", defs[1].ID)
}

func TestLoadAllRejectsMalformedArgMapping(t *testing.T) {
	doc := `
id: wf-1
steps:
  - tool: get_user
    argMapping:
      id: "steps[0].result.id"
`
	_, err := LoadAll(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadAllRejectsStepWithoutTool(t *testing.T) {
	doc := "id: wf-1\nsteps:\n  - description: no tool here\n"
	_, err := LoadAll(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadAllRejectsDocumentWithoutID(t *testing.T) {
	doc := "name: missing id\nsteps:\n  - tool: a\n"
	_, err := LoadAll(strings.NewReader(doc))
	assert.Error(t, err)
}
