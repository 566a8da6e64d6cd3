package golden

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	id := ScenarioID("search", "happy path", map[string]any{"query": "go"})

	require.NoError(t, store.Save(Entry{
		ToolName:    "search",
		ScenarioID:  id,
		Description: "happy path",
		Args:        map[string]any{"query": "go"},
		Response:    map[string]any{"results": []any{"a", "b"}},
	}))

	got, ok, err := store.Load("search", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "search", got.ToolName)
	assert.NotEmpty(t, got.ResponseHash)
}

func TestLoadMissingEntryReturnsFalse(t *testing.T) {
	store := NewStore(t.TempDir())
	_, ok, err := store.Load("search", "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareDetectsDriftInResponse(t *testing.T) {
	store := NewStore(t.TempDir())
	id := ScenarioID("search", "happy path", map[string]any{"query": "go"})
	require.NoError(t, store.Save(Entry{
		ToolName:    "search",
		ScenarioID:  id,
		Description: "happy path",
		Response:    map[string]any{"results": []any{"a"}},
	}))

	same, err := store.Compare("search", id, map[string]any{"results": []any{"a"}})
	require.NoError(t, err)
	assert.True(t, same.Matches)

	changed, err := store.Compare("search", id, map[string]any{"results": []any{"a", "b"}})
	require.NoError(t, err)
	assert.False(t, changed.Matches)
}

func TestDeleteRemovesEntry(t *testing.T) {
	store := NewStore(t.TempDir())
	id := ScenarioID("search", "happy path", nil)
	require.NoError(t, store.Save(Entry{ToolName: "search", ScenarioID: id}))

	require.NoError(t, store.Delete("search", id))
	_, ok, err := store.Load("search", id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteNonexistentEntryIsNotAnError(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.NoError(t, store.Delete("search", "nope"))
}

func TestListSortsByToolThenScenarioID(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	idA := ScenarioID("search", "a", nil)
	idB := ScenarioID("search", "b", nil)
	require.NoError(t, store.Save(Entry{ToolName: "search", ScenarioID: idB}))
	require.NoError(t, store.Save(Entry{ToolName: "search", ScenarioID: idA}))
	require.NoError(t, store.Save(Entry{ToolName: "create_user", ScenarioID: idA}))

	entries, err := store.List("")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "create_user", entries[0].ToolName)
	assert.Equal(t, "search", entries[1].ToolName)

	onlySearch, err := store.List("search")
	require.NoError(t, err)
	assert.Len(t, onlySearch, 2)
}

func TestListOnEmptyDirectoryReturnsNoEntries(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist-yet"))
	entries, err := store.List("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
