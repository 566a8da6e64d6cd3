package statetracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReaderNamePattern(t *testing.T) {
	c := Classify("list_files", "Lists files in a directory")
	assert.Equal(t, RoleReader, c.Role)
	assert.Equal(t, 0.8, c.Confidence)
	assert.Contains(t, c.StateTypes, StateFiles)
}

func TestClassifyWriterNamePattern(t *testing.T) {
	c := Classify("create_user", "Creates a new user account")
	assert.Equal(t, RoleWriter, c.Role)
	assert.Equal(t, 0.8, c.Confidence)
	assert.Contains(t, c.StateTypes, StateUsers)
}

func TestClassifyBothWhenNameAndDescriptionDisagree(t *testing.T) {
	c := Classify("update_cache", "Reads the cache entry, updates it, and returns the new value")
	assert.Equal(t, RoleBoth, c.Role)
	assert.Equal(t, 0.7, c.Confidence)
}

func TestClassifyUnknownWhenNoPatternMatches(t *testing.T) {
	c := Classify("ping", "Health check endpoint")
	assert.Equal(t, RoleUnknown, c.Role)
	assert.Equal(t, 0.3, c.Confidence)
}

func TestIsProbeRequiresReaderRoleAndProbeNamePattern(t *testing.T) {
	reader := Classify("list_sessions", "Lists active sessions")
	assert.True(t, IsProbe(reader, "list_sessions"))

	writer := Classify("delete_session", "Deletes a session")
	assert.False(t, IsProbe(writer, "delete_session"))

	nonProbeReader := Classify("get_session", "Gets one session by id")
	assert.False(t, IsProbe(nonProbeReader, "get_session"))
}
