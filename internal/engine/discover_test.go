package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/session"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

func newTestSession(t *testing.T, tr transport.Transport) *session.Session {
	t.Helper()
	sess, err := session.New(context.Background(), tr, session.Options{ClientName: "bellwether-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestDiscoverToolsDecodesToolsList(t *testing.T) {
	want := []mcpproto.Tool{{Name: "search", Description: "search the corpus"}}
	tr := newFakeTransport(handshakeHandler(want, nil))
	sess := newTestSession(t, tr)

	got, err := discoverTools(context.Background(), sess, time.Second)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDiscoverToolsPropagatesCallError(t *testing.T) {
	handler := func(req mcpproto.Request) (json.RawMessage, bool) {
		switch req.Method {
		case "initialize":
			result := mcpproto.InitializeResult{
				ProtocolVersion: mcpproto.DefaultProtocolVersion,
				ServerInfo:      mcpproto.ServerInfo{Name: "fixture-server", Version: "1.0.0"},
				Capabilities:    map[string]any{"tools": map[string]any{}},
			}
			raw, _ := json.Marshal(result)
			return raw, true
		default:
			// tools/list and notifications/initialized both go unanswered,
			// forcing the call to time out.
			return nil, false
		}
	}
	tr := newFakeTransport(handler)
	sess := newTestSession(t, tr)

	_, err := discoverTools(context.Background(), sess, 50*time.Millisecond)
	require.Error(t, err)
}
