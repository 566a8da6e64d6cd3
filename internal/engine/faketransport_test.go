package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
)

// fakeTransport is an in-memory transport.Transport double so engine tests
// can drive a real session.Session without spawning a subprocess or HTTP
// server, mirroring the session package's own test double.
type fakeTransport struct {
	mu      sync.Mutex
	inbound chan []byte
	done    chan struct{}
	onSend  func(req mcpproto.Request) (json.RawMessage, bool)
}

func newFakeTransport(onSend func(req mcpproto.Request) (json.RawMessage, bool)) *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
		onSend:  onSend,
	}
}

func (f *fakeTransport) Send(_ context.Context, payload []byte) error {
	var req mcpproto.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	result, respond := f.onSend(req)
	if !respond {
		return nil
	}
	resp := mcpproto.Response{JSONRPC: "2.0", ID: req.ID, Result: result}
	raw, _ := json.Marshal(resp)
	f.inbound <- raw
	return nil
}

func (f *fakeTransport) Inbound() <-chan []byte { return f.inbound }
func (f *fakeTransport) Done() <-chan struct{}  { return f.done }
func (f *fakeTransport) Err() error             { return nil }

func (f *fakeTransport) Close() error {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return nil
}

// handshakeHandler answers initialize/notifications-initialized and
// delegates every other method to next.
func handshakeHandler(tools []mcpproto.Tool, next func(req mcpproto.Request) (json.RawMessage, bool)) func(mcpproto.Request) (json.RawMessage, bool) {
	return func(req mcpproto.Request) (json.RawMessage, bool) {
		switch req.Method {
		case "initialize":
			result := mcpproto.InitializeResult{
				ProtocolVersion: mcpproto.DefaultProtocolVersion,
				ServerInfo:      mcpproto.ServerInfo{Name: "fixture-server", Version: "1.0.0"},
				Capabilities:    map[string]any{"tools": map[string]any{}},
			}
			raw, _ := json.Marshal(result)
			return raw, true
		case "notifications/initialized":
			return nil, false
		case "tools/list":
			raw, _ := json.Marshal(mcpproto.ToolsListResult{Tools: tools})
			return raw, true
		default:
			if next != nil {
				return next(req)
			}
			return json.RawMessage(`{}`), true
		}
	}
}
