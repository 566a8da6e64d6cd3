package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/mcpproto"
)

// fakeTransport is an in-memory transport.Transport double that lets tests
// script server responses without spawning a subprocess or HTTP server.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []json.RawMessage
	inbound  chan []byte
	done     chan struct{}
	closeErr error
	onSend   func(req mcpproto.Request) (json.RawMessage, bool)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (f *fakeTransport) Send(_ context.Context, payload []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, append(json.RawMessage{}, payload...))
	handler := f.onSend
	f.mu.Unlock()

	if handler == nil {
		return nil
	}
	var req mcpproto.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	result, respond := handler(req)
	if !respond {
		return nil
	}
	resp := mcpproto.Response{JSONRPC: "2.0", ID: req.ID, Result: result}
	raw, _ := json.Marshal(resp)
	f.inbound <- raw
	return nil
}

func (f *fakeTransport) Inbound() <-chan []byte  { return f.inbound }
func (f *fakeTransport) Done() <-chan struct{}   { return f.done }
func (f *fakeTransport) Err() error              { return f.closeErr }

func (f *fakeTransport) Close() error {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	return nil
}

// push delivers a raw frame to the Session as if the server sent it.
func (f *fakeTransport) push(raw []byte) {
	f.inbound <- raw
}

// defaultInitializeHandler answers "initialize" with a minimal valid result
// and lets tools/call-style requests fall through to a second handler.
func defaultInitializeHandler(next func(req mcpproto.Request) (json.RawMessage, bool)) func(mcpproto.Request) (json.RawMessage, bool) {
	return func(req mcpproto.Request) (json.RawMessage, bool) {
		if req.Method == "initialize" {
			result := mcpproto.InitializeResult{
				ProtocolVersion: mcpproto.DefaultProtocolVersion,
				ServerInfo:      mcpproto.ServerInfo{Name: "fixture-server", Version: "1.0.0"},
				Capabilities:    map[string]any{"tools": map[string]any{}},
			}
			raw, _ := json.Marshal(result)
			return raw, true
		}
		if req.Method == "notifications/initialized" {
			return nil, false
		}
		if next != nil {
			return next(req)
		}
		return json.RawMessage(`{}`), true
	}
}
