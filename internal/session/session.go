// Package session owns the MCP request/response lifecycle over any
// transport.Transport: the initialize handshake, the connection state
// machine, per-request correlation and timeouts, and dispatch of
// server-initiated notifications.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/telemetry"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

// State is a Session's position in its connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Session.
type Options struct {
	ClientName      string
	ClientVersion   string
	ProtocolVersion string
	InitTimeout     time.Duration

	// WarmupDuration is how long the Session paces outgoing calls after a
	// successful handshake, giving a freshly spawned server time to finish
	// any lazy initialization before the full scenario catalog lands on it.
	WarmupDuration time.Duration
	// WarmupRate bounds calls per second during WarmupDuration.
	WarmupRate rate.Limit

	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.ClientName == "" {
		o.ClientName = "bellwether"
	}
	if o.ClientVersion == "" {
		o.ClientVersion = "dev"
	}
	if o.ProtocolVersion == "" {
		o.ProtocolVersion = mcpproto.DefaultProtocolVersion
	}
	if o.InitTimeout == 0 {
		o.InitTimeout = 10 * time.Second
	}
	if o.WarmupDuration == 0 {
		o.WarmupDuration = 2 * time.Second
	}
	if o.WarmupRate == 0 {
		o.WarmupRate = rate.Limit(5)
	}
	if o.Logger == nil {
		o.Logger = telemetry.NewNoopLogger()
	}
	if o.Tracer == nil {
		o.Tracer = telemetry.NewNoopTracer()
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.NewNoopMetrics()
	}
	return o
}

// NotificationHandler receives server-initiated notifications, e.g.
// "notifications/tools/list_changed".
type NotificationHandler func(method string, params json.RawMessage)

type pendingCall struct {
	resultCh chan callOutcome
}

type callOutcome struct {
	response mcpproto.Response
	err      error
}

// Session drives the MCP handshake and request correlation over a single
// transport.Transport. It generalizes the pending-request table and
// close-race handling from the teacher's StdioCaller to work uniformly
// across stdio, SSE, and HTTP transports.
type Session struct {
	opts Options
	tr   transport.Transport

	stateMu sync.RWMutex
	state   State

	nextID uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingCall

	notifyMu sync.Mutex
	notify   []NotificationHandler

	serverInfo      mcpproto.ServerInfo
	capabilities    map[string]any
	protocolVersion string

	limiter *rate.Limiter
	readyAt time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Session bound to tr and performs the initialize handshake.
// On success the Session is in StateReady; on failure it closes tr and
// returns a Protocol or Transport category error.
func New(ctx context.Context, tr transport.Transport, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	s := &Session{
		opts:    opts,
		tr:      tr,
		state:   StateConnecting,
		pending: make(map[uint64]*pendingCall),
		limiter: rate.NewLimiter(opts.WarmupRate, 1),
		closed:  make(chan struct{}),
	}

	go s.readLoop()

	s.setState(StateHandshaking)
	if err := s.handshake(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.setState(StateReady)
	s.readyAt = timeNow()
	return s, nil
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// State reports the Session's current lifecycle position.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// ServerInfo returns the server identity learned during initialize.
func (s *Session) ServerInfo() mcpproto.ServerInfo { return s.serverInfo }

// Capabilities returns the server's declared capabilities map.
func (s *Session) Capabilities() map[string]any { return s.capabilities }

// ProtocolVersion returns the negotiated protocol version.
func (s *Session) ProtocolVersion() string { return s.protocolVersion }

// OnNotification registers a handler invoked for every inbound notification.
// Handlers run synchronously on the Session's read loop and must not block.
func (s *Session) OnNotification(h NotificationHandler) {
	s.notifyMu.Lock()
	s.notify = append(s.notify, h)
	s.notifyMu.Unlock()
}

func (s *Session) handshake(ctx context.Context) error {
	initCtx := ctx
	var cancel context.CancelFunc
	if s.opts.InitTimeout > 0 {
		initCtx, cancel = context.WithTimeout(ctx, s.opts.InitTimeout)
		defer cancel()
	}

	params := mcpproto.InitializeParams{
		ProtocolVersion: s.opts.ProtocolVersion,
		ClientInfo: mcpproto.ClientInfo{
			Name:    s.opts.ClientName,
			Version: s.opts.ClientVersion,
		},
	}

	raw, err := s.call(initCtx, "initialize", params)
	if err != nil {
		if initCtx.Err() != nil {
			return bwerrors.Wrap(bwerrors.CategoryProtocol, bwerrors.CodeInitializeFailed, "initialize: "+err.Error(), err)
		}
		return err
	}

	var result mcpproto.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return bwerrors.Protocol(bwerrors.CodeInitializeFailed, 0, "decode initialize result: "+err.Error())
	}
	if _, ok := mcpproto.NegotiateVersion(result.ProtocolVersion); !ok {
		return bwerrors.Protocol(bwerrors.CodeUnsupportedVersion, 0, "server offered unsupported protocol version "+result.ProtocolVersion)
	}

	s.serverInfo = result.ServerInfo
	s.capabilities = result.Capabilities
	s.protocolVersion = result.ProtocolVersion

	if err := s.notifyInitialized(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Session) notifyInitialized(ctx context.Context) error {
	payload, err := json.Marshal(mcpproto.Notification{JSONRPC: "2.0", Method: "notifications/initialized"})
	if err != nil {
		return bwerrors.Internal(bwerrors.CodeCancelled, err.Error())
	}
	return s.tr.Send(ctx, payload)
}

// Call invokes method with params and blocks until the server responds, the
// per-call timeout elapses, the context is cancelled, or the transport
// closes. During the post-handshake warmup window calls are paced by
// WarmupRate rather than issued as fast as the caller submits them.
func (s *Session) Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	if s.inWarmup() {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, bwerrors.Internal(bwerrors.CodeCancelled, "warmup pacing: "+err.Error())
		}
	}
	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	raw, err := s.call(callCtx, method, params)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return nil, bwerrors.CallLevel(bwerrors.CodeTimeout, method+" timed out", nil)
		}
	}
	return raw, err
}

func (s *Session) inWarmup() bool {
	if s.readyAt.IsZero() {
		return false
	}
	return timeNow().Sub(s.readyAt) < s.opts.WarmupDuration
}

func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddUint64(&s.nextID, 1)
	pc := &pendingCall{resultCh: make(chan callOutcome, 1)}

	s.pendingMu.Lock()
	s.pending[id] = pc
	s.pendingMu.Unlock()

	req := mcpproto.Request{JSONRPC: "2.0", Method: method, ID: id, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		s.discardPending(id)
		return nil, bwerrors.Internal(bwerrors.CodeCancelled, "encode request: "+err.Error())
	}

	ctx, span := s.opts.Tracer.Start(ctx, "mcp."+method)
	defer span.End()

	if err := s.tr.Send(ctx, payload); err != nil {
		s.discardPending(id)
		span.RecordError(err)
		return nil, err
	}

	select {
	case out := <-pc.resultCh:
		if out.err != nil {
			span.RecordError(out.err)
			return nil, out.err
		}
		if out.response.Error != nil {
			return nil, bwerrors.Protocol(bwerrors.CodeProtocolError, out.response.Error.Code, out.response.Error.Message)
		}
		return out.response.Result, nil
	case <-ctx.Done():
		s.discardPending(id)
		return nil, ctx.Err()
	case <-s.closed:
		return nil, bwerrors.Transport(bwerrors.CodeClosed, "session closed mid-call", s.tr.Err())
	}
}

func (s *Session) discardPending(id uint64) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

func (s *Session) readLoop() {
	for {
		select {
		case frame, ok := <-s.tr.Inbound():
			if !ok {
				return
			}
			s.handleFrame(frame)
		case <-s.tr.Done():
			s.drainRemaining()
			s.failAllPending(s.tr.Err())
			return
		}
	}
}

// drainRemaining processes any frames already queued on Inbound before the
// Session gives up on outstanding calls, since Done closing races with
// buffered frames arriving at essentially the same time.
func (s *Session) drainRemaining() {
	for {
		select {
		case frame, ok := <-s.tr.Inbound():
			if !ok {
				return
			}
			s.handleFrame(frame)
		default:
			return
		}
	}
}

func (s *Session) handleFrame(frame []byte) {
	resp, notif, err := mcpproto.Envelope(frame)
	if err != nil {
		s.opts.Logger.Warn(context.Background(), "discarding malformed mcp frame", "error", err.Error())
		return
	}
	if resp != nil {
		s.pendingMu.Lock()
		pc, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.pendingMu.Unlock()
		if !ok {
			// Response to a request we already abandoned (context
			// cancelled, caller moved on) — discard silently per the
			// close-race semantics Session owns.
			return
		}
		pc.resultCh <- callOutcome{response: *resp}
		return
	}
	if notif != nil {
		s.notifyMu.Lock()
		handlers := append([]NotificationHandler{}, s.notify...)
		s.notifyMu.Unlock()
		for _, h := range handlers {
			h(notif.Method, notif.Params)
		}
	}
}

func (s *Session) failAllPending(err error) {
	if err == nil {
		err = bwerrors.Transport(bwerrors.CodeClosed, "transport closed", nil)
	}
	s.pendingMu.Lock()
	for id, pc := range s.pending {
		delete(s.pending, id)
		pc.resultCh <- callOutcome{err: err}
	}
	s.pendingMu.Unlock()
}

// Close transitions the Session to StateClosed and closes the underlying
// transport. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		err = s.tr.Close()
		close(s.closed)
		s.setState(StateClosed)
	})
	return err
}

// timeNow is a seam so tests can control warmup timing without depending on
// wall-clock sleeps.
var timeNow = time.Now
