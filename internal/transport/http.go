package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// HTTPOptions configures the streaming-HTTP transport.
type HTTPOptions struct {
	Endpoint string
	Client   *http.Client
	Headers  map[string]string
}

// HTTPTransport speaks MCP over JSON-RPC POSTed to a single HTTP endpoint.
// A response body may be one JSON object (request/response MCP servers) or
// a stream of newline-delimited JSON objects (servers that push additional
// notifications on the same response), grounded on the teacher's
// httpTransport.call but generalized from "one call, one result" into an
// asynchronous stream Session can correlate independently.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	headers  map[string]string

	inbound chan []byte
	done    chan struct{}
	once    sync.Once
	errMu   sync.Mutex
	err     error
}

// NewHTTPTransport constructs a transport bound to opts.Endpoint. No
// network activity occurs until the first Send.
func NewHTTPTransport(opts HTTPOptions) (*HTTPTransport, error) {
	if opts.Endpoint == "" {
		return nil, bwerrors.Transport(bwerrors.CodeConnectRefused, "endpoint is required", nil)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{
		endpoint: opts.Endpoint,
		client:   client,
		headers:  opts.Headers,
		inbound:  make(chan []byte, 64),
		done:     make(chan struct{}),
	}, nil
}

func (t *HTTPTransport) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return bwerrors.Transport(bwerrors.CodeConnectRefused, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return bwerrors.Transport(bwerrors.CodeConnectRefused, "post rpc request", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		return bwerrors.Transport(bwerrors.CodeAuthFailed, "http status "+resp.Status, nil)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return bwerrors.Transport(bwerrors.CodeFramingError, "unexpected status "+resp.Status+": "+string(raw), nil)
	}

	go t.drainResponse(resp.Body)
	return nil
}

// drainResponse reads one or more newline-delimited JSON frames from a
// response body and publishes each to Inbound, then closes the body.
func (t *HTTPTransport) drainResponse(body io.ReadCloser) {
	defer func() { _ = body.Close() }()
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			select {
			case t.inbound <- append([]byte{}, trimmed...):
			case <-t.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				t.finish(bwerrors.Transport(bwerrors.CodeFramingError, "read response body", err))
			}
			return
		}
	}
}

func (t *HTTPTransport) Inbound() <-chan []byte { return t.inbound }
func (t *HTTPTransport) Done() <-chan struct{}  { return t.done }

func (t *HTTPTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *HTTPTransport) Close() error {
	t.finish(nil)
	return nil
}

func (t *HTTPTransport) finish(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()
	t.once.Do(func() { close(t.done) })
}
