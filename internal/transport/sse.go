package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// SSEOptions configures the Server-Sent Events transport.
type SSEOptions struct {
	Endpoint string
	Client   *http.Client
	Headers  map[string]string
}

// SSETransport speaks MCP by POSTing a JSON-RPC request and reading the
// response as a stream of Server-Sent Events, generalizing the teacher's
// readSSEEvent line parser from a single-shot CallTool into the ongoing
// Transport contract.
type SSETransport struct {
	endpoint string
	client   *http.Client
	headers  map[string]string

	inbound chan []byte
	done    chan struct{}
	once    sync.Once
	errMu   sync.Mutex
	err     error
}

// NewSSETransport constructs a transport bound to opts.Endpoint.
func NewSSETransport(opts SSEOptions) (*SSETransport, error) {
	if opts.Endpoint == "" {
		return nil, bwerrors.Transport(bwerrors.CodeConnectRefused, "endpoint is required", nil)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	return &SSETransport{
		endpoint: opts.Endpoint,
		client:   client,
		headers:  opts.Headers,
		inbound:  make(chan []byte, 64),
		done:     make(chan struct{}),
	}, nil
}

func (t *SSETransport) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return bwerrors.Transport(bwerrors.CodeConnectRefused, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
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
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return bwerrors.Transport(bwerrors.CodeFramingError, "unexpected status "+resp.Status+": "+string(raw), nil)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return bwerrors.Transport(bwerrors.CodeFramingError, "unexpected content type "+ct+": "+string(raw), nil)
	}

	go t.drainEvents(resp.Body)
	return nil
}

func (t *SSETransport) drainEvents(body io.ReadCloser) {
	defer func() { _ = body.Close() }()
	reader := bufio.NewReader(body)
	for {
		event, data, err := readSSEEvent(reader)
		if err != nil {
			if err != io.EOF {
				t.finish(bwerrors.Transport(bwerrors.CodeFramingError, "read sse event", err))
			} else {
				t.finish(nil)
			}
			return
		}
		switch event {
		case "close":
			t.finish(nil)
			return
		case "", "response", "error", "notification":
			if len(data) == 0 {
				continue
			}
			select {
			case t.inbound <- data:
			case <-t.done:
				return
			}
		default:
			continue
		}
	}
}

// readSSEEvent reads one SSE event (event: + one or more data: lines,
// terminated by a blank line) from reader.
func readSSEEvent(reader *bufio.Reader) (string, []byte, error) {
	var event string
	var data []byte
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if event == "" && len(data) == 0 {
				continue
			}
			return event, data, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if after, ok := strings.CutPrefix(line, "event:"); ok {
			event = strings.TrimSpace(after)
			continue
		}
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			chunk := strings.TrimPrefix(after, " ")
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
			continue
		}
	}
}

func (t *SSETransport) Inbound() <-chan []byte { return t.inbound }
func (t *SSETransport) Done() <-chan struct{}  { return t.done }

func (t *SSETransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *SSETransport) Close() error {
	t.finish(nil)
	return nil
}

func (t *SSETransport) finish(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()
	t.once.Do(func() { close(t.done) })
}
