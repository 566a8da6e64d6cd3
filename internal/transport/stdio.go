package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// ringBufferSize bounds the stderr tail kept for diagnostics when a spawned
// server exits unexpectedly.
const ringBufferSize = 64 * 1024

// StdioOptions configures a subprocess MCP server.
type StdioOptions struct {
	Command  string
	Args     []string
	Dir      string
	EnvDeny  []string
	EnvAllow map[string]string
	Framing  Framing
}

// StdioTransport speaks MCP over a spawned subprocess's stdin/stdout,
// generalizing the teacher's StdioCaller into the transport-only contract:
// Session, not Transport, owns request/response correlation.
type StdioTransport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	framing Framing

	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error

	stderrMu   sync.Mutex
	stderrTail []byte

	writeMu sync.Mutex
}

// NewStdioTransport spawns Command and begins reading its stdout. It does
// not perform the MCP initialize handshake; that is Session's job.
func NewStdioTransport(ctx context.Context, opts StdioOptions) (*StdioTransport, error) {
	if opts.Command == "" {
		return nil, bwerrors.Transport(bwerrors.CodeSpawnFailed, "command is required", nil)
	}
	framing := opts.Framing
	if framing == "" {
		framing = FramingNewlineDelimited
	}

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	filter := &EnvFilter{Deny: opts.EnvDeny, Allow: opts.EnvAllow}
	cmd.Env = filter.Build()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, bwerrors.Transport(bwerrors.CodeSpawnFailed, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, bwerrors.Transport(bwerrors.CodeSpawnFailed, "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, bwerrors.Transport(bwerrors.CodeSpawnFailed, "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, bwerrors.Transport(bwerrors.CodeSpawnFailed, "start subprocess", err)
	}

	t := &StdioTransport{
		cmd:     cmd,
		stdin:   stdin,
		framing: framing,
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}

	go t.captureStderr(stderr)
	go t.readLoop(stdout)

	return t, nil
}

func (t *StdioTransport) Send(ctx context.Context, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.done:
		return bwerrors.Transport(bwerrors.CodeClosed, "transport closed", t.Err())
	default:
	}

	var framed []byte
	switch t.framing {
	case FramingNewlineDelimited:
		framed = append(append([]byte{}, payload...), '\n')
	default:
		header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(payload))
		framed = append([]byte(header), payload...)
	}

	if _, err := t.stdin.Write(framed); err != nil {
		return bwerrors.Transport(bwerrors.CodeClosed, "write to subprocess stdin", err)
	}
	return nil
}

func (t *StdioTransport) Inbound() <-chan []byte { return t.inbound }
func (t *StdioTransport) Done() <-chan struct{}  { return t.done }

func (t *StdioTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *StdioTransport) Close() error {
	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	_ = t.cmd.Wait()
	t.finish(nil)
	return nil
}

// StderrTail returns the most recent bytes of the subprocess's stderr, for
// diagnostics when a spawn_failed or closed error surfaces.
func (t *StdioTransport) StderrTail() []byte {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()
	out := make([]byte, len(t.stderrTail))
	copy(out, t.stderrTail)
	return out
}

func (t *StdioTransport) captureStderr(stderr io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			t.stderrMu.Lock()
			t.stderrTail = append(t.stderrTail, buf[:n]...)
			if len(t.stderrTail) > ringBufferSize {
				t.stderrTail = t.stderrTail[len(t.stderrTail)-ringBufferSize:]
			}
			t.stderrMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (t *StdioTransport) readLoop(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		var frame []byte
		var err error
		if t.framing == FramingNewlineDelimited {
			var line string
			line, err = reader.ReadString('\n')
			frame = []byte(strings.TrimRight(line, "\r\n"))
		} else {
			frame, err = readContentLengthFrame(reader)
		}
		if err != nil {
			t.finish(bwerrors.Transport(bwerrors.CodeFramingError, "read frame", err))
			return
		}
		if len(frame) == 0 {
			continue
		}
		select {
		case t.inbound <- frame:
		case <-t.done:
			return
		}
	}
}

func readContentLengthFrame(reader *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if length < 0 {
				continue
			}
			break
		}
		if after, ok := cutPrefixFold(line, "content-length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(after))
			if err != nil {
				return nil, err
			}
			length = n
		}
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func (t *StdioTransport) finish(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()

	t.closeOnce.Do(func() {
		close(t.done)
	})
}
