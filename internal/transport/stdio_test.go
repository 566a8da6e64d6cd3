package transport

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const stdioHelperEnv = "BELLWETHER_STDIO_HELPER"

func TestStdioTransportSendAndReceive(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := NewStdioTransport(ctx, StdioOptions{
		Command:  os.Args[0],
		Args:     []string{"-test.run=TestStdioEchoHelper", "--"},
		EnvAllow: map[string]string{stdioHelperEnv: "1"},
	})
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	select {
	case frame := <-tr.Inbound():
		require.Contains(t, string(frame), `"id":1`)
	case <-tr.Done():
		t.Fatalf("transport closed early: %v", tr.Err())
	case <-ctx.Done():
		t.Fatal("timed out waiting for echo")
	}
}

func TestStdioTransportCloseUnblocksInbound(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr, err := NewStdioTransport(ctx, StdioOptions{
		Command:  os.Args[0],
		Args:     []string{"-test.run=TestStdioEchoHelper", "--"},
		EnvAllow: map[string]string{stdioHelperEnv: "1"},
	})
	require.NoError(t, err)

	require.NoError(t, tr.Close())

	select {
	case <-tr.Done():
	case <-ctx.Done():
		t.Fatal("Done never closed after Close")
	}
}

// TestStdioEchoHelper is not a real test; it is re-executed as a subprocess
// by TestStdioTransportSendAndReceive via os.Args[0], mirroring the
// teacher's helper-process pattern.
func TestStdioEchoHelper(t *testing.T) {
	if os.Getenv(stdioHelperEnv) != "1" {
		t.Skip("helper process")
	}
	runStdioEchoHelper()
}

func runStdioEchoHelper() {
	reader := bufio.NewReader(os.Stdin)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		_, _ = fmt.Fprint(os.Stdout, line)
	}
	os.Exit(0)
}

func TestReadContentLengthFrameRoundTrip(t *testing.T) {
	payload := `{"jsonrpc":"2.0","id":7,"result":{}}`
	framed := "Content-Length: " + strconv.Itoa(len(payload)) + "\r\n\r\n" + payload
	reader := bufio.NewReader(strings.NewReader(framed))
	frame, err := readContentLengthFrame(reader)
	require.NoError(t, err)
	require.Equal(t, payload, string(frame))
}
