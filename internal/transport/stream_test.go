package transport

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// pipePair returns two stream transports wired back to back.
func pipePair(t *testing.T) (*StreamTransport, *StreamTransport) {
	t.Helper()

	aR, bW := io.Pipe()
	bR, aW := io.Pipe()

	a := NewStreamTransport(slog.Default(), aR, aW)
	b := NewStreamTransport(slog.Default(), bR, bW)

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	return a, b
}

func TestStreamTransport_RoundTrip(t *testing.T) {
	a, b := pipePair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, _ := b.ReadMessages(ctx)

	req, err := jsonrpc.NewRequest(jsonrpc.StringID("1"), "tools/list", nil)
	require.NoError(t, err)

	require.NoError(t, a.SendMessage(ctx, req))

	select {
	case got := <-messages:
		require.Equal(t, "tools/list", got.Method)
		require.Equal(t, "1", got.ID.String())
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestStreamTransport_MalformedFrameReportedAndSkipped(t *testing.T) {
	r, w := io.Pipe()
	tr := NewStreamTransport(slog.Default(), r, nopWriteCloser{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, errs := tr.ReadMessages(ctx)

	go func() {
		_, _ = w.Write([]byte("{broken\n"))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n"))
		_ = w.Close()
	}()

	select {
	case err := <-errs:
		require.ErrorAs(t, err, new(*errors.FramingError))
	case <-ctx.Done():
		t.Fatal("timed out waiting for framing error")
	}

	select {
	case msg := <-messages:
		require.Equal(t, jsonrpc.KindNotification, msg.Kind())
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	_, ok := <-messages
	require.False(t, ok, "channel should close at end of stream")
}

func TestStreamTransport_SendAfterClose(t *testing.T) {
	a, _ := pipePair(t)

	require.NoError(t, a.Close())
	require.False(t, a.IsReady())

	msg, err := jsonrpc.NewNotification("ping", nil)
	require.NoError(t, err)

	err = a.SendMessage(context.Background(), msg)
	require.ErrorIs(t, err, errors.ErrTransportNotConnected)
}

func TestStreamTransport_SendHonorsContextWhileBlocked(t *testing.T) {
	// Nobody reads the other end, so the write blocks until the context ends.
	_, w := io.Pipe()
	tr := NewStreamTransport(slog.Default(), stderrorsReader{}, w)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	msg, err := jsonrpc.NewNotification("ping", nil)
	require.NoError(t, err)

	err = tr.SendMessage(ctx, msg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }

type stderrorsReader struct{}

func (stderrorsReader) Read([]byte) (int, error) { return 0, stderrors.New("unused") }
