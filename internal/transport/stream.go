package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/framing"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// writeAbandonTimeout bounds how long SendMessage waits for a blocked write to
// return after its context was cancelled.
const writeAbandonTimeout = 1 * time.Second

// StreamTransport exchanges newline-delimited messages over a reader and a writer.
type StreamTransport struct {
	log *slog.Logger
	r   io.Reader
	w   io.WriteCloser

	mu      sync.Mutex // Protects writes
	started bool
	closed  bool
}

// Compile-time verification that StreamTransport implements the Transport interface.
var _ config.Transport = (*StreamTransport)(nil)

// NewStreamTransport creates a transport reading frames from r and writing frames to w.
func NewStreamTransport(log *slog.Logger, r io.Reader, w io.WriteCloser) *StreamTransport {
	return &StreamTransport{
		log: log.With("component", "stream_transport"),
		r:   r,
		w:   w,
	}
}

// Start marks the transport ready. The streams are already open.
func (t *StreamTransport) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.ErrTransportNotConnected
	}

	t.started = true

	return nil
}

// ReadMessages decodes frames from the reader until it ends.
func (t *StreamTransport) ReadMessages(ctx context.Context) (<-chan *jsonrpc.Message, <-chan error) {
	messages := make(chan *jsonrpc.Message)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)

		readFrames(ctx, t.log, t.r, messages, errs)
	}()

	return messages, errs
}

// SendMessage writes one frame. It is safe for concurrent use.
func (t *StreamTransport) SendMessage(ctx context.Context, msg *jsonrpc.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.w == nil {
		return errors.ErrTransportNotConnected
	}

	return writeFrame(ctx, t.log, t.w, msg, func() {
		_ = t.w.Close()
		t.closed = true
	})
}

// IsReady reports whether the transport can send.
func (t *StreamTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started && !t.closed
}

// EndInput closes the write side.
func (t *StreamTransport) EndInput() error {
	return t.Close()
}

// Close closes the write side and, if the reader is closable, the read side.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	var errs []error
	if err := t.w.Close(); err != nil {
		errs = append(errs, err)
	}

	if rc, ok := t.r.(io.Closer); ok {
		if err := rc.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return stderrors.Join(errs...)
}

// readFrames decodes messages from r into messages. Framing errors are reported
// on errs without stopping; the first read error ends the loop.
func readFrames(
	ctx context.Context,
	log *slog.Logger,
	r io.Reader,
	messages chan<- *jsonrpc.Message,
	errs chan<- error,
) {
	dec := framing.NewDecoder(r)
	count := 0

	for {
		msg, err := dec.Decode()
		if err != nil {
			if _, ok := stderrors.AsType[*errors.FramingError](err); ok {
				log.Debug("Dropping malformed frame", "error", err)

				select {
				case errs <- err:
				case <-ctx.Done():
					return
				}

				continue
			}

			if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrClosedPipe) {
				log.Debug("Stream ended", "message_count", count)

				return
			}

			log.Debug("Stream read error", "error", err)

			select {
			case errs <- fmt.Errorf("read frame: %w", err):
			case <-ctx.Done():
			}

			return
		}

		count++

		select {
		case messages <- msg:
		case <-ctx.Done():
			log.Debug("Context cancelled during message send", "error", ctx.Err())

			return
		}
	}
}

// writeFrame writes msg to w, honoring ctx even while the write blocks. When ctx
// ends mid-write, abort is called to unblock the writer. Callers serialize access.
func writeFrame(
	ctx context.Context,
	log *slog.Logger,
	w io.Writer,
	msg *jsonrpc.Message,
	abort func(),
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	frame, err := framing.Encode(msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)

	go func() {
		_, err := w.Write(frame)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug("Failed to write frame", "error", err)

			return fmt.Errorf("write frame: %w", err)
		}

		return nil

	case <-ctx.Done():
		log.Debug("Context cancelled during write, closing writer")
		abort()

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			log.Warn("Write goroutine did not exit after writer close, potential leak")
		}

		return ctx.Err()
	}
}
