package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"github.com/wagiedev/mcp-agent-go/internal/config"
	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/framing"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

const (
	// sseEventEndpoint announces the POST URL for a new session.
	sseEventEndpoint = "endpoint"
	// sseEventMessage carries one protocol message.
	sseEventMessage = "message"

	// defaultEndpointTimeout bounds the wait for the endpoint event.
	defaultEndpointTimeout = 10 * time.Second

	// sseConnBuffer is the per-session buffer for inbound messages.
	sseConnBuffer = 16
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// AcceptFunc serves one connection. It runs for the lifetime of the connection
// and must return once the transport closes.
type AcceptFunc func(ctx context.Context, t config.Transport)

// SSEHandler is the server half of the HTTP binding. A client opens an event
// stream with GET /sse, receives the POST endpoint for its session, and sends
// messages with POST /message?sessionId=<id>.
type SSEHandler struct {
	log    *slog.Logger
	accept AcceptFunc
	router chi.Router

	mu    sync.RWMutex
	conns map[string]*sseServerConn
}

// NewSSEHandler returns an http.Handler serving the HTTP binding. accept is
// called in its own goroutine for each new connection.
func NewSSEHandler(log *slog.Logger, accept AcceptFunc) *SSEHandler {
	h := &SSEHandler{
		log:    log.With("component", "sse_handler"),
		accept: accept,
		conns:  make(map[string]*sseServerConn, 8),
	}

	r := chi.NewRouter()
	r.Get("/sse", h.handleStream)
	r.Post("/message", h.handleMessage)
	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Sessions returns the number of open connections.
func (h *SSEHandler) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

func (h *SSEHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		h.log.Error("Failed to upgrade session", "error", err)
		http.Error(w, "failed to upgrade session", http.StatusInternalServerError)

		return
	}

	id := uuid.NewString()
	conn := newSSEServerConn(h.log.With("session_id", id))

	endpoint := &sse.Message{Type: sse.Type(sseEventEndpoint)}
	endpoint.AppendData("message?sessionId=" + id)

	if err := sess.Send(endpoint); err != nil {
		h.log.Error("Failed to send endpoint", "error", err)

		return
	}

	if err := sess.Flush(); err != nil {
		h.log.Error("Failed to flush endpoint", "error", err)

		return
	}

	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, id)
		h.mu.Unlock()

		_ = conn.Close()
	}()

	h.log.Info("SSE session opened", "session_id", id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.accept(ctx, conn)

	for {
		select {
		case out := <-conn.out:
			msg := &sse.Message{Type: sse.Type(sseEventMessage)}
			msg.AppendData(string(out.data))

			err := sess.Send(msg)
			if err == nil {
				err = sess.Flush()
			}

			out.errc <- err

			if err != nil {
				h.log.Warn("Failed to send event", "error", err)

				return
			}

		case <-conn.done:
			h.log.Info("SSE session closed by server", "session_id", id)

			return

		case <-r.Context().Done():
			h.log.Info("SSE session closed by client", "session_id", id)

			return
		}
	}
}

func (h *SSEHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)

		return
	}

	id := r.URL.Query().Get("sessionId")

	h.mu.RLock()
	conn, ok := h.conns[id]
	h.mu.RUnlock()

	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, framing.MaxFrameSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)

		return
	}

	if len(body) > framing.MaxFrameSize {
		http.Error(w, errors.ErrFrameTooLarge.Error(), http.StatusRequestEntityTooLarge)

		return
	}

	msg, err := framing.Decode(body)
	if err != nil {
		conn.log.Debug("Rejected malformed POST body", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	select {
	case conn.in <- msg:
		w.WriteHeader(http.StatusAccepted)
	case <-conn.done:
		http.Error(w, "session closed", http.StatusGone)
	case <-r.Context().Done():
	}
}

type sseOutgoing struct {
	data []byte
	errc chan error
}

// sseServerConn is the per-connection transport handed to AcceptFunc.
type sseServerConn struct {
	log  *slog.Logger
	in   chan *jsonrpc.Message
	out  chan sseOutgoing
	done chan struct{}

	closeOnce sync.Once
}

var _ config.Transport = (*sseServerConn)(nil)

func newSSEServerConn(log *slog.Logger) *sseServerConn {
	return &sseServerConn{
		log:  log,
		in:   make(chan *jsonrpc.Message, sseConnBuffer),
		out:  make(chan sseOutgoing),
		done: make(chan struct{}),
	}
}

func (c *sseServerConn) Start(context.Context) error { return nil }

func (c *sseServerConn) ReadMessages(ctx context.Context) (<-chan *jsonrpc.Message, <-chan error) {
	messages := make(chan *jsonrpc.Message)
	errs := make(chan error, 1)

	go func() {
		defer close(messages)
		defer close(errs)

		for {
			select {
			case msg := <-c.in:
				select {
				case messages <- msg:
				case <-c.done:
					return
				case <-ctx.Done():
					return
				}
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return messages, errs
}

func (c *sseServerConn) SendMessage(ctx context.Context, msg *jsonrpc.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	out := sseOutgoing{data: data, errc: make(chan error, 1)}

	select {
	case c.out <- out:
	case <-c.done:
		return errors.ErrTransportNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-out.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *sseServerConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}

func (c *sseServerConn) IsReady() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *sseServerConn) EndInput() error { return c.Close() }

// SSEClientTransport is the client half of the HTTP binding.
type SSEClientTransport struct {
	log        *slog.Logger
	httpClient *http.Client
	connectURL string

	mu         sync.RWMutex
	messageURL string

	messages chan *jsonrpc.Message
	errs     chan error
	cancel   context.CancelFunc
	closed   bool
}

var _ config.Transport = (*SSEClientTransport)(nil)

// NewSSEClientTransport creates a transport connecting to connectURL, the URL of
// the server's GET /sse endpoint. A nil httpClient means http.DefaultClient.
func NewSSEClientTransport(log *slog.Logger, connectURL string, httpClient *http.Client) *SSEClientTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &SSEClientTransport{
		log:        log.With("component", "sse_client"),
		httpClient: httpClient,
		connectURL: connectURL,
		messages:   make(chan *jsonrpc.Message),
		errs:       make(chan error, 1),
	}
}

// Start opens the event stream and waits for the endpoint event.
func (t *SSEClientTransport) Start(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.connectURL, nil)
	if err != nil {
		cancel()

		return &errors.ConnectionError{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()

		return &errors.ConnectionError{Err: fmt.Errorf("open event stream: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()

		return &errors.ConnectionError{Err: fmt.Errorf("open event stream: unexpected status %d", resp.StatusCode)}
	}

	ready := make(chan error, 1)

	go t.listen(streamCtx, resp.Body, ready)

	timer := time.NewTimer(defaultEndpointTimeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err != nil {
			cancel()

			return &errors.ConnectionError{Err: err}
		}

		return nil
	case <-timer.C:
		cancel()

		return &errors.ConnectionError{Err: fmt.Errorf("no endpoint event after %s", defaultEndpointTimeout)}
	case <-ctx.Done():
		cancel()

		return ctx.Err()
	}
}

func (t *SSEClientTransport) listen(ctx context.Context, body io.ReadCloser, ready chan<- error) {
	defer body.Close()
	defer close(t.messages)
	defer close(t.errs)

	gotEndpoint := false

	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			if !gotEndpoint {
				ready <- err

				return
			}

			if ctx.Err() == nil {
				t.log.Debug("Event stream ended", "error", err)
				t.sendErr(ctx, &errors.SessionClosedError{Err: err})
			}

			return
		}

		switch ev.Type {
		case sseEventEndpoint:
			if gotEndpoint {
				t.log.Warn("Ignoring repeated endpoint event")

				continue
			}

			endpoint, err := t.resolveEndpoint(ev.Data)
			if err != nil {
				ready <- err

				return
			}

			t.mu.Lock()
			t.messageURL = endpoint
			t.mu.Unlock()

			gotEndpoint = true
			ready <- nil

		case sseEventMessage:
			if !gotEndpoint {
				t.log.Warn("Received message before endpoint event")

				continue
			}

			msg, err := framing.Decode([]byte(ev.Data))
			if err != nil {
				t.sendErr(ctx, err)

				continue
			}

			select {
			case t.messages <- msg:
			case <-ctx.Done():
				return
			}

		default:
			t.log.Debug("Ignoring event", "type", ev.Type)
		}
	}

	if !gotEndpoint {
		ready <- stderrors.New("event stream closed before endpoint event")
	}
}

func (t *SSEClientTransport) sendErr(ctx context.Context, err error) {
	select {
	case t.errs <- err:
	case <-ctx.Done():
	}
}

func (t *SSEClientTransport) resolveEndpoint(ref string) (string, error) {
	base, err := url.Parse(t.connectURL)
	if err != nil {
		return "", fmt.Errorf("parse connect URL: %w", err)
	}

	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", ref, err)
	}

	return base.ResolveReference(rel).String(), nil
}

// ReadMessages returns the channels fed by the event stream.
func (t *SSEClientTransport) ReadMessages(context.Context) (<-chan *jsonrpc.Message, <-chan error) {
	return t.messages, t.errs
}

// SendMessage POSTs one message to the session endpoint.
func (t *SSEClientTransport) SendMessage(ctx context.Context, msg *jsonrpc.Message) error {
	t.mu.RLock()
	endpoint, closed := t.messageURL, t.closed
	t.mu.RUnlock()

	if closed || endpoint == "" {
		return errors.ErrTransportNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post message: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// IsReady reports whether the endpoint is known and the transport is open.
func (t *SSEClientTransport) IsReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.messageURL != "" && !t.closed
}

// EndInput is equivalent to Close for the HTTP binding.
func (t *SSEClientTransport) EndInput() error { return t.Close() }

// Close ends the event stream.
func (t *SSEClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	if t.cancel != nil {
		t.cancel()
	}

	return nil
}
