package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// DefaultRequestTimeout bounds a request when the caller passes no timeout.
const DefaultRequestTimeout = 30 * time.Second

// MethodCancelled is the notification sent when a caller abandons a request.
const MethodCancelled = "notifications/cancelled"

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by every transport in internal/transport but allows
// for testing with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan *jsonrpc.Message, <-chan error)
	SendMessage(ctx context.Context, msg *jsonrpc.Message) error
}

// GateFunc decides whether an incoming request may be dispatched. A non-nil error
// is sent back to the peer instead of running the handler.
type GateFunc func(method string) error

// Controller correlates JSON-RPC requests and responses over one connection.
//
// The Controller handles:
//   - Sending requests with unique ULID ids and waiting for the matching response
//   - Bounding every wait by a finite timeout
//   - Dispatching incoming requests and notifications to registered handlers
//   - Cancelling in-flight handlers on notifications/cancelled
//   - Failing every pending request when the connection closes
//
// The Controller must be started with Start() before use and manages its own
// goroutine for reading and routing messages.
type Controller struct {
	log       *slog.Logger
	transport Transport

	// Request tracking
	pendingMu sync.Mutex
	pending   map[string]*pendingRequest

	// In-flight operation tracking for cancellation support
	inFlightMu sync.Mutex
	inFlight   map[string]*inFlightOperation

	// Handler registry for incoming messages
	handlersMu     sync.RWMutex
	handlers       map[string]RequestHandler
	notifyHandlers map[string]NotificationHandler
	gate           GateFunc

	protocolErrors atomic.Int64

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	runCtx    context.Context
	runCancel context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// pendingRequest tracks an outgoing request awaiting response.
type pendingRequest struct {
	method   string
	response chan *jsonrpc.Message
}

// inFlightOperation tracks an incoming request being handled.
type inFlightOperation struct {
	method    string
	cancel    context.CancelCauseFunc
	startTime time.Time
}

// NewController creates a new protocol controller.
//
// The transport must be connected before calling Start().
func NewController(log *slog.Logger, transport Transport) *Controller {
	return &Controller{
		log:            log.With("component", "protocol"),
		transport:      transport,
		pending:        make(map[string]*pendingRequest, 10),
		inFlight:       make(map[string]*inFlightOperation, 10),
		handlers:       make(map[string]RequestHandler, 10),
		notifyHandlers: make(map[string]NotificationHandler, 4),
		done:           make(chan struct{}),
	}
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (c *Controller) SetFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (c *Controller) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// ProtocolErrors returns how many messages were dropped for violating correlation
// rules since the controller started.
func (c *Controller) ProtocolErrors() int64 {
	return c.protocolErrors.Load()
}

// SetGate installs the admission check for incoming requests.
func (c *Controller) SetGate(gate GateFunc) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.gate = gate
}

// Start begins reading messages from the transport and routing them.
//
// The read loop outlives ctx; it ends on Stop or when the transport closes.
func (c *Controller) Start(ctx context.Context) error {
	c.log.Debug("Starting protocol controller")

	c.runCtx, c.runCancel = context.WithCancel(context.WithoutCancel(ctx))

	messages, errs := c.transport.ReadMessages(c.runCtx)

	c.wg.Go(func() {
		c.readLoop(messages, errs)
	})

	c.log.Info("Protocol controller started")

	return nil
}

// Stop shuts down the controller.
//
// Pending requests fail with SessionClosedError, in-flight handlers are cancelled,
// and Stop waits for them to return. It's safe to call Stop multiple times.
func (c *Controller) Stop() {
	c.log.Debug("Stopping protocol controller")

	c.closeDone()
	c.failPending()
	c.CancelAllInFlight()

	if c.runCancel != nil {
		c.runCancel()
	}

	c.wg.Wait()
	c.log.Info("Protocol controller stopped")
}

// Call sends a request and waits for its response.
//
// A non-positive timeout falls back to DefaultRequestTimeout. Errors are:
//   - *errors.TimeoutError when no response arrives in time
//   - *errors.SessionClosedError when the connection closes first
//   - ctx.Err() when the caller gives up; the peer is sent notifications/cancelled
//   - the mapped peer error (ValidationError, NotFoundError, InvocationError, RPCError)
func (c *Controller) Call(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	select {
	case <-c.done:
		return nil, &errors.SessionClosedError{Method: method, Err: c.FatalError()}
	default:
	}

	id := c.generateRequestID()

	req, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	responseChan := make(chan *jsonrpc.Message, 1)

	c.pendingMu.Lock()
	c.pending[id.Key()] = &pendingRequest{method: method, response: responseChan}
	c.pendingMu.Unlock()

	c.log.Debug("Sending request", "id", id, "method", method)

	if err := c.transport.SendMessage(ctx, req); err != nil {
		c.removePending(id)
		c.log.Error("Failed to send request", "method", method, "error", err)

		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-responseChan:
		if !ok {
			return nil, &errors.SessionClosedError{Method: method, Err: c.FatalError()}
		}

		if resp.Error != nil {
			c.log.Debug("Request returned error", "id", id, "method", method, "code", resp.Error.Code)

			return nil, FromWireError(method, resp.Error)
		}

		c.log.Debug("Received response", "id", id, "method", method)

		return resp.Result, nil

	case <-c.done:
		c.removePending(id)

		return nil, &errors.SessionClosedError{Method: method, Err: c.FatalError()}

	case <-timer.C:
		c.removePending(id)
		c.log.Warn("Request timed out", "id", id, "method", method, "timeout", timeout)
		c.sendCancelled(id, "timeout")

		return nil, &errors.TimeoutError{Method: method, ID: id.String(), Timeout: timeout}

	case <-ctx.Done():
		c.removePending(id)
		c.log.Debug("Request cancelled", "id", id, "method", method)
		c.sendCancelled(id, context.Cause(ctx).Error())

		return nil, ctx.Err()
	}
}

// Notify sends a notification. Notifications have no response.
func (c *Controller) Notify(ctx context.Context, method string, params any) error {
	select {
	case <-c.done:
		return &errors.SessionClosedError{Method: method, Err: c.FatalError()}
	default:
	}

	msg, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}

	if err := c.transport.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	return nil
}

// RegisterHandler registers a handler for incoming requests of one method.
// Registering a method twice overrides the previous handler.
func (c *Controller) RegisterHandler(method string, handler RequestHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.log.Debug("Registering request handler", "method", method)
	c.handlers[method] = handler
}

// RegisterNotificationHandler registers a handler for incoming notifications of one
// method. Notification handlers run on the read loop in arrival order.
func (c *Controller) RegisterNotificationHandler(method string, handler NotificationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.notifyHandlers[method] = handler
}

func (c *Controller) removePending(id jsonrpc.ID) {
	c.pendingMu.Lock()
	delete(c.pending, id.Key())
	c.pendingMu.Unlock()
}

// failPending wakes every waiter. Closing the slot channel is the close signal;
// the waiter turns it into SessionClosedError.
func (c *Controller) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for key, p := range c.pending {
		close(p.response)
		delete(c.pending, key)
	}
}

// readLoop reads messages from the transport and routes them.
func (c *Controller) readLoop(
	messages <-chan *jsonrpc.Message,
	errs <-chan error,
) {
	defer c.log.Debug("Protocol read loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Message channel closed")
				c.SetFatalError(errors.ErrTransportNotConnected)
				c.failPending()

				return
			}

			c.handleMessage(msg)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if framingErr, isFraming := stderrors.AsType[*errors.FramingError](err); isFraming && !framingErr.Fatal {
				c.log.Warn("Dropped malformed frame", "error", err)
				c.sendResponse(jsonrpc.NewErrorResponse(jsonrpc.ID{},
					jsonrpc.NewError(jsonrpc.CodeParseError, framingErr.Error(), nil)))

				continue
			}

			c.log.Error("Transport error in protocol", "error", err)
			c.SetFatalError(err)
			c.failPending()

			return

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return
		}
	}
}

// handleMessage routes a message based on its kind.
func (c *Controller) handleMessage(msg *jsonrpc.Message) {
	switch msg.Kind() {
	case jsonrpc.KindResponse, jsonrpc.KindError:
		c.handleResponse(msg)

	case jsonrpc.KindRequest:
		c.handleRequest(msg)

	case jsonrpc.KindNotification:
		c.handleNotification(msg)

	default:
		c.log.Warn("Dropping message of unknown kind")
	}
}

// handleResponse routes a response to the waiting request.
func (c *Controller) handleResponse(msg *jsonrpc.Message) {
	key := msg.ID.Key()

	c.pendingMu.Lock()

	pending, exists := c.pending[key]
	if exists {
		delete(c.pending, key)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.protocolErrors.Add(1)

		perr := &errors.ProtocolError{ID: msg.ID.String(), Reason: "no pending request for response"}
		c.log.Warn("Dropping unmatched response", "error", perr)

		return
	}

	// Buffered and claimed under the lock, so this never blocks.
	pending.response <- msg
}

// handleRequest invokes the registered handler for an incoming request.
func (c *Controller) handleRequest(msg *jsonrpc.Message) {
	c.handlersMu.RLock()
	handler, exists := c.handlers[msg.Method]
	gate := c.gate
	c.handlersMu.RUnlock()

	c.log.Debug("Received request", "id", msg.ID, "method", msg.Method)

	if gate != nil {
		if err := gate(msg.Method); err != nil {
			c.sendResponse(jsonrpc.NewErrorResponse(msg.ID, ToWireError(err)))

			return
		}
	}

	if !exists {
		c.log.Debug("No handler registered", "method", msg.Method)
		c.sendResponse(jsonrpc.NewErrorResponse(msg.ID,
			jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "method not found: "+msg.Method, nil)))

		return
	}

	key := msg.ID.Key()
	opCtx, cancel := context.WithCancelCause(c.runCtx)

	c.inFlightMu.Lock()
	c.inFlight[key] = &inFlightOperation{method: msg.Method, cancel: cancel, startTime: time.Now()}
	c.inFlightMu.Unlock()

	// Run handler in goroutine so the read loop can process cancellations and
	// the responses to nested requests the handler makes.
	c.wg.Go(func() {
		defer func() {
			c.inFlightMu.Lock()
			delete(c.inFlight, key)
			c.inFlightMu.Unlock()

			cancel(nil)
		}()

		result, err := handler(opCtx, msg)

		switch {
		case stderrors.Is(err, errResponded):
			return
		case opCtx.Err() != nil:
			c.log.Debug("Handler was cancelled", "id", msg.ID, "method", msg.Method, "cause", context.Cause(opCtx))

			return
		case err != nil:
			c.log.Debug("Handler returned error", "id", msg.ID, "method", msg.Method, "error", err)
			c.sendResponse(jsonrpc.NewErrorResponse(msg.ID, ToWireError(err)))

			return
		}

		resp, err := jsonrpc.NewResultResponse(msg.ID, result)
		if err != nil {
			c.log.Error("Failed to marshal result", "method", msg.Method, "error", err)
			c.sendResponse(jsonrpc.NewErrorResponse(msg.ID,
				jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)))

			return
		}

		c.sendResponse(resp)
	})
}

// handleNotification dispatches a notification. Cancellation is handled here.
func (c *Controller) handleNotification(msg *jsonrpc.Message) {
	if msg.Method == MethodCancelled {
		c.handleCancelled(msg)

		return
	}

	c.handlersMu.RLock()
	handler, exists := c.notifyHandlers[msg.Method]
	c.handlersMu.RUnlock()

	if !exists {
		c.log.Debug("Ignoring notification", "method", msg.Method)

		return
	}

	handler(c.runCtx, msg)
}

// handleCancelled cancels the in-flight handler named by the notification.
func (c *Controller) handleCancelled(msg *jsonrpc.Message) {
	var params cancelledParams
	if err := msg.DecodeParams(&params); err != nil || params.RequestID.IsZero() {
		c.log.Debug("Ignoring malformed cancellation", "error", err)

		return
	}

	c.inFlightMu.Lock()
	op, exists := c.inFlight[params.RequestID.Key()]
	c.inFlightMu.Unlock()

	if !exists {
		c.log.Debug("Cancellation for unknown request", "id", params.RequestID)

		return
	}

	c.log.Debug("Cancelling in-flight request",
		"id", params.RequestID,
		"method", op.method,
		"reason", params.Reason,
		"elapsed", time.Since(op.startTime),
	)

	op.cancel(errors.ErrOperationCancelled)
}

// reply sends an error response outside the normal handler return path. A handler
// that calls reply must return errResponded.
func (c *Controller) reply(id jsonrpc.ID, err error) {
	c.sendResponse(jsonrpc.NewErrorResponse(id, ToWireError(err)))
}

func (c *Controller) sendResponse(msg *jsonrpc.Message) {
	ctx, cancel := context.WithTimeout(c.runCtx, DefaultRequestTimeout)
	defer cancel()

	if err := c.transport.SendMessage(ctx, msg); err != nil {
		// Don't log error if the controller is shutting down
		if c.runCtx.Err() != nil {
			c.log.Debug("Could not send response during shutdown", "error", err)

			return
		}

		c.log.Error("Failed to send response", "error", err)
	}
}

func (c *Controller) sendCancelled(id jsonrpc.ID, reason string) {
	ctx, cancel := context.WithTimeout(c.runCtx, time.Second)
	defer cancel()

	if err := c.Notify(ctx, MethodCancelled, cancelledParams{RequestID: id, Reason: reason}); err != nil {
		c.log.Debug("Could not send cancellation", "id", id, "error", err)
	}
}

// generateRequestID creates a unique request ID using ULID.
func (c *Controller) generateRequestID() jsonrpc.ID {
	return jsonrpc.StringID(ulid.Make().String())
}

// CancelAllInFlight cancels all in-flight operations.
// This is called during Stop() to ensure clean shutdown.
func (c *Controller) CancelAllInFlight() {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()

	for _, op := range c.inFlight {
		op.cancel(errors.ErrSessionClosed)
	}
}
