package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/wagiedev/mcp-agent-go/internal/errors"
	"github.com/wagiedev/mcp-agent-go/internal/jsonrpc"
)

// RequestHandler handles an incoming request. The returned value is marshaled as
// the response result; a returned error is mapped with ToWireError.
//
// The context is cancelled if the peer sends notifications/cancelled for the
// request or the connection closes.
type RequestHandler func(ctx context.Context, req *jsonrpc.Message) (any, error)

// NotificationHandler handles an incoming notification.
type NotificationHandler func(ctx context.Context, msg *jsonrpc.Message)

// errResponded tells the controller a handler already sent its own response.
var errResponded = stderrors.New("response already sent")

// cancelledParams is the payload of notifications/cancelled.
type cancelledParams struct {
	RequestID jsonrpc.ID `json:"requestId"`
	Reason    string     `json:"reason,omitempty"`
}

// Error data types carried in the JSON-RPC error data field so the receiving side
// can rebuild the typed error.
const (
	dataTypeValidation = "validation"
	dataTypeNotFound   = "not_found"
	dataTypeInvocation = "invocation"
	dataTypeHandshake  = "handshake"
)

// errorData is the structured payload of the JSON-RPC error data field.
type errorData struct {
	Type      string   `json:"type,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Name      string   `json:"name,omitempty"`
	Param     string   `json:"param,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	URI       string   `json:"uri,omitempty"`
	Supported []string `json:"supported,omitempty"`
	Requested string   `json:"requested,omitempty"`
}

// ToWireError maps an error from a request handler to a JSON-RPC error object.
func ToWireError(err error) *jsonrpc.Error {
	if rpcErr, ok := stderrors.AsType[*jsonrpc.Error](err); ok {
		return rpcErr
	}

	if valErr, ok := stderrors.AsType[*errors.ValidationError](err); ok {
		return jsonrpc.NewError(jsonrpc.CodeInvalidParams, valErr.Error(), errorData{
			Type:   dataTypeValidation,
			Kind:   valErr.Kind,
			Name:   valErr.Name,
			Param:  valErr.Param,
			Reason: valErr.Reason,
		})
	}

	if nfErr, ok := stderrors.AsType[*errors.NotFoundError](err); ok {
		data := errorData{Type: dataTypeNotFound, Kind: nfErr.Kind, Name: nfErr.Name}

		if nfErr.Kind == "resource" {
			data.URI = nfErr.Name

			return jsonrpc.NewError(jsonrpc.CodeResourceNotFound, nfErr.Error(), data)
		}

		return jsonrpc.NewError(jsonrpc.CodeInvalidParams, nfErr.Error(), data)
	}

	if hsErr, ok := stderrors.AsType[*errors.HandshakeError](err); ok {
		return jsonrpc.NewError(jsonrpc.CodeInvalidParams, "unsupported protocol version", errorData{
			Type:      dataTypeHandshake,
			Supported: hsErr.Supported,
			Requested: hsErr.Received,
		})
	}

	if invErr, ok := stderrors.AsType[*errors.InvocationError](err); ok {
		return jsonrpc.NewError(jsonrpc.CodeInvocationFailed, invErr.Error(), errorData{
			Type: dataTypeInvocation,
			Kind: invErr.Kind,
			Name: invErr.Name,
		})
	}

	switch {
	case stderrors.Is(err, errors.ErrNotInitialized),
		stderrors.Is(err, errors.ErrAlreadyInitialized),
		stderrors.Is(err, errors.ErrSessionClosed):
		return jsonrpc.NewError(jsonrpc.CodeInvalidRequest, err.Error(), nil)
	}

	return jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)
}

// FromWireError maps a JSON-RPC error object received from the peer back into the
// error taxonomy.
func FromWireError(method string, rpcErr *jsonrpc.Error) error {
	var data errorData

	raw, _ := json.Marshal(rpcErr.Data)
	_ = json.Unmarshal(raw, &data)

	switch data.Type {
	case dataTypeValidation:
		return &errors.ValidationError{Kind: data.Kind, Name: data.Name, Param: data.Param, Reason: data.Reason}
	case dataTypeNotFound:
		return &errors.NotFoundError{Kind: data.Kind, Name: data.Name}
	case dataTypeInvocation:
		return &errors.InvocationError{Kind: data.Kind, Name: data.Name, Err: stderrors.New(rpcErr.Message)}
	case dataTypeHandshake:
		return &errors.HandshakeError{Received: data.Requested, Supported: data.Supported}
	}

	switch rpcErr.Code {
	case jsonrpc.CodeInvalidParams:
		return &errors.ValidationError{Reason: rpcErr.Message}
	case jsonrpc.CodeResourceNotFound:
		name := data.URI
		if name == "" {
			name = rpcErr.Message
		}

		return &errors.NotFoundError{Kind: "resource", Name: name}
	case jsonrpc.CodeInvocationFailed:
		return &errors.InvocationError{Kind: "method", Name: method, Err: stderrors.New(rpcErr.Message)}
	}

	var rawData json.RawMessage
	if rpcErr.Data != nil {
		rawData = raw
	}

	return &errors.RPCError{Code: rpcErr.Code, Message: rpcErr.Message, Data: rawData}
}
