package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only JSON-RPC version accepted.
const Version = "2.0"

// Kind classifies a message.
type Kind int

// Message kinds.
const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Message is a decoded JSON-RPC 2.0 envelope.
type Message struct {
	ID     ID
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *Error

	kind Kind
}

// wireMessage is the on-the-wire shape. Raw fields keep presence information that a
// typed struct would lose.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// NewRequest builds a request with params marshaled from v.
func NewRequest(id ID, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	return &Message{ID: id, Method: method, Params: raw, kind: KindRequest}, nil
}

// NewNotification builds a notification with params marshaled from v.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	return &Message{Method: method, Params: raw, kind: KindNotification}, nil
}

// NewResultResponse builds a successful response.
func NewResultResponse(id ID, result any) (*Message, error) {
	if result == nil {
		result = struct{}{}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return &Message{ID: id, Result: raw, kind: KindResponse}, nil
}

// NewErrorResponse builds an error response. id may be zero when the request id
// could not be determined.
func NewErrorResponse(id ID, rpcErr *Error) *Message {
	return &Message{ID: id, Error: rpcErr, kind: KindError}
}

// Kind returns the message kind.
func (m *Message) Kind() Kind {
	if m.kind != KindInvalid {
		return m.kind
	}

	return classify(m)
}

// IsResponse reports whether the message answers a request.
func (m *Message) IsResponse() bool {
	k := m.Kind()

	return k == KindResponse || k == KindError
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		JSONRPC: Version,
		Method:  m.Method,
		Params:  m.Params,
	}

	switch m.Kind() {
	case KindRequest:
		w.ID, _ = json.Marshal(m.ID)
	case KindNotification:
	case KindResponse:
		w.ID, _ = json.Marshal(m.ID)
		w.Result = m.Result
	case KindError:
		// Error responses always carry an id, null when unknown.
		w.ID, _ = json.Marshal(m.ID)

		errData, err := json.Marshal(m.Error)
		if err != nil {
			return nil, fmt.Errorf("marshal error object: %w", err)
		}

		w.Error = errData
	default:
		return nil, errors.New("message is neither request, notification nor response")
	}

	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler and validates the envelope.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.JSONRPC != Version {
		return fmt.Errorf("unsupported jsonrpc version %q", w.JSONRPC)
	}

	out := Message{Method: w.Method, Params: w.Params, Result: w.Result}

	hasID := len(w.ID) > 0
	if hasID {
		if err := json.Unmarshal(w.ID, &out.ID); err != nil {
			return err
		}
	}

	if len(w.Error) > 0 && string(w.Error) != "null" {
		var e Error
		if err := json.Unmarshal(w.Error, &e); err != nil {
			return fmt.Errorf("decode error object: %w", err)
		}

		out.Error = &e
	}

	switch {
	case w.Method != "" && (len(w.Result) > 0 || out.Error != nil):
		return errors.New("message has both method and result/error")
	case w.Method != "" && hasID && out.ID.IsZero():
		return errors.New("request id must not be null")
	case w.Method != "" && hasID:
		out.kind = KindRequest
	case w.Method != "":
		out.kind = KindNotification
	case len(w.Result) > 0 && out.Error != nil:
		return errors.New("response has both result and error")
	case len(w.Result) > 0 && !out.ID.IsZero():
		out.kind = KindResponse
	case out.Error != nil && hasID:
		out.kind = KindError
	default:
		return errors.New("message is neither request, notification nor response")
	}

	*m = out

	return nil
}

// DecodeParams unmarshals the params of a request or notification into v.
// Absent params decode as an empty object.
func (m *Message) DecodeParams(v any) error {
	if len(m.Params) == 0 || string(m.Params) == "null" {
		return json.Unmarshal([]byte("{}"), v)
	}

	return json.Unmarshal(m.Params, v)
}

func classify(m *Message) Kind {
	switch {
	case m.Method != "" && !m.ID.IsZero():
		return KindRequest
	case m.Method != "":
		return KindNotification
	case m.Error != nil:
		return KindError
	case len(m.Result) > 0:
		return KindResponse
	default:
		return KindInvalid
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}

	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}

	return json.Marshal(params)
}
