package rpc

import (
	"errors"
	"reflect"

	gojson "github.com/goccy/go-json"
)

// MessageType enumerates the four shapes a JSON-RPC 2.0 value can take.
type MessageType string

const (
	MessageTypeRequest      MessageType = "request"
	MessageTypeNotification MessageType = "notification"
	MessageTypeResponse     MessageType = "response"
	MessageTypeError        MessageType = "error"
)

// Message is a tagged union over the four JSON-RPC message shapes (spec §3
// "RpcMessage: tagged union {request, notification, response, error}").
type Message struct {
	Type         MessageType
	Request      *Request
	Notification *Notification
	Response     *Response
	ErrorMessage *Error
}

// Method returns the method name carried by a request message, or "" otherwise.
func (m *Message) Method() string {
	if m.Type == MessageTypeRequest && m.Request != nil {
		return m.Request.Method
	}
	return ""
}

// IsError reports whether this message is (or carries) a JSON-RPC error.
func (m *Message) IsError() bool {
	if m.Type == MessageTypeError {
		return true
	}
	return m.Type == MessageTypeResponse && m.Response != nil && m.Response.Error != nil
}

// MarshalJSON serializes the active variant.
func (m *Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageTypeRequest:
		return gojson.Marshal(m.Request)
	case MessageTypeNotification:
		return gojson.Marshal(m.Notification)
	case MessageTypeResponse:
		return gojson.Marshal(m.Response)
	case MessageTypeError:
		return gojson.Marshal(m.ErrorMessage)
	default:
		return nil, errors.New("rpc: unknown message type, cannot marshal")
	}
}

// NewRequestMessage wraps a Request.
func NewRequestMessage(r *Request) *Message { return &Message{Type: MessageTypeRequest, Request: r} }

// NewNotificationMessage wraps a Notification.
func NewNotificationMessage(n *Notification) *Message {
	return &Message{Type: MessageTypeNotification, Notification: n}
}

// NewResponseMessage wraps a Response.
func NewResponseMessage(r *Response) *Message {
	return &Message{Type: MessageTypeResponse, Response: r}
}

// NewErrorMessage wraps an Error.
func NewErrorMessage(e *Error) *Message { return &Message{Type: MessageTypeError, ErrorMessage: e} }

// DetectMessageType sniffs the shape of a raw JSON-RPC payload without fully
// decoding it, used by dual-mode MCP dispatch to route a parsed value before
// committing to a concrete Go type.
func DetectMessageType(data []byte) MessageType {
	probe := &struct {
		Id     *RequestId `json:"id"`
		Method string     `json:"method"`
	}{}
	_ = gojson.Unmarshal(data, probe)
	if probe.Id == nil {
		return MessageTypeNotification
	}
	if probe.Method != "" {
		return MessageTypeRequest
	}
	return MessageTypeResponse
}

// ParseMessage decodes a single raw JSON-RPC value into a Message, choosing
// the concrete type via DetectMessageType. An error response (jsonrpc error
// without a request id context) still decodes as MessageTypeResponse since
// the wire shape is identical; callers distinguish via Message.IsError.
func ParseMessage(data []byte) (*Message, error) {
	switch DetectMessageType(data) {
	case MessageTypeRequest:
		req := &Request{}
		if err := gojson.Unmarshal(data, req); err != nil {
			return nil, err
		}
		return NewRequestMessage(req), nil
	case MessageTypeNotification:
		n := &Notification{}
		if err := gojson.Unmarshal(data, n); err != nil {
			return nil, err
		}
		return NewNotificationMessage(n), nil
	default:
		resp := &Response{}
		if err := gojson.Unmarshal(data, resp); err != nil {
			return nil, err
		}
		return NewResponseMessage(resp), nil
	}
}

// AsRequestIntId best-effort converts a numeric RequestId to an int, so that
// EqualRequestId can compare ids of different numeric types.
func AsRequestIntId(id RequestId) (int, bool) {
	switch v := id.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case uint64:
		return int(v), true
	}
	return 0, false
}

// EqualRequestId compares two ids, tolerating the int/float64 mismatch that
// JSON round-tripping through interface{} routinely introduces.
func EqualRequestId(a, b RequestId) bool {
	at, bt := reflect.TypeOf(a), reflect.TypeOf(b)
	if at == nil || bt == nil {
		return at == bt
	}
	if at.Kind() == bt.Kind() {
		return a == b
	}
	ai, aok := AsRequestIntId(a)
	bi, bok := AsRequestIntId(b)
	return aok && bok && ai == bi
}
