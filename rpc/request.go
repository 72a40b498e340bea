package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	gojson "github.com/goccy/go-json"
)

// RequestId is the type used to represent the id of a JSON-RPC request.
type RequestId any

var idCounter uint64

// NextRequestId returns a monotonic decimal string id, used when a Request is
// created without an explicit id (spec §3 RpcMessage: "auto-assigned monotonic
// decimal string when request and caller omits it").
func NextRequestId() string {
	return strconv.FormatUint(atomic.AddUint64(&idCounter, 1), 10)
}

// InnerError carries the error payload of a JSON-RPC error response.
type InnerError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	Id      RequestId       `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON validates the required fields of a JSON-RPC request.
func (m *Request) UnmarshalJSON(data []byte) error {
	required := struct {
		Id      *RequestId       `json:"id"`
		Jsonrpc *string          `json:"jsonrpc"`
		Method  *string          `json:"method"`
		Params  *json.RawMessage `json:"params"`
	}{}
	if err := gojson.Unmarshal(data, &required); err != nil {
		return err
	}
	if required.Id == nil {
		return errors.New("field id in Request: required")
	}
	if required.Jsonrpc == nil {
		return errors.New("field jsonrpc in Request: required")
	}
	if required.Method == nil {
		return errors.New("field method in Request: required")
	}
	if required.Params == nil {
		required.Params = new(json.RawMessage)
	}
	m.Id = *required.Id
	m.Jsonrpc = *required.Jsonrpc
	m.Method = *required.Method
	m.Params = *required.Params
	return nil
}

// NewRequest builds a Request, auto-assigning an id when id is nil.
// parameters is encoded per asParameters: raw string/[]byte/json.RawMessage are
// passed through verbatim, anything else is JSON-marshaled. An empty payload
// (nil parameters) serializes as an empty object, not an empty array, per
// spec §3 RpcMessage.
func NewRequest(id RequestId, method string, parameters interface{}) (*Request, error) {
	params, err := asParameters(method, parameters)
	if err != nil {
		return nil, err
	}
	if id == nil {
		id = NextRequestId()
	}
	return &Request{Id: id, Jsonrpc: Version, Method: method, Params: params}, nil
}

func asParameters(method string, parameters interface{}) (json.RawMessage, error) {
	switch actual := parameters.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case string:
		if actual == "" {
			return json.RawMessage(`{}`), nil
		}
		return []byte(actual), nil
	case []byte:
		if len(actual) == 0 {
			return json.RawMessage(`{}`), nil
		}
		return actual, nil
	case json.RawMessage:
		if len(actual) == 0 {
			return json.RawMessage(`{}`), nil
		}
		return actual, nil
	default:
		data, err := gojson.Marshal(actual)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal jsonrpc request parameters [method:%v]: %w", method, err)
		}
		return data, nil
	}
}

// Notification represents a JSON-RPC 2.0 notification (a Request without an id).
type Notification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON validates the required fields of a JSON-RPC notification and
// rejects a payload carrying an id (notifications must not have one).
func (m *Notification) UnmarshalJSON(data []byte) error {
	required := struct {
		Jsonrpc *string `json:"jsonrpc"`
		Method  *string `json:"method"`
		Id      *int64  `json:"id"`
	}{}
	if err := gojson.Unmarshal(data, &required); err != nil {
		return err
	}
	if required.Jsonrpc == nil {
		return errors.New("field jsonrpc in Notification: required")
	}
	if required.Method == nil {
		return errors.New("field method in Notification: required")
	}
	if required.Id != nil {
		return errors.New("field id in Notification: not allowed")
	}
	m.Jsonrpc = *required.Jsonrpc
	m.Method = *required.Method
	return nil
}

// NewNotification builds a Notification, defaulting empty parameters to {}.
func NewNotification(method string, parameters interface{}) (*Notification, error) {
	params, err := asParameters(method, parameters)
	if err != nil {
		return nil, err
	}
	return &Notification{Jsonrpc: Version, Method: method, Params: params}, nil
}

// Response represents a JSON-RPC 2.0 success or error response.
type Response struct {
	Id      RequestId       `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Error   *Error          `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// NewResponse creates a successful Response carrying data as its result.
func NewResponse(id RequestId, data []byte) *Response {
	return &Response{Id: id, Jsonrpc: Version, Result: data}
}

// UnmarshalJSON validates the required fields of a JSON-RPC response: either
// Result or Error must be present.
func (m *Response) UnmarshalJSON(data []byte) error {
	required := struct {
		Id      *RequestId       `json:"id"`
		Jsonrpc *string          `json:"jsonrpc"`
		Result  *json.RawMessage `json:"result"`
		Error   *Error           `json:"error"`
	}{}
	if err := gojson.Unmarshal(data, &required); err != nil {
		return err
	}
	if required.Id == nil {
		return errors.New("field id in Response: required")
	}
	if required.Jsonrpc == nil {
		return errors.New("field jsonrpc in Response: required")
	}
	m.Id = *required.Id
	m.Jsonrpc = *required.Jsonrpc
	if required.Result != nil {
		m.Result = *required.Result
	}
	m.Error = required.Error
	if required.Result == nil && required.Error == nil {
		return errors.New("field result in Response: required when error is absent")
	}
	return nil
}

// Error represents a standalone JSON-RPC 2.0 error response (id + error, no result).
type Error struct {
	Id      RequestId  `json:"id"`
	Jsonrpc string     `json:"jsonrpc"`
	Error   InnerError `json:"error"`
}

// NewError builds an Error response for requestId.
func NewError(requestId RequestId, inner InnerError) *Error {
	return &Error{Id: requestId, Jsonrpc: Version, Error: inner}
}

// NewInnerError builds an InnerError payload.
func NewInnerError(code int, message string, data interface{}) InnerError {
	return InnerError{Code: code, Message: message, Data: data}
}
