package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

const jsonRPCVersion = "2.0"

// JSON-RPC 2.0 error codes
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternal       = -32603
)

// ErrMissingMethod is returned by DecodeRequest for a JSON object without a method.
var ErrMissingMethod = errors.New("message has no method")

// Request is an inbound message: a request when HasID is true, otherwise a
// notification. ID holds the caller's id bytes verbatim, including a JSON null.
// JSONRPC is empty when the message carries no version tag; a non-string tag
// is kept as its raw JSON text.
type Request struct {
	JSONRPC string
	ID      json.RawMessage
	HasID   bool
	Method  string
	Params  json.RawMessage
}

// DecodeRequest parses one frame into a Request. The frame must be a JSON
// object carrying a non-empty string method.
func DecodeRequest(line []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("invalid JSON: message is not an object")
	}

	req := &Request{}

	rawMethod, ok := fields["method"]
	if !ok {
		return nil, ErrMissingMethod
	}
	if err := json.Unmarshal(rawMethod, &req.Method); err != nil {
		return nil, fmt.Errorf("method must be a string: %w", err)
	}
	if req.Method == "" {
		return nil, ErrMissingMethod
	}

	if v, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(v, &req.JSONRPC); err != nil {
			req.JSONRPC = string(v)
		}
	}
	if id, ok := fields["id"]; ok {
		req.ID = id
		req.HasID = true
	}
	if params, ok := fields["params"]; ok && string(params) != "null" {
		req.Params = params
	}

	return req, nil
}

// Response represents a JSON-RPC response message.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResultResponse builds a result envelope for id.
func NewResultResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse builds an error envelope for id.
func NewErrorResponse(id json.RawMessage, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError returns an internal-error class *Error with the given message.
func NewError(format string, args ...interface{}) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// asError converts any error into a JSON-RPC error object, keeping the code
// of an *Error and mapping everything else to ErrorCodeInternal.
func asError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: ErrorCodeInternal, Message: err.Error()}
}
