package ipc

import (
	"encoding/json"
	"fmt"
)

// Request kinds understood by the daemon. The request itself travels as
// whitespace separated text: "<kind> <args...>".
const (
	KindEvent      = "event"
	KindConfig     = "config"
	KindScratchpad = "scratchpad"
	KindStatus     = "status"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Response is the single JSON line the daemon writes back before closing the
// connection.
type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ConfigValue is the data of a config read.
type ConfigValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// Marshal converts a response to a newline terminated JSON line.
func (r *Response) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RemoteError is an error reported by the daemon.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "daemon error: " + e.Message
}
