package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIDMismatch is returned when a response does not echo the request ID
	ErrIDMismatch = errors.New("response id does not match request id")
	// ErrNoResult is returned when a response carries neither result nor error
	ErrNoResult = errors.New("response has neither result nor error")
)

// Response represents a JSON-RPC response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// HasError returns true if the response contains an error
func (r *Response) HasError() bool {
	return r.Error != nil
}

// ResultIsNull returns true if the response result is JSON null
func (r *Response) ResultIsNull() bool {
	if r == nil || len(r.Result) == 0 {
		return true
	}
	return bytes.Equal(r.Result, []byte("null"))
}

// NewResponse creates a successful response
func NewResponse(id uint64, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{
		JSONRPC: Version,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
		Result:  resultBytes,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(id uint64, err *Error) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
		Error:   err,
	}
}

// ParseResponse parses a JSON-RPC response from bytes
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bytes returns the response as JSON bytes
func (r *Response) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// CheckID verifies that the response answers request id. Servers answer with a
// null id when they could not parse the request at all, that is only accepted
// for error responses.
func (r *Response) CheckID(id uint64) error {
	raw := bytes.TrimSpace(r.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if r.Error != nil {
			return nil
		}
		return fmt.Errorf("%w: got null, want %d", ErrIDMismatch, id)
	}
	// Some servers quote numeric ids.
	raw = bytes.Trim(raw, `"`)
	got, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || got != id {
		return fmt.Errorf("%w: got %s, want %d", ErrIDMismatch, string(r.ID), id)
	}
	return nil
}

// Validate checks that the response carries exactly what a successful
// exchange needs: a matching id and either a result or an error.
func (r *Response) Validate(id uint64) error {
	if err := r.CheckID(id); err != nil {
		return err
	}
	if r.Error == nil && len(r.Result) == 0 {
		return ErrNoResult
	}
	return nil
}
