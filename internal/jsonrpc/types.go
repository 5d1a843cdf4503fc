package jsonrpc

import (
	"encoding/json"
	"fmt"

	"go.uber.org/atomic"
)

// Version is the JSON-RPC version
const Version = "2.0"

// Standard JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Server error codes range: -32000 to -32099
	CodeServerErrorMax = -32000
	CodeServerErrorMin = -32099
)

// Neo N3 node error codes. These describe the request, not the node, and are
// returned for perfectly healthy servers.
const (
	CodeUnknownBlock        = -100
	CodeUnknownContract     = -101
	CodeUnknownTransaction  = -102
	CodeUnknownStorageItem  = -103
	CodeUnknownScript       = -104
	CodeUnknownStateRoot    = -105
	CodeUnknownSession      = -106
	CodeUnknownIterator     = -107
	CodeUnknownHeight       = -108
	CodeInsufficientFunds   = -300
	CodeVerificationFailed  = -500
	CodeAlreadyExists       = -501
	CodeMempoolCapReached   = -502
	CodeAlreadyInPool       = -503
	CodeInsufficientNetFee  = -504
	CodePolicyFailed        = -505
	CodeInvalidScript       = -506
	CodeExpiredTransaction  = -510
	CodeAccessDenied        = -600
	CodeSessionsDisabled    = -601
	CodeUnsupportedState    = -606
	CodeInvalidProof        = -607
	CodeExecutionFailed     = -608
)

var lastID = atomic.NewUint64(0)

// NextID returns a process-wide unique request identifier.
func NextID() uint64 {
	return lastID.Inc()
}

// Error represents a JSON-RPC error
type Error struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Code, string(e.Data))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// NewError creates a new JSON-RPC error
func NewError(code int64, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// IsServerError reports whether code says the node itself failed: internal
// errors and the implementation-defined server range. Every other code is an
// answer about the request.
func IsServerError(code int64) bool {
	if code == CodeInternalError {
		return true
	}
	return code >= CodeServerErrorMin && code <= CodeServerErrorMax
}
