// Package rpcerr defines the error taxonomy shared by the transport, the
// pool, the breaker and the client. Every error surfaced by the client is an
// *Error carrying a machine-readable Kind.
package rpcerr

import (
	"errors"
	"strings"

	"neorpc/internal/jsonrpc"
)

// Kind classifies an error
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: network unreachable, DNS, TCP/TLS failure, HTTP 5xx
	KindTransport
	// KindTimeout: the request exceeded its deadline
	KindTimeout
	// KindRateLimited: the node answered HTTP 429
	KindRateLimited
	// KindProtocol: malformed JSON, id mismatch, missing fields
	KindProtocol
	// KindRPC: the node returned a JSON-RPC error object
	KindRPC
	// KindCircuitOpen: the breaker short-circuited the request
	KindCircuitOpen
	// KindPoolExhausted: no pool permit became available in time
	KindPoolExhausted
	// KindPoolShutdown: the pool is closed
	KindPoolShutdown
	// KindSerialization: a result could not be decoded into its target type
	KindSerialization
	// KindConfig: invalid configuration at construction time
	KindConfig
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindTransport:     "transport",
	KindTimeout:       "timeout",
	KindRateLimited:   "rate limited",
	KindProtocol:      "protocol",
	KindRPC:           "rpc",
	KindCircuitOpen:   "circuit open",
	KindPoolExhausted: "pool exhausted",
	KindPoolShutdown:  "pool shutdown",
	KindSerialization: "serialization",
	KindConfig:        "config",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Sentinels matched by kind with errors.Is
var (
	ErrTransport     = &Error{Kind: KindTransport}
	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrRateLimited   = &Error{Kind: KindRateLimited}
	ErrProtocol      = &Error{Kind: KindProtocol}
	ErrRPC           = &Error{Kind: KindRPC}
	ErrCircuitOpen   = &Error{Kind: KindCircuitOpen}
	ErrPoolExhausted = &Error{Kind: KindPoolExhausted}
	ErrPoolShutdown  = &Error{Kind: KindPoolShutdown}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrConfig        = &Error{Kind: KindConfig}
)

// Error is a classified client error
type Error struct {
	Kind       Kind
	Method     string
	Endpoint   string
	Code       int64 // JSON-RPC error code, KindRPC only
	HTTPStatus int
	Message    string
	Err        error
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around err
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// FromRPC converts a JSON-RPC error object
func FromRPC(method, endpoint string, rpcErr *jsonrpc.Error) *Error {
	return &Error{
		Kind:     KindRPC,
		Method:   method,
		Endpoint: endpoint,
		Code:     rpcErr.Code,
		Message:  rpcErr.Message,
		Err:      rpcErr,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Method != "" {
		b.WriteString(": ")
		b.WriteString(e.Method)
	}
	if e.Endpoint != "" {
		b.WriteString(" @ ")
		b.WriteString(e.Endpoint)
	}
	switch {
	case e.Kind == KindRPC && e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "" && e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(": ")
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Retryable() {
		b.WriteString(" (retryable, try again later)")
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. A target carrying a method or an endpoint is
// not a sentinel and only matches itself.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Method != "" || t.Endpoint != "" || t.Err != nil || t.Message != "" {
		return e == t
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may retry the request later
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindRateLimited, KindCircuitOpen, KindPoolExhausted:
		return true
	case KindRPC:
		return jsonrpc.IsServerError(e.Code)
	default:
		return false
	}
}

// WithRequest fills in method and endpoint when they are not set yet
func (e *Error) WithRequest(method, endpoint string) *Error {
	if e.Method != "" && e.Endpoint != "" {
		return e
	}
	c := *e
	if c.Method == "" {
		c.Method = method
	}
	if c.Endpoint == "" {
		c.Endpoint = endpoint
	}
	return &c
}

// KindOf returns the kind of err, KindUnknown for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err suggests retrying later
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// IsConnectionFailure reports whether err means the connection itself is
// suspect. The pool drops the connection and retries on these.
func IsConnectionFailure(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindTimeout:
		return true
	default:
		return false
	}
}

// IsApplication reports whether err is an answer about the request rather
// than a failure of the node: non-server JSON-RPC errors, decode errors of
// typed wrappers and configuration errors.
func IsApplication(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindRPC:
		return !jsonrpc.IsServerError(e.Code)
	case KindSerialization, KindConfig:
		return true
	default:
		return false
	}
}
