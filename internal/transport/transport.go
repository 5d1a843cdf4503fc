// Package transport implements single JSON-RPC calls against one Neo node
// endpoint. It does not retry, cache or pool; those live above it.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"neorpc/internal/rpcerr"
)

const (
	defaultConnectTimeout = 4 * time.Second
	defaultRequestTimeout = 4 * time.Second
	// DefaultMaxResponseSize fits the largest blocks a node returns
	DefaultMaxResponseSize = 64 << 20
)

// Fetcher performs one JSON-RPC call and returns the raw result
type Fetcher interface {
	Fetch(ctx context.Context, method string, params []any) (json.RawMessage, error)
	Endpoint() string
	Close() error
}

// Options configures a transport
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// MaxConnsPerHost limits sockets per transport, 0 means no limit
	MaxConnsPerHost int
	// MaxResponseSize caps the body of one response in bytes
	MaxResponseSize int64
	Logger          zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.MaxResponseSize <= 0 {
		o.MaxResponseSize = DefaultMaxResponseSize
	}
}

// New returns a transport for endpoint chosen by its scheme: http(s) or ws(s)
func New(ctx context.Context, endpoint string, opts Options) (Fetcher, error) {
	u, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "ws", "wss":
		return DialWS(ctx, endpoint, opts)
	default:
		return NewHTTP(endpoint, opts)
	}
}

// ParseEndpoint validates an absolute http(s) or ws(s) URL
func ParseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: endpoint, Message: "invalid endpoint", Err: err}
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: endpoint,
			Message: fmt.Sprintf("unsupported endpoint scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: endpoint, Message: "endpoint host is empty"}
	}
	return u, nil
}

// classify turns a low-level I/O error into a client error. Caller
// cancellation is passed through untouched so that callers can tell it apart
// from node failures.
func classify(ctx context.Context, method, endpoint string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	kind := rpcerr.KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = rpcerr.KindTimeout
	}
	return &rpcerr.Error{
		Kind:     kind,
		Method:   method,
		Endpoint: endpoint,
		Err:      err,
	}
}
