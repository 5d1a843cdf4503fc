package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"neorpc/internal/jsonrpc"
	"neorpc/internal/rpcerr"
)

// HTTP is a JSON-RPC transport over HTTP(S) POST requests
type HTTP struct {
	endpoint   string
	httpClient *http.Client
	maxBody    int64
	logger     zerolog.Logger
}

// NewHTTP creates a new HTTP transport bound to endpoint
func NewHTTP(endpoint string, opts Options) (*HTTP, error) {
	if _, err := ParseEndpoint(endpoint); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTP{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.RequestTimeout,
		},
		maxBody: opts.MaxResponseSize,
		logger:  opts.Logger.With().Str("endpoint", endpoint).Logger(),
	}, nil
}

// Endpoint returns the node URL
func (t *HTTP) Endpoint() string {
	return t.endpoint
}

// Fetch sends a JSON-RPC request and returns the result field
func (t *HTTP) Fetch(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	req := jsonrpc.NewRequest(method, params)
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindSerialization, Method: method, Endpoint: t.endpoint,
			Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Method: method, Endpoint: t.endpoint,
			Message: "failed to create HTTP request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.logger.Debug().Err(err).Str("method", method).Uint64("id", req.ID).Msg("HTTP request failed")
		return nil, classify(ctx, method, t.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, classify(ctx, method, t.endpoint, err)
	}
	if int64(len(body)) > t.maxBody {
		return nil, &rpcerr.Error{Kind: rpcerr.KindProtocol, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("response exceeds %d bytes", t.maxBody)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rpcerr.Error{Kind: rpcerr.KindRateLimited, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Message: "HTTP 429 Too Many Requests"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &rpcerr.Error{Kind: rpcerr.KindTransport, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Message: httpStatusMessage(resp.StatusCode, body)}
	}

	// The node might send a proper JSON-RPC error with a non-2xx status, it
	// is more relevant than the status itself.
	rpcResp, err := jsonrpc.ParseResponse(body)
	if err != nil {
		msg := "malformed JSON response"
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg = httpStatusMessage(resp.StatusCode, body)
		}
		return nil, &rpcerr.Error{Kind: rpcerr.KindProtocol, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Message: msg, Err: err}
	}
	if err := rpcResp.Validate(req.ID); err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindProtocol, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Err: err}
	}
	if rpcResp.HasError() {
		rpcErr := rpcerr.FromRPC(method, t.endpoint, rpcResp.Error)
		rpcErr.HTTPStatus = resp.StatusCode
		return nil, rpcErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &rpcerr.Error{Kind: rpcerr.KindProtocol, Method: method, Endpoint: t.endpoint,
			HTTPStatus: resp.StatusCode, Message: httpStatusMessage(resp.StatusCode, body)}
	}

	return rpcResp.Result, nil
}

// Close releases idle sockets
func (t *HTTP) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func httpStatusMessage(status int, body []byte) string {
	const maxBody = 256
	text := bytes.TrimSpace(body)
	if len(text) > maxBody {
		text = text[:maxBody]
	}
	if len(text) == 0 {
		return fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return fmt.Sprintf("HTTP %d %s: %s", status, http.StatusText(status), text)
}
