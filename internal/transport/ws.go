package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"neorpc/internal/jsonrpc"
	"neorpc/internal/rpcerr"
)

var errWSClosed = errors.New("websocket connection closed")

// WS is a JSON-RPC transport over a single WebSocket connection. Requests are
// multiplexed on the socket and matched to responses by id.
type WS struct {
	endpoint       string
	requestTimeout time.Duration
	logger         zerolog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan *jsonrpc.Response
	err       error

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialWS connects to a ws(s) endpoint and starts the reader goroutine
func DialWS(ctx context.Context, endpoint string, opts Options) (*WS, error) {
	if _, err := ParseEndpoint(endpoint); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	logger := opts.Logger.With().Str("endpoint", endpoint).Logger()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, classify(ctx, "", endpoint, err)
	}
	conn.SetReadLimit(opts.MaxResponseSize)

	w := &WS{
		endpoint:       endpoint,
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
		conn:           conn,
		pending:        make(map[uint64]chan *jsonrpc.Response),
	}
	w.wg.Add(1)
	go w.readLoop()

	logger.Debug().Msg("WebSocket connected")
	return w, nil
}

// Endpoint returns the node URL
func (w *WS) Endpoint() string {
	return w.endpoint
}

// Fetch sends a JSON-RPC request over the socket and waits for its response
func (w *WS) Fetch(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	req := jsonrpc.NewRequest(method, params)
	reqBytes, err := req.Bytes()
	if err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindSerialization, Method: method, Endpoint: w.endpoint,
			Message: "failed to marshal request", Err: err}
	}

	respChan := make(chan *jsonrpc.Response, 1)
	w.pendingMu.Lock()
	if w.err != nil {
		closedErr := w.err
		w.pendingMu.Unlock()
		return nil, &rpcerr.Error{Kind: rpcerr.KindTransport, Method: method, Endpoint: w.endpoint, Err: closedErr}
	}
	w.pending[req.ID] = respChan
	w.pendingMu.Unlock()

	defer func() {
		w.pendingMu.Lock()
		delete(w.pending, req.ID)
		w.pendingMu.Unlock()
	}()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(w.requestTimeout)
	}

	w.writeMu.Lock()
	_ = w.conn.SetWriteDeadline(deadline)
	writeErr := w.conn.WriteMessage(websocket.TextMessage, reqBytes)
	w.writeMu.Unlock()
	if writeErr != nil {
		w.fail(writeErr)
		return nil, classify(ctx, method, w.endpoint, writeErr)
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case resp := <-respChan:
		if resp == nil {
			return nil, &rpcerr.Error{Kind: rpcerr.KindTransport, Method: method, Endpoint: w.endpoint, Err: w.closeErr()}
		}
		if resp.HasError() {
			return nil, rpcerr.FromRPC(method, w.endpoint, resp.Error)
		}
		if len(resp.Result) == 0 {
			return nil, &rpcerr.Error{Kind: rpcerr.KindProtocol, Method: method, Endpoint: w.endpoint, Err: jsonrpc.ErrNoResult}
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, classify(ctx, method, w.endpoint, ctx.Err())
	case <-timer.C:
		return nil, &rpcerr.Error{Kind: rpcerr.KindTimeout, Method: method, Endpoint: w.endpoint,
			Message: "no response before deadline"}
	}
}

// Close closes the socket and fails all pending requests
func (w *WS) Close() error {
	w.fail(errWSClosed)
	w.wg.Wait()
	return nil
}

func (w *WS) readLoop() {
	defer w.wg.Done()

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.fail(err)
			return
		}

		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			w.logger.Debug().Err(err).Msg("dropping malformed WebSocket message")
			continue
		}
		id, ok := parseID(resp.ID)
		if !ok {
			// Notifications carry no id.
			continue
		}

		w.pendingMu.Lock()
		ch := w.pending[id]
		delete(w.pending, id)
		w.pendingMu.Unlock()

		if ch != nil {
			ch <- resp
		}
	}
}

// fail marks the connection dead and wakes every waiting request
func (w *WS) fail(err error) {
	w.closeOnce.Do(func() {
		w.pendingMu.Lock()
		w.err = err
		for id, ch := range w.pending {
			close(ch)
			delete(w.pending, id)
		}
		w.pendingMu.Unlock()

		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		w.writeMu.Unlock()
		_ = w.conn.Close()

		if !errors.Is(err, errWSClosed) {
			w.logger.Warn().Err(err).Msg("WebSocket connection lost")
		}
	})
}

func (w *WS) closeErr() error {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.err == nil {
		return errWSClosed
	}
	return w.err
}

func parseID(raw json.RawMessage) (uint64, bool) {
	raw = bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(raw) == 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
