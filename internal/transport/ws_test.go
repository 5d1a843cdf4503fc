package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorpc/internal/jsonrpc"
	"neorpc/internal/rpcerr"
)

func newWSServer(t *testing.T, respond func(req jsonrpc.Request) *jsonrpc.Response) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req jsonrpc.Request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := respond(req)
			if resp == nil {
				continue
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWS_Fetch(t *testing.T) {
	srv := newWSServer(t, func(req jsonrpc.Request) *jsonrpc.Response {
		if req.Method == "getblock" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeUnknownBlock, "Unknown block"))
		}
		resp, _ := jsonrpc.NewResponse(req.ID, 42)
		return resp
	})
	defer srv.Close()

	ctx := context.Background()
	tr, err := New(ctx, wsURL(srv.URL), Options{RequestTimeout: time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer tr.Close()
	require.IsType(t, &WS{}, tr)

	res, err := tr.Fetch(ctx, "getblockcount", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", string(res))

	_, err = tr.Fetch(ctx, "getblock", []any{1})
	assert.ErrorIs(t, err, rpcerr.ErrRPC)
}

func TestWS_NoResponseTimesOut(t *testing.T) {
	srv := newWSServer(t, func(req jsonrpc.Request) *jsonrpc.Response { return nil })
	defer srv.Close()

	tr, err := DialWS(context.Background(), wsURL(srv.URL), Options{RequestTimeout: 50 * time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Fetch(context.Background(), "getversion", nil)
	assert.ErrorIs(t, err, rpcerr.ErrTimeout)
}

func TestWS_ClosedConnectionFailsPending(t *testing.T) {
	srv := newWSServer(t, func(req jsonrpc.Request) *jsonrpc.Response { return nil })
	defer srv.Close()

	tr, err := DialWS(context.Background(), wsURL(srv.URL), Options{RequestTimeout: 5 * time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := tr.Fetch(context.Background(), "getversion", nil)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, tr.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, rpcerr.ErrTransport)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not released")
	}

	_, err = tr.Fetch(context.Background(), "getversion", nil)
	assert.ErrorIs(t, err, rpcerr.ErrTransport)
}

func TestNew_HTTPScheme(t *testing.T) {
	tr, err := New(context.Background(), "http://localhost:10332", Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, tr)
}
