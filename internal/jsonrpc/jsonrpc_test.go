package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_Encoding(t *testing.T) {
	req := NewRequest("getblockcount", nil)
	data, err := req.Bytes()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2.0", decoded["jsonrpc"])
	assert.Equal(t, "getblockcount", decoded["method"])
	assert.Equal(t, []any{}, decoded["params"])
	assert.EqualValues(t, req.ID, decoded["id"])
	require.NoError(t, req.Validate())
}

func TestNextID_Monotonic(t *testing.T) {
	prev := NextID()
	for i := 0; i < 100; i++ {
		next := NextID()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestResponse_Validate(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","id":7,"result":12345}`))
	require.NoError(t, err)
	require.NoError(t, resp.Validate(7))
	assert.ErrorIs(t, resp.Validate(8), ErrIDMismatch)

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","id":"7","result":null}`))
	require.NoError(t, err)
	require.NoError(t, resp.Validate(7))
	assert.True(t, resp.ResultIsNull())

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","id":7}`))
	require.NoError(t, err)
	assert.ErrorIs(t, resp.Validate(7), ErrNoResult)

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`))
	require.NoError(t, err)
	require.NoError(t, resp.Validate(7))
	assert.True(t, resp.HasError())
	assert.EqualValues(t, CodeParseError, resp.Error.Code)
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(CodeInternalError))
	assert.True(t, IsServerError(-32000))
	assert.True(t, IsServerError(-32099))
	assert.False(t, IsServerError(CodeInvalidParams))
	assert.False(t, IsServerError(CodeMethodNotFound))
	assert.False(t, IsServerError(CodeUnknownBlock))
	assert.False(t, IsServerError(CodeAlreadyExists))
}
