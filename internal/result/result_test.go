package result

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_Base64Integer(t *testing.T) {
	var res Invoke
	require.NoError(t, json.Unmarshal([]byte(`{"state":"HALT","stack":[{"type":"Integer","value":"AOH1BQ=="}]}`), &res))

	assert.False(t, res.Faulted())
	top, err := res.Top()
	require.NoError(t, err)
	n, err := top.Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 100000000, n.Int64())
}

func TestInvoke_Fault(t *testing.T) {
	var res Invoke
	require.NoError(t, json.Unmarshal([]byte(`{
		"script":"EMAfDAhkZWNpbWFscw==",
		"state":"FAULT",
		"gasconsumed":"1017810",
		"exception":"method not found",
		"stack":[]
	}`), &res))

	assert.True(t, res.Faulted())
	assert.Equal(t, "method not found", res.FaultException())
	assert.EqualValues(t, 1017810, res.GasConsumed)
	assert.NotEmpty(t, res.Script)
	_, err := res.Top()
	assert.ErrorIs(t, err, ErrEmptyStack)
}

func TestStackItem_Accessors(t *testing.T) {
	var items []StackItem
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"Boolean","value":true},
		{"type":"Integer","value":"0"},
		{"type":"ByteString","value":"R0FT"},
		{"type":"Array","value":[{"type":"Integer","value":"1"},{"type":"ByteString","value":"AQ=="}]},
		{"type":"Map","value":[{"key":{"type":"ByteString","value":"YQ=="},"value":{"type":"Integer","value":"2"}}]},
		{"type":"ByteString","value":"z6LDQN4u5V1OoqJHQv9Y2vv9RjI="},
		{"type":"Any"}
	]`), &items))

	b, err := items[0].Bool()
	require.NoError(t, err)
	assert.True(t, b)
	n, err := items[0].Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n.Int64())

	b, err = items[1].Bool()
	require.NoError(t, err)
	assert.False(t, b)

	s, err := items[2].Text()
	require.NoError(t, err)
	assert.Equal(t, "GAS", s)
	b, err = items[2].Bool()
	require.NoError(t, err)
	assert.True(t, b)

	arr, err := items[3].Array()
	require.NoError(t, err)
	require.Len(t, arr, 2)
	n, err = arr[1].Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n.Int64())

	m, err := items[4].Map()
	require.NoError(t, err)
	require.Len(t, m, 1)
	key, err := m[0].Key.Text()
	require.NoError(t, err)
	assert.Equal(t, "a", key)

	h, err := items[5].Uint160()
	require.NoError(t, err)
	assert.Len(t, h.BytesBE(), 20)

	_, err = items[6].Integer()
	assert.Error(t, err)
	_, err = items[6].Bytes()
	assert.Error(t, err)
	_, err = items[1].Array()
	assert.Error(t, err)
	_, err = items[1].Map()
	assert.Error(t, err)
}

func TestStackItem_ByteStringIntegerIsBase64(t *testing.T) {
	item := StackItem{Type: TypeByteString, Value: json.RawMessage(`"1234"`)}
	n, err := item.Integer()
	require.NoError(t, err)
	assert.EqualValues(t, -496169, n.Int64()) // d76df8 little-endian

	item = StackItem{Type: TypeBuffer, Value: json.RawMessage(`"ECc="`)}
	n, err = item.Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 10000, n.Int64())

	item = StackItem{Type: TypeInteger, Value: json.RawMessage(`"1234"`)}
	n, err = item.Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 1234, n.Int64())

	item = StackItem{Type: TypeByteString, Value: json.RawMessage(`"` + strings.Repeat("A", 44) + `"`)}
	_, err = item.Integer()
	assert.ErrorIs(t, err, ErrNotInteger)
}

const blockJSON = `{
	"hash":"0x1f4d1defa46faa5e7b9b8d3f79a06bec777d7c26c4aa5f6f5899a291daa87c15",
	"size":697,
	"version":0,
	"previousblockhash":"0x0000000000000000000000000000000000000000000000000000000000000000",
	"merkleroot":"0x0000000000000000000000000000000000000000000000000000000000000000",
	"time":1468595301000,
	"nonce":"000000007C2BAC1D",
	"index":0,
	"primary":0,
	"nextconsensus":"NSiVJYZej4XsxG5CUpdwn7VRQk8iiiDMPM",
	"witnesses":[{"invocation":"","verification":"EQ=="}],
	"tx":[],
	"confirmations":"5000000",
	"nextblockhash":"0x9854e40d2fc2d4ae2ea3ab1b3caa8c9a7a9d9d6d0c33b3fe0a4c5a8e1d3f2b6e"
}`

func TestBlock_Unmarshal(t *testing.T) {
	var b Block
	require.NoError(t, json.Unmarshal([]byte(blockJSON), &b))

	assert.Equal(t, "1f4d1defa46faa5e7b9b8d3f79a06bec777d7c26c4aa5f6f5899a291daa87c15", b.Hash.StringLE())
	assert.EqualValues(t, 697, b.Size)
	assert.EqualValues(t, 1468595301000, b.Time)
	assert.EqualValues(t, 5000000, b.Confirmations)
	assert.Equal(t, "NSiVJYZej4XsxG5CUpdwn7VRQk8iiiDMPM", b.NextConsensus)
	require.Len(t, b.Witnesses, 1)
	assert.Equal(t, []byte{0x11}, b.Witnesses[0].Verification)
	require.NotNil(t, b.NextBlockHash)
	assert.Empty(t, b.Transactions)
}

func TestTransaction_Unmarshal(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{
		"hash":"0x8b8b222ba4ae17eaf37d444210920690d0981b02c368f4f1973c8fd662438d89",
		"size":252,
		"version":0,
		"nonce":1234,
		"sender":"NSiVJYZej4XsxG5CUpdwn7VRQk8iiiDMPM",
		"sysfee":"9977780",
		"netfee":"1272390",
		"validuntilblock":2105487,
		"signers":[{"account":"0xcadb3dc2faa3ef14a13b619c9a43124755aa2569","scopes":"CalledByEntry"}],
		"attributes":[{"type":"HighPriority"}],
		"script":"AQ==",
		"witnesses":[{"invocation":"AQ==","verification":"Ag=="}],
		"blockhash":"0x1f4d1defa46faa5e7b9b8d3f79a06bec777d7c26c4aa5f6f5899a291daa87c15",
		"confirmations":26,
		"blocktime":1612687482881,
		"vmstate":"HALT"
	}`), &tx))

	assert.EqualValues(t, 9977780, tx.SystemFee)
	assert.EqualValues(t, 1272390, tx.NetworkFee)
	require.Len(t, tx.Signers, 1)
	assert.Equal(t, ScopeCalledByEntry, tx.Signers[0].Scopes)
	assert.Equal(t, "cadb3dc2faa3ef14a13b619c9a43124755aa2569", tx.Signers[0].Account.StringLE())
	require.NotNil(t, tx.BlockHash)
	assert.Equal(t, VMStateHalt, tx.VMState)
	assert.Len(t, tx.Attributes, 1)
}

func TestBlockID(t *testing.T) {
	id, err := ParseBlockID("12345")
	require.NoError(t, err)
	assert.False(t, id.IsHash())
	assert.Equal(t, uint64(12345), id.Param())
	assert.Equal(t, "12345", id.String())

	hash := "0x1f4d1defa46faa5e7b9b8d3f79a06bec777d7c26c4aa5f6f5899a291daa87c15"
	id, err = ParseBlockID(hash)
	require.NoError(t, err)
	assert.True(t, id.IsHash())
	assert.Equal(t, hash, id.Param())

	id, err = ParseBlockID(hash[2:])
	require.NoError(t, err)
	assert.Equal(t, hash, id.String())

	_, err = ParseBlockID("0xnothex")
	assert.Error(t, err)
}

func TestNEP17Balances(t *testing.T) {
	var res NEP17Balances
	require.NoError(t, json.Unmarshal([]byte(`{
		"address":"NXV7ZhHiyM1aHXwpVsRZC6BwNFP2jghXAq",
		"balance":[
			{"assethash":"0xd2a4cff31913016155e38e474a2c06d08be276cf","name":"GasToken","symbol":"GAS","decimals":"8","amount":"1000000000","lastupdatedblock":100},
			{"assethash":"0xef4073a0f2b305a38ec4050e4d3d28bc40ea63f5","amount":"AQ==","lastupdatedblock":"101"}
		]
	}`), &res))

	gas, err := util.Uint160DecodeStringLE("d2a4cff31913016155e38e474a2c06d08be276cf")
	require.NoError(t, err)
	bal, ok := res.Asset(gas)
	require.True(t, ok)
	assert.Equal(t, "1000000000", bal.Amount.String())
	assert.EqualValues(t, 8, bal.Decimals)
	assert.Equal(t, "1", res.Balances[1].Amount.String())

	_, ok = res.Asset(util.Uint160{})
	assert.False(t, ok)

	res.Address = address.Uint160ToString(gas)
	account, err := res.Account()
	require.NoError(t, err)
	assert.True(t, account.Equals(gas))
}

func TestApplicationLog(t *testing.T) {
	var log ApplicationLog
	require.NoError(t, json.Unmarshal([]byte(`{
		"txid":"0x8b8b222ba4ae17eaf37d444210920690d0981b02c368f4f1973c8fd662438d89",
		"executions":[{
			"trigger":"Application",
			"vmstate":"HALT",
			"exception":null,
			"gasconsumed":"9977780",
			"stack":[],
			"notifications":[{
				"contract":"0xd2a4cff31913016155e38e474a2c06d08be276cf",
				"eventname":"Transfer",
				"state":{"type":"Array","value":[{"type":"Any"},{"type":"ByteString","value":"z6LDQN4u5V1OoqJHQv9Y2vv9RjI="},{"type":"Integer","value":"100"}]}
			}]
		}]
	}`), &log))

	require.Len(t, log.Executions, 1)
	exec := log.Executions[0]
	assert.False(t, exec.Faulted())
	require.Len(t, exec.Notifications, 1)
	assert.Equal(t, "Transfer", exec.Notifications[0].EventName)
	args, err := exec.Notifications[0].State.Array()
	require.NoError(t, err)
	amount, err := args[2].Integer()
	require.NoError(t, err)
	assert.EqualValues(t, 100, amount.Int64())
}

func TestParameters(t *testing.T) {
	h, err := util.Uint160DecodeStringLE("d2a4cff31913016155e38e474a2c06d08be276cf")
	require.NoError(t, err)

	data, err := json.Marshal([]Parameter{
		NewHash160Parameter(h),
		NewIntegerParameter(-5),
		NewBoolParameter(false),
		NewStringParameter("x"),
		NewByteArrayParameter([]byte{1}),
		NewArrayParameter(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"Hash160","value":"0xd2a4cff31913016155e38e474a2c06d08be276cf"},
		{"type":"Integer","value":"-5"},
		{"type":"Boolean","value":false},
		{"type":"String","value":"x"},
		{"type":"ByteArray","value":"AQ=="},
		{"type":"Array","value":[]}
	]`, string(data))
}

func TestVersion(t *testing.T) {
	var v Version
	require.NoError(t, json.Unmarshal([]byte(`{
		"tcpport":10333,"wsport":10334,"nonce":1234567,"useragent":"/Neo:3.6.0/",
		"protocol":{"addressversion":53,"network":860833102,"msperblock":15000,"maxtraceableblocks":2102400,
			"maxvaliduntilblockincrement":5760,"maxtransactionsperblock":512,"memorypoolmaxtransactions":50000,
			"validatorscount":7,"initialgasdistribution":5200000000000000}
	}`), &v))
	assert.Equal(t, "/Neo:3.6.0/", v.UserAgent)
	assert.EqualValues(t, 860833102, v.Protocol.Network)
	assert.EqualValues(t, 15000, v.Protocol.MillisecondsPerBlock)
}
