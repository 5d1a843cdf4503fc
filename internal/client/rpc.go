package client

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/util"

	"neorpc/internal/result"
	"neorpc/internal/rpcerr"
)

// callAs calls method and decodes its result into T
func callAs[T any](ctx context.Context, c *Client, method string, params ...any) (T, error) {
	var out T
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &rpcerr.Error{
			Kind:     rpcerr.KindSerialization,
			Method:   method,
			Endpoint: c.endpoint,
			Message:  "failed to decode result",
			Err:      err,
		}
	}
	return out, nil
}

func hash160Param(h util.Uint160) string {
	return "0x" + h.StringLE()
}

func hash256Param(h util.Uint256) string {
	return "0x" + h.StringLE()
}

// GetBlockCount returns the number of blocks in the chain
func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	n, err := callAs[result.Uint64](ctx, c, "getblockcount")
	return uint64(n), err
}

// GetBestBlockHash returns the hash of the latest block
func (c *Client) GetBestBlockHash(ctx context.Context) (util.Uint256, error) {
	return callAs[util.Uint256](ctx, c, "getbestblockhash")
}

// GetBlockHash returns the hash of the block at index
func (c *Client) GetBlockHash(ctx context.Context, index uint64) (util.Uint256, error) {
	return callAs[util.Uint256](ctx, c, "getblockhash", index)
}

// GetBlock returns the verbose form of a block
func (c *Client) GetBlock(ctx context.Context, id result.BlockID) (*result.Block, error) {
	b, err := callAs[result.Block](ctx, c, "getblock", id.Param(), true)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlockByIndex returns the block at index
func (c *Client) GetBlockByIndex(ctx context.Context, index uint64) (*result.Block, error) {
	return c.GetBlock(ctx, result.BlockByIndex(index))
}

// GetBlockByHash returns the block with hash
func (c *Client) GetBlockByHash(ctx context.Context, hash util.Uint256) (*result.Block, error) {
	return c.GetBlock(ctx, result.BlockByHash(hash))
}

// GetTransaction returns the verbose form of a transaction
func (c *Client) GetTransaction(ctx context.Context, hash util.Uint256) (*result.Transaction, error) {
	tx, err := callAs[result.Transaction](ctx, c, "getrawtransaction", hash256Param(hash), true)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetRawMemPool returns hashes of transactions in the node memory pool
func (c *Client) GetRawMemPool(ctx context.Context) ([]util.Uint256, error) {
	return callAs[[]util.Uint256](ctx, c, "getrawmempool")
}

// GetContractState returns the deployed state of a contract
func (c *Client) GetContractState(ctx context.Context, hash util.Uint160) (*result.ContractState, error) {
	cs, err := callAs[result.ContractState](ctx, c, "getcontractstate", hash160Param(hash))
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// GetNEP17Balances returns token balances of address
func (c *Client) GetNEP17Balances(ctx context.Context, address string) (*result.NEP17Balances, error) {
	b, err := callAs[result.NEP17Balances](ctx, c, "getnep17balances", address)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetNEP17Transfers returns token transfers of address. Zero start and end
// use the node defaults.
func (c *Client) GetNEP17Transfers(ctx context.Context, address string, start, end uint64) (*result.NEP17Transfers, error) {
	params := []any{address}
	if start != 0 || end != 0 {
		params = append(params, start)
	}
	if end != 0 {
		params = append(params, end)
	}
	t, err := callAs[result.NEP17Transfers](ctx, c, "getnep17transfers", params...)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetUnclaimedGas returns the GAS address can claim
func (c *Client) GetUnclaimedGas(ctx context.Context, address string) (*result.UnclaimedGas, error) {
	g, err := callAs[result.UnclaimedGas](ctx, c, "getunclaimedgas", address)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// InvokeFunction test-invokes a contract method. Nothing is persisted.
func (c *Client) InvokeFunction(ctx context.Context, contract util.Uint160, operation string,
	params []result.Parameter, signers []result.Signer) (*result.Invoke, error) {
	if params == nil {
		params = []result.Parameter{}
	}
	args := []any{hash160Param(contract), operation, params}
	if len(signers) > 0 {
		args = append(args, signers)
	}
	res, err := callAs[result.Invoke](ctx, c, "invokefunction", args...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// InvokeScript test-runs a script. Nothing is persisted.
func (c *Client) InvokeScript(ctx context.Context, script []byte, signers []result.Signer) (*result.Invoke, error) {
	args := []any{base64.StdEncoding.EncodeToString(script)}
	if len(signers) > 0 {
		args = append(args, signers)
	}
	res, err := callAs[result.Invoke](ctx, c, "invokescript", args...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SendRawTransaction relays a serialized transaction
func (c *Client) SendRawTransaction(ctx context.Context, rawTx []byte) (util.Uint256, error) {
	res, err := callAs[result.RelayResult](ctx, c, "sendrawtransaction", base64.StdEncoding.EncodeToString(rawTx))
	return res.Hash, err
}

// SendRawTransactionHex relays a hex encoded transaction
func (c *Client) SendRawTransactionHex(ctx context.Context, rawTx string) (util.Uint256, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(rawTx, "0x"))
	if err != nil {
		return util.Uint256{}, &rpcerr.Error{
			Kind:     rpcerr.KindSerialization,
			Method:   "sendrawtransaction",
			Endpoint: c.endpoint,
			Message:  "invalid transaction hex",
			Err:      err,
		}
	}
	return c.SendRawTransaction(ctx, data)
}

// CancelTransaction relays conflictTx, a signed transaction carrying a
// Conflicts attribute for the transaction to cancel and a higher fee.
func (c *Client) CancelTransaction(ctx context.Context, conflictTx []byte) (util.Uint256, error) {
	return c.SendRawTransaction(ctx, conflictTx)
}

// CalculateNetworkFee returns the network fee a serialized transaction needs
func (c *Client) CalculateNetworkFee(ctx context.Context, rawTx []byte) (int64, error) {
	res, err := callAs[result.NetworkFee](ctx, c, "calculatenetworkfee", base64.StdEncoding.EncodeToString(rawTx))
	return int64(res.Value), err
}

// GetApplicationLog returns execution results of a transaction or block
func (c *Client) GetApplicationLog(ctx context.Context, hash util.Uint256) (*result.ApplicationLog, error) {
	log, err := callAs[result.ApplicationLog](ctx, c, "getapplicationlog", hash256Param(hash))
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetStateHeight returns the state root heights of the node
func (c *Client) GetStateHeight(ctx context.Context) (*result.StateHeight, error) {
	h, err := callAs[result.StateHeight](ctx, c, "getstateheight")
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetVersion returns node version and protocol settings
func (c *Client) GetVersion(ctx context.Context) (*result.Version, error) {
	v, err := callAs[result.Version](ctx, c, "getversion")
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetPeers returns the peers known to the node
func (c *Client) GetPeers(ctx context.Context) (*result.Peers, error) {
	p, err := callAs[result.Peers](ctx, c, "getpeers")
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetConnectionCount returns the number of connected peers
func (c *Client) GetConnectionCount(ctx context.Context) (uint64, error) {
	n, err := callAs[result.Uint64](ctx, c, "getconnectioncount")
	return uint64(n), err
}

// ValidateAddress checks whether address is a valid Neo address
func (c *Client) ValidateAddress(ctx context.Context, address string) (*result.ValidateAddress, error) {
	v, err := callAs[result.ValidateAddress](ctx, c, "validateaddress", address)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
