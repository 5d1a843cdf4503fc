package result

import (
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// NEP17Balances is a getnep17balances result
type NEP17Balances struct {
	Address  string         `json:"address"`
	Balances []NEP17Balance `json:"balance"`
}

// NEP17Balance is the balance of one token
type NEP17Balance struct {
	AssetHash        util.Uint160 `json:"assethash"`
	Name             string       `json:"name,omitempty"`
	Symbol           string       `json:"symbol,omitempty"`
	Decimals         Int64        `json:"decimals,omitempty"`
	Amount           Integer      `json:"amount"`
	LastUpdatedBlock Uint64       `json:"lastupdatedblock"`
}

// Account returns the script hash of the balance owner
func (b *NEP17Balances) Account() (util.Uint160, error) {
	return address.StringToUint160(b.Address)
}

// Asset returns the balance of asset, ok is false when the account holds none
func (b *NEP17Balances) Asset(asset util.Uint160) (NEP17Balance, bool) {
	for _, bal := range b.Balances {
		if bal.AssetHash.Equals(asset) {
			return bal, true
		}
	}
	return NEP17Balance{}, false
}

// NEP17Transfers is a getnep17transfers result
type NEP17Transfers struct {
	Address  string          `json:"address"`
	Sent     []NEP17Transfer `json:"sent"`
	Received []NEP17Transfer `json:"received"`
}

// NEP17Transfer is a single token transfer
type NEP17Transfer struct {
	Timestamp   Uint64       `json:"timestamp"`
	AssetHash   util.Uint160 `json:"assethash"`
	Address     string       `json:"transferaddress,omitempty"`
	Amount      Integer      `json:"amount"`
	Index       Uint64       `json:"blockindex"`
	NotifyIndex Uint64       `json:"transfernotifyindex"`
	TxHash      util.Uint256 `json:"txhash"`
}
