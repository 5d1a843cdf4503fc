package result

import (
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Version is a getversion result
type Version struct {
	TCPPort   Uint64   `json:"tcpport"`
	WSPort    Uint64   `json:"wsport,omitempty"`
	Nonce     Uint64   `json:"nonce"`
	UserAgent string   `json:"useragent"`
	Protocol  Protocol `json:"protocol"`
}

// Protocol holds network parameters reported by the node
type Protocol struct {
	AddressVersion              Uint64 `json:"addressversion"`
	Network                     Uint64 `json:"network"`
	MillisecondsPerBlock        Uint64 `json:"msperblock"`
	MaxTraceableBlocks          Uint64 `json:"maxtraceableblocks"`
	MaxValidUntilBlockIncrement Uint64 `json:"maxvaliduntilblockincrement"`
	MaxTransactionsPerBlock     Uint64 `json:"maxtransactionsperblock"`
	MemoryPoolMaxTransactions   Uint64 `json:"memorypoolmaxtransactions"`
	ValidatorsCount             Uint64 `json:"validatorscount"`
	InitialGasDistribution      Int64  `json:"initialgasdistribution"`
}

// Peers is a getpeers result
type Peers struct {
	Unconnected []Peer `json:"unconnected"`
	Bad         []Peer `json:"bad"`
	Connected   []Peer `json:"connected"`
}

// Peer is a network peer
type Peer struct {
	Address string `json:"address"`
	Port    Uint64 `json:"port"`
}

// StateHeight is a getstateheight result
type StateHeight struct {
	Local     Uint64 `json:"localrootindex"`
	Validated Uint64 `json:"validatedrootindex"`
}

// RelayResult is a sendrawtransaction result
type RelayResult struct {
	Hash util.Uint256 `json:"hash"`
}

// UnclaimedGas is a getunclaimedgas result
type UnclaimedGas struct {
	Address   string  `json:"address"`
	Unclaimed Integer `json:"unclaimed"`
}

// NetworkFee is a calculatenetworkfee result
type NetworkFee struct {
	Value Int64 `json:"networkfee"`
}

// ValidateAddress is a validateaddress result
type ValidateAddress struct {
	Address string `json:"address"`
	IsValid bool   `json:"isvalid"`
}

// ApplicationLog is a getapplicationlog result
type ApplicationLog struct {
	TxHash     *util.Uint256 `json:"txid,omitempty"`
	BlockHash  *util.Uint256 `json:"blockhash,omitempty"`
	Executions []Execution   `json:"executions"`
}

// Execution is a single trigger execution of an application log
type Execution struct {
	Trigger       string         `json:"trigger"`
	VMState       string         `json:"vmstate"`
	Exception     *string        `json:"exception"`
	GasConsumed   Int64          `json:"gasconsumed"`
	Stack         []StackItem    `json:"stack"`
	Notifications []Notification `json:"notifications"`
}

// Faulted returns true if the execution did not finish in HALT state
func (e *Execution) Faulted() bool {
	return e.VMState != VMStateHalt
}
