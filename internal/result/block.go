package result

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Witness holds invocation and verification scripts
type Witness struct {
	Invocation   []byte `json:"invocation"`
	Verification []byte `json:"verification"`
}

// Block is a verbose getblock result
type Block struct {
	Hash          util.Uint256  `json:"hash"`
	Size          Uint64        `json:"size"`
	Version       Uint64        `json:"version"`
	PrevBlockHash util.Uint256  `json:"previousblockhash"`
	MerkleRoot    util.Uint256  `json:"merkleroot"`
	Time          Uint64        `json:"time"`
	Nonce         string        `json:"nonce"`
	Index         Uint64        `json:"index"`
	PrimaryIndex  Uint64        `json:"primary"`
	NextConsensus string        `json:"nextconsensus"`
	Witnesses     []Witness     `json:"witnesses"`
	Transactions  []Transaction `json:"tx"`
	Confirmations Uint64        `json:"confirmations"`
	NextBlockHash *util.Uint256 `json:"nextblockhash,omitempty"`
}

// Transaction is a verbose getrawtransaction result. Block fields are set for
// persisted transactions only.
type Transaction struct {
	Hash            util.Uint256      `json:"hash"`
	Size            Uint64            `json:"size"`
	Version         Uint64            `json:"version"`
	Nonce           Uint64            `json:"nonce"`
	Sender          string            `json:"sender"`
	SystemFee       Int64             `json:"sysfee"`
	NetworkFee      Int64             `json:"netfee"`
	ValidUntilBlock Uint64            `json:"validuntilblock"`
	Signers         []Signer          `json:"signers"`
	Attributes      []json.RawMessage `json:"attributes"`
	Script          []byte            `json:"script"`
	Witnesses       []Witness         `json:"witnesses"`

	BlockHash     *util.Uint256 `json:"blockhash,omitempty"`
	Confirmations Uint64        `json:"confirmations,omitempty"`
	BlockTime     Uint64        `json:"blocktime,omitempty"`
	VMState       string        `json:"vmstate,omitempty"`
}

// BlockID identifies a block by index or by hash
type BlockID struct {
	hash  *util.Uint256
	index uint64
}

// BlockByIndex returns the id of the block at index
func BlockByIndex(index uint64) BlockID {
	return BlockID{index: index}
}

// BlockByHash returns the id of the block with hash
func BlockByHash(hash util.Uint256) BlockID {
	return BlockID{hash: &hash}
}

// ParseBlockID accepts a decimal index or a hex hash with optional 0x prefix
func ParseBlockID(s string) (BlockID, error) {
	if index, err := strconv.ParseUint(s, 10, 64); err == nil {
		return BlockByIndex(index), nil
	}
	hash, err := util.Uint256DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return BlockID{}, fmt.Errorf("invalid block id %q: %w", s, err)
	}
	return BlockByHash(hash), nil
}

// IsHash returns true if the id is a hash
func (b BlockID) IsHash() bool {
	return b.hash != nil
}

// Param returns the RPC parameter form of the id
func (b BlockID) Param() any {
	if b.hash != nil {
		return "0x" + b.hash.StringLE()
	}
	return b.index
}

// String implements fmt.Stringer
func (b BlockID) String() string {
	if b.hash != nil {
		return "0x" + b.hash.StringLE()
	}
	return strconv.FormatUint(b.index, 10)
}
