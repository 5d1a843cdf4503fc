package result

import (
	"encoding/json"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ContractState is a getcontractstate result
type ContractState struct {
	ID            Int64        `json:"id"`
	UpdateCounter Uint64       `json:"updatecounter"`
	Hash          util.Uint160 `json:"hash"`
	NEF           NEF          `json:"nef"`
	Manifest      Manifest     `json:"manifest"`
}

// NEF is the executable of a contract
type NEF struct {
	Magic    Uint64            `json:"magic"`
	Compiler string            `json:"compiler"`
	Source   string            `json:"source"`
	Tokens   []json.RawMessage `json:"tokens"`
	Script   []byte            `json:"script"`
	Checksum Uint64            `json:"checksum"`
}

// Manifest describes a contract interface and its permissions
type Manifest struct {
	Name               string            `json:"name"`
	Groups             []json.RawMessage `json:"groups"`
	Features           json.RawMessage   `json:"features,omitempty"`
	SupportedStandards []string          `json:"supportedstandards"`
	ABI                ABI               `json:"abi"`
	Permissions        []json.RawMessage `json:"permissions"`
	Trusts             json.RawMessage   `json:"trusts,omitempty"`
	Extra              json.RawMessage   `json:"extra,omitempty"`
}

// ABI lists contract methods and events
type ABI struct {
	Methods []Method `json:"methods"`
	Events  []Event  `json:"events"`
}

// Method is an ABI method
type Method struct {
	Name       string            `json:"name"`
	Parameters []ParamDefinition `json:"parameters"`
	ReturnType string            `json:"returntype"`
	Offset     Int64             `json:"offset"`
	Safe       bool              `json:"safe"`
}

// Event is an ABI event
type Event struct {
	Name       string            `json:"name"`
	Parameters []ParamDefinition `json:"parameters"`
}

// ParamDefinition is a named and typed ABI parameter
type ParamDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SupportsStandard returns true if the manifest declares standard, e.g. "NEP-17"
func (m *Manifest) SupportsStandard(standard string) bool {
	for _, s := range m.SupportedStandards {
		if s == standard {
			return true
		}
	}
	return false
}

// Method returns the ABI method with the given name and parameter count
func (a *ABI) Method(name string, paramCount int) (Method, bool) {
	for _, m := range a.Methods {
		if m.Name == name && (paramCount < 0 || len(m.Parameters) == paramCount) {
			return m, true
		}
	}
	return Method{}, false
}
