package result

import (
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// VM states
const (
	VMStateHalt  = "HALT"
	VMStateFault = "FAULT"
)

// Invoke is the result of invokefunction and invokescript
type Invoke struct {
	Script        []byte         `json:"script"`
	State         string         `json:"state"`
	GasConsumed   Int64          `json:"gasconsumed"`
	Exception     *string        `json:"exception"`
	Stack         []StackItem    `json:"stack"`
	Notifications []Notification `json:"notifications,omitempty"`
	// Tx is the unsigned transaction built by the node when signers were given
	Tx      []byte `json:"tx,omitempty"`
	Session string `json:"session,omitempty"`
}

// ErrEmptyStack is returned when a result stack has no items
var ErrEmptyStack = errors.New("result stack is empty")

// Faulted returns true if the script did not finish in HALT state
func (r *Invoke) Faulted() bool {
	return r.State != VMStateHalt
}

// FaultException returns the VM exception, empty when there is none
func (r *Invoke) FaultException() string {
	if r.Exception == nil {
		return ""
	}
	return *r.Exception
}

// Top returns the first stack item
func (r *Invoke) Top() (StackItem, error) {
	if len(r.Stack) == 0 {
		return StackItem{}, ErrEmptyStack
	}
	return r.Stack[0], nil
}

// Notification is a contract event emitted during execution
type Notification struct {
	Contract  util.Uint160 `json:"contract"`
	EventName string       `json:"eventname"`
	State     StackItem    `json:"state"`
}

// Witness scopes
const (
	ScopeNone            = "None"
	ScopeCalledByEntry   = "CalledByEntry"
	ScopeCustomContracts = "CustomContracts"
	ScopeCustomGroups    = "CustomGroups"
	ScopeGlobal          = "Global"
)

// Signer is a transaction signer with its witness scope
type Signer struct {
	Account          util.Uint160   `json:"account"`
	Scopes           string         `json:"scopes"`
	AllowedContracts []util.Uint160 `json:"allowedcontracts,omitempty"`
	AllowedGroups    []string       `json:"allowedgroups,omitempty"`
}

// Contract parameter types
const (
	ParamAny       = "Any"
	ParamBoolean   = "Boolean"
	ParamInteger   = "Integer"
	ParamByteArray = "ByteArray"
	ParamString    = "String"
	ParamHash160   = "Hash160"
	ParamHash256   = "Hash256"
	ParamPublicKey = "PublicKey"
	ParamArray     = "Array"
)

// Parameter is an invokefunction argument
type Parameter struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

// NewBoolParameter creates a Boolean parameter
func NewBoolParameter(v bool) Parameter {
	return Parameter{Type: ParamBoolean, Value: v}
}

// NewIntegerParameter creates an Integer parameter
func NewIntegerParameter(v int64) Parameter {
	return Parameter{Type: ParamInteger, Value: strconv.FormatInt(v, 10)}
}

// NewStringParameter creates a String parameter
func NewStringParameter(v string) Parameter {
	return Parameter{Type: ParamString, Value: v}
}

// NewByteArrayParameter creates a ByteArray parameter
func NewByteArrayParameter(v []byte) Parameter {
	return Parameter{Type: ParamByteArray, Value: base64.StdEncoding.EncodeToString(v)}
}

// NewHash160Parameter creates a Hash160 parameter
func NewHash160Parameter(v util.Uint160) Parameter {
	return Parameter{Type: ParamHash160, Value: "0x" + v.StringLE()}
}

// NewHash256Parameter creates a Hash256 parameter
func NewHash256Parameter(v util.Uint256) Parameter {
	return Parameter{Type: ParamHash256, Value: "0x" + v.StringLE()}
}

// NewArrayParameter creates an Array parameter
func NewArrayParameter(items ...Parameter) Parameter {
	if items == nil {
		items = []Parameter{}
	}
	return Parameter{Type: ParamArray, Value: items}
}
