package result

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Stack item types as reported by nodes
const (
	TypeAny        = "Any"
	TypePointer    = "Pointer"
	TypeBoolean    = "Boolean"
	TypeInteger    = "Integer"
	TypeByteString = "ByteString"
	TypeBuffer     = "Buffer"
	TypeArray      = "Array"
	TypeStruct     = "Struct"
	TypeMap        = "Map"
	TypeInterop    = "InteropInterface"
)

// StackItem is a NeoVM stack item in its JSON form. Value is decoded lazily by
// the typed accessors.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MapEntry is a key-value pair of a Map stack item
type MapEntry struct {
	Key   StackItem `json:"key"`
	Value StackItem `json:"value"`
}

// Integer returns the item as an integer
func (s StackItem) Integer() (*big.Int, error) {
	switch s.Type {
	case TypeInteger:
		return ParseInteger(s.Value)
	case TypeByteString, TypeBuffer:
		b, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		if len(b) > maxIntegerBytes {
			return nil, fmt.Errorf("%w: %d bytes is too long", ErrNotInteger, len(b))
		}
		return bigint.FromBytes(b), nil
	case TypeBoolean:
		b, err := s.Bool()
		if err != nil {
			return nil, err
		}
		if b {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	default:
		return nil, fmt.Errorf("%s item is not convertible to integer", s.Type)
	}
}

// Bool returns the item as a boolean
func (s StackItem) Bool() (bool, error) {
	switch s.Type {
	case TypeBoolean:
		var b bool
		if err := json.Unmarshal(s.Value, &b); err == nil {
			return b, nil
		}
		var str string
		if err := json.Unmarshal(s.Value, &str); err != nil {
			return false, fmt.Errorf("invalid boolean: %w", err)
		}
		return strconv.ParseBool(str)
	case TypeInteger:
		n, err := ParseInteger(s.Value)
		if err != nil {
			return false, err
		}
		return n.Sign() != 0, nil
	case TypeByteString, TypeBuffer:
		b, err := s.Bytes()
		if err != nil {
			return false, err
		}
		for _, c := range b {
			if c != 0 {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%s item is not convertible to boolean", s.Type)
	}
}

// Bytes returns the raw bytes of a ByteString or Buffer item
func (s StackItem) Bytes() ([]byte, error) {
	switch s.Type {
	case TypeByteString, TypeBuffer:
		var str string
		if err := json.Unmarshal(s.Value, &str); err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", s.Type, err)
		}
		return base64.StdEncoding.DecodeString(str)
	default:
		return nil, fmt.Errorf("%s item is not convertible to bytes", s.Type)
	}
}

// Text returns the bytes of the item as a UTF-8 string
func (s StackItem) Text() (string, error) {
	b, err := s.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Uint160 returns a 20-byte ByteString item as a script hash
func (s StackItem) Uint160() (util.Uint160, error) {
	b, err := s.Bytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

// Array returns the elements of an Array or Struct item
func (s StackItem) Array() ([]StackItem, error) {
	switch s.Type {
	case TypeArray, TypeStruct:
		var items []StackItem
		if err := json.Unmarshal(s.Value, &items); err != nil {
			return nil, fmt.Errorf("invalid %s value: %w", s.Type, err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%s item is not an array", s.Type)
	}
}

// Map returns the entries of a Map item
func (s StackItem) Map() ([]MapEntry, error) {
	if s.Type != TypeMap {
		return nil, fmt.Errorf("%s item is not a map", s.Type)
	}
	var entries []MapEntry
	if err := json.Unmarshal(s.Value, &entries); err != nil {
		return nil, fmt.Errorf("invalid Map value: %w", err)
	}
	return entries, nil
}
