// Package result contains the types typed RPC wrappers decode node responses into.
package result

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
)

// maxIntegerBytes is the size of the widest NeoVM integer
const maxIntegerBytes = 32

var decimalRe = regexp.MustCompile(`^-?[0-9]+$`)

// ErrNotInteger is returned when a value is neither a JSON integer, a decimal
// string nor a base64 little-endian integer.
var ErrNotInteger = errors.New("value is not an integer")

// ParseInteger decodes an integer that a node may return as a JSON number, as
// a decimal string, or as base64 of its little-endian two's complement bytes.
func ParseInteger(raw json.RawMessage) (*big.Int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty value", ErrNotInteger)
	}

	if raw[0] != '"' {
		if !decimalRe.Match(raw) {
			return nil, fmt.Errorf("%w: %s", ErrNotInteger, raw)
		}
		n, _ := new(big.Int).SetString(string(raw), 10)
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInteger, err)
	}
	if decimalRe.MatchString(s) {
		n, _ := new(big.Int).SetString(s, 10)
		return n, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	if len(b) > maxIntegerBytes {
		return nil, fmt.Errorf("%w: %d bytes is too long", ErrNotInteger, len(b))
	}
	return bigint.FromBytes(b), nil
}

// Integer is an arbitrary precision integer in any of the encodings ParseInteger accepts
type Integer struct {
	big.Int
}

// NewInteger returns an Integer holding v
func NewInteger(v int64) Integer {
	var i Integer
	i.SetInt64(v)
	return i
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *Integer) UnmarshalJSON(data []byte) error {
	n, err := ParseInteger(data)
	if err != nil {
		return err
	}
	i.Set(n)
	return nil
}

// MarshalJSON encodes the value as a decimal string, the way nodes do
func (i Integer) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// Uint64 is an unsigned integer in any of the encodings ParseInteger accepts
type Uint64 uint64

// UnmarshalJSON implements the json.Unmarshaler interface
func (u *Uint64) UnmarshalJSON(data []byte) error {
	n, err := ParseInteger(data)
	if err != nil {
		return err
	}
	if !n.IsUint64() {
		return fmt.Errorf("%w: %s does not fit uint64", ErrNotInteger, n)
	}
	*u = Uint64(n.Uint64())
	return nil
}

// Int64 is a signed integer in any of the encodings ParseInteger accepts
type Int64 int64

// UnmarshalJSON implements the json.Unmarshaler interface
func (v *Int64) UnmarshalJSON(data []byte) error {
	n, err := ParseInteger(data)
	if err != nil {
		return err
	}
	if !n.IsInt64() {
		return fmt.Errorf("%w: %s does not fit int64", ErrNotInteger, n)
	}
	*v = Int64(n.Int64())
	return nil
}
