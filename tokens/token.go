// Package tokens maps Go values to ABI tokens and encodes tokens to and from ABI wire data.
package tokens

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/smartcontractkit/ethcontract/int256"
)

// Token is a single ABI value. Its concrete type is one of Address, FixedBytes, Bytes, Int, Uint,
// Bool, String, FixedArray, Array or Tuple.
type Token interface {
	fmt.Stringer
	isToken()
}

type (
	Address    common.Address
	FixedBytes []byte
	Bytes      []byte
	// Int is a signed integer of any width stored as a sign-extended 256-bit word
	Int uint256.Int
	// Uint is an unsigned integer of any width
	Uint       uint256.Int
	Bool       bool
	String     string
	FixedArray []Token
	Array      []Token
	Tuple      []Token
)

func (Address) isToken()    {}
func (FixedBytes) isToken() {}
func (Bytes) isToken()      {}
func (Int) isToken()        {}
func (Uint) isToken()       {}
func (Bool) isToken()       {}
func (String) isToken()     {}
func (FixedArray) isToken() {}
func (Array) isToken()      {}
func (Tuple) isToken()      {}

func (t Address) String() string    { return common.Address(t).Hex() }
func (t FixedBytes) String() string { return hexutil.Encode(t) }
func (t Bytes) String() string      { return hexutil.Encode(t) }
func (t Int) String() string        { return int256.FromRaw(uint256.Int(t)).String() }
func (t Uint) String() string {
	u := uint256.Int(t)
	return u.ToBig().String()
}
func (t Bool) String() string       { return fmt.Sprintf("%t", bool(t)) }
func (t String) String() string     { return fmt.Sprintf("%q", string(t)) }
func (t FixedArray) String() string { return "[" + joinTokens(t) + "]" }
func (t Array) String() string      { return "[" + joinTokens(t) + "]" }
func (t Tuple) String() string      { return "(" + joinTokens(t) + ")" }

func joinTokens(ts []Token) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// NewUint builds an unsigned token from a uint64
func NewUint(v uint64) Uint {
	var u uint256.Int
	u.SetUint64(v)
	return Uint(u)
}

// NewInt builds a signed token from an int64
func NewInt(v int64) Int {
	return Int(int256.FromInt64(v).Raw())
}

// IntFromI256 builds a signed token from an I256
func IntFromI256(v int256.I256) Int {
	return Int(v.Raw())
}

// BigInt interprets the token as a signed integer
func (t Int) BigInt() *big.Int {
	return int256.FromRaw(uint256.Int(t)).Big()
}

// I256 returns the token value as an I256
func (t Int) I256() int256.I256 {
	return int256.FromRaw(uint256.Int(t))
}

// BigInt returns the token value as a new big.Int
func (t Uint) BigInt() *big.Int {
	u := uint256.Int(t)
	return u.ToBig()
}

// Kind names the token variant, used in error messages
func Kind(t Token) string {
	switch t.(type) {
	case Address:
		return "address"
	case FixedBytes:
		return "fixed bytes"
	case Bytes:
		return "bytes"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Bool:
		return "bool"
	case String:
		return "string"
	case FixedArray:
		return "fixed array"
	case Array:
		return "array"
	case Tuple:
		return "tuple"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", t)
	}
}
