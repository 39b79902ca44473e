package tokens

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/int256"
)

const wordSize = 32

// Encode ABI-encodes values as a sequence of the given types (a function argument list)
func Encode(types []abi.Type, values []Token) ([]byte, error) {
	if len(types) != len(values) {
		return nil, &TupleLengthMismatchError{Expected: len(types), Actual: len(values)}
	}
	goValues := make([]any, len(values))
	for i, t := range types {
		v, err := toGoValue(t, values[i])
		if err != nil {
			return nil, err
		}
		goValues[i] = v.Interface()
	}
	enc, err := arguments(types).Pack(goValues...)
	if err != nil {
		return nil, errors.Wrap(err, ErrEncode)
	}
	return enc, nil
}

// Decode ABI-decodes data as a sequence of the given types. Every word must be canonical:
// integers within their width, booleans 0 or 1, addresses and padding zero filled.
func Decode(types []abi.Type, data []byte) ([]Token, error) {
	args := arguments(types)
	values, err := args.UnpackValues(data)
	if err != nil {
		return nil, errors.Wrap(err, ErrInvalidEncoding)
	}
	out := make([]Token, len(values))
	for i, v := range values {
		tok, err := fromGoValue(types[i], reflect.ValueOf(v))
		if err != nil {
			return nil, errors.Wrap(err, ErrInvalidEncoding)
		}
		out[i] = tok
	}
	// geth drops the high bytes of addresses and never looks at padding
	enc, err := args.Pack(values...)
	if err != nil {
		return nil, errors.Wrap(err, ErrInvalidEncoding)
	}
	if len(enc) > len(data) || !bytes.Equal(enc, data[:len(enc)]) {
		return nil, errors.New(ErrNonCanonical)
	}
	return out, nil
}

// ArgumentTypes extracts the types of an argument list
func ArgumentTypes(args abi.Arguments) []abi.Type {
	types := make([]abi.Type, len(args))
	for i, a := range args {
		types[i] = a.Type
	}
	return types
}

func arguments(types []abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	return args
}

func fixedSize(t abi.Type) int {
	if t.T == abi.FunctionTy {
		return 24
	}
	return t.Size
}

// toGoValue builds the value go-ethereum packs for t, of type t.GetType()
func toGoValue(t abi.Type, tok Token) (reflect.Value, error) {
	switch t.T {
	case abi.AddressTy:
		a, ok := tok.(Address)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return reflect.ValueOf(common.Address(a)), nil
	case abi.UintTy, abi.IntTy:
		w, err := integerWord(t, tok)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(t.GetType()).Elem()
		switch rv.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			rv.SetInt(int64(w.Uint64()))
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			rv.SetUint(w.Uint64())
		default:
			if t.T == abi.IntTy {
				rv.Set(reflect.ValueOf(int256.FromRaw(w).Big()))
			} else {
				rv.Set(reflect.ValueOf(w.ToBig()))
			}
		}
		return rv, nil
	case abi.BoolTy:
		b, ok := tok.(Bool)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return reflect.ValueOf(bool(b)), nil
	case abi.StringTy:
		s, ok := tok.(String)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return reflect.ValueOf(string(s)), nil
	case abi.BytesTy:
		b, ok := tok.(Bytes)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return reflect.ValueOf([]byte(b)), nil
	case abi.FixedBytesTy, abi.FunctionTy:
		b, ok := tok.(FixedBytes)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		if size := fixedSize(t); len(b) != size {
			return reflect.Value{}, &FixedBytesLengthMismatchError{Expected: size, Actual: len(b)}
		}
		rv := reflect.New(t.GetType()).Elem()
		for i, c := range b {
			rv.Index(i).SetUint(uint64(c))
		}
		return rv, nil
	case abi.SliceTy:
		arr, ok := tok.(Array)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		rv := reflect.MakeSlice(t.GetType(), len(arr), len(arr))
		if err := setElems(rv, *t.Elem, arr); err != nil {
			return reflect.Value{}, err
		}
		return rv, nil
	case abi.ArrayTy:
		arr, ok := tok.(FixedArray)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		if len(arr) != t.Size {
			return reflect.Value{}, &FixedArrayLengthMismatchError{Expected: t.Size, Actual: len(arr)}
		}
		rv := reflect.New(t.GetType()).Elem()
		if err := setElems(rv, *t.Elem, arr); err != nil {
			return reflect.Value{}, err
		}
		return rv, nil
	case abi.TupleTy:
		tup, ok := tok.(Tuple)
		if !ok {
			return reflect.Value{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		if len(tup) != len(t.TupleElems) {
			return reflect.Value{}, &TupleLengthMismatchError{Expected: len(t.TupleElems), Actual: len(tup)}
		}
		rv := reflect.New(t.TupleType).Elem()
		for i, elem := range t.TupleElems {
			fv, err := toGoValue(*elem, tup[i])
			if err != nil {
				return reflect.Value{}, err
			}
			rv.Field(i).Set(fv)
		}
		return rv, nil
	}
	return reflect.Value{}, errors.Wrap(fmt.Errorf("%s", t.String()), ErrUnsupportedType)
}

func setElems(rv reflect.Value, elem abi.Type, toks []Token) error {
	for i, tok := range toks {
		ev, err := toGoValue(elem, tok)
		if err != nil {
			return err
		}
		rv.Index(i).Set(ev)
	}
	return nil
}

// fromGoValue converts a value unpacked by go-ethereum back into a token
func fromGoValue(t abi.Type, v reflect.Value) (Token, error) {
	switch t.T {
	case abi.AddressTy:
		return Address(v.Interface().(common.Address)), nil
	case abi.UintTy:
		if v.Kind() != reflect.Ptr {
			return NewUint(v.Uint()), nil
		}
		b := v.Interface().(*big.Int)
		u, overflow := uint256.FromBig(b)
		if overflow || b.Sign() < 0 || (t.Size < 256 && u.BitLen() > t.Size) {
			return nil, &IntegerOutOfRangeError{Value: b.String(), Type: t.String()}
		}
		return Uint(*u), nil
	case abi.IntTy:
		if v.Kind() != reflect.Ptr {
			return NewInt(v.Int()), nil
		}
		b := v.Interface().(*big.Int)
		i, err := int256.FromBig(b)
		if err != nil || !fitsBits(i, true, t.Size) {
			return nil, &IntegerOutOfRangeError{Value: b.String(), Type: t.String()}
		}
		return IntFromI256(i), nil
	case abi.BoolTy:
		return Bool(v.Bool()), nil
	case abi.StringTy:
		return String(v.String()), nil
	case abi.BytesTy:
		return Bytes(common.CopyBytes(v.Bytes())), nil
	case abi.FixedBytesTy, abi.FunctionTy:
		b := make([]byte, v.Len())
		for i := range b {
			b[i] = byte(v.Index(i).Uint())
		}
		return FixedBytes(b), nil
	case abi.SliceTy:
		elems, err := elemTokens(*t.Elem, v)
		if err != nil {
			return nil, err
		}
		return Array(elems), nil
	case abi.ArrayTy:
		elems, err := elemTokens(*t.Elem, v)
		if err != nil {
			return nil, err
		}
		return FixedArray(elems), nil
	case abi.TupleTy:
		out := make(Tuple, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			tok, err := fromGoValue(*elem, v.Field(i))
			if err != nil {
				return nil, err
			}
			out[i] = tok
		}
		return out, nil
	}
	return nil, errors.Wrap(fmt.Errorf("%s", t.String()), ErrUnsupportedType)
}

func elemTokens(elem abi.Type, v reflect.Value) ([]Token, error) {
	out := make([]Token, v.Len())
	for i := range out {
		tok, err := fromGoValue(elem, v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = tok
	}
	return out, nil
}

// integerWord checks that an Int or Uint token fits t and returns its 256-bit word
func integerWord(t abi.Type, tok Token) (uint256.Int, error) {
	var signed int256.I256
	switch v := tok.(type) {
	case Int:
		signed = int256.FromRaw(uint256.Int(v))
	case Uint:
		u := uint256.Int(v)
		if t.T == abi.UintTy {
			if t.Size < 256 && u.BitLen() > t.Size {
				return uint256.Int{}, &IntegerOutOfRangeError{Value: v.String(), Type: t.String()}
			}
			return u, nil
		}
		s, err := int256.TryFromUint256(&u)
		if err != nil {
			return uint256.Int{}, &IntegerOutOfRangeError{Value: v.String(), Type: t.String()}
		}
		signed = s
	default:
		return uint256.Int{}, &TypeMismatchError{Expected: t.String(), Actual: tok}
	}
	if !fitsBits(signed, t.T == abi.IntTy, t.Size) {
		return uint256.Int{}, &IntegerOutOfRangeError{Value: signed.String(), Type: t.String()}
	}
	return signed.Raw(), nil
}

// fitsBits reports whether v is representable as an integer of the given width
func fitsBits(v int256.I256, signed bool, bits int) bool {
	if !signed {
		if v.IsNegative() {
			return false
		}
		raw := v.Raw()
		return bits >= 256 || raw.BitLen() <= bits
	}
	if bits >= 256 {
		return true
	}
	abs := v.UnsignedAbs()
	if v.IsNegative() {
		abs.SubUint64(&abs, 1)
	}
	return abs.BitLen() <= bits-1
}

func repeatType(t abi.Type, n int) []abi.Type {
	types := make([]abi.Type, n)
	for i := range types {
		types[i] = t
	}
	return types
}

func tupleTypes(t abi.Type) []abi.Type {
	types := make([]abi.Type, len(t.TupleElems))
	for i, e := range t.TupleElems {
		types[i] = *e
	}
	return types
}

func padRight(b []byte) []byte {
	out := make([]byte, (len(b)+wordSize-1)/wordSize*wordSize)
	copy(out, b)
	return out
}

func encodeWord(t abi.Type, tok Token) ([]byte, error) {
	return Encode([]abi.Type{t}, []Token{tok})
}

// EncodeTopic encodes an indexed event parameter. Value types are stored as their padded word,
// everything else as the keccak256 of its in-place encoding.
func EncodeTopic(t abi.Type, tok Token) (common.Hash, error) {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		enc, err := encodeIndexed(t, tok)
		if err != nil {
			return common.Hash{}, err
		}
		return crypto.Keccak256Hash(enc), nil
	}
	enc, err := encodeWord(t, tok)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(enc), nil
}

// encodeIndexed is the in-place encoding of indexed reference types: no offsets or lengths,
// elements concatenated, strings and bytes padded only when nested
func encodeIndexed(t abi.Type, tok Token) ([]byte, error) {
	switch t.T {
	case abi.StringTy:
		s, ok := tok.(String)
		if !ok {
			return nil, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return []byte(s), nil
	case abi.BytesTy:
		b, ok := tok.(Bytes)
		if !ok {
			return nil, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		return b, nil
	case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		var elems []Token
		var types []abi.Type
		switch v := tok.(type) {
		case Array:
			elems, types = v, repeatType(*t.Elem, len(v))
		case FixedArray:
			elems, types = v, repeatType(*t.Elem, len(v))
		case Tuple:
			elems, types = v, tupleTypes(t)
			if len(v) != len(types) {
				return nil, &TupleLengthMismatchError{Expected: len(types), Actual: len(v)}
			}
		default:
			return nil, &TypeMismatchError{Expected: t.String(), Actual: tok}
		}
		var out []byte
		for i, e := range elems {
			var (
				enc []byte
				err error
			)
			switch types[i].T {
			case abi.StringTy, abi.BytesTy:
				enc, err = encodeIndexed(types[i], e)
				enc = padRight(enc)
			case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
				enc, err = encodeIndexed(types[i], e)
			default:
				enc, err = encodeWord(types[i], e)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil
	}
	return encodeWord(t, tok)
}

// DecodeTopic decodes an indexed event parameter. Parameters stored as hashes come back as a
// 32 byte FixedBytes token.
func DecodeTopic(t abi.Type, topic common.Hash) (Token, error) {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return FixedBytes(topic.Bytes()), nil
	}
	toks, err := Decode([]abi.Type{t}, topic.Bytes())
	if err != nil {
		return nil, err
	}
	return toks[0], nil
}
