package tokens

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/int256"
)

// Tokenizable is implemented by types that convert themselves into a token
type Tokenizable interface {
	IntoToken() (Token, error)
}

// Detokenizable is implemented by pointer types that fill themselves from a token
type Detokenizable interface {
	FromToken(Token) error
}

var (
	tokenType         = reflect.TypeOf((*Token)(nil)).Elem()
	tokenizableType   = reflect.TypeOf((*Tokenizable)(nil)).Elem()
	detokenizableType = reflect.TypeOf((*Detokenizable)(nil)).Elem()
	addressType       = reflect.TypeOf(common.Address{})
	hashType          = reflect.TypeOf(common.Hash{})
	bigIntPtrType     = reflect.TypeOf((*big.Int)(nil))
	i256Type          = reflect.TypeOf(int256.I256{})
	u256Type          = reflect.TypeOf(uint256.Int{})
	u256PtrType       = reflect.TypeOf((*uint256.Int)(nil))
)

// IntoTokens tokenizes an argument list into the elements of a tuple
func IntoTokens(values ...any) ([]Token, error) {
	out := make([]Token, len(values))
	for i, v := range values {
		t, err := IntoToken(v)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		out[i] = t
	}
	return out, nil
}

// IntoToken converts a Go value into a token. Byte slices and byte arrays become Bytes and
// FixedBytes, every other slice or array becomes an Array or FixedArray, structs become tuples
// of their exported fields.
func IntoToken(v any) (Token, error) {
	if v == nil {
		return nil, errors.New(ErrNilValue)
	}
	return intoToken(reflect.ValueOf(v))
}

func intoToken(rv reflect.Value) (Token, error) {
	if !rv.IsValid() {
		return nil, errors.New(ErrNilValue)
	}
	if rv.Type().Implements(tokenizableType) {
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil, errors.New(ErrNilValue)
		}
		return rv.Interface().(Tokenizable).IntoToken()
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, errors.New(ErrNilValue)
		}
		return intoToken(rv.Elem())
	}
	if rv.Type().Implements(tokenType) {
		return rv.Interface().(Token), nil
	}
	switch rv.Type() {
	case addressType:
		return Address(rv.Interface().(common.Address)), nil
	case hashType:
		h := rv.Interface().(common.Hash)
		return FixedBytes(h.Bytes()), nil
	case bigIntPtrType:
		b := rv.Interface().(*big.Int)
		if b == nil {
			return nil, errors.New(ErrNilValue)
		}
		if b.Sign() < 0 {
			i, err := int256.FromBig(b)
			if err != nil {
				return nil, &IntegerOutOfRangeError{Value: b.String(), Type: "int256"}
			}
			return IntFromI256(i), nil
		}
		u, overflow := uint256.FromBig(b)
		if overflow {
			return nil, &IntegerOutOfRangeError{Value: b.String(), Type: "uint256"}
		}
		return Uint(*u), nil
	case i256Type:
		return IntFromI256(rv.Interface().(int256.I256)), nil
	case u256Type:
		return Uint(rv.Interface().(uint256.Int)), nil
	case u256PtrType:
		u := rv.Interface().(*uint256.Int)
		if u == nil {
			return nil, errors.New(ErrNilValue)
		}
		return Uint(*u), nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewUint(rv.Uint()), nil
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, errors.New(ErrNilValue)
		}
		return intoToken(rv.Elem())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(common.CopyBytes(rv.Bytes())), nil
		}
		elems, err := intoTokens(rv)
		if err != nil {
			return nil, err
		}
		return Array(elems), nil
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return FixedBytes(b), nil
		}
		elems, err := intoTokens(rv)
		if err != nil {
			return nil, err
		}
		return FixedArray(elems), nil
	case reflect.Struct:
		fields := exportedFields(rv.Type())
		elems := make([]Token, len(fields))
		for i, f := range fields {
			t, err := intoToken(rv.Field(f))
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", rv.Type().Field(f).Name)
			}
			elems[i] = t
		}
		return Tuple(elems), nil
	}
	return nil, errors.Wrap(fmt.Errorf("%s", rv.Type()), ErrUnsupportedType)
}

func intoTokens(rv reflect.Value) ([]Token, error) {
	elems := make([]Token, rv.Len())
	for i := range elems {
		t, err := intoToken(rv.Index(i))
		if err != nil {
			return nil, err
		}
		elems[i] = t
	}
	return elems, nil
}

func exportedFields(t reflect.Type) []int {
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}
	return fields
}

// Detokenize converts a token into a value of type T
func Detokenize[T any](tok Token) (T, error) {
	var out T
	err := FromToken(tok, &out)
	return out, err
}

// FromToken stores tok into the value dst points to
func FromToken(tok Token, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New(ErrNotAPointer)
	}
	return fromToken(tok, rv.Elem())
}

func fromToken(tok Token, dst reflect.Value) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(detokenizableType) {
		return dst.Addr().Interface().(Detokenizable).FromToken(tok)
	}
	if dst.Type() == tokenType || (dst.Kind() == reflect.Interface && dst.NumMethod() == 0) {
		dst.Set(reflect.ValueOf(tok))
		return nil
	}
	switch dst.Type() {
	case addressType:
		a, ok := tok.(Address)
		if !ok {
			return &TypeMismatchError{Expected: "address", Actual: tok}
		}
		dst.Set(reflect.ValueOf(common.Address(a)))
		return nil
	case hashType:
		b, err := fixedBytes(tok, common.HashLength)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(common.BytesToHash(b)))
		return nil
	case bigIntPtrType:
		switch v := tok.(type) {
		case Int:
			dst.Set(reflect.ValueOf(v.BigInt()))
		case Uint:
			dst.Set(reflect.ValueOf(v.BigInt()))
		default:
			return &TypeMismatchError{Expected: "integer", Actual: tok}
		}
		return nil
	case i256Type:
		switch v := tok.(type) {
		case Int:
			dst.Set(reflect.ValueOf(v.I256()))
		case Uint:
			u := uint256.Int(v)
			i, err := int256.TryFromUint256(&u)
			if err != nil {
				return &IntegerOutOfRangeError{Value: v.String(), Type: "int256"}
			}
			dst.Set(reflect.ValueOf(i))
		default:
			return &TypeMismatchError{Expected: "int", Actual: tok}
		}
		return nil
	case u256Type, u256PtrType:
		u, err := unsignedWord(tok, "uint256")
		if err != nil {
			return err
		}
		if dst.Type() == u256PtrType {
			dst.Set(reflect.ValueOf(&u))
		} else {
			dst.Set(reflect.ValueOf(u))
		}
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, ok := tok.(Bool)
		if !ok {
			return &TypeMismatchError{Expected: "bool", Actual: tok}
		}
		dst.SetBool(bool(b))
	case reflect.String:
		s, ok := tok.(String)
		if !ok {
			return &TypeMismatchError{Expected: "string", Actual: tok}
		}
		dst.SetString(string(s))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int256.I256
		switch v := tok.(type) {
		case Int:
			i = v.I256()
		case Uint:
			u := uint256.Int(v)
			var err error
			if i, err = int256.TryFromUint256(&u); err != nil {
				return &IntegerOutOfRangeError{Value: v.String(), Type: dst.Type().String()}
			}
		default:
			return &TypeMismatchError{Expected: dst.Type().String(), Actual: tok}
		}
		if !fitsBits(i, true, dst.Type().Bits()) {
			return &IntegerOutOfRangeError{Value: i.String(), Type: dst.Type().String()}
		}
		n, _ := i.Int64()
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := unsignedWord(tok, dst.Type().String())
		if err != nil {
			return err
		}
		if u.BitLen() > dst.Type().Bits() {
			return &IntegerOutOfRangeError{Value: u.ToBig().String(), Type: dst.Type().String()}
		}
		dst.SetUint(u.Uint64())
	case reflect.Ptr:
		v := reflect.New(dst.Type().Elem())
		if err := fromToken(tok, v.Elem()); err != nil {
			return err
		}
		dst.Set(v)
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch v := tok.(type) {
			case Bytes:
				dst.SetBytes(common.CopyBytes(v))
			case FixedBytes:
				dst.SetBytes(common.CopyBytes(v))
			default:
				return &TypeMismatchError{Expected: "bytes", Actual: tok}
			}
			return nil
		}
		var elems []Token
		switch v := tok.(type) {
		case Array:
			elems = v
		case FixedArray:
			elems = v
		default:
			return &TypeMismatchError{Expected: "array", Actual: tok}
		}
		s := reflect.MakeSlice(dst.Type(), len(elems), len(elems))
		for i, e := range elems {
			if err := fromToken(e, s.Index(i)); err != nil {
				return err
			}
		}
		dst.Set(s)
	case reflect.Array:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			b, err := fixedBytes(tok, dst.Len())
			if err != nil {
				return err
			}
			reflect.Copy(dst, reflect.ValueOf(b))
			return nil
		}
		arr, ok := tok.(FixedArray)
		if !ok {
			return &TypeMismatchError{Expected: "fixed array", Actual: tok}
		}
		if len(arr) != dst.Len() {
			return &FixedArrayLengthMismatchError{Expected: dst.Len(), Actual: len(arr)}
		}
		for i, e := range arr {
			if err := fromToken(e, dst.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		tup, ok := tok.(Tuple)
		if !ok {
			return &TypeMismatchError{Expected: "tuple", Actual: tok}
		}
		fields := exportedFields(dst.Type())
		if len(tup) != len(fields) {
			return &TupleLengthMismatchError{Expected: len(fields), Actual: len(tup)}
		}
		for i, f := range fields {
			if err := fromToken(tup[i], dst.Field(f)); err != nil {
				return errors.Wrapf(err, "field %s", dst.Type().Field(f).Name)
			}
		}
	default:
		return errors.Wrap(fmt.Errorf("%s", dst.Type()), ErrUnsupportedType)
	}
	return nil
}

func fixedBytes(tok Token, size int) ([]byte, error) {
	b, ok := tok.(FixedBytes)
	if !ok {
		return nil, &TypeMismatchError{Expected: fmt.Sprintf("bytes%d", size), Actual: tok}
	}
	if len(b) != size {
		return nil, &FixedBytesLengthMismatchError{Expected: size, Actual: len(b)}
	}
	return b, nil
}

func unsignedWord(tok Token, target string) (uint256.Int, error) {
	switch v := tok.(type) {
	case Uint:
		return uint256.Int(v), nil
	case Int:
		if v.I256().IsNegative() {
			return uint256.Int{}, &IntegerOutOfRangeError{Value: v.String(), Type: target}
		}
		return uint256.Int(v), nil
	}
	return uint256.Int{}, &TypeMismatchError{Expected: target, Actual: tok}
}
