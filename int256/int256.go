// Package int256 implements a 256-bit two's complement signed integer backed by holiman/uint256.
package int256

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const (
	ErrIntegerOverflow = "integer overflow"
	ErrDivisionByZero  = "division by zero"
	ErrInvalidDigit    = "invalid digit found in string"
	ErrEmptyString     = "cannot parse integer from empty string"
)

// RangeError is returned when a value does not fit the requested integer type
type RangeError struct {
	Value  string
	Target string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("integer %s out of range for %s", e.Value, e.Target)
}

// I256 is a signed 256-bit integer stored as its raw two's complement word.
// The zero value is 0.
type I256 struct {
	v uint256.Int
}

var (
	minI256 = I256{v: uint256.Int{0, 0, 0, 1 << 63}}
	maxI256 = I256{v: uint256.Int{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0) >> 1}}
)

// MinI256 returns -2^255
func MinI256() I256 { return minI256 }

// MaxI256 returns 2^255 - 1
func MaxI256() I256 { return maxI256 }

func Zero() I256 { return I256{} }

func One() I256 { return FromInt64(1) }

func MinusOne() I256 { return FromInt64(-1) }

// FromInt64 sign-extends x to 256 bits
func FromInt64(x int64) I256 {
	var r I256
	r.v.SetUint64(uint64(x))
	if x < 0 {
		r.v[1], r.v[2], r.v[3] = ^uint64(0), ^uint64(0), ^uint64(0)
	}
	return r
}

// FromUint64 converts x, every uint64 fits
func FromUint64(x uint64) I256 {
	var r I256
	r.v.SetUint64(x)
	return r
}

// FromRaw reinterprets a raw 256-bit word as a two's complement integer.
func FromRaw(u uint256.Int) I256 {
	return I256{v: u}
}

// TryFromUint256 converts an unsigned value, failing when it exceeds MaxI256.
func TryFromUint256(u *uint256.Int) (I256, error) {
	if u[3]>>63 == 1 {
		return I256{}, &RangeError{Value: u.ToBig().String(), Target: "I256"}
	}
	return I256{v: *u}, nil
}

// FromBig converts b, failing when it is outside [MinI256, MaxI256].
func FromBig(b *big.Int) (I256, error) {
	if b == nil {
		return I256{}, nil
	}
	abs := new(big.Int).Abs(b)
	u, overflow := uint256.FromBig(abs)
	if overflow {
		return I256{}, &RangeError{Value: b.String(), Target: "I256"}
	}
	r, ok := fromSignAndAbs(b.Sign() < 0, u)
	if !ok {
		return I256{}, &RangeError{Value: b.String(), Target: "I256"}
	}
	return r, nil
}

// MustFromDecimal is like ParseDecimal but panics on error, handy for constants and tests
func MustFromDecimal(s string) I256 {
	r, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseDecimal parses an optionally signed base-10 string.
func ParseDecimal(s string) (I256, error) {
	neg, digits, err := splitSign(s)
	if err != nil {
		return I256{}, err
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return I256{}, errors.New(ErrInvalidDigit)
	}
	return parsedAbs(neg, b)
}

// ParseHex parses an optionally signed base-16 string with or without a 0x prefix.
func ParseHex(s string) (I256, error) {
	neg, digits, err := splitSign(s)
	if err != nil {
		return I256{}, err
	}
	digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
	if digits == "" {
		return I256{}, errors.New(ErrEmptyString)
	}
	if len(strings.TrimLeft(digits, "0")) > 64 {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	b, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return I256{}, errors.New(ErrInvalidDigit)
	}
	return parsedAbs(neg, b)
}

func splitSign(s string) (bool, string, error) {
	if s == "" {
		return false, "", errors.New(ErrEmptyString)
	}
	neg := false
	switch s[0] {
	case '-':
		neg, s = true, s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s[0] == '-' || s[0] == '+' {
		return false, "", errors.New(ErrInvalidDigit)
	}
	return neg, s, nil
}

func parsedAbs(neg bool, b *big.Int) (I256, error) {
	u, overflow := uint256.FromBig(b)
	if overflow {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	r, ok := fromSignAndAbs(neg, u)
	if !ok {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return r, nil
}

// fromSignAndAbs reports false when abs does not fit the signed range for the given sign
func fromSignAndAbs(neg bool, abs *uint256.Int) (I256, bool) {
	var r I256
	if neg {
		r.v.Neg(abs)
	} else {
		r.v.Set(abs)
	}
	if abs.IsZero() {
		return r, true
	}
	return r, r.IsNegative() == neg
}

// Raw returns the two's complement word.
func (x I256) Raw() uint256.Int {
	return x.v
}

// IntoRaw is Raw as a pointer for APIs that take *uint256.Int
func (x I256) IntoRaw() *uint256.Int {
	r := x.v
	return &r
}

func (x I256) IsNegative() bool {
	return x.v[3]>>63 == 1
}

func (x I256) IsZero() bool {
	return x.v.IsZero()
}

// Sign returns -1, 0 or +1
func (x I256) Sign() int {
	return x.v.Sign()
}

// Cmp compares x and y as signed integers
func (x I256) Cmp(y I256) int {
	switch {
	case x.v.Slt(&y.v):
		return -1
	case x.v.Sgt(&y.v):
		return 1
	default:
		return 0
	}
}

func (x I256) Eq(y I256) bool {
	return x.v.Eq(&y.v)
}

// UnsignedAbs returns |x| as an unsigned integer, exact for MinI256 too
func (x I256) UnsignedAbs() uint256.Int {
	var r uint256.Int
	if x.IsNegative() {
		r.Neg(&x.v)
	} else {
		r.Set(&x.v)
	}
	return r
}

// Big converts x into a new big.Int
func (x I256) Big() *big.Int {
	abs := x.UnsignedAbs()
	b := abs.ToBig()
	if x.IsNegative() {
		b.Neg(b)
	}
	return b
}

// Int64 converts x, failing when it does not fit an int64
func (x I256) Int64() (int64, error) {
	b := x.Big()
	if !b.IsInt64() {
		return 0, &RangeError{Value: b.String(), Target: "int64"}
	}
	return b.Int64(), nil
}

// SaturatingInt64 clamps x to the int64 range
func (x I256) SaturatingInt64() int64 {
	v, err := x.Int64()
	if err == nil {
		return v
	}
	if x.IsNegative() {
		return -1 << 63
	}
	return 1<<63 - 1
}

// Neg wraps, so MinI256 negates to itself
func (x I256) Neg() I256 {
	var r I256
	r.v.Neg(&x.v)
	return r
}

// Abs wraps like Neg, the absolute value of MinI256 is MinI256
func (x I256) Abs() I256 {
	if x.IsNegative() {
		return x.Neg()
	}
	return x
}

func (x I256) CheckedNeg() (I256, error) {
	if x.Eq(minI256) {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return x.Neg(), nil
}

func (x I256) WrappingAdd(y I256) I256 {
	var r I256
	r.v.Add(&x.v, &y.v)
	return r
}

func (x I256) WrappingSub(y I256) I256 {
	var r I256
	r.v.Sub(&x.v, &y.v)
	return r
}

func (x I256) WrappingMul(y I256) I256 {
	var r I256
	r.v.Mul(&x.v, &y.v)
	return r
}

// OverflowingAdd returns the wrapped sum and whether the signed range overflowed
func (x I256) OverflowingAdd(y I256) (I256, bool) {
	r := x.WrappingAdd(y)
	return r, x.IsNegative() == y.IsNegative() && r.IsNegative() != x.IsNegative()
}

// OverflowingSub returns the wrapped difference and whether the signed range overflowed
func (x I256) OverflowingSub(y I256) (I256, bool) {
	r := x.WrappingSub(y)
	return r, x.IsNegative() != y.IsNegative() && r.IsNegative() != x.IsNegative()
}

// OverflowingMul returns the wrapped product and whether the signed range overflowed
func (x I256) OverflowingMul(y I256) (I256, bool) {
	r := x.WrappingMul(y)
	exact := new(big.Int).Mul(x.Big(), y.Big())
	return r, exact.Cmp(r.Big()) != 0
}

func (x I256) CheckedAdd(y I256) (I256, error) {
	r, overflow := x.OverflowingAdd(y)
	if overflow {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return r, nil
}

func (x I256) CheckedSub(y I256) (I256, error) {
	r, overflow := x.OverflowingSub(y)
	if overflow {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return r, nil
}

func (x I256) CheckedMul(y I256) (I256, error) {
	r, overflow := x.OverflowingMul(y)
	if overflow {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return r, nil
}

// CheckedDiv truncates toward zero
func (x I256) CheckedDiv(y I256) (I256, error) {
	if y.IsZero() {
		return I256{}, errors.New(ErrDivisionByZero)
	}
	if x.Eq(minI256) && y.Eq(MinusOne()) {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	var r I256
	r.v.SDiv(&x.v, &y.v)
	return r, nil
}

// CheckedRem returns a remainder carrying the sign of x
func (x I256) CheckedRem(y I256) (I256, error) {
	if y.IsZero() {
		return I256{}, errors.New(ErrDivisionByZero)
	}
	if x.Eq(minI256) && y.Eq(MinusOne()) {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	var r I256
	r.v.SMod(&x.v, &y.v)
	return r, nil
}

func (x I256) saturate(positive bool) I256 {
	if positive {
		return maxI256
	}
	return minI256
}

func (x I256) SaturatingAdd(y I256) I256 {
	r, overflow := x.OverflowingAdd(y)
	if overflow {
		return x.saturate(!x.IsNegative())
	}
	return r
}

func (x I256) SaturatingSub(y I256) I256 {
	r, overflow := x.OverflowingSub(y)
	if overflow {
		return x.saturate(!x.IsNegative())
	}
	return r
}

func (x I256) SaturatingMul(y I256) I256 {
	r, overflow := x.OverflowingMul(y)
	if overflow {
		return x.saturate(x.IsNegative() == y.IsNegative())
	}
	return r
}

// Pow raises x to exp, failing on overflow
func (x I256) Pow(exp uint) (I256, error) {
	exact := new(big.Int).Exp(x.Big(), new(big.Int).SetUint64(uint64(exp)), nil)
	r, err := FromBig(exact)
	if err != nil {
		return I256{}, errors.New(ErrIntegerOverflow)
	}
	return r, nil
}

// String formats x in base 10
func (x I256) String() string {
	abs := x.UnsignedAbs()
	if x.IsNegative() {
		return "-" + abs.ToBig().String()
	}
	return abs.ToBig().String()
}

// Hex formats x as a signed 0x-prefixed hex string
func (x I256) Hex() string {
	abs := x.UnsignedAbs()
	if x.IsNegative() {
		return "-" + abs.Hex()
	}
	return abs.Hex()
}

func (x I256) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *I256) UnmarshalText(input []byte) error {
	r, err := ParseDecimal(string(input))
	if err != nil {
		return err
	}
	*x = r
	return nil
}

func (x I256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + x.String() + `"`), nil
}

func (x *I256) UnmarshalJSON(input []byte) error {
	s := strings.Trim(string(input), `"`)
	if strings.HasPrefix(strings.TrimLeft(s, "+-"), "0x") {
		r, err := ParseHex(s)
		if err != nil {
			return err
		}
		*x = r
		return nil
	}
	return x.UnmarshalText([]byte(s))
}
