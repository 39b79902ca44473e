package tokens

import "fmt"

const (
	ErrEncode          = "abi: cannot encode values"
	ErrInvalidEncoding = "abi: cannot decode data"
	ErrNonCanonical    = "abi: data is not canonically encoded"
	ErrNilValue        = "cannot tokenize a nil value"
	ErrNotAPointer     = "detokenize target must be a non-nil pointer"
	ErrUnsupportedType = "unsupported abi type"
)

// TypeMismatchError is returned when a token variant cannot be converted to the requested type
type TypeMismatchError struct {
	Expected string
	Actual   Token
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s token %v", e.Expected, Kind(e.Actual), e.Actual)
}

// IntegerOutOfRangeError is returned when an integer token does not fit the target width
type IntegerOutOfRangeError struct {
	Value string
	Type  string
}

func (e *IntegerOutOfRangeError) Error() string {
	return fmt.Sprintf("integer %s out of range for %s", e.Value, e.Type)
}

type FixedBytesLengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *FixedBytesLengthMismatchError) Error() string {
	return fmt.Sprintf("fixed bytes length mismatch: expected %d bytes, got %d", e.Expected, e.Actual)
}

type FixedArrayLengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *FixedArrayLengthMismatchError) Error() string {
	return fmt.Sprintf("fixed array length mismatch: expected %d elements, got %d", e.Expected, e.Actual)
}

type TupleLengthMismatchError struct {
	Expected int
	Actual   int
}

func (e *TupleLengthMismatchError) Error() string {
	return fmt.Sprintf("tuple length mismatch: expected %d elements, got %d", e.Expected, e.Actual)
}
