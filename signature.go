package ethcontract

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/smartcontractkit/ethcontract/tokens"
)

// Signature is a typed handle to a function, A is the struct of its arguments and R its
// return type. Generated bindings expose one per function.
type Signature[A, R any] struct {
	Selector [4]byte
	Sig      string
}

// NewSignature computes the selector of a canonical signature such as "transfer(address,uint256)"
func NewSignature[A, R any](sig string) Signature[A, R] {
	var s Signature[A, R]
	copy(s.Selector[:], crypto.Keccak256([]byte(sig))[:4])
	s.Sig = sig
	return s
}

func (s Signature[A, R]) String() string {
	return s.Sig
}

func (s Signature[A, R]) flatten(args A) ([]any, error) {
	tok, err := tokens.IntoToken(args)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Detail: s.Sig, Err: err}
	}
	tup, ok := tok.(tokens.Tuple)
	if !ok {
		return []any{tok}, nil
	}
	out := make([]any, len(tup))
	for i, t := range tup {
		out[i] = t
	}
	return out, nil
}

// Method creates a builder for the function on instance i
func (s Signature[A, R]) Method(i *Instance, args A) (*MethodBuilder[R], error) {
	flat, err := s.flatten(args)
	if err != nil {
		return nil, err
	}
	return Method[R](i, s.Selector, flat...)
}

func (s Signature[A, R]) ViewMethod(i *Instance, args A) (*ViewMethodBuilder[R], error) {
	flat, err := s.flatten(args)
	if err != nil {
		return nil, err
	}
	return ViewMethod[R](i, s.Selector, flat...)
}
