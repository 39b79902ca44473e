package generate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// bindType is the Go type a value of an ABI type converts to and from
func bindType(t abi.Type) (string, error) {
	switch t.T {
	case abi.IntTy:
		if t.Size > 64 {
			return "int256.I256", nil
		}
		return fmt.Sprintf("int%d", wordSize(t.Size)), nil
	case abi.UintTy:
		if t.Size > 64 {
			return "*big.Int", nil
		}
		return fmt.Sprintf("uint%d", wordSize(t.Size)), nil
	case abi.BoolTy:
		return "bool", nil
	case abi.StringTy:
		return "string", nil
	case abi.AddressTy:
		return "common.Address", nil
	case abi.BytesTy:
		return "[]byte", nil
	case abi.FixedBytesTy:
		return fmt.Sprintf("[%d]byte", t.Size), nil
	case abi.FunctionTy:
		return "[24]byte", nil
	case abi.SliceTy:
		elem, err := bindType(*t.Elem)
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	case abi.ArrayTy:
		elem, err := bindType(*t.Elem)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%d]%s", t.Size, elem), nil
	case abi.TupleTy:
		names := fieldNames(t.TupleRawNames, "Field")
		fields := make([]string, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			ft, err := bindType(*elem)
			if err != nil {
				return "", err
			}
			fields[i] = names[i] + " " + ft
		}
		return structType(fields), nil
	}
	return "", errors.Errorf("%s: %s", ErrUnsupportedType, t.String())
}

// bindTopicType is bindType for indexed event parameters, dynamic values only leave their hash
// in the topic
func bindTopicType(t abi.Type) (string, error) {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return "common.Hash", nil
	}
	return bindType(t)
}

func wordSize(bits int) int {
	switch {
	case bits <= 8:
		return 8
	case bits <= 16:
		return 16
	case bits <= 32:
		return 32
	}
	return 64
}

func structType(fields []string) string {
	if len(fields) == 0 {
		return "struct{}"
	}
	return "struct {\n" + strings.Join(fields, "\n") + "\n}"
}

// returnType is what a call of a function with these outputs decodes into
func returnType(outputs abi.Arguments) (string, error) {
	switch len(outputs) {
	case 0:
		return "ethcontract.Void", nil
	case 1:
		return bindType(outputs[0].Type)
	}
	raw := make([]string, len(outputs))
	for i, o := range outputs {
		raw[i] = o.Name
	}
	names := fieldNames(raw, "Out")
	fields := make([]string, len(outputs))
	for i, o := range outputs {
		ft, err := bindType(o.Type)
		if err != nil {
			return "", err
		}
		fields[i] = names[i] + " " + ft
	}
	return structType(fields), nil
}
