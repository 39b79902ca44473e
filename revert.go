package ethcontract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tidwall/gjson"

	"github.com/smartcontractkit/ethcontract/tokens"
	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	// vendor B (nethermind family) discriminants
	revertedPrefix  = "Reverted 0x"
	badInstruction  = "Bad instruction"
	gethReverted    = "execution reverted"
	gethInvalidOp   = "invalid opcode"
	hardhatVMPrefix = "VM Exception while processing transaction: "
)

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	panicSelector = crypto.Keccak256([]byte("Panic(uint256)"))[:4]

	vmExecutionMessages = []string{"VM execution error", "VM execution error."}

	stringType, _  = abi.NewType("string", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
)

// DecodeRPCError recovers a revert or invalid opcode from a node error. It returns nil when the
// error does not have a recognized shape.
func DecodeRPCError(err *transport.RPCError) *ExecutionError {
	data := gjson.ParseBytes(err.Data)
	if len(err.Data) > 0 && data.IsObject() {
		if decoded := decodeTestNodeError(data); decoded != nil {
			return decoded
		}
	}
	if decoded := decodeClientError(err, data); decoded != nil {
		return decoded
	}
	if decoded := decodeGethError(err, data); decoded != nil {
		return decoded
	}
	return decodeHardhatError(err)
}

// decodeTestNodeError handles errors keyed by a fake transaction hash:
// {"0x<64 hex>": {"error": "revert", "reason": "..."}}
func decodeTestNodeError(data gjson.Result) *ExecutionError {
	var entry gjson.Result
	data.ForEach(func(key, value gjson.Result) bool {
		if isHashString(key.String()) {
			entry = value
			return false
		}
		return true
	})
	if !entry.Exists() {
		return nil
	}
	switch entry.Get("error").String() {
	case "revert":
		if reason := entry.Get("reason"); reason.Exists() && reason.Type == gjson.String {
			s := reason.String()
			return revertError(&s)
		}
		return revertError(nil)
	case "invalid opcode":
		return &ExecutionError{Kind: InvalidOpcode}
	}
	return nil
}

func isHashString(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hexutil.Decode(s)
	return err == nil
}

// decodeClientError handles "Reverted 0x<payload>" and "Bad instruction" carried in data, or in
// the message when data is not a string
func decodeClientError(err *transport.RPCError, data gjson.Result) *ExecutionError {
	message := err.Message
	if data.Type == gjson.String {
		message = data.String()
	}
	if payload, ok := strings.CutPrefix(message, revertedPrefix); ok {
		if payload == "" {
			return revertError(nil)
		}
		raw, decodeErr := hexutil.Decode("0x" + payload)
		if decodeErr != nil {
			return revertError(nil)
		}
		if reason, ok := DecodeRevertReason(raw); ok {
			return revertError(&reason)
		}
		return revertError(nil)
	}
	if strings.HasPrefix(message, badInstruction) {
		return &ExecutionError{Kind: InvalidOpcode}
	}
	for _, m := range vmExecutionMessages {
		if err.Message == m {
			return revertError(nil)
		}
	}
	return nil
}

// decodeGethError handles "execution reverted[: reason]" with the ABI encoded payload in data
func decodeGethError(err *transport.RPCError, data gjson.Result) *ExecutionError {
	if rest, ok := strings.CutPrefix(err.Message, gethReverted); ok {
		if reason, ok := strings.CutPrefix(rest, ": "); ok {
			return revertError(&reason)
		}
		if data.Type == gjson.String {
			if raw, decodeErr := hexutil.Decode(data.String()); decodeErr == nil {
				if reason, ok := DecodeRevertReason(raw); ok {
					return revertError(&reason)
				}
			}
		}
		return revertError(nil)
	}
	if strings.HasPrefix(err.Message, gethInvalidOp) {
		return &ExecutionError{Kind: InvalidOpcode}
	}
	return nil
}

func decodeHardhatError(err *transport.RPCError) *ExecutionError {
	msg := strings.TrimPrefix(err.Message, "Error: ")
	if msg == hardhatVMPrefix+"invalid opcode" {
		return &ExecutionError{Kind: InvalidOpcode}
	}
	if rest, ok := strings.CutPrefix(msg, hardhatVMPrefix+"reverted with reason string '"); ok {
		if reason, ok := strings.CutSuffix(rest, "'"); ok {
			return revertError(&reason)
		}
	}
	for _, needle := range []string{"VM Exception", "Transaction reverted"} {
		if strings.Contains(msg, needle) {
			return revertError(nil)
		}
	}
	return nil
}

// DecodeRevertReason decodes an ABI encoded Error(string) or Panic(uint256) revert payload.
// Panics are reported as "Panic(0x<code>)".
func DecodeRevertReason(data []byte) (string, bool) {
	if len(data) < 4 || (len(data)+28)%32 != 0 {
		return "", false
	}
	switch {
	case string(data[:4]) == string(errorSelector):
		out, err := tokens.Decode([]abi.Type{stringType}, data[4:])
		if err != nil {
			return "", false
		}
		s, ok := out[0].(tokens.String)
		return string(s), ok
	case string(data[:4]) == string(panicSelector):
		out, err := tokens.Decode([]abi.Type{uint256Type}, data[4:])
		if err != nil {
			return "", false
		}
		code, ok := out[0].(tokens.Uint)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Panic(0x%x)", code.BigInt()), true
	}
	return "", false
}
