package ethcontract_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/transport"
)

func errorPayload(t *testing.T, reason string) []byte {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err, "failed to pack revert reason")
	return append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)
}

func jsonString(s string) json.RawMessage {
	out, _ := json.Marshal(s)
	return out
}

func TestDecodeRPCError(t *testing.T) {
	payload := errorPayload(t, "message")
	fakeTx := common.HexToHash("0x01").Hex()

	tests := []struct {
		name   string
		err    *transport.RPCError
		kind   ethcontract.ExecutionErrorKind
		reason *string
	}{
		{
			name:   "reverted payload in data",
			err:    &transport.RPCError{Code: -32015, Message: "VM execution error.", Data: jsonString("Reverted " + hexutil.Encode(payload))},
			kind:   ethcontract.Revert,
			reason: ptr("message"),
		},
		{
			name: "reverted without payload",
			err:  &transport.RPCError{Code: -32015, Message: "VM execution error.", Data: jsonString("Reverted 0x")},
			kind: ethcontract.Revert,
		},
		{
			name: "bad instruction in data",
			err:  &transport.RPCError{Code: -32015, Message: "VM execution error.", Data: jsonString("Bad instruction fd")},
			kind: ethcontract.InvalidOpcode,
		},
		{
			name: "bare vm execution error",
			err:  &transport.RPCError{Code: -32015, Message: "VM execution error."},
			kind: ethcontract.Revert,
		},
		{
			name:   "reverted payload in message",
			err:    &transport.RPCError{Code: -32015, Message: "Reverted " + hexutil.Encode(payload)},
			kind:   ethcontract.Revert,
			reason: ptr("message"),
		},
		{
			name:   "test node revert keyed by transaction",
			err:    &transport.RPCError{Code: -32000, Message: "VM Exception", Data: json.RawMessage(fmt.Sprintf(`{"%s":{"error":"revert","reason":"boom"},"stack":"..."}`, fakeTx))},
			kind:   ethcontract.Revert,
			reason: ptr("boom"),
		},
		{
			name: "test node revert without reason",
			err:  &transport.RPCError{Code: -32000, Message: "VM Exception", Data: json.RawMessage(fmt.Sprintf(`{"%s":{"error":"revert"}}`, fakeTx))},
			kind: ethcontract.Revert,
		},
		{
			name: "test node invalid opcode",
			err:  &transport.RPCError{Code: -32000, Message: "VM Exception", Data: json.RawMessage(fmt.Sprintf(`{"%s":{"error":"invalid opcode"}}`, fakeTx))},
			kind: ethcontract.InvalidOpcode,
		},
		{
			name:   "geth reason in message",
			err:    &transport.RPCError{Code: 3, Message: "execution reverted: boom"},
			kind:   ethcontract.Revert,
			reason: ptr("boom"),
		},
		{
			name:   "geth payload in data",
			err:    &transport.RPCError{Code: 3, Message: "execution reverted", Data: jsonString(hexutil.Encode(payload))},
			kind:   ethcontract.Revert,
			reason: ptr("message"),
		},
		{
			name: "geth invalid opcode",
			err:  &transport.RPCError{Code: -32000, Message: "invalid opcode: INVALID"},
			kind: ethcontract.InvalidOpcode,
		},
		{
			name:   "hardhat reason string",
			err:    &transport.RPCError{Code: -32603, Message: "Error: VM Exception while processing transaction: reverted with reason string 'boom'"},
			kind:   ethcontract.Revert,
			reason: ptr("boom"),
		},
		{
			name: "hardhat invalid opcode",
			err:  &transport.RPCError{Code: -32603, Message: "VM Exception while processing transaction: invalid opcode"},
			kind: ethcontract.InvalidOpcode,
		},
		{
			name: "hardhat revert without reason",
			err:  &transport.RPCError{Code: -32603, Message: "Transaction reverted without a reason string"},
			kind: ethcontract.Revert,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decoded := ethcontract.DecodeRPCError(tc.err)
			require.NotNil(t, decoded, "error should be recognized")
			require.Equal(t, tc.kind, decoded.Kind)
			require.Equal(t, tc.reason, decoded.Reason)
		})
	}
}

func TestUnrecognizedRPCErrorIsTransportFailure(t *testing.T) {
	rpcErr := &transport.RPCError{Code: -32000, Message: "nonce too low"}
	require.Nil(t, ethcontract.DecodeRPCError(rpcErr))

	err := ethcontract.ToExecutionError(errors.Wrap(rpcErr, "sending transaction"))
	var execErr *ethcontract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, ethcontract.TransportFailure, execErr.Kind)
	require.ErrorIs(t, err, rpcErr, "the node error stays reachable")
}

func TestDecodeRevertReason(t *testing.T) {
	reason, ok := ethcontract.DecodeRevertReason(errorPayload(t, "insufficient balance"))
	require.True(t, ok)
	require.Equal(t, "insufficient balance", reason)

	panicPayload := append(crypto.Keccak256([]byte("Panic(uint256)"))[:4], word(0x11)...)
	reason, ok = ethcontract.DecodeRevertReason(panicPayload)
	require.True(t, ok, "panics are decoded")
	require.Equal(t, "Panic(0x11)", reason)

	_, ok = ethcontract.DecodeRevertReason(errorPayload(t, "x")[:40])
	require.False(t, ok, "truncated payload")
	_, ok = ethcontract.DecodeRevertReason(append([]byte{1, 2, 3, 4}, word(1)...))
	require.False(t, ok, "unknown selector")
}
