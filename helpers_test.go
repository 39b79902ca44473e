package ethcontract_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract/artifact"
)

var (
	testAccount = common.HexToAddress("0x9876543210987654321098765432109876543210")
	testTarget  = common.HexToAddress("0x0123456789012345678901234567890123456789")
	testHash    = common.HexToHash("0x4242424242424242424242424242424242424242424242424242424242424242")

	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

const tokenABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"supply","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"info","stateMutability":"view","inputs":[],"outputs":[{"name":"name","type":"string"},{"name":"decimals","type":"uint8"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"fallback","stateMutability":"payable"}
]`

type transferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

func mustABI(t *testing.T, data string) *artifact.ABI {
	t.Helper()
	a, err := artifact.ParseABI([]byte(data))
	require.NoError(t, err, "failed to parse test abi")
	return a
}

func selector(sig string) [4]byte {
	var s [4]byte
	copy(s[:], crypto.Keccak256([]byte(sig))[:4])
	return s
}

// word is n as a 32 byte ABI word
func word(n int64) []byte {
	return common.LeftPadBytes(big.NewInt(n).Bytes(), 32)
}

// receipt is the JSON of a mined receipt, status 1 unless overridden
func receipt(hash common.Hash, block uint64, extra ...map[string]any) map[string]any {
	r := map[string]any{
		"transactionHash":   hash,
		"blockNumber":       hexutil.Uint64(block),
		"blockHash":         common.Hash{},
		"transactionIndex":  "0x0",
		"status":            "0x1",
		"cumulativeGasUsed": "0x5208",
		"gasUsed":           "0x5208",
		"logsBloom":         types.Bloom{},
		"logs":              []any{},
	}
	for _, e := range extra {
		for k, v := range e {
			r[k] = v
		}
	}
	return r
}

// transferLog is the JSON of a mined Transfer log
func transferLog(address common.Address, block uint64, from, to common.Address, value int64, removed bool) map[string]any {
	return map[string]any{
		"address":          address,
		"topics":           []common.Hash{transferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		"data":             hexutil.Bytes(word(value)),
		"blockHash":        common.BigToHash(big.NewInt(int64(block))),
		"blockNumber":      hexutil.Uint64(block),
		"transactionHash":  testHash,
		"transactionIndex": "0x0",
		"logIndex":         "0x1",
		"removed":          removed,
	}
}

func ptr[T any](v T) *T {
	return &v
}
