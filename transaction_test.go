package ethcontract_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/test_utils"
)

func sequentialKey(t *testing.T) *ethcontract.PrivateKey {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	key, err := ethcontract.NewPrivateKey(raw)
	require.NoError(t, err, "failed to create key")
	return key
}

func TestOfflineSigningMatchesLocalHash(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	key := sequentialKey(t)
	chainID := uint64(77777)

	tx, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.OfflineAccount(key, &chainID)).
		To(common.Address{}).
		Gas(0x9a5).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(0x1ce))).
		Nonce(0x42).
		Build(ctx)
	require.NoError(t, err, "failed to build offline transaction")
	require.True(t, tx.IsRaw(), "offline transactions should be signed locally")
	tr.AssertNoMoreRequests()

	to := common.Address{}
	expected, err := types.SignNewTx(key.ECDSA(), types.NewEIP155Signer(big.NewInt(77777)), &types.LegacyTx{
		Nonce:    0x42,
		GasPrice: big.NewInt(0x1ce),
		Gas:      0x9a5,
		To:       &to,
		Value:    new(big.Int),
	})
	require.NoError(t, err, "failed to sign reference transaction")
	expectedRaw, err := expected.MarshalBinary()
	require.NoError(t, err, "failed to encode reference transaction")
	require.Equal(t, expected.Hash(), tx.Hash, "hash should match the reference signature")
	require.Equal(t, expectedRaw, tx.Raw, "raw bytes should be deterministic")

	again, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.OfflineAccount(key, &chainID)).
		To(common.Address{}).
		Gas(0x9a5).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(0x1ce))).
		Nonce(0x42).
		Build(ctx)
	require.NoError(t, err, "failed to build offline transaction twice")
	require.Equal(t, tx.Raw, again.Raw, "signing should be deterministic")

	tr.AddResponse(tx.Hash)
	res, err := ethcontract.SendTransaction(ctx, tr, tx, ethcontract.ResolvePending())
	require.NoError(t, err, "failed to send raw transaction")
	require.Equal(t, tx.Hash, res.Hash, "pending result should carry the hash")
	require.Nil(t, res.Receipt, "pending result should have no receipt")
	tr.AssertRequest("eth_sendRawTransaction", fmt.Sprintf(`["%s"]`, hexutil.Encode(tx.Raw)))
	tr.AssertNoMoreRequests()
}

func TestRawTransactionHashMismatch(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	key := sequentialKey(t)
	chainID := uint64(1)
	tx, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.OfflineAccount(key, &chainID)).
		To(testTarget).
		Gas(21000).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(1))).
		Nonce(0).
		Build(ctx)
	require.NoError(t, err, "failed to build transaction")

	tr.AddResponse(testHash)
	_, err = ethcontract.SendTransaction(ctx, tr, tx, ethcontract.ResolvePending())
	var execErr *ethcontract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, ethcontract.UnexpectedTransactionHash, execErr.Kind, "hash mismatch should be fatal")
	require.Equal(t, testHash, execErr.Hash, "error should carry the node hash")
	require.Equal(t, tx.Hash, execErr.Expected, "error should carry the local hash")
}

func TestOfflineBuildResolvesFromNode(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	key := sequentialKey(t)

	tr.AddResponse("0x5208")
	tr.AddResponse("0x64")
	tr.AddResponse("0x7")
	tr.AddResponse("0x539")
	tx, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.OfflineAccount(key, nil)).
		To(testTarget).
		Build(ctx)
	require.NoError(t, err, "failed to build transaction")

	addr := strings.ToLower(key.Address().Hex())
	tr.AssertRequest("eth_estimateGas", fmt.Sprintf(`[{"from":"%s","to":"%s"}]`, addr, strings.ToLower(testTarget.Hex())))
	tr.AssertRequest("eth_gasPrice", `[]`)
	tr.AssertRequest("eth_getTransactionCount", fmt.Sprintf(`["%s","latest"]`, addr))
	tr.AssertRequest("eth_chainId", `[]`)
	tr.AssertNoMoreRequests()

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(tx.Raw), "raw bytes should decode")
	require.Equal(t, uint64(7), decoded.Nonce())
	require.Equal(t, uint64(0x5208), decoded.Gas())
	require.Equal(t, big.NewInt(0x64), decoded.GasPrice())
	require.Equal(t, big.NewInt(1337), decoded.ChainId())
}

func TestOfflineEIP1559Transaction(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	chainID := uint64(1337)
	tx, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.OfflineAccount(sequentialKey(t), &chainID)).
		To(testTarget).
		Gas(21000).
		GasPrice(ethcontract.EIP1559GasPrice(big.NewInt(100), big.NewInt(2))).
		Nonce(1).
		Build(ctx)
	require.NoError(t, err, "failed to build dynamic fee transaction")
	tr.AssertNoMoreRequests()

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(tx.Raw), "raw bytes should decode")
	require.Equal(t, uint8(types.DynamicFeeTxType), decoded.Type())
	require.Equal(t, big.NewInt(100), decoded.GasFeeCap())
	require.Equal(t, big.NewInt(2), decoded.GasTipCap())
}

func TestNoLocalAccounts(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse([]common.Address{})
	_, err := ethcontract.NewTransactionBuilder(tr).To(testTarget).Build(context.Background())
	var execErr *ethcontract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, ethcontract.NoLocalAccounts, execErr.Kind)
	tr.AssertRequest("eth_accounts", `[]`)
	tr.AssertNoMoreRequests()
}

func TestLocalAccountWithCondition(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(testHash)
	tr.AddResponse("0x3")
	tr.AddResponse(receipt(testHash, 3))

	res, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.LocalAccount(testAccount, ethcontract.BlockCondition(100))).
		To(testTarget).
		Gas(21000).
		Value(big.NewInt(1)).
		Resolve(ethcontract.ResolveConfirmed(ethcontract.ConfirmParams{PollFactor: 1})).
		Send(ctx)
	require.NoError(t, err, "failed to send transaction")
	require.Equal(t, testHash, res.Hash)
	require.NotNil(t, res.Receipt, "confirmed result should carry the receipt")

	tr.AssertRequest("eth_sendTransaction", fmt.Sprintf(
		`[{"from":"%s","to":"%s","gas":"0x5208","value":"0x1","condition":{"block":100}}]`,
		strings.ToLower(testAccount.Hex()), strings.ToLower(testTarget.Hex())))
	tr.AssertRequest("eth_blockNumber", `[]`)
	tr.AssertRequest("eth_getTransactionReceipt", fmt.Sprintf(`["%s"]`, testHash.Hex()))
	tr.AssertNoMoreRequests()
}

func TestLockedAccountSignsWithNode(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(map[string]any{"raw": "0x0102", "tx": map[string]any{"hash": testHash}})

	tx, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.LockedAccount(testAccount, "secret", nil)).
		To(testTarget).
		Gas(21000).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(5))).
		Build(ctx)
	require.NoError(t, err, "failed to sign with node")
	require.Equal(t, []byte{1, 2}, tx.Raw)
	require.Equal(t, testHash, tx.Hash)
	tr.AssertRequest("personal_signTransaction", fmt.Sprintf(
		`[{"from":"%s","to":"%s","gas":"0x5208","gasPrice":"0x5"},"secret"]`,
		strings.ToLower(testAccount.Hex()), strings.ToLower(testTarget.Hex())))
	tr.AssertNoMoreRequests()
}

func TestLockedAccountWithCondition(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(map[string]any{"raw": "0x0102", "tx": map[string]any{"hash": testHash}})

	_, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.LockedAccount(testAccount, "secret", ethcontract.TimeCondition(1700000000))).
		To(testTarget).
		Gas(21000).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(5))).
		Build(context.Background())
	require.NoError(t, err, "failed to sign with node")
	tr.AssertRequest("personal_signTransaction", fmt.Sprintf(
		`[{"from":"%s","to":"%s","gas":"0x5208","gasPrice":"0x5","condition":{"time":1700000000}},"secret"]`,
		strings.ToLower(testAccount.Hex()), strings.ToLower(testTarget.Hex())))
	tr.AssertNoMoreRequests()
}

func TestEmptyConditionIsNull(t *testing.T) {
	raw, err := json.Marshal(ethcontract.TransactionCondition{})
	require.NoError(t, err, "empty condition should marshal")
	require.Equal(t, "null", string(raw))

	raw, err = json.Marshal(ethcontract.BlockCondition(7))
	require.NoError(t, err, "block condition should marshal")
	require.JSONEq(t, `{"block":7}`, string(raw))
}

func TestFailedTransactionCarriesReceipt(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(testHash)
	tr.AddResponse("0x3")
	tr.AddResponse(receipt(testHash, 3, map[string]any{"status": "0x0"}))

	_, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.LocalAccount(testAccount, nil)).
		To(testTarget).
		Gas(21000).
		Resolve(ethcontract.ResolveConfirmed(ethcontract.ConfirmParams{PollFactor: 1})).
		Send(context.Background())
	var execErr *ethcontract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, ethcontract.Failure, execErr.Kind)
	require.NotNil(t, execErr.Receipt, "failure should carry the receipt")
	require.Equal(t, types.ReceiptStatusFailed, execErr.Receipt.Status)
}

func TestScaledGasPrice(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse("0x64")
	tr.AddResponse("0x5208")

	gas, err := ethcontract.NewTransactionBuilder(tr).
		From(ethcontract.LocalAccount(testAccount, nil)).
		To(testTarget).
		GasPrice(ethcontract.ScaledGasPrice(1.5)).
		EstimateGas(context.Background())
	require.NoError(t, err, "failed to estimate gas")
	require.Equal(t, uint64(21000), gas)
	tr.AssertRequest("eth_gasPrice", `[]`)
	tr.AssertRequest("eth_estimateGas", fmt.Sprintf(`[{"from":"%s","to":"%s","gasPrice":"0x96"}]`,
		strings.ToLower(testAccount.Hex()), strings.ToLower(testTarget.Hex())))
}

func TestChainIDFallsBackToNetVersion(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddError(fmt.Errorf("method not found"))
	tr.AddResponse("42")
	id, err := ethcontract.ChainID(context.Background(), tr)
	require.NoError(t, err, "failed to read chain id")
	require.Equal(t, uint64(42), id)
	tr.AssertRequest("eth_chainId", `[]`)
	tr.AssertRequest("net_version", `[]`)
}

func TestPrivateKeyParsing(t *testing.T) {
	key := sequentialKey(t)
	parsed, err := ethcontract.ParsePrivateKey("0x" + key.Hex())
	require.NoError(t, err, "failed to parse prefixed key")
	require.Equal(t, key.Address(), parsed.Address())
	require.Equal(t, crypto.PubkeyToAddress(key.ECDSA().PublicKey), key.Address())

	_, err = ethcontract.ParsePrivateKey("0xzz")
	var signErr *ethcontract.SigningError
	require.ErrorAs(t, err, &signErr)
	require.Equal(t, ethcontract.InvalidPrivateKey, signErr.Kind)
}
