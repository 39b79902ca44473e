package ethcontract_test

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/test_utils"
)

var libAddress = common.HexToAddress("0x5555555555555555555555555555555555555555")

func libPlaceholder(name string) string {
	return "__" + name + strings.Repeat("_", 38-len(name))
}

func tokenContract(t *testing.T, code string) *artifact.Contract {
	return &artifact.Contract{
		Name:     "Token",
		ABI:      mustABI(t, tokenABI),
		Bytecode: artifact.MustBytecode(code),
	}
}

func instanceOf(i *ethcontract.Instance) *ethcontract.Instance { return i }

func TestDeployWithConstructorArguments(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(testHash)
	tr.AddResponse("0x2")
	tr.AddResponse(receipt(testHash, 2, map[string]any{"contractAddress": testTarget}))

	d := ethcontract.NewDeployBuilder(tr, tokenContract(t, "0x6001"), nil, instanceOf, big.NewInt(1000)).
		From(ethcontract.LocalAccount(testAccount, nil)).
		Gas(100000).
		GasPrice(ethcontract.LegacyGasPrice(big.NewInt(1))).
		Resolve(ethcontract.ResolveConfirmed(ethcontract.ConfirmParams{PollFactor: 1}))
	data, err := d.TxData()
	require.NoError(t, err)
	require.Equal(t, append([]byte{0x60, 0x01}, word(1000)...), data, "constructor arguments follow the code")

	i, err := d.Deploy(context.Background())
	require.NoError(t, err, "deployment failed")
	require.Equal(t, testTarget, i.Address())
	require.NotNil(t, i.DeploymentInformation())
	require.Equal(t, testHash, *i.DeploymentInformation().TransactionHash)

	tr.AssertRequest("eth_sendTransaction", fmt.Sprintf(`[{"from":"%s","gas":"0x186a0","gasPrice":"0x1","data":"%s"}]`,
		strings.ToLower(testAccount.Hex()), hexutil.Encode(data)))
	tr.AssertRequest("eth_blockNumber", `[]`)
	tr.AssertRequest("eth_getTransactionReceipt", fmt.Sprintf(`["%s"]`, testHash.Hex()))
	tr.AssertNoMoreRequests()
}

func TestDeployLibrariesFirst(t *testing.T) {
	libHash := common.HexToHash("0x77")
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(libHash)
	tr.AddResponse("0x1")
	tr.AddResponse(receipt(libHash, 1, map[string]any{"contractAddress": libAddress}))
	tr.AddResponse(testHash)
	tr.AddResponse("0x2")
	tr.AddResponse(receipt(testHash, 2, map[string]any{"contractAddress": testTarget}))

	code := "0x60" + libPlaceholder("Math") + "00"
	i, err := ethcontract.NewDeployBuilder(tr, tokenContract(t, code), nil, instanceOf, uint64(1)).
		DeployLibrary("Math", artifact.MustBytecode("0x6002")).
		From(ethcontract.LocalAccount(testAccount, nil)).
		Gas(100000).
		Resolve(ethcontract.ResolveConfirmed(ethcontract.ConfirmParams{PollFactor: 1})).
		Deploy(context.Background())
	require.NoError(t, err, "deployment with library failed")
	require.Equal(t, testTarget, i.Address())

	from := strings.ToLower(testAccount.Hex())
	tr.AssertRequest("eth_sendTransaction", fmt.Sprintf(`[{"from":"%s","gas":"0x186a0","data":"0x6002"}]`, from))
	tr.AssertRequest("eth_blockNumber", `[]`)
	tr.AssertRequest("eth_getTransactionReceipt", fmt.Sprintf(`["%s"]`, libHash.Hex()))

	linked := append(append([]byte{0x60}, libAddress.Bytes()...), 0x00)
	linked = append(linked, word(1)...)
	tr.AssertRequest("eth_sendTransaction", fmt.Sprintf(`[{"from":"%s","gas":"0x186a0","data":"%s"}]`, from, hexutil.Encode(linked)))
	tr.AssertRequest("eth_blockNumber", `[]`)
	tr.AssertRequest("eth_getTransactionReceipt", fmt.Sprintf(`["%s"]`, testHash.Hex()))
	tr.AssertNoMoreRequests()
}

func TestDeployLinksKnownLibraries(t *testing.T) {
	code := "0x60" + libPlaceholder("Math") + "00"
	d := ethcontract.NewDeployBuilder(test_utils.NewTestTransport(t), tokenContract(t, code),
		map[string]common.Address{"Math": libAddress}, instanceOf, uint64(1))
	data, err := d.TxData()
	require.NoError(t, err)
	require.Equal(t, libAddress.Bytes(), data[1:21], "placeholder should be replaced by the address")
}

func TestDeployErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ethcontract.NewDeployBuilder(test_utils.NewTestTransport(t), tokenContract(t, "0x"), nil, instanceOf).Deploy(ctx)
	var deployErr *ethcontract.DeployError
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.EmptyBytecode, deployErr.Kind)

	noCtor := &artifact.Contract{Name: "Empty", ABI: mustABI(t, `[]`), Bytecode: artifact.MustBytecode("0x6001")}
	_, err = ethcontract.NewDeployBuilder(test_utils.NewTestTransport(t), noCtor, nil, instanceOf, uint64(1)).Deploy(ctx)
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.DeployAbi, deployErr.Kind, "arguments without a constructor")

	_, err = ethcontract.NewDeployBuilder(test_utils.NewTestTransport(t), tokenContract(t, "0x6001"), nil, instanceOf).Deploy(ctx)
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.DeployAbi, deployErr.Kind, "constructor argument missing")

	code := "0x60" + libPlaceholder("Math") + "00"
	_, err = ethcontract.NewDeployBuilder(test_utils.NewTestTransport(t), tokenContract(t, code), nil, instanceOf, uint64(1)).
		DeployLibrary("Math", artifact.MustBytecode("0x6002")).
		Resolve(ethcontract.ResolvePending()).
		Deploy(ctx)
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.DeployLink, deployErr.Kind)
	require.Contains(t, err.Error(), ethcontract.ErrPendingLibraries)
}

func TestDeployPending(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(testHash)

	_, err := ethcontract.NewDeployBuilder(tr, tokenContract(t, "0x6001"), nil, instanceOf, uint64(1)).
		From(ethcontract.LocalAccount(testAccount, nil)).
		Gas(100000).
		Resolve(ethcontract.ResolvePending()).
		Deploy(context.Background())
	var deployErr *ethcontract.DeployError
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.DeployPending, deployErr.Kind)
	require.Equal(t, testHash, deployErr.Hash, "pending deployment reports its transaction")
}

func TestDeployWithoutContractAddress(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(testHash)
	tr.AddResponse("0x2")
	tr.AddResponse(receipt(testHash, 2))

	_, err := ethcontract.NewDeployBuilder(tr, tokenContract(t, "0x6001"), nil, instanceOf, uint64(1)).
		From(ethcontract.LocalAccount(testAccount, nil)).
		Gas(100000).
		Resolve(ethcontract.ResolveConfirmed(ethcontract.ConfirmParams{PollFactor: 1})).
		Deploy(context.Background())
	var deployErr *ethcontract.DeployError
	require.ErrorAs(t, err, &deployErr)
	require.Equal(t, ethcontract.DeployTx, deployErr.Kind)
	require.Contains(t, err.Error(), ethcontract.ErrNoContractAddress)
}
