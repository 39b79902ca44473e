package artifact_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract/artifact"
)

const tokenABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}],"outputs":[]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true}]},
	{"type":"error","name":"Insufficient","inputs":[{"name":"needed","type":"uint256"}]},
	{"type":"receive","stateMutability":"payable"}
]`

func TestABIKeepsDeclarationOrder(t *testing.T) {
	a, err := artifact.ParseABI([]byte(tokenABI))
	require.NoError(t, err, "failed to parse abi")

	var sigs []string
	for _, m := range a.Functions() {
		sigs = append(sigs, m.Sig)
	}
	require.Equal(t, []string{"transfer(address,uint256)", "balanceOf(address)", "transfer(address)"}, sigs, "functions out of order")

	overloads := a.Overloads("transfer")
	require.Len(t, overloads, 2, "expected both transfer overloads")
	require.Equal(t, "transfer(address,uint256)", overloads[0].Sig)
	require.Equal(t, "transfer(address)", overloads[1].Sig)

	events := a.Events()
	require.Len(t, events, 2)
	require.Equal(t, "Transfer(address,address,uint256)", events[0].Sig)
	require.Equal(t, "Approval(address)", events[1].Sig)

	require.Len(t, a.CustomErrors(), 1)
	require.True(t, a.HasFallback(), "receive counts as fallback")
	require.False(t, a.HasConstructor())

	m, ok := a.FunctionBySignature("balanceOf(address)")
	require.True(t, ok, "balanceOf should be found by signature")
	require.Equal(t, "70a08231", common.Bytes2Hex(m.ID))
}

func TestParseABIRejectsGarbage(t *testing.T) {
	_, err := artifact.ParseABI([]byte(`{"not":"an abi"}`))
	require.Error(t, err, "an object is not an ABI")
}

func paddedPlaceholder(name string) string {
	return "__" + name + strings.Repeat("_", 38-len(name))
}

func hashedPlaceholder(name string) string {
	return "__$" + common.Bytes2Hex(crypto.Keccak256([]byte(name)))[:34] + "$__"
}

func TestBytecodeLinking(t *testing.T) {
	code, err := artifact.NewBytecode("0x6060" + paddedPlaceholder("SafeMath") + "60" + paddedPlaceholder("SafeMath") + hashedPlaceholder("Strings"))
	require.NoError(t, err, "failed to parse bytecode")
	require.False(t, code.IsEmpty())
	require.Equal(t, []string{"SafeMath", "$" + hashedPlaceholder("Strings")[3:37] + "$"}, code.UndefinedLibraries())

	_, err = code.ToBytes()
	var bcErr *artifact.BytecodeError
	require.ErrorAs(t, err, &bcErr, "unlinked bytecode cannot be materialized")
	require.Equal(t, artifact.LinkRequired, bcErr.Kind)

	safeMath := common.HexToAddress("0x1111111111111111111111111111111111111111")
	strs := common.HexToAddress("0x2222222222222222222222222222222222222222")
	require.NoError(t, code.Link("SafeMath", safeMath), "failed to link SafeMath")
	require.NoError(t, code.Link("SafeMath", safeMath), "linking twice is a no-op")
	require.NoError(t, code.Link("Strings", strs), "failed to link Strings")
	require.Empty(t, code.UndefinedLibraries())

	out, err := code.ToBytes()
	require.NoError(t, err, "linked bytecode should materialize")
	require.Equal(t, "6060"+strings.Repeat("11", 20)+"60"+strings.Repeat("11", 20)+strings.Repeat("22", 20), common.Bytes2Hex(out))
}

func TestBytecodeErrors(t *testing.T) {
	var bcErr *artifact.BytecodeError

	_, err := artifact.NewBytecode("0x606")
	require.ErrorAs(t, err, &bcErr)
	require.Equal(t, artifact.InvalidLength, bcErr.Kind)

	_, err = artifact.NewBytecode("0x60zz")
	require.ErrorAs(t, err, &bcErr)
	require.Equal(t, artifact.InvalidHexDigit, bcErr.Kind)

	_, err = artifact.NewBytecode("0x60__Lib_____")
	require.ErrorAs(t, err, &bcErr)
	require.Equal(t, artifact.PlaceholderTooShort, bcErr.Kind)

	code := artifact.MustBytecode("0x6060")
	err = code.Link(strings.Repeat("L", 37), common.Address{})
	require.ErrorAs(t, err, &bcErr, "37 characters do not fit a placeholder")
	require.Equal(t, artifact.LinkNameTooLong, bcErr.Kind)

	empty := artifact.MustBytecode("0x")
	require.True(t, empty.IsEmpty())
}

func TestLongestPaddedLibraryName(t *testing.T) {
	name := strings.Repeat("L", 36)
	require.Len(t, paddedPlaceholder(name), 40)
	require.True(t, strings.HasSuffix(paddedPlaceholder(name), "__"), "the padded name keeps its closing underscores")

	code := artifact.MustBytecode("0x60" + paddedPlaceholder(name))
	require.Equal(t, []string{name}, code.UndefinedLibraries())
	lib := common.HexToAddress("0x1111111111111111111111111111111111111111")
	require.NoError(t, code.Link(name, lib), "36 characters fit a placeholder")
	require.Empty(t, code.UndefinedLibraries())
	raw, err := code.ToBytes()
	require.NoError(t, err)
	require.Equal(t, append([]byte{0x60}, lib.Bytes()...), raw)
}

func TestLinker(t *testing.T) {
	contract := artifact.MustBytecode("0x60" + paddedPlaceholder("Outer") + paddedPlaceholder("Math"))
	outer := artifact.MustBytecode("0x61" + paddedPlaceholder("Inner"))
	inner := artifact.MustBytecode("0x62")
	math := common.HexToAddress("0x3333333333333333333333333333333333333333")

	l := artifact.NewLinker(contract)
	require.NoError(t, l.Library("Math", math))
	require.NoError(t, l.DeployLibrary("Outer", outer))
	require.NoError(t, l.DeployLibrary("Inner", inner))
	require.Error(t, l.DeployLibrary("Inner", inner), "a library can only be defined once")

	code, libs, err := l.Finish()
	require.NoError(t, err, "linking should succeed")
	require.Equal(t, []string{"Outer"}, code.UndefinedLibraries(), "Math is linked, Outer is deployed later")
	require.Len(t, libs, 2)
	require.Equal(t, "Inner", libs[0].Name, "dependencies are deployed first")
	require.Equal(t, "Outer", libs[1].Name)
}

func TestLinkerErrors(t *testing.T) {
	var linkErr *artifact.LinkerError
	contract := artifact.MustBytecode("0x60" + paddedPlaceholder("Math"))

	l := artifact.NewLinker(contract)
	require.NoError(t, l.Library("Unused", common.Address{}))
	_, _, err := l.Finish()
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, artifact.UnusedDependency, linkErr.Kind)
	require.Equal(t, "Unused", linkErr.Library)

	_, _, err = artifact.NewLinker(contract).Finish()
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, artifact.MissingDependency, linkErr.Kind)
	require.Equal(t, []string{"Math"}, linkErr.Missing)

	l = artifact.NewLinker(contract)
	require.NoError(t, l.DeployLibrary("Math", artifact.MustBytecode("0x60"+paddedPlaceholder("Unknown"))))
	_, _, err = l.Finish()
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, artifact.NestedDependency, linkErr.Kind)
	require.Equal(t, "Math", linkErr.Library)
}

func TestLoadTruffle(t *testing.T) {
	data := `{
		"contractName": "Token",
		"abi": ` + tokenABI + `,
		"bytecode": "0x6060",
		"deployedBytecode": "0x60",
		"networks": {
			"1": {"address": "0x4444444444444444444444444444444444444444", "transactionHash": "0x00000000000000000000000000000000000000000000000000000000000000aa"},
			"5": {"address": "0x5555555555555555555555555555555555555555"}
		},
		"devdoc": {"methods": {"transfer(address,uint256)": {"details": "moves tokens"}}},
		"userdoc": {"methods": {"balanceOf(address)": {"notice": "reads a balance"}}}
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "Token.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600), "failed to write artifact")

	a, err := artifact.Load(path, artifact.FormatTruffle)
	require.NoError(t, err, "failed to load truffle artifact")
	c, err := a.Select("")
	require.NoError(t, err, "a single contract is selected by default")
	require.Equal(t, "Token", c.Name)
	require.Equal(t, []string{"1", "5"}, c.ChainIDs())
	require.NotNil(t, c.Networks["1"].DeploymentInformation.TransactionHash)
	require.Nil(t, c.Networks["5"].DeploymentInformation)
	require.Equal(t, "moves tokens", c.MethodDoc("transfer(address,uint256)"))
	require.Equal(t, "reads a balance", c.MethodDoc("balanceOf(address)"))

	_, err = artifact.LoadTruffle("x.json", []byte(`{"contractName":"NoAbi"}`))
	var artErr *artifact.ArtifactError
	require.ErrorAs(t, err, &artErr)
	require.Equal(t, artifact.ErrMissingABI, artErr.Reason)

	_, err = artifact.Load(filepath.Join(dir, "missing.json"), artifact.FormatTruffle)
	require.ErrorAs(t, err, &artErr)
	require.Equal(t, artifact.ErrReadArtifact, artErr.Reason)
}

func TestLoadHardHatMulti(t *testing.T) {
	data := `{
		"1": [{"name": "mainnet", "chainId": "1", "contracts": {
			"Token": {"address": "0x4444444444444444444444444444444444444444", "abi": ` + tokenABI + `, "receipt": {"blockNumber": 100}}
		}}],
		"5": [{"name": "goerli", "chainId": "5", "contracts": {
			"Token": {"address": "0x5555555555555555555555555555555555555555", "abi": ` + tokenABI + `}
		}}]
	}`
	a, err := artifact.LoadHardHat("deployments.json", []byte(data), artifact.FormatHardHatMulti)
	require.NoError(t, err, "failed to load hardhat export")
	c, ok := a.Get("Token")
	require.True(t, ok, "Token should be loaded")
	require.Equal(t, []string{"1", "5"}, c.ChainIDs())
	require.Equal(t, uint64(100), *c.Networks["1"].DeploymentInformation.BlockNumber)

	a, err = artifact.LoadHardHat("deployments.json", []byte(data), artifact.FormatHardHatMulti, "5")
	require.NoError(t, err, "failed to load filtered export")
	c, _ = a.Get("Token")
	require.Equal(t, []string{"5"}, c.ChainIDs(), "only the requested chain is loaded")

	mismatch := `{
		"1": [{"name": "mainnet", "chainId": "1", "contracts": {"Token": {"address": "0x4444444444444444444444444444444444444444", "abi": ` + tokenABI + `}}}],
		"5": [{"name": "goerli", "chainId": "5", "contracts": {"Token": {"address": "0x5555555555555555555555555555555555555555", "abi": []}}}]
	}`
	_, err = artifact.LoadHardHat("deployments.json", []byte(mismatch), artifact.FormatHardHatMulti)
	var artErr *artifact.ArtifactError
	require.ErrorAs(t, err, &artErr)
	require.Equal(t, artifact.ErrAbiMismatch, artErr.Reason)

	duplicate := `{
		"1": [
			{"name": "mainnet", "chainId": "1", "contracts": {}},
			{"name": "mainnet-fork", "chainId": "1", "contracts": {}}
		]
	}`
	_, err = artifact.LoadHardHat("deployments.json", []byte(duplicate), artifact.FormatHardHatMulti)
	require.ErrorAs(t, err, &artErr)
	require.Equal(t, artifact.ErrDuplicateChain, artErr.Reason)
}

func TestParseFormat(t *testing.T) {
	f, err := artifact.ParseFormat("hardhat-multi")
	require.NoError(t, err)
	require.Equal(t, artifact.FormatHardHatMulti, f)
	require.Equal(t, "hardhat-multi", f.String())

	_, err = artifact.ParseFormat("brownie")
	require.Error(t, err, "unknown formats are rejected")
}
