package ethcontract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/artifact"
)

func TestDeploymentStoreMissingFileIsEmpty(t *testing.T) {
	s, err := ethcontract.OpenDeploymentStore(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Empty(t, s.ChainIDs())
}

func TestDeploymentStoreRoundTripsThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.toml")
	s, err := ethcontract.OpenDeploymentStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Save("1337", "Token", testTarget, artifact.DeployedInTransaction(testHash)))
	require.NoError(t, s.Save("1337", "Library", libAddress, artifact.DeployedAtBlock(7)))
	require.NoError(t, s.Save("5", "Token", testAccount, nil))

	reopened, err := ethcontract.OpenDeploymentStore(path)
	require.NoError(t, err, "failed to reopen store")
	require.Equal(t, []string{"1337", "5"}, reopened.ChainIDs())
	require.Equal(t, []string{"Library", "Token"}, reopened.Contracts("1337"))

	n, ok := reopened.Network("1337", "Token")
	require.True(t, ok)
	require.Equal(t, testTarget, n.Address)
	require.Equal(t, testHash, *n.DeploymentInformation.TransactionHash)

	n, ok = reopened.Network("1337", "Library")
	require.True(t, ok)
	require.Equal(t, uint64(7), *n.DeploymentInformation.BlockNumber)

	n, ok = reopened.Network("5", "Token")
	require.True(t, ok)
	require.Nil(t, n.DeploymentInformation, "no deployment information was saved")

	_, ok = reopened.Network("5", "Library")
	require.False(t, ok)
}

func TestDeploymentStoreApplyOverridesArtifact(t *testing.T) {
	s, err := ethcontract.OpenDeploymentStore(filepath.Join(t.TempDir(), "deployments.toml"))
	require.NoError(t, err)
	require.NoError(t, s.Save("1337", "Token", testTarget, nil))

	c := tokenContract(t, "0x6001")
	c.Networks = map[string]artifact.Network{
		"1337": {Address: common.HexToAddress("0x01")},
		"1":    {Address: testAccount},
	}
	s.Apply(c)
	require.Equal(t, testTarget, c.Networks["1337"].Address, "stored deployment wins")
	require.Equal(t, testAccount, c.Networks["1"].Address, "other networks are kept")
}

func TestDeploymentStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployments.toml")
	require.NoError(t, os.WriteFile(path, []byte("[1337\naddress ="), 0600))
	_, err := ethcontract.OpenDeploymentStore(path)
	require.ErrorContains(t, err, ethcontract.ErrUnmarshalDeployments)
}
