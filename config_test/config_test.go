package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
	"github.com/smartcontractkit/ethcontract/test_utils"
)

// We put these tests in a separate package, so that the environment variables they set (e.g.
// ETHCONTRACT_CONFIG_PATH) do not interfere with tests that create clients from the environment.

const (
	rootKey   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	secondKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ethcontract.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "failed to write config")
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := ethcontract.DefaultConfig("ws://localhost:8546", []string{rootKey})
	require.NotNil(t, cfg, "failed to create default config")

	tr := test_utils.NewTestTransport(t)
	tr.AddResponse("0x7a69")
	client := test_utils.NewTestClientWithTransport(t, cfg, tr)
	require.Equal(t, 1, len(client.Accounts), "expected 1 account")
	require.Equal(t, uint64(31337), client.ChainID, "chain id should be read from the node")
	tr.AssertRequest("eth_chainId", `[]`)
	tr.AssertNoMoreRequests()
}

func TestDefaultConfig_TwoPks(t *testing.T) {
	cfg := ethcontract.DefaultConfig("ws://localhost:8546", []string{rootKey, secondKey})
	cfg.Network.ChainID = "1337"

	client, tr := test_utils.NewTestClient(t, cfg)
	require.Equal(t, 2, len(client.Accounts), "expected 2 accounts")
	require.Equal(t, uint64(1337), client.ChainID)
	require.Zero(t, tr.Requests(), "a configured chain id is not read from the node")
}

func TestDefaultConfig_EmptyUrl(t *testing.T) {
	cfg, err := ethcontract.ValidatedDefaultConfig("", []string{rootKey})
	require.Nil(t, cfg, "expected nil config")
	require.Error(t, err, "succeeded in creating default config")
	require.Equal(t, ethcontract.ErrEmptyRPCURL, err.Error(), "expected empty rpc url error")
}

func TestDefaultConfig_NoPks(t *testing.T) {
	cfg, err := ethcontract.ValidatedDefaultConfig("ws://localhost:8546", []string{})
	require.Nil(t, cfg, "expected nil config")
	require.Error(t, err, "succeeded in creating default config")
	require.Equal(t, ethcontract.ErrNoPrivateKeysPassed, err.Error(), "expected no private keys error")
}

func TestDefaultConfig_InvalidAndValidPk(t *testing.T) {
	cfg, err := ethcontract.ValidatedDefaultConfig("ws://localhost:8546", []string{rootKey[:63], rootKey})
	require.Nil(t, cfg, "expected nil config")
	require.Error(t, err, "succeeded in creating default config")
	require.Contains(t, err.Error(), ethcontract.ErrParsePrivateKey, "expected invalid private key error")
}

func TestReadConfigFromEnv(t *testing.T) {
	path := writeConfig(t, `
deployments_file = "deployments.toml"

[[networks]]
name = "simulated"
chain_id = "1337"
urls_secret = ["ws://localhost:8546"]
private_keys_secret = ["`+secondKey+`"]
`)
	t.Setenv(ethcontract.ConfigPathEnvVar, path)
	t.Setenv(ethcontract.NetworkEnvVar, "simulated")
	t.Setenv(ethcontract.RootPrivateKeyEnvVar, rootKey)

	cfg, err := ethcontract.ReadConfig()
	require.NoError(t, err, "failed to read config")
	require.Equal(t, "simulated", cfg.Network.Name)
	require.Equal(t, []string{secondKey, rootKey}, cfg.Network.PrivateKeys, "root key is appended")
	require.Equal(t, filepath.Join(filepath.Dir(path), "deployments.toml"), cfg.DeploymentsPath())

	client, _ := test_utils.NewTestClient(t, cfg)
	require.NotNil(t, client.Deployments, "deployments file should be opened")
	require.Len(t, client.Accounts, 2)
}

func TestReadConfigErrors(t *testing.T) {
	t.Setenv(ethcontract.ConfigPathEnvVar, "")
	_, err := ethcontract.ReadConfig()
	require.EqualError(t, err, ethcontract.ErrEmptyConfigPath)

	t.Setenv(ethcontract.ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.toml"))
	_, err = ethcontract.ReadConfig()
	require.ErrorContains(t, err, ethcontract.ErrReadConfig)

	t.Setenv(ethcontract.ConfigPathEnvVar, writeConfig(t, `[[networks]]
name = "simulated"
`))
	t.Setenv(ethcontract.NetworkEnvVar, "")
	_, err = ethcontract.ReadConfig()
	require.EqualError(t, err, ethcontract.ErrEmptyNetwork)

	t.Setenv(ethcontract.NetworkEnvVar, "mainnet")
	_, err = ethcontract.ReadConfig()
	require.ErrorContains(t, err, "mainnet")
}

func TestClientWithoutUrl(t *testing.T) {
	cfg := ethcontract.DefaultConfig("", nil)
	cfg.Network.URLs = nil
	_, err := ethcontract.NewClientWithConfig(context.Background(), cfg)
	require.EqualError(t, err, ethcontract.ErrNoNetworkURLs)
}
