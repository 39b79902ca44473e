package test_utils

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/smartcontractkit/ethcontract"
)

const TestNetwork = "simulated"

// TestConfig is a single network config for the simulated chain 1337 with one funded key
func TestConfig() *ethcontract.Config {
	network := &ethcontract.Network{
		Name:        TestNetwork,
		ChainID:     "1337",
		URLs:        []string{"ws://localhost:8546"},
		GasLimit:    8_000_000,
		PrivateKeys: []string{"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
	}
	return &ethcontract.Config{Network: network, Networks: []*ethcontract.Network{network}}
}

// CopyConfig deep copies a config through its TOML form
func CopyConfig(config *ethcontract.Config) (*ethcontract.Config, error) {
	marshalled, err := toml.Marshal(config)
	if err != nil {
		return nil, err
	}

	var configCopy ethcontract.Config
	err = toml.Unmarshal(marshalled, &configCopy)
	if err != nil {
		return nil, err
	}
	configCopy.ConfigDir = config.ConfigDir

	return &configCopy, nil
}
