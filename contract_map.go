package ethcontract

import (
	"os"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/artifact"
)

const (
	ErrReadDeployments      = "failed to read deployments file"
	ErrUnmarshalDeployments = "failed to unmarshal deployments file"
	ErrWriteDeployments     = "failed to write deployments file"
)

// StoredDeployment is one deployed contract as kept in the deployments file
type StoredDeployment struct {
	Address         string `toml:"address"`
	TransactionHash string `toml:"transaction_hash,omitempty"`
	BlockNumber     uint64 `toml:"block_number,omitempty"`
}

// DeploymentStore persists deployed contract addresses per chain id and contract name in a
// TOML file:
//
//	[1337.Token]
//	address = "0x..."
//	transaction_hash = "0x..."
type DeploymentStore struct {
	path        string
	mu          sync.Mutex
	deployments map[string]map[string]StoredDeployment
}

// OpenDeploymentStore loads the store, a missing file is an empty store
func OpenDeploymentStore(path string) (*DeploymentStore, error) {
	s := &DeploymentStore{path: path, deployments: map[string]map[string]StoredDeployment{}}
	d, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, ErrReadDeployments)
	}
	if err := toml.Unmarshal(d, &s.deployments); err != nil {
		return nil, errors.Wrap(err, ErrUnmarshalDeployments)
	}
	return s, nil
}

// Save records a deployment and writes the file
func (s *DeploymentStore) Save(chainID, contractName string, address common.Address, info *artifact.DeploymentInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := StoredDeployment{Address: address.Hex()}
	if info != nil {
		if info.TransactionHash != nil {
			entry.TransactionHash = info.TransactionHash.Hex()
		}
		if info.BlockNumber != nil {
			entry.BlockNumber = *info.BlockNumber
		}
	}
	if s.deployments[chainID] == nil {
		s.deployments[chainID] = map[string]StoredDeployment{}
	}
	s.deployments[chainID][contractName] = entry
	marshalled, err := toml.Marshal(s.deployments)
	if err != nil {
		return errors.Wrap(err, ErrWriteDeployments)
	}
	if err := os.WriteFile(s.path, marshalled, 0600); err != nil {
		return errors.Wrap(err, ErrWriteDeployments)
	}
	L.Debug().Str("ChainID", chainID).Str("Contract", contractName).Str("Address", entry.Address).Msg("Saved deployment")
	return nil
}

// Network returns a stored deployment in the form artifacts carry it
func (s *DeploymentStore) Network(chainID, contractName string) (artifact.Network, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.deployments[chainID][contractName]
	if !ok {
		return artifact.Network{}, false
	}
	n := artifact.Network{Address: common.HexToAddress(entry.Address)}
	switch {
	case entry.BlockNumber != 0:
		n.DeploymentInformation = artifact.DeployedAtBlock(entry.BlockNumber)
	case entry.TransactionHash != "":
		n.DeploymentInformation = artifact.DeployedInTransaction(common.HexToHash(entry.TransactionHash))
	}
	return n, true
}

// Apply adds the stored deployments of a contract to its artifact networks, stored entries win
func (s *DeploymentStore) Apply(c *artifact.Contract) {
	for _, chainID := range s.ChainIDs() {
		if n, ok := s.Network(chainID, c.Name); ok {
			if c.Networks == nil {
				c.Networks = map[string]artifact.Network{}
			}
			c.Networks[chainID] = n
		}
	}
}

func (s *DeploymentStore) ChainIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.deployments))
	for id := range s.deployments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Contracts lists the contract names stored for a chain
func (s *DeploymentStore) Contracts(chainID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.deployments[chainID]))
	for name := range s.deployments[chainID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
