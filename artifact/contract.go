package artifact

import (
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Contract is everything known about a single compiled contract
type Contract struct {
	Name             string             `json:"contractName"`
	ABI              *ABI               `json:"abi"`
	Bytecode         Bytecode           `json:"bytecode"`
	DeployedBytecode Bytecode           `json:"deployedBytecode"`
	Networks         map[string]Network `json:"networks"`
	Devdoc           Documentation      `json:"devdoc"`
	Userdoc          Documentation      `json:"userdoc"`
}

// Network is a known deployment of a contract on one chain, keyed by chain id
type Network struct {
	Address               common.Address         `json:"address"`
	DeploymentInformation *DeploymentInformation `json:"-"`
}

type networkJSON struct {
	Address         common.Address `json:"address"`
	TransactionHash *common.Hash   `json:"transactionHash,omitempty"`
	BlockNumber     *uint64        `json:"blockNumber,omitempty"`
}

func (n Network) MarshalJSON() ([]byte, error) {
	out := networkJSON{Address: n.Address}
	if n.DeploymentInformation != nil {
		out.TransactionHash = n.DeploymentInformation.TransactionHash
		out.BlockNumber = n.DeploymentInformation.BlockNumber
	}
	return json.Marshal(out)
}

func (n *Network) UnmarshalJSON(data []byte) error {
	var in networkJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	n.Address = in.Address
	n.DeploymentInformation = nil
	switch {
	case in.TransactionHash != nil:
		n.DeploymentInformation = &DeploymentInformation{TransactionHash: in.TransactionHash}
	case in.BlockNumber != nil:
		n.DeploymentInformation = &DeploymentInformation{BlockNumber: in.BlockNumber}
	}
	return nil
}

// DeploymentInformation locates the block a contract was created in, either directly or through
// the creating transaction. Exactly one field is set.
type DeploymentInformation struct {
	BlockNumber     *uint64
	TransactionHash *common.Hash
}

func DeployedAtBlock(n uint64) *DeploymentInformation {
	return &DeploymentInformation{BlockNumber: &n}
}

func DeployedInTransaction(h common.Hash) *DeploymentInformation {
	return &DeploymentInformation{TransactionHash: &h}
}

// Documentation is the devdoc or userdoc section of an artifact
type Documentation struct {
	Details string              `json:"details,omitempty"`
	Notice  string              `json:"notice,omitempty"`
	Methods map[string]DocEntry `json:"methods,omitempty"`
}

// DocEntry is keyed by canonical signature in Documentation.Methods
type DocEntry struct {
	Details string `json:"details,omitempty"`
	Notice  string `json:"notice,omitempty"`
}

// MethodDoc returns the best prose for a signature, preferring developer details
func (c *Contract) MethodDoc(sig string) string {
	if e, ok := c.Devdoc.Methods[sig]; ok && e.Details != "" {
		return e.Details
	}
	if e, ok := c.Userdoc.Methods[sig]; ok && e.Notice != "" {
		return e.Notice
	}
	return ""
}

// ChainIDs returns the networks the contract is deployed on, sorted
func (c *Contract) ChainIDs() []string {
	ids := make([]string, 0, len(c.Networks))
	for id := range c.Networks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Artifact is a set of contracts loaded from one source
type Artifact struct {
	Origin    string
	contracts map[string]*Contract
	order     []string
}

func NewArtifact(origin string) *Artifact {
	return &Artifact{Origin: origin, contracts: make(map[string]*Contract)}
}

// Insert adds a contract, replacing one with the same name
func (a *Artifact) Insert(c *Contract) {
	if _, ok := a.contracts[c.Name]; !ok {
		a.order = append(a.order, c.Name)
	}
	a.contracts[c.Name] = c
}

func (a *Artifact) Get(name string) (*Contract, bool) {
	c, ok := a.contracts[name]
	return c, ok
}

func (a *Artifact) Len() int {
	return len(a.order)
}

// Contracts returns the contracts in insertion order
func (a *Artifact) Contracts() []*Contract {
	out := make([]*Contract, 0, len(a.order))
	for _, n := range a.order {
		out = append(out, a.contracts[n])
	}
	return out
}

// Select returns the named contract, or the only contract when name is empty
func (a *Artifact) Select(name string) (*Contract, error) {
	if name != "" {
		c, ok := a.Get(name)
		if !ok {
			return nil, &ArtifactError{Origin: a.Origin, Reason: ErrContractNotFound + ": " + name}
		}
		return c, nil
	}
	switch a.Len() {
	case 0:
		return nil, &ArtifactError{Origin: a.Origin, Reason: ErrEmptyArtifact}
	case 1:
		return a.contracts[a.order[0]], nil
	}
	return nil, &ArtifactError{Origin: a.Origin, Reason: ErrAmbiguousContract}
}
