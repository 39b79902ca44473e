package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Format is the layout of an artifact file
type Format int

const (
	// FormatTruffle is one contract per file as written by truffle and solc json output
	FormatTruffle Format = iota
	// FormatHardHat is a hardhat-deploy export for a single network
	FormatHardHat
	// FormatHardHatMulti is a hardhat-deploy `--export-all` file covering several networks
	FormatHardHatMulti
)

func (f Format) String() string {
	switch f {
	case FormatTruffle:
		return "truffle"
	case FormatHardHat:
		return "hardhat"
	case FormatHardHatMulti:
		return "hardhat-multi"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truffle":
		return FormatTruffle, nil
	case "hardhat", "hardhat-single":
		return FormatHardHat, nil
	case "hardhat-multi", "hardhat-export-all":
		return FormatHardHatMulti, nil
	}
	return 0, errors.Errorf("%s: %s", ErrUnsupportedFormat, s)
}

// Load reads an artifact file of the given format
func Load(path string, format Format) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactError{Origin: path, Reason: ErrReadArtifact, Err: err}
	}
	switch format {
	case FormatTruffle:
		return LoadTruffle(path, data)
	case FormatHardHat, FormatHardHatMulti:
		return LoadHardHat(path, data, format)
	}
	return nil, &ArtifactError{Origin: path, Reason: ErrUnsupportedFormat}
}

// LoadTruffle parses a single contract artifact. A file holding only an ABI array is accepted
// too, the contract is then named after the origin file.
func LoadTruffle(origin string, data []byte) (*Artifact, error) {
	a := NewArtifact(origin)
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		parsed, err := ParseABI(data)
		if err != nil {
			return nil, &ArtifactError{Origin: origin, Reason: ErrParseABI, Err: err}
		}
		a.Insert(&Contract{Name: nameFromOrigin(origin), ABI: parsed, Networks: map[string]Network{}})
		return a, nil
	}

	var c Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &ArtifactError{Origin: origin, Reason: ErrParseArtifact, Err: err}
	}
	if c.ABI == nil {
		return nil, &ArtifactError{Origin: origin, Reason: ErrMissingABI}
	}
	if c.Name == "" {
		c.Name = nameFromOrigin(origin)
	}
	if c.Networks == nil {
		c.Networks = map[string]Network{}
	}
	a.Insert(&c)
	return a, nil
}

func nameFromOrigin(origin string) string {
	base := origin
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".json")
}

type hardHatExport struct {
	Name      string                     `json:"name"`
	ChainID   string                     `json:"chainId"`
	Contracts map[string]hardHatContract `json:"contracts"`
}

type hardHatContract struct {
	Address          common.Address  `json:"address"`
	ABI              json.RawMessage `json:"abi"`
	TransactionHash  *common.Hash    `json:"transactionHash"`
	Receipt          *hardHatReceipt `json:"receipt"`
	Bytecode         *Bytecode       `json:"bytecode"`
	DeployedBytecode *Bytecode       `json:"deployedBytecode"`
	Devdoc           *Documentation  `json:"devdoc"`
	Userdoc          *Documentation  `json:"userdoc"`
}

type hardHatReceipt struct {
	BlockNumber *uint64 `json:"blockNumber"`
}

// LoadHardHat parses hardhat-deploy exports. With chainIDs given, only those networks of a
// multi-network export are loaded. A contract present on several chains is merged into one
// Contract carrying every deployment, its ABI must be the same everywhere.
func LoadHardHat(origin string, data []byte, format Format, chainIDs ...string) (*Artifact, error) {
	var exports []hardHatExport
	switch format {
	case FormatHardHat:
		var single hardHatExport
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, &ArtifactError{Origin: origin, Reason: ErrParseArtifact, Err: err}
		}
		exports = append(exports, single)
	case FormatHardHatMulti:
		var err error
		exports, err = parseMultiExport(data)
		if err != nil {
			return nil, &ArtifactError{Origin: origin, Reason: ErrParseArtifact, Err: err}
		}
	default:
		return nil, &ArtifactError{Origin: origin, Reason: ErrUnsupportedFormat}
	}

	wanted := make(map[string]bool, len(chainIDs))
	for _, id := range chainIDs {
		wanted[id] = true
	}
	seen := make(map[string]string)
	a := NewArtifact(origin)
	for _, exp := range exports {
		if len(wanted) > 0 && !wanted[exp.ChainID] {
			continue
		}
		if prev, ok := seen[exp.ChainID]; ok {
			return nil, &ArtifactError{
				Origin: origin,
				Reason: ErrDuplicateChain,
				Err:    fmt.Errorf("chain %s is exported as both %q and %q", exp.ChainID, prev, exp.Name),
			}
		}
		seen[exp.ChainID] = exp.Name
		for _, name := range sortedKeys(exp.Contracts) {
			if err := mergeHardHatContract(a, exp.ChainID, name, exp.Contracts[name]); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// parseMultiExport accepts both `{"<chain>": [export...]}` and `{"<chain>": {"<network>": export}}`
func parseMultiExport(data []byte) ([]hardHatExport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var out []hardHatExport
	for _, chain := range sortedKeys(raw) {
		body := strings.TrimSpace(string(raw[chain]))
		if strings.HasPrefix(body, "[") {
			var list []hardHatExport
			if err := json.Unmarshal(raw[chain], &list); err != nil {
				return nil, err
			}
			for _, exp := range list {
				out = append(out, withChain(exp, chain))
			}
			continue
		}
		var byName map[string]hardHatExport
		if err := json.Unmarshal(raw[chain], &byName); err != nil {
			return nil, err
		}
		for _, name := range sortedKeys(byName) {
			exp := byName[name]
			if exp.Name == "" {
				exp.Name = name
			}
			out = append(out, withChain(exp, chain))
		}
	}
	return out, nil
}

func withChain(exp hardHatExport, chain string) hardHatExport {
	if exp.ChainID == "" {
		exp.ChainID = chain
	}
	return exp
}

func mergeHardHatContract(a *Artifact, chainID, name string, hc hardHatContract) error {
	network := Network{Address: hc.Address}
	switch {
	case hc.Receipt != nil && hc.Receipt.BlockNumber != nil:
		network.DeploymentInformation = DeployedAtBlock(*hc.Receipt.BlockNumber)
	case hc.TransactionHash != nil:
		network.DeploymentInformation = DeployedInTransaction(*hc.TransactionHash)
	}

	if existing, ok := a.Get(name); ok {
		if !sameABI(existing.ABI.Raw(), hc.ABI) {
			return &ArtifactError{Origin: a.Origin, Reason: ErrAbiMismatch, Err: fmt.Errorf("contract %s", name)}
		}
		existing.Networks[chainID] = network
		return nil
	}

	if len(hc.ABI) == 0 {
		return &ArtifactError{Origin: a.Origin, Reason: ErrMissingABI, Err: fmt.Errorf("contract %s", name)}
	}
	parsed, err := ParseABI(hc.ABI)
	if err != nil {
		return &ArtifactError{Origin: a.Origin, Reason: ErrParseABI, Err: err}
	}
	c := &Contract{Name: name, ABI: parsed, Networks: map[string]Network{chainID: network}}
	if hc.Bytecode != nil {
		c.Bytecode = *hc.Bytecode
	}
	if hc.DeployedBytecode != nil {
		c.DeployedBytecode = *hc.DeployedBytecode
	}
	if hc.Devdoc != nil {
		c.Devdoc = *hc.Devdoc
	}
	if hc.Userdoc != nil {
		c.Userdoc = *hc.Userdoc
	}
	a.Insert(c)
	return nil
}

// sameABI compares two ABIs ignoring formatting
func sameABI(a, b json.RawMessage) bool {
	var x, y any
	if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil {
		return false
	}
	xs, _ := json.Marshal(x)
	ys, _ := json.Marshal(y)
	return string(xs) == string(ys)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
