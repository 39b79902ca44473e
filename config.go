package ethcontract

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	ErrEmptyConfigPath      = "toml config path is empty, set ETHCONTRACT_CONFIG_PATH"
	ErrReadConfig           = "failed to read TOML config for ethcontract"
	ErrUnmarshalConfig      = "failed to unmarshal TOML config for ethcontract"
	ErrEmptyNetwork         = "no network was selected, set NETWORK=..., check TOML config for available networks and set the env var"
	ErrNetworkNotFound      = "network %s not found"
	ErrNoNetworkURLs        = "network has no RPC urls, set urls_secret"
	ErrParsePrivateKey      = "failed to parse private key"
	ErrEmptyRootPrivateKey  = "no private keys were set, set ROOT_PRIVATE_KEY=..."
	ErrInvalidPollFactor    = "poll_factor must be at least 1"
	ErrInvalidPollDurations = "poll_min must not be greater than poll_max"
	ErrEmptyRPCURL          = "at least one RPC URL is required"
	ErrNoPrivateKeysPassed  = "at least one private key is required"

	ConfigPathEnvVar     = "ETHCONTRACT_CONFIG_PATH"
	NetworkEnvVar        = "NETWORK"
	RootPrivateKeyEnvVar = "ROOT_PRIVATE_KEY"

	DefaultNetworkName = "Default"
)

type Config struct {
	DeploymentsFile string         `toml:"deployments_file"`
	Network         *Network       `toml:"network"`
	Networks        []*Network     `toml:"networks"`
	Confirm         *ConfirmConfig `toml:"confirm"`
	Logs            *LogsConfig    `toml:"logs"`

	// ConfigDir is the directory of the config file, relative paths are resolved against it
	ConfigDir string `toml:"-"`
}

type Network struct {
	Name                 string    `toml:"name"`
	ChainID              string    `toml:"chain_id"`
	URLs                 []string  `toml:"urls_secret"`
	EIP1559DynamicFees   bool      `toml:"eip_1559_dynamic_fees"`
	GasPrice             int64     `toml:"gas_price"`
	GasFeeCap            int64     `toml:"gas_fee_cap"`
	GasTipCap            int64     `toml:"gas_tip_cap"`
	GasLimit             uint64    `toml:"gas_limit"`
	PrivateKeys          []string  `toml:"private_keys_secret"`
	RPCRequestsPerSecond int       `toml:"rpc_requests_per_second"`
	RPCRetries           uint      `toml:"rpc_retries"`
	RPCRetryDelay        *Duration `toml:"rpc_retry_delay"`
}

// ConfirmConfig sets the defaults of the confirmation engine, see ConfirmParams
type ConfirmConfig struct {
	Confirmations uint64    `toml:"confirmations"`
	PollMin       *Duration `toml:"poll_min"`
	PollMax       *Duration `toml:"poll_max"`
	PollFactor    float64   `toml:"poll_factor"`
	BlockTimeout  *uint64   `toml:"block_timeout"`
}

type LogsConfig struct {
	BlockPageSize       uint64    `toml:"block_page_size"`
	PollInterval        *Duration `toml:"poll_interval"`
	DeploymentCacheSize uint64    `toml:"deployment_cache_size"`
}

// ReadConfig reads the TOML config file from location specified by env var "ETHCONTRACT_CONFIG_PATH" and returns a Config struct
func ReadConfig() (*Config, error) {
	cfgPath := os.Getenv(ConfigPathEnvVar)
	if cfgPath == "" {
		return nil, errors.New(ErrEmptyConfigPath)
	}
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	snet := os.Getenv(NetworkEnvVar)
	if snet == "" {
		return nil, errors.New(ErrEmptyNetwork)
	}
	if err := cfg.SelectNetwork(snet); err != nil {
		return nil, err
	}
	if rootPrivateKey := os.Getenv(RootPrivateKeyEnvVar); rootPrivateKey != "" {
		cfg.AppendPksToNetwork([]string{rootPrivateKey}, snet)
	}
	if len(cfg.Network.PrivateKeys) == 0 {
		L.Warn().Msg(ErrEmptyRootPrivateKey)
	}
	L.Trace().Str("Network", cfg.Network.Name).Msg("Parsed ethcontract config")
	return cfg, nil
}

// DefaultConfig is a config for a single node at url, the chain id is read from the node
func DefaultConfig(url string, pks []string) *Config {
	network := &Network{
		Name:        DefaultNetworkName,
		URLs:        []string{url},
		PrivateKeys: pks,
	}
	return &Config{Network: network, Networks: []*Network{network}}
}

// ValidatedDefaultConfig is DefaultConfig that checks the url is set and every key parses
func ValidatedDefaultConfig(url string, pks []string) (*Config, error) {
	if url == "" {
		return nil, errors.New(ErrEmptyRPCURL)
	}
	if len(pks) == 0 {
		return nil, errors.New(ErrNoPrivateKeysPassed)
	}
	for _, pk := range pks {
		if _, err := ParsePrivateKey(pk); err != nil {
			return nil, errors.Wrap(err, ErrParsePrivateKey)
		}
	}
	return DefaultConfig(url, pks), nil
}

// LoadConfig parses a TOML config file and validates it, without selecting a network
func LoadConfig(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, ErrReadConfig)
	}
	cfg, err := ParseConfig(d)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = filepath.Dir(absPath)
	return cfg, nil
}

// ParseConfig parses TOML config contents
func ParseConfig(data []byte) (*Config, error) {
	var cfg *Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, ErrUnmarshalConfig)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Confirm != nil {
		if c.Confirm.PollFactor != 0 && c.Confirm.PollFactor < 1 {
			return errors.New(ErrInvalidPollFactor)
		}
		if c.Confirm.PollMin != nil && c.Confirm.PollMax != nil && c.Confirm.PollMax.Shorter(*c.Confirm.PollMin) {
			return errors.New(ErrInvalidPollDurations)
		}
	}
	return nil
}

// SelectNetwork makes the named network the active one
func (c *Config) SelectNetwork(name string) error {
	for _, n := range c.Networks {
		if n.Name == name {
			c.Network = n
			return nil
		}
	}
	return fmt.Errorf(ErrNetworkNotFound, name)
}

// AppendPksToNetwork adds private keys to the named network, returns false if the network is unknown
func (c *Config) AppendPksToNetwork(pks []string, name string) bool {
	added := false
	if c.Network != nil && c.Network.Name == name {
		c.Network.PrivateKeys = append(c.Network.PrivateKeys, pks...)
		added = true
	}
	for _, n := range c.Networks {
		if n.Name == name && n != c.Network {
			n.PrivateKeys = append(n.PrivateKeys, pks...)
			added = true
		}
	}
	return added
}

// ParseKeys parses the private keys of the active network into offline accounts signing for its chain id
func (c *Config) ParseKeys() ([]Account, error) {
	if c.Network == nil {
		return nil, errors.New(ErrEmptyNetwork)
	}
	var chainID *uint64
	if c.Network.ChainID != "" {
		id, err := strconv.ParseUint(c.Network.ChainID, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, ErrParseChainID)
		}
		chainID = &id
	}
	accounts := make([]Account, 0, len(c.Network.PrivateKeys))
	for i, k := range c.Network.PrivateKeys {
		key, err := ParsePrivateKey(k)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %d", ErrParsePrivateKey, i)
		}
		accounts = append(accounts, OfflineAccount(key, chainID))
	}
	return accounts, nil
}

// GasPriceSpec is the configured gas price of the active network, nil lets the node decide
func (n *Network) GasPriceSpec() *GasPrice {
	if n.EIP1559DynamicFees {
		if n.GasFeeCap == 0 && n.GasTipCap == 0 {
			return nil
		}
		return EIP1559GasPrice(big.NewInt(n.GasFeeCap), big.NewInt(n.GasTipCap))
	}
	if n.GasPrice == 0 {
		return nil
	}
	return LegacyGasPrice(big.NewInt(n.GasPrice))
}

// ConfirmParams converts the confirm section, unset fields keep their defaults
func (c *Config) ConfirmParams() ConfirmParams {
	if c.Confirm == nil {
		return Mined()
	}
	p := DefaultConfirmParams(c.Confirm.Confirmations)
	if c.Confirm.PollMin != nil {
		p.PollMin = c.Confirm.PollMin.Duration()
	}
	if c.Confirm.PollMax != nil {
		p.PollMax = c.Confirm.PollMax.Duration()
	}
	if c.Confirm.PollFactor != 0 {
		p.PollFactor = c.Confirm.PollFactor
	}
	if c.Confirm.BlockTimeout != nil {
		timeout := *c.Confirm.BlockTimeout
		p.BlockTimeout = &timeout
	}
	return p
}

func (c *Config) BlockPageSize() uint64 {
	if c.Logs == nil || c.Logs.BlockPageSize == 0 {
		return DefaultBlockPageSize
	}
	return c.Logs.BlockPageSize
}

func (c *Config) PollInterval() time.Duration {
	if c.Logs == nil || c.Logs.PollInterval == nil {
		return DefaultPollInterval
	}
	return c.Logs.PollInterval.Duration()
}

func (c *Config) DeploymentCacheSize() uint64 {
	if c.Logs == nil {
		return 0
	}
	return c.Logs.DeploymentCacheSize
}

// DeploymentsPath resolves the deployments file against the config directory
func (c *Config) DeploymentsPath() string {
	if c.DeploymentsFile == "" || filepath.IsAbs(c.DeploymentsFile) || c.ConfigDir == "" {
		return c.DeploymentsFile
	}
	return filepath.Join(c.ConfigDir, c.DeploymentsFile)
}
