package ethcontract

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	ErrDialNode         = "failed to connect to RPC node"
	ErrReadingKeys      = "failed to read keys"
	ErrReadDeploymentDB = "failed to open deployments file"
	ErrReadChainID      = "failed to read chain id"
	ErrSaveDeployment   = "failed to save deployment"
)

// Client bundles a transport with the accounts and defaults of one configured network
type Client struct {
	Cfg         *Config
	Transport   transport.Transport
	Accounts    []Account
	ChainID     uint64
	URL         string
	Deployments *DeploymentStore
	Cache       *DeploymentBlockCache

	rpc *transport.RPCTransport
}

// ClientOpt is a client functional option
type ClientOpt func(c *Client)

// WithTransport uses t instead of dialing the configured network url
func WithTransport(t transport.Transport) ClientOpt {
	return func(c *Client) {
		c.Transport = t
	}
}

func WithDeploymentStore(s *DeploymentStore) ClientOpt {
	return func(c *Client) {
		c.Deployments = s
	}
}

func WithDeploymentCache(cache *DeploymentBlockCache) ClientOpt {
	return func(c *Client) {
		c.Cache = cache
	}
}

// NewClient creates a client from the config file and network named by env vars
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(ctx, cfg)
}

// NewClientWithConfig creates a client with accounts parsed from the config
func NewClientWithConfig(ctx context.Context, cfg *Config, opts ...ClientOpt) (*Client, error) {
	accounts, err := cfg.ParseKeys()
	if err != nil {
		return nil, errors.Wrap(err, ErrReadingKeys)
	}
	return NewClientRaw(ctx, cfg, accounts, opts...)
}

// NewClientRaw creates a client with the given accounts. Unless a transport is passed as an
// option the first url of the active network is dialed and wrapped with retries and rate
// limiting as configured.
func NewClientRaw(ctx context.Context, cfg *Config, accounts []Account, opts ...ClientOpt) (*Client, error) {
	if cfg.Network == nil {
		return nil, errors.New(ErrEmptyNetwork)
	}
	c := &Client{Cfg: cfg, Accounts: accounts}
	for _, o := range opts {
		o(c)
	}

	if c.Transport == nil {
		if len(cfg.Network.URLs) == 0 {
			return nil, errors.New(ErrNoNetworkURLs)
		}
		c.URL = cfg.Network.URLs[0]
		rpc, err := transport.Dial(ctx, c.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "%s '%s'", ErrDialNode, c.URL)
		}
		c.rpc = rpc
		c.Transport = wrapTransport(rpc, cfg.Network)
	}

	if cfg.Network.ChainID != "" {
		id, err := strconv.ParseUint(cfg.Network.ChainID, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, ErrParseChainID)
		}
		c.ChainID = id
	} else {
		id, err := ChainID(ctx, c.Transport)
		if err != nil {
			return nil, errors.Wrap(err, ErrReadChainID)
		}
		c.ChainID = id
	}

	if c.Deployments == nil && cfg.DeploymentsFile != "" {
		store, err := OpenDeploymentStore(cfg.DeploymentsPath())
		if err != nil {
			return nil, errors.Wrap(err, ErrReadDeploymentDB)
		}
		c.Deployments = store
	}
	if c.Cache == nil && cfg.DeploymentCacheSize() > 0 {
		c.Cache = NewDeploymentBlockCache(cfg.DeploymentCacheSize())
	}

	addrs := make([]common.Address, len(c.Accounts))
	for i, a := range c.Accounts {
		addrs[i] = a.Address()
	}
	L.Info().
		Str("NetworkName", cfg.Network.Name).
		Interface("Addresses", addrs).
		Str("RPC", c.URL).
		Uint64("ChainID", c.ChainID).
		Msg("Created new client")
	return c, nil
}

func wrapTransport(t transport.Transport, n *Network) transport.Transport {
	opts := transport.RetryOptions{Attempts: n.RPCRetries}
	if n.RPCRetryDelay != nil {
		opts.Delay = n.RPCRetryDelay.Duration()
	}
	t = transport.NewRetryTransport(t, opts)
	if n.RPCRequestsPerSecond > 0 {
		t = transport.NewRateLimitedTransport(t, n.RPCRequestsPerSecond)
	}
	return t
}

// Close disconnects from the node when the client dialed it
func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// Defaults are the method defaults derived from the config: first account, gas limit, gas
// price and confirmation params
func (c *Client) Defaults() MethodDefaults {
	var d MethodDefaults
	if len(c.Accounts) > 0 {
		from := c.Accounts[0]
		d.From = &from
	}
	if c.Cfg.Network.GasLimit > 0 {
		gas := c.Cfg.Network.GasLimit
		d.Gas = &gas
	}
	d.GasPrice = c.Cfg.Network.GasPriceSpec()
	resolve := ResolveConfirmed(c.Cfg.ConfirmParams())
	d.Resolve = &resolve
	return d
}

// Transaction starts a transaction with the client defaults
func (c *Client) Transaction() *TransactionBuilder {
	tx := NewTransactionBuilder(c.Transport)
	d := c.Defaults()
	if d.From != nil {
		tx.From(*d.From)
	}
	if d.Gas != nil {
		tx.Gas(*d.Gas)
	}
	return tx.GasPrice(d.GasPrice).Resolve(*d.Resolve)
}

// Logs starts a log filter with the configured page size and poll interval
func (c *Client) Logs() *LogFilterBuilder {
	return NewLogFilterBuilder(c.Transport).
		BlockPageSize(c.Cfg.BlockPageSize()).
		PollInterval(c.Cfg.PollInterval())
}

func (c *Client) NewCallBatch() *CallBatch {
	return NewCallBatch(c.Transport)
}

func (c *Client) prepare(i *Instance) *Instance {
	i.SetDefaults(c.Defaults())
	if c.Cache != nil {
		i.SetDeploymentCache(c.Cache)
	}
	return i
}

// At creates an instance carrying the client defaults
func (c *Client) At(contractABI *artifact.ABI, address common.Address) *Instance {
	return c.prepare(At(c.Transport, contractABI, address))
}

// Deployed finds the contract on the client network, stored deployments win over the artifact's
func (c *Client) Deployed(ctx context.Context, contract *artifact.Contract) (*Instance, error) {
	if c.Deployments != nil {
		c.Deployments.Apply(contract)
	}
	i, err := Deployed(ctx, c.Transport, contract)
	if err != nil {
		return nil, err
	}
	return c.prepare(i), nil
}

// ClientDeploy deploys contract with the client defaults and records it in the deployment
// store, when one is configured
func ClientDeploy[C any](ctx context.Context, c *Client, contract *artifact.Contract, libraries map[string]common.Address, ctor func(*Instance) C, args ...any) (C, error) {
	var instance *Instance
	d := NewDeployBuilder(c.Transport, contract, libraries, func(i *Instance) C {
		instance = c.prepare(i)
		return ctor(instance)
	}, args...)
	defaults := c.Defaults()
	if defaults.From != nil {
		d.From(*defaults.From)
	}
	if defaults.Gas != nil {
		d.Gas(*defaults.Gas)
	}
	d.GasPrice(defaults.GasPrice).Resolve(*defaults.Resolve)

	out, err := d.Deploy(ctx)
	if err != nil {
		return out, err
	}
	if c.Deployments != nil {
		chainID := strconv.FormatUint(c.ChainID, 10)
		if err := c.Deployments.Save(chainID, contract.Name, instance.Address(), instance.DeploymentInformation()); err != nil {
			return out, errors.Wrap(err, ErrSaveDeployment)
		}
	}
	return out, nil
}
