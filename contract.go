package ethcontract

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/tokens"
	"github.com/smartcontractkit/ethcontract/transport"
)

// Void is the return type of functions without outputs
type Void struct{}

// MethodDefaults are applied to every method builder created by an instance
type MethodDefaults struct {
	From     *Account
	Gas      *uint64
	GasPrice *GasPrice
	Resolve  *ResolveCondition
}

type entryRef struct {
	name  string
	index int
}

// Instance is a contract deployed at an address. Methods and events are looked up by selector
// and signature hash.
type Instance struct {
	t          transport.Transport
	abi        *artifact.ABI
	address    common.Address
	deployment *artifact.DeploymentInformation

	methods map[[4]byte]entryRef
	events  map[common.Hash]entryRef

	mu       sync.RWMutex
	defaults MethodDefaults
	cache    *DeploymentBlockCache
}

// At creates an instance without deployment information
func At(t transport.Transport, contractABI *artifact.ABI, address common.Address) *Instance {
	return AtWithDeployment(t, contractABI, address, nil)
}

// AtWithDeployment creates an instance that knows where it was deployed, which bounds event
// queries from below
func AtWithDeployment(t transport.Transport, contractABI *artifact.ABI, address common.Address, deployment *artifact.DeploymentInformation) *Instance {
	i := &Instance{
		t:          t,
		abi:        contractABI,
		address:    address,
		deployment: deployment,
		methods:    make(map[[4]byte]entryRef),
		events:     make(map[common.Hash]entryRef),
	}
	indexes := make(map[string]int)
	for _, m := range contractABI.Functions() {
		var sel [4]byte
		copy(sel[:], m.ID)
		i.methods[sel] = entryRef{name: m.RawName, index: indexes[m.RawName]}
		indexes[m.RawName]++
	}
	indexes = make(map[string]int)
	for _, e := range contractABI.Events() {
		i.events[e.ID] = entryRef{name: e.RawName, index: indexes[e.RawName]}
		indexes[e.RawName]++
	}
	return i
}

// Deployed finds the contract's deployment on the network the node is connected to
func Deployed(ctx context.Context, t transport.Transport, contract *artifact.Contract) (*Instance, error) {
	network, err := NetVersion(ctx, t)
	if err != nil {
		return nil, &DeployError{Kind: DeployTransport, Err: err}
	}
	n, ok := contract.Networks[network]
	if !ok {
		return nil, &DeployError{Kind: DeploymentNotFound, Network: network}
	}
	L.Debug().Str("Contract", contract.Name).Str("Network", network).Str("Address", n.Address.Hex()).Msg("Found deployed contract")
	return AtWithDeployment(t, contract.ABI, n.Address, n.DeploymentInformation), nil
}

func (i *Instance) Address() common.Address { return i.address }

func (i *Instance) ABI() *artifact.ABI { return i.abi }

func (i *Instance) Transport() transport.Transport { return i.t }

func (i *Instance) DeploymentInformation() *artifact.DeploymentInformation { return i.deployment }

func (i *Instance) Defaults() MethodDefaults {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.defaults
}

func (i *Instance) SetDefaults(d MethodDefaults) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.defaults = d
}

// SetDeploymentCache shares a deployment block cache with the instance's event queries
func (i *Instance) SetDeploymentCache(c *DeploymentBlockCache) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cache = c
}

// Function finds a function by selector
func (i *Instance) Function(selector [4]byte) (abi.Method, error) {
	ref, ok := i.methods[selector]
	if !ok {
		return abi.Method{}, &AbiError{Kind: InvalidName, Detail: fmt.Sprintf("0x%x", selector[:])}
	}
	return i.abi.Overloads(ref.name)[ref.index], nil
}

// EventByID finds an event by its signature hash
func (i *Instance) EventByID(id common.Hash) (abi.Event, error) {
	ref, ok := i.events[id]
	if !ok {
		return abi.Event{}, &AbiError{Kind: InvalidName, Detail: id.Hex()}
	}
	return i.abi.EventOverloads(ref.name)[ref.index], nil
}

func (i *Instance) newTransaction(data []byte) *TransactionBuilder {
	tx := NewTransactionBuilder(i.t).To(i.address).Data(data)
	d := i.Defaults()
	if d.From != nil {
		tx.From(*d.From)
	}
	if d.Gas != nil {
		tx.Gas(*d.Gas)
	}
	if d.GasPrice != nil {
		tx.GasPrice(d.GasPrice)
	}
	if d.Resolve != nil {
		tx.Resolve(*d.Resolve)
	}
	return tx
}

// Fallback calls the fallback function with arbitrary data
func (i *Instance) Fallback(data []byte) (*MethodBuilder[Void], error) {
	if !i.abi.HasFallback() {
		return nil, &AbiError{Kind: InvalidName, Detail: ErrNoFallback}
	}
	return &MethodBuilder[Void]{
		sig: "fallback()",
		tx:  i.newTransaction(data),
		decode: func([]byte) (Void, error) {
			return Void{}, nil
		},
	}, nil
}

// AllEvents queries every log of the contract as raw logs
func (i *Instance) AllEvents() *AllEventsBuilder[RawLog] {
	return AllEventsOf[RawLog](i, func(raw RawLog) (RawLog, error) {
		return raw, nil
	})
}

// AllEventsOf queries every log of the contract, parsed into E. Generated bindings pass a
// parser producing their event sum type.
func AllEventsOf[E any](i *Instance, parse ParseLogFunc[E]) *AllEventsBuilder[E] {
	b := NewAllEventsBuilder(i.t, i.address, i.deployment, parse)
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.cache != nil {
		b.WithDeploymentCache(i.cache)
	}
	return b
}

// DecodedLog is a log matched to one of the contract's events
type DecodedLog struct {
	Name      string
	Signature string
	Params    tokens.Tuple
}

// DecodeLog matches a log to an event by its first topic and decodes its parameters
func (i *Instance) DecodeLog(raw RawLog) (*DecodedLog, error) {
	if len(raw.Topics) == 0 {
		return nil, &AbiError{Kind: InvalidData, Detail: ErrEventSignature}
	}
	event, err := i.EventByID(raw.Topics[0])
	if err != nil {
		return nil, err
	}
	params, err := DecodeEventLog(event, raw)
	if err != nil {
		return nil, err
	}
	return &DecodedLog{Name: event.RawName, Signature: event.Sig, Params: params}, nil
}

// Method creates a builder for the function with the given selector
func Method[R any](i *Instance, selector [4]byte, args ...any) (*MethodBuilder[R], error) {
	fn, err := i.Function(selector)
	if err != nil {
		return nil, err
	}
	data, err := EncodeCall(fn, args...)
	if err != nil {
		return nil, err
	}
	return &MethodBuilder[R]{
		sig: fn.Sig,
		tx:  i.newTransaction(data),
		decode: func(out []byte) (R, error) {
			return DecodeOutput[R](fn, out)
		},
	}, nil
}

// ViewMethod is Method for functions that are only ever called
func ViewMethod[R any](i *Instance, selector [4]byte, args ...any) (*ViewMethodBuilder[R], error) {
	m, err := Method[R](i, selector, args...)
	if err != nil {
		return nil, err
	}
	return m.View(), nil
}

// EventFilter creates a builder for the event with the given signature hash
func EventFilter[E any](i *Instance, id common.Hash) (*EventBuilder[E], error) {
	event, err := i.EventByID(id)
	if err != nil {
		return nil, err
	}
	return NewEventBuilder[E](i.t, event, i.address), nil
}

// EncodeCall ABI encodes a call of fn, selector first
func EncodeCall(fn abi.Method, args ...any) ([]byte, error) {
	toks, err := tokens.IntoTokens(args...)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Err: err}
	}
	if len(toks) != len(fn.Inputs) {
		return nil, &AbiError{Kind: InvalidData, Detail: fmt.Sprintf("%s expects %d arguments, got %d", fn.Sig, len(fn.Inputs), len(toks))}
	}
	enc, err := tokens.Encode(tokens.ArgumentTypes(fn.Inputs), toks)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Err: err}
	}
	return append(append([]byte{}, fn.ID...), enc...), nil
}

// DecodeOutput decodes the return data of fn. A single output is stored into R directly,
// several outputs are stored as a tuple, into a struct with one field per output.
func DecodeOutput[R any](fn abi.Method, data []byte) (R, error) {
	var out R
	toks, err := tokens.Decode(tokens.ArgumentTypes(fn.Outputs), data)
	if err != nil {
		return out, &ExecutionError{Kind: AbiDecodeFailure, Err: err}
	}
	var tok tokens.Token = tokens.Tuple(toks)
	if len(toks) == 1 {
		tok = toks[0]
	}
	if err := tokens.FromToken(tok, &out); err != nil {
		return out, &ExecutionError{Kind: AbiDecodeFailure, Err: err}
	}
	return out, nil
}
