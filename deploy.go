package ethcontract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/tokens"
	"github.com/smartcontractkit/ethcontract/transport"
)

// DeployBuilder deploys a contract, together with the libraries it needs, and wraps the
// resulting instance with ctor
type DeployBuilder[C any] struct {
	t        transport.Transport
	contract *artifact.Contract
	linker   *artifact.Linker
	args     []byte
	tx       *TransactionBuilder
	ctor     func(*Instance) C
	err      error
}

// NewDeployBuilder prepares the deployment of contract with constructor arguments args.
// Libraries are linked by address, see DeployLibrary for libraries deployed alongside.
func NewDeployBuilder[C any](t transport.Transport, contract *artifact.Contract, libraries map[string]common.Address, ctor func(*Instance) C, args ...any) *DeployBuilder[C] {
	d := &DeployBuilder[C]{t: t, contract: contract, tx: NewTransactionBuilder(t), ctor: ctor}
	if contract.Bytecode.IsEmpty() {
		d.err = &DeployError{Kind: EmptyBytecode}
		return d
	}
	d.linker = artifact.NewLinker(contract.Bytecode)
	for name, addr := range libraries {
		if err := d.linker.Library(name, addr); err != nil {
			d.err = &DeployError{Kind: DeployLink, Err: err}
			return d
		}
	}
	encoded, err := encodeConstructor(contract.ABI, args...)
	if err != nil {
		d.err = &DeployError{Kind: DeployAbi, Err: err}
		return d
	}
	d.args = encoded
	return d
}

func encodeConstructor(contractABI *artifact.ABI, args ...any) ([]byte, error) {
	if contractABI == nil || !contractABI.HasConstructor() {
		if len(args) > 0 {
			return nil, &AbiError{Kind: InvalidData, Detail: fmt.Sprintf("contract has no constructor, got %d arguments", len(args))}
		}
		return nil, nil
	}
	ctor := contractABI.Constructor
	toks, err := tokens.IntoTokens(args...)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Err: err}
	}
	if len(toks) != len(ctor.Inputs) {
		return nil, &AbiError{Kind: InvalidData, Detail: fmt.Sprintf("constructor expects %d arguments, got %d", len(ctor.Inputs), len(toks))}
	}
	enc, err := tokens.Encode(tokens.ArgumentTypes(ctor.Inputs), toks)
	if err != nil {
		return nil, &AbiError{Kind: InvalidData, Err: err}
	}
	return enc, nil
}

// DeployLibrary deploys a library from its bytecode before the contract and links its address
func (d *DeployBuilder[C]) DeployLibrary(name string, code artifact.Bytecode) *DeployBuilder[C] {
	if d.err != nil {
		return d
	}
	if err := d.linker.DeployLibrary(name, code); err != nil {
		d.err = &DeployError{Kind: DeployLink, Err: err}
	}
	return d
}

func (d *DeployBuilder[C]) From(account Account) *DeployBuilder[C] {
	d.tx.From(account)
	return d
}

func (d *DeployBuilder[C]) Gas(gas uint64) *DeployBuilder[C] {
	d.tx.Gas(gas)
	return d
}

func (d *DeployBuilder[C]) GasPrice(price *GasPrice) *DeployBuilder[C] {
	d.tx.GasPrice(price)
	return d
}

func (d *DeployBuilder[C]) Value(value *big.Int) *DeployBuilder[C] {
	d.tx.Value(value)
	return d
}

func (d *DeployBuilder[C]) Nonce(nonce uint64) *DeployBuilder[C] {
	d.tx.Nonce(nonce)
	return d
}

func (d *DeployBuilder[C]) Confirmations(n uint64) *DeployBuilder[C] {
	d.tx.Confirmations(n)
	return d
}

func (d *DeployBuilder[C]) Resolve(r ResolveCondition) *DeployBuilder[C] {
	d.tx.Resolve(r)
	return d
}

// TxData returns the deployment input: linked bytecode followed by the encoded constructor
// arguments. It fails while libraries scheduled with DeployLibrary are still undeployed.
func (d *DeployBuilder[C]) TxData() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	code, _, err := d.linker.Finish()
	if err != nil {
		return nil, &DeployError{Kind: DeployLink, Err: err}
	}
	return d.txData(code)
}

func (d *DeployBuilder[C]) txData(code artifact.Bytecode) ([]byte, error) {
	b, err := code.ToBytes()
	if err != nil {
		return nil, &DeployError{Kind: DeployLink, Err: err}
	}
	return append(b, d.args...), nil
}

// Deploy sends the pending libraries and then the contract, waiting for each receipt
func (d *DeployBuilder[C]) Deploy(ctx context.Context) (C, error) {
	var zero C
	if d.err != nil {
		return zero, d.err
	}
	code, libs, err := d.linker.Finish()
	if err != nil {
		return zero, &DeployError{Kind: DeployLink, Err: err}
	}
	if d.tx.resolveCondition().IsPending() && len(libs) > 0 {
		return zero, &DeployError{Kind: DeployLink, Err: errors.New(ErrPendingLibraries)}
	}

	deployed := make(map[string]common.Address, len(libs))
	for _, lib := range libs {
		libCode := lib.Code
		for name, addr := range deployed {
			if libCode.Contains(name) {
				if err := libCode.Link(name, addr); err != nil {
					return zero, &DeployError{Kind: DeployLink, Err: err}
				}
			}
		}
		data, err := libCode.ToBytes()
		if err != nil {
			return zero, &DeployError{Kind: DeployLink, Err: err}
		}
		addr, _, err := d.send(ctx, d.tx.Clone().Value(nil).Data(data))
		if err != nil {
			return zero, err
		}
		L.Info().Str("Library", lib.Name).Str("Address", addr.Hex()).Msg("Deployed library")
		deployed[lib.Name] = addr
		if err := code.Link(lib.Name, addr); err != nil {
			return zero, &DeployError{Kind: DeployLink, Err: err}
		}
	}

	data, err := d.txData(code)
	if err != nil {
		return zero, err
	}
	addr, hash, err := d.send(ctx, d.tx.Clone().Data(data))
	if err != nil {
		return zero, err
	}
	L.Info().Str("Contract", d.contract.Name).Str("Address", addr.Hex()).Str("Transaction", hash.Hex()).Msg("Deployed contract")
	instance := AtWithDeployment(d.t, d.contract.ABI, addr, artifact.DeployedInTransaction(hash))
	return d.ctor(instance), nil
}

func (d *DeployBuilder[C]) send(ctx context.Context, tx *TransactionBuilder) (common.Address, common.Hash, error) {
	res, err := tx.Send(ctx)
	if err != nil {
		return common.Address{}, common.Hash{}, &DeployError{Kind: DeployTx, Err: err}
	}
	if res.Receipt == nil {
		return common.Address{}, res.Hash, &DeployError{Kind: DeployPending, Hash: res.Hash}
	}
	if res.Receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, res.Hash, &DeployError{Kind: DeployTx, Hash: res.Hash, Err: errors.New(ErrNoContractAddress)}
	}
	return res.Receipt.ContractAddress, res.Hash, nil
}
