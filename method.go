package ethcontract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/ethcontract/transport"
)

// MethodBuilder calls or sends a contract function and decodes its result into R
type MethodBuilder[R any] struct {
	sig    string
	tx     *TransactionBuilder
	decode func([]byte) (R, error)
}

func (m *MethodBuilder[R]) Signature() string {
	return m.sig
}

func (m *MethodBuilder[R]) From(account Account) *MethodBuilder[R] {
	m.tx.From(account)
	return m
}

func (m *MethodBuilder[R]) Gas(gas uint64) *MethodBuilder[R] {
	m.tx.Gas(gas)
	return m
}

func (m *MethodBuilder[R]) GasPrice(price *GasPrice) *MethodBuilder[R] {
	m.tx.GasPrice(price)
	return m
}

func (m *MethodBuilder[R]) Value(value *big.Int) *MethodBuilder[R] {
	m.tx.Value(value)
	return m
}

func (m *MethodBuilder[R]) Nonce(nonce uint64) *MethodBuilder[R] {
	m.tx.Nonce(nonce)
	return m
}

func (m *MethodBuilder[R]) Confirmations(n uint64) *MethodBuilder[R] {
	m.tx.Confirmations(n)
	return m
}

func (m *MethodBuilder[R]) Resolve(r ResolveCondition) *MethodBuilder[R] {
	m.tx.Resolve(r)
	return m
}

// Tx exposes the transaction the method sends
func (m *MethodBuilder[R]) Tx() *TransactionBuilder {
	return m.tx
}

// Data returns the ABI encoded call
func (m *MethodBuilder[R]) Data() []byte {
	return common.CopyBytes(m.tx.data)
}

// Call executes the function with eth_call on the latest block
func (m *MethodBuilder[R]) Call(ctx context.Context) (R, error) {
	return m.View().Call(ctx)
}

// Send sends the function as a transaction
func (m *MethodBuilder[R]) Send(ctx context.Context) (*TransactionResult, error) {
	res, err := m.tx.Send(ctx)
	if err != nil {
		return nil, methodError(m.sig, err)
	}
	return res, nil
}

func (m *MethodBuilder[R]) Build(ctx context.Context) (*Transaction, error) {
	tx, err := m.tx.Build(ctx)
	if err != nil {
		return nil, methodError(m.sig, err)
	}
	return tx, nil
}

func (m *MethodBuilder[R]) EstimateGas(ctx context.Context) (uint64, error) {
	gas, err := m.tx.EstimateGas(ctx)
	if err != nil {
		return 0, methodError(m.sig, err)
	}
	return gas, nil
}

// View demotes the builder to one that can only call the function, at any block
func (m *MethodBuilder[R]) View() *ViewMethodBuilder[R] {
	return &ViewMethodBuilder[R]{m: &MethodBuilder[R]{sig: m.sig, tx: m.tx.Clone(), decode: m.decode}}
}

// ViewMethodBuilder calls a function without sending a transaction
type ViewMethodBuilder[R any] struct {
	m         *MethodBuilder[R]
	block     *BlockNumber
	overrides StateOverrides
}

func (v *ViewMethodBuilder[R]) Signature() string {
	return v.m.sig
}

// From sets the caller, only the address of the account is used
func (v *ViewMethodBuilder[R]) From(account Account) *ViewMethodBuilder[R] {
	v.m.From(account)
	return v
}

func (v *ViewMethodBuilder[R]) Gas(gas uint64) *ViewMethodBuilder[R] {
	v.m.Gas(gas)
	return v
}

func (v *ViewMethodBuilder[R]) GasPrice(price *GasPrice) *ViewMethodBuilder[R] {
	v.m.GasPrice(price)
	return v
}

func (v *ViewMethodBuilder[R]) Value(value *big.Int) *ViewMethodBuilder[R] {
	v.m.Value(value)
	return v
}

// Block sets the block the call is executed on, latest by default
func (v *ViewMethodBuilder[R]) Block(block BlockNumber) *ViewMethodBuilder[R] {
	v.block = &block
	return v
}

// StateOverrides replaces account state for the call, supported by geth compatible nodes
func (v *ViewMethodBuilder[R]) StateOverrides(overrides StateOverrides) *ViewMethodBuilder[R] {
	v.overrides = overrides
	return v
}

func (v *ViewMethodBuilder[R]) blockNumber() BlockNumber {
	if v.block == nil {
		return Latest
	}
	return *v.block
}

func (v *ViewMethodBuilder[R]) request(ctx context.Context) (CallRequest, error) {
	tx := v.m.tx
	price, err := tx.gasPrice.resolve(ctx, tx.t)
	if err != nil {
		return CallRequest{}, err
	}
	var from *common.Address
	if tx.from != nil {
		addr := tx.from.Address()
		from = &addr
	}
	req := tx.callRequest(from, price)
	if tx.gas != nil {
		g := hexutil.Uint64(*tx.gas)
		req.Gas = &g
	}
	return req, nil
}

// Call executes the function with eth_call and decodes the result
func (v *ViewMethodBuilder[R]) Call(ctx context.Context) (R, error) {
	var zero R
	req, err := v.request(ctx)
	if err != nil {
		return zero, methodError(v.m.sig, err)
	}
	var out hexutil.Bytes
	if err := transport.Call(ctx, v.m.tx.t, &out, "eth_call", callParams(req, v.blockNumber(), v.overrides)...); err != nil {
		return zero, methodError(v.m.sig, err)
	}
	res, err := v.m.decode(out)
	if err != nil {
		return zero, methodError(v.m.sig, err)
	}
	return res, nil
}

// BatchCall queues the call in a batch, the result is available once the batch is executed
func (v *ViewMethodBuilder[R]) BatchCall(ctx context.Context, batch *CallBatch) (*PendingCall[R], error) {
	req, err := v.request(ctx)
	if err != nil {
		return nil, methodError(v.m.sig, err)
	}
	return &PendingCall[R]{
		future: batch.PushWithOverrides(req, v.blockNumber(), v.overrides),
		sig:    v.m.sig,
		decode: v.m.decode,
	}, nil
}

// PendingCall is the typed result of a batched call
type PendingCall[R any] struct {
	future *CallFuture
	sig    string
	decode func([]byte) (R, error)
}

// Wait blocks until the batch delivered the result
func (p *PendingCall[R]) Wait(ctx context.Context) (R, error) {
	var zero R
	out, err := p.future.Wait(ctx)
	if err != nil {
		return zero, methodError(p.sig, err)
	}
	res, err := p.decode(out)
	if err != nil {
		return zero, methodError(p.sig, err)
	}
	return res, nil
}
