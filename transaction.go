package ethcontract

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	ErrParseChainID = "failed to parse network id as chain id"
)

// CallRequest is the wire form of eth_call and eth_estimateGas parameters
type CallRequest struct {
	From                 *common.Address `json:"from,omitempty"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	Type                 *hexutil.Uint64 `json:"type,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
}

// TransactionRequest is a transaction the node signs, sent with eth_sendTransaction
type TransactionRequest struct {
	From                 common.Address        `json:"from"`
	To                   *common.Address       `json:"to,omitempty"`
	Gas                  *hexutil.Uint64       `json:"gas,omitempty"`
	GasPrice             *hexutil.Big          `json:"gasPrice,omitempty"`
	Value                *hexutil.Big          `json:"value,omitempty"`
	Data                 hexutil.Bytes         `json:"data,omitempty"`
	Nonce                *hexutil.Uint64       `json:"nonce,omitempty"`
	Condition            *TransactionCondition `json:"condition,omitempty"`
	Type                 *hexutil.Uint64       `json:"type,omitempty"`
	MaxFeePerGas         *hexutil.Big          `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big          `json:"maxPriorityFeePerGas,omitempty"`
}

// Transaction is a built transaction: either a request for the node to sign or raw signed bytes
// with their hash
type Transaction struct {
	Request *TransactionRequest
	Raw     []byte
	Hash    common.Hash
}

func (tx *Transaction) IsRaw() bool {
	return tx.Request == nil
}

// ResolveCondition decides when Send returns
type ResolveCondition struct {
	pending bool
	params  ConfirmParams
}

// ResolvePending returns as soon as the node accepted the transaction
func ResolvePending() ResolveCondition {
	return ResolveCondition{pending: true}
}

// ResolveConfirmed waits for the transaction to be confirmed
func ResolveConfirmed(params ConfirmParams) ResolveCondition {
	return ResolveCondition{params: params}
}

func (r ResolveCondition) IsPending() bool {
	return r.pending
}

// TransactionResult is the hash of a pending transaction or the receipt of a confirmed one
type TransactionResult struct {
	Hash    common.Hash
	Receipt *types.Receipt
}

// TransactionBuilder collects transaction parameters. Anything left unset is resolved from the
// node when the transaction is built.
type TransactionBuilder struct {
	t        transport.Transport
	from     *Account
	to       *common.Address
	gas      *uint64
	gasPrice *GasPrice
	value    *big.Int
	data     []byte
	nonce    *uint64
	resolve  *ResolveCondition
}

func NewTransactionBuilder(t transport.Transport) *TransactionBuilder {
	return &TransactionBuilder{t: t}
}

func (b *TransactionBuilder) From(account Account) *TransactionBuilder {
	b.from = &account
	return b
}

func (b *TransactionBuilder) To(to common.Address) *TransactionBuilder {
	b.to = &to
	return b
}

func (b *TransactionBuilder) Gas(gas uint64) *TransactionBuilder {
	b.gas = &gas
	return b
}

func (b *TransactionBuilder) GasPrice(price *GasPrice) *TransactionBuilder {
	b.gasPrice = price
	return b
}

func (b *TransactionBuilder) Value(value *big.Int) *TransactionBuilder {
	b.value = value
	return b
}

func (b *TransactionBuilder) Data(data []byte) *TransactionBuilder {
	b.data = data
	return b
}

func (b *TransactionBuilder) Nonce(nonce uint64) *TransactionBuilder {
	b.nonce = &nonce
	return b
}

func (b *TransactionBuilder) Resolve(r ResolveCondition) *TransactionBuilder {
	b.resolve = &r
	return b
}

// Confirmations waits for n blocks on top of the transaction block with default polling
func (b *TransactionBuilder) Confirmations(n uint64) *TransactionBuilder {
	return b.Resolve(ResolveConfirmed(DefaultConfirmParams(n)))
}

func (b *TransactionBuilder) Clone() *TransactionBuilder {
	c := *b
	if b.data != nil {
		c.data = common.CopyBytes(b.data)
	}
	return &c
}

func (b *TransactionBuilder) resolveCondition() ResolveCondition {
	if b.resolve == nil {
		return ResolveConfirmed(Mined())
	}
	return *b.resolve
}

func (b *TransactionBuilder) callRequest(from *common.Address, price resolvedGasPrice) CallRequest {
	req := CallRequest{
		From:                 from,
		To:                   b.to,
		GasPrice:             price.GasPrice,
		Data:                 b.data,
		Type:                 price.Type,
		MaxFeePerGas:         price.MaxFeePerGas,
		MaxPriorityFeePerGas: price.MaxPriorityFeePerGas,
	}
	if b.value != nil {
		req.Value = (*hexutil.Big)(b.value)
	}
	return req
}

// EstimateGas asks the node for the gas limit of the transaction
func (b *TransactionBuilder) EstimateGas(ctx context.Context) (uint64, error) {
	price, err := b.gasPrice.resolve(ctx, b.t)
	if err != nil {
		return 0, err
	}
	var from *common.Address
	if b.from != nil {
		addr := b.from.Address()
		from = &addr
	}
	return b.estimateGas(ctx, from, price)
}

func (b *TransactionBuilder) estimateGas(ctx context.Context, from *common.Address, price resolvedGasPrice) (uint64, error) {
	var gas hexutil.Uint64
	if err := transport.Call(ctx, b.t, &gas, "eth_estimateGas", b.callRequest(from, price)); err != nil {
		return 0, ToExecutionError(err)
	}
	return uint64(gas), nil
}

func (b *TransactionBuilder) gasLimit(ctx context.Context, from common.Address, price resolvedGasPrice) (uint64, error) {
	if b.gas != nil {
		return *b.gas, nil
	}
	return b.estimateGas(ctx, &from, price)
}

// Build resolves every missing field and signs the transaction when the account is held by
// the caller
func (b *TransactionBuilder) Build(ctx context.Context) (*Transaction, error) {
	var account Account
	if b.from == nil {
		from, err := firstLocalAccount(ctx, b.t)
		if err != nil {
			return nil, err
		}
		account = LocalAccount(from, nil)
	} else {
		account = *b.from
	}

	switch account.kind {
	case lockedAccount:
		req, err := b.localRequest(ctx, account)
		if err != nil {
			return nil, err
		}
		return signWithNode(ctx, b.t, req, account.password)
	case offlineAccount:
		return b.signOffline(ctx, account)
	}
	req, err := b.localRequest(ctx, account)
	if err != nil {
		return nil, err
	}
	return &Transaction{Request: req}, nil
}

func firstLocalAccount(ctx context.Context, t transport.Transport) (common.Address, error) {
	var accounts []common.Address
	if err := transport.Call(ctx, t, &accounts, "eth_accounts"); err != nil {
		return common.Address{}, ToExecutionError(err)
	}
	if len(accounts) == 0 {
		return common.Address{}, &ExecutionError{Kind: NoLocalAccounts}
	}
	return accounts[0], nil
}

func (b *TransactionBuilder) localRequest(ctx context.Context, account Account) (*TransactionRequest, error) {
	price, err := b.gasPrice.resolve(ctx, b.t)
	if err != nil {
		return nil, err
	}
	gas, err := b.gasLimit(ctx, account.address, price)
	if err != nil {
		return nil, err
	}
	hexGas := hexutil.Uint64(gas)
	req := &TransactionRequest{
		From:                 account.address,
		To:                   b.to,
		Gas:                  &hexGas,
		GasPrice:             price.GasPrice,
		Data:                 b.data,
		Condition:            account.condition,
		Type:                 price.Type,
		MaxFeePerGas:         price.MaxFeePerGas,
		MaxPriorityFeePerGas: price.MaxPriorityFeePerGas,
	}
	if b.value != nil {
		req.Value = (*hexutil.Big)(b.value)
	}
	if b.nonce != nil {
		n := hexutil.Uint64(*b.nonce)
		req.Nonce = &n
	}
	return req, nil
}

type signedTransaction struct {
	Raw hexutil.Bytes `json:"raw"`
	Tx  struct {
		Hash common.Hash `json:"hash"`
	} `json:"tx"`
}

func signWithNode(ctx context.Context, t transport.Transport, req *TransactionRequest, password string) (*Transaction, error) {
	var signed signedTransaction
	if err := transport.Call(ctx, t, &signed, "personal_signTransaction", req, password); err != nil {
		return nil, ToExecutionError(err)
	}
	return &Transaction{Raw: signed.Raw, Hash: signed.Tx.Hash}, nil
}

func (b *TransactionBuilder) signOffline(ctx context.Context, account Account) (*Transaction, error) {
	price, err := b.gasPrice.resolve(ctx, b.t)
	if err != nil {
		return nil, err
	}
	gas, err := b.gasLimit(ctx, account.address, price)
	if err != nil {
		return nil, err
	}
	if price.GasPrice == nil && price.MaxFeePerGas == nil {
		p, err := nodeGasPrice(ctx, b.t)
		if err != nil {
			return nil, err
		}
		price.GasPrice = (*hexutil.Big)(p)
	}
	nonce := b.nonce
	if nonce == nil {
		n, err := transactionCount(ctx, b.t, account.address)
		if err != nil {
			return nil, err
		}
		nonce = &n
	}
	chainID := account.chainID
	if chainID == nil {
		id, err := ChainID(ctx, b.t)
		if err != nil {
			return nil, err
		}
		chainID = &id
	}

	value := new(big.Int)
	if b.value != nil {
		value.Set(b.value)
	}
	var txData types.TxData
	if price.MaxFeePerGas != nil {
		txData = &types.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(*chainID),
			Nonce:     *nonce,
			GasTipCap: price.MaxPriorityFeePerGas.ToInt(),
			GasFeeCap: price.MaxFeePerGas.ToInt(),
			Gas:       gas,
			To:        b.to,
			Value:     value,
			Data:      b.data,
		}
	} else {
		txData = &types.LegacyTx{
			Nonce:    *nonce,
			GasPrice: price.GasPrice.ToInt(),
			Gas:      gas,
			To:       b.to,
			Value:    value,
			Data:     b.data,
		}
	}
	return SignTransaction(account.key, *chainID, txData)
}

// SignTransaction signs tx data with the signer of the latest fork for the chain
func SignTransaction(key *PrivateKey, chainID uint64, txData types.TxData) (*Transaction, error) {
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	signed, err := types.SignNewTx(key.ECDSA(), signer, txData)
	if err != nil {
		return nil, &SigningError{Kind: SignFailure, Err: err}
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, &SigningError{Kind: SignFailure, Err: err}
	}
	L.Debug().
		Str("Hash", signed.Hash().Hex()).
		Uint64("Nonce", signed.Nonce()).
		Uint64("ChainID", chainID).
		Msg("Signed transaction")
	return &Transaction{Raw: raw, Hash: signed.Hash()}, nil
}

func transactionCount(ctx context.Context, t transport.Transport, address common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := transport.Call(ctx, t, &n, "eth_getTransactionCount", address, Latest); err != nil {
		return 0, ToExecutionError(err)
	}
	return uint64(n), nil
}

// ChainID reads eth_chainId and falls back to net_version for nodes that do not implement it
func ChainID(ctx context.Context, t transport.Transport) (uint64, error) {
	var id hexutil.Uint64
	err := transport.Call(ctx, t, &id, "eth_chainId")
	if err == nil {
		return uint64(id), nil
	}
	L.Debug().Err(err).Msg("eth_chainId failed, falling back to net_version")
	version, err := NetVersion(ctx, t)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return 0, &ExecutionError{Kind: ParseFailure, Err: errors.Wrap(err, ErrParseChainID)}
	}
	return n, nil
}

// NetVersion returns the network id, used as the key of artifact deployments
func NetVersion(ctx context.Context, t transport.Transport) (string, error) {
	var version string
	if err := transport.Call(ctx, t, &version, "net_version"); err != nil {
		return "", ToExecutionError(err)
	}
	return version, nil
}

// Send builds, submits and resolves the transaction
func (b *TransactionBuilder) Send(ctx context.Context) (*TransactionResult, error) {
	tx, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	return SendTransaction(ctx, b.t, tx, b.resolveCondition())
}

// SendTransaction submits a built transaction. Raw transactions must come back with the hash
// computed when signing.
func SendTransaction(ctx context.Context, t transport.Transport, tx *Transaction, resolve ResolveCondition) (*TransactionResult, error) {
	var hash common.Hash
	if tx.IsRaw() {
		if err := transport.Call(ctx, t, &hash, "eth_sendRawTransaction", hexutil.Bytes(tx.Raw)); err != nil {
			return nil, ToExecutionError(err)
		}
		if hash != tx.Hash {
			return nil, &ExecutionError{Kind: UnexpectedTransactionHash, Hash: hash, Expected: tx.Hash}
		}
	} else {
		if err := transport.Call(ctx, t, &hash, "eth_sendTransaction", tx.Request); err != nil {
			return nil, ToExecutionError(err)
		}
	}
	l := L.With().Str("Transaction", hash.Hex()).Logger()
	l.Debug().Bool("Raw", tx.IsRaw()).Msg("Transaction sent")

	if resolve.IsPending() {
		return &TransactionResult{Hash: hash}, nil
	}
	receipt, err := WaitForConfirmation(ctx, t, hash, resolve.params)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		l.Warn().Uint64("Status", receipt.Status).Msg("Transaction failed")
		return nil, &ExecutionError{Kind: Failure, Hash: hash, Receipt: receipt}
	}
	return &TransactionResult{Hash: hash, Receipt: receipt}, nil
}
