package ethcontract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/ethcontract/transport"
)

type gasPriceKind int

const (
	legacyGasPrice gasPriceKind = iota
	eip1559GasPrice
	scaledGasPrice
)

// GasPrice is the fee strategy of a transaction: a legacy price, an EIP-1559 fee pair, or the
// node's current price scaled by a factor
type GasPrice struct {
	kind        gasPriceKind
	price       *big.Int
	maxFee      *big.Int
	maxPriority *big.Int
	factor      float64
}

func LegacyGasPrice(price *big.Int) *GasPrice {
	return &GasPrice{kind: legacyGasPrice, price: new(big.Int).Set(price)}
}

// EIP1559GasPrice sends a type 2 transaction, both fields always travel together
func EIP1559GasPrice(maxFeePerGas, maxPriorityFeePerGas *big.Int) *GasPrice {
	return &GasPrice{
		kind:        eip1559GasPrice,
		maxFee:      new(big.Int).Set(maxFeePerGas),
		maxPriority: new(big.Int).Set(maxPriorityFeePerGas),
	}
}

// ScaledGasPrice multiplies eth_gasPrice by factor when the transaction is built
func ScaledGasPrice(factor float64) *GasPrice {
	return &GasPrice{kind: scaledGasPrice, factor: factor}
}

func (g *GasPrice) IsEIP1559() bool {
	return g != nil && g.kind == eip1559GasPrice
}

func (g *GasPrice) String() string {
	switch g.kind {
	case eip1559GasPrice:
		return fmt.Sprintf("eip1559(maxFee=%s, maxPriorityFee=%s)", g.maxFee, g.maxPriority)
	case scaledGasPrice:
		return fmt.Sprintf("scaled(%g)", g.factor)
	}
	return fmt.Sprintf("legacy(%s)", g.price)
}

// resolvedGasPrice holds the wire fields of a gas price
type resolvedGasPrice struct {
	GasPrice             *hexutil.Big
	MaxFeePerGas         *hexutil.Big
	MaxPriorityFeePerGas *hexutil.Big
	Type                 *hexutil.Uint64
}

func (g *GasPrice) resolve(ctx context.Context, t transport.Transport) (resolvedGasPrice, error) {
	if g == nil {
		return resolvedGasPrice{}, nil
	}
	switch g.kind {
	case legacyGasPrice:
		return resolvedGasPrice{GasPrice: (*hexutil.Big)(g.price)}, nil
	case eip1559GasPrice:
		txType := hexutil.Uint64(2)
		return resolvedGasPrice{
			MaxFeePerGas:         (*hexutil.Big)(g.maxFee),
			MaxPriorityFeePerGas: (*hexutil.Big)(g.maxPriority),
			Type:                 &txType,
		}, nil
	}
	price, err := nodeGasPrice(ctx, t)
	if err != nil {
		return resolvedGasPrice{}, err
	}
	scaled, _ := new(big.Float).Mul(new(big.Float).SetInt(price), big.NewFloat(g.factor)).Int(nil)
	L.Debug().Str("NodePrice", price.String()).Float64("Factor", g.factor).Str("GasPrice", scaled.String()).Msg("Scaled gas price")
	return resolvedGasPrice{GasPrice: (*hexutil.Big)(scaled)}, nil
}

func nodeGasPrice(ctx context.Context, t transport.Transport) (*big.Int, error) {
	var price hexutil.Big
	if err := transport.Call(ctx, t, &price, "eth_gasPrice"); err != nil {
		return nil, ToExecutionError(err)
	}
	return price.ToInt(), nil
}
