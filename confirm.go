package ethcontract

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/smartcontractkit/ethcontract/transport"
)

const (
	DefaultPollMin      = 250 * time.Millisecond
	DefaultPollMax      = 7 * time.Second
	DefaultPollFactor   = 1.7
	DefaultBlockTimeout = uint64(25)
)

// ConfirmParams controls how long to wait for a transaction and how often to poll the node
type ConfirmParams struct {
	// Confirmations is the number of blocks mined on top of the transaction block
	Confirmations uint64
	PollMin       time.Duration
	PollMax       time.Duration
	PollFactor    float64
	// BlockTimeout is the number of blocks to wait before giving up, nil waits forever
	BlockTimeout *uint64
}

// DefaultConfirmParams waits for the given number of confirmations with the default polling
func DefaultConfirmParams(confirmations uint64) ConfirmParams {
	timeout := DefaultBlockTimeout
	return ConfirmParams{
		Confirmations: confirmations,
		PollMin:       DefaultPollMin,
		PollMax:       DefaultPollMax,
		PollFactor:    DefaultPollFactor,
		BlockTimeout:  &timeout,
	}
}

// Mined resolves as soon as the transaction is in a block
func Mined() ConfirmParams {
	return DefaultConfirmParams(0)
}

func (p ConfirmParams) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.PollMin,
		RandomizationFactor: 0,
		Multiplier:          p.PollFactor,
		MaxInterval:         p.PollMax,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// WaitForConfirmation polls the node until the transaction has the requested number of
// confirmations. The receipt is read again on every check so a transaction that is re-mined in
// a different block after a reorg is followed to its new block.
func WaitForConfirmation(ctx context.Context, t transport.Transport, hash common.Hash, params ConfirmParams) (*types.Receipt, error) {
	l := L.With().Str("Transaction", hash.Hex()).Logger()
	delay := params.newBackOff()
	var (
		latest   *uint64
		starting *uint64
	)
	for {
		if latest == nil {
			n, err := fetchBlockNumber(ctx, t)
			if err != nil {
				return nil, err
			}
			latest = &n
		}
		receipt, err := transactionReceipt(ctx, t, hash)
		if err != nil {
			return nil, err
		}

		var target uint64
		if receipt != nil && receipt.BlockNumber != nil {
			mined := receipt.BlockNumber.Uint64()
			target = mined + params.Confirmations
			if params.Confirmations == 0 || *latest >= target {
				l.Debug().Uint64("Block", mined).Uint64("Latest", *latest).Msg("Transaction confirmed")
				return receipt, nil
			}
		} else {
			receipt = nil
			target = *latest + params.Confirmations + 1
		}

		if params.BlockTimeout != nil {
			if starting == nil {
				s := *latest
				starting = &s
			}
			if target > *starting && target-*starting > *params.BlockTimeout {
				l.Warn().Uint64("Target", target).Uint64("Start", *starting).Msg("Confirmation timed out")
				return nil, &ExecutionError{Kind: ConfirmTimeout, Hash: hash, Receipt: receipt}
			}
		}

		next, err := waitForBlock(ctx, t, target, delay, l)
		if err != nil {
			return nil, err
		}
		latest = &next
	}
}

// waitForBlock sleeps and polls eth_blockNumber until the chain reaches target
func waitForBlock(ctx context.Context, t transport.Transport, target uint64, delay *backoff.ExponentialBackOff, l zerolog.Logger) (uint64, error) {
	for {
		if err := sleep(ctx, delay.NextBackOff()); err != nil {
			return 0, err
		}
		n, err := fetchBlockNumber(ctx, t)
		if err != nil {
			return 0, err
		}
		l.Trace().Uint64("Latest", n).Uint64("Target", target).Msg("Waiting for block")
		if n >= target {
			return n, nil
		}
	}
}

// sleep returns immediately for a zero duration
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fetchBlockNumber(ctx context.Context, t transport.Transport) (uint64, error) {
	var n hexutil.Uint64
	if err := transport.Call(ctx, t, &n, "eth_blockNumber"); err != nil {
		return 0, ToExecutionError(err)
	}
	return uint64(n), nil
}

// transactionReceipt returns nil while the transaction is unknown or pending
func transactionReceipt(ctx context.Context, t transport.Transport, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := transport.Call(ctx, t, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, ToExecutionError(err)
	}
	return receipt, nil
}
