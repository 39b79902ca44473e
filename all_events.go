package ethcontract

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/ethcontract/artifact"
	"github.com/smartcontractkit/ethcontract/transport"
)

// AllEventsBuilder reads every log a contract emitted and parses it with the contract's event
// parser. Topics are left to the caller.
type AllEventsBuilder[E any] struct {
	t          transport.Transport
	filter     *LogFilterBuilder
	parse      ParseLogFunc[E]
	deployment *artifact.DeploymentInformation
	cache      *DeploymentBlockCache
}

func NewAllEventsBuilder[E any](t transport.Transport, address common.Address, deployment *artifact.DeploymentInformation, parse ParseLogFunc[E]) *AllEventsBuilder[E] {
	return &AllEventsBuilder[E]{
		t:          t,
		filter:     NewLogFilterBuilder(t).Address(address),
		parse:      parse,
		deployment: deployment,
	}
}

// WithDeploymentCache remembers deployment blocks resolved from transaction hashes
func (b *AllEventsBuilder[E]) WithDeploymentCache(cache *DeploymentBlockCache) *AllEventsBuilder[E] {
	b.cache = cache
	return b
}

func (b *AllEventsBuilder[E]) FromBlock(block BlockNumber) *AllEventsBuilder[E] {
	b.filter.FromBlock(block)
	return b
}

func (b *AllEventsBuilder[E]) ToBlock(block BlockNumber) *AllEventsBuilder[E] {
	b.filter.ToBlock(block)
	return b
}

func (b *AllEventsBuilder[E]) BlockHash(hash common.Hash) *AllEventsBuilder[E] {
	b.filter.BlockHash(hash)
	return b
}

func (b *AllEventsBuilder[E]) Topic0(t Topic) *AllEventsBuilder[E] { b.filter.Topic0(t); return b }
func (b *AllEventsBuilder[E]) Topic1(t Topic) *AllEventsBuilder[E] { b.filter.Topic1(t); return b }
func (b *AllEventsBuilder[E]) Topic2(t Topic) *AllEventsBuilder[E] { b.filter.Topic2(t); return b }
func (b *AllEventsBuilder[E]) Topic3(t Topic) *AllEventsBuilder[E] { b.filter.Topic3(t); return b }

func (b *AllEventsBuilder[E]) Limit(n uint64) *AllEventsBuilder[E] {
	b.filter.Limit(n)
	return b
}

func (b *AllEventsBuilder[E]) BlockPageSize(n uint64) *AllEventsBuilder[E] {
	b.filter.BlockPageSize(n)
	return b
}

func (b *AllEventsBuilder[E]) PollInterval(d time.Duration) *AllEventsBuilder[E] {
	b.filter.PollInterval(d)
	return b
}

func (b *AllEventsBuilder[E]) Filter() *LogFilterBuilder {
	return b.filter
}

// Query reads past events with a single request, deployment information is not used
func (b *AllEventsBuilder[E]) Query(ctx context.Context) ([]Event[E], error) {
	logs, err := b.filter.PastLogs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Event[E], 0, len(logs))
	for _, l := range logs {
		ev, err := pastEvent(l, b.parse)
		if err != nil {
			return nil, ToExecutionError(err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// QueryPaginated reads past events page by page. Queries starting at Earliest or before the
// contract was deployed start at the deployment block instead.
func (b *AllEventsBuilder[E]) QueryPaginated(ctx context.Context) (*EventIterator[E], error) {
	filter := b.filter.Clone()
	if b.deployment != nil && filter.fromBlock != nil {
		from := *filter.fromBlock
		n, isNumber := from.Number()
		if from.IsEarliest() || isNumber {
			deployed, err := b.deploymentBlock(ctx)
			if err != nil {
				return nil, err
			}
			if from.IsEarliest() || deployed > n {
				filter.FromBlock(BlockNum(deployed))
			}
		}
	}
	return &EventIterator[E]{pages: filter.PastLogsPages(), parse: b.parse}, nil
}

func (b *AllEventsBuilder[E]) deploymentBlock(ctx context.Context) (uint64, error) {
	if b.deployment.BlockNumber != nil {
		return *b.deployment.BlockNumber, nil
	}
	hash := *b.deployment.TransactionHash
	if b.cache != nil {
		if n, ok := b.cache.Get(hash); ok {
			return n, nil
		}
	}
	n, err := BlockFromTransaction(ctx, b.t, hash)
	if err != nil {
		return 0, err
	}
	if b.cache != nil {
		b.cache.Set(hash, n)
	}
	return n, nil
}

// BlockFromTransaction returns the block a transaction was mined in
func BlockFromTransaction(ctx context.Context, t transport.Transport, hash common.Hash) (uint64, error) {
	receipt, err := transactionReceipt(ctx, t, hash)
	if err != nil {
		return 0, err
	}
	if receipt == nil {
		return 0, &ExecutionError{Kind: MissingTransaction, Hash: hash}
	}
	if receipt.BlockNumber == nil {
		return 0, &ExecutionError{Kind: PendingTransaction, Hash: hash}
	}
	return receipt.BlockNumber.Uint64(), nil
}

// Stream polls the node for new events of the contract
func (b *AllEventsBuilder[E]) Stream(ctx context.Context) (*EventStream[E], error) {
	s, err := b.filter.Stream(ctx)
	if err != nil {
		return nil, err
	}
	return &EventStream[E]{logs: s, parse: b.parse}, nil
}
