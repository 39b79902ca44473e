package ethcontract

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/smartcontractkit/ethcontract/transport"
)

// CallFuture is resolved exactly once, when its batch runs or is discarded
type CallFuture struct {
	done   chan struct{}
	once   sync.Once
	result []byte
	err    error
}

func newCallFuture() *CallFuture {
	return &CallFuture{done: make(chan struct{})}
}

func (f *CallFuture) resolve(result []byte, err error) {
	f.once.Do(func() {
		f.result, f.err = result, err
		close(f.done)
	})
}

// Done is closed once the result is available
func (f *CallFuture) Done() <-chan struct{} {
	return f.done
}

// Wait returns the raw return data of the call
func (f *CallFuture) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type batchedCall struct {
	req       CallRequest
	block     BlockNumber
	overrides StateOverrides
	future    *CallFuture
}

// CallBatch collects eth_call requests and sends them as JSON-RPC batches
type CallBatch struct {
	t     *transport.DynTransport
	mu    sync.Mutex
	calls []batchedCall
}

// NewCallBatch batches over t, transports without batch support get the calls one by one
func NewCallBatch(t transport.Transport) *CallBatch {
	return &CallBatch{t: transport.NewDynTransport(t)}
}

func (b *CallBatch) Push(req CallRequest, block BlockNumber) *CallFuture {
	return b.PushWithOverrides(req, block, nil)
}

func (b *CallBatch) PushWithOverrides(req CallRequest, block BlockNumber, overrides StateOverrides) *CallFuture {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := newCallFuture()
	b.calls = append(b.calls, batchedCall{req: req, block: block, overrides: overrides, future: f})
	return f
}

func (b *CallBatch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *CallBatch) take() []batchedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := b.calls
	b.calls = nil
	return calls
}

// ExecuteAll sends the queued calls in chunks of chunkSize, a size of zero sends a single
// batch. Every call is resolved, the returned error is the first batch that failed as a whole.
func (b *CallBatch) ExecuteAll(ctx context.Context, chunkSize int) error {
	calls := b.take()
	if len(calls) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = len(calls)
	}
	var eg errgroup.Group
	for start := 0; start < len(calls); start += chunkSize {
		end := start + chunkSize
		if end > len(calls) {
			end = len(calls)
		}
		chunk := calls[start:end]
		eg.Go(func() error {
			return b.executeChunk(ctx, chunk)
		})
	}
	return eg.Wait()
}

func (b *CallBatch) executeChunk(ctx context.Context, chunk []batchedCall) error {
	reqs := make([]transport.Request, len(chunk))
	for i, c := range chunk {
		reqs[i] = b.t.Prepare("eth_call", callParams(c.req, c.block, c.overrides)...)
	}
	L.Debug().Int("Calls", len(chunk)).Msg("Sending call batch")
	results, err := b.t.SendBatch(ctx, reqs)
	if err != nil {
		batchErr := &ExecutionError{Kind: TransportFailure, Err: errors.Wrap(err, ErrBatchFailed)}
		for _, c := range chunk {
			c.future.resolve(nil, batchErr)
		}
		return batchErr
	}
	for i, c := range chunk {
		if i >= len(results) {
			c.future.resolve(nil, &ExecutionError{Kind: ParseFailure, Err: errors.New(ErrBatchMissingSlot)})
			continue
		}
		if results[i].Err != nil {
			c.future.resolve(nil, ToExecutionError(results[i].Err))
			continue
		}
		var out hexutil.Bytes
		if err := transport.Decode(results[i].Result, &out); err != nil {
			c.future.resolve(nil, &ExecutionError{Kind: ParseFailure, Err: err})
			continue
		}
		c.future.resolve(out, nil)
	}
	return nil
}

// Discard drops the batch, every queued call fails with a dropped batch error
func (b *CallBatch) Discard() {
	calls := b.take()
	for _, c := range calls {
		c.future.resolve(nil, &ExecutionError{Kind: TransportFailure, Err: errors.New(ErrDroppedBatch)})
	}
	if len(calls) > 0 {
		L.Debug().Int("Calls", len(calls)).Msg("Discarded call batch")
	}
}
