package transport

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/smartcontractkit/ethcontract/internal/logging"
)

/* these are the common errors of RPCs */

const (
	ErrRPCConnectionRefused = "connection refused"
)

// RetryOptions configure RetryTransport, zero values fall back to the defaults
type RetryOptions struct {
	Attempts uint
	Delay    time.Duration
	// RetryIf decides which errors are retried, connection refused by default
	RetryIf func(error) bool
}

const (
	DefaultRetryAttempts = 10
	DefaultRetryDelay    = time.Second
)

// writeMethods are never retried, a lost response does not mean the transaction was not accepted
var writeMethods = map[string]bool{
	"eth_sendTransaction":      true,
	"eth_sendRawTransaction":   true,
	"personal_sendTransaction": true,
}

// RetryTransport retries read requests that fail because the node is unreachable
type RetryTransport struct {
	inner Transport
	opts  RetryOptions
}

func NewRetryTransport(t Transport, opts RetryOptions) *RetryTransport {
	if opts.Attempts == 0 {
		opts.Attempts = DefaultRetryAttempts
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultRetryDelay
	}
	if opts.RetryIf == nil {
		opts.RetryIf = func(err error) bool {
			return strings.Contains(err.Error(), ErrRPCConnectionRefused)
		}
	}
	return &RetryTransport{inner: t, opts: opts}
}

func (r *RetryTransport) Prepare(method string, params ...any) Request {
	return r.inner.Prepare(method, params...)
}

func (r *RetryTransport) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	if writeMethods[req.Method] {
		return r.inner.Send(ctx, req)
	}
	var out json.RawMessage
	err := retry.Do(
		func() error {
			var err error
			out, err = r.inner.Send(ctx, req)
			return err
		}, retry.OnRetry(func(i uint, err error) {
			logging.L.Debug().Uint("Attempt", i).Str("Method", req.Method).Err(err).Msg("Retrying RPC request...")
		}),
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
		retry.Attempts(r.opts.Attempts), retry.Delay(r.opts.Delay),
		retry.RetryIf(r.opts.RetryIf),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendBatch retries the whole batch, it only carries read requests in practice
func (r *RetryTransport) SendBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	dyn := NewDynTransport(r.inner)
	var out []BatchResult
	err := retry.Do(
		func() error {
			var err error
			out, err = dyn.SendBatch(ctx, reqs)
			return err
		}, retry.OnRetry(func(i uint, err error) {
			logging.L.Debug().Uint("Attempt", i).Int("Requests", len(reqs)).Err(err).Msg("Retrying RPC batch...")
		}),
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
		retry.Attempts(r.opts.Attempts), retry.Delay(r.opts.Delay),
		retry.RetryIf(r.opts.RetryIf),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}
