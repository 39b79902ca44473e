package transport

import (
	"context"
	"encoding/json"

	"go.uber.org/ratelimit"
)

// RateLimitedTransport spaces requests out to at most rps per second. A batch counts as one
// request.
type RateLimitedTransport struct {
	inner   Transport
	limiter ratelimit.Limiter
}

func NewRateLimitedTransport(t Transport, rps int) *RateLimitedTransport {
	return &RateLimitedTransport{inner: t, limiter: ratelimit.New(rps, ratelimit.WithoutSlack)}
}

func (r *RateLimitedTransport) Prepare(method string, params ...any) Request {
	return r.inner.Prepare(method, params...)
}

func (r *RateLimitedTransport) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	r.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.inner.Send(ctx, req)
}

func (r *RateLimitedTransport) SendBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	r.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewDynTransport(r.inner).SendBatch(ctx, reqs)
}
