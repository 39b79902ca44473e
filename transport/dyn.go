package transport

import (
	"context"
	"encoding/json"
)

// DynTransport wraps any Transport into one concrete type. Batches are sent natively when the
// wrapped transport supports them and one request at a time otherwise.
type DynTransport struct {
	inner Transport
	batch BatchTransport
}

// NewDynTransport wraps t, an existing *DynTransport is returned as is
func NewDynTransport(t Transport) *DynTransport {
	if d, ok := t.(*DynTransport); ok {
		return d
	}
	d := &DynTransport{inner: t}
	if b, ok := t.(BatchTransport); ok {
		d.batch = b
	}
	return d
}

// Inner returns the wrapped transport
func (d *DynTransport) Inner() Transport {
	return d.inner
}

// SupportsBatch reports whether batches go out as a single request
func (d *DynTransport) SupportsBatch() bool {
	return d.batch != nil
}

func (d *DynTransport) Prepare(method string, params ...any) Request {
	return d.inner.Prepare(method, params...)
}

func (d *DynTransport) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	return d.inner.Send(ctx, req)
}

func (d *DynTransport) SendBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	if d.batch != nil {
		return d.batch.SendBatch(ctx, reqs)
	}
	out := make([]BatchResult, len(reqs))
	for i, r := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := d.inner.Send(ctx, r)
		out[i] = BatchResult{Result: res, Err: err}
	}
	return out, nil
}
