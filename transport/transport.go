package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	ErrBatchUnsupported = "transport does not support batch requests"
	ErrDecodeResult     = "failed to decode JSON-RPC result"
)

// Request is a single JSON-RPC call. IDs are assigned by the transport in Prepare.
type Request struct {
	ID     uint64
	Method string
	Params []any
}

// Transport sends JSON-RPC requests to a node. Implementations must be safe for concurrent use.
type Transport interface {
	// Prepare assigns the request an id, it does not send anything
	Prepare(method string, params ...any) Request
	// Send executes a prepared request and returns the raw result
	Send(ctx context.Context, req Request) (json.RawMessage, error)
}

// BatchResult is the outcome of one request inside a batch
type BatchResult struct {
	Result json.RawMessage
	Err    error
}

// BatchTransport is a Transport that can send several requests at once
type BatchTransport interface {
	Transport
	// SendBatch returns one result per request in request order. A returned error means the
	// batch as a whole failed.
	SendBatch(ctx context.Context, reqs []Request) ([]BatchResult, error)
}

// Execute prepares and sends a request in one step
func Execute(ctx context.Context, t Transport, method string, params ...any) (json.RawMessage, error) {
	return t.Send(ctx, t.Prepare(method, params...))
}

// Call is Execute that decodes the result into out
func Call(ctx context.Context, t Transport, out any, method string, params ...any) error {
	raw, err := Execute(ctx, t, method, params...)
	if err != nil {
		return err
	}
	return Decode(raw, out)
}

// Decode unmarshals a raw result, a nil out discards it
func Decode(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, ErrDecodeResult)
	}
	return nil
}

// RPCError is an error object returned by the node
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("RPC error %d: %s (data: %s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// idGenerator hands out request ids starting at 1
type idGenerator struct {
	next atomic.Uint64
}

func (g *idGenerator) prepare(method string, params []any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{ID: g.next.Add(1), Method: method, Params: params}
}
