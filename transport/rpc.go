package transport

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/smartcontractkit/ethcontract/internal/logging"
)

// RPCTransport sends requests through a go-ethereum rpc.Client, over HTTP, WebSocket or IPC
type RPCTransport struct {
	ids    idGenerator
	client *rpc.Client
}

func NewRPCTransport(client *rpc.Client) *RPCTransport {
	return &RPCTransport{client: client}
}

// Dial connects to a node url
func Dial(ctx context.Context, url string) (*RPCTransport, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	logging.L.Debug().Str("URL", url).Msg("Connected to RPC node")
	return NewRPCTransport(c), nil
}

func (t *RPCTransport) Prepare(method string, params ...any) Request {
	return t.ids.prepare(method, params)
}

func (t *RPCTransport) Send(ctx context.Context, req Request) (json.RawMessage, error) {
	logging.L.Trace().Uint64("ID", req.ID).Str("Method", req.Method).Msg("Sending RPC request")
	var out json.RawMessage
	if err := t.client.CallContext(ctx, &out, req.Method, req.Params...); err != nil {
		return nil, convertError(err)
	}
	return out, nil
}

func (t *RPCTransport) SendBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	logging.L.Trace().Int("Requests", len(reqs)).Msg("Sending RPC batch")
	elems := make([]rpc.BatchElem, len(reqs))
	outs := make([]json.RawMessage, len(reqs))
	for i, r := range reqs {
		elems[i] = rpc.BatchElem{Method: r.Method, Args: r.Params, Result: &outs[i]}
	}
	if err := t.client.BatchCallContext(ctx, elems); err != nil {
		return nil, convertError(err)
	}
	results := make([]BatchResult, len(reqs))
	for i, e := range elems {
		if e.Error != nil {
			results[i] = BatchResult{Err: convertError(e.Error)}
			continue
		}
		results[i] = BatchResult{Result: outs[i]}
	}
	return results, nil
}

// Close shuts the underlying client down
func (t *RPCTransport) Close() {
	t.client.Close()
}

// convertError turns node error objects into *RPCError, other errors pass through
func convertError(err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	out := &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		if data, mErr := json.Marshal(dataErr.ErrorData()); mErr == nil {
			out.Data = data
		}
	}
	return out
}
