package test_utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract/transport"
)

type queued struct {
	result json.RawMessage
	err    error
	batch  []transport.BatchResult
}

type recorded struct {
	method string
	params []any
}

// TestTransport is a scripted node. Responses are queued up front and handed out in order,
// every prepared request is recorded so tests can assert on what was sent.
type TestTransport struct {
	t  *testing.T
	mu sync.Mutex

	requests  []recorded
	asserted  int
	responses []queued
}

func NewTestTransport(t *testing.T) *TestTransport {
	return &TestTransport{t: t}
}

// AddResponse queues a result. json.RawMessage and []byte are used verbatim, anything else is
// marshalled.
func (tr *TestTransport) AddResponse(v any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.responses = append(tr.responses, queued{result: tr.raw(v)})
}

// AddError queues an error, typically a *transport.RPCError
func (tr *TestTransport) AddError(err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.responses = append(tr.responses, queued{err: err})
}

// AddBatchResponse queues the answer to a whole batch. Items that are errors fail their request.
func (tr *TestTransport) AddBatchResponse(items ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	batch := make([]transport.BatchResult, len(items))
	for i, item := range items {
		if err, ok := item.(error); ok {
			batch[i] = transport.BatchResult{Err: err}
			continue
		}
		batch[i] = transport.BatchResult{Result: tr.raw(item)}
	}
	tr.responses = append(tr.responses, queued{batch: batch})
}

func (tr *TestTransport) raw(v any) json.RawMessage {
	switch r := v.(type) {
	case json.RawMessage:
		return r
	case []byte:
		return r
	}
	data, err := json.Marshal(v)
	require.NoError(tr.t, err, "failed to marshal queued response")
	return data
}

func (tr *TestTransport) Prepare(method string, params ...any) transport.Request {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if params == nil {
		params = []any{}
	}
	tr.requests = append(tr.requests, recorded{method: method, params: params})
	return transport.Request{ID: uint64(len(tr.requests)), Method: method, Params: params}
}

func (tr *TestTransport) pop(req transport.Request) (queued, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.responses) == 0 {
		return queued{}, fmt.Errorf("unexpected request %d: %s", req.ID, req.Method)
	}
	next := tr.responses[0]
	tr.responses = tr.responses[1:]
	return next, nil
}

func (tr *TestTransport) Send(_ context.Context, req transport.Request) (json.RawMessage, error) {
	next, err := tr.pop(req)
	if err != nil {
		return nil, err
	}
	if next.batch != nil {
		return nil, fmt.Errorf("batch response queued for single request %s", req.Method)
	}
	return next.result, next.err
}

// SendBatch answers the whole batch with one queued batch response
func (tr *TestTransport) SendBatch(_ context.Context, reqs []transport.Request) ([]transport.BatchResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	next, err := tr.pop(reqs[0])
	if err != nil {
		return nil, err
	}
	if next.err != nil {
		return nil, next.err
	}
	if next.batch == nil {
		return nil, fmt.Errorf("response to a batch must be a batch response")
	}
	return next.batch, nil
}

// AssertRequest checks the next unasserted request, params is the expected JSON array
func (tr *TestTransport) AssertRequest(method string, params string) {
	tr.t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Less(tr.t, tr.asserted, len(tr.requests), "expected a %s request, no more requests were sent", method)
	got := tr.requests[tr.asserted]
	tr.asserted++
	require.Equal(tr.t, method, got.method, "unexpected method for request %d", tr.asserted)
	actual, err := json.Marshal(got.params)
	require.NoError(tr.t, err, "failed to marshal request params")
	require.JSONEq(tr.t, params, string(actual), "unexpected params for %s", method)
}

// AssertNoMoreRequests fails when requests were sent that were not asserted
func (tr *TestTransport) AssertNoMoreRequests() {
	tr.t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var extra []string
	for _, r := range tr.requests[tr.asserted:] {
		extra = append(extra, r.method)
	}
	require.Empty(tr.t, extra, "expected no more requests")
}

// Requests returns the number of prepared requests
func (tr *TestTransport) Requests() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.requests)
}
