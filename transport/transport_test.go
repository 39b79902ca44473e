package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract/test_utils"
	"github.com/smartcontractkit/ethcontract/transport"
)

// sequential hides the batch capability of the wrapped transport
type sequential struct {
	transport.Transport
}

func TestDynTransportDoesNotNest(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	dyn := transport.NewDynTransport(tr)
	require.Same(t, dyn, transport.NewDynTransport(dyn), "wrapping twice should return the same wrapper")
	require.True(t, dyn.SupportsBatch())
	require.Equal(t, transport.Transport(tr), dyn.Inner())
}

func TestDynTransportSequentialBatch(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	dyn := transport.NewDynTransport(sequential{tr})
	require.False(t, dyn.SupportsBatch())

	tr.AddResponse("0x1")
	tr.AddError(&transport.RPCError{Code: -32000, Message: "boom"})
	reqs := []transport.Request{dyn.Prepare("eth_blockNumber"), dyn.Prepare("eth_chainId")}
	res, err := dyn.SendBatch(ctx, reqs)
	require.NoError(t, err, "sequential batch should not fail as a whole")
	require.Len(t, res, 2)
	require.JSONEq(t, `"0x1"`, string(res[0].Result))
	var rpcErr *transport.RPCError
	require.ErrorAs(t, res[1].Err, &rpcErr)
	require.Equal(t, -32000, rpcErr.Code)

	tr.AssertRequest("eth_blockNumber", `[]`)
	tr.AssertRequest("eth_chainId", `[]`)
	tr.AssertNoMoreRequests()
}

func TestCallDecodesResult(t *testing.T) {
	tr := test_utils.NewTestTransport(t)
	tr.AddResponse(json.RawMessage(`["0x01","0x02"]`))
	var out []string
	err := transport.Call(context.Background(), tr, &out, "eth_accounts")
	require.NoError(t, err, "failed to call eth_accounts")
	require.Equal(t, []string{"0x01", "0x02"}, out)
	tr.AssertRequest("eth_accounts", `[]`)
}

func TestRetryTransport(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	retrying := transport.NewRetryTransport(tr, transport.RetryOptions{Attempts: 3, Delay: time.Millisecond})

	tr.AddError(errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"))
	tr.AddResponse("0x2a")
	res, err := retrying.Send(ctx, retrying.Prepare("eth_blockNumber"))
	require.NoError(t, err, "connection refused should be retried")
	require.JSONEq(t, `"0x2a"`, string(res))

	tr.AddError(errors.New("connection refused"))
	tr.AddResponse("0xdead")
	_, err = retrying.Send(ctx, retrying.Prepare("eth_sendRawTransaction", "0x00"))
	require.Error(t, err, "transaction submission is never retried")
	res, err = retrying.Send(ctx, retrying.Prepare("eth_chainId"))
	require.NoError(t, err)
	require.JSONEq(t, `"0xdead"`, string(res), "the queued response is left for the next request")

	tr.AddError(&transport.RPCError{Code: 3, Message: "execution reverted"})
	_, err = retrying.Send(ctx, retrying.Prepare("eth_call"))
	var rpcErr *transport.RPCError
	require.ErrorAs(t, err, &rpcErr, "node errors are not retried")
}

func TestRateLimitedTransport(t *testing.T) {
	ctx := context.Background()
	tr := test_utils.NewTestTransport(t)
	limited := transport.NewRateLimitedTransport(tr, 1000)

	tr.AddResponse("0x1")
	tr.AddBatchResponse("0x2", "0x3")
	_, err := transport.Execute(ctx, limited, "eth_blockNumber")
	require.NoError(t, err)
	res, err := limited.SendBatch(ctx, []transport.Request{limited.Prepare("eth_chainId"), limited.Prepare("net_version")})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.JSONEq(t, `"0x3"`, string(res[1].Result))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = limited.Send(cancelled, limited.Prepare("eth_blockNumber"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRPCErrorMessage(t *testing.T) {
	err := &transport.RPCError{Code: -32015, Message: "VM execution error.", Data: json.RawMessage(`"Reverted 0x"`)}
	require.Equal(t, `RPC error -32015: VM execution error. (data: "Reverted 0x")`, err.Error())
}
