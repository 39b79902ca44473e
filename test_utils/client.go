package test_utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
)

// NewTestClient creates a client for cfg that talks to a scripted node instead of dialing
func NewTestClient(t *testing.T, cfg *ethcontract.Config, opts ...ethcontract.ClientOpt) (*ethcontract.Client, *TestTransport) {
	tr := NewTestTransport(t)
	return NewTestClientWithTransport(t, cfg, tr, opts...), tr
}

// NewTestClientWithTransport is NewTestClient for a transport that already has responses queued,
// for clients that talk to the node while being created
func NewTestClientWithTransport(t *testing.T, cfg *ethcontract.Config, tr *TestTransport, opts ...ethcontract.ClientOpt) *ethcontract.Client {
	cfgCopy, err := CopyConfig(cfg)
	require.NoError(t, err, "failed to copy config")
	opts = append([]ethcontract.ClientOpt{ethcontract.WithTransport(tr)}, opts...)
	c, err := ethcontract.NewClientWithConfig(context.Background(), cfgCopy, opts...)
	require.NoError(t, err, "failed to create client")
	return c
}
