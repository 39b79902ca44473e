package ethcontract_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
)

func TestDeploymentBlockCacheEvictsLeastUsed(t *testing.T) {
	c := ethcontract.NewDeploymentBlockCache(2)
	a, b, d := common.HexToHash("0xa"), common.HexToHash("0xb"), common.HexToHash("0xd")
	c.Set(a, 10)
	c.Set(b, 20)
	_, ok := c.Get(b)
	require.True(t, ok)

	c.Set(d, 30)
	require.Equal(t, 2, c.Len())
	_, ok = c.Get(a)
	require.False(t, ok, "least frequently used entry should be evicted")
	block, ok := c.Get(b)
	require.True(t, ok)
	require.Equal(t, uint64(20), block)
}

func TestDeploymentBlockCacheTieEvictsOldestBlock(t *testing.T) {
	c := ethcontract.NewDeploymentBlockCache(2)
	older, newer := common.HexToHash("0x1"), common.HexToHash("0x2")
	c.Set(newer, 200)
	c.Set(older, 100)
	c.Set(common.HexToHash("0x3"), 300)

	_, ok := c.Get(older)
	require.False(t, ok, "on equal frequency the earliest deployment goes first")
	_, ok = c.Get(newer)
	require.True(t, ok)
}

func TestDeploymentBlockCacheUpdate(t *testing.T) {
	c := ethcontract.NewDeploymentBlockCache(1)
	h := common.HexToHash("0x1")
	c.Set(h, 1)
	c.Set(h, 2)
	require.Equal(t, 1, c.Len(), "updating an entry does not evict")
	block, ok := c.Get(h)
	require.True(t, ok)
	require.Equal(t, uint64(2), block)
}

func TestZeroCapacityCacheStoresNothing(t *testing.T) {
	c := ethcontract.NewDeploymentBlockCache(0)
	c.Set(common.HexToHash("0x1"), 1)
	require.Zero(t, c.Len())
}
