package ethcontract

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type cacheItem struct {
	block     uint64
	frequency int
}

// DeploymentBlockCache is a Least Frequently Used cache of the blocks deployment transactions
// were mined in
type DeploymentBlockCache struct {
	capacity uint64
	mu       sync.Mutex
	cache    map[common.Hash]*cacheItem // key is the deployment transaction hash
}

// NewDeploymentBlockCache creates a new LFU cache with the given capacity.
func NewDeploymentBlockCache(capacity uint64) *DeploymentBlockCache {
	return &DeploymentBlockCache{
		capacity: capacity,
		cache:    make(map[common.Hash]*cacheItem),
	}
}

// Get retrieves the deployment block of a transaction.
func (c *DeploymentBlockCache) Get(tx common.Hash) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.cache[tx]; found {
		item.frequency++
		L.Trace().Msgf("Found deployment block %d of %s in cache", item.block, tx.Hex())
		return item.block, true
	}
	return 0, false
}

// Set adds or updates a deployment block.
func (c *DeploymentBlockCache) Set(tx common.Hash, block uint64) {
	if c.capacity == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, found := c.cache[tx]; found {
		c.cache[tx] = &cacheItem{block: block, frequency: old.frequency + 1}
		return
	}

	if uint64(len(c.cache)) >= c.capacity {
		c.evict()
	}
	L.Trace().Msgf("Setting deployment block %d of %s in cache", block, tx.Hex())
	c.cache[tx] = &cacheItem{block: block, frequency: 1}
}

func (c *DeploymentBlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// evict removes the least frequently used item from the cache. If more than one item has the same frequency, the oldest deployment is evicted.
func (c *DeploymentBlockCache) evict() {
	leastFreq := int(^uint(0) >> 1)
	var evictKey common.Hash
	oldestBlock := ^uint64(0)
	for key, item := range c.cache {
		if item.frequency < leastFreq {
			evictKey = key
			leastFreq = item.frequency
			oldestBlock = item.block
		} else if item.frequency == leastFreq && item.block < oldestBlock {
			evictKey = key
			oldestBlock = item.block
		}
	}
	L.Trace().Msgf("Evicted deployment %s from cache", evictKey.Hex())
	delete(c.cache, evictKey)
}
