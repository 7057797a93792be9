// Package sync provides concurrency primitives shared by the in-memory
// stores.
package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// ShardedMutex spreads per-key locking across a fixed set of mutexes so hot
// counter keys in different shards never contend with each other. Two keys in
// the same shard still serialize, which is correct, just slower.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// NewShardedMutex creates a ShardedMutex.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the shard lock for key.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the shard lock for key. The key must match the Lock call.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

func (m *ShardedMutex) shardFor(key string) uint32 {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
