// Package syncutil provides keyed locking shared by the services.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 128

// ShardedMutex serializes work per string key over a fixed pool of
// mutexes. Memory stays bounded no matter how many keys are seen;
// keys that hash to the same shard occasionally contend. The zero
// value is ready to use.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the mutex for key and returns the unlock.
func (s *ShardedMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &s.shards[h.Sum32()%shardCount]
	mu.Lock()
	return mu.Unlock
}
