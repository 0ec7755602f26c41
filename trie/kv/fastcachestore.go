package kv

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
)

// FastCacheStore is an allocation-light NodeStore backed by
// VictoriaMetrics/fastcache, a byte-keyed fixed-overhead cache that
// matches a NodeStore's access pattern well: fixed 32-byte keys,
// fairly small values, no ordering requirements. The demo driver uses
// this as its local, partially-visible side of a simulated beam sync:
// it's seeded with only some of a trie's nodes, and entries may be
// evicted at any time without violating any NodeStore invariant (a
// miss is always a valid, expected outcome that the walker backfills
// from the remote side).
type FastCacheStore struct {
	cache *fastcache.Cache
}

// NewFastCacheStore allocates a FastCacheStore with roughly maxBytes
// of backing memory.
func NewFastCacheStore(maxBytes int) *FastCacheStore {
	return &FastCacheStore{cache: fastcache.New(maxBytes)}
}

func (f *FastCacheStore) Get(hash common.Hash) ([]byte, bool) {
	blob, ok := f.cache.HasGet(nil, hash[:])
	if !ok {
		return nil, false
	}
	return blob, true
}

func (f *FastCacheStore) Put(hash common.Hash, blob []byte) {
	f.cache.Set(hash[:], blob)
}

func (f *FastCacheStore) Has(hash common.Hash) bool {
	return f.cache.Has(hash[:])
}

// Del evicts hash from the local cache, as a real beam-sync client
// would once a node falls out of its working set.
func (f *FastCacheStore) Del(hash common.Hash) {
	f.cache.Del(hash[:])
}
