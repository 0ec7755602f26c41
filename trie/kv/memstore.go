package kv

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemStore is an in-memory NodeStore, grounded on the teacher's
// accdb/memorydb.MemDB - which declared the map and the mutex but
// never implemented Get/Put/Has. It backs the demo driver's fully
// populated remote side of a beam-sync walk and any test that doesn't
// care about eviction.
type MemStore struct {
	mu   sync.RWMutex
	data map[common.Hash][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[common.Hash][]byte)}
}

func (m *MemStore) Get(hash common.Hash) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.data[hash]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true
}

func (m *MemStore) Put(hash common.Hash, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.data[hash] = cp
}

func (m *MemStore) Has(hash common.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[hash]
	return ok
}

// Delete removes hash from the store.
func (m *MemStore) Delete(hash common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, hash)
}

// Len reports how many node bodies are currently stored.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Hashes returns every hash currently stored, in unspecified order.
// The demo driver uses this to build a partially-visible local copy
// of a fully populated store.
func (m *MemStore) Hashes() []common.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]common.Hash, 0, len(m.data))
	for h := range m.data {
		out = append(out, h)
	}
	return out
}
