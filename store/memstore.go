// Package store provides the NodeStore backends smt.PutAll and the gc
// subsystem read and write through: an in-memory map for tests, and the
// pebble/goleveldb-backed stores used in production.
package store

import (
	"sync"

	"github.com/rooch-network/rooch-sub004/common"
)

// MemStore is an in-memory NodeStore, the adapted counterpart of
// go-ethereum's memorydb.MemDB. It exists for tests and for short-lived
// command-line tools that don't warrant a pebble handle.
type MemStore struct {
	mu   sync.RWMutex
	data map[common.Hash][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[common.Hash][]byte)}
}

func (s *MemStore) Get(hash common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.data[hash]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemStore) Put(hash common.Hash, encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(encoded))
	copy(cp, encoded)
	s.data[hash] = cp
	return nil
}

func (s *MemStore) WriteBatch(nodes map[common.Hash][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, blob := range nodes {
		cp := make([]byte, len(blob))
		copy(cp, blob)
		s.data[h] = cp
	}
	return nil
}

func (s *MemStore) Delete(hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return nil
}

// Len returns the number of nodes currently stored, for test assertions.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
