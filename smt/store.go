package smt

import "github.com/rooch-network/rooch-sub004/common"

// NodeStore is the node-store abstraction the kernel reads and writes
// through. Concrete backends (in-memory, pebble, goleveldb) live in
// package store and satisfy this interface; the kernel itself never
// depends on a concrete backend, keeping the hot commit path free of
// dynamic dispatch surprises.
type NodeStore interface {
	// Get returns the encoded node bytes for hash, or nil if absent.
	// Getting common.PlaceholderHash must return (nil, nil) — callers
	// resolve it to Null without touching the store.
	Get(hash common.Hash) ([]byte, error)
	// Put writes a single node.
	Put(hash common.Hash, encoded []byte) error
	// WriteBatch atomically writes every (hash, encoded) pair.
	WriteBatch(nodes map[common.Hash][]byte) error
	// Delete removes a single node.
	Delete(hash common.Hash) error
}

// GetNode resolves hash through store, returning the synthetic Null node
// for the placeholder hash without a store round trip.
func GetNode(store NodeStore, hash common.Hash) (Node, error) {
	if hash.IsPlaceholder() {
		return Null, nil
	}
	blob, err := store.Get(hash)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	return Decode(hash, blob)
}
