package smt

import "github.com/rooch-network/rooch-sub004/common"

// Update is one (key, optional value) entry. Delete marks a removal; a
// nil Value with Delete false is stored as an empty value.
type Update struct {
	Key   common.Hash
	Value []byte
	// Delete is true for a removal; distinguishes "delete" from "set to
	// empty slice", which is a normal zero-length value.
	Delete bool
}

// UpdateSet is an ordered batch of updates. Ordering doesn't affect the
// result — set semantics — but duplicate keys within one batch keep the
// last write; UpdateSet
// enforces that by deduplicating in Put and Remove.
type UpdateSet struct {
	order []common.Hash
	byKey map[common.Hash]Update
}

// NewUpdateSet builds an empty update set.
func NewUpdateSet() *UpdateSet {
	return &UpdateSet{byKey: make(map[common.Hash]Update)}
}

// Put queues a (key, value) write, keeping last-write-wins semantics.
func (s *UpdateSet) Put(key common.Hash, value []byte) {
	if _, exists := s.byKey[key]; !exists {
		s.order = append(s.order, key)
	}
	s.byKey[key] = Update{Key: key, Value: value}
}

// Remove queues a deletion, keeping last-write-wins semantics.
func (s *UpdateSet) Remove(key common.Hash) {
	if _, exists := s.byKey[key]; !exists {
		s.order = append(s.order, key)
	}
	s.byKey[key] = Update{Key: key, Delete: true}
}

// Len returns the number of distinct keys queued.
func (s *UpdateSet) Len() int { return len(s.order) }

// IsEmpty reports whether the set has no entries.
func (s *UpdateSet) IsEmpty() bool { return len(s.order) == 0 }

// Updates returns the deduplicated updates in first-seen key order. Because
// the map always holds the latest write for a key, this already implements
// "duplicates within one batch keep the last occurrence."
func (s *UpdateSet) Updates() []Update {
	out := make([]Update, len(s.order))
	for i, k := range s.order {
		out[i] = s.byKey[k]
	}
	return out
}
