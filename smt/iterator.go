package smt

import "github.com/rooch-network/rooch-sub004/common"

// KV is a resolved (key, value) pair yielded by List/Iterator.
type KV struct {
	Key   common.Hash
	Value []byte
}

// frame is one level of the iterator's explicit DFS stack.
type frame struct {
	node *InternalNode
	next int // next child index to descend into
}

// Iterator streams (key, value) pairs in ascending key order starting at
// (or just after) startKey. Reads against common.PlaceholderHash are
// empty without a store round trip.
type Iterator struct {
	store   NodeStore
	stack   []frame
	pending *LeafNode
	err     error
	done    bool
}

// NewIterator builds a streaming iterator over root. If startKey is
// non-nil, the first Next() call returns the first key >= *startKey.
func NewIterator(store NodeStore, root common.Hash, startKey *common.Hash) (*Iterator, error) {
	it := &Iterator{store: store}
	if root.IsPlaceholder() {
		it.done = true
		return it, nil
	}
	if err := it.descend(root, 0, startKey); err != nil {
		return nil, err
	}
	return it, nil
}

// descend walks from hash down to the first eligible leaf (>= the key
// implied by path-so-far and startKey), pushing internal frames as it goes.
func (it *Iterator) descend(hash common.Hash, depth int, startKey *common.Hash) error {
	for {
		node, err := GetNode(it.store, hash)
		if err != nil {
			return err
		}
		switch n := node.(type) {
		case NullNode:
			return it.popAndAdvance(startKey)
		case *LeafNode:
			if startKey != nil && n.Key.Less(*startKey) {
				return it.popAndAdvance(startKey)
			}
			it.pending = n
			return nil
		case *InternalNode:
			start := 0
			if startKey != nil {
				start = int(common.Nibble(*startKey, depth))
			}
			it.stack = append(it.stack, frame{node: n, next: start})
			nibble, nextHash, ok := nextChildIdx(n, start)
			if !ok {
				it.stack[len(it.stack)-1].next = NumChildren
				return it.popAndAdvance(startKey)
			}
			it.stack[len(it.stack)-1].next = nibble + 1
			hash = nextHash
			depth++
			if nibble > start {
				// This branch's nibble already exceeds startKey's nibble at
				// this depth, so every descendant is >= startKey regardless
				// of startKey's deeper nibbles: stop constraining.
				startKey = nil
			}
		default:
			return corruptionMissingNode(hash)
		}
	}
}

func nextChild(n *InternalNode, from int) (common.Hash, bool) {
	for i := from; i < NumChildren; i++ {
		if n.Children[i] != nil {
			return n.Children[i].Hash, true
		}
	}
	return common.Hash{}, false
}

// nextChildIdx is nextChild plus the nibble index it landed on, which the
// caller needs to decide whether startKey still constrains deeper levels.
func nextChildIdx(n *InternalNode, from int) (int, common.Hash, bool) {
	for i := from; i < NumChildren; i++ {
		if n.Children[i] != nil {
			return i, n.Children[i].Hash, true
		}
	}
	return 0, common.Hash{}, false
}

func nextIndexAfter(n *InternalNode, from int) int {
	for i := from; i < NumChildren; i++ {
		if n.Children[i] != nil {
			return i + 1
		}
	}
	return NumChildren
}

func (it *Iterator) popAndAdvance(startKey *common.Hash) error {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		h, ok := nextChild(top.node, top.next)
		if !ok {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		top.next = nextIndexAfter(top.node, top.next)
		return it.descend(h, len(it.stack), nil) // startKey only applies on the first descent
	}
	it.done = true
	return nil
}

// Next returns the next (key, value) pair, or ok=false once exhausted.
func (it *Iterator) Next() (KV, bool, error) {
	if it.err != nil {
		return KV{}, false, it.err
	}
	if it.pending == nil {
		if it.done {
			return KV{}, false, nil
		}
	}
	leaf := it.pending
	if leaf == nil {
		return KV{}, false, nil
	}
	it.pending = nil
	if err := it.popAndAdvance(nil); err != nil {
		it.err = err
	}
	return KV{Key: leaf.Key, Value: leaf.ValueBytes}, true, nil
}

// List returns up to limit (key, value) pairs starting at startKey
// (inclusive; pass nil to scan from the beginning).
func List(store NodeStore, root common.Hash, startKey *common.Hash, limit int) ([]KV, error) {
	it, err := NewIterator(store, root, startKey)
	if err != nil {
		return nil, err
	}
	out := make([]KV, 0, limit)
	for len(out) < limit {
		kv, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, kv)
	}
	return out, nil
}
