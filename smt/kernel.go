package smt

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rooch-network/rooch-sub004/common"
)

// ParallelThreshold is the minimum number of updates routed into one
// child bucket before the kernel spawns a goroutine for it instead of
// recursing serially in the caller's goroutine: each non-empty child
// bucket only gets its own goroutine once its estimated work exceeds
// this threshold. It is a var, not a const, so tests can force either
// code path deterministically.
var ParallelThreshold = 64

// kernelCtx accumulates the side effects of one PutAll call: nodes created
// and nodes displaced. Both maps are guarded by mu because buildInternal
// may fan buckets out across goroutines.
type kernelCtx struct {
	store NodeStore

	mu       sync.Mutex
	newNodes map[common.Hash][]byte
	replaced map[common.Hash]struct{}
}

func newKernelCtx(store NodeStore) *kernelCtx {
	return &kernelCtx{
		store:    store,
		newNodes: make(map[common.Hash][]byte),
		replaced: make(map[common.Hash]struct{}),
	}
}

func (c *kernelCtx) resolve(hash common.Hash) (Node, error) {
	return GetNode(c.store, hash)
}

func (c *kernelCtx) addNewNode(n Node) (common.Hash, error) {
	blob, err := Encode(n)
	if err != nil {
		return common.Hash{}, err
	}
	h := n.Hash()
	c.mu.Lock()
	c.newNodes[h] = blob
	c.mu.Unlock()
	return h, nil
}

func (c *kernelCtx) markReplaced(hash common.Hash) {
	c.mu.Lock()
	c.replaced[hash] = struct{}{}
	c.mu.Unlock()
}

// PutAll applies updates to the tree rooted at priorRoot and returns the
// resulting ChangeSet. It is the Go counterpart of the Rust
// JellyfishMerkleTree::updates contract.
func PutAll(store NodeStore, priorRoot common.Hash, updates *UpdateSet) (*ChangeSet, error) {
	if updates.IsEmpty() {
		return &ChangeSet{
			NewRoot:    priorRoot,
			NewNodes:   map[common.Hash][]byte{},
			StaleNodes: map[common.Hash]struct{}{},
		}, nil
	}
	ctx := newKernelCtx(store)
	newRoot, _, err := ctx.apply(priorRoot, 0, updates.Updates())
	if err != nil {
		return nil, err
	}
	return &ChangeSet{
		NewRoot:    newRoot,
		NewNodes:   ctx.newNodes,
		StaleNodes: subtractStale(ctx.replaced, ctx.newNodes),
	}, nil
}

// apply applies updates (all sharing a common nibble prefix of length
// depth) to the subtree currently rooted at hash, returning the new
// subtree's root hash and whether that root is a leaf.
func (c *kernelCtx) apply(hash common.Hash, depth int, updates []Update) (common.Hash, bool, error) {
	node, err := c.resolve(hash)
	if err != nil {
		return common.Hash{}, false, err
	}
	switch n := node.(type) {
	case NullNode:
		return c.applyToEmpty(depth, updates)
	case *LeafNode:
		return c.applyToLeaf(hash, n, depth, updates)
	case *InternalNode:
		return c.applyToInternal(hash, n, depth, updates)
	default:
		// node == nil: hash referenced a node absent from the store.
		return common.Hash{}, false, corruptionMissingNode(hash)
	}
}

func (c *kernelCtx) applyToEmpty(depth int, updates []Update) (common.Hash, bool, error) {
	if len(updates) == 1 {
		u := updates[0]
		if u.Delete {
			return common.PlaceholderHash, false, nil
		}
		leaf := NewLeaf(u.Key, u.Value)
		h, err := c.addNewNode(leaf)
		return h, true, err
	}
	return c.buildInternal(depth, nil, updates)
}

func (c *kernelCtx) applyToLeaf(oldHash common.Hash, leaf *LeafNode, depth int, updates []Update) (common.Hash, bool, error) {
	var self *Update
	others := make([]Update, 0, len(updates))
	for i := range updates {
		u := updates[i]
		if u.Key == leaf.Key {
			self = &updates[i]
		} else {
			others = append(others, u)
		}
	}

	if len(others) == 0 {
		if self == nil {
			// Shouldn't happen: the caller guarantees at least one update
			// reaches this subtree, and it must either match the leaf's
			// key or diverge from it (landing in others).
			return oldHash, true, nil
		}
		if self.Delete {
			c.markReplaced(oldHash)
			return common.PlaceholderHash, false, nil
		}
		if bytesEqual(self.Value, leaf.ValueBytes) {
			return oldHash, true, nil // no-op: identical value re-applied
		}
		c.markReplaced(oldHash)
		newLeaf := NewLeaf(leaf.Key, self.Value)
		h, err := c.addNewNode(newLeaf)
		return h, true, err
	}

	// Keys diverge beyond this depth: the leaf must be split into a
	// subtree alongside the other updates, extending internals until the
	// two keys diverge.
	c.markReplaced(oldHash)
	effective := others
	if self == nil || !self.Delete {
		value := leaf.ValueBytes
		if self != nil {
			value = self.Value
		}
		effective = append(effective, Update{Key: leaf.Key, Value: value})
	}
	return c.buildInternal(depth, nil, effective)
}

func (c *kernelCtx) applyToInternal(oldHash common.Hash, n *InternalNode, depth int, updates []Update) (common.Hash, bool, error) {
	buckets := partitionByNibble(depth, updates)
	newChildren := n.Children // array copy
	changed, err := c.recurseBuckets(depth, buckets, &newChildren)
	if err != nil {
		return common.Hash{}, false, err
	}
	if !changed {
		return oldHash, false, nil
	}
	c.markReplaced(oldHash)
	return c.collapseOrBuild(newChildren)
}

func (c *kernelCtx) buildInternal(depth int, existing *[NumChildren]*Child, updates []Update) (common.Hash, bool, error) {
	var newChildren [NumChildren]*Child
	if existing != nil {
		newChildren = *existing
	}
	buckets := partitionByNibble(depth, updates)
	if _, err := c.recurseBuckets(depth, buckets, &newChildren); err != nil {
		return common.Hash{}, false, err
	}
	return c.collapseOrBuild(newChildren)
}

// recurseBuckets resolves every non-empty nibble bucket, serially or in
// parallel depending on ParallelThreshold, and writes results into
// newChildren. It reports whether any child actually changed.
func (c *kernelCtx) recurseBuckets(depth int, buckets map[byte][]Update, newChildren *[NumChildren]*Child) (bool, error) {
	type result struct {
		nibble byte
		hash   common.Hash
		isLeaf bool
	}
	results := make([]result, 0, len(buckets))
	var mu sync.Mutex
	changed := false

	totalWork := 0
	for _, b := range buckets {
		totalWork += len(b)
	}

	run := func(nibble byte, bucket []Update) error {
		childHash := common.PlaceholderHash
		if newChildren[nibble] != nil {
			childHash = newChildren[nibble].Hash
		}
		newHash, isLeaf, err := c.apply(childHash, depth+1, bucket)
		if err != nil {
			return err
		}
		mu.Lock()
		if newHash != childHash {
			changed = true
		}
		results = append(results, result{nibble: nibble, hash: newHash, isLeaf: isLeaf})
		mu.Unlock()
		return nil
	}

	if totalWork > ParallelThreshold && len(buckets) > 1 {
		g := new(errgroup.Group)
		for nibble, bucket := range buckets {
			nibble, bucket := nibble, bucket
			if len(bucket) <= ParallelThreshold {
				if err := run(nibble, bucket); err != nil {
					_ = g.Wait()
					return false, err
				}
				continue
			}
			g.Go(func() error { return run(nibble, bucket) })
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
	} else {
		for nibble, bucket := range buckets {
			if err := run(nibble, bucket); err != nil {
				return false, err
			}
		}
	}

	for _, r := range results {
		if r.hash.IsPlaceholder() {
			newChildren[r.nibble] = nil
		} else {
			newChildren[r.nibble] = &Child{Hash: r.hash, IsLeaf: r.isLeaf}
		}
	}
	return changed, nil
}

// collapseOrBuild applies the internal-node collapse rule: if the
// parent internal has exactly one remaining leaf child after deletion,
// replace the parent with that child; otherwise commit a fresh
// Internal node.
func (c *kernelCtx) collapseOrBuild(children [NumChildren]*Child) (common.Hash, bool, error) {
	count, sole := 0, -1
	for i, ch := range children {
		if ch != nil {
			count++
			sole = i
		}
	}
	switch {
	case count == 0:
		return common.PlaceholderHash, false, nil
	case count == 1 && children[sole].IsLeaf:
		return children[sole].Hash, true, nil
	default:
		n := &InternalNode{Children: children}
		h, err := c.addNewNode(n)
		return h, false, err
	}
}

func partitionByNibble(depth int, updates []Update) map[byte][]Update {
	buckets := make(map[byte][]Update)
	for _, u := range updates {
		nib := common.Nibble(u.Key, depth)
		buckets[nib] = append(buckets[nib], u)
	}
	return buckets
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
