package gc

import (
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/rooch-network/rooch-sub004/applier"
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
)

// seedsFromLeaf returns the additional traversal seeds a leaf contributes:
// if its value decodes as an ObjectState whose own state_root is set,
// that root is pushed as a nested-tree descent.
func seedsFromLeaf(leaf *smt.LeafNode) []common.Hash {
	obj, err := applier.Decode(leaf.ValueBytes)
	if err != nil {
		return nil // not every leaf holds an ObjectState; a decode failure just means "no nested root"
	}
	if obj.Metadata.StateRoot.IsPlaceholder() {
		return nil
	}
	return []common.Hash{obj.Metadata.StateRoot}
}

// MarkReachable runs a serial DFS from every root, marking every node
// reachable from any of them. Every
// batchSize newly marked nodes, and once at the end, flush is called so
// callers can persist progress (RunCycle saves the marker snapshot). The
// walk itself writes no refcount or stale-index entries.
func MarkReachable(store smt.NodeStore, marker Marker, roots []common.Hash, batchSize int, flush func() error) error {
	stack := make([]common.Hash, 0, len(roots))
	for _, r := range roots {
		if !r.IsPlaceholder() {
			stack = append(stack, r)
		}
	}

	visited := 0
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		wasNew, err := marker.Mark(h)
		if err != nil {
			return err
		}
		if !wasNew {
			continue
		}

		node, err := smt.GetNode(store, h)
		if err != nil {
			return err
		}
		switch n := node.(type) {
		case smt.NullNode:
		case *smt.LeafNode:
			stack = append(stack, seedsFromLeaf(n)...)
		case *smt.InternalNode:
			for _, c := range n.Children {
				if c != nil {
					stack = append(stack, c.Hash)
				}
			}
		default:
			return smtCorruption(h)
		}

		visited++
		if batchSize > 0 && visited%batchSize == 0 && flush != nil {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if flush != nil {
		return flush()
	}
	return nil
}

// MarkReachableParallel is the worker-pool variant: workers share a queue
// and the marker decides (via Mark's wasNew result) which nodes actually
// get expanded, so each reachable node is visited at most once in
// expectation. marker should be
// an AtomicBloom or other lock-free implementation; a mutex-wrapped Bloom
// works too but serializes every mark.
func MarkReachableParallel(store smt.NodeStore, marker Marker, roots []common.Hash, workers int) error {
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var cond = sync.NewCond(&mu)
	queue := make([]common.Hash, 0, len(roots))
	for _, r := range roots {
		if !r.IsPlaceholder() {
			queue = append(queue, r)
		}
	}
	idle := 0
	done := false
	var errs *multierror.Error

	pop := func() (common.Hash, bool) {
		mu.Lock()
		defer mu.Unlock()
		for len(queue) == 0 && !done {
			idle++
			if idle == workers {
				done = true
				cond.Broadcast()
				break
			}
			cond.Wait()
			idle--
		}
		if done {
			return common.Hash{}, false
		}
		h := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		return h, true
	}

	push := func(hashes []common.Hash) {
		if len(hashes) == 0 {
			return
		}
		mu.Lock()
		queue = append(queue, hashes...)
		mu.Unlock()
		cond.Broadcast()
	}

	fail := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		done = true
		mu.Unlock()
		cond.Broadcast()
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				h, ok := pop()
				if !ok {
					return
				}
				wasNew, err := marker.Mark(h)
				if err != nil {
					fail(err)
					return
				}
				if !wasNew {
					continue
				}
				node, err := smt.GetNode(store, h)
				if err != nil {
					fail(err)
					return
				}
				switch n := node.(type) {
				case smt.NullNode:
				case *smt.LeafNode:
					push(seedsFromLeaf(n))
				case *smt.InternalNode:
					children := make([]common.Hash, 0, smt.NumChildren)
					for _, c := range n.Children {
						if c != nil {
							children = append(children, c.Hash)
						}
					}
					push(children)
				default:
					fail(smtCorruption(h))
					return
				}
			}
		}()
	}
	wg.Wait()
	return errs.ErrorOrNil()
}
