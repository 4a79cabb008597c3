package gc

import (
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/store"
)

// StaleIndex wraps the stale_index column family: (cutoff_root ‖
// node_hash) -> empty, so a prefix scan on cutoff_root enumerates every
// node that became unreachable when that root was superseded.
type StaleIndex struct {
	kv KVHandle
}

func NewStaleIndex(kv KVHandle) *StaleIndex { return &StaleIndex{kv: kv} }

func staleKey(cutoffRoot, nodeHash common.Hash) []byte {
	key := make([]byte, common.HashLength*2)
	copy(key, cutoffRoot[:])
	copy(key[common.HashLength:], nodeHash[:])
	return key
}

// Mark records that nodeHash became unreachable when cutoffRoot was
// superseded.
func (s *StaleIndex) Mark(cutoffRoot, nodeHash common.Hash) error {
	return s.kv.Set(staleKey(cutoffRoot, nodeHash), []byte{})
}

// MarkWrite returns the CFWrite that records nodeHash as unreachable
// under cutoffRoot, without performing the write itself — used by
// callers (notably applier.Commit) that fold the stale-index entry into
// a larger atomic batch alongside other column families.
func (s *StaleIndex) MarkWrite(cutoffRoot, nodeHash common.Hash) store.CFWrite {
	return store.CFWrite{Family: store.CFStaleIndex, Key: staleKey(cutoffRoot, nodeHash), Value: []byte{}}
}

// Unmark removes a stale-index entry (the node was deleted, or promoted
// back to reachable).
func (s *StaleIndex) Unmark(cutoffRoot, nodeHash common.Hash) error {
	return s.kv.Delete(staleKey(cutoffRoot, nodeHash))
}

// ForCutoff calls fn for every node_hash staged stale under cutoffRoot,
// stopping early if fn returns false.
func (s *StaleIndex) ForCutoff(cutoffRoot common.Hash, fn func(nodeHash common.Hash) bool) error {
	var outerErr error
	err := s.kv.Iterate(func(key, _ []byte) bool {
		if len(key) < common.HashLength*2 {
			outerErr = errtag.New(errtag.Corruption, "gc.StaleIndex.ForCutoff", errStaleIndexKeyTooShort)
			return false
		}
		var cutoff common.Hash
		copy(cutoff[:], key[:common.HashLength])
		if cutoff != cutoffRoot {
			// Entries of other cutoffs are skipped; the scan runs over the
			// whole column family instead of stopping once it has passed
			// cutoffRoot's prefix range. A real pebble CFHandle would use a
			// bounded prefix iterator, but correctness here doesn't depend
			// on stopping early.
			return true
		}
		var node common.Hash
		copy(node[:], key[common.HashLength:common.HashLength*2])
		return fn(node)
	})
	if err != nil {
		return err
	}
	return outerErr
}

// DistinctCutoffRoots returns every cutoff root with at least one
// stale-index entry still recorded against it, in whatever order the
// underlying KVHandle iterates keys.
func (s *StaleIndex) DistinctCutoffRoots() ([]common.Hash, error) {
	seen := make(map[common.Hash]struct{})
	var roots []common.Hash
	err := s.kv.Iterate(func(key, _ []byte) bool {
		if len(key) < common.HashLength*2 {
			return true
		}
		var cutoff common.Hash
		copy(cutoff[:], key[:common.HashLength])
		if _, ok := seen[cutoff]; !ok {
			seen[cutoff] = struct{}{}
			roots = append(roots, cutoff)
		}
		return true
	})
	return roots, err
}

// ForAll calls fn for every stale-index entry across every cutoff root
// (the incremental sweeper's feed), stopping early if fn returns false.
func (s *StaleIndex) ForAll(fn func(cutoffRoot, nodeHash common.Hash) bool) error {
	var outerErr error
	err := s.kv.Iterate(func(key, _ []byte) bool {
		if len(key) < common.HashLength*2 {
			outerErr = errtag.New(errtag.Corruption, "gc.StaleIndex.ForAll", errStaleIndexKeyTooShort)
			return false
		}
		var cutoff, node common.Hash
		copy(cutoff[:], key[:common.HashLength])
		copy(node[:], key[common.HashLength:common.HashLength*2])
		return fn(cutoff, node)
	})
	if err != nil {
		return err
	}
	return outerErr
}
