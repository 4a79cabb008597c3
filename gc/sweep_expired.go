package gc

import (
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
)

// NodeDeleter is the node-store slice SweepExpired needs: delete by hash.
// smt.NodeStore satisfies it.
type NodeDeleter interface {
	Get(hash common.Hash) ([]byte, error)
	Delete(hash common.Hash) error
}

// SweepResult reports what one sweep pass did.
type SweepResult struct {
	Deleted int
	Skipped int
}

// SweepExpired runs the one-shot per-root sweep: every stale-index
// entry recorded against cutoffRoot is a delete candidate
// unless the marker proves it's still reachable or the refcount shows
// another cutoff still holds it. strongBackup controls whether deleted
// bytes are staged in the recycle bin first.
func SweepExpired(
	ns smt.NodeStore,
	refcount *Refcount,
	staleIndex *StaleIndex,
	recycleBin *RecycleBin,
	marker Marker,
	cutoffRoot common.Hash,
	batchSize int,
	strongBackup bool,
	now int64,
) (*SweepResult, error) {
	// batchSize has no effect here: deleteNode unmarks each stale-index
	// entry as it goes, so the stale index itself is the resume cursor and
	// there is no separate client-side batch to flush. Kept for signature
	// symmetry with SweepIncremental, which does use it to pace shouldStop
	// polling.
	_ = batchSize
	result := &SweepResult{}

	var walkErr error
	err := staleIndex.ForCutoff(cutoffRoot, func(nodeHash common.Hash) bool {
		marked, err := marker.IsMarked(nodeHash)
		if err != nil {
			walkErr = err
			return false
		}
		if marked {
			result.Skipped++
			return true
		}

		rc, err := refcount.Get(nodeHash)
		if err != nil {
			walkErr = err
			return false
		}
		if rc > 0 {
			result.Skipped++
			return true
		}

		if err := deleteNode(ns, refcount, staleIndex, recycleBin, cutoffRoot, nodeHash, strongBackup, RecycleIncremental, now); err != nil {
			walkErr = err
			return false
		}
		result.Deleted++
		return true
	})
	if err != nil {
		return result, err
	}
	return result, walkErr
}

// deleteNode stages the four-part delete: recycle-bin write (if
// enabled), node delete, refcount delete, stale-index delete. Unlike
// applier.Commit's writes, these don't share one atomic batch — the
// underlying KVHandle/NodeStore interfaces don't expose a cross-family
// batch at this abstraction level (that lives in
// store.PebbleStore.AtomicMultiCF for the production backend, one level
// down). The four calls are issued in an order that is always safe to
// re-run to completion if interrupted: the recycle-bin write and the
// stale-index delete are both idempotent, and the node/refcount deletes
// are no-ops on an already-deleted key.
func deleteNode(
	ns smt.NodeStore,
	refcount *Refcount,
	staleIndex *StaleIndex,
	recycleBin *RecycleBin,
	cutoffRoot, nodeHash common.Hash,
	strongBackup bool,
	phase RecyclePhase,
	now int64,
) error {
	if strongBackup && recycleBin != nil {
		blob, err := ns.Get(nodeHash)
		if err != nil {
			return err
		}
		if blob != nil {
			rec := &RecycleRecord{
				Bytes:          blob,
				Phase:          phase,
				OriginalCutoff: cutoffRoot,
				CreatedAt:      now,
				DeletedAt:      now,
				OriginalSize:   uint64(len(blob)),
			}
			if err := recycleBin.Put(nodeHash, rec); err != nil {
				return err
			}
		}
	}
	if err := ns.Delete(nodeHash); err != nil {
		return err
	}
	if err := refcount.Clear(nodeHash); err != nil {
		return err
	}
	return staleIndex.Unmark(cutoffRoot, nodeHash)
}
