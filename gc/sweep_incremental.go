package gc

import (
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
)

// SweepIncremental is the steady-state GC loop, run after
// BuildReach/SweepExpired complete at least once. For every
// stale-index entry: decrement refcount, and if it reached zero and the
// node isn't in the live marker, delete it (recycle bin + node + refcount
// + stale-index, same as the expired sweeper). shouldStop is polled every
// batchSize candidates (every candidate if batchSize <= 0), so a large
// batchSize trades cancellation latency for fewer calls into a shouldStop
// that may itself take a lock or hit storage.
func SweepIncremental(
	ns smt.NodeStore,
	refcount *Refcount,
	staleIndex *StaleIndex,
	recycleBin *RecycleBin,
	liveMarker Marker,
	batchSize int,
	strongBackup bool,
	now int64,
	shouldStop func() bool,
) (*SweepResult, error) {
	result := &SweepResult{}
	visited := 0

	var walkErr error
	err := staleIndex.ForAll(func(cutoffRoot, nodeHash common.Hash) bool {
		visited++
		if shouldStop != nil && (batchSize <= 0 || visited%batchSize == 0) && shouldStop() {
			return false
		}

		remaining, err := refcount.Decr(nodeHash, 1)
		if err != nil {
			if isRefcountAlreadyZero(err) {
				remaining = 0
			} else {
				walkErr = err
				return false
			}
		}

		if remaining > 0 {
			result.Skipped++
			if err := staleIndex.Unmark(cutoffRoot, nodeHash); err != nil {
				walkErr = err
				return false
			}
			return true
		}

		marked, err := liveMarker.IsMarked(nodeHash)
		if err != nil {
			walkErr = err
			return false
		}
		if marked {
			result.Skipped++
			if err := staleIndex.Unmark(cutoffRoot, nodeHash); err != nil {
				walkErr = err
				return false
			}
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
