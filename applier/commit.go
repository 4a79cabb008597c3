package applier

import (
	"encoding/binary"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/store"
)

var startupInfoKey = []byte("startup_info")

// RefcountTracker is the node-refcount bookkeeping Commit needs: given a
// hash and a delta, compute the node's updated refcount and return the
// CFWrite that records it, without performing the write itself, so
// Commit can fold it into its own atomic batch. gc.Refcount satisfies
// this via its IncrWrite method.
type RefcountTracker interface {
	IncrWrite(hash common.Hash, delta uint32) (store.CFWrite, error)
}

// StaleIndexTracker is the stale-index bookkeeping Commit needs: given
// the root a node became unreachable under and the node's hash, return
// the CFWrite that records the stale-index entry. gc.StaleIndex
// satisfies this via its MarkWrite method.
type StaleIndexTracker interface {
	MarkWrite(cutoffRoot, nodeHash common.Hash) store.CFWrite
}

// Commit writes a Result's node batch, the startup_info update
// (state_root, size), a refcount increment for every node the commit
// created, and a stale-index entry for every node it retired — all in
// one atomic multi-CF batch, so a crash anywhere in the sequence is
// impossible to observe. priorRoot is the root being superseded by
// result.NewRoot, used as the stale-index entries' cutoff key.
func Commit(db *store.PebbleStore, refcount RefcountTracker, staleIndex StaleIndexTracker, priorRoot common.Hash, result *Result, priorSize uint64) error {
	newSize := priorSize
	if result.LeafDelta >= 0 {
		newSize += uint64(result.LeafDelta)
	} else if d := uint64(-result.LeafDelta); d > newSize {
		return errtag.New(errtag.Precondition, "applier.Commit", errLeafCountUnderflow)
	} else {
		newSize -= d
	}

	writes := make([]store.CFWrite, 0, len(result.NewNodes)*2+len(result.StaleNodes)+1)
	for h, blob := range result.NewNodes {
		writes = append(writes, store.CFWrite{Family: store.CFStateNode, Key: h.Bytes(), Value: blob})
		rcWrite, err := refcount.IncrWrite(h, 1)
		if err != nil {
			return err
		}
		writes = append(writes, rcWrite)
	}
	for h := range result.StaleNodes {
		writes = append(writes, staleIndex.MarkWrite(priorRoot, h))
	}
	writes = append(writes, store.CFWrite{
		Family: store.CFStartupInfo,
		Key:    startupInfoKey,
		Value:  EncodeStartupInfo(result.NewRoot, newSize),
	})

	return db.AtomicMultiCF(writes)
}

// StartupInfoKey is the singleton key the startup_info column family is
// addressed by.
func StartupInfoKey() []byte { return startupInfoKey }

// EncodeStartupInfo serializes the (state_root, size) pair Commit and
// state import both write to the startup_info column family.
func EncodeStartupInfo(root common.Hash, size uint64) []byte {
	buf := make([]byte, common.HashLength+binary.MaxVarintLen64)
	copy(buf, root[:])
	n := binary.PutUvarint(buf[common.HashLength:], size)
	return buf[:common.HashLength+n]
}

// DecodeStartupInfo parses the bytes Commit wrote to the startup_info CF.
func DecodeStartupInfo(buf []byte) (root common.Hash, size uint64, err error) {
	if len(buf) < common.HashLength {
		return common.Hash{}, 0, errtag.New(errtag.Corruption, "applier.DecodeStartupInfo", errShortStartupInfo)
	}
	copy(root[:], buf[:common.HashLength])
	size, n := binary.Uvarint(buf[common.HashLength:])
	if n <= 0 {
		return common.Hash{}, 0, errtag.New(errtag.Corruption, "applier.DecodeStartupInfo", errShortStartupInfo)
	}
	return root, size, nil
}
