package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
	"github.com/rooch-network/rooch-sub004/smt"
	"github.com/rooch-network/rooch-sub004/store"
)

// singleRootHistory is a TxHistory with exactly one committed root, so
// CollectProtectedRoots always returns {root} regardless of N.
type singleRootHistory struct {
	root common.Hash
}

func (h singleRootHistory) LastTxOrder() (uint64, error) { return 0, nil }

func (h singleRootHistory) ExecutionInfo(order uint64) (*gc.ExecutionInfo, error) {
	if order != 0 {
		return nil, nil
	}
	return &gc.ExecutionInfo{StateRoot: h.root}, nil
}

func TestRunCycleWalksPendingToIncrementalAndDeletesUnreachableStale(t *testing.T) {
	st := store.NewMemStore()
	refcount := gc.NewRefcount(newMemKV())
	staleIndex := gc.NewStaleIndex(newMemKV())
	recycleBin := gc.NewRecycleBin(newMemKV())
	phases := gc.NewPhaseStore(newMemKV())
	marker, err := gc.NewBloom(1000)
	require.NoError(t, err)

	u1 := smt.NewUpdateSet()
	u1.Put(common.Sum256([]byte("a")), []byte("1"))
	cs1, err := smt.PutAll(st, common.PlaceholderHash, u1)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(cs1.NewNodes))
	primeStaleIndexFromChangeSet(t, refcount, staleIndex, common.PlaceholderHash, cs1)

	u2 := smt.NewUpdateSet()
	u2.Put(common.Sum256([]byte("a")), []byte("2"))
	cs2, err := smt.PutAll(st, cs1.NewRoot, u2)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(cs2.NewNodes))
	primeStaleIndexFromChangeSet(t, refcount, staleIndex, cs1.NewRoot, cs2)

	cfg := gc.RunConfig{
		Store:        st,
		Phases:       phases,
		Refcount:     refcount,
		StaleIndex:   staleIndex,
		RecycleBin:   recycleBin,
		Marker:       marker,
		History:      singleRootHistory{root: cs2.NewRoot},
		Network:      gc.NetworkLocal,
		MarkBatch:    0,
		MarkWorkers:  1,
		SweepBatch:   0,
		StrongBackup: false,
		Now:          1000,
	}

	result, err := gc.RunCycle(cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Equal(t, 1, result.ProtectedLen)
	require.Equal(t, 1, result.Swept.Deleted)

	phase, err := phases.Load()
	require.NoError(t, err)
	require.Equal(t, gc.PhaseIncremental, phase)

	value, err := smt.Get(st, cs2.NewRoot, common.Sum256([]byte("a")))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)
}

func TestRunCycleResumesFromIncrementalOnSubsequentCalls(t *testing.T) {
	st := store.NewMemStore()
	refcount := gc.NewRefcount(newMemKV())
	staleIndex := gc.NewStaleIndex(newMemKV())
	recycleBin := gc.NewRecycleBin(newMemKV())
	phases := gc.NewPhaseStore(newMemKV())
	marker, err := gc.NewBloom(1000)
	require.NoError(t, err)

	u1 := smt.NewUpdateSet()
	u1.Put(common.Sum256([]byte("a")), []byte("1"))
	cs1, err := smt.PutAll(st, common.PlaceholderHash, u1)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(cs1.NewNodes))

	cfg := gc.RunConfig{
		Store:      st,
		Phases:     phases,
		Refcount:   refcount,
		StaleIndex: staleIndex,
		RecycleBin: recycleBin,
		Marker:     marker,
		History:    singleRootHistory{root: cs1.NewRoot},
		Network:    gc.NetworkLocal,
		Now:        1,
	}
	_, err = gc.RunCycle(cfg, nil)
	require.NoError(t, err)

	phase, err := phases.Load()
	require.NoError(t, err)
	require.Equal(t, gc.PhaseIncremental, phase)

	result, err := gc.RunCycle(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.ProtectedLen)
}
