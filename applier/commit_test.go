package applier_test

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/applier"
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
	"github.com/rooch-network/rooch-sub004/store"
)

// openMemPebble opens a PebbleStore backed by an in-memory filesystem, so
// Commit's atomic multi-CF batch can be exercised against the real
// column-family layout without touching disk.
func openMemPebble(t *testing.T) *store.PebbleStore {
	t.Helper()
	db, err := store.OpenPebbleWithOptions("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func TestCommitWritesRefcountsAndStartupInfo(t *testing.T) {
	db := openMemPebble(t)
	refcount := gc.NewRefcount(db.ColumnFamily(store.CFRefcount))
	staleIndex := gc.NewStaleIndex(db.ColumnFamily(store.CFStaleIndex))
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	changes.Put(fieldKey("obj-1"), &applier.ObjectChange{Op: applier.OpNew, Value: []byte("v1")})
	result, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.NewNodes)
	require.Empty(t, result.StaleNodes)

	require.NoError(t, applier.Commit(db, refcount, staleIndex, common.PlaceholderHash, result, 0))

	for h := range result.NewNodes {
		count, err := refcount.Get(h)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	}

	raw, err := db.ColumnFamily(store.CFStartupInfo).Get(applier.StartupInfoKey())
	require.NoError(t, err)
	root, size, err := applier.DecodeStartupInfo(raw)
	require.NoError(t, err)
	require.Equal(t, result.NewRoot, root)
	require.EqualValues(t, 1, size)
}

func TestCommitMarksStaleNodesAgainstPriorRoot(t *testing.T) {
	db := openMemPebble(t)
	refcount := gc.NewRefcount(db.ColumnFamily(store.CFRefcount))
	staleIndex := gc.NewStaleIndex(db.ColumnFamily(store.CFStaleIndex))
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	first := applier.NewObjectChangeSet()
	first.Put(fieldKey("obj-1"), &applier.ObjectChange{Op: applier.OpNew, Value: []byte("v1")})
	firstResult, err := applier.Apply(st, resolver, common.PlaceholderHash, first, 0)
	require.NoError(t, err)
	require.NoError(t, applier.Commit(db, refcount, staleIndex, common.PlaceholderHash, firstResult, 0))
	require.NoError(t, st.WriteBatch(firstResult.NewNodes))

	second := applier.NewObjectChangeSet()
	second.Put(fieldKey("obj-1"), &applier.ObjectChange{Op: applier.OpModify, Value: []byte("v2")})
	secondResult, err := applier.Apply(st, resolver, firstResult.NewRoot, second, 1)
	require.NoError(t, err)
	require.NotEmpty(t, secondResult.StaleNodes)

	require.NoError(t, applier.Commit(db, refcount, staleIndex, firstResult.NewRoot, secondResult, 1))

	var marked []common.Hash
	require.NoError(t, staleIndex.ForCutoff(firstResult.NewRoot, func(nodeHash common.Hash) bool {
		marked = append(marked, nodeHash)
		return true
	}))
	require.Len(t, marked, len(secondResult.StaleNodes))
	for _, h := range marked {
		_, ok := secondResult.StaleNodes[h]
		require.True(t, ok)
	}
}

func TestCommitRejectsLeafCountUnderflow(t *testing.T) {
	db := openMemPebble(t)
	refcount := gc.NewRefcount(db.ColumnFamily(store.CFRefcount))
	staleIndex := gc.NewStaleIndex(db.ColumnFamily(store.CFStaleIndex))

	result := &applier.Result{NewRoot: common.PlaceholderHash, LeafDelta: -1}
	err := applier.Commit(db, refcount, staleIndex, common.PlaceholderHash, result, 0)
	require.Error(t, err)
}
