package gc_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/applier"
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
	"github.com/rooch-network/rooch-sub004/smt"
	"github.com/rooch-network/rooch-sub004/store"
)

func buildTestTree(t *testing.T, st smt.NodeStore, n int) common.Hash {
	t.Helper()
	updates := smt.NewUpdateSet()
	for i := 0; i < n; i++ {
		updates.Put(common.Sum256([]byte(fmt.Sprintf("k%d", i))), []byte(fmt.Sprintf("v%d", i)))
	}
	cs, err := smt.PutAll(st, common.PlaceholderHash, updates)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(cs.NewNodes))
	return cs.NewRoot
}

func allReachableHashes(t *testing.T, st smt.NodeStore, root common.Hash) map[common.Hash]bool {
	t.Helper()
	seen := make(map[common.Hash]bool)
	var walk func(h common.Hash)
	walk = func(h common.Hash) {
		if h.IsPlaceholder() || seen[h] {
			return
		}
		seen[h] = true
		node, err := smt.GetNode(st, h)
		require.NoError(t, err)
		switch n := node.(type) {
		case *smt.InternalNode:
			for _, c := range n.Children {
				if c != nil {
					walk(c.Hash)
				}
			}
		}
	}
	walk(root)
	return seen
}

func TestMarkReachableCoversEntireTree(t *testing.T) {
	st := store.NewMemStore()
	root := buildTestTree(t, st, 50)
	want := allReachableHashes(t, st, root)

	marker, err := gc.NewBloom(1000)
	require.NoError(t, err)
	require.NoError(t, gc.MarkReachable(st, marker, []common.Hash{root}, 8, nil))

	for h := range want {
		marked, err := marker.IsMarked(h)
		require.NoError(t, err)
		require.True(t, marked, "hash %s should be marked", h)
	}
}

func TestMarkReachableParallelCoversEntireTree(t *testing.T) {
	st := store.NewMemStore()
	root := buildTestTree(t, st, 200)
	want := allReachableHashes(t, st, root)

	marker := gc.NewAtomicBloom(2000)
	require.NoError(t, gc.MarkReachableParallel(st, marker, []common.Hash{root}, 4))

	for h := range want {
		marked, err := marker.IsMarked(h)
		require.NoError(t, err)
		require.True(t, marked, "hash %s should be marked", h)
	}
}

func TestMarkReachableDescendsIntoNestedObjectState(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	changes.Put(common.Sum256([]byte("parent")), &applier.ObjectChange{
		Op:    applier.OpNew,
		Value: []byte("parent-value"),
		Fields: map[common.Hash]*applier.ObjectChange{
			common.Sum256([]byte("child")): {Op: applier.OpNew, Value: []byte("child-value")},
		},
	})
	result, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 1)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(result.NewNodes))

	raw, err := smt.Get(st, result.NewRoot, common.Sum256([]byte("parent")))
	require.NoError(t, err)
	parent, err := applier.Decode(raw)
	require.NoError(t, err)
	require.False(t, parent.Metadata.StateRoot.IsPlaceholder())

	marker, err := gc.NewBloom(1000)
	require.NoError(t, err)
	require.NoError(t, gc.MarkReachable(st, marker, []common.Hash{result.NewRoot}, 8, nil))

	marked, err := marker.IsMarked(parent.Metadata.StateRoot)
	require.NoError(t, err)
	require.True(t, marked, "nested state_root must be marked reachable")
}
