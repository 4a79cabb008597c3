package applier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/applier"
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
	"github.com/rooch-network/rooch-sub004/store"
)

func fieldKey(s string) common.Hash { return common.Sum256([]byte(s)) }

func TestApplyNewObjectNoFields(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	owner := fieldKey("owner-a")
	changes.Put(fieldKey("obj-1"), &applier.ObjectChange{
		Op:    applier.OpNew,
		Owner: &owner,
		Value: []byte("payload"),
	})

	result, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 1000)
	require.NoError(t, err)
	require.False(t, result.NewRoot.IsPlaceholder())
	require.EqualValues(t, 1, result.LeafDelta)
	require.NoError(t, st.WriteBatch(result.NewNodes))

	raw, err := smt.Get(st, result.NewRoot, fieldKey("obj-1"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	obj, err := applier.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, owner, obj.Metadata.Owner)
	require.Equal(t, []byte("payload"), obj.Value)
	require.Equal(t, int64(1000), obj.Metadata.CreatedAt)
	require.Equal(t, int64(1000), obj.Metadata.UpdatedAt)
	require.True(t, obj.Metadata.StateRoot.IsPlaceholder())
}

func TestApplyNewObjectWithNestedFields(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	changes.Put(fieldKey("parent"), &applier.ObjectChange{
		Op:    applier.OpNew,
		Value: []byte("parent-payload"),
		Fields: map[common.Hash]*applier.ObjectChange{
			fieldKey("child-1"): {Op: applier.OpNew, Value: []byte("child-1-value")},
			fieldKey("child-2"): {Op: applier.OpNew, Value: []byte("child-2-value")},
		},
	})

	result, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 1)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(result.NewNodes))

	raw, err := smt.Get(st, result.NewRoot, fieldKey("parent"))
	require.NoError(t, err)
	parent, err := applier.Decode(raw)
	require.NoError(t, err)
	require.False(t, parent.Metadata.StateRoot.IsPlaceholder())

	childRaw, err := smt.Get(st, parent.Metadata.StateRoot, fieldKey("child-1"))
	require.NoError(t, err)
	child, err := applier.Decode(childRaw)
	require.NoError(t, err)
	require.Equal(t, []byte("child-1-value"), child.Value)

	// Top-level leaf count reflects only the top-level object, not its
	// nested fields.
	require.EqualValues(t, 1, result.LeafDelta)
}

func TestApplyModifyCarriesForwardValueAndStateRoot(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	flag := uint8(3)
	changes.Put(fieldKey("obj-1"), &applier.ObjectChange{
		Op:    applier.OpNew,
		Value: []byte("original"),
	})
	first, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 10)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(first.NewNodes))

	modify := applier.NewObjectChangeSet()
	modify.Put(fieldKey("obj-1"), &applier.ObjectChange{
		Op:   applier.OpModify,
		Flag: &flag,
	})
	second, err := applier.Apply(st, resolver, first.NewRoot, modify, 20)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(second.NewNodes))
	require.EqualValues(t, 0, second.LeafDelta)

	raw, err := smt.Get(st, second.NewRoot, fieldKey("obj-1"))
	require.NoError(t, err)
	obj, err := applier.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("original"), obj.Value)
	require.Equal(t, uint8(3), obj.Metadata.Flag)
	require.Equal(t, int64(10), obj.Metadata.CreatedAt)
	require.Equal(t, int64(20), obj.Metadata.UpdatedAt)
}

func TestApplyDeleteRemovesObject(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	changes.Put(fieldKey("obj-1"), &applier.ObjectChange{Op: applier.OpNew, Value: []byte("v")})
	first, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 1)
	require.NoError(t, err)
	require.NoError(t, st.WriteBatch(first.NewNodes))

	del := applier.NewObjectChangeSet()
	del.Delete(fieldKey("obj-1"))
	second, err := applier.Apply(st, resolver, first.NewRoot, del, 2)
	require.NoError(t, err)
	require.EqualValues(t, -1, second.LeafDelta)
	require.True(t, second.NewRoot.IsPlaceholder())
}

func TestApplyModifyWithoutPriorStateFails(t *testing.T) {
	st := store.NewMemStore()
	resolver := applier.StoreResolver{Store: st}

	changes := applier.NewObjectChangeSet()
	changes.Put(fieldKey("ghost"), &applier.ObjectChange{Op: applier.OpModify})
	_, err := applier.Apply(st, resolver, common.PlaceholderHash, changes, 1)
	require.Error(t, err)
}
