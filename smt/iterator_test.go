package smt_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
	"github.com/rooch-network/rooch-sub004/store"
)

func TestListReturnsAllKeysInAscendingOrder(t *testing.T) {
	st := store.NewMemStore()
	kvs := map[string]string{}
	for i := 0; i < 60; i++ {
		kvs[fmt.Sprintf("entry-%d", i)] = fmt.Sprintf("val-%d", i)
	}
	root, _ := putAll(t, st, common.PlaceholderHash, kvs)

	got, err := smt.List(st, root, nil, len(kvs)+10)
	require.NoError(t, err)
	require.Len(t, got, len(kvs))

	want := make([]common.Hash, 0, len(kvs))
	for k := range kvs {
		want = append(want, key(k))
	}
	sort.Slice(want, func(i, j int) bool { return want[i].Less(want[j]) })

	for i, kv := range got {
		require.Equal(t, want[i], kv.Key)
		require.Equal(t, kvs[reverseLookup(kvs, want[i])], string(kv.Value))
	}
	for i := 1; i < len(got); i++ {
		require.True(t, got[i-1].Key.Less(got[i].Key))
	}
}

func TestListRespectsLimit(t *testing.T) {
	st := store.NewMemStore()
	kvs := map[string]string{}
	for i := 0; i < 30; i++ {
		kvs[fmt.Sprintf("entry-%d", i)] = fmt.Sprintf("val-%d", i)
	}
	root, _ := putAll(t, st, common.PlaceholderHash, kvs)

	got, err := smt.List(st, root, nil, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

// TestListStartKeyMatchesFullScan exercises the iterator's lower-bound
// filtering against a full scan, using existing keys at the first,
// quarter, middle and last positions of the full scan as start keys.
func TestListStartKeyMatchesFullScan(t *testing.T) {
	st := store.NewMemStore()
	kvs := map[string]string{}
	for i := 0; i < 80; i++ {
		kvs[fmt.Sprintf("item-%d", i)] = fmt.Sprintf("val-%d", i)
	}
	root, _ := putAll(t, st, common.PlaceholderHash, kvs)

	full, err := smt.List(st, root, nil, len(kvs))
	require.NoError(t, err)
	require.Len(t, full, len(kvs))

	for _, probe := range []int{0, len(full) / 4, len(full) / 2, len(full) - 1} {
		start := full[probe].Key
		got, err := smt.List(st, root, &start, len(kvs))
		require.NoError(t, err)
		require.Equal(t, full[probe:], got, "mismatch starting at index %d", probe)
	}
}

func TestListEmptyTree(t *testing.T) {
	st := store.NewMemStore()
	got, err := smt.List(st, common.PlaceholderHash, nil, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func reverseLookup(m map[string]string, h common.Hash) string {
	for k := range m {
		if key(k) == h {
			return k
		}
	}
	return ""
}
