package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
)

func TestStaleIndexForCutoffOnlyYieldsThatCutoff(t *testing.T) {
	idx := gc.NewStaleIndex(newMemKV())
	cutoffA := common.Sum256([]byte("cutoff-a"))
	cutoffB := common.Sum256([]byte("cutoff-b"))
	n1 := common.Sum256([]byte("n1"))
	n2 := common.Sum256([]byte("n2"))
	n3 := common.Sum256([]byte("n3"))

	require.NoError(t, idx.Mark(cutoffA, n1))
	require.NoError(t, idx.Mark(cutoffA, n2))
	require.NoError(t, idx.Mark(cutoffB, n3))

	var gotA []common.Hash
	require.NoError(t, idx.ForCutoff(cutoffA, func(h common.Hash) bool {
		gotA = append(gotA, h)
		return true
	}))
	require.ElementsMatch(t, []common.Hash{n1, n2}, gotA)

	var gotB []common.Hash
	require.NoError(t, idx.ForCutoff(cutoffB, func(h common.Hash) bool {
		gotB = append(gotB, h)
		return true
	}))
	require.Equal(t, []common.Hash{n3}, gotB)
}

func TestStaleIndexUnmark(t *testing.T) {
	idx := gc.NewStaleIndex(newMemKV())
	cutoff := common.Sum256([]byte("cutoff"))
	node := common.Sum256([]byte("node"))
	require.NoError(t, idx.Mark(cutoff, node))
	require.NoError(t, idx.Unmark(cutoff, node))

	var got []common.Hash
	require.NoError(t, idx.ForCutoff(cutoff, func(h common.Hash) bool {
		got = append(got, h)
		return true
	}))
	require.Empty(t, got)
}

func TestStaleIndexForAllCoversEveryCutoff(t *testing.T) {
	idx := gc.NewStaleIndex(newMemKV())
	cutoffA := common.Sum256([]byte("cutoff-a"))
	cutoffB := common.Sum256([]byte("cutoff-b"))
	n1 := common.Sum256([]byte("n1"))
	n2 := common.Sum256([]byte("n2"))
	require.NoError(t, idx.Mark(cutoffA, n1))
	require.NoError(t, idx.Mark(cutoffB, n2))

	count := 0
	require.NoError(t, idx.ForAll(func(_, _ common.Hash) bool {
		count++
		return true
	}))
	require.Equal(t, 2, count)
}
