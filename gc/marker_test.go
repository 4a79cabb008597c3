package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
)

func TestBloomMarkReportsNewOnce(t *testing.T) {
	b, err := gc.NewBloom(1000)
	require.NoError(t, err)
	h := common.Sum256([]byte("a"))

	wasNew, err := b.Mark(h)
	require.NoError(t, err)
	require.True(t, wasNew)

	wasNew, err = b.Mark(h)
	require.NoError(t, err)
	require.False(t, wasNew)

	marked, err := b.IsMarked(h)
	require.NoError(t, err)
	require.True(t, marked)
}

func TestBloomUnmarkedIsNotMarked(t *testing.T) {
	b, err := gc.NewBloom(1000)
	require.NoError(t, err)
	marked, err := b.IsMarked(common.Sum256([]byte("never-marked")))
	require.NoError(t, err)
	require.False(t, marked)
}

// TestBloomSaturationTolerance checks that pre-saturating the filter
// with unrelated hashes never causes a false negative for hashes
// actually marked.
func TestBloomSaturationTolerance(t *testing.T) {
	b, err := gc.NewBloom(100)
	require.NoError(t, err)
	for i := 0; i < 100000; i++ {
		_, err := b.Mark(common.Sum256([]byte{byte(i), byte(i >> 8), byte(i >> 16)}))
		require.NoError(t, err)
	}

	real := common.Sum256([]byte("the-real-one"))
	_, err = b.Mark(real)
	require.NoError(t, err)
	marked, err := b.IsMarked(real)
	require.NoError(t, err)
	require.True(t, marked)
}

func TestAtomicBloomMarkReportsNewOnce(t *testing.T) {
	b := gc.NewAtomicBloom(1000)
	h := common.Sum256([]byte("a"))

	wasNew, err := b.Mark(h)
	require.NoError(t, err)
	require.True(t, wasNew)

	wasNew, err = b.Mark(h)
	require.NoError(t, err)
	require.False(t, wasNew)
}

func TestAtomicBloomReset(t *testing.T) {
	b := gc.NewAtomicBloom(1000)
	h := common.Sum256([]byte("a"))
	_, err := b.Mark(h)
	require.NoError(t, err)
	require.NoError(t, b.Reset())
	require.EqualValues(t, 0, b.Count())
}

func TestBloomBytesRoundTripsMarkedState(t *testing.T) {
	b, err := gc.NewBloom(1000)
	require.NoError(t, err)
	marked := common.Sum256([]byte("marked"))
	_, err = b.Mark(marked)
	require.NoError(t, err)

	snapshot, err := b.Bytes()
	require.NoError(t, err)
	require.NotEmpty(t, snapshot)

	restored, err := gc.NewBloom(1000)
	require.NoError(t, err)
	require.NoError(t, restored.LoadBytes(snapshot))

	ok, err := restored.IsMarked(marked)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, b.Count(), restored.Count())

	unrelated, err := restored.IsMarked(common.Sum256([]byte("never-marked")))
	require.NoError(t, err)
	require.False(t, unrelated)
}

func TestAtomicBloomBytesRoundTripsMarkedState(t *testing.T) {
	b := gc.NewAtomicBloom(1000)
	marked := common.Sum256([]byte("marked"))
	_, err := b.Mark(marked)
	require.NoError(t, err)

	snapshot, err := b.Bytes()
	require.NoError(t, err)

	restored := gc.NewAtomicBloom(1000)
	require.NoError(t, restored.LoadBytes(snapshot))

	ok, err := restored.IsMarked(marked)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, b.Count(), restored.Count())
}
