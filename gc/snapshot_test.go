package gc_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/gc"
	"github.com/rooch-network/rooch-sub004/smt"
	"github.com/rooch-network/rooch-sub004/store"
)

type fakeStartupInfo struct {
	root common.Hash
	size uint64
}

func (f *fakeStartupInfo) Load() (common.Hash, uint64, error) { return f.root, f.size, nil }
func (f *fakeStartupInfo) Store(root common.Hash, size uint64) error {
	f.root, f.size = root, size
	return nil
}

func TestSnapshotThenImportRoundTrips(t *testing.T) {
	src := store.NewMemStore()
	updates := smt.NewUpdateSet()
	for i := 0; i < 20; i++ {
		updates.Put(common.Sum256([]byte(fmt.Sprintf("k%d", i))), []byte(fmt.Sprintf("v%d", i)))
	}
	cs, err := smt.PutAll(src, common.PlaceholderHash, updates)
	require.NoError(t, err)
	require.NoError(t, src.WriteBatch(cs.NewNodes))

	var buf bytes.Buffer
	require.NoError(t, gc.Snapshot(&buf, src, cs.NewRoot, 20, 1700000000))

	dst := store.NewMemStore()
	info := &fakeStartupInfo{root: common.PlaceholderHash, size: 7}
	root, n, err := gc.Import(&buf, dst, info, nil)
	require.NoError(t, err)
	require.Equal(t, cs.NewRoot, root)
	require.Equal(t, len(cs.NewNodes), n)

	// size is preserved from the destination's prior startup_info, not
	// taken from the snapshot's global_size header.
	gotRoot, gotSize, err := info.Load()
	require.NoError(t, err)
	require.Equal(t, cs.NewRoot, gotRoot)
	require.EqualValues(t, 7, gotSize)

	for i := 0; i < 20; i++ {
		value, err := smt.Get(dst, root, common.Sum256([]byte(fmt.Sprintf("k%d", i))))
		require.NoError(t, err)
		require.Equal(t, []byte(fmt.Sprintf("v%d", i)), value)
	}
}

func TestImportRejectsMismatchedExpectedRoot(t *testing.T) {
	src := store.NewMemStore()
	updates := smt.NewUpdateSet()
	updates.Put(common.Sum256([]byte("a")), []byte("1"))
	cs, err := smt.PutAll(src, common.PlaceholderHash, updates)
	require.NoError(t, err)
	require.NoError(t, src.WriteBatch(cs.NewNodes))

	var buf bytes.Buffer
	require.NoError(t, gc.Snapshot(&buf, src, cs.NewRoot, 1, 1700000000))

	dst := store.NewMemStore()
	info := &fakeStartupInfo{}
	wrongRoot := common.Sum256([]byte("not-the-root"))
	_, _, err = gc.Import(&buf, dst, info, &wrongRoot)
	require.Error(t, err)
	// no nodes should have been written since the mismatch is caught
	// before any write_batch call.
	require.EqualValues(t, 0, dst.Len())
}

func TestImportRejectsTruncatedHeader(t *testing.T) {
	dst := store.NewMemStore()
	info := &fakeStartupInfo{}
	_, _, err := gc.Import(bytes.NewBufferString("# mode=nodes\n# root=00\n"), dst, info, nil)
	require.Error(t, err)
}

func TestImportRejectsNodeCountMismatch(t *testing.T) {
	dst := store.NewMemStore()
	info := &fakeStartupInfo{}
	dump := "# mode=nodes\n# root=" + hexHash(common.PlaceholderHash) + "\n# nodes=5\n# created_at=1\n"
	_, _, err := gc.Import(bytes.NewBufferString(dump), dst, info, nil)
	require.Error(t, err)
}

func hexHash(h common.Hash) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range h {
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}
