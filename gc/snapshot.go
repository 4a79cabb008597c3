package gc

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/smt"
)

const snapshotVersion = 1

// Snapshot walks every node reachable from root and writes a
// self-contained text dump: a small header of `# key=value` comment
// lines followed by one `hash_hex:0xnode_bytes_hex` line per node.
// globalSize is written to the header's global_size line as given; it is
// not re-derived from the walk, and Import does not read it back (the
// importer keeps its own startup_info size).
func Snapshot(w io.Writer, ns smt.NodeStore, root common.Hash, globalSize uint64, createdAt int64) error {
	nodes, err := collectReachable(ns, root)
	if err != nil {
		return err
	}

	hashes := make([]common.Hash, 0, len(nodes))
	for h := range nodes {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return hex.EncodeToString(hashes[i][:]) < hex.EncodeToString(hashes[j][:])
	})

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# mode=nodes\n")
	fmt.Fprintf(bw, "# root=%s\n", hex.EncodeToString(root[:]))
	fmt.Fprintf(bw, "# nodes=%d\n", len(hashes))
	fmt.Fprintf(bw, "# global_size=%d\n", globalSize)
	fmt.Fprintf(bw, "# version=%d\n", snapshotVersion)
	fmt.Fprintf(bw, "# created_at=%d\n", createdAt)
	for _, h := range hashes {
		fmt.Fprintf(bw, "%s:0x%s\n", hex.EncodeToString(h[:]), hex.EncodeToString(nodes[h]))
	}
	return bw.Flush()
}

// collectReachable performs a plain reachability DFS (no marker, no
// cutoff bookkeeping) identical in shape to the GC traversal but
// returning the raw bytes instead of just marking hashes — the dump
// needs the payload, reachability marking only needs the address.
func collectReachable(ns smt.NodeStore, root common.Hash) (map[common.Hash][]byte, error) {
	out := make(map[common.Hash][]byte)
	var walk func(h common.Hash) error
	walk = func(h common.Hash) error {
		if h.IsPlaceholder() {
			return nil
		}
		if _, ok := out[h]; ok {
			return nil
		}
		blob, err := ns.Get(h)
		if err != nil {
			return err
		}
		if blob == nil {
			return errtag.New(errtag.Corruption, "gc.Snapshot", fmt.Errorf("missing node %s reachable from root", h))
		}
		out[h] = blob

		node, err := smt.Decode(h, blob)
		if err != nil {
			return err
		}
		switch n := node.(type) {
		case *smt.InternalNode:
			for _, c := range n.Children {
				if c == nil {
					continue
				}
				if err := walk(c.Hash); err != nil {
					return err
				}
			}
		case *smt.LeafNode:
			for _, nested := range seedsFromLeaf(n) {
				if err := walk(nested); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}
