package smt

import "github.com/rooch-network/rooch-sub004/common"

// ChangeSet is the result of PutAll: the new root, every newly created
// node, and every node the update made unreachable.
type ChangeSet struct {
	NewRoot    common.Hash
	NewNodes   map[common.Hash][]byte
	StaleNodes map[common.Hash]struct{}
}

// subtractStale computes replaced \ newNodes, the mandatory set-difference
// pass: a hash present in new_nodes must never be placed into
// stale_nodes. This is the single choke point that guards the
// canonical stale-index bug, so it is implemented once and called from
// nowhere else.
func subtractStale(replaced map[common.Hash]struct{}, newNodes map[common.Hash][]byte) map[common.Hash]struct{} {
	stale := make(map[common.Hash]struct{}, len(replaced))
	for h := range replaced {
		if _, isNew := newNodes[h]; isNew {
			continue
		}
		stale[h] = struct{}{}
	}
	return stale
}
