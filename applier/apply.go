package applier

import (
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/smt"
)

// Result is the outcome of Apply: the new top-level root plus the flat,
// merged node batch every touched subtree contributed, and the net
// change in top-level leaf count (for the startup_info size counter).
type Result struct {
	NewRoot    common.Hash
	NewNodes   map[common.Hash][]byte
	StaleNodes map[common.Hash]struct{}
	LeafDelta  int64
}

// merger accumulates NewNodes/StaleNodes across every subtree PutAll call
// made during one Apply, matching the MergedNodeSet pattern of merging
// per-level dirty-node sets into a single flat set before commit.
type merger struct {
	newNodes   map[common.Hash][]byte
	staleNodes map[common.Hash]struct{}
}

func newMerger() *merger {
	return &merger{
		newNodes:   make(map[common.Hash][]byte),
		staleNodes: make(map[common.Hash]struct{}),
	}
}

func (m *merger) absorb(cs *smt.ChangeSet) {
	for h, blob := range cs.NewNodes {
		m.newNodes[h] = blob
	}
	for h := range cs.StaleNodes {
		m.staleNodes[h] = struct{}{}
	}
}

// finalize re-applies the stale-index contract across the
// merged set: a hash that is new at one level of this change set and
// stale at another (e.g. an object's field subtree recreates a node that
// a sibling subtree also just retired) must never end up in both.
func (m *merger) finalize() map[common.Hash]struct{} {
	out := make(map[common.Hash]struct{}, len(m.staleNodes))
	for h := range m.staleNodes {
		if _, isNew := m.newNodes[h]; isNew {
			continue
		}
		out[h] = struct{}{}
	}
	return out
}

// Apply translates changes into one kernel.PutAll call per touched
// subtree and merges their node batches into one flat Result. now is
// the commit timestamp (unix seconds) stamped onto touched objects'
// updated_at (and created_at, for New).
func Apply(store smt.NodeStore, resolver StateResolver, priorRoot common.Hash, changes *ObjectChangeSet, now int64) (*Result, error) {
	m := newMerger()
	newRoot, delta, err := applyLevel(store, resolver, priorRoot, changes.Changes, now, m)
	if err != nil {
		return nil, err
	}
	return &Result{
		NewRoot:    newRoot,
		NewNodes:   m.newNodes,
		StaleNodes: m.finalize(),
		LeafDelta:  delta,
	}, nil
}

// applyLevel handles one SMT level: resolve each changed field's new
// ObjectState (recursing into its own field tree first), build the
// level's UpdateSet, and run it through the kernel.
func applyLevel(store smt.NodeStore, resolver StateResolver, priorRoot common.Hash, changes map[common.Hash]*ObjectChange, now int64, m *merger) (common.Hash, int64, error) {
	updates := smt.NewUpdateSet()
	var delta int64

	for key, change := range changes {
		if change.Op == OpDelete {
			updates.Remove(key)
			delta--
			continue
		}

		var prior *ObjectState
		if change.Op == OpModify {
			resolved, err := resolver.ResolveObject(priorRoot, key)
			if err != nil {
				return common.Hash{}, 0, err
			}
			prior = resolved
		} else {
			delta++
		}

		obj, err := buildObject(store, resolver, key, change, prior, now, m)
		if err != nil {
			return common.Hash{}, 0, err
		}
		updates.Put(key, Encode(obj))
	}

	cs, err := smt.PutAll(store, priorRoot, updates)
	if err != nil {
		return common.Hash{}, 0, err
	}
	m.absorb(cs)
	return cs.NewRoot, delta, nil
}

// buildObject resolves one object's new state: recurse into its nested
// field changes against its prior state_root, then stamp the resulting
// root and metadata overrides onto the object.
func buildObject(store smt.NodeStore, resolver StateResolver, key common.Hash, change *ObjectChange, prior *ObjectState, now int64, m *merger) (*ObjectState, error) {
	var priorFieldRoot common.Hash = common.PlaceholderHash
	var obj ObjectState
	switch {
	case prior != nil:
		obj = *prior
		priorFieldRoot = prior.Metadata.StateRoot
	case change.Op == OpModify:
		return nil, errtag.New(errtag.Precondition, "applier.buildObject", errMissingPriorState)
	default:
		obj.Metadata.ID = key
		obj.Metadata.CreatedAt = now
	}

	if len(change.Fields) > 0 {
		newFieldRoot, _, err := applyLevel(store, resolver, priorFieldRoot, change.Fields, now, m)
		if err != nil {
			return nil, err
		}
		obj.Metadata.StateRoot = newFieldRoot
	} else if prior == nil {
		obj.Metadata.StateRoot = common.PlaceholderHash
	}

	if change.Owner != nil {
		obj.Metadata.Owner = *change.Owner
	}
	if change.Flag != nil {
		obj.Metadata.Flag = *change.Flag
	}
	if change.ObjectType != nil {
		obj.Metadata.ObjectType = *change.ObjectType
	}
	if change.Value != nil {
		obj.Value = change.Value
	}
	obj.Metadata.Size = uint64(len(obj.Value))
	obj.Metadata.UpdatedAt = now
	return &obj, nil
}
