package applier

import (
	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/smt"
)

// StateResolver looks up the pre-state ObjectState for a field under a
// given root. The applier calls it for every Modify, with or without a
// new Value, to carry forward the stored payload, metadata and
// prior_state_root; New and Delete never call it.
type StateResolver interface {
	ResolveObject(root common.Hash, key common.Hash) (*ObjectState, error)
}

// StoreResolver is the default StateResolver: it reads the pre-state
// object straight out of the SMT node store, the shape every real caller
// needs since the "pre-state" is nothing but a prior commit of this same
// tree.
type StoreResolver struct {
	Store smt.NodeStore
}

func (r StoreResolver) ResolveObject(root common.Hash, key common.Hash) (*ObjectState, error) {
	raw, err := smt.Get(r.Store, root, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return Decode(raw)
}
