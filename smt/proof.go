package smt

import (
	"github.com/rooch-network/rooch-sub004/common"
)

// SiblingSet captures one Internal level crossed on the path from root to
// leaf: every child hash at that level (so the verifier can recompute the
// level's hash) plus which nibble was followed.
type SiblingSet struct {
	Nibble      byte
	Children    [NumChildren]common.Hash
	ChildIsLeaf [NumChildren]bool
}

// LeafWitness is the terminal leaf encountered by a proof walk — either the
// queried key itself (inclusion) or a different key that shares the probed
// prefix (non-inclusion by key conflict, as opposed to non-inclusion by a
// simply-absent child).
type LeafWitness struct {
	Key       common.Hash
	ValueHash common.Hash
}

// MerkleProof is the sibling-hash chain needed to recompute a root from
// a (key, value) pair.
type MerkleProof struct {
	Siblings []SiblingSet
	Leaf     *LeafWitness
}

// GetWithProof returns the value at key under root (nil if absent) along
// with the proof of that fact.
func GetWithProof(store NodeStore, root common.Hash, key common.Hash) ([]byte, MerkleProof, error) {
	var proof MerkleProof
	hash := root
	depth := 0
	for {
		node, err := GetNode(store, hash)
		if err != nil {
			return nil, proof, err
		}
		switch n := node.(type) {
		case NullNode:
			return nil, proof, nil
		case *LeafNode:
			proof.Leaf = &LeafWitness{Key: n.Key, ValueHash: n.ValueHash}
			if n.Key == key {
				return n.ValueBytes, proof, nil
			}
			return nil, proof, nil
		case *InternalNode:
			nib := common.Nibble(key, depth)
			set := SiblingSet{Nibble: nib}
			for i, c := range n.Children {
				if c == nil {
					set.Children[i] = common.PlaceholderHash
				} else {
					set.Children[i] = c.Hash
					set.ChildIsLeaf[i] = c.IsLeaf
				}
			}
			proof.Siblings = append(proof.Siblings, set)
			hash = set.Children[nib]
			depth++
		default:
			return nil, proof, corruptionMissingNode(hash)
		}
	}
}

// Get returns the value at key under root, or nil if absent.
func Get(store NodeStore, root common.Hash, key common.Hash) ([]byte, error) {
	value, _, err := GetWithProof(store, root, key)
	return value, err
}

// VerifyProof recomputes root from (key, value, proof). value == nil
// asserts non-inclusion.
func VerifyProof(root common.Hash, key common.Hash, value []byte, proof MerkleProof) bool {
	var current common.Hash
	switch {
	case value != nil:
		current = NewLeaf(key, value).Hash()
	case proof.Leaf != nil:
		if proof.Leaf.Key == key {
			return false // a "conflicting" witness can't equal the query key
		}
		current = common.Sum256([]byte{leafTag}, proof.Leaf.Key[:], proof.Leaf.ValueHash[:])
	default:
		current = common.PlaceholderHash
	}

	for i := len(proof.Siblings) - 1; i >= 0; i-- {
		step := proof.Siblings[i]
		if step.Children[step.Nibble] != current {
			return false
		}
		buf := make([]byte, 0, 1+NumChildren*HashLength)
		buf = append(buf, internalTag)
		for _, c := range step.Children {
			buf = append(buf, c[:]...)
		}
		current = common.Sum256(buf)
	}
	return current == root
}
