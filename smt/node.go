// Package smt implements the content-addressed Sparse Merkle Tree kernel:
// node encoding, hashing, and the put_all batch-update algorithm. It is
// the adapted, 16-ary-only descendant of a hex-Patricia trie
// (trie.go, trie_node.go, trie_committer.go) — path compression
// (shortNode/extension nodes) is dropped since this tree's node set is
// exactly {Null, Leaf, Internal}.
package smt

import (
	"fmt"

	"github.com/rooch-network/rooch-sub004/common"
)

// NumChildren is the branching factor of an Internal node: one per nibble.
const NumChildren = 16

// Node is the tagged sum of node kinds. It is a closed set — the three
// concrete types below are the only implementations.
type Node interface {
	// Hash returns the node's content hash, computed by the per-kind
	// formulas on LeafNode and InternalNode (not a digest of Encode's
	// bytes). For Null it is always common.PlaceholderHash.
	Hash() common.Hash
	isNode()
}

// NullNode is the singleton representing an empty subtree.
type NullNode struct{}

func (NullNode) Hash() common.Hash { return common.PlaceholderHash }
func (NullNode) isNode()           {}

// Null is the shared instance of NullNode.
var Null Node = NullNode{}

// LeafNode is a terminal node: hash = H(LEAF_TAG ‖ key ‖ value_hash).
type LeafNode struct {
	Key        common.Hash
	ValueHash  common.Hash
	ValueBytes []byte

	cachedHash *common.Hash
}

func (n *LeafNode) isNode() {}

func (n *LeafNode) Hash() common.Hash {
	if n.cachedHash != nil {
		return *n.cachedHash
	}
	h := common.Sum256([]byte{leafTag}, n.Key[:], n.ValueHash[:])
	n.cachedHash = &h
	return h
}

// NewLeaf builds a leaf node from a key and raw value bytes, hashing the
// value and copying it so the caller's slice can be reused afterwards:
// value_bytes are copied into the node at creation.
func NewLeaf(key common.Hash, value []byte) *LeafNode {
	cp := make([]byte, len(value))
	copy(cp, value)
	return &LeafNode{
		Key:        key,
		ValueHash:  common.Sum256(cp),
		ValueBytes: cp,
	}
}

// Child is one slot of an Internal node: a child hash plus whether that
// child is itself a leaf (needed to decode without a second store round
// trip; Encode records it in each slot's presence byte).
type Child struct {
	Hash   common.Hash
	IsLeaf bool
}

// InternalNode is a 4-bit radix node with up to 16 children.
type InternalNode struct {
	Children [NumChildren]*Child

	cachedHash *common.Hash
}

func (n *InternalNode) isNode() {}

func (n *InternalNode) Hash() common.Hash {
	if n.cachedHash != nil {
		return *n.cachedHash
	}
	buf := make([]byte, 0, 1+NumChildren*HashLength)
	buf = append(buf, internalTag)
	for _, c := range n.Children {
		if c == nil {
			buf = append(buf, common.PlaceholderHash[:]...)
			continue
		}
		buf = append(buf, c.Hash[:]...)
	}
	h := common.Sum256(buf)
	n.cachedHash = &h
	return h
}

const HashLength = common.HashLength

const (
	leafTag     byte = 0x01
	internalTag byte = 0x02
)

// childCount returns how many non-nil children an internal node has, and
// the index of the sole child when there is exactly one (-1 otherwise).
func (n *InternalNode) childCount() (count int, soleIndex int) {
	soleIndex = -1
	for i, c := range n.Children {
		if c != nil {
			count++
			soleIndex = i
		}
	}
	if count != 1 {
		soleIndex = -1
	}
	return
}

func (n *InternalNode) String() string {
	return fmt.Sprintf("Internal(%x)", n.Hash())
}
