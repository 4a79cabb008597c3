package smt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// Canonical on-disk encoding. Null is never encoded (GetNode synthesizes
// it from common.PlaceholderHash without reading the store).
//
//	Leaf:     0x01 | key(32) | value_hash(32) | value_len(uvarint) | value_bytes
//	Internal: 0x02 | 16 * ( presence(1) | hash(32) )   presence: 0 absent, 1 internal, 2 leaf
//
// Encode/Decode round-trips exactly: decoding the bytes this package
// writes reproduces a structurally identical node, and the node's
// Hash() is stable across that round trip. The hash formulas themselves
// are narrower than the full encoding — a leaf's hash commits to
// value_hash, not the raw bytes — so the store key is Hash(), not a
// literal digest of these bytes; see Node.Hash.
func Encode(n Node) ([]byte, error) {
	switch v := n.(type) {
	case NullNode:
		return nil, errtag.New(errtag.Precondition, "smt.Encode", fmt.Errorf("cannot encode Null"))
	case *LeafNode:
		buf := make([]byte, 0, 1+HashLength*2+binary.MaxVarintLen64+len(v.ValueBytes))
		buf = append(buf, leafTag)
		buf = append(buf, v.Key[:]...)
		buf = append(buf, v.ValueHash[:]...)
		var lenBuf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(lenBuf[:], uint64(len(v.ValueBytes)))
		buf = append(buf, lenBuf[:n]...)
		buf = append(buf, v.ValueBytes...)
		return buf, nil
	case *InternalNode:
		buf := make([]byte, 0, 1+NumChildren*(1+HashLength))
		buf = append(buf, internalTag)
		for _, c := range v.Children {
			if c == nil {
				buf = append(buf, 0)
				buf = append(buf, make([]byte, HashLength)...)
				continue
			}
			if c.IsLeaf {
				buf = append(buf, 2)
			} else {
				buf = append(buf, 1)
			}
			buf = append(buf, c.Hash[:]...)
		}
		return buf, nil
	default:
		return nil, errtag.New(errtag.Precondition, "smt.Encode", fmt.Errorf("unknown node type %T", n))
	}
}

// Decode parses the canonical encoding of a node. hash is the key the bytes
// were stored under; it is not re-derived from buf (see Encode's doc).
func Decode(hash common.Hash, buf []byte) (Node, error) {
	if len(buf) == 0 {
		return nil, errtag.New(errtag.Corruption, "smt.Decode", io.ErrUnexpectedEOF)
	}
	switch buf[0] {
	case leafTag:
		return decodeLeaf(hash, buf[1:])
	case internalTag:
		return decodeInternal(hash, buf[1:])
	default:
		return nil, errtag.New(errtag.Corruption, "smt.Decode", fmt.Errorf("unknown tag 0x%x", buf[0]))
	}
}

func decodeLeaf(hash common.Hash, buf []byte) (*LeafNode, error) {
	if len(buf) < HashLength*2 {
		return nil, errtag.New(errtag.Corruption, "smt.decodeLeaf", fmt.Errorf("short buffer"))
	}
	var key, valueHash common.Hash
	copy(key[:], buf[:HashLength])
	copy(valueHash[:], buf[HashLength:HashLength*2])
	rest := buf[HashLength*2:]
	vlen, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "smt.decodeLeaf", fmt.Errorf("bad value length"))
	}
	rest = rest[n:]
	if uint64(len(rest)) < vlen {
		return nil, errtag.New(errtag.Corruption, "smt.decodeLeaf", fmt.Errorf("truncated value"))
	}
	value := make([]byte, vlen)
	copy(value, rest[:vlen])
	return &LeafNode{
		Key:        key,
		ValueHash:  valueHash,
		ValueBytes: value,
		cachedHash: &hash,
	}, nil
}

func decodeInternal(hash common.Hash, buf []byte) (*InternalNode, error) {
	want := NumChildren * (1 + HashLength)
	if len(buf) < want {
		return nil, errtag.New(errtag.Corruption, "smt.decodeInternal", fmt.Errorf("short buffer"))
	}
	n := &InternalNode{cachedHash: &hash}
	for i := 0; i < NumChildren; i++ {
		off := i * (1 + HashLength)
		presence := buf[off]
		if presence == 0 {
			continue
		}
		var h common.Hash
		copy(h[:], buf[off+1:off+1+HashLength])
		n.Children[i] = &Child{Hash: h, IsLeaf: presence == 2}
	}
	return n, nil
}
