// Package applier translates nested per-object changes into SMT updates:
// one kernel.PutAll call per touched subtree, merged into a single flat
// node batch. It is the adapted counterpart of trie_db.go's
// MergedNodeSet/Update linking, which already merges dirty-node sets from
// an account trie and its storage tries and wires a leaf's embedded root
// pointer into the next subtree.
package applier

import (
	"encoding/binary"
	"fmt"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// Metadata is the fixed header every ObjectState carries.
type Metadata struct {
	ID         common.Hash
	Owner      common.Hash
	Flag       uint8
	StateRoot  common.Hash
	Size       uint64
	CreatedAt  int64
	UpdatedAt  int64
	ObjectType string
}

// ObjectState is the opaque value payload stored at a leaf: metadata plus
// raw bytes. When Metadata.StateRoot is non-placeholder, Value is ignored
// by readers that know to descend into the nested field tree instead.
type ObjectState struct {
	Metadata Metadata
	Value    []byte
}

// Encode serializes an ObjectState into the bytes stored as a leaf's
// value_bytes. The encoding is the applier's own — it does not need to
// match smt's node encoding, only round-trip through Decode.
func Encode(o *ObjectState) []byte {
	buf := make([]byte, 0, 32*3+1+8+8+8+2+len(o.Metadata.ObjectType)+4+len(o.Value))
	buf = append(buf, o.Metadata.ID[:]...)
	buf = append(buf, o.Metadata.Owner[:]...)
	buf = append(buf, o.Metadata.Flag)
	buf = append(buf, o.Metadata.StateRoot[:]...)
	buf = appendUvarint(buf, o.Metadata.Size)
	buf = appendVarint(buf, o.Metadata.CreatedAt)
	buf = appendVarint(buf, o.Metadata.UpdatedAt)
	buf = appendUvarint(buf, uint64(len(o.Metadata.ObjectType)))
	buf = append(buf, o.Metadata.ObjectType...)
	buf = appendUvarint(buf, uint64(len(o.Value)))
	buf = append(buf, o.Value...)
	return buf
}

// Decode parses the bytes Encode produces.
func Decode(buf []byte) (*ObjectState, error) {
	const headLen = 32 + 32 + 1 + 32
	if len(buf) < headLen {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("short buffer"))
	}
	o := &ObjectState{}
	copy(o.Metadata.ID[:], buf[0:32])
	copy(o.Metadata.Owner[:], buf[32:64])
	o.Metadata.Flag = buf[64]
	copy(o.Metadata.StateRoot[:], buf[65:97])
	rest := buf[headLen:]

	size, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("bad size"))
	}
	o.Metadata.Size = size
	rest = rest[n:]

	created, n := binary.Varint(rest)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("bad created_at"))
	}
	o.Metadata.CreatedAt = created
	rest = rest[n:]

	updated, n := binary.Varint(rest)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("bad updated_at"))
	}
	o.Metadata.UpdatedAt = updated
	rest = rest[n:]

	typeLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < typeLen {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("bad object_type"))
	}
	rest = rest[n:]
	o.Metadata.ObjectType = string(rest[:typeLen])
	rest = rest[typeLen:]

	valLen, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < valLen {
		return nil, errtag.New(errtag.Corruption, "applier.Decode", fmt.Errorf("bad value"))
	}
	rest = rest[n:]
	o.Value = make([]byte, valLen)
	copy(o.Value, rest[:valLen])
	return o, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
