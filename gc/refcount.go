package gc

import (
	"encoding/binary"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
	"github.com/rooch-network/rooch-sub004/store"
)

// Refcount wraps the node_refcount column family: node_hash -> u32
// little-endian. Absent means 0.
type Refcount struct {
	kv KVHandle
}

func NewRefcount(kv KVHandle) *Refcount { return &Refcount{kv: kv} }

func (r *Refcount) Get(hash common.Hash) (uint32, error) {
	raw, err := r.kv.Get(hash[:])
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 4 {
		return 0, errtag.New(errtag.Corruption, "gc.Refcount.Get", errBadRefcountRecord)
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// Incr adds delta to hash's refcount. In practice a commit increments
// by 1, since commits are strictly sequential.
func (r *Refcount) Incr(hash common.Hash, delta uint32) error {
	cur, err := r.Get(hash)
	if err != nil {
		return err
	}
	return r.set(hash, cur+delta)
}

// IncrWrite computes hash's refcount after adding delta and returns the
// CFWrite that records it, without touching storage itself — callers
// that need the increment folded into a larger atomic batch (notably
// applier.Commit) read the current value through Get and build the
// write here instead of calling Incr directly.
func (r *Refcount) IncrWrite(hash common.Hash, delta uint32) (store.CFWrite, error) {
	cur, err := r.Get(hash)
	if err != nil {
		return store.CFWrite{}, err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], cur+delta)
	return store.CFWrite{Family: store.CFRefcount, Key: hash.Bytes(), Value: buf[:]}, nil
}

// Decr subtracts delta from hash's refcount. Decrementing an absent (zero)
// refcount is a Precondition error.
func (r *Refcount) Decr(hash common.Hash, delta uint32) (uint32, error) {
	cur, err := r.Get(hash)
	if err != nil {
		return 0, err
	}
	if cur < delta {
		return 0, errtag.New(errtag.Precondition, "gc.Refcount.Decr", errRefcountUnderflow)
	}
	next := cur - delta
	if next == 0 {
		return 0, r.kv.Delete(hash[:])
	}
	return next, r.set(hash, next)
}

// Clear removes hash's refcount entry outright (absent == 0), used by the
// sweepers once a node has been decided for deletion — at that point the
// entry's count no longer matters, only that the entry is gone.
func (r *Refcount) Clear(hash common.Hash) error {
	return r.kv.Delete(hash[:])
}

func (r *Refcount) set(hash common.Hash, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return r.kv.Set(hash[:], buf[:])
}
