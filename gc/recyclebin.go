package gc

import (
	"encoding/binary"
	"fmt"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// RecyclePhase distinguishes which sweeper wrote a recycle record.
type RecyclePhase uint8

const (
	RecycleIncremental RecyclePhase = iota
	RecycleManual
)

// RecycleRecord is one entry of the node_recycle column family: the
// deleted node's bytes plus enough provenance to support
// operator-driven recovery.
type RecycleRecord struct {
	Bytes          []byte
	Phase          RecyclePhase
	OriginalCutoff common.Hash
	TxOrder        uint64
	CreatedAt      int64
	DeletedAt      int64
	OriginalSize   uint64
	NodeType       uint8 // 0 leaf, 1 internal — mirrors smt's leafTag/internalTag split
	Note           string
}

// RecycleBin is the content-addressed node_recycle column family: a
// bounded (by operator policy — nothing here enforces the bound itself),
// no-automatic-eviction mapping hash -> record.
type RecycleBin struct {
	kv KVHandle
}

func NewRecycleBin(kv KVHandle) *RecycleBin { return &RecycleBin{kv: kv} }

// Put stages a record. Sweepers call this under strong_backup=true
// before deleting the node from the node store: written by sweepers,
// removed only by explicit restore or operator action.
func (b *RecycleBin) Put(hash common.Hash, rec *RecycleRecord) error {
	return b.kv.Set(hash[:], encodeRecycleRecord(rec))
}

func (b *RecycleBin) Get(hash common.Hash) (*RecycleRecord, error) {
	raw, err := b.kv.Get(hash[:])
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeRecycleRecord(raw)
}

func (b *RecycleBin) Remove(hash common.Hash) error {
	return b.kv.Delete(hash[:])
}

// EvictFilter selects which records Evict removes; eviction is
// operator-initiated through a filter-based API. A nil pointer field
// means "don't filter on this dimension".
type EvictFilter struct {
	OlderThan *int64
	NewerThan *int64
	Phase     *RecyclePhase
	MinSize   *uint64
	MaxSize   *uint64
}

func (f EvictFilter) matches(rec *RecycleRecord) bool {
	if f.OlderThan != nil && rec.DeletedAt >= *f.OlderThan {
		return false
	}
	if f.NewerThan != nil && rec.DeletedAt <= *f.NewerThan {
		return false
	}
	if f.Phase != nil && rec.Phase != *f.Phase {
		return false
	}
	if f.MinSize != nil && rec.OriginalSize < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && rec.OriginalSize > *f.MaxSize {
		return false
	}
	return true
}

// Evict removes every record matching filter, returning the count
// removed. There is no automatic eviction path anywhere in this package —
// this is the only way records ever leave the bin besides Restore.
func (b *RecycleBin) Evict(filter EvictFilter) (int, error) {
	var toRemove []common.Hash
	err := b.kv.Iterate(func(key, value []byte) bool {
		rec, err := decodeRecycleRecord(value)
		if err != nil {
			return true
		}
		if filter.matches(rec) {
			var h common.Hash
			copy(h[:], key)
			toRemove = append(toRemove, h)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, h := range toRemove {
		if err := b.kv.Delete(h[:]); err != nil {
			return 0, err
		}
	}
	return len(toRemove), nil
}

// Restore copies a record's bytes back into the node store, optionally
// removing it from the bin afterward.
func (b *RecycleBin) Restore(hash common.Hash, into interface {
	Put(hash common.Hash, encoded []byte) error
}, removeAfter bool) error {
	rec, err := b.Get(hash)
	if err != nil {
		return err
	}
	if rec == nil {
		return errtag.New(errtag.Precondition, "gc.RecycleBin.Restore", fmt.Errorf("no recycle record for %s", hash))
	}
	if err := into.Put(hash, rec.Bytes); err != nil {
		return err
	}
	if removeAfter {
		return b.Remove(hash)
	}
	return nil
}

func encodeRecycleRecord(r *RecycleRecord) []byte {
	buf := make([]byte, 0, 64+len(r.Bytes)+len(r.Note))
	buf = appendBytesField(buf, r.Bytes)
	buf = append(buf, byte(r.Phase))
	buf = append(buf, r.OriginalCutoff[:]...)
	buf = appendUvarintGC(buf, r.TxOrder)
	buf = appendVarintGC(buf, r.CreatedAt)
	buf = appendVarintGC(buf, r.DeletedAt)
	buf = appendUvarintGC(buf, r.OriginalSize)
	buf = append(buf, r.NodeType)
	buf = appendBytesField(buf, []byte(r.Note))
	return buf
}

func decodeRecycleRecord(buf []byte) (*RecycleRecord, error) {
	r := &RecycleRecord{}
	var ok bool
	r.Bytes, buf, ok = readBytesField(buf)
	if !ok || len(buf) < 1+common.HashLength {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("truncated record"))
	}
	r.Phase = RecyclePhase(buf[0])
	buf = buf[1:]
	copy(r.OriginalCutoff[:], buf[:common.HashLength])
	buf = buf[common.HashLength:]

	var n int
	r.TxOrder, n = binary.Uvarint(buf)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("bad tx_order"))
	}
	buf = buf[n:]

	created, n := binary.Varint(buf)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("bad created_at"))
	}
	r.CreatedAt = created
	buf = buf[n:]

	deleted, n := binary.Varint(buf)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("bad deleted_at"))
	}
	r.DeletedAt = deleted
	buf = buf[n:]

	r.OriginalSize, n = binary.Uvarint(buf)
	if n <= 0 {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("bad original_size"))
	}
	buf = buf[n:]

	if len(buf) < 1 {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("missing node_type"))
	}
	r.NodeType = buf[0]
	buf = buf[1:]

	noteBytes, _, ok := readBytesField(buf)
	if !ok {
		return nil, errtag.New(errtag.Corruption, "gc.decodeRecycleRecord", fmt.Errorf("bad note"))
	}
	r.Note = string(noteBytes)
	return r, nil
}

func appendBytesField(buf, data []byte) []byte {
	buf = appendUvarintGC(buf, uint64(len(data)))
	return append(buf, data...)
}

func readBytesField(buf []byte) (data, rest []byte, ok bool) {
	l, n := binary.Uvarint(buf)
	if n <= 0 || uint64(len(buf)-n) < l {
		return nil, buf, false
	}
	buf = buf[n:]
	return buf[:l], buf[l:], true
}

func appendUvarintGC(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendVarintGC(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
