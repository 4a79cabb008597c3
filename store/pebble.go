package store

import (
	"github.com/cockroachdb/pebble"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// Column families. pebble has no native CF concept (unlike rocksdb), so
// each is emulated as a one-byte key prefix over a single pebble.DB
// instance — the same trick a single-namespace KeyValueStore interface
// leaves to its caller, pushed one step further here because this
// engine needs more than one logical keyspace.
const (
	cfStateNode   byte = 0x01
	cfRefcount    byte = 0x02
	cfStaleIndex  byte = 0x03
	cfNodeRecycle byte = 0x04
	cfStartupInfo byte = 0x05
	cfPruneMeta   byte = 0x06
)

// PebbleStore is the production NodeStore, backed by a single pebble
// instance with the state_node column family. Use ColumnFamily to obtain
// raw byte-keyed access to the other families (refcount, stale index,
// recycle bin, startup info, prune metadata) for the gc and applier
// packages, which don't speak in node hashes.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (creating if absent) a pebble instance at dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	return OpenPebbleWithOptions(dir, &pebble.Options{})
}

// OpenPebbleWithOptions opens a pebble instance at dir using caller-supplied
// options. Tests use this to substitute an in-memory vfs.FS so the column
// family and atomic-batch code paths can be exercised without touching disk.
func OpenPebbleWithOptions(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.OpenPebbleWithOptions", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error {
	if err := p.db.Close(); err != nil {
		return errtag.New(errtag.IO, "store.PebbleStore.Close", err)
	}
	return nil
}

func nodeKey(hash common.Hash) []byte {
	key := make([]byte, 1+common.HashLength)
	key[0] = cfStateNode
	copy(key[1:], hash[:])
	return key
}

func (p *PebbleStore) Get(hash common.Hash) ([]byte, error) {
	val, closer, err := p.db.Get(nodeKey(hash))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.PebbleStore.Get", err)
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	if err := closer.Close(); err != nil {
		return nil, errtag.New(errtag.IO, "store.PebbleStore.Get", err)
	}
	return cp, nil
}

func (p *PebbleStore) Put(hash common.Hash, encoded []byte) error {
	if err := p.db.Set(nodeKey(hash), encoded, pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.PebbleStore.Put", err)
	}
	return nil
}

func (p *PebbleStore) WriteBatch(nodes map[common.Hash][]byte) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for h, blob := range nodes {
		if err := batch.Set(nodeKey(h), blob, nil); err != nil {
			return errtag.New(errtag.IO, "store.PebbleStore.WriteBatch", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.PebbleStore.WriteBatch", err)
	}
	return nil
}

func (p *PebbleStore) Delete(hash common.Hash) error {
	if err := p.db.Delete(nodeKey(hash), pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.PebbleStore.Delete", err)
	}
	return nil
}

// ColumnFamily returns a raw byte-keyed view of one of the five non-node
// families (refcount, stale index, recycle bin, startup info, prune
// metadata), all sharing this same pebble instance so a multi-family
// write can be committed as a single atomic batch.
func (p *PebbleStore) ColumnFamily(cf byte) *CFHandle {
	return &CFHandle{db: p.db, prefix: cf}
}

// CFHandle is a prefix-scoped byte-keyed accessor over one column family.
type CFHandle struct {
	db     *pebble.DB
	prefix byte
}

func (h *CFHandle) key(k []byte) []byte {
	out := make([]byte, 1+len(k))
	out[0] = h.prefix
	copy(out[1:], k)
	return out
}

func (h *CFHandle) Get(k []byte) ([]byte, error) {
	val, closer, err := h.db.Get(h.key(k))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.CFHandle.Get", err)
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	if err := closer.Close(); err != nil {
		return nil, errtag.New(errtag.IO, "store.CFHandle.Get", err)
	}
	return cp, nil
}

func (h *CFHandle) Set(k, v []byte) error {
	if err := h.db.Set(h.key(k), v, pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.CFHandle.Set", err)
	}
	return nil
}

func (h *CFHandle) Delete(k []byte) error {
	if err := h.db.Delete(h.key(k), pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.CFHandle.Delete", err)
	}
	return nil
}

// Iterate calls fn for every (key, value) pair in the family in ascending
// key order, stopping early if fn returns false. Keys are returned without
// the family prefix.
func (h *CFHandle) Iterate(fn func(key, value []byte) bool) error {
	lower := []byte{h.prefix}
	upper := []byte{h.prefix + 1}
	it, err := h.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return errtag.New(errtag.IO, "store.CFHandle.Iterate", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := it.Key()[1:]
		if !fn(k, it.Value()) {
			break
		}
	}
	return it.Error()
}

// AtomicMultiCF commits a batch of writes spanning multiple column
// families in one atomic pebble batch.
func (p *PebbleStore) AtomicMultiCF(writes []CFWrite) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, w := range writes {
		key := make([]byte, 1+len(w.Key))
		key[0] = w.Family
		copy(key[1:], w.Key)
		if w.Delete {
			if err := batch.Delete(key, nil); err != nil {
				return errtag.New(errtag.IO, "store.AtomicMultiCF", err)
			}
			continue
		}
		if err := batch.Set(key, w.Value, nil); err != nil {
			return errtag.New(errtag.IO, "store.AtomicMultiCF", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errtag.New(errtag.IO, "store.AtomicMultiCF", err)
	}
	return nil
}

// CFWrite is one entry of an AtomicMultiCF batch.
type CFWrite struct {
	Family byte
	Key    []byte
	Value  []byte
	Delete bool
}

// Column family identifiers exported for gc/applier callers.
const (
	CFStateNode   = cfStateNode
	CFRefcount    = cfRefcount
	CFStaleIndex  = cfStaleIndex
	CFNodeRecycle = cfNodeRecycle
	CFStartupInfo = cfStartupInfo
	CFPruneMeta   = cfPruneMeta
)
