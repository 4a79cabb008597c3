package gc

import (
	"sync/atomic"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/store"
)

// Persistent is the optional marker backend for very large states that
// don't fit an in-memory bloom filter comfortably: every mark is a raw
// key write against a dedicated goleveldb instance, with no false
// positives (exact set membership) at the cost of disk I/O per
// mark/probe.
type Persistent struct {
	db    *store.LevelStore
	count uint64
}

func NewPersistent(db *store.LevelStore) *Persistent {
	return &Persistent{db: db}
}

func (p *Persistent) Mark(hash common.Hash) (bool, error) {
	existing, err := p.db.RawGet(hash[:])
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if err := p.db.RawPut(hash[:], []byte{1}); err != nil {
		return false, err
	}
	atomic.AddUint64(&p.count, 1)
	return true, nil
}

func (p *Persistent) IsMarked(hash common.Hash) (bool, error) {
	val, err := p.db.RawGet(hash[:])
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Reset only zeroes Count: the marks already written stay in the
// database, and IsMarked keeps reporting them. A persistent marker is
// emptied by opening a fresh database directory.
func (p *Persistent) Reset() error {
	atomic.StoreUint64(&p.count, 0)
	return nil
}

func (p *Persistent) Count() uint64 {
	return atomic.LoadUint64(&p.count)
}
