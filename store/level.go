package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/rooch-network/rooch-sub004/common"
	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// LevelStore is a goleveldb-backed NodeStore. It exists for the optional
// persistent reachability marker (gc.Persistent), which wants an
// independent on-disk keyspace it can wipe and rebuild without touching
// the primary pebble instance at any time.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevel opens (creating if absent) a goleveldb instance at dir.
func OpenLevel(dir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.OpenLevel", err)
	}
	return &LevelStore{db: db}, nil
}

func (l *LevelStore) Close() error {
	if err := l.db.Close(); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.Close", err)
	}
	return nil
}

func (l *LevelStore) Get(hash common.Hash) ([]byte, error) {
	val, err := l.db.Get(hash[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.LevelStore.Get", err)
	}
	return val, nil
}

func (l *LevelStore) Put(hash common.Hash, encoded []byte) error {
	if err := l.db.Put(hash[:], encoded, nil); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.Put", err)
	}
	return nil
}

func (l *LevelStore) WriteBatch(nodes map[common.Hash][]byte) error {
	batch := new(leveldb.Batch)
	for h, blob := range nodes {
		batch.Put(h[:], blob)
	}
	if err := l.db.Write(batch, nil); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.WriteBatch", err)
	}
	return nil
}

func (l *LevelStore) Delete(hash common.Hash) error {
	if err := l.db.Delete(hash[:], nil); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.Delete", err)
	}
	return nil
}

// RawGet/RawPut/RawDelete expose the same instance under arbitrary byte
// keys, for the bitmap-style payloads gc.Persistent stores (not node
// blobs keyed by their own hash).
func (l *LevelStore) RawGet(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errtag.New(errtag.IO, "store.LevelStore.RawGet", err)
	}
	return val, nil
}

func (l *LevelStore) RawPut(key, value []byte) error {
	if err := l.db.Put(key, value, nil); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.RawPut", err)
	}
	return nil
}

func (l *LevelStore) RawDelete(key []byte) error {
	if err := l.db.Delete(key, nil); err != nil {
		return errtag.New(errtag.IO, "store.LevelStore.RawDelete", err)
	}
	return nil
}
