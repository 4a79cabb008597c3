// Package gc implements the garbage collector: protected-roots
// collection, reachability marking, expired-root and incremental
// sweeping, the recycle bin, and snapshot/replay. It is grounded on
// trie_db_cleaner.go's flush-list bookkeeping and on go-ethereum's
// core/state/pruner (bloom-filtered disk sweep).
package gc

// KVHandle is the byte-keyed column-family accessor the gc package reads
// and writes through (refcount, stale-index, recycle bin, prune metadata).
// store.CFHandle satisfies this; tests use an in-memory fake so the
// sweeper/marker logic doesn't need a real pebble instance to exercise.
type KVHandle interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Iterate(fn func(key, value []byte) bool) error
}
