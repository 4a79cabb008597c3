package gc

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"github.com/holiman/bloomfilter/v2"

	"github.com/rooch-network/rooch-sub004/common"
)

// Marker is the reachability-marking capability: mark a node reachable,
// test membership, reset, and report how many distinct hashes have been
// marked. Lossy implementations (bloom filters) may report false
// positives but must never report a false negative.
type Marker interface {
	// Mark records hash as reachable, reporting whether it was newly
	// marked (false if already present) — only newly-marked nodes should
	// have their children pushed onto the traversal frontier.
	Mark(hash common.Hash) (wasNew bool, err error)
	IsMarked(hash common.Hash) (bool, error)
	Reset() error
	Count() uint64
}

// PersistableMarker is implemented by Marker backends whose bit state can
// be snapshotted and restored, letting a BuildReach restart resume a mark
// in progress instead of starting the filter over from empty. Persistent
// doesn't implement it: its backing store is already durable on every
// Mark, so it has nothing to snapshot.
type PersistableMarker interface {
	// Bytes returns a self-contained snapshot of the marker's current bit
	// state.
	Bytes() ([]byte, error)
	// LoadBytes replaces the marker's bit state with a snapshot taken
	// earlier by Bytes.
	LoadBytes(data []byte) error
}

func hashToUint64(h common.Hash) uint64 {
	hasher := fnv.New64()
	hasher.Write(h[:])
	return hasher.Sum64()
}

// Bloom is a mutex-wrapped bloom filter, built on the exact library
// go-ethereum's state pruner (core/state/pruner) wraps in its stateBloom
// type. Every call, read or write, takes the mutex.
type Bloom struct {
	mu     sync.Mutex
	filter *bloomfilter.Filter
	count  uint64
}

// NewBloom sizes the filter for hint expected elements at roughly a 1%
// false-positive rate, the same sizing heuristic as go-ethereum's
// newStateBloom (numBits ≈ 10x hint, k=4).
func NewBloom(hint uint64) (*Bloom, error) {
	numBits := uint64(math.Ceil(float64(hint) * 10))
	if numBits == 0 {
		numBits = 1 << 20
	}
	filter, err := bloomfilter.New(numBits, 4)
	if err != nil {
		return nil, err
	}
	return &Bloom{filter: filter}, nil
}

func (b *Bloom) Mark(hash common.Hash) (bool, error) {
	key := hashToUint64(hash)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filter.Contains(key) {
		return false, nil
	}
	b.filter.Add(key)
	b.count++
	return true, nil
}

func (b *Bloom) IsMarked(hash common.Hash) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter.Contains(hashToUint64(hash)), nil
}

func (b *Bloom) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fresh, err := bloomfilter.New(b.filter.M(), b.filter.K())
	if err != nil {
		return err
	}
	b.filter = fresh
	b.count = 0
	return nil
}

func (b *Bloom) Count() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Bytes snapshots the filter's bit array via holiman/bloomfilter/v2's own
// binary encoding, with the marker's own element count prefixed (the
// filter's encoding carries its bit array, not how many distinct hashes
// produced it).
func (b *Bloom) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	filterBytes, err := b.filter.MarshalBinary()
	if err != nil {
		return nil, err
	}
	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, b.count)
	return append(prefix[:n], filterBytes...), nil
}

// LoadBytes restores a filter and count snapshotted earlier by Bytes.
func (b *Bloom) LoadBytes(data []byte) error {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return errBadMarkerSnapshot
	}
	filter := new(bloomfilter.Filter)
	if err := filter.UnmarshalBinary(data[n:]); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = filter
	b.count = count
	return nil
}

// AtomicBloom is a lock-free bloom filter for the parallel marking
// path: every bit is set through a CAS loop on the owning word instead
// of a mutex, so concurrent markers never block each other. It is
// built on bits-and-blooms/bitset's word layout.
type AtomicBloom struct {
	words []uint64 // len = bits/64, rounded up
	bits  uint64
	k     uint64
	count uint64 // approximate; racy increments are acceptable, saturation only degrades efficiency
}

// NewAtomicBloom sizes the filter the same way NewBloom does.
func NewAtomicBloom(hint uint64) *AtomicBloom {
	numBits := uint64(math.Ceil(float64(hint) * 10))
	if numBits == 0 {
		numBits = 1 << 20
	}
	bs := bitset.New(uint(numBits))
	return &AtomicBloom{
		words: bs.Bytes(),
		bits:  numBits,
		k:     4,
	}
}

func (a *AtomicBloom) indices(hash common.Hash) []uint64 {
	h1 := hashToUint64(hash)
	h2 := hashToUint64(common.Sum256(hash[:], []byte{0x5a}))
	out := make([]uint64, a.k)
	for i := uint64(0); i < a.k; i++ {
		out[i] = (h1 + i*h2) % a.bits
	}
	return out
}

// Mark sets every one of the hash's k bits via CAS, returning true if any
// bit was not already set (i.e. the hash was not previously a member).
func (a *AtomicBloom) Mark(hash common.Hash) (bool, error) {
	wasNew := false
	for _, idx := range a.indices(hash) {
		wordIdx := idx / 64
		bit := uint64(1) << (idx % 64)
		for {
			old := atomic.LoadUint64(&a.words[wordIdx])
			if old&bit != 0 {
				break // already set
			}
			if atomic.CompareAndSwapUint64(&a.words[wordIdx], old, old|bit) {
				wasNew = true
				break
			}
		}
	}
	if wasNew {
		atomic.AddUint64(&a.count, 1)
	}
	return wasNew, nil
}

func (a *AtomicBloom) IsMarked(hash common.Hash) (bool, error) {
	for _, idx := range a.indices(hash) {
		word := atomic.LoadUint64(&a.words[idx/64])
		if word&(1<<(idx%64)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (a *AtomicBloom) Reset() error {
	for i := range a.words {
		atomic.StoreUint64(&a.words[i], 0)
	}
	atomic.StoreUint64(&a.count, 0)
	return nil
}

func (a *AtomicBloom) Count() uint64 {
	return atomic.LoadUint64(&a.count)
}

// Bytes snapshots the bitset's word array alongside the sizing parameters
// needed to reinterpret it (bits, k) and the approximate element count.
// Callers must not call Mark concurrently with Bytes.
func (a *AtomicBloom) Bytes() ([]byte, error) {
	var tmp [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, 3*binary.MaxVarintLen64+len(a.words)*8)
	n := binary.PutUvarint(tmp[:], a.bits)
	buf = append(buf, tmp[:n]...)
	n = binary.PutUvarint(tmp[:], a.k)
	buf = append(buf, tmp[:n]...)
	n = binary.PutUvarint(tmp[:], atomic.LoadUint64(&a.count))
	buf = append(buf, tmp[:n]...)
	for i := range a.words {
		var wb [8]byte
		binary.LittleEndian.PutUint64(wb[:], atomic.LoadUint64(&a.words[i]))
		buf = append(buf, wb[:]...)
	}
	return buf, nil
}

// LoadBytes restores a bitset and count snapshotted earlier by Bytes.
// Callers must not call Mark concurrently with LoadBytes.
func (a *AtomicBloom) LoadBytes(data []byte) error {
	bits, n := binary.Uvarint(data)
	if n <= 0 {
		return errBadMarkerSnapshot
	}
	data = data[n:]
	k, n := binary.Uvarint(data)
	if n <= 0 {
		return errBadMarkerSnapshot
	}
	data = data[n:]
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return errBadMarkerSnapshot
	}
	data = data[n:]
	if len(data)%8 != 0 {
		return errBadMarkerSnapshot
	}
	words := make([]uint64, len(data)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	a.bits = bits
	a.k = k
	a.words = words
	atomic.StoreUint64(&a.count, count)
	return nil
}
