package gc

import (
	"fmt"

	"github.com/rooch-network/rooch-sub004/internal/errtag"
)

// Phase is a node in the persisted GC state machine:
//
//	Pending -> BuildReach -> SweepExpired -> Incremental
//	              ^______________restart____________|
//
// A restart in BuildReach reloads the marker snapshot saved through
// SaveMarker (if any) and walks again from the protected roots. No
// separate cursor is persisted for SweepExpired or Incremental: the
// sweepers remove each stale-index entry as they handle it, so a restart
// picks up whatever entries remain. This type persists the active phase
// and the marker snapshot, under separate prune_meta keys.
type Phase uint8

const (
	PhasePending Phase = iota
	PhaseBuildReach
	PhaseSweepExpired
	PhaseIncremental
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseBuildReach:
		return "build_reach"
	case PhaseSweepExpired:
		return "sweep_expired"
	case PhaseIncremental:
		return "incremental"
	default:
		return "unknown"
	}
}

var prunePhaseKey = []byte("phase")
var pruneMarkerKey = []byte("marker")

// PhaseStore persists the current phase in the prune_meta column family.
type PhaseStore struct {
	kv KVHandle
}

func NewPhaseStore(kv KVHandle) *PhaseStore { return &PhaseStore{kv: kv} }

// Load returns PhasePending if no phase has ever been persisted (first
// boot).
func (s *PhaseStore) Load() (Phase, error) {
	raw, err := s.kv.Get(prunePhaseKey)
	if err != nil {
		return PhasePending, err
	}
	if raw == nil {
		return PhasePending, nil
	}
	if len(raw) != 1 {
		return PhasePending, errtag.New(errtag.Corruption, "gc.PhaseStore.Load", fmt.Errorf("phase record is not 1 byte"))
	}
	return Phase(raw[0]), nil
}

// Transition validates next is a legal successor of the currently
// persisted phase (or equal to it, for idempotent resume) and persists
// it.
func (s *PhaseStore) Transition(next Phase) error {
	cur, err := s.Load()
	if err != nil {
		return err
	}
	if !isLegalTransition(cur, next) {
		return errtag.New(errtag.Precondition, "gc.PhaseStore.Transition", fmt.Errorf("illegal phase transition %s -> %s", cur, next))
	}
	return s.kv.Set(prunePhaseKey, []byte{byte(next)})
}

// SaveMarker persists a PersistableMarker snapshot (gc.Bloom/gc.AtomicBloom's
// Bytes output) under a separate prune_meta key from the phase itself, so a
// BuildReach restart can reload it instead of re-marking from scratch.
func (s *PhaseStore) SaveMarker(data []byte) error {
	return s.kv.Set(pruneMarkerKey, data)
}

// LoadMarker returns the last marker snapshot saved by SaveMarker, or nil
// if none has been saved yet (first BuildReach pass, or a marker backend
// that was never persistable).
func (s *PhaseStore) LoadMarker() ([]byte, error) {
	return s.kv.Get(pruneMarkerKey)
}

// ClearMarker discards the persisted marker snapshot once BuildReach has
// finished (the mark result is now reflected in the stale index, so the
// raw bit array is no longer needed and would only mislead the next
// cycle's restart logic).
func (s *PhaseStore) ClearMarker() error {
	return s.kv.Delete(pruneMarkerKey)
}

func isLegalTransition(cur, next Phase) bool {
	if cur == next {
		return true
	}
	switch cur {
	case PhasePending:
		return next == PhaseBuildReach
	case PhaseBuildReach:
		return next == PhaseSweepExpired
	case PhaseSweepExpired:
		return next == PhaseIncremental
	case PhaseIncremental:
		// A fresh full rebuild (e.g. operator-triggered re-mark) restarts
		// the cycle at BuildReach.
		return next == PhaseBuildReach
	default:
		return false
	}
}
