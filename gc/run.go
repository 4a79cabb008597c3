package gc

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rooch-network/rooch-sub004/smt"
)

// RunConfig bundles everything one full GC cycle (BuildReach ->
// SweepExpired -> Incremental) needs. Callers own the underlying column
// families and pass the typed wrappers directly.
type RunConfig struct {
	Store        smt.NodeStore
	Phases       *PhaseStore
	Refcount     *Refcount
	StaleIndex   *StaleIndex
	RecycleBin   *RecycleBin
	Marker       Marker
	History      TxHistory
	Network      Network
	MarkBatch    int
	MarkWorkers  int
	SweepBatch   int
	StrongBackup bool
	Now          int64
	ShouldStop   func() bool
}

// RunResult reports what one call to RunCycle did, across whichever
// phases it advanced through.
type RunResult struct {
	RunID        string
	ProtectedLen int
	Swept        SweepResult
}

// RunCycle advances the persisted phase machine from whatever phase is
// currently loaded through to Incremental and then runs one incremental
// sweep; once Incremental is reached, later calls run only that sweep. It
// tags every
// log line with a fresh run id so concurrent or repeated runs can be
// told apart in aggregated logs. A cycle that's interrupted mid-phase
// resumes from that phase on the next call, per PhaseStore's transition
// rules.
func RunCycle(cfg RunConfig, logger *zap.Logger) (*RunResult, error) {
	runID := uuid.New().String()
	if logger != nil {
		logger = logger.With(zap.String("gc_run_id", runID))
	}
	result := &RunResult{RunID: runID}

	phase, err := cfg.Phases.Load()
	if err != nil {
		return result, err
	}

	if phase == PhasePending || phase == PhaseBuildReach {
		if err := cfg.Phases.Transition(PhaseBuildReach); err != nil {
			return result, err
		}

		if persistable, ok := cfg.Marker.(PersistableMarker); ok {
			snapshot, err := cfg.Phases.LoadMarker()
			if err != nil {
				return result, err
			}
			if snapshot != nil {
				if err := persistable.LoadBytes(snapshot); err != nil {
					return result, err
				}
				if logger != nil {
					logger.Info("resumed reachability marker from persisted snapshot", zap.Uint64("marked_so_far", cfg.Marker.Count()))
				}
			}
		}

		roots, err := CollectProtectedRoots(cfg.History, cfg.Network, logger)
		if err != nil {
			return result, err
		}
		result.ProtectedLen = len(roots)
		if logger != nil {
			logger.Info("collected protected roots", zap.Int("count", len(roots)))
		}

		markWorkers := cfg.MarkWorkers
		var markErr error
		if markWorkers > 1 {
			// The parallel marker has no checkpoint hook, so this path saves
			// no snapshot; a snapshot loaded above (left by an earlier serial
			// run) is still its starting state.
			markErr = MarkReachableParallel(cfg.Store, cfg.Marker, roots, markWorkers)
		} else {
			flush := func() error { return nil }
			if persistable, ok := cfg.Marker.(PersistableMarker); ok {
				flush = func() error {
					snapshot, err := persistable.Bytes()
					if err != nil {
						return err
					}
					return cfg.Phases.SaveMarker(snapshot)
				}
			}
			markErr = MarkReachable(cfg.Store, cfg.Marker, roots, cfg.MarkBatch, flush)
		}
		if markErr != nil {
			return result, markErr
		}
		phase = PhaseBuildReach
	}

	if phase == PhaseBuildReach {
		if err := cfg.Phases.Transition(PhaseSweepExpired); err != nil {
			return result, err
		}
		if err := cfg.Phases.ClearMarker(); err != nil {
			return result, err
		}
		phase = PhaseSweepExpired
	}

	if phase == PhaseSweepExpired {
		cutoffRoots, err := cfg.StaleIndex.DistinctCutoffRoots()
		if err != nil {
			return result, err
		}
		for _, root := range cutoffRoots {
			sweepResult, err := SweepExpired(cfg.Store, cfg.Refcount, cfg.StaleIndex, cfg.RecycleBin, cfg.Marker, root, cfg.SweepBatch, cfg.StrongBackup, cfg.Now)
			if err != nil {
				return result, err
			}
			result.Swept.Deleted += sweepResult.Deleted
			result.Swept.Skipped += sweepResult.Skipped
		}
		if err := cfg.Phases.Transition(PhaseIncremental); err != nil {
			return result, err
		}
		phase = PhaseIncremental
	}

	if phase == PhaseIncremental {
		sweepResult, err := SweepIncremental(cfg.Store, cfg.Refcount, cfg.StaleIndex, cfg.RecycleBin, cfg.Marker, cfg.SweepBatch, cfg.StrongBackup, cfg.Now, cfg.ShouldStop)
		if err != nil {
			return result, err
		}
		result.Swept.Deleted += sweepResult.Deleted
		result.Swept.Skipped += sweepResult.Skipped
	}

	if logger != nil {
		logger.Info("gc cycle finished", zap.Int("deleted", result.Swept.Deleted), zap.Int("skipped", result.Swept.Skipped))
	}
	return result, nil
}
