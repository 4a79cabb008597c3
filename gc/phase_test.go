package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rooch-network/rooch-sub004/gc"
)

func TestPhaseStoreLoadDefaultsToPending(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	phase, err := ps.Load()
	require.NoError(t, err)
	require.Equal(t, gc.PhasePending, phase)
}

func TestPhaseStoreWalksTheFullCycle(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))
	require.NoError(t, ps.Transition(gc.PhaseSweepExpired))
	require.NoError(t, ps.Transition(gc.PhaseIncremental))

	phase, err := ps.Load()
	require.NoError(t, err)
	require.Equal(t, gc.PhaseIncremental, phase)
}

func TestPhaseStoreIncrementalCanRestartBuildReach(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))
	require.NoError(t, ps.Transition(gc.PhaseSweepExpired))
	require.NoError(t, ps.Transition(gc.PhaseIncremental))
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))

	phase, err := ps.Load()
	require.NoError(t, err)
	require.Equal(t, gc.PhaseBuildReach, phase)
}

func TestPhaseStoreSamePhaseIsIdempotent(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))
}

func TestPhaseStoreRejectsSkippingAhead(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	err := ps.Transition(gc.PhaseSweepExpired)
	require.Error(t, err)
}

func TestPhaseStoreRejectsGoingBackward(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())
	require.NoError(t, ps.Transition(gc.PhaseBuildReach))
	require.NoError(t, ps.Transition(gc.PhaseSweepExpired))
	err := ps.Transition(gc.PhaseBuildReach)
	require.Error(t, err)
}

func TestPhaseStoreMarkerSnapshotRoundTrips(t *testing.T) {
	ps := gc.NewPhaseStore(newMemKV())

	snapshot, err := ps.LoadMarker()
	require.NoError(t, err)
	require.Nil(t, snapshot)

	require.NoError(t, ps.SaveMarker([]byte{0xde, 0xad, 0xbe, 0xef}))
	snapshot, err = ps.LoadMarker()
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, snapshot)

	require.NoError(t, ps.ClearMarker())
	snapshot, err = ps.LoadMarker()
	require.NoError(t, err)
	require.Nil(t, snapshot)
}
