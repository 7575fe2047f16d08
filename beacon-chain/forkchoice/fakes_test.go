package forkchoice

import (
	"context"
	"errors"
)

// fakeState is a minimal in-memory BeaconState used across this package's
// tests, in the same style as the small hand-rolled test-state fakes used in
// blockchain/*_test.go rather than decoding real SSZ states.
type fakeState struct {
	slot           uint64
	currentEpoch   uint64
	justified      Checkpoint
	finalized      Checkpoint
	numValidators  int
	balances       []uint64
	activeFrom     []uint64
	recentRoots    map[uint64][32]byte
}

func (s *fakeState) Slot() uint64                              { return s.slot }
func (s *fakeState) CurrentEpoch() uint64                       { return s.currentEpoch }
func (s *fakeState) CurrentJustifiedCheckpoint() Checkpoint     { return s.justified }
func (s *fakeState) FinalizedCheckpoint() Checkpoint            { return s.finalized }
func (s *fakeState) NumValidators() int                         { return s.numValidators }
func (s *fakeState) EffectiveBalance(i int) uint64 {
	if i < len(s.balances) {
		return s.balances[i]
	}
	return 32
}
func (s *fakeState) IsActiveValidator(i int, epoch uint64) bool {
	if i < len(s.activeFrom) {
		return epoch >= s.activeFrom[i]
	}
	return true
}
func (s *fakeState) BlockRootAtSlot(slot uint64) ([32]byte, bool) {
	root, ok := s.recentRoots[slot]
	return root, ok
}

// fakeReader resolves block roots to fakeStates and slots registered ahead
// of time by the test.
type fakeReader struct {
	states map[[32]byte]BeaconState
	slots  map[[32]byte]uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{states: make(map[[32]byte]BeaconState), slots: make(map[[32]byte]uint64)}
}

func (r *fakeReader) register(root [32]byte, slot uint64, state BeaconState) {
	r.slots[root] = slot
	if state != nil {
		r.states[root] = state
	}
}

func (r *fakeReader) StateByBlockRoot(ctx context.Context, blockRoot [32]byte) (BeaconState, error) {
	s, ok := r.states[blockRoot]
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

func (r *fakeReader) BlockSlot(ctx context.Context, blockRoot [32]byte) (uint64, bool, error) {
	slot, ok := r.slots[blockRoot]
	return slot, ok, nil
}

// fakeClock returns a fixed slot, settable mid-test.
type fakeClock struct {
	slot uint64
	err  error
}

func (c *fakeClock) CurrentSlot() (uint64, error) { return c.slot, c.err }

var errNotFound = errors.New("state not found")
