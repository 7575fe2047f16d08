package forkchoice

import (
	"testing"

	"github.com/ethereum-clients/forkchoice/shared/params"
	"github.com/stretchr/testify/assert"
)

func TestNew_SeedsGenesisIntoProtoArray(t *testing.T) {
	cfg := params.MinimalConfig()
	g := hashB(1)

	fc := newTestForkChoice(t, cfg, g, &fakeState{numValidators: 0}, newFakeReader())

	assert.True(t, fc.HasBlock(g))
	assert.Equal(t, g, fc.JustifiedCheckpoint().Root)
	assert.Equal(t, g, fc.FinalizedCheckpoint().Root)
	assert.Equal(t, 0, fc.QueuedAttestationCount())
}

func TestInstanceID_IsStableAcrossCalls(t *testing.T) {
	cfg := params.MinimalConfig()
	fc := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())

	assert.Equal(t, fc.InstanceID(), fc.InstanceID())
}

func TestInstanceID_DiffersAcrossInstances(t *testing.T) {
	cfg := params.MinimalConfig()
	a := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())
	b := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())

	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}

func TestAssertWriteLocked_PanicsWithoutWriteLock(t *testing.T) {
	cfg := params.MinimalConfig()
	fc := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())

	assert.Panics(t, func() { fc.assertWriteLocked() })
}

func TestAssertWriteLocked_PassesUnderWriteLock(t *testing.T) {
	cfg := params.MinimalConfig()
	fc := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())

	fc.lock.Lock()
	defer fc.lock.Unlock()

	assert.NotPanics(t, func() { fc.assertWriteLocked() })
}

func TestAssertWriteLocked_PanicsUnderReadLock(t *testing.T) {
	cfg := params.MinimalConfig()
	fc := newTestForkChoice(t, cfg, hashB(1), &fakeState{numValidators: 0}, newFakeReader())

	fc.lock.RLock()
	defer fc.lock.RUnlock()

	assert.Panics(t, func() { fc.assertWriteLocked() })
}
