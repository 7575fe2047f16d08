package protoarray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForkChoice_ProcessBlockAndHead(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	require.NoError(t, f.ProcessBlock(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))

	f.ProcessAttestation(ctx, []uint64{0, 1}, hash(2), 1)

	head, err := f.Head(ctx, 0, hash(1), []uint64{32, 32}, 0)
	require.NoError(t, err)
	assert.Equal(t, hash(2), head)
}

func TestForkChoice_ProcessAttestation_NewerEpochOverwrites(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	f.ProcessAttestation(ctx, []uint64{0}, hash(1), 1)
	f.ProcessAttestation(ctx, []uint64{0}, hash(2), 2)

	root, epoch, ok := f.LatestMessage(0)
	require.True(t, ok)
	assert.Equal(t, hash(2), root)
	assert.Equal(t, uint64(2), epoch)
}

func TestForkChoice_ProcessAttestation_OlderEpochIgnored(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	f.ProcessAttestation(ctx, []uint64{0}, hash(2), 2)
	f.ProcessAttestation(ctx, []uint64{0}, hash(1), 1)

	_, epoch, ok := f.LatestMessage(0)
	require.True(t, ok)
	assert.Equal(t, uint64(2), epoch)
}

func TestForkChoice_ContainsBlockAndBlock(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	require.NoError(t, f.ProcessBlock(ctx, 0, hash(1), [32]byte{}, hash(50), 0, 0))

	assert.True(t, f.ContainsBlock(hash(1)))
	assert.False(t, f.ContainsBlock(hash(99)))

	slot, stateRoot, parent, jEpoch, fEpoch, ok := f.Block(hash(1))
	require.True(t, ok)
	assert.Equal(t, uint64(0), slot)
	assert.Equal(t, hash(50), stateRoot)
	assert.Equal(t, [32]byte{}, parent)
	assert.Equal(t, uint64(0), jEpoch)
	assert.Equal(t, uint64(0), fEpoch)
}

func TestForkChoice_AncestorRoot(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	require.NoError(t, f.ProcessBlock(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 5, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 10, hash(3), hash(2), [32]byte{}, 0, 0))

	ancestor, err := f.AncestorRoot(ctx, hash(3), 5)
	require.NoError(t, err)
	assert.Equal(t, hash(2), ancestor)

	// A second lookup for the same (root, slot) pair exercises the cache hit path.
	ancestor, err = f.AncestorRoot(ctx, hash(3), 5)
	require.NoError(t, err)
	assert.Equal(t, hash(2), ancestor)
}

func TestForkChoice_AncestorRoot_UnknownNode(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	_, err := f.AncestorRoot(ctx, hash(9), 0)
	assert.ErrorIs(t, err, errNodeDoesNotExist)
}

func TestForkChoice_IsCanonical(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(1))
	require.NoError(t, f.ProcessBlock(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))

	_, err := f.Head(ctx, 0, hash(1), []uint64{}, 0)
	require.NoError(t, err)

	assert.True(t, f.IsCanonical(hash(1)))
	assert.True(t, f.IsCanonical(hash(2)))
	assert.False(t, f.IsCanonical(hash(3)))
}

func TestForkChoice_Prune_RespectsThreshold(t *testing.T) {
	ctx := context.Background()
	f := New(0, 0, hash(0))
	f.store.pruneThreshold = 1

	require.NoError(t, f.ProcessBlock(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, f.ProcessBlock(ctx, 2, hash(3), hash(2), [32]byte{}, 0, 0))

	require.NoError(t, f.Prune(ctx, hash(2)))
	assert.Equal(t, 2, f.NodeCount())
}

func TestForkChoice_JustifiedFinalizedEpoch(t *testing.T) {
	f := New(3, 1, hash(1))
	assert.Equal(t, uint64(3), f.JustifiedEpoch())
	assert.Equal(t, uint64(1), f.FinalizedEpoch())
}
