package protoarray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDeltas_NewVote(t *testing.T) {
	ctx := context.Background()
	rootA := [32]byte{1}
	indices := map[[32]byte]uint64{rootA: 0}

	votes := []Vote{{nextRoot: rootA, nextEpoch: 1}}
	oldBalances := []uint64{0}
	newBalances := []uint64{32}

	deltas, newVotes, err := computeDeltas(ctx, indices, votes, oldBalances, newBalances)
	require.NoError(t, err)

	assert.Equal(t, int64(32), deltas[0])
	assert.Equal(t, rootA, newVotes[0].currentRoot)
}

func TestComputeDeltas_MovedVote(t *testing.T) {
	ctx := context.Background()
	rootA := [32]byte{1}
	rootB := [32]byte{2}
	indices := map[[32]byte]uint64{rootA: 0, rootB: 1}

	votes := []Vote{{currentRoot: rootA, nextRoot: rootB, nextEpoch: 2}}
	balances := []uint64{32}

	deltas, newVotes, err := computeDeltas(ctx, indices, votes, balances, balances)
	require.NoError(t, err)

	assert.Equal(t, int64(-32), deltas[0])
	assert.Equal(t, int64(32), deltas[1])
	assert.Equal(t, rootB, newVotes[0].currentRoot)
}

func TestComputeDeltas_UnchangedVoteSameBalance_NoDelta(t *testing.T) {
	ctx := context.Background()
	rootA := [32]byte{1}
	indices := map[[32]byte]uint64{rootA: 0}

	votes := []Vote{{currentRoot: rootA, nextRoot: rootA, nextEpoch: 1}}
	balances := []uint64{32}

	deltas, _, err := computeDeltas(ctx, indices, votes, balances, balances)
	require.NoError(t, err)

	assert.Equal(t, int64(0), deltas[0])
}

func TestComputeDeltas_NeverVoted_Skipped(t *testing.T) {
	ctx := context.Background()
	indices := map[[32]byte]uint64{}
	votes := []Vote{{}}

	deltas, newVotes, err := computeDeltas(ctx, indices, votes, []uint64{32}, []uint64{32})
	require.NoError(t, err)
	require.Len(t, deltas, 0)
	assert.Equal(t, Vote{}, newVotes[0])
}
