package protoarray

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore() *Store {
	return &Store{
		nodes:          make([]*Node, 0),
		nodesIndices:   make(map[[32]byte]uint64),
		canonicalNodes: make(map[[32]byte]bool),
		pruneThreshold: 256,
	}
}

func hash(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestInsert_GenesisThenChild(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, hash(100), 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), hash(200), 0, 0))

	require.Len(t, s.nodes, 2)
	assert.Equal(t, uint64(0), s.nodes[1].parent)
	assert.Equal(t, uint64(1), s.nodes[0].bestChild)
	assert.Equal(t, uint64(1), s.nodes[0].bestDescendant)
}

func TestInsert_DuplicateIsNoop(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, hash(100), 0, 0))
	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, hash(100), 0, 0))

	assert.Len(t, s.nodes, 1)
}

func TestApplyWeightChanges_PropagatesToParent(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 2, hash(3), hash(2), [32]byte{}, 0, 0))

	deltas := []int64{0, 0, 100}
	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, deltas))

	assert.Equal(t, uint64(100), s.nodes[2].weight)
	assert.Equal(t, uint64(100), s.nodes[1].weight)
	assert.Equal(t, uint64(100), s.nodes[0].weight)
}

func TestApplyWeightChanges_NegativeClampsToZero(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))

	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, []int64{-50}))
	assert.Equal(t, uint64(0), s.nodes[0].weight)
}

func TestApplyWeightChanges_WrongLength(t *testing.T) {
	s := setupStore()
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))

	err := s.applyWeightChanges(ctx, 0, 0, []int64{1, 2})
	assert.ErrorIs(t, err, errInvalidDeltaLength)
}

func TestHead_PicksHeaviestChild(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(3), hash(1), [32]byte{}, 0, 0))

	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, []int64{0, 100, 50}))

	head, err := s.head(ctx, hash(1))
	require.NoError(t, err)
	assert.Equal(t, hash(2), head)
}

func TestHead_TieBreaksOnGreaterRoot(t *testing.T) {
	s := setupStore()
	ctx := context.Background()

	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(3), hash(1), [32]byte{}, 0, 0))

	require.NoError(t, s.applyWeightChanges(ctx, 0, 0, []int64{0, 100, 100}))

	head, err := s.head(ctx, hash(1))
	require.NoError(t, err)
	assert.Equal(t, hash(3), head)
}

func TestHead_UnknownJustifiedRoot(t *testing.T) {
	s := setupStore()
	_, err := s.head(context.Background(), hash(9))
	assert.ErrorIs(t, err, errUnknownJustifiedRoot)
}

func TestViableForHead_MatchesCheckpoints(t *testing.T) {
	s := setupStore()
	s.justifiedEpoch = 2
	s.finalizedEpoch = 1

	n := &Node{justifiedEpoch: 2, finalizedEpoch: 1}
	assert.True(t, s.viableForHead(n))

	n2 := &Node{justifiedEpoch: 1, finalizedEpoch: 1}
	assert.False(t, s.viableForHead(n2))
}

func TestPrune_BelowThresholdIsNoop(t *testing.T) {
	s := setupStore()
	s.pruneThreshold = 256
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))

	require.NoError(t, s.prune(ctx, hash(2)))
	assert.Len(t, s.nodes, 2)
}

func TestPrune_ReindexesSurvivors(t *testing.T) {
	s := setupStore()
	s.pruneThreshold = 1
	ctx := context.Background()
	require.NoError(t, s.insert(ctx, 0, hash(1), [32]byte{}, [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 1, hash(2), hash(1), [32]byte{}, 0, 0))
	require.NoError(t, s.insert(ctx, 2, hash(3), hash(2), [32]byte{}, 0, 0))

	require.NoError(t, s.prune(ctx, hash(2)))

	require.Len(t, s.nodes, 2)
	idx, ok := s.nodesIndices[hash(2)]
	require.True(t, ok)
	assert.Equal(t, uint64(0), idx)
	assert.Equal(t, NonExistentNode, s.nodes[0].parent)
}
