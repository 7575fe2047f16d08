// Package protoarray implements the proto-array LMD-GHOST fork-choice DAG:
// a flat, append-only array of block nodes plus per-validator vote tracking,
// used to compute weighted chain heads without re-walking the whole block
// tree on every call.
package protoarray

import (
	"context"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// defaultPruneThreshold is the minimal number of block nodes that must be in
// the tree before a new finalization triggers a prune.
const defaultPruneThreshold = 256

// ForkChoice holds the proto-array store plus the validator vote cache.
// votesLock guards the vote cache; the node DAG has no lock of its own and
// relies on the caller (the forkchoice package's single writer lock) to
// serialize access to it.
type ForkChoice struct {
	votesLock sync.RWMutex
	votes     []Vote
	balances  []uint64
	store     *Store

	// ancestorCache memoizes AncestorRoot lookups; pruning invalidates it
	// wholesale since the underlying node indices are reassigned.
	ancestorCache *ristretto.Cache
}

// New initializes a new proto-array fork-choice DAG rooted at no blocks; the
// caller inserts the genesis block via ProcessBlock before any other call.
func New(justifiedEpoch, finalizedEpoch uint64, finalizedRoot [32]byte) *ForkChoice {
	s := &Store{
		justifiedEpoch: justifiedEpoch,
		finalizedEpoch: finalizedEpoch,
		finalizedRoot:  finalizedRoot,
		nodes:          make([]*Node, 0),
		nodesIndices:   make(map[[32]byte]uint64),
		canonicalNodes: make(map[[32]byte]bool),
		pruneThreshold: defaultPruneThreshold,
	}

	cache, err := newAncestorCache()
	if err != nil {
		// ristretto.NewCache only fails on invalid Config constants, which
		// are fixed at compile time above; treat it as unreachable rather
		// than threading an error return through every caller of New.
		panic(errors.Wrap(err, "could not build ancestor cache"))
	}

	return &ForkChoice{
		store:         s,
		balances:      make([]uint64, 0),
		votes:         make([]Vote, 0),
		ancestorCache: cache,
	}
}

// Head returns the head root from the fork-choice store. It first folds in
// any balance changes since the last call, then recomputes weights bottom-up,
// then walks best-child pointers from justifiedRoot to the leaf.
func (f *ForkChoice) Head(ctx context.Context, justifiedEpoch uint64, justifiedRoot [32]byte, justifiedStateBalances []uint64, finalizedEpoch uint64) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.Head")
	defer span.End()

	f.votesLock.Lock()
	defer f.votesLock.Unlock()

	newBalances := justifiedStateBalances

	deltas, newVotes, err := computeDeltas(ctx, f.store.nodesIndices, f.votes, f.balances, newBalances)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "could not compute deltas")
	}
	f.votes = newVotes

	if err := f.store.applyWeightChanges(ctx, justifiedEpoch, finalizedEpoch, deltas); err != nil {
		return [32]byte{}, errors.Wrap(err, "could not apply weight changes")
	}
	f.balances = newBalances

	return f.store.head(ctx, justifiedRoot)
}

// ProcessAttestation records a validator's latest vote, overwriting any
// strictly older target epoch. Votes are buffered here and only folded into
// node weights on the next Head call.
func (f *ForkChoice) ProcessAttestation(ctx context.Context, validatorIndices []uint64, blockRoot [32]byte, targetEpoch uint64) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.ProcessAttestation")
	defer span.End()

	f.votesLock.Lock()
	defer f.votesLock.Unlock()

	for _, index := range validatorIndices {
		for index >= uint64(len(f.votes)) {
			f.votes = append(f.votes, Vote{})
		}

		newVote := f.votes[index] == Vote{}

		if newVote || targetEpoch > f.votes[index].nextEpoch {
			f.votes[index].nextEpoch = targetEpoch
			f.votes[index].nextRoot = blockRoot
		}
	}
}

// ProcessBlock inserts a new block into the fork-choice DAG.
func (f *ForkChoice) ProcessBlock(ctx context.Context, slot uint64, blockRoot, parentRoot, stateRoot [32]byte, justifiedEpoch, finalizedEpoch uint64) error {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.ProcessBlock")
	defer span.End()

	return f.store.insert(ctx, slot, blockRoot, parentRoot, stateRoot, justifiedEpoch, finalizedEpoch)
}

// Prune prunes the store below the new finalized root, once the prune
// threshold has been met. Pruning reassigns every surviving node's index, so
// the ancestor cache is cleared rather than selectively invalidated.
func (f *ForkChoice) Prune(ctx context.Context, finalizedRoot [32]byte) error {
	before := len(f.store.nodes)
	if err := f.store.prune(ctx, finalizedRoot); err != nil {
		return err
	}
	if len(f.store.nodes) != before {
		f.ancestorCache.Clear()
	}
	return nil
}

// ContainsBlock returns true if the given block root is known to the DAG.
func (f *ForkChoice) ContainsBlock(root [32]byte) bool {
	_, ok := f.store.nodesIndices[root]
	return ok
}

// Block returns the metadata for a known block root.
func (f *ForkChoice) Block(root [32]byte) (slot uint64, stateRoot, parentRoot [32]byte, justifiedEpoch, finalizedEpoch uint64, ok bool) {
	index, exists := f.store.nodesIndices[root]
	if !exists || int(index) >= len(f.store.nodes) {
		return 0, [32]byte{}, [32]byte{}, 0, 0, false
	}
	n := f.store.nodes[index]
	parent := [32]byte{}
	if n.parent != NonExistentNode && int(n.parent) < len(f.store.nodes) {
		parent = f.store.nodes[n.parent].root
	}
	return n.slot, n.stateRoot, parent, n.justifiedEpoch, n.finalizedEpoch, true
}

// LatestMessage returns the validator's latest recorded vote, if any.
func (f *ForkChoice) LatestMessage(validatorIndex uint64) (root [32]byte, epoch uint64, ok bool) {
	f.votesLock.RLock()
	defer f.votesLock.RUnlock()

	if validatorIndex >= uint64(len(f.votes)) {
		return [32]byte{}, 0, false
	}
	v := f.votes[validatorIndex]
	if v.nextRoot == [32]byte{} && v.currentRoot == [32]byte{} {
		return [32]byte{}, 0, false
	}
	return v.nextRoot, v.nextEpoch, true
}

// IsCanonical returns true if the given root is part of the last-computed
// canonical chain.
func (f *ForkChoice) IsCanonical(root [32]byte) bool {
	return f.store.canonicalNodes[root]
}

// AncestorRoot returns the ancestor root of root at the given slot, falling
// back to walking proto-array's own parent pointers. Results are cached
// since the same (root, slot) pair is looked up repeatedly across
// attestations that share a target.
func (f *ForkChoice) AncestorRoot(ctx context.Context, root [32]byte, slot uint64) ([32]byte, error) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.AncestorRoot")
	defer span.End()

	key := ancestorCacheKey(root, slot)
	if cached, ok := f.ancestorCache.Get(key); ok {
		return cached.([32]byte), nil
	}

	i, ok := f.store.nodesIndices[root]
	if !ok {
		return [32]byte{}, errNodeDoesNotExist
	}
	if int(i) >= len(f.store.nodes) {
		return [32]byte{}, errInvalidNodeIndex
	}

	for f.store.nodes[i].slot > slot {
		if ctx.Err() != nil {
			return [32]byte{}, ctx.Err()
		}
		i = f.store.nodes[i].parent
		if i == NonExistentNode || int(i) >= len(f.store.nodes) {
			return [32]byte{}, errInvalidNodeIndex
		}
	}

	ancestor := f.store.nodes[i].root
	f.ancestorCache.Set(key, ancestor, 1)
	return ancestor, nil
}

// JustifiedEpoch of the fork-choice store.
func (f *ForkChoice) JustifiedEpoch() uint64 {
	return f.store.justifiedEpoch
}

// FinalizedEpoch of the fork-choice store.
func (f *ForkChoice) FinalizedEpoch() uint64 {
	return f.store.finalizedEpoch
}

// NodeCount returns the number of nodes currently tracked, mostly for tests
// and metrics.
func (f *ForkChoice) NodeCount() int {
	return len(f.store.nodes)
}
