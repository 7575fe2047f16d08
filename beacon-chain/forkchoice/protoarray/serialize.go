package protoarray

import "github.com/pkg/errors"

// SerializedNode is the wire shape of a Node: every field exported so the
// ssz package can reflect over it. Field order matches Node itself.
type SerializedNode struct {
	Slot           uint64
	Root           [32]byte
	Parent         uint64
	JustifiedEpoch uint64
	FinalizedEpoch uint64
	Weight         uint64
	BestChild      uint64
	BestDescendant uint64
	StateRoot      [32]byte
}

// SerializedVote is the wire shape of a Vote.
type SerializedVote struct {
	CurrentRoot [32]byte
	NextRoot    [32]byte
	NextEpoch   uint64
}

// Snapshot is the full exported state of a ForkChoice DAG: enough to
// reconstruct an identical Store and vote cache via FromSnapshot.
type Snapshot struct {
	JustifiedEpoch uint64
	FinalizedEpoch uint64
	FinalizedRoot  [32]byte
	PruneThreshold uint64
	Nodes          []*SerializedNode
	Votes          []*SerializedVote
	Balances       []uint64
}

// Export captures the full in-memory state of f for persistence. It takes no
// lock of its own, so callers must keep f from being mutated meanwhile; the
// forkchoice package calls it only from Persist, under its own writer lock,
// through which every mutation of f passes.
func (f *ForkChoice) Export() *Snapshot {
	nodes := make([]*SerializedNode, len(f.store.nodes))
	for i, n := range f.store.nodes {
		nodes[i] = &SerializedNode{
			Slot:           n.slot,
			Root:           n.root,
			Parent:         n.parent,
			JustifiedEpoch: n.justifiedEpoch,
			FinalizedEpoch: n.finalizedEpoch,
			Weight:         n.weight,
			BestChild:      n.bestChild,
			BestDescendant: n.bestDescendant,
			StateRoot:      n.stateRoot,
		}
	}

	votes := make([]*SerializedVote, len(f.votes))
	for i, v := range f.votes {
		votes[i] = &SerializedVote{CurrentRoot: v.currentRoot, NextRoot: v.nextRoot, NextEpoch: v.nextEpoch}
	}

	balances := make([]uint64, len(f.balances))
	copy(balances, f.balances)

	return &Snapshot{
		JustifiedEpoch: f.store.justifiedEpoch,
		FinalizedEpoch: f.store.finalizedEpoch,
		FinalizedRoot:  f.store.finalizedRoot,
		PruneThreshold: f.store.pruneThreshold,
		Nodes:          nodes,
		Votes:          votes,
		Balances:       balances,
	}
}

// FromSnapshot reconstructs a ForkChoice DAG from a previously exported
// Snapshot, rebuilding the nodesIndices map that is not itself serialized.
// canonicalNodes starts empty and is filled in by the next Head call.
func FromSnapshot(snap *Snapshot) *ForkChoice {
	nodes := make([]*Node, len(snap.Nodes))
	nodesIndices := make(map[[32]byte]uint64, len(snap.Nodes))
	for i, sn := range snap.Nodes {
		nodes[i] = &Node{
			slot:           sn.Slot,
			root:           sn.Root,
			parent:         sn.Parent,
			justifiedEpoch: sn.JustifiedEpoch,
			finalizedEpoch: sn.FinalizedEpoch,
			weight:         sn.Weight,
			bestChild:      sn.BestChild,
			bestDescendant: sn.BestDescendant,
			stateRoot:      sn.StateRoot,
		}
		nodesIndices[sn.Root] = uint64(i)
	}

	votes := make([]Vote, len(snap.Votes))
	for i, sv := range snap.Votes {
		votes[i] = Vote{currentRoot: sv.CurrentRoot, nextRoot: sv.NextRoot, nextEpoch: sv.NextEpoch}
	}

	balances := make([]uint64, len(snap.Balances))
	copy(balances, snap.Balances)

	pruneThreshold := snap.PruneThreshold
	if pruneThreshold == 0 {
		pruneThreshold = defaultPruneThreshold
	}

	store := &Store{
		justifiedEpoch: snap.JustifiedEpoch,
		finalizedEpoch: snap.FinalizedEpoch,
		finalizedRoot:  snap.FinalizedRoot,
		nodes:          nodes,
		nodesIndices:   nodesIndices,
		canonicalNodes: make(map[[32]byte]bool),
		pruneThreshold: pruneThreshold,
	}

	cache, err := newAncestorCache()
	if err != nil {
		panic(errors.Wrap(err, "could not build ancestor cache"))
	}

	return &ForkChoice{store: store, votes: votes, balances: balances, ancestorCache: cache}
}
