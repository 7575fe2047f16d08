package protoarray

import "context"

// Vote tracks a validator's current and next latest-message. `currentRoot`
// reflects the vote last folded into node weights; `nextRoot`/`nextEpoch` hold
// a newer vote not yet applied. Deltas are computed by diffing current against
// next, then current is advanced to next.
type Vote struct {
	currentRoot [32]byte
	nextRoot    [32]byte
	nextEpoch   uint64
}

// computeDeltas updates the votes slice in-place (moving next to current) and
// returns a per-node weight delta slice indexed by the node's position in
// nodesIndices, reflecting both new votes and any balance changes between
// oldBalances and newBalances.
//
// A validator contributes -oldBalance to its old vote's node and +newBalance
// to its new vote's node. A validator whose vote did not change still moves
// its contribution if its effective balance changed between calls.
func computeDeltas(
	ctx context.Context,
	nodesIndices map[[32]byte]uint64,
	votes []Vote,
	oldBalances []uint64,
	newBalances []uint64,
) ([]int64, []Vote, error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	deltas := make([]int64, len(nodesIndices))
	newVotes := make([]Vote, len(votes))
	copy(newVotes, votes)

	for validatorIndex, vote := range votes {
		// A zero-hash current and next root means the validator has never
		// voted; skip it until it casts a first vote.
		if vote.currentRoot == [32]byte{} && vote.nextRoot == [32]byte{} {
			continue
		}

		var oldBalance, newBalance uint64
		if validatorIndex < len(oldBalances) {
			oldBalance = oldBalances[validatorIndex]
		}
		if validatorIndex < len(newBalances) {
			newBalance = newBalances[validatorIndex]
		}

		if vote.currentRoot != vote.nextRoot || oldBalance != newBalance {
			if oldBalance > 0 {
				if i, ok := nodesIndices[vote.currentRoot]; ok && int(i) < len(deltas) {
					deltas[i] -= int64(oldBalance)
				}
			}
			if newBalance > 0 {
				if i, ok := nodesIndices[vote.nextRoot]; ok && int(i) < len(deltas) {
					deltas[i] += int64(newBalance)
				}
			}
		}

		newVotes[validatorIndex].currentRoot = vote.nextRoot
	}

	return deltas, newVotes, nil
}
