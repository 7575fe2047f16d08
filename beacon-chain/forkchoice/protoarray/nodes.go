package protoarray

import (
	"context"

	"github.com/pkg/errors"
)

// Store is the proto-array DAG itself: a flat, append-only slice of Node plus
// an index from block root to slice position. It has no lock of its own;
// callers go through ForkChoice, whose caller serializes access to it.
type Store struct {
	justifiedEpoch uint64
	finalizedEpoch uint64
	finalizedRoot  [32]byte
	nodes          []*Node
	nodesIndices   map[[32]byte]uint64
	canonicalNodes map[[32]byte]bool
	pruneThreshold uint64
}

// insert registers a new node into the store. Nodes must be inserted parent
// before child; the genesis node is inserted with parentRoot equal to the
// zero hash and is its own ancestor.
func (s *Store) insert(
	ctx context.Context,
	slot uint64,
	root, parentRoot, stateRoot [32]byte,
	justifiedEpoch, finalizedEpoch uint64,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, ok := s.nodesIndices[root]; ok {
		return nil
	}

	index := uint64(len(s.nodes))
	parentIndex, hasParent := s.nodesIndices[parentRoot]
	parent := NonExistentNode
	if hasParent {
		parent = parentIndex
	}

	n := &Node{
		slot:           slot,
		root:           root,
		parent:         parent,
		justifiedEpoch: justifiedEpoch,
		finalizedEpoch: finalizedEpoch,
		stateRoot:      stateRoot,
		bestChild:      NonExistentNode,
		bestDescendant: NonExistentNode,
	}

	s.nodesIndices[root] = index
	s.nodes = append(s.nodes, n)

	if hasParent {
		if err := s.updateBestChildAndDescendant(parentIndex, index); err != nil {
			return err
		}
	}

	return nil
}

// applyWeightChanges iterates backwards through nodes (children before
// parents, since nodes are appended in insertion order and a parent always
// precedes its children) applying deltas to each node's weight and
// propagating the cumulative weight to its parent.
func (s *Store) applyWeightChanges(ctx context.Context, justifiedEpoch, finalizedEpoch uint64, deltas []int64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(deltas) != len(s.nodes) {
		return errInvalidDeltaLength
	}

	s.justifiedEpoch = justifiedEpoch
	s.finalizedEpoch = finalizedEpoch

	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if n == nil {
			continue
		}

		delta := deltas[i]
		if delta < 0 {
			d := uint64(-delta)
			if d > n.weight {
				n.weight = 0
			} else {
				n.weight -= d
			}
		} else {
			n.weight += uint64(delta)
		}

		if n.parent != NonExistentNode {
			if int(n.parent) >= len(deltas) {
				return errInvalidNodeIndex
			}
			deltas[n.parent] += delta
		}
	}

	// A second pass recomputes best-child/best-descendant bottom-up now that
	// every node carries its final weight.
	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if n == nil || n.parent == NonExistentNode {
			continue
		}
		if err := s.updateBestChildAndDescendant(n.parent, uint64(i)); err != nil {
			return err
		}
	}

	return nil
}

// updateBestChildAndDescendant re-evaluates whether childIndex should become
// parentIndex's best child, and propagates parentIndex's best-descendant
// accordingly. A child is preferred over the incumbent if it is viable for
// head and has strictly greater weight, or equal weight and a
// lexicographically greater root (tie-break, mirroring LMD-GHOST's
// `max(children, key=(weight, root))`).
func (s *Store) updateBestChildAndDescendant(parentIndex, childIndex uint64) error {
	if int(parentIndex) >= len(s.nodes) || int(childIndex) >= len(s.nodes) {
		return errInvalidNodeIndex
	}
	parent := s.nodes[parentIndex]
	child := s.nodes[childIndex]

	childLeadsToViableHead, err := s.leadsToViableHead(child)
	if err != nil {
		return err
	}

	changeToNone := !childLeadsToViableHead
	changeToChild := false

	if parent.bestChild == NonExistentNode {
		changeToChild = childLeadsToViableHead
	} else if parent.bestChild == childIndex {
		changeToChild = childLeadsToViableHead
	} else {
		bestChild := s.nodes[parent.bestChild]
		bestChildLeadsToViableHead, err := s.leadsToViableHead(bestChild)
		if err != nil {
			return err
		}

		switch {
		case childLeadsToViableHead && !bestChildLeadsToViableHead:
			changeToChild = true
		case !childLeadsToViableHead && bestChildLeadsToViableHead:
			changeToChild = false
		case child.weight > bestChild.weight:
			changeToChild = true
		case child.weight == bestChild.weight && greaterRoot(child.root, bestChild.root):
			changeToChild = true
		default:
			changeToChild = false
		}
		changeToNone = !childLeadsToViableHead && !bestChildLeadsToViableHead
	}

	switch {
	case changeToChild:
		parent.bestChild = childIndex
		parent.bestDescendant = bestDescendantOf(child, childIndex)
	case changeToNone:
		parent.bestChild = NonExistentNode
		parent.bestDescendant = NonExistentNode
	}

	return nil
}

func bestDescendantOf(n *Node, index uint64) uint64 {
	if n.bestDescendant == NonExistentNode {
		return index
	}
	return n.bestDescendant
}

func greaterRoot(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// leadsToViableHead returns true if node (or any node along its
// best-descendant chain) is viable for head: its justified/finalized epoch
// matches the store's, or the node is at genesis.
func (s *Store) leadsToViableHead(n *Node) (bool, error) {
	if n.bestDescendant != NonExistentNode {
		if int(n.bestDescendant) >= len(s.nodes) {
			return false, errInvalidBestDescendant
		}
		return s.viableForHead(s.nodes[n.bestDescendant]), nil
	}
	return s.viableForHead(n), nil
}

// viableForHead mirrors filter_block_tree: a block is viable if
// its justified/finalized checkpoints match the store's, or it is still
// within the epoch where a mismatch is tolerated (genesis-adjacent blocks
// inherit checkpoints that trivially match before any epoch transition).
func (s *Store) viableForHead(n *Node) bool {
	justified := n.justifiedEpoch == s.justifiedEpoch || s.justifiedEpoch == 0
	finalized := n.finalizedEpoch == s.finalizedEpoch || s.finalizedEpoch == 0
	return justified && finalized
}

// head walks best-child pointers from justifiedRoot to the best descendant
// leaf.
func (s *Store) head(ctx context.Context, justifiedRoot [32]byte) ([32]byte, error) {
	if ctx.Err() != nil {
		return [32]byte{}, ctx.Err()
	}

	justifiedIndex, ok := s.nodesIndices[justifiedRoot]
	if !ok {
		return [32]byte{}, errUnknownJustifiedRoot
	}
	if int(justifiedIndex) >= len(s.nodes) {
		return [32]byte{}, errInvalidNodeIndex
	}

	justifiedNode := s.nodes[justifiedIndex]
	bestDescendantIndex := justifiedNode.bestDescendant
	if bestDescendantIndex == NonExistentNode {
		bestDescendantIndex = justifiedIndex
	}
	if int(bestDescendantIndex) >= len(s.nodes) {
		return [32]byte{}, errInvalidBestDescendant
	}

	best := s.nodes[bestDescendantIndex]
	if !s.viableForHead(best) {
		return [32]byte{}, errors.Errorf("head at slot %d with weight %d is not eligible for head", best.slot, best.weight)
	}

	s.updateCanonicalNodes(bestDescendantIndex)

	return best.root, nil
}

// updateCanonicalNodes walks from the chosen head back to the root, marking
// every ancestor along the way as canonical. Used only for IsCanonical
// queries; it is not part of LMD-GHOST scoring itself.
func (s *Store) updateCanonicalNodes(headIndex uint64) {
	s.canonicalNodes = make(map[[32]byte]bool, len(s.canonicalNodes))
	index := headIndex
	for {
		if int(index) >= len(s.nodes) {
			return
		}
		n := s.nodes[index]
		s.canonicalNodes[n.root] = true
		if n.parent == NonExistentNode {
			return
		}
		index = n.parent
	}
}

// prune removes nodes strictly older than finalizedRoot once the store holds
// at least pruneThreshold nodes, reindexing the remaining nodes from zero.
func (s *Store) prune(ctx context.Context, finalizedRoot [32]byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	finalizedIndex, ok := s.nodesIndices[finalizedRoot]
	if !ok {
		return errUnknownFinalizedRoot
	}

	if finalizedIndex < s.pruneThreshold {
		return nil
	}

	canonicalRoots := make(map[uint64]bool, len(s.nodes)-int(finalizedIndex))
	newNodes := make([]*Node, 0, len(s.nodes)-int(finalizedIndex))
	newIndices := make(map[[32]byte]uint64, len(s.nodes)-int(finalizedIndex))

	for i := finalizedIndex; i < uint64(len(s.nodes)); i++ {
		n := s.nodes[i]
		newIndex := uint64(len(newNodes))
		canonicalRoots[i] = true

		cpy := copyNode(n)
		if cpy.parent != NonExistentNode {
			if !canonicalRoots[cpy.parent] {
				cpy.parent = NonExistentNode
			} else {
				cpy.parent = newIndices[s.nodes[cpy.parent].root]
			}
		}

		newNodes = append(newNodes, cpy)
		newIndices[cpy.root] = newIndex
	}

	// Fix up bestChild/bestDescendant indices which referred to the old
	// numbering; a second pass remaps any surviving reference.
	for _, n := range newNodes {
		if n.bestChild != NonExistentNode {
			if childRoot, ok := rootOf(s.nodes, n.bestChild); ok {
				if idx, ok := newIndices[childRoot]; ok {
					n.bestChild = idx
				} else {
					n.bestChild = NonExistentNode
				}
			}
		}
		if n.bestDescendant != NonExistentNode {
			if descRoot, ok := rootOf(s.nodes, n.bestDescendant); ok {
				if idx, ok := newIndices[descRoot]; ok {
					n.bestDescendant = idx
				} else {
					n.bestDescendant = NonExistentNode
				}
			}
		}
	}

	s.nodes = newNodes
	s.nodesIndices = newIndices
	s.finalizedRoot = finalizedRoot

	return nil
}

func rootOf(nodes []*Node, index uint64) ([32]byte, bool) {
	if int(index) >= len(nodes) {
		return [32]byte{}, false
	}
	return nodes[index].root, true
}
