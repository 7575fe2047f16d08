package forkchoice

import (
	"context"

	"github.com/ethereum-clients/forkchoice/beacon-chain/core/helpers"
	"github.com/ethereum-clients/forkchoice/shared/params"
	"github.com/pkg/errors"
)

// Store holds the authoritative view of time, the three checkpoints, the
// justified-state balance cache, and the immutable genesis root. It has no
// notion of votes or weights, that lives entirely in the protoarray
// collaborator, and does not lock itself; ForkChoice (service.go) owns the
// single writer-biased lock that protects Store together with protoarray.
type Store struct {
	cfg *params.BeaconChainConfig

	currentSlot             uint64
	justifiedCheckpoint     Checkpoint
	bestJustifiedCheckpoint Checkpoint
	finalizedCheckpoint     Checkpoint
	justifiedBalances       []uint64
	genesisBlockRoot        [32]byte

	reader HeadStateReader
}

// NewStore builds a Store from a genesis block root and state. The genesis
// checkpoint is used for all three checkpoints; justified balances are
// derived from the genesis state.
func NewStore(cfg *params.BeaconChainConfig, reader HeadStateReader, genesisBlockRoot [32]byte, genesisState BeaconState) *Store {
	genesis := Checkpoint{Epoch: cfg.GenesisEpoch, Root: genesisBlockRoot}
	return &Store{
		cfg:                     cfg,
		reader:                  reader,
		genesisBlockRoot:        genesisBlockRoot,
		justifiedCheckpoint:     genesis,
		bestJustifiedCheckpoint: genesis,
		finalizedCheckpoint:     genesis,
		justifiedBalances:       deriveBalances(genesisState),
		currentSlot:             genesisState.Slot(),
	}
}

// CurrentSlot returns the store's last-known slot.
func (s *Store) CurrentSlot() uint64 { return s.currentSlot }

// JustifiedCheckpoint returns the checkpoint currently used to score the DAG.
func (s *Store) JustifiedCheckpoint() Checkpoint { return s.justifiedCheckpoint }

// BestJustifiedCheckpoint returns the highest-epoch justified checkpoint
// observed so far.
func (s *Store) BestJustifiedCheckpoint() Checkpoint { return s.bestJustifiedCheckpoint }

// FinalizedCheckpoint returns the finalized prefix.
func (s *Store) FinalizedCheckpoint() Checkpoint { return s.finalizedCheckpoint }

// GenesisBlockRoot returns the immutable genesis root.
func (s *Store) GenesisBlockRoot() [32]byte { return s.genesisBlockRoot }

// JustifiedBalances returns the cached balance vector for the justified
// state. Callers must not mutate the returned slice.
func (s *Store) JustifiedBalances() []uint64 { return s.justifiedBalances }

// UpdateTime advances the store to currentSlot by invoking onTick for every
// slot between the last known slot and currentSlot, inclusive. Calling it
// with a slot not greater than CurrentSlot() is a no-op.
func (s *Store) UpdateTime(currentSlot uint64) error {
	for slot := s.currentSlot + 1; slot <= currentSlot; slot++ {
		if err := s.onTick(slot); err != nil {
			return err
		}
	}
	return nil
}

// onTick is the default on_tick implementation: it bumps
// current_slot and, exactly at an epoch boundary with a pending better
// justified checkpoint, promotes best_justified_checkpoint to
// justified_checkpoint and recomputes balances.
//
// This method is factored out as the one place the epoch-boundary promotion
// rule is written, per the "trait with default method for on_tick" design
// note: any second Store implementation in this codebase would embed *Store
// and reuse this method rather than reimplementing the rule.
func (s *Store) onTick(slot uint64) error {
	if slot < s.currentSlot {
		return errors.Errorf("on_tick called with slot %d behind current slot %d", slot, s.currentSlot)
	}

	previousSlot := s.currentSlot
	s.currentSlot = slot

	if !(slot > previousSlot && helpers.IsEpochStart(s.cfg, slot)) {
		return nil
	}

	if s.bestJustifiedCheckpoint.Epoch > s.justifiedCheckpoint.Epoch {
		return s.setJustifiedCheckpointToBestJustifiedCheckpoint(context.Background())
	}

	return nil
}

func (s *Store) setJustifiedCheckpointToBestJustifiedCheckpoint(ctx context.Context) error {
	state, err := s.reader.StateByBlockRoot(ctx, s.bestJustifiedCheckpoint.Root)
	if err != nil {
		return &StoreError{Op: "set_justified_checkpoint_to_best_justified_checkpoint", Err: err}
	}
	s.justifiedCheckpoint = s.bestJustifiedCheckpoint
	s.justifiedBalances = deriveBalances(state)
	return nil
}

// SetFinalizedCheckpoint sets the finalized checkpoint directly.
func (s *Store) SetFinalizedCheckpoint(cp Checkpoint) {
	s.finalizedCheckpoint = cp
}

// SetJustifiedCheckpoint derives a checkpoint from state's current-justified
// field and adopts it as the effective justified checkpoint, recomputing
// balances against state.
func (s *Store) SetJustifiedCheckpoint(state BeaconState) {
	s.justifiedCheckpoint = state.CurrentJustifiedCheckpoint()
	s.justifiedBalances = deriveBalances(state)
}

// SetBestJustifiedCheckpoint derives a checkpoint from state's
// current-justified field and records it as the best-justified checkpoint
// observed, without touching the effective justified checkpoint or balances.
func (s *Store) SetBestJustifiedCheckpoint(state BeaconState) {
	s.bestJustifiedCheckpoint = state.CurrentJustifiedCheckpoint()
}

// GetAncestor walks back from blockRoot to the ancestor at slot, using
// state's embedded recent block-root history first and falling back to the
// caller-supplied ancestor resolver (proto-array) for older hops.
func (s *Store) GetAncestor(ctx context.Context, state BeaconState, blockRoot [32]byte, slot uint64, backendAncestor func(ctx context.Context, root [32]byte, slot uint64) ([32]byte, error)) ([32]byte, error) {
	blockSlot, known, err := s.reader.BlockSlot(ctx, blockRoot)
	if err != nil {
		return [32]byte{}, &StoreError{Op: "get_ancestor", Err: err}
	}
	if !known {
		return [32]byte{}, &StoreError{Op: "get_ancestor", Err: errors.Errorf("unknown block %#x", blockRoot)}
	}
	if blockSlot == slot {
		return blockRoot, nil
	}
	if blockSlot < slot {
		return [32]byte{}, &StoreError{Op: "get_ancestor", Err: errors.Errorf("ancestor at slot %d is after block slot %d", slot, blockSlot)}
	}

	if root, ok := state.BlockRootAtSlot(slot); ok {
		return root, nil
	}

	root, err := backendAncestor(ctx, blockRoot, slot)
	if err != nil {
		return [32]byte{}, &BackendError{Err: err}
	}
	return root, nil
}

// deriveBalances produces the justified-balances vector for a state: the
// effective balance of each validator active at the state's current epoch,
// zero otherwise. Length and order match the validator registry, mirroring
// precompute.New's per-validator walk.
func deriveBalances(state BeaconState) []uint64 {
	n := state.NumValidators()
	balances := make([]uint64, n)
	epoch := state.CurrentEpoch()
	for i := 0; i < n; i++ {
		if state.IsActiveValidator(i, epoch) {
			balances[i] = state.EffectiveBalance(i)
		}
	}
	return balances
}
