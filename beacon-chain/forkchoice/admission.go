package forkchoice

import (
	"context"
	"time"

	"github.com/ethereum-clients/forkchoice/beacon-chain/core/helpers"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// OnBlock runs the on_block admission checks and, once a
// block passes them, inserts it into proto-array and folds in any justified
// or finalized checkpoint advance the block's post-state carries. It takes
// the single writer lock for its whole duration: insertion and checkpoint
// bookkeeping must be linearizable with respect to every other mutation.
func (fc *ForkChoice) OnBlock(ctx context.Context, slot uint64, blockRoot, parentRoot, stateRoot [32]byte, postState BeaconState) error {
	ctx, span := trace.StartSpan(ctx, "forkchoice.OnBlock")
	defer span.End()
	start := time.Now()
	defer func() { onBlockLatency.Observe(float64(time.Since(start).Milliseconds())) }()

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.assertWriteLocked()

	if slot > fc.store.CurrentSlot() {
		return &InvalidBlockError{Reason: ReasonFutureSlot, BlockSlot: slot, CurrentSlot: fc.store.CurrentSlot()}
	}

	finalized := fc.store.FinalizedCheckpoint()
	finalizedSlot := helpers.StartSlot(fc.cfg, finalized.Epoch)
	if slot <= finalizedSlot {
		return &InvalidBlockError{Reason: ReasonFinalizedSlot, BlockSlot: slot, FinalizedSlot: finalizedSlot}
	}

	if !fc.proto.ContainsBlock(parentRoot) && parentRoot != ([32]byte{}) {
		return &InvalidBlockError{Reason: ReasonUnknownParent, ParentRoot: parentRoot}
	}

	ancestor, err := fc.store.GetAncestor(ctx, postState, parentRoot, finalizedSlot, fc.proto.AncestorRoot)
	if err != nil {
		return &StoreError{Op: "on_block", Err: err}
	}
	if ancestor != finalized.Root {
		return &InvalidBlockError{Reason: ReasonNotFinalizedDescendant, BlockAncestor: ancestor, FinalizedRoot: finalized.Root}
	}

	justified := fc.store.JustifiedCheckpoint()
	if err := fc.proto.ProcessBlock(ctx, slot, blockRoot, parentRoot, stateRoot, justified.Epoch, finalized.Epoch); err != nil {
		return &BackendError{Err: err}
	}

	fc.applyCheckpointUpdates(ctx, postState, blockRoot)
	fc.drainQueued(ctx)

	justifiedEpochGauge.Set(float64(fc.store.JustifiedCheckpoint().Epoch))
	finalizedEpochGauge.Set(float64(fc.store.FinalizedCheckpoint().Epoch))

	return nil
}

// applyCheckpointUpdates implements the checkpoint-update half of on_block.
// A post-state justified checkpoint newer than the store's updates
// best_justified whenever it beats it. Without a finality advance, it becomes
// the effective justified checkpoint only through the safety rule: the
// store's current slot lies inside the safe-slots window AND the block
// descends from the current justified checkpoint. A candidate that fails
// either test becomes effective later, via the epoch-boundary path in
// Store.onTick. When the post-state's finalized checkpoint advances, both the
// finalized and the justified checkpoint are taken from the post-state
// unconditionally.
func (fc *ForkChoice) applyCheckpointUpdates(ctx context.Context, postState BeaconState, blockRoot [32]byte) {
	candidate := postState.CurrentJustifiedCheckpoint()
	current := fc.store.JustifiedCheckpoint()
	finalized := postState.FinalizedCheckpoint()
	finalityAdvanced := finalized.Epoch > fc.store.FinalizedCheckpoint().Epoch

	if candidate.Epoch > current.Epoch {
		if candidate.Epoch > fc.store.BestJustifiedCheckpoint().Epoch {
			fc.store.SetBestJustifiedCheckpoint(postState)
		}

		if !finalityAdvanced && helpers.IsSafeToUpdateJustified(fc.cfg, fc.store.CurrentSlot()) {
			ancestor, err := fc.proto.AncestorRoot(ctx, blockRoot, helpers.StartSlot(fc.cfg, current.Epoch))
			if err == nil && ancestor == current.Root {
				fc.store.SetJustifiedCheckpoint(postState)
				log.WithField("epoch", candidate.Epoch).Debug("Updated justified checkpoint within safe slots window")
			}
		}
	}

	if finalityAdvanced {
		fc.store.SetFinalizedCheckpoint(finalized)
		fc.store.SetJustifiedCheckpoint(postState)
		log.WithField("epoch", finalized.Epoch).Info("Finalized new checkpoint")
	}
}

// OnAttestation runs the on_attestation admission checks. An
// attestation whose target epoch's start slot is still in the future is
// queued rather than rejected; everything else is applied to proto-array
// immediately.
func (fc *ForkChoice) OnAttestation(ctx context.Context, att *IndexedAttestation) error {
	ctx, span := trace.StartSpan(ctx, "forkchoice.OnAttestation")
	defer span.End()
	start := time.Now()
	defer func() { onAttestationLatency.Observe(float64(time.Since(start).Milliseconds())) }()

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.assertWriteLocked()

	if fc.queue.hasSeen(att) {
		return nil
	}

	targetSlot := helpers.StartSlot(fc.cfg, att.Data.Target.Epoch)
	if targetSlot > fc.store.CurrentSlot() {
		fc.queue.enqueue(att)
		fc.queue.markSeen(att)
		queuedAttestationsGauge.Set(float64(fc.queue.Len()))
		return nil
	}

	if !fc.proto.ContainsBlock(att.Data.Target.Root) {
		return &InvalidAttestationError{Reason: ReasonUnknownTarget, Root: att.Data.Target.Root}
	}
	if !fc.proto.ContainsBlock(att.Data.BeaconBlockRoot) {
		return &InvalidAttestationError{Reason: ReasonUnknownBlock, Root: att.Data.BeaconBlockRoot}
	}

	if err := fc.validateTargetConsistency(ctx, att); err != nil {
		return err
	}

	fc.proto.ProcessAttestation(ctx, att.AttestingIndices, att.Data.BeaconBlockRoot, att.Data.Target.Epoch)
	fc.queue.markSeen(att)
	return nil
}

// validateTargetConsistency confirms the attested LMD vote root descends
// from (or equals) the attested FFG target root, per
// ReasonTargetRootNotAncestorOfLMDVote.
func (fc *ForkChoice) validateTargetConsistency(ctx context.Context, att *IndexedAttestation) error {
	targetSlot := helpers.StartSlot(fc.cfg, att.Data.Target.Epoch)
	ancestor, err := fc.proto.AncestorRoot(ctx, att.Data.BeaconBlockRoot, targetSlot)
	if err != nil {
		return &BackendError{Err: errors.Wrap(err, "could not resolve attestation ancestor")}
	}
	if ancestor != att.Data.Target.Root {
		return &InvalidAttestationError{Reason: ReasonTargetRootNotAncestorOfLMDVote, Root: att.Data.Target.Root}
	}
	return nil
}

// drainQueued applies every attestation whose target slot has now elapsed.
// Called from FindHead after Store.UpdateTime advances current_slot, and at
// the end of OnBlock. Caller must hold fc.lock for writing.
func (fc *ForkChoice) drainQueued(ctx context.Context) {
	fc.assertWriteLocked()

	eligible := fc.queue.drain(func(att *IndexedAttestation) uint64 {
		return helpers.StartSlot(fc.cfg, att.Data.Target.Epoch)
	}, fc.store.CurrentSlot())

	for _, att := range eligible {
		if err := fc.validateTargetConsistency(ctx, att); err != nil {
			continue
		}
		fc.proto.ProcessAttestation(ctx, att.AttestingIndices, att.Data.BeaconBlockRoot, att.Data.Target.Epoch)
	}
	queuedAttestationsGauge.Set(float64(fc.queue.Len()))
}
