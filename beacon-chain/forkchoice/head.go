package forkchoice

import (
	"context"
	"time"

	"go.opencensus.io/trace"
)

// FindHead implements the head-finding orchestration: advance time, drain any
// attestations whose target slot has now elapsed, and delegate the actual
// weighted walk to proto-array using the store's current checkpoints and
// cached justified balances.
//
// clock supplies the wall-clock-derived current slot; FindHead never reads
// the system clock itself so tests can drive time deterministically.
func (fc *ForkChoice) FindHead(ctx context.Context, clock SlotClock) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "forkchoice.FindHead")
	defer span.End()
	start := time.Now()
	defer func() { findHeadLatency.Observe(float64(time.Since(start).Milliseconds())) }()

	currentSlot, err := clock.CurrentSlot()
	if err != nil {
		return [32]byte{}, ErrUnableToReadSlot
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.assertWriteLocked()

	if err := fc.store.UpdateTime(currentSlot); err != nil {
		return [32]byte{}, &StoreError{Op: "update_time", Err: err}
	}

	fc.drainQueued(ctx)

	justified := fc.store.JustifiedCheckpoint()
	finalized := fc.store.FinalizedCheckpoint()

	head, err := fc.proto.Head(ctx, justified.Epoch, justified.Root, fc.store.JustifiedBalances(), finalized.Epoch)
	if err != nil {
		return [32]byte{}, &BackendError{Err: err}
	}

	if err := fc.maybePrune(ctx, finalized); err != nil {
		return [32]byte{}, err
	}

	return head, nil
}

// maybePrune forwards the current finalized root to proto-array, which
// internally no-ops until defaultPruneThreshold nodes have accumulated
// below it.
func (fc *ForkChoice) maybePrune(ctx context.Context, finalized Checkpoint) error {
	before := fc.proto.NodeCount()
	if err := fc.proto.Prune(ctx, finalized.Root); err != nil {
		return &BackendError{Err: err}
	}
	if after := fc.proto.NodeCount(); after < before {
		prunedNodesCounter.Add(float64(before - after))
	}
	return nil
}
