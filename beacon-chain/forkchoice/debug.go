package forkchoice

import (
	"context"

	"github.com/ethereum-clients/forkchoice/shared/params"
	"github.com/pkg/errors"
)

// Snapshot is an accessor for inspection tooling that returns exactly what
// Persist returns: the encoded store and proto-array blobs plus the queued
// attestations. It does not write anything to disk.
func (fc *ForkChoice) Snapshot(ctx context.Context) (*PersistedForkChoice, error) {
	return fc.Persist(ctx)
}

// VerifyRoundTrip persists fc, restores it into a fresh ForkChoice, and
// confirms the restored checkpoints, node count, and head computation agree
// with the original. It exists purely as an operator/debug assertion; no
// production path calls it.
func (fc *ForkChoice) VerifyRoundTrip(ctx context.Context, cfg *params.BeaconChainConfig, reader HeadStateReader, clock SlotClock) error {
	persisted, err := fc.Persist(ctx)
	if err != nil {
		return errors.Wrap(err, "could not persist fork choice")
	}

	restored, err := RestoreForkChoice(ctx, cfg, reader, persisted)
	if err != nil {
		return errors.Wrap(err, "could not restore fork choice")
	}

	if restored.store.CurrentSlot() != fc.store.CurrentSlot() {
		return errors.Errorf("round trip slot mismatch: got %d want %d", restored.store.CurrentSlot(), fc.store.CurrentSlot())
	}
	if restored.store.JustifiedCheckpoint() != fc.store.JustifiedCheckpoint() {
		return errors.New("round trip justified checkpoint mismatch")
	}
	if restored.store.FinalizedCheckpoint() != fc.store.FinalizedCheckpoint() {
		return errors.New("round trip finalized checkpoint mismatch")
	}
	if restored.proto.NodeCount() != fc.proto.NodeCount() {
		return errors.Errorf("round trip node count mismatch: got %d want %d", restored.proto.NodeCount(), fc.proto.NodeCount())
	}

	wantHead, err := fc.FindHead(ctx, clock)
	if err != nil {
		return errors.Wrap(err, "could not compute original head")
	}
	gotHead, err := restored.FindHead(ctx, clock)
	if err != nil {
		return errors.Wrap(err, "could not compute restored head")
	}
	if gotHead != wantHead {
		return errors.New("round trip head mismatch")
	}

	return nil
}
