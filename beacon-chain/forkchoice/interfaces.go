package forkchoice

import "context"

// BeaconState is the minimal read-only view of a beacon state this package
// needs in order to derive justified balances and walk ancestor block roots.
// Concrete state decoding, SSZ hash-tree-root, and everything else lives
// upstream; fork choice only ever reads through this interface.
type BeaconState interface {
	// Slot the state was computed for.
	Slot() uint64
	// CurrentEpoch is the epoch containing Slot().
	CurrentEpoch() uint64
	// CurrentJustifiedCheckpoint as stored in the state.
	CurrentJustifiedCheckpoint() Checkpoint
	// FinalizedCheckpoint as stored in the state.
	FinalizedCheckpoint() Checkpoint
	// NumValidators returns the length of the validator registry.
	NumValidators() int
	// EffectiveBalance returns validator i's effective balance.
	EffectiveBalance(i int) uint64
	// IsActiveValidator returns whether validator i is active at the given
	// epoch.
	IsActiveValidator(i int, epoch uint64) bool
	// BlockRootAtSlot returns the block root recorded in the state's
	// recent-history vector for the given slot, and whether that slot falls
	// within the window the state remembers.
	BlockRootAtSlot(slot uint64) ([32]byte, bool)
}

// HeadStateReader resolves block roots to the post-states and slots fork
// choice needs to validate admission and recompute balances. It is a
// read-only collaborator; fork choice never writes beacon blocks or states.
type HeadStateReader interface {
	// StateByBlockRoot returns the post-state of the block with the given
	// root, or an error if it is not known.
	StateByBlockRoot(ctx context.Context, blockRoot [32]byte) (BeaconState, error)
	// BlockSlot returns the slot of a known block root.
	BlockSlot(ctx context.Context, blockRoot [32]byte) (uint64, bool, error)
}

// SlotClock yields the current slot on demand. It is monotonically
// non-decreasing; fork choice never rewinds time.
type SlotClock interface {
	CurrentSlot() (uint64, error)
}
