// Package helpers holds small slot/epoch arithmetic helpers shared by the
// fork-choice core, mirroring the shape (if not the full surface) of Prysm's
// beacon-chain/core/helpers package.
package helpers

import "github.com/ethereum-clients/forkchoice/shared/params"

// SlotToEpoch returns the epoch number of the input slot.
func SlotToEpoch(cfg *params.BeaconChainConfig, slot uint64) uint64 {
	return slot / cfg.SlotsPerEpoch
}

// StartSlot returns the first slot of the given epoch.
func StartSlot(cfg *params.BeaconChainConfig, epoch uint64) uint64 {
	return epoch * cfg.SlotsPerEpoch
}

// IsEpochStart returns true if the given slot is the first slot of an epoch.
func IsEpochStart(cfg *params.BeaconChainConfig, slot uint64) bool {
	return slot%cfg.SlotsPerEpoch == 0
}

// SlotsSinceEpochStart returns how many slots have elapsed since the start of
// the epoch containing slot.
func SlotsSinceEpochStart(cfg *params.BeaconChainConfig, slot uint64) uint64 {
	return slot - StartSlot(cfg, SlotToEpoch(cfg, slot))
}

// IsSafeToUpdateJustified returns true when slot lies within the first
// SafeSlotsToUpdateJustified slots of its epoch.
func IsSafeToUpdateJustified(cfg *params.BeaconChainConfig, slot uint64) bool {
	return SlotsSinceEpochStart(cfg, slot) < cfg.SafeSlotsToUpdateJustified
}
