// Package params defines chain-spec constants injected into the fork-choice
// core, following the same override-a-copy pattern Prysm uses for its network
// configs.
package params

// BeaconChainConfig holds the subset of Ethereum consensus constants the
// fork-choice core depends on. It is passed explicitly rather than read from a
// package-level global so that a process can run more than one chain (e.g. a
// test harness alongside mainnet) without clobbering shared state.
type BeaconChainConfig struct {
	// Time parameters.
	SecondsPerSlot uint64
	SlotsPerEpoch  uint64
	GenesisEpoch   uint64

	// Fork-choice parameters.
	SafeSlotsToUpdateJustified uint64

	// Sentinel values.
	FarFutureEpoch uint64
}

// Copy returns a full copy of the config object.
func (c *BeaconChainConfig) Copy() *BeaconChainConfig {
	cpy := *c
	return &cpy
}

// MainnetConfig returns the configuration to be used for mainnet.
func MainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:             12,
		SlotsPerEpoch:              32,
		GenesisEpoch:               0,
		SafeSlotsToUpdateJustified: 8,
		FarFutureEpoch:             1<<64 - 1,
	}
}

// MinimalConfig returns the configuration used by spec-test / e2e minimal
// presets: 8-slot epochs and a 2-slot safety window.
func MinimalConfig() *BeaconChainConfig {
	cfg := MainnetConfig().Copy()
	cfg.SlotsPerEpoch = 8
	cfg.SafeSlotsToUpdateJustified = 2
	return cfg
}
