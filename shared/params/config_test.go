package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainnetConfig(t *testing.T) {
	cfg := MainnetConfig()
	assert.Equal(t, uint64(12), cfg.SecondsPerSlot)
	assert.Equal(t, uint64(32), cfg.SlotsPerEpoch)
	assert.Equal(t, uint64(0), cfg.GenesisEpoch)
	assert.Equal(t, uint64(8), cfg.SafeSlotsToUpdateJustified)
}

func TestMinimalConfig(t *testing.T) {
	cfg := MinimalConfig()
	assert.Equal(t, uint64(8), cfg.SlotsPerEpoch)
	assert.Equal(t, uint64(2), cfg.SafeSlotsToUpdateJustified)
}

func TestCopy_IsIndependent(t *testing.T) {
	cfg := MainnetConfig()
	cpy := cfg.Copy()
	cpy.SlotsPerEpoch = 999

	require.NotEqual(t, cfg.SlotsPerEpoch, cpy.SlotsPerEpoch)
	assert.Equal(t, uint64(32), cfg.SlotsPerEpoch)
}
