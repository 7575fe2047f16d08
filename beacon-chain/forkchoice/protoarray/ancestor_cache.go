package protoarray

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// ancestorCacheNumCounters and ancestorCacheMaxCost size the ancestor-root
// cache generously: entries are a 32-byte root each, and AncestorRoot is
// called once per attestation, so the working set tracks validator count
// more than anything else.
const (
	ancestorCacheNumCounters = 1 << 16
	ancestorCacheMaxCost     = 1 << 22
)

// newAncestorCache builds the ristretto cache AncestorRoot consults before
// walking parent pointers, sized for a single root per entry rather than a
// full block.
func newAncestorCache() (*ristretto.Cache, error) {
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: ancestorCacheNumCounters,
		MaxCost:     ancestorCacheMaxCost,
		BufferItems: 64,
	})
}

func ancestorCacheKey(root [32]byte, slot uint64) string {
	return fmt.Sprintf("%x:%d", root, slot)
}
