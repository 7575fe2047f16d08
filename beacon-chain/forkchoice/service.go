package forkchoice

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum-clients/forkchoice/beacon-chain/forkchoice/protoarray"
	"github.com/ethereum-clients/forkchoice/shared/params"
	"github.com/google/uuid"
	mutexasserts "github.com/trailofbits/go-mutexasserts"
)

// ForkChoice is the single entry point the rest of the beacon chain talks to.
// It composes the three collaborators named in the data model -- Store, the
// proto-array DAG, and the attestation queue -- behind one writer-biased
// RWMutex. A single lock covers all three because FindHead and OnBlock both
// need to mutate more than one of them atomically.
type ForkChoice struct {
	lock  sync.RWMutex
	store *Store
	proto *protoarray.ForkChoice
	queue *attestationQueue
	cfg   *params.BeaconChainConfig

	// instanceID correlates log lines and persisted snapshots from the same
	// running process.
	instanceID uuid.UUID
}

// New constructs a ForkChoice rooted at the given genesis block and state.
// The proto-array DAG is seeded with the genesis block as the only node.
func New(cfg *params.BeaconChainConfig, reader HeadStateReader, genesisBlockRoot [32]byte, genesisState BeaconState) (*ForkChoice, error) {
	store := NewStore(cfg, reader, genesisBlockRoot, genesisState)
	proto := protoarray.New(cfg.GenesisEpoch, cfg.GenesisEpoch, genesisBlockRoot)

	if err := proto.ProcessBlock(context.Background(), genesisState.Slot(), genesisBlockRoot, [32]byte{}, [32]byte{}, cfg.GenesisEpoch, cfg.GenesisEpoch); err != nil {
		return nil, &BackendError{Err: err}
	}

	ttl := queueTTL(cfg)
	queue := newAttestationQueue(seenCacheConfig{ttl: ttl, cleanupInterval: ttl})

	return &ForkChoice{
		store:      store,
		proto:      proto,
		queue:      queue,
		cfg:        cfg,
		instanceID: uuid.New(),
	}, nil
}

// queueTTL derives the attestation dedup cache's lifetime from one epoch's
// wall-clock duration, mirroring operations/attestations/kv.NewAttCaches.
func queueTTL(cfg *params.BeaconChainConfig) time.Duration {
	return time.Duration(cfg.SlotsPerEpoch*cfg.SecondsPerSlot) * time.Second
}

// assertWriteLocked panics if fc.lock is not currently held for writing.
// Every mutating method calls this first so a future refactor that drops a
// lock.Lock() call fails loudly in tests rather than racing silently.
func (fc *ForkChoice) assertWriteLocked() {
	if !mutexasserts.RWMutexLocked(&fc.lock) {
		panic("forkchoice: method requires the write lock to be held")
	}
}

// InstanceID identifies this running ForkChoice for log correlation.
func (fc *ForkChoice) InstanceID() uuid.UUID { return fc.instanceID }

// CurrentSlot exposes the store's last-known slot under a read lock.
func (fc *ForkChoice) CurrentSlot() uint64 {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.store.CurrentSlot()
}

// JustifiedCheckpoint exposes the store's effective justified checkpoint.
func (fc *ForkChoice) JustifiedCheckpoint() Checkpoint {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.store.JustifiedCheckpoint()
}

// FinalizedCheckpoint exposes the store's finalized checkpoint.
func (fc *ForkChoice) FinalizedCheckpoint() Checkpoint {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.store.FinalizedCheckpoint()
}

// IsCanonical reports whether root is part of the last-computed head chain.
func (fc *ForkChoice) IsCanonical(root [32]byte) bool {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.proto.IsCanonical(root)
}

// HasBlock reports whether root is known to the proto-array DAG.
func (fc *ForkChoice) HasBlock(root [32]byte) bool {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.proto.ContainsBlock(root)
}

// QueuedAttestationCount reports how many attestations are currently
// buffered for a future slot. Metrics-only.
func (fc *ForkChoice) QueuedAttestationCount() int {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.queue.Len()
}
