package forkchoice

import (
	"context"

	"github.com/ethereum-clients/forkchoice/beacon-chain/db/forkchoicedb"
	"github.com/ethereum-clients/forkchoice/beacon-chain/forkchoice/protoarray"
	"github.com/ethereum-clients/forkchoice/shared/params"
	"github.com/google/uuid"
	ssz "github.com/prysmaticlabs/go-ssz"
	"go.uber.org/multierr"
)

// storeSnapshot is the SSZ-encodable shape of Store, holding every field
// needed to reconstruct it exactly: current slot, the three checkpoints, the
// cached justified balances, and the genesis root.
type storeSnapshot struct {
	CurrentSlot             uint64
	JustifiedCheckpoint     Checkpoint
	BestJustifiedCheckpoint Checkpoint
	FinalizedCheckpoint     Checkpoint
	JustifiedBalances       []uint64
	GenesisBlockRoot        [32]byte
}

// PersistedForkChoice is the flat, single-column persistence shape described
// in the data model: the store and proto-array DAG are each encoded
// independently into their own byte blobs so that one component's encoding
// can change without forcing a decode of the other, and the queued
// attestations travel alongside so a restart resumes with nothing dropped.
type PersistedForkChoice struct {
	StoreBytes         []byte
	ProtoArrayBytes    []byte
	QueuedAttestations []*IndexedAttestation
	GenesisBlockRoot   [32]byte
}

// Persist snapshots the current state of fc for storage. It takes the writer
// lock for its duration, like every other whole-state operation, so the
// snapshot is internally consistent; it writes nothing to disk itself, so the
// lock is released before any caller does I/O.
func (fc *ForkChoice) Persist(ctx context.Context) (*PersistedForkChoice, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	storeBytes, err := ssz.Marshal(&storeSnapshot{
		CurrentSlot:             fc.store.CurrentSlot(),
		JustifiedCheckpoint:     fc.store.JustifiedCheckpoint(),
		BestJustifiedCheckpoint: fc.store.BestJustifiedCheckpoint(),
		FinalizedCheckpoint:     fc.store.FinalizedCheckpoint(),
		JustifiedBalances:       fc.store.JustifiedBalances(),
		GenesisBlockRoot:        fc.store.GenesisBlockRoot(),
	})
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	protoBytes, err := ssz.Marshal(fc.proto.Export())
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	fc.queue.lock.RLock()
	queued := make([]*IndexedAttestation, 0, len(fc.queue.pending))
	for _, att := range fc.queue.pending {
		queued = append(queued, att)
	}
	fc.queue.lock.RUnlock()

	return &PersistedForkChoice{
		StoreBytes:         storeBytes,
		ProtoArrayBytes:    protoBytes,
		QueuedAttestations: queued,
		GenesisBlockRoot:   fc.store.GenesisBlockRoot(),
	}, nil
}

// RestoreForkChoice rebuilds a ForkChoice from a previously persisted
// snapshot. cfg and reader are supplied fresh at startup, mirroring how
// Store.reader is never itself persisted (it is a live collaborator, not
// state).
func RestoreForkChoice(ctx context.Context, cfg *params.BeaconChainConfig, reader HeadStateReader, persisted *PersistedForkChoice) (*ForkChoice, error) {
	var snap storeSnapshot
	if err := ssz.Unmarshal(persisted.StoreBytes, &snap); err != nil {
		return nil, &SerializationError{Err: err}
	}

	var protoSnap protoarray.Snapshot
	if err := ssz.Unmarshal(persisted.ProtoArrayBytes, &protoSnap); err != nil {
		return nil, &SerializationError{Err: err}
	}

	store := &Store{
		cfg:                     cfg,
		reader:                  reader,
		genesisBlockRoot:        snap.GenesisBlockRoot,
		currentSlot:             snap.CurrentSlot,
		justifiedCheckpoint:     snap.JustifiedCheckpoint,
		bestJustifiedCheckpoint: snap.BestJustifiedCheckpoint,
		finalizedCheckpoint:     snap.FinalizedCheckpoint,
		justifiedBalances:       snap.JustifiedBalances,
	}

	proto := protoarray.FromSnapshot(&protoSnap)

	ttl := queueTTL(cfg)
	queue := newAttestationQueue(seenCacheConfig{ttl: ttl, cleanupInterval: ttl})
	for _, att := range persisted.QueuedAttestations {
		queue.enqueue(att)
		queue.markSeen(att)
	}

	return &ForkChoice{
		store:      store,
		proto:      proto,
		queue:      queue,
		cfg:        cfg,
		instanceID: uuid.New(),
	}, nil
}

// SaveTo snapshots fc and writes it to db as a single encoded blob, per the
// single-column persistence shape described in the data model.
func (fc *ForkChoice) SaveTo(ctx context.Context, db *forkchoicedb.Store) error {
	persisted, err := fc.Persist(ctx)
	if err != nil {
		return err
	}
	encoded, err := ssz.Marshal(persisted)
	if err != nil {
		return &SerializationError{Err: err}
	}
	return db.SaveSnapshot(encoded)
}

// LoadFrom reads the last snapshot saved to db and rebuilds a ForkChoice
// from it. Returns (nil, nil) if db has never had a snapshot written,
// signalling the caller should instead build fresh state from genesis.
func LoadFrom(ctx context.Context, cfg *params.BeaconChainConfig, reader HeadStateReader, db *forkchoicedb.Store) (*ForkChoice, error) {
	encoded, err := db.LoadSnapshot()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	if encoded == nil {
		return nil, nil
	}

	var persisted PersistedForkChoice
	if err := ssz.Unmarshal(encoded, &persisted); err != nil {
		return nil, &SerializationError{Err: err}
	}

	return RestoreForkChoice(ctx, cfg, reader, &persisted)
}

// Shutdown persists fc to db and closes db, aggregating failures from both
// steps rather than masking one behind the other -- an operator needs to
// know if the final snapshot failed to write even when the close itself
// succeeds.
func (fc *ForkChoice) Shutdown(ctx context.Context, db *forkchoicedb.Store) error {
	saveErr := fc.SaveTo(ctx, db)
	closeErr := db.Close()
	return multierr.Combine(saveErr, closeErr)
}
