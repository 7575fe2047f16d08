package forkchoice

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// attestationQueue buffers attestations whose target slot is still in the
// future relative to the store's current slot, draining them once time
// catches up. Mirrors the sync.RWMutex-guarded map-of-caches shape of
// operations/attestations/kv.AttCaches, trimmed to the one cache fork choice
// actually needs.
type attestationQueue struct {
	lock    sync.RWMutex
	pending map[[32]byte]*IndexedAttestation

	// seen dedups attestations already queued or processed within a short
	// TTL window so a re-gossiped duplicate is a cheap no-op rather than a
	// second queue entry.
	seen *cache.Cache
}

func newAttestationQueue(cfg seenCacheConfig) *attestationQueue {
	return &attestationQueue{
		pending: make(map[[32]byte]*IndexedAttestation),
		seen:    cache.New(cfg.ttl, cfg.cleanupInterval),
	}
}

// seenCacheConfig configures the queue's dedup cache lifetime. Grounded on
// operations/attestations/kv.NewAttCaches deriving its TTL from
// SlotsPerEpoch*SecondsPerSlot.
type seenCacheConfig struct {
	ttl             time.Duration
	cleanupInterval time.Duration
}

// key identifies a queued attestation by its target root, target epoch and
// attesting indices; the same validator set attesting to the same target is
// the same logical attestation for queueing purposes.
func attestationKey(att *IndexedAttestation) [32]byte {
	h := sha256.New()
	h.Write(att.Data.Target.Root[:])
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], att.Data.Target.Epoch)
	h.Write(buf[:])
	for _, index := range att.AttestingIndices {
		binary.LittleEndian.PutUint64(buf[:], index)
		h.Write(buf[:])
	}
	var k [32]byte
	copy(k[:], h.Sum(nil))
	return k
}

// enqueue buffers att for later draining. Returns false if an attestation
// with the same key was already queued (the caller should treat this as a
// no-op, not an error).
func (q *attestationQueue) enqueue(att *IndexedAttestation) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	k := attestationKey(att)
	if _, ok := q.pending[k]; ok {
		return false
	}
	q.pending[k] = att
	return true
}

// drain removes and returns every queued attestation whose target slot is
// now <= currentSlot.
func (q *attestationQueue) drain(cfg targetSlotFn, currentSlot uint64) []*IndexedAttestation {
	q.lock.Lock()
	defer q.lock.Unlock()

	var eligible []*IndexedAttestation
	for k, att := range q.pending {
		if cfg(att) <= currentSlot {
			eligible = append(eligible, att)
			delete(q.pending, k)
		}
	}
	return eligible
}

// targetSlotFn computes an attestation's target-epoch start slot; passed in
// rather than imported to keep this file free of the params/helpers
// dependency it would otherwise need just for one calculation.
type targetSlotFn func(att *IndexedAttestation) uint64

// Len reports the number of currently queued attestations, used only for
// metrics.
func (q *attestationQueue) Len() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return len(q.pending)
}

// markSeen records that att has been accepted for processing or queueing, so
// a re-gossiped duplicate can be recognized cheaply without touching the
// pending map or proto-array.
func (q *attestationQueue) markSeen(att *IndexedAttestation) {
	k := attestationKey(att)
	q.seen.SetDefault(string(k[:]), struct{}{})
}

// hasSeen reports whether att was already marked seen within the TTL window.
func (q *attestationQueue) hasSeen(att *IndexedAttestation) bool {
	k := attestationKey(att)
	_, ok := q.seen.Get(string(k[:]))
	return ok
}
