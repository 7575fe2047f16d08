package forkchoice

import "fmt"

// InvalidBlockError is returned by OnBlock when a block fails one of the
// fork-choice-relevant admission checks. The underlying Reason distinguishes
// the specific failure for callers that need to react differently (e.g. a
// FutureSlot block should be retried later, the others should not).
type InvalidBlockError struct {
	Reason InvalidBlockReason
	// BlockSlot / CurrentSlot populated for FutureSlot.
	BlockSlot, CurrentSlot uint64
	// FinalizedSlot populated for FinalizedSlot.
	FinalizedSlot uint64
	// BlockAncestor / FinalizedRoot populated for NotFinalizedDescendant.
	BlockAncestor, FinalizedRoot [32]byte
	// ParentRoot populated for UnknownParent.
	ParentRoot [32]byte
}

// InvalidBlockReason enumerates the ways OnBlock can reject a block.
type InvalidBlockReason int

const (
	// ReasonFutureSlot means block.slot > store.current_slot.
	ReasonFutureSlot InvalidBlockReason = iota
	// ReasonFinalizedSlot means block.slot <= finalized_slot.
	ReasonFinalizedSlot
	// ReasonNotFinalizedDescendant means the block does not descend from
	// the finalized checkpoint.
	ReasonNotFinalizedDescendant
	// ReasonUnknownParent means the block's parent is not known to
	// proto-array.
	ReasonUnknownParent
)

func (e *InvalidBlockError) Error() string {
	switch e.Reason {
	case ReasonFutureSlot:
		return fmt.Sprintf("block is from a future slot: block slot %d > current slot %d", e.BlockSlot, e.CurrentSlot)
	case ReasonFinalizedSlot:
		return fmt.Sprintf("block slot %d is at or before finalized slot %d", e.BlockSlot, e.FinalizedSlot)
	case ReasonNotFinalizedDescendant:
		return fmt.Sprintf("block ancestor %#x at finalized slot is not the finalized root %#x", e.BlockAncestor, e.FinalizedRoot)
	case ReasonUnknownParent:
		return fmt.Sprintf("block parent %#x is unknown to fork choice", e.ParentRoot)
	default:
		return "invalid block"
	}
}

// InvalidAttestationError is returned by OnAttestation when an attestation
// fails a fork-choice precondition. The attestation is dropped, not queued.
type InvalidAttestationError struct {
	Reason InvalidAttestationReason
	Root   [32]byte
}

// InvalidAttestationReason enumerates the ways OnAttestation can reject an
// attestation that was not eligible to be queued.
type InvalidAttestationReason int

const (
	// ReasonUnknownTarget means the attested target checkpoint's root is
	// not known to fork choice.
	ReasonUnknownTarget InvalidAttestationReason = iota
	// ReasonUnknownBlock means the attested beacon block root is not known
	// to fork choice.
	ReasonUnknownBlock
	// ReasonFutureSlotAfterDraining means a queued attestation was drained
	// before its target slot actually elapsed (an invariant violation, not
	// expected in normal operation).
	ReasonFutureSlotAfterDraining
	// ReasonTargetRootNotAncestorOfLMDVote means the LMD vote root and FFG
	// target root are inconsistent with each other.
	ReasonTargetRootNotAncestorOfLMDVote
)

func (e *InvalidAttestationError) Error() string {
	switch e.Reason {
	case ReasonUnknownTarget:
		return fmt.Sprintf("attestation target %#x is unknown to fork choice", e.Root)
	case ReasonUnknownBlock:
		return fmt.Sprintf("attestation block %#x is unknown to fork choice", e.Root)
	case ReasonFutureSlotAfterDraining:
		return "queued attestation drained before its target slot elapsed"
	case ReasonTargetRootNotAncestorOfLMDVote:
		return fmt.Sprintf("attestation target %#x is not consistent with its LMD vote", e.Root)
	default:
		return "invalid attestation"
	}
}

// StoreError wraps a failure resolving a block or state during an ancestor
// walk or balance recomputation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error during %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// BackendError wraps any error reported by the proto-array collaborator.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("proto-array backend error: %v", e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// SerializationError wraps a decode failure while restoring persisted state.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return fmt.Sprintf("could not decode persisted fork choice: %v", e.Err) }
func (e *SerializationError) Unwrap() error { return e.Err }

// ErrUnableToReadSlot is returned by FindHead when the injected slot clock
// fails to produce a current slot.
var ErrUnableToReadSlot = fmt.Errorf("unable to read current slot from slot clock")
