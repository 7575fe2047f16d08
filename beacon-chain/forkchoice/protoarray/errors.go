package protoarray

import "github.com/pkg/errors"

// Sentinel errors returned by the proto-array DAG. Callers outside this
// package should treat any of these as a BackendError per the fork-choice
// error taxonomy.
var (
	errUnknownParent          = errors.New("parent node does not exist")
	errUnknownJustifiedRoot   = errors.New("justified root does not exist in proto-array")
	errUnknownFinalizedRoot   = errors.New("finalized root does not exist in proto-array")
	errInvalidNodeIndex       = errors.New("node index out of bounds")
	errInvalidBestDescendant  = errors.New("best descendant index out of bounds")
	errInvalidDeltaLength     = errors.New("delta length did not match node count")
	errInvalidBalancesLength  = errors.New("new and old balances length do not match")
	errNodeDoesNotExist       = errors.New("node does not exist in proto-array")
	errInvalidJustifiedEpoch  = errors.New("invalid justified epoch in state")
)
