package settle

import "errors"

// Sequencing errors: the caller supplied an epoch index other than the exact
// next expected one. Always caller-fixable, never retried internally.
var (
	ErrEpochNotInSequence = errors.New("epoch not in sequence")
	ErrEpochNotFound      = errors.New("epoch not found")
)

// Insufficiency errors: the requested action exceeds what is available.
var (
	ErrInsufficientPending = errors.New("approved amount exceeds pending")
	ErrZeroApprovalAmount  = errors.New("approval amount is zero")
	ErrZeroAmount          = errors.New("request amount is zero")
)

// State-precondition errors: the investor or epoch is not yet in the required
// state.
var (
	ErrIssuanceRequired                   = errors.New("issuance required before claim")
	ErrRevocationRequired                 = errors.New("revocation required before claim")
	ErrNoOrderFound                       = errors.New("no order found")
	ErrNoUnclaimedCancellation            = errors.New("no unclaimed cancellation")
	ErrCancellationInitializationRequired = errors.New("force cancellation not initialized")
)

// Conflict errors: a queued cancellation blocks new requests.
var (
	ErrCancellationQueued = errors.New("cancellation already queued")
)

// Every rejected call leaves all ledgers unchanged; the engine validates and
// invokes the accounting collaborator before mutating any state.
