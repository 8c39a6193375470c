package domain

import "errors"

// Error taxonomy of the booking core. All of these are local and non-fatal:
// they are translated into user-facing payloads at the tool and HTTP
// boundaries. Only catalog load failure at startup is fatal to the process.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means no booking matched the given hash/email pair.
	ErrNotFound = errors.New("booking not found")

	// ErrNotCancellable means the booking exists but is already completed or cancelled.
	ErrNotCancellable = errors.New("booking cannot be cancelled")

	// ErrNoAvailability means no free instance exists for the requested window.
	ErrNoAvailability = errors.New("no available instance")

	// ErrNoPendingOperation means confirm was called with nothing staged.
	ErrNoPendingOperation = errors.New("no pending operation")

	// ErrAgentUnavailable means the language model call failed or timed out.
	// Retryable by the caller; no engine state is mutated.
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrPersistence means the ledger snapshot write failed. The in-memory
	// mutation is rolled back so memory and snapshot stay consistent.
	ErrPersistence = errors.New("snapshot write failed")
)
