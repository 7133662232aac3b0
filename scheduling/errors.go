package scheduling

import "errors"

// Outcomes of scheduling operations. All of them are recoverable,
// caller-visible results and never fatal to the process; handlers map
// them onto HTTP statuses.
var (
	// Queue bookkeeping
	ErrAlreadyQueued     = errors.New("match is already queued")
	ErrMatchNotQueued    = errors.New("match is not in queued state")
	ErrMatchNotQueueable = errors.New("match teams are not determined yet")
	ErrNoEligibleMatch   = errors.New("no eligible match in queue")

	// Court allocation. Occupy failures all surface as
	// ErrCourtUnavailable; ErrCourtOccupied is the deactivation refusal
	// for a court still holding a match.
	ErrCourtUnavailable     = errors.New("court is inactive or already occupied")
	ErrCourtOccupied        = errors.New("court currently holds a match")
	ErrMatchAlreadyAssigned = errors.New("match is already assigned to a court")

	// Lifecycle
	ErrInvalidTransition = errors.New("invalid match status transition")
	ErrBracketLocked     = errors.New("bracket is locked")

	// Concurrency: the caller presented a stale version. Expected under
	// contention; the calling layer re-reads and retries with backoff.
	ErrConcurrentModification = errors.New("match or court was modified concurrently")

	// Storage-layer failures are wrapped in this sentinel and are not
	// retried here; retry policy belongs to the caller.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
