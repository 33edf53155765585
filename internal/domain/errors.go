package domain

import "errors"

// Contention failures: expected under concurrent booking, recoverable by
// re-querying available slots.
var (
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrSlotNotHeld     = errors.New("slot is not held")
	ErrSlotHoldExpired = errors.New("slot hold expired")
	ErrSlotNotFound    = errors.New("slot not found")
)

// State-machine violations: stale client data or caller logic error.
var (
	ErrSlotNotAvailable  = errors.New("slot is not in the available state")
	ErrRequestNotFound   = errors.New("request not found")
	ErrRequestTerminal   = errors.New("request is already resolved")
	ErrNoPendingProposal = errors.New("no pending proposal")
)

// IsContention reports whether err is an expected slot-contention failure
// that the caller should handle by offering another slot.
func IsContention(err error) bool {
	return errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrSlotNotHeld) ||
		errors.Is(err, ErrSlotHoldExpired)
}
