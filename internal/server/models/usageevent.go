package models

import "time"

// EventKind enumerates the entries of the append-only usage ledger.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventSessionPause EventKind = "session_pause"
	EventFundsAdded   EventKind = "funds_added"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventSessionStart, EventSessionPause, EventFundsAdded:
		return true
	}
	return false
}

// UsageEvent is an immutable ledger entry. Amount is only set for
// EventFundsAdded and is expressed in micro-CHF.
type UsageEvent struct {
	UserID     int64
	Kind       EventKind
	Amount     *int64
	OccurredAt time.Time
}

// Balance is the verdict reconstructed from a user's usage events.
type Balance struct {
	Balance  int64
	IsFunded bool
	// Metering reports whether a session-start is currently unmatched.
	Metering bool
}
