package models

import (
	"time"
)

// Event is emitted after a workflow write has committed
type Event struct {
	ID              string     `json:"id" db:"id"`
	RecordID        string     `json:"record_id" db:"record_id"`
	Kind            Kind       `json:"kind" db:"kind"`
	ClientID        string     `json:"client_id" db:"client_id"`
	Transition      Transition `json:"transition" db:"transition"`
	FromStatus      Status     `json:"from_status" db:"from_status"`
	ToStatus        Status     `json:"to_status" db:"to_status"`
	Actor           Actor      `json:"actor" db:"-"`
	RejectionReason string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Version         int64      `json:"version" db:"version"`
	OccurredAt      time.Time  `json:"occurred_at" db:"occurred_at"`
}

// FromSpelling renders FromStatus in the kind vocabulary, falling back to the
// canonical name
func (e Event) FromSpelling() string {
	if s, err := Spelling(e.Kind, e.FromStatus); err == nil {
		return s
	}
	return string(e.FromStatus)
}

// ToSpelling renders ToStatus in the kind vocabulary
func (e Event) ToSpelling() string {
	if s, err := Spelling(e.Kind, e.ToStatus); err == nil {
		return s
	}
	return string(e.ToStatus)
}
