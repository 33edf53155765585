package domain

import "time"

type RequestType string

const (
	RequestTypeWaitlist   RequestType = "WAITLIST"
	RequestTypeIndividual RequestType = "INDIVIDUAL"
	RequestTypeCouple     RequestType = "COUPLE"
)

type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "PENDING"
	RequestStatusNegotiating RequestStatus = "NEGOTIATING"
	RequestStatusConfirmed   RequestStatus = "CONFIRMED"
	RequestStatusRejected    RequestStatus = "REJECTED"
	RequestStatusCanceled    RequestStatus = "CANCELED"
)

// Terminal reports whether no further status transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusConfirmed || s == RequestStatusRejected || s == RequestStatusCanceled
}

// Request is a single client's booking intent. Token is the opaque external
// correlation identifier handed to the chat side.
type Request struct {
	ID             int64
	Token          string
	UserID         int64
	Type           RequestType
	Onsite         *bool
	Timezone       string
	DesiredTime    string
	Problem        string
	PreferredComm  string
	AddressName    string
	Status         RequestStatus
	FinalTime      string
	ScheduledAt    *time.Time
	SlotID         *int64
	Reminder24Sent bool
	Reminder1Sent  bool
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
